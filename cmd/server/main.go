package main

import (
	"github.com/pageturn/chat/internal/server"
)

func main() {
	s := server.New()
	s.RegisterRoutes()
	s.Start()
}
