package main

import "github.com/pageturn/chat/cmd/chatctl/cmd"

func main() {
	cmd.Execute()
}
