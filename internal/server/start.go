package server

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
)

// Start runs the HTTP server until an interrupt or terminate signal, then
// shuts down gracefully: stop accepting connections, drain the per-club
// sequencers, close the event bus, release the database.
func (s *Server) Start() {
	go func() {
		if err := s.E.Start(s.Cfg.Addr); err != nil && err != http.ErrServerClosed {
			s.E.Logger.Fatalf("shutting down the server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.E.Shutdown(ctx); err != nil {
		s.E.Logger.Error(err)
	}

	s.mgr.Shutdown()
	if s.bridge != nil {
		_ = s.bridge.Close()
	}
	if s.DB != nil {
		s.DB.Close(ctx)
	}
}
