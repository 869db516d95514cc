package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Server is the HTTP server of the explorer API.
type Server struct {
	server *http.Server
}

// NewServer creates a new server on port.
func NewServer(handler http.Handler, port int, readTimeout, writeTimeout time.Duration) *Server {
	return &Server{
		server: &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           handler,
			ReadTimeout:       readTimeout,
			ReadHeaderTimeout: readTimeout,
			WriteTimeout:      writeTimeout,
		},
	}
}

// Start serves until Stop. It returns nil after a graceful shutdown.
func (s *Server) Start() error {
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop stops the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
