package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/smukkama/water-monitor/internal/logger"
	"github.com/smukkama/water-monitor/pkg/config"
)

// HTTPServer serves the API and websocket stream
type HTTPServer struct {
	config   *config.HTTPConfig
	server   *http.Server
	listener net.Listener
	wg       sync.WaitGroup
	log      zerolog.Logger
}

// NewHTTPServer creates a server for the given handler
func NewHTTPServer(cfg *config.HTTPConfig, handler http.Handler) *HTTPServer {
	return &HTTPServer{
		config: cfg,
		server: &http.Server{
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
		log: logger.WithComponent("http"),
	}
}

// Start listens on the configured port and serves in the background
func (s *HTTPServer) Start() error {
	addr := fmt.Sprintf(":%d", s.config.Port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}
	s.listener = listener

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error().Err(err).Msg("HTTP server stopped unexpectedly")
		}
	}()

	s.log.Info().Str("addr", listener.Addr().String()).Msg("HTTP server listening")
	return nil
}

// Addr returns the bound address, useful when the port was 0
func (s *HTTPServer) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Stop drains in-flight requests within the shutdown timeout
func (s *HTTPServer) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()

	err := s.server.Shutdown(ctx)
	s.wg.Wait()
	if err != nil {
		return fmt.Errorf("HTTP server shutdown: %w", err)
	}

	s.log.Info().Msg("HTTP server stopped")
	return nil
}
