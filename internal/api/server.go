// Docket - Legal Document Graph Extraction Pipeline
// Copyright 2026 Joe Ott (joeott)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/joeott/legal-doc-processor-sub010

package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/joeott/legal-doc-processor-sub010/internal/config"
	"github.com/joeott/legal-doc-processor-sub010/internal/logging"
)

// Server runs the HTTP listener under the supervision tree.
type Server struct {
	srv *http.Server
	cfg config.ServerConfig
}

// NewServer wraps the handler in an http.Server with the configured timeouts.
func NewServer(handler http.Handler, cfg config.ServerConfig) *Server {
	return &Server{
		srv: &http.Server{
			Addr:         net.JoinHostPort(cfg.Host, fmt.Sprintf("%d", cfg.Port)),
			Handler:      handler,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
		},
		cfg: cfg,
	}
}

// String names the service in supervisor logs.
func (s *Server) String() string { return "http-server" }

// Addr returns the configured listen address.
func (s *Server) Addr() string { return s.srv.Addr }

// Serve listens until the context is canceled, then drains connections
// within the configured shutdown timeout.
func (s *Server) Serve(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		logging.Info().Str("addr", s.srv.Addr).Msg("HTTP server listening")
		errCh <- s.srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()
		if err := s.srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http shutdown: %w", err)
		}
		return ctx.Err()
	}
}
