package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"

	"poolScope/internal/api/handler"
)

const shutdownTimeout = 10 * time.Second

// Server exposes pool queries over HTTP.
type Server struct {
	httpServer *http.Server
	logger     *zap.Logger
}

// NewServer routes requests on addr to pools.
func NewServer(pools handler.Querier, logger *zap.Logger, addr string) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := handler.NewHandler(pools, logger)

	return &Server{
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           h.NewRouter(),
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			// A cache miss runs a full provider scan.
			WriteTimeout: 5 * time.Minute,
			IdleTimeout:  60 * time.Second,
		},
		logger: logger,
	}
}

// Run listens on the configured address and serves until ctx ends.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.httpServer.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve answers requests on ln. Cancelling ctx drains in-flight requests
// for up to shutdownTimeout.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.logger.Info("pool API listening", zap.String("addr", ln.Addr().String()))

	served := make(chan error, 1)
	go func() {
		served <- s.httpServer.Serve(ln)
	}()

	select {
	case err := <-served:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve pool API: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info("pool API stopping")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	return s.httpServer.Shutdown(shutdownCtx)
}
