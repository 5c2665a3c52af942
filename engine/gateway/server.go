package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/chatstack/intentd/engine/infra/monitoring"
	"github.com/chatstack/intentd/pkg/logger"
)

// Server runs the gateway over HTTP with graceful shutdown.
type Server struct {
	gateway *Gateway
	mon     *monitoring.Service
	addr    string
}

func NewServer(gateway *Gateway, mon *monitoring.Service) *Server {
	return &Server{
		gateway: gateway,
		mon:     mon,
		addr: fmt.Sprintf("%s:%d",
			gateway.cfg.Server.Host, gateway.cfg.Server.Port),
	}
}

// Run serves until the context is canceled, then drains in-flight
// requests before returning.
func (s *Server) Run(ctx context.Context) error {
	log := logger.FromContext(ctx)
	srv := &http.Server{
		Addr:         s.addr,
		Handler:      s.gateway.BuildRouter(ctx, s.mon),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("classification gateway listening", "address", s.addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("gateway server failed: %w", err)
	case <-ctx.Done():
	}

	log.Info("shutting down classification gateway")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("gateway shutdown failed: %w", err)
	}
	if err := s.mon.Shutdown(shutdownCtx); err != nil {
		log.Warn("monitoring shutdown failed", "error", err)
	}
	log.Info("classification gateway stopped")
	return nil
}
