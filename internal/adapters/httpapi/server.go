package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// Server exposes every dispatcher endpoint under its method name, plus
// /metrics when a recorder handler is supplied
type Server struct {
	httpServer *http.Server
}

// NewServer builds the mux and wraps it in an http.Server
func NewServer(addr string, dispatcher *Dispatcher, metricsHandler http.Handler) *Server {
	mux := http.NewServeMux()
	for _, method := range dispatcher.Methods() {
		mux.HandleFunc("/"+method, dispatcher.Handler(method))
	}
	if metricsHandler != nil {
		mux.Handle("/metrics", metricsHandler)
	}
	return &Server{
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

// Run serves until the context is cancelled, then drains in-flight requests
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server failed: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http server shutdown failed: %w", err)
	}
	return nil
}
