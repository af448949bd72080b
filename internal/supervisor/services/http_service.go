package services

import (
	"context"
	"errors"
	"net/http"
	"time"
)

// HTTPServerService wraps a *http.Server as a supervised service, adapting
// ListenAndServe/Shutdown to suture's Serve pattern. It is the process's
// only external interface: Prometheus /metrics and a liveness /healthz.
type HTTPServerService struct {
	server      *http.Server
	stopTimeout time.Duration
	name        string
}

// NewHTTPServerService creates a new HTTP server service wrapper. stopTimeout
// bounds how long Serve waits for in-flight requests to drain on shutdown;
// zero defaults to 10s.
func NewHTTPServerService(server *http.Server, stopTimeout time.Duration) *HTTPServerService {
	if stopTimeout <= 0 {
		stopTimeout = 10 * time.Second
	}
	return &HTTPServerService{server: server, stopTimeout: stopTimeout, name: "http-server"}
}

// Serve implements suture.Service: run ListenAndServe in the background,
// shut down gracefully when the context is canceled, and surface a genuine
// listen failure as an error so the supervisor restarts it.
func (s *HTTPServerService) Serve(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.stopTimeout)
		defer cancel()
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			return err
		}
		<-errCh
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

// String implements fmt.Stringer for suture's log messages.
func (s *HTTPServerService) String() string {
	return s.name
}
