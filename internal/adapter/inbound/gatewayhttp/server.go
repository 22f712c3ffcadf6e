package gatewayhttp

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Sentinel-Gate/aigatewayd/internal/adapter/outbound/metrics"
)

// Server wraps the forwarding pipeline in an http.Server exposing /metrics
// alongside the proxied routes, and performs graceful shutdown on request.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer builds a Server listening on addr. reg is the Prometheus
// registry m was registered against; a /metrics endpoint is served from it
// directly, bypassing the forwarding pipeline entirely. m is also used to
// wrap pipeline with the generic request-duration/outcome middleware.
func NewServer(addr string, cert *tls.Certificate, pipeline http.Handler, reg *prometheus.Registry, m *metrics.Metrics, logger *slog.Logger) *Server {
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	mux.Handle("/", metrics.Middleware(m)(pipeline))

	httpServer := &http.Server{
		Addr:    addr,
		Handler: mux,
	}
	if cert != nil {
		httpServer.TLSConfig = &tls.Config{
			MinVersion:   tls.VersionTLS12,
			Certificates: []tls.Certificate{*cert},
		}
	}

	return &Server{httpServer: httpServer, logger: logger}
}

// Run starts the listener and blocks until ctx is canceled, at which point
// it shuts the server down with a bounded grace period.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		var err error
		if s.httpServer.TLSConfig != nil {
			s.logger.Info("starting HTTPS listener", "addr", s.httpServer.Addr)
			err = s.httpServer.ListenAndServeTLS("", "")
		} else {
			s.logger.Info("starting HTTP listener", "addr", s.httpServer.Addr)
			err = s.httpServer.ListenAndServe()
		}
		if err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("context canceled, shutting down listener")
		return s.shutdown()
	case err := <-errCh:
		return err
	}
}

func (s *Server) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown listener: %w", err)
	}
	s.logger.Info("listener shutdown complete")
	return nil
}
