/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Package metricsserver provides an HTTP server exposing Prometheus metrics and pprof endpoints.
package metricsserver

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/acronis/go-cachebatcher/log"
)

// MetricsServer serves /metrics from the given gatherer and /debug/pprof/ for profiling.
type MetricsServer struct {
	URL            string
	HTTPServer     *http.Server
	httpServerDone chan struct{}
	Logger         log.FieldLogger
}

// New creates a new metrics HTTP server.
func New(cfg *Config, gatherer prometheus.Gatherer, logger log.FieldLogger) *MetricsServer {
	router := chi.NewRouter()
	router.Use(requestID, chimiddleware.Recoverer, requestLogging(logger))
	router.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	router.Mount("/debug", chimiddleware.Profiler())

	httpServer := &http.Server{
		Addr:              cfg.Address,
		Handler:           router,
		ReadHeaderTimeout: time.Second * 5,
	}

	return &MetricsServer{
		URL:            "http://" + httpServer.Addr,
		HTTPServer:     httpServer,
		httpServerDone: make(chan struct{}),
		Logger:         logger,
	}
}

// Start starts the HTTP server in a blocking way. Supposed this method will be called in a separate goroutine.
// If a fatal error occurs, it's sent into passed fatalError channel and should be processed outside.
func (s *MetricsServer) Start(fatalError chan<- error) {
	defer close(s.httpServerDone)

	logger := s.Logger.With(log.String("address", s.HTTPServer.Addr))

	logger.Info("starting metrics HTTP server...")
	if err := s.HTTPServer.ListenAndServe(); err != nil {
		if errors.Is(err, http.ErrServerClosed) {
			logger.Info("metrics HTTP server closed")
			return
		}
		logger.Error("metrics HTTP server error", log.Error(err))
		fatalError <- err
	}
}

// Stop stops the HTTP server (always in non-graceful way).
func (s *MetricsServer) Stop() error {
	s.Logger.Info("closing metrics HTTP server...")
	if err := s.HTTPServer.Close(); err != nil {
		s.Logger.Error("metrics HTTP server closing error", log.Error(err))
		return err
	}
	<-s.httpServerDone // Wait closing of listener.
	return nil
}
