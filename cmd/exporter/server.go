package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/andreweacott/central-client/pkg/central"
	"github.com/andreweacott/central-client/pkg/config"
	"github.com/andreweacott/central-client/pkg/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const shutdownGrace = 10 * time.Second

// BreakerStatus is the view of the circuit breaker reported on /health.
// *central.CircuitBreakerRequester satisfies it.
type BreakerStatus interface {
	State() central.CircuitBreakerState
	LastError() error
	LastErrorTime() time.Time
}

// StartServer serves /metrics and /health until ctx is cancelled.
// registry must already hold the exporter health metrics; deviceCollector is added here.
// breaker may be nil, in which case /health always reports ok.
func StartServer(
	ctx context.Context,
	cfg *config.Config,
	registry *prometheus.Registry,
	deviceCollector prometheus.Collector,
	breaker BreakerStatus,
	log *logger.Logger,
) error {
	if err := registry.Register(deviceCollector); err != nil {
		return fmt.Errorf("failed to register device collector: %w", err)
	}

	scrapeTimeout := time.Duration(cfg.ScrapeTimeout) * time.Second

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
		Timeout:           scrapeTimeout,
	}))
	mux.Handle("/health", newHealthHandler(breaker))

	server := &http.Server{
		Addr:        fmt.Sprintf(":%d", cfg.Port),
		Handler:     mux,
		ReadTimeout: 10 * time.Second,
		// a scrape may legitimately take the whole scrape timeout
		WriteTimeout: scrapeTimeout + 5*time.Second,
		IdleTimeout:  65 * time.Second,
	}

	listenErr := make(chan error, 1)
	go func() {
		log.Info("Listening", "address", server.Addr,
			"metrics_url", fmt.Sprintf("http://localhost:%d/metrics", cfg.Port),
			"health_url", fmt.Sprintf("http://localhost:%d/health", cfg.Port))
		listenErr <- server.ListenAndServe()
	}()

	select {
	case err := <-listenErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("HTTP server error: %w", err)

	case <-ctx.Done():
		log.Info("Shutdown requested, draining connections", "grace", shutdownGrace.String())
		drainCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()

		if err := server.Shutdown(drainCtx); err != nil {
			return fmt.Errorf("HTTP server shutdown error: %w", err)
		}

		log.Info("HTTP server stopped")
		return nil
	}
}

type healthReport struct {
	Status         string `json:"status"`
	CircuitBreaker string `json:"circuit_breaker,omitempty"`
	LastError      string `json:"last_error,omitempty"`
	LastErrorTime  string `json:"last_error_time,omitempty"`
}

// newHealthHandler reports ok, or 503 "degraded" while the breaker is open
func newHealthHandler(breaker BreakerStatus) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		report := healthReport{Status: "ok"}
		code := http.StatusOK

		if breaker != nil {
			state := breaker.State()
			report.CircuitBreaker = state.String()
			if err := breaker.LastError(); err != nil {
				report.LastError = err.Error()
				report.LastErrorTime = breaker.LastErrorTime().UTC().Format(time.RFC3339)
			}
			if state == central.CircuitOpen {
				report.Status = "degraded"
				code = http.StatusServiceUnavailable
			}
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(report)
	}
}

// SetupGracefulShutdown returns a context cancelled on SIGINT or SIGTERM
func SetupGracefulShutdown() context.Context {
	ctx, cancel := context.WithCancel(context.Background())

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-signals
		fmt.Fprintf(os.Stderr, "Received %v, shutting down\n", sig)
		cancel()
	}()

	return ctx
}
