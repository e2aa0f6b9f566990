package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/andreweacott/central-client/pkg/auth"
	"github.com/andreweacott/central-client/pkg/central"
	"github.com/andreweacott/central-client/pkg/collector"
	"github.com/andreweacott/central-client/pkg/config"
	"github.com/andreweacott/central-client/pkg/logger"
	"github.com/andreweacott/central-client/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
)

// version is overridden at build time with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	// Load configuration
	cfg := config.Load()

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Logger error: %v\n", err)
		os.Exit(1)
	}

	log.Info("central-exporter starting", "config", cfg.String(), "version", version)

	// Create context with graceful shutdown support
	ctx := SetupGracefulShutdown()

	registry := prometheus.NewRegistry()
	centralCollector, breaker, err := initializeCollector(ctx, cfg, registry, log)
	if err != nil {
		log.Error("Initialization failed", "error", err.Error())
		os.Exit(1)
	}

	if err := StartServer(ctx, cfg, registry, centralCollector, breaker, log); err != nil {
		log.Error("Server error", "error", err.Error())
		os.Exit(1)
	}
}

// initializeCollector builds the request chain, the API client and the collector.
// Requests flow through the breaker first, then instrumentation, then the authenticated HTTP client.
func initializeCollector(
	ctx context.Context,
	cfg *config.Config,
	registry *prometheus.Registry,
	log *logger.Logger,
) (*collector.CentralCollector, *central.CircuitBreakerRequester, error) {
	inventory := &config.Inventory{}
	if cfg.InventoryPath != "" {
		loaded, err := config.LoadInventory(cfg.InventoryPath)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to load inventory: %w", err)
		}
		inventory = loaded
	} else {
		log.Warn("No inventory configured; only exporter health metrics will be reported")
	}

	exporterMetrics, err := metrics.NewExporterMetrics(registry, version)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to register exporter metrics: %w", err)
	}

	requestTimeout := time.Duration(cfg.RequestTimeout) * time.Second
	clientCfg := cfg.ClientConfig()

	httpRequester, err := auth.NewCloudRequester(ctx, clientCfg, requestTimeout)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create API requester: %w", err)
	}

	breakerCfg := central.DefaultCircuitBreakerConfig()
	breakerCfg.MaxConsecutiveFailures = uint32(cfg.BreakerFailures)
	breakerCfg.OnStateChange = func(from, to central.CircuitBreakerState) {
		exporterMetrics.SetCircuitBreakerState(int(to))
		log.Warn("Circuit breaker state changed", "from", from.String(), "to", to.String())
	}
	requester := central.NewRequesterWithCircuitBreaker(
		central.NewInstrumentedRequester(httpRequester, exporterMetrics),
		breakerCfg,
	)

	client, err := central.NewClient(clientCfg, requester,
		central.WithLogger(log),
		central.WithDeviceHTTPClient(auth.NewDeviceHTTPClient(cfg.VerifyTLS, requestTimeout)),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create API client: %w", err)
	}

	log.Info("Inventory loaded",
		"access_points", len(inventory.AccessPoints),
		"devices", len(inventory.Devices),
		"switches", len(inventory.Switches))

	scrapeTimeout := time.Duration(cfg.ScrapeTimeout) * time.Second
	centralCollector := collector.NewCentralCollector(client, inventory, metrics.NewMetricDescriptors(), scrapeTimeout, log).
		WithExporterMetrics(exporterMetrics)

	return centralCollector, requester, nil
}
