// Package collector implements the Prometheus collector for managed devices.
//
// It provides:
//   - Prometheus collector interface implementation
//   - Bounded concurrent fan-out of client calls over the device inventory
//   - Graceful error handling with partial metric collection
//   - Exporter health metrics reporting
//
// The collector queries the management API on-demand when Prometheus scrapes
// the /metrics endpoint. A failing device never hides the others: its series
// is simply absent from that scrape and the error counter is incremented.
package collector

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/andreweacott/central-client/pkg/central"
	"github.com/andreweacott/central-client/pkg/config"
	"github.com/andreweacott/central-client/pkg/logger"
	"github.com/andreweacott/central-client/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"
)

// DefaultConcurrency bounds the number of in-flight API calls per scrape
const DefaultConcurrency = 8

// CentralCollector implements the prometheus.Collector interface
type CentralCollector struct {
	client            CentralAPI
	inventory         *config.Inventory
	metricDescriptors *metrics.MetricDescriptors
	scrapeTimeout     time.Duration
	concurrency       int
	log               *logger.Logger
	exporterMetrics   *metrics.ExporterMetrics // Optional: for internal health monitoring

	// serializes scrapes so Reset never races with another scrape's writes
	mu sync.Mutex
}

// NewCentralCollector creates a new device metrics collector
func NewCentralCollector(
	client CentralAPI,
	inventory *config.Inventory,
	metricDescriptors *metrics.MetricDescriptors,
	scrapeTimeout time.Duration,
	log *logger.Logger,
) *CentralCollector {
	if log == nil {
		noop, _ := logger.NewWithWriter("error", "text", io.Discard)
		log = noop
	}
	if inventory == nil {
		inventory = &config.Inventory{}
	}

	return &CentralCollector{
		client:            client,
		inventory:         inventory,
		metricDescriptors: metricDescriptors,
		scrapeTimeout:     scrapeTimeout,
		concurrency:       DefaultConcurrency,
		log:               log,
	}
}

// WithExporterMetrics adds exporter health metrics to the collector
func (cc *CentralCollector) WithExporterMetrics(em *metrics.ExporterMetrics) *CentralCollector {
	cc.exporterMetrics = em
	return cc
}

// WithConcurrency overrides the number of concurrent API calls
func (cc *CentralCollector) WithConcurrency(n int) *CentralCollector {
	if n > 0 {
		cc.concurrency = n
	}
	return cc
}

// Describe sends the super-set of all possible descriptors of metrics collected by this collector
func (cc *CentralCollector) Describe(ch chan<- *prometheus.Desc) {
	cc.metricDescriptors.Describe(ch)
}

// Collect is called by the Prometheus client when scraping /metrics
func (cc *CentralCollector) Collect(ch chan<- prometheus.Metric) {
	cc.mu.Lock()
	defer cc.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), cc.scrapeTimeout)
	defer cancel()

	start := time.Now()
	failures := cc.fetchAndCollectMetrics(ctx)

	if cc.exporterMetrics != nil {
		for i := 0; i < failures; i++ {
			cc.exporterMetrics.IncrementScrapeErrors()
		}
		cc.exporterMetrics.RecordScrapeDuration(time.Since(start).Seconds())
	}

	cc.metricDescriptors.Collect(ch)
}

// fetchAndCollectMetrics refreshes every series and returns the number of failed calls.
// Calls fan out concurrently; one failure never stops the others.
func (cc *CentralCollector) fetchAndCollectMetrics(ctx context.Context) int {
	cc.metricDescriptors.Reset()

	var failures atomic.Int32
	var g errgroup.Group
	g.SetLimit(cc.concurrency)

	for _, mac := range cc.inventory.AccessPoints {
		g.Go(func() error {
			if err := cc.collectAPStatus(ctx, mac); err != nil {
				failures.Add(1)
				cc.log.WithMAC(mac.String()).WithField("error", err.Error()).Warn("Failed to collect AP status")
			}
			return nil
		})
	}

	for _, serial := range cc.inventory.Devices {
		g.Go(func() error {
			if err := cc.collectTemplateAssignment(ctx, serial); err != nil {
				failures.Add(1)
				cc.log.WithSerial(serial.String()).WithField("error", err.Error()).Warn("Failed to collect template assignment")
			}
			return nil
		})
		g.Go(func() error {
			if err := cc.collectTemplateSync(ctx, serial); err != nil {
				failures.Add(1)
				cc.log.WithSerial(serial.String()).WithField("error", err.Error()).Warn("Failed to collect template sync status")
			}
			return nil
		})
	}

	for _, sw := range cc.inventory.Switches {
		for _, port := range sw.Ports {
			g.Go(func() error {
				if err := cc.collectLldpNeighbors(ctx, sw.Address, port); err != nil {
					failures.Add(1)
					cc.log.WithField("switch", sw.Address).WithField("port", port).WithField("error", err.Error()).Warn("Failed to collect LLDP neighbours")
				}
				return nil
			})
		}
	}

	_ = g.Wait()

	if n := failures.Load(); n > 0 {
		cc.log.Warn("Scrape completed with errors",
			"access_points", len(cc.inventory.AccessPoints),
			"devices", len(cc.inventory.Devices),
			"error_count", n)
	}
	return int(failures.Load())
}

func (cc *CentralCollector) collectAPStatus(ctx context.Context, mac central.MacAddress) error {
	status, err := cc.client.GetDeviceStatus(ctx, mac)
	if err != nil {
		var notFound *central.NotFoundError
		if errors.As(err, &notFound) {
			// An AP unknown to monitoring is reported as down rather than vanishing
			cc.metricDescriptors.APUp.WithLabelValues(mac.String()).Set(0)
		}
		return err
	}

	up := 0.0
	if status.State == central.DeviceStateUp {
		up = 1.0
	}
	cc.metricDescriptors.APUp.WithLabelValues(mac.String()).Set(up)
	return nil
}

func (cc *CentralCollector) collectTemplateAssignment(ctx context.Context, serial central.SerialNumber) error {
	template, err := cc.client.GetTemplateAssignment(ctx, serial)
	if err != nil {
		return err
	}
	cc.metricDescriptors.TemplateInfo.WithLabelValues(serial.String(), template).Set(1)
	return nil
}

func (cc *CentralCollector) collectTemplateSync(ctx context.Context, serial central.SerialNumber) error {
	status, err := cc.client.GetTemplateSyncStatus(ctx, serial)
	if err != nil {
		return err
	}

	inSync := 0.0
	if status.InSync {
		inSync = 1.0
	}
	cc.metricDescriptors.TemplateInSync.WithLabelValues(serial.String()).Set(inSync)
	return nil
}

func (cc *CentralCollector) collectLldpNeighbors(ctx context.Context, address, port string) error {
	neighbors, err := cc.client.GetLldpNeighbors(ctx, address, port)
	if err != nil {
		return err
	}
	cc.metricDescriptors.LldpNeighbors.WithLabelValues(address, port).Set(float64(len(neighbors)))
	return nil
}
