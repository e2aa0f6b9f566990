package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// MetricDescriptors holds the Prometheus metrics describing managed devices
type MetricDescriptors struct {
	// Access point reachability (label: mac)
	APUp *prometheus.GaugeVec

	// Template state per device (label: serial)
	TemplateInSync *prometheus.GaugeVec
	// Assigned template per device, value is always 1 (labels: serial, template)
	TemplateInfo *prometheus.GaugeVec

	// Neighbour count per switch port (labels: switch, port)
	LldpNeighbors *prometheus.GaugeVec
}

// NewMetricDescriptors creates the device metrics
func NewMetricDescriptors() *MetricDescriptors {
	return &MetricDescriptors{
		APUp: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "central_ap_up",
				Help: "Whether the access point is up (1 = up, 0 = down or unknown)",
			},
			[]string{"mac"},
		),

		TemplateInSync: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "central_device_template_in_sync",
				Help: "Template sync status reported by the device (1 = in sync, 0 = not)",
			},
			[]string{"serial"},
		),

		TemplateInfo: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "central_device_template_info",
				Help: "Configuration template assigned to the device (value is always 1)",
			},
			[]string{"serial", "template"},
		),

		LldpNeighbors: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "central_lldp_neighbors",
				Help: "Number of LLDP neighbours seen on a switch port",
			},
			[]string{"switch", "port"},
		),
	}
}

// Reset clears all label sets so devices dropped from the inventory disappear
func (md *MetricDescriptors) Reset() {
	md.APUp.Reset()
	md.TemplateInSync.Reset()
	md.TemplateInfo.Reset()
	md.LldpNeighbors.Reset()
}

// Describe sends all descriptors to ch
func (md *MetricDescriptors) Describe(ch chan<- *prometheus.Desc) {
	md.APUp.Describe(ch)
	md.TemplateInSync.Describe(ch)
	md.TemplateInfo.Describe(ch)
	md.LldpNeighbors.Describe(ch)
}

// Collect sends all current values to ch
func (md *MetricDescriptors) Collect(ch chan<- prometheus.Metric) {
	md.APUp.Collect(ch)
	md.TemplateInSync.Collect(ch)
	md.TemplateInfo.Collect(ch)
	md.LldpNeighbors.Collect(ch)
}
