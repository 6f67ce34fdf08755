package monitoring

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Run results
const (
	ResultSuccess = "success"
	ResultPartial = "partial"
	ResultError   = "error"
)

// Email results
const (
	EmailSent    = "sent"
	EmailFailed  = "failed"
	EmailSkipped = "skipped"
)

// Metrics is the set of pipeline collectors, registered on its own registry.
type Metrics struct {
	registry    *prometheus.Registry
	Runs        *prometheus.CounterVec
	RunDuration prometheus.Histogram
	Emails      *prometheus.CounterVec
	Campaigns   prometheus.Gauge
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		Runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "adsreport_runs_total",
			Help: "Pipeline runs by result.",
		}, []string{"result"}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "adsreport_run_duration_seconds",
			Help:    "Wall time of a pipeline run.",
			Buckets: prometheus.DefBuckets,
		}),
		Emails: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "adsreport_emails_total",
			Help: "Report emails by result.",
		}, []string{"result"}),
		Campaigns: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "adsreport_campaigns",
			Help: "Campaigns in the last report.",
		}),
	}
	m.registry.MustRegister(
		m.Runs,
		m.RunDuration,
		m.Emails,
		m.Campaigns,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) ObserveRun(result string, seconds float64) {
	m.Runs.WithLabelValues(result).Inc()
	m.RunDuration.Observe(seconds)
}

func (m *Metrics) ObserveEmail(result string) {
	m.Emails.WithLabelValues(result).Inc()
}

func (m *Metrics) SetCampaigns(n int) {
	m.Campaigns.Set(float64(n))
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
