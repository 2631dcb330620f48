package extractor

import (
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"retail-extractor/internal/dataset"
	"retail-extractor/internal/types"
)

// Metrics holds the run counters on a private registry
type Metrics struct {
	registry *prometheus.Registry

	Documents     *prometheus.CounterVec
	Records       *prometheus.CounterVec
	FetchDuration *prometheus.HistogramVec
}

// NewMetrics creates and registers the extractor metrics
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		Documents: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "extractor_documents_total",
				Help: "Product pages processed, by result",
			},
			[]string{"site", "result"},
		),
		Records: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "extractor_records_total",
				Help: "Records offered to the collector, by dataset and outcome",
			},
			[]string{"site", "dataset", "outcome"},
		),
		FetchDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "extractor_fetch_duration_seconds",
				Help:    "Time spent fetching product pages, retries included",
				Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
			},
			[]string{"site"},
		),
	}
	m.registry.MustRegister(m.Documents, m.Records, m.FetchDuration)
	return m
}

func (m *Metrics) observeFetch(site string, started time.Time) {
	m.FetchDuration.WithLabelValues(site).Observe(time.Since(started).Seconds())
}

func (m *Metrics) document(site, result string) {
	m.Documents.WithLabelValues(site, result).Inc()
}

func (m *Metrics) collected(site string, res dataset.Result) {
	m.Records.WithLabelValues(site, "master", res.Product.String()).Inc()
	for outcome, n := range res.Specs {
		m.Records.WithLabelValues(site, "spec", outcome.String()).Add(float64(n))
	}
	m.Records.WithLabelValues(site, "media", res.Media.String()).Inc()
}

// Handler serves the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr in the background. The returned server can
// be closed when the run ends.
func (m *Metrics) Serve(addr string, logger types.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		logger.Infof("Serving metrics on %s/metrics", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Errorf("Metrics server stopped: %v", err)
		}
	}()
	return srv
}
