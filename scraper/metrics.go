package scraper

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles Prometheus collectors for the crawl and load.
type Metrics struct {
	Registry          *prometheus.Registry
	RequestsTotal     *prometheus.CounterVec
	RequestDuration   prometheus.Histogram
	ItemsScrapedTotal prometheus.Counter
	AnomaliesTotal    prometheus.Counter
	ErrorsTotal       *prometheus.CounterVec
	StopsTotal        *prometheus.CounterVec
	FallbackTotal     prometheus.Counter
	RetriesTotal      prometheus.Counter
	RowsLoadedTotal   prometheus.Counter
}

// NewMetrics constructs and registers all metrics on a dedicated registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	requests := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scraper_requests_total",
			Help: "Total page requests issued by the crawler, by outcome.",
		},
		[]string{"outcome"},
	)
	requestDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "scraper_request_duration_seconds",
			Help:    "HTTP request latency for page requests.",
			Buckets: prometheus.DefBuckets,
		},
	)
	itemsScraped := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "scraper_items_scraped_total",
			Help: "Total number of unique records kept by the crawler.",
		},
	)
	anomalies := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "scraper_parse_anomalies_total",
			Help: "Rows dropped because no usable title was found.",
		},
	)
	errorsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scraper_errors_total",
			Help: "Total number of fetch errors by type.",
		},
		[]string{"error_type"},
	)
	stops := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scraper_stops_total",
			Help: "Crawl terminations by stop reason.",
		},
		[]string{"reason"},
	)
	fallback := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "scraper_fallback_total",
			Help: "Crawls that substituted the synthetic fallback record set.",
		},
	)
	retries := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "scraper_retries_total",
			Help: "Total number of invocation retry attempts scheduled.",
		},
	)
	rowsLoaded := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "scraper_rows_loaded_total",
			Help: "Rows committed to the store.",
		},
	)

	registry.MustRegister(requests, requestDuration, itemsScraped, anomalies, errorsTotal, stops, fallback, retries, rowsLoaded)

	return &Metrics{
		Registry:          registry,
		RequestsTotal:     requests,
		RequestDuration:   requestDuration,
		ItemsScrapedTotal: itemsScraped,
		AnomaliesTotal:    anomalies,
		ErrorsTotal:       errorsTotal,
		StopsTotal:        stops,
		FallbackTotal:     fallback,
		RetriesTotal:      retries,
		RowsLoadedTotal:   rowsLoaded,
	}
}

// IncRequest increments the requests counter for an outcome label.
func (m *Metrics) IncRequest(outcome string) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(outcome).Inc()
}

// ObserveDuration records an HTTP request duration.
func (m *Metrics) ObserveDuration(d time.Duration) {
	if m == nil {
		return
	}
	m.RequestDuration.Observe(d.Seconds())
}

// IncItems increments the items scraped counter.
func (m *Metrics) IncItems() {
	if m == nil {
		return
	}
	m.ItemsScrapedTotal.Inc()
}

// IncAnomaly increments the parse anomaly counter.
func (m *Metrics) IncAnomaly() {
	if m == nil {
		return
	}
	m.AnomaliesTotal.Inc()
}

// IncError increments the errors counter for a type label.
func (m *Metrics) IncError(errorType string) {
	if m == nil {
		return
	}
	m.ErrorsTotal.WithLabelValues(errorType).Inc()
}

// IncStop records how a crawl ended.
func (m *Metrics) IncStop(reason string) {
	if m == nil {
		return
	}
	m.StopsTotal.WithLabelValues(reason).Inc()
}

// IncFallback increments the fallback counter.
func (m *Metrics) IncFallback() {
	if m == nil {
		return
	}
	m.FallbackTotal.Inc()
}

// IncRetries increments the retries counter.
func (m *Metrics) IncRetries() {
	if m == nil {
		return
	}
	m.RetriesTotal.Inc()
}

// AddLoaded adds n committed rows.
func (m *Metrics) AddLoaded(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.RowsLoadedTotal.Add(float64(n))
}
