package scraper

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles Prometheus collectors for the crawler.
type Metrics struct {
	Registry               *prometheus.Registry
	RequestsTotal          *prometheus.CounterVec
	RequestDuration        prometheus.Histogram
	RecordsExtractedTotal  prometheus.Counter
	ItemsSkippedTotal      *prometheus.CounterVec
	ImagesDownloadedTotal  prometheus.Counter
	ErrorsTotal            *prometheus.CounterVec
	CategoriesCrawledTotal prometheus.Counter
}

// NewMetrics constructs and registers all metrics on a dedicated registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	requests := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crawler_requests_total",
			Help: "Total HTTP requests issued by the crawler, by phase.",
		},
		[]string{"phase"},
	)
	requestDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "crawler_request_duration_seconds",
			Help:    "HTTP request latency for crawler requests.",
			Buckets: prometheus.DefBuckets,
		},
	)
	records := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "crawler_records_extracted_total",
			Help: "Total number of records extracted from detail pages.",
		},
	)
	skipped := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crawler_items_skipped_total",
			Help: "Total number of catalog items dropped, by reason.",
		},
		[]string{"reason"},
	)
	images := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "crawler_images_downloaded_total",
			Help: "Total number of images written to disk.",
		},
	)
	errorsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crawler_errors_total",
			Help: "Total number of crawler errors by type.",
		},
		[]string{"error_type"},
	)
	categories := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "crawler_categories_crawled_total",
			Help: "Total number of categories crawled to completion.",
		},
	)

	registry.MustRegister(requests, requestDuration, records, skipped, images, errorsTotal, categories)

	return &Metrics{
		Registry:               registry,
		RequestsTotal:          requests,
		RequestDuration:        requestDuration,
		RecordsExtractedTotal:  records,
		ItemsSkippedTotal:      skipped,
		ImagesDownloadedTotal:  images,
		ErrorsTotal:            errorsTotal,
		CategoriesCrawledTotal: categories,
	}
}

// IncRequest increments the requests total counter.
func (m *Metrics) IncRequest(phase string) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(phase).Inc()
}

// ObserveDuration records an HTTP request duration.
func (m *Metrics) ObserveDuration(d time.Duration) {
	if m == nil {
		return
	}
	m.RequestDuration.Observe(d.Seconds())
}

// IncRecords increments the records extracted counter.
func (m *Metrics) IncRecords() {
	if m == nil {
		return
	}
	m.RecordsExtractedTotal.Inc()
}

// IncSkipped increments the skipped items counter for a reason label.
func (m *Metrics) IncSkipped(reason string) {
	if m == nil {
		return
	}
	m.ItemsSkippedTotal.WithLabelValues(reason).Inc()
}

// IncImages increments the images downloaded counter.
func (m *Metrics) IncImages() {
	if m == nil {
		return
	}
	m.ImagesDownloadedTotal.Inc()
}

// IncError increments the errors counter for a type label.
func (m *Metrics) IncError(errorType string) {
	if m == nil {
		return
	}
	m.ErrorsTotal.WithLabelValues(errorType).Inc()
}

// IncCategories increments the crawled categories counter.
func (m *Metrics) IncCategories() {
	if m == nil {
		return
	}
	m.CategoriesCrawledTotal.Inc()
}
