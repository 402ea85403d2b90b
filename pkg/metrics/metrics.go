// Package metrics exposes Prometheus instruments for the runtime.
//
// Metrics collected:
//   - hashpage_cache_requests_total: page cache lookups by result (hit, miss, evict)
//   - hashpage_fetches_total: fragment fetches by kind (page, widget) and status
//   - hashpage_fetch_duration_seconds: fragment fetch latency by kind
//   - hashpage_widget_loads_total: widget definitions loaded by result
//   - hashpage_widgets_mounted: currently mounted widget instances
//   - hashpage_navigations_total: navigations by kind (page, change)
//   - hashpage_navigation_duration_seconds: time from hash change to load
//   - hashpage_render_failures_total: inline error messages rendered by reason
//
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Config configures the instruments.
type Config struct {
	// Namespace is the metrics namespace (default: "hashpage").
	Namespace string

	// ConstLabels are added to every metric.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets (default: prometheus.DefBuckets).
	Buckets []float64

	// Registry receives the instruments (default: prometheus.DefaultRegisterer).
	Registry prometheus.Registerer
}

// Option configures Config.
type Option func(*Config)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) Option {
	return func(c *Config) { c.Namespace = namespace }
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) Option {
	return func(c *Config) { c.ConstLabels = labels }
}

// WithBuckets sets the histogram buckets.
func WithBuckets(buckets []float64) Option {
	return func(c *Config) { c.Buckets = buckets }
}

// WithRegistry sets the Prometheus registerer.
func WithRegistry(registry prometheus.Registerer) Option {
	return func(c *Config) { c.Registry = registry }
}

// Metrics holds the runtime instruments.
type Metrics struct {
	cacheRequests      *prometheus.CounterVec
	fetches            *prometheus.CounterVec
	fetchDuration      *prometheus.HistogramVec
	widgetLoads        *prometheus.CounterVec
	widgetsMounted     prometheus.Gauge
	navigations        *prometheus.CounterVec
	navigationDuration prometheus.Histogram
	renderFailures     *prometheus.CounterVec
}

// New registers the instruments. Registering twice on the same registry
// panics, so callers use one Metrics per registry.
func New(opts ...Option) *Metrics {
	cfg := Config{
		Namespace: "hashpage",
		Buckets:   prometheus.DefBuckets,
		Registry:  prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	factory := promauto.With(cfg.Registry)

	return &Metrics{
		cacheRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   cfg.Namespace,
			Name:        "cache_requests_total",
			Help:        "Page cache lookups by result",
			ConstLabels: cfg.ConstLabels,
		}, []string{"result"}),

		fetches: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   cfg.Namespace,
			Name:        "fetches_total",
			Help:        "Fragment fetches by kind and status",
			ConstLabels: cfg.ConstLabels,
		}, []string{"kind", "status"}),

		fetchDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   cfg.Namespace,
			Name:        "fetch_duration_seconds",
			Help:        "Fragment fetch duration in seconds",
			ConstLabels: cfg.ConstLabels,
			Buckets:     cfg.Buckets,
		}, []string{"kind"}),

		widgetLoads: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   cfg.Namespace,
			Name:        "widget_loads_total",
			Help:        "Widget definitions loaded by result",
			ConstLabels: cfg.ConstLabels,
		}, []string{"result"}),

		widgetsMounted: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   cfg.Namespace,
			Name:        "widgets_mounted",
			Help:        "Number of mounted widget instances",
			ConstLabels: cfg.ConstLabels,
		}),

		navigations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   cfg.Namespace,
			Name:        "navigations_total",
			Help:        "Navigations by kind",
			ConstLabels: cfg.ConstLabels,
		}, []string{"kind"}),

		navigationDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   cfg.Namespace,
			Name:        "navigation_duration_seconds",
			Help:        "Time from hash change to page load in seconds",
			ConstLabels: cfg.ConstLabels,
			Buckets:     cfg.Buckets,
		}),

		renderFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   cfg.Namespace,
			Name:        "render_failures_total",
			Help:        "Inline error messages rendered by reason",
			ConstLabels: cfg.ConstLabels,
		}, []string{"reason"}),
	}
}

// CacheHit records a usable cache entry.
func (m *Metrics) CacheHit() {
	if m == nil {
		return
	}
	m.cacheRequests.WithLabelValues("hit").Inc()
}

// CacheMiss records a lookup that found nothing.
func (m *Metrics) CacheMiss() {
	if m == nil {
		return
	}
	m.cacheRequests.WithLabelValues("miss").Inc()
}

// CacheEvict records a stale or corrupt entry removed on read.
func (m *Metrics) CacheEvict() {
	if m == nil {
		return
	}
	m.cacheRequests.WithLabelValues("evict").Inc()
}

// Fetch records one fetch of kind ("page" or "widget").
func (m *Metrics) Fetch(kind string, err error, d time.Duration) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.fetches.WithLabelValues(kind, status).Inc()
	m.fetchDuration.WithLabelValues(kind).Observe(d.Seconds())
}

// WidgetLoad records a widget definition outcome ("ok", "failed", "invalid").
func (m *Metrics) WidgetLoad(result string) {
	if m == nil {
		return
	}
	m.widgetLoads.WithLabelValues(result).Inc()
}

// WidgetMounted increments the mounted gauge.
func (m *Metrics) WidgetMounted() {
	if m == nil {
		return
	}
	m.widgetsMounted.Inc()
}

// WidgetDisposed decrements the mounted gauge.
func (m *Metrics) WidgetDisposed() {
	if m == nil {
		return
	}
	m.widgetsMounted.Dec()
}

// Navigation records a navigation of kind ("page" or "change").
func (m *Metrics) Navigation(kind string) {
	if m == nil {
		return
	}
	m.navigations.WithLabelValues(kind).Inc()
}

// ObserveNavigation records the time a page navigation took to load.
func (m *Metrics) ObserveNavigation(d time.Duration) {
	if m == nil {
		return
	}
	m.navigationDuration.Observe(d.Seconds())
}

// RenderFailure records an inline error message ("not_found", "invalid",
// "widget_failed", "widget_invalid").
func (m *Metrics) RenderFailure(reason string) {
	if m == nil {
		return
	}
	m.renderFailures.WithLabelValues(reason).Inc()
}
