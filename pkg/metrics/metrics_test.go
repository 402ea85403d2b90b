package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_Record(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(WithRegistry(reg), WithNamespace("test"))

	m.CacheHit()
	m.CacheHit()
	m.CacheMiss()
	m.CacheEvict()
	m.Fetch("page", nil, 10*time.Millisecond)
	m.Fetch("widget", errors.New("boom"), time.Millisecond)
	m.WidgetLoad("ok")
	m.WidgetMounted()
	m.WidgetMounted()
	m.WidgetDisposed()
	m.Navigation("page")
	m.ObserveNavigation(time.Second)
	m.RenderFailure("not_found")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.cacheRequests.WithLabelValues("hit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.cacheRequests.WithLabelValues("miss")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.cacheRequests.WithLabelValues("evict")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.fetches.WithLabelValues("page", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.fetches.WithLabelValues("widget", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.widgetsMounted))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.renderFailures.WithLabelValues("not_found")))

	n, err := testutil.GatherAndCount(reg, "test_navigation_duration_seconds")
	assert.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.CacheHit()
		m.CacheMiss()
		m.CacheEvict()
		m.Fetch("page", nil, 0)
		m.WidgetLoad("ok")
		m.WidgetMounted()
		m.WidgetDisposed()
		m.Navigation("change")
		m.ObserveNavigation(0)
		m.RenderFailure("invalid")
	})
}
