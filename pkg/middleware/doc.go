// Package middleware provides net/http middleware for the hashpage server.
//
// # OpenTelemetry
//
// OpenTelemetry starts a server span per request, named after the matched chi
// route pattern when one is available:
//
//	r := chi.NewRouter()
//	r.Use(middleware.OpenTelemetry(
//	    middleware.WithTracerName("hashpage"),
//	    middleware.WithFilter(func(r *http.Request) bool {
//	        return r.URL.Path != "/metrics"
//	    }),
//	))
//
// The tracer comes from the global provider unless WithTracerProvider is set.
//
// # Prometheus
//
// Prometheus counts requests and observes their duration:
//
//   - hashpage_http_requests_total: requests by route, method and status code
//   - hashpage_http_request_duration_seconds: request duration by route
//   - hashpage_http_requests_in_flight: requests currently being served
//
// Expose them next to the router:
//
//	reg := prometheus.NewRegistry()
//	r.Use(middleware.Prometheus(middleware.WithRegistry(reg)))
//	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
package middleware
