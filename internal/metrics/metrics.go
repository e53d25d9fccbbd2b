// Package metrics holds the Prometheus collectors for scans and venues.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "arbscan"

// Registry owns every collector the service exports. A nil *Registry is
// valid and records nothing, so callers never need to guard their calls.
type Registry struct {
	reg *prometheus.Registry

	Scans         *prometheus.CounterVec
	ScanDuration  *prometheus.HistogramVec
	Opportunities *prometheus.GaugeVec
	VenueErrors   *prometheus.CounterVec
	VenueMarkets  *prometheus.GaugeVec
	CacheRequests *prometheus.CounterVec
	Webhooks      *prometheus.CounterVec
	APIRequests   *prometheus.CounterVec
}

// New builds a Registry with Go runtime and process collectors attached.
func New() *Registry {
	r := &Registry{
		reg: prometheus.NewRegistry(),
		Scans: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scans_total",
			Help:      "Fresh scans computed, by kind and result.",
		}, []string{"kind", "result"}),
		ScanDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "scan_duration_seconds",
			Help:      "Wall time of a fresh scan including venue fetches.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20},
		}, []string{"kind"}),
		Opportunities: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "opportunities",
			Help:      "Opportunities or picks found by the latest scan.",
		}, []string{"kind"}),
		VenueErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "venue_errors_total",
			Help:      "Venue fetches that failed or were short-circuited.",
		}, []string{"venue"}),
		VenueMarkets: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "venue_markets",
			Help:      "Market records returned by the latest venue fetch.",
		}, []string{"venue"}),
		CacheRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scan_cache_requests_total",
			Help:      "Scan requests by whether they triggered a fresh computation.",
		}, []string{"kind", "outcome"}),
		Webhooks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "webhook_deliveries_total",
			Help:      "Successful webhook deliveries.",
		}, []string{"event"}),
		APIRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP API requests by route and status code.",
		}, []string{"route", "code"}),
	}
	r.reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.Scans, r.ScanDuration, r.Opportunities, r.VenueErrors,
		r.VenueMarkets, r.CacheRequests, r.Webhooks, r.APIRequests,
	)
	return r
}

// Gatherer exposes the underlying registry for tests and custom exporters.
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.reg
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}

// ObserveScan records one fresh scan.
func (r *Registry) ObserveScan(kind string, took time.Duration, found int, err error) {
	if r == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	r.Scans.WithLabelValues(kind, result).Inc()
	r.ScanDuration.WithLabelValues(kind).Observe(took.Seconds())
	if err == nil {
		r.Opportunities.WithLabelValues(kind).Set(float64(found))
	}
}

// ObserveVenue records the outcome of one venue fetch.
func (r *Registry) ObserveVenue(venue string, markets int, err error) {
	if r == nil {
		return
	}
	if err != nil {
		r.VenueErrors.WithLabelValues(venue).Inc()
		return
	}
	r.VenueMarkets.WithLabelValues(venue).Set(float64(markets))
}

// ObserveCache records whether a scan request was served without computing.
func (r *Registry) ObserveCache(kind string, computed bool) {
	if r == nil {
		return
	}
	outcome := "hit"
	if computed {
		outcome = "miss"
	}
	r.CacheRequests.WithLabelValues(kind, outcome).Inc()
}

// ObserveWebhooks adds n successful deliveries.
func (r *Registry) ObserveWebhooks(event string, n int) {
	if r == nil || n == 0 {
		return
	}
	r.Webhooks.WithLabelValues(event).Add(float64(n))
}

// ObserveRequest counts one HTTP API request.
func (r *Registry) ObserveRequest(route string, code int) {
	if r == nil {
		return
	}
	r.APIRequests.WithLabelValues(route, statusText(code)).Inc()
}

func statusText(code int) string {
	switch {
	case code >= 500:
		return "5xx"
	case code >= 400:
		return "4xx"
	case code >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
