// Package metrics defines the Prometheus collectors exported on /metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Session cache lookup outcomes.
const (
	CacheHit   = "hit"
	CacheMiss  = "miss"
	CacheError = "error"
)

// Mail delivery outcomes.
const (
	DeliverySent    = "sent"
	DeliveryFailed  = "failed"
	DeliveryDropped = "dropped"
)

// HTTPRequests counts handled requests by method, route pattern and status.
var HTTPRequests = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "contacts_http_requests_total",
		Help: "Total number of HTTP requests handled",
	},
	[]string{"method", "route", "status"},
)

// HTTPDuration observes request latency by method and route pattern.
var HTTPDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "contacts_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"method", "route"},
)

// SessionCacheLookups counts session cache lookups by outcome.
var SessionCacheLookups = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "contacts_session_cache_total",
		Help: "Total number of session cache lookups",
	},
	[]string{"result"},
)

// MailDeliveries counts outbound emails by kind and outcome.
var MailDeliveries = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "contacts_mail_deliveries_total",
		Help: "Total number of outbound emails",
	},
	[]string{"kind", "status"},
)

// NewRegistry returns a registry holding the runtime collectors and every
// collector of this package.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	reg.MustRegister(HTTPRequests, HTTPDuration, SessionCacheLookups, MailDeliveries)
	return reg
}

// Handler serves the registry in the Prometheus exposition format.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
}

func RecordCacheLookup(result string) {
	SessionCacheLookups.WithLabelValues(result).Inc()
}

func RecordMailDelivery(kind, status string) {
	MailDeliveries.WithLabelValues(kind, status).Inc()
}

func RecordHTTPRequest(method, route string, status int, d time.Duration) {
	HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	HTTPDuration.WithLabelValues(method, route).Observe(d.Seconds())
}
