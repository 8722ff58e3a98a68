// Package metrics exposes Prometheus counters for engine operations and HTTP
// requests on a private registry.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Recorder is what the service layer needs from metrics.
type Recorder interface {
	RecordOperation(operation, status string, cards int)
}

type Provider struct {
	registry     *prometheus.Registry
	operations   *prometheus.CounterVec
	cards        *prometheus.CounterVec
	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
}

func NewProvider(namespace string) *Provider {
	p := &Provider{
		registry: prometheus.NewRegistry(),
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_total",
			Help:      "Total number of card engine operations.",
		}, []string{"operation", "status"}),
		cards: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cards_total",
			Help:      "Card records produced per operation.",
		}, []string{"operation"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests.",
		}, []string{"method", "route", "code"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
	p.registry.MustRegister(p.operations, p.cards, p.httpRequests, p.httpDuration)
	return p
}

func (p *Provider) RecordOperation(operation, status string, cards int) {
	p.operations.WithLabelValues(operation, status).Inc()
	if cards > 0 {
		p.cards.WithLabelValues(operation).Add(float64(cards))
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (p *Provider) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}

func (p *Provider) Registry() *prometheus.Registry { return p.registry }

// Middleware counts requests by chi route pattern, so path parameters do not
// blow up label cardinality.
func (p *Provider) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil {
			if pattern := rc.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		p.httpRequests.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		p.httpDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

// Nop discards everything; used when metrics are disabled.
type Nop struct{}

func (Nop) RecordOperation(string, string, int) {}
