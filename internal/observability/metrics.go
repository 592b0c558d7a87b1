package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics collects Prometheus metrics for the application.
type Metrics struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec

	ordersSubmitted     prometheus.Counter
	stockEntriesPosted  prometheus.Counter
	allocationConflicts prometheus.Counter
	creditDenials       prometheus.Counter
	jobsTotal           *prometheus.CounterVec
}

// NewMetrics initialises the registry and the base metrics.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "meridian_http_requests_total",
		Help: "HTTP requests by route and status code.",
	}, []string{"route", "code"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "meridian_http_request_duration_seconds",
		Help:    "HTTP request duration per route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
	ordersSubmitted := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "meridian_orders_submitted_total",
		Help: "Sales orders that passed submit checks.",
	})
	stockEntries := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "meridian_stock_ledger_entries_total",
		Help: "Stock ledger entries written.",
	})
	allocationConflicts := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "meridian_doc_number_conflicts_total",
		Help: "Document number allocations that hit a serialization conflict.",
	})
	creditDenials := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "meridian_credit_denials_total",
		Help: "Order submissions denied by the credit limit gate.",
	})
	jobs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "meridian_jobs_total",
		Help: "Background jobs by task type and outcome.",
	}, []string{"task", "outcome"})
	registry.MustRegister(requests, duration, ordersSubmitted, stockEntries, allocationConflicts, creditDenials, jobs)
	return &Metrics{
		registry:            registry,
		handler:             promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestsTotal:       requests,
		requestDuration:     duration,
		ordersSubmitted:     ordersSubmitted,
		stockEntriesPosted:  stockEntries,
		allocationConflicts: allocationConflicts,
		creditDenials:       creditDenials,
		jobsTotal:           jobs,
	}
}

// Handler returns the http.Handler for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Middleware records request metrics for every HTTP request.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(&recorder, r)
		route := routePattern(r)
		m.requestsTotal.WithLabelValues(route, strconv.Itoa(recorder.status)).Inc()
		m.requestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

// OrderSubmitted counts a successful submit.
func (m *Metrics) OrderSubmitted() {
	if m == nil {
		return
	}
	m.ordersSubmitted.Inc()
}

// StockMovementPosted counts ledger entries written by one posting.
func (m *Metrics) StockMovementPosted(entries int) {
	if m == nil {
		return
	}
	m.stockEntriesPosted.Add(float64(entries))
}

// AllocationConflict counts a document number allocation conflict.
func (m *Metrics) AllocationConflict() {
	if m == nil {
		return
	}
	m.allocationConflicts.Inc()
}

// CreditDenied counts a submit denied by the credit gate.
func (m *Metrics) CreditDenied() {
	if m == nil {
		return
	}
	m.creditDenials.Inc()
}

// JobProcessed counts a background task run with its outcome.
func (m *Metrics) JobProcessed(task, outcome string) {
	if m == nil {
		return
	}
	m.jobsTotal.WithLabelValues(task, outcome).Inc()
}

// Registerer exposes the registry for registering custom metrics.
func (m *Metrics) Registerer() prometheus.Registerer {
	if m == nil {
		return prometheus.DefaultRegisterer
	}
	return m.registry
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func routePattern(r *http.Request) string {
	if routeCtx := chi.RouteContext(r.Context()); routeCtx != nil {
		if pattern := routeCtx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unknown"
}
