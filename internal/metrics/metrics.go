// Package metrics exposes engine and HTTP counters on a private
// prometheus registry.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/BruksfildServices01/clinic-crm/internal/models"
)

type Metrics struct {
	Registry *prometheus.Registry

	LeadEvents *prometheus.CounterVec
	Requests   *prometheus.HistogramVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		Registry: reg,
		LeadEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic_crm",
			Name:      "lead_events_total",
			Help:      "Committed lead timeline events by type.",
		}, []string{"type"}),
		Requests: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "clinic_crm",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route and status.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}
	reg.MustRegister(
		m.LeadEvents,
		m.Requests,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Deliver counts events; it is registered as a broadcast sink.
func (m *Metrics) Deliver(events []models.LeadEvent) error {
	for _, ev := range events {
		m.LeadEvents.WithLabelValues(ev.Type).Inc()
	}
	return nil
}

// Middleware observes every request under its route template so ids do
// not explode the label set.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.Requests.
			WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).
			Observe(time.Since(start).Seconds())
	}
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}
