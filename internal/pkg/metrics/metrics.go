// Package metrics exposes Prometheus instruments for the check-in flow.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the application collectors. A nil *Metrics is a no-op.
type Metrics struct {
	gatherer        prometheus.Gatherer
	tokensIssued    prometheus.Counter
	redemptions     *prometheus.CounterVec
	tokensSwept     prometheus.Counter
	attendanceWrite *prometheus.CounterVec
	httpDuration    *prometheus.HistogramVec
}

// New registers the collectors on reg. Pass prometheus.NewRegistry() in tests.
func New(reg *prometheus.Registry) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		gatherer: reg,
		tokensIssued: f.NewCounter(prometheus.CounterOpts{
			Name: "attendance_qr_tokens_issued_total",
			Help: "QR check-in tokens issued.",
		}),
		redemptions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "attendance_qr_redemptions_total",
			Help: "QR redemption attempts by result.",
		}, []string{"result"}),
		tokensSwept: f.NewCounter(prometheus.CounterOpts{
			Name: "attendance_qr_tokens_swept_total",
			Help: "Expired QR tokens deactivated by sweeps.",
		}),
		attendanceWrite: f.NewCounterVec(prometheus.CounterOpts{
			Name: "attendance_records_written_total",
			Help: "Manual attendance writes by outcome.",
		}, []string{"outcome"}),
		httpDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "attendance_http_request_duration_seconds",
			Help:    "HTTP request latency by route and status.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}
}

// NewDefault registers the collectors on a fresh registry that also carries
// the Go runtime and process collectors.
func NewDefault() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return New(reg)
}

func (m *Metrics) TokenIssued() {
	if m == nil {
		return
	}
	m.tokensIssued.Inc()
}

// Redemption counts one redemption attempt with its result label.
func (m *Metrics) Redemption(result string) {
	if m == nil {
		return
	}
	m.redemptions.WithLabelValues(result).Inc()
}

func (m *Metrics) TokensSwept(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.tokensSwept.Add(float64(n))
}

func (m *Metrics) AttendanceWritten(outcome string) {
	if m == nil {
		return
	}
	m.attendanceWrite.WithLabelValues(outcome).Inc()
}

// GinMiddleware observes request latency keyed by the matched route.
func (m *Metrics) GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if m == nil {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.httpDuration.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).
			Observe(time.Since(start).Seconds())
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
