package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups the service counters. A nil *Metrics records nothing.
type Metrics struct {
	spins        *prometheus.CounterVec
	spinErrors   *prometheus.CounterVec
	scores       *prometheus.CounterVec
	payments     *prometheus.CounterVec
	rateLimited  *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		spins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "slots_spins_total",
			Help: "settled spins by outcome class",
		}, []string{"class"}),
		spinErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "slots_spin_rejections_total",
			Help: "spins rejected before commit",
		}, []string{"reason"}),
		scores: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "slots_score_submissions_total",
			Help: "score submissions by collection and result",
		}, []string{"collection", "result"}),
		payments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "slots_payment_events_total",
			Help: "payment webhook events by result",
		}, []string{"result"}),
		rateLimited: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "slots_rate_limited_total",
			Help: "requests refused by a rate limit policy",
		}, []string{"policy"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "slots_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method", "status"}),
	}
	reg.MustRegister(m.spins, m.spinErrors, m.scores, m.payments, m.rateLimited, m.httpDuration)
	return m
}

func (m *Metrics) Spin(class string) {
	if m != nil {
		m.spins.WithLabelValues(class).Inc()
	}
}

func (m *Metrics) SpinRejected(reason string) {
	if m != nil {
		m.spinErrors.WithLabelValues(reason).Inc()
	}
}

func (m *Metrics) Score(collection, result string) {
	if m != nil {
		m.scores.WithLabelValues(collection, result).Inc()
	}
}

func (m *Metrics) Payment(result string) {
	if m != nil {
		m.payments.WithLabelValues(result).Inc()
	}
}

func (m *Metrics) RateLimited(policy string) {
	if m != nil {
		m.rateLimited.WithLabelValues(policy).Inc()
	}
}

// Middleware observes request latency per matched route.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		if m == nil {
			return
		}
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.httpDuration.
			WithLabelValues(route, c.Request.Method, strconv.Itoa(c.Writer.Status())).
			Observe(time.Since(start).Seconds())
	}
}
