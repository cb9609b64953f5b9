package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns a private registry so tests can build as many as they like.
// All recording methods are safe on a nil receiver.
type Metrics struct {
	registry *prometheus.Registry

	httpRequests     *prometheus.CounterVec
	httpDuration     *prometheus.HistogramVec
	otpIssued        *prometheus.CounterVec
	otpDispatch      *prometheus.CounterVec
	otpVerifications *prometheus.CounterVec
	itemCancellation prometheus.Counter
	checkoutSessions *prometheus.CounterVec
	tablesSettled    *prometheus.CounterVec
}

func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "table_order_http_requests_total",
				Help: "HTTP requests by route and status code",
			},
			[]string{"method", "route", "status"},
		),
		httpDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "table_order_http_request_duration_seconds",
				Help:    "HTTP request latency",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		otpIssued: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "table_order_otp_issued_total",
				Help: "OTP codes issued by flow",
			},
			[]string{"flow"},
		),
		otpDispatch: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "table_order_otp_dispatch_total",
				Help: "OTP deliveries by channel and outcome",
			},
			[]string{"channel", "outcome"},
		),
		otpVerifications: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "table_order_otp_verifications_total",
				Help: "OTP verification attempts by outcome",
			},
			[]string{"outcome"},
		),
		itemCancellation: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "table_order_item_cancellations_total",
				Help: "Order items cancelled",
			},
		),
		checkoutSessions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "table_order_checkout_sessions_total",
				Help: "Hosted checkout sessions requested by outcome",
			},
			[]string{"outcome"},
		),
		tablesSettled: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "table_order_tables_settled_total",
				Help: "Table bills archived by source",
			},
			[]string{"source"},
		),
	}

	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequests,
		m.httpDuration,
		m.otpIssued,
		m.otpDispatch,
		m.otpVerifications,
		m.itemCancellation,
		m.checkoutSessions,
		m.tablesSettled,
	)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Middleware records request counts and latency keyed by the matched route.
func (m *Metrics) Middleware() gin.HandlerFunc {
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
		m.httpRequests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		m.httpDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}

func (m *Metrics) OTPIssued(flow string) {
	if m == nil {
		return
	}
	m.otpIssued.WithLabelValues(flow).Inc()
}

func (m *Metrics) OTPDispatched(channel string, err error) {
	if m == nil {
		return
	}
	outcome := "sent"
	if err != nil {
		outcome = "failed"
	}
	m.otpDispatch.WithLabelValues(channel, outcome).Inc()
}

func (m *Metrics) OTPVerified(ok bool) {
	if m == nil {
		return
	}
	outcome := "accepted"
	if !ok {
		outcome = "rejected"
	}
	m.otpVerifications.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ItemCancelled() {
	if m == nil {
		return
	}
	m.itemCancellation.Inc()
}

func (m *Metrics) CheckoutSession(err error) {
	if m == nil {
		return
	}
	outcome := "created"
	if err != nil {
		outcome = "failed"
	}
	m.checkoutSessions.WithLabelValues(outcome).Inc()
}

func (m *Metrics) TableSettled(source string) {
	if m == nil {
		return
	}
	m.tablesSettled.WithLabelValues(source).Inc()
}
