package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "agrohub"

type ServerMetrics struct {
	Requests  *prometheus.CounterVec
	LatencyMS *prometheus.HistogramVec

	CartMutations    *prometheus.CounterVec
	CheckoutSessions *prometheus.CounterVec
	RevenuePostings  *prometheus.CounterVec
	RevenuePosted    prometheus.Counter

	gatherer prometheus.Gatherer
}

// NewServerMetrics registers on reg. Tests pass a fresh prometheus.NewRegistry().
func NewServerMetrics(service string, reg *prometheus.Registry) *ServerMetrics {
	m := &ServerMetrics{
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: service,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests.",
		}, []string{"handler", "status"}),
		LatencyMS: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: service,
			Name:      "http_request_duration_ms",
			Help:      "HTTP request latency in milliseconds.",
			Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		}, []string{"handler"}),
		CartMutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: service,
			Name:      "cart_mutations_total",
			Help:      "Cart add/remove operations by outcome.",
		}, []string{"op", "outcome"}),
		CheckoutSessions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: service,
			Name:      "checkout_sessions_total",
			Help:      "Checkout session creations by outcome.",
		}, []string{"outcome"}),
		RevenuePostings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: service,
			Name:      "revenue_postings_total",
			Help:      "Profit ledger postings by result.",
		}, []string{"result"}),
		RevenuePosted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: service,
			Name:      "revenue_posted_total",
			Help:      "Revenue added to seller ledgers, local currency.",
		}),
		gatherer: reg,
	}

	reg.MustRegister(m.Requests, m.LatencyMS, m.CartMutations, m.CheckoutSessions, m.RevenuePostings, m.RevenuePosted)
	return m
}

func (m *ServerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

func (m *ServerMetrics) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			status := c.Response().Status
			if he, ok := err.(*echo.HTTPError); ok {
				status = he.Code
			} else if err != nil {
				status = http.StatusInternalServerError
			}
			handler := c.Path()
			if handler == "" {
				handler = "unmatched"
			}

			m.Requests.WithLabelValues(handler, strconv.Itoa(status)).Inc()
			m.LatencyMS.WithLabelValues(handler).Observe(float64(time.Since(start).Milliseconds()))
			return err
		}
	}
}

func (m *ServerMetrics) CartMutation(op string, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.CartMutations.WithLabelValues(op, outcome).Inc()
}

func (m *ServerMetrics) CheckoutSession(outcome string) {
	if m == nil {
		return
	}
	m.CheckoutSessions.WithLabelValues(outcome).Inc()
}

func (m *ServerMetrics) Postings(result string, n int, revenue float64) {
	if m == nil || n == 0 {
		return
	}
	m.RevenuePostings.WithLabelValues(result).Add(float64(n))
	if revenue > 0 {
		m.RevenuePosted.Add(revenue)
	}
}
