package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMiddleware_CountsRequests(t *testing.T) {
	t.Parallel()

	m := NewServerMetrics("test", prometheus.NewRegistry())

	e := echo.New()
	e.Use(m.Middleware())
	e.GET("/ok", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/bad", func(c echo.Context) error { return echo.NewHTTPError(http.StatusBadRequest, "bad") })

	for _, path := range []string{"/ok", "/ok", "/bad"} {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	}

	assert.InDelta(t, 2, testutil.ToFloat64(m.Requests.WithLabelValues("/ok", "200")), 1e-9)
	assert.InDelta(t, 1, testutil.ToFloat64(m.Requests.WithLabelValues("/bad", "400")), 1e-9)
}

func TestDomainCounters(t *testing.T) {
	t.Parallel()

	m := NewServerMetrics("test", prometheus.NewRegistry())
	m.CartMutation("add", nil)
	m.CartMutation("add", errors.New("x"))
	m.CheckoutSession("created")
	m.Postings("applied", 2, 75)
	m.Postings("skipped", 0, 0)

	assert.InDelta(t, 1, testutil.ToFloat64(m.CartMutations.WithLabelValues("add", "ok")), 1e-9)
	assert.InDelta(t, 1, testutil.ToFloat64(m.CartMutations.WithLabelValues("add", "error")), 1e-9)
	assert.InDelta(t, 1, testutil.ToFloat64(m.CheckoutSessions.WithLabelValues("created")), 1e-9)
	assert.InDelta(t, 2, testutil.ToFloat64(m.RevenuePostings.WithLabelValues("applied")), 1e-9)
	assert.InDelta(t, 75, testutil.ToFloat64(m.RevenuePosted), 1e-9)

	var nilMetrics *ServerMetrics
	nilMetrics.CartMutation("add", nil)
	nilMetrics.CheckoutSession("created")
	nilMetrics.Postings("applied", 1, 1)
}

func TestHandler_ExposesMetrics(t *testing.T) {
	t.Parallel()

	m := NewServerMetrics("test", prometheus.NewRegistry())
	m.CheckoutSession("created")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "agrohub_test_checkout_sessions_total")
}
