package metrics_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"

	"gyanburu-backend/internal/metrics"
)

func TestMetricsExposed(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	m.Spin("pair")
	m.Spin("pair")
	m.RateLimited("spin")

	srv := metrics.NewServer("0", reg, func(context.Context) error { return nil })

	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	body := rec.Body.String()
	if !strings.Contains(body, `slots_spins_total{class="pair"} 2`) {
		t.Errorf("spin counter missing from output:\n%s", body)
	}
	if !strings.Contains(body, `slots_rate_limited_total{policy="spin"} 1`) {
		t.Errorf("rate limit counter missing from output:\n%s", body)
	}
}

func TestHealthz(t *testing.T) {
	reg := prometheus.NewRegistry()

	healthy := metrics.NewServer("0", reg, func(context.Context) error { return nil })
	rec := httptest.NewRecorder()
	healthy.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("Expected 200, got %d", rec.Code)
	}

	broken := metrics.NewServer("0", reg, func(context.Context) error { return errors.New("redis down") })
	rec = httptest.NewRecorder()
	broken.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected 503, got %d", rec.Code)
	}
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *metrics.Metrics
	m.Spin("lose")
	m.Payment("credited")

	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(m.Middleware())
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))
	if rec.Code != http.StatusNoContent {
		t.Errorf("Expected 204, got %d", rec.Code)
	}
}
