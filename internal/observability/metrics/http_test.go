package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestHTTPMetricsGinMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	registry := prometheus.NewRegistry()
	m := newHTTPMetrics(registry, Config{ServiceName: "sorteos", Environment: "test"})

	router := gin.New()
	router.Use(m.GinMiddleware())
	router.GET("/api/raffles/:slug", func(c *gin.Context) { c.Status(http.StatusOK) })

	for i := 0; i < 2; i++ {
		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/raffles/pesca-2025", nil))
	}

	got := testutil.ToFloat64(m.requests.WithLabelValues("/api/raffles/:slug", http.MethodGet, "200"))
	if got != 2 {
		t.Fatalf("expected 2 requests, got %v", got)
	}
	if inflight := testutil.ToFloat64(m.inflight); inflight != 0 {
		t.Fatalf("expected no inflight requests, got %v", inflight)
	}
}
