package tracing

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	obscontext "github.com/smallbiznis/sorteos/internal/observability/context"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func recordSpans(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	previous := otel.GetTracerProvider()
	otel.SetTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder)))
	t.Cleanup(func() { otel.SetTracerProvider(previous) })
	return recorder
}

func attrMap(kvs []attribute.KeyValue) map[string]string {
	out := make(map[string]string, len(kvs))
	for _, kv := range kvs {
		out[string(kv.Key)] = kv.Value.Emit()
	}
	return out
}

func TestGinMiddlewareTagsRouteResources(t *testing.T) {
	gin.SetMode(gin.TestMode)
	recorder := recordSpans(t)

	router := gin.New()
	router.Use(GinMiddleware(MiddlewareConfig{SkipPaths: []string{"/health"}}))
	router.Use(func(c *gin.Context) {
		c.Request = c.Request.WithContext(obscontext.WithActor(c.Request.Context(), "user", "1"))
	})
	router.GET("/api/admin/raffles/:id/tickets", func(c *gin.Context) { c.Status(http.StatusOK) })
	router.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/admin/raffles/77/tickets", nil))

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "HTTP GET /api/admin/raffles/:id/tickets", spans[0].Name())

	attrs := attrMap(spans[0].Attributes())
	assert.Equal(t, "77", attrs["raffle.id"])
	assert.Equal(t, "/api/admin/raffles/:id/tickets", attrs["http.route"])
	assert.Equal(t, "200", attrs["http.status_code"])
	assert.Equal(t, "user", attrs["actor.type"])
	assert.Equal(t, codes.Unset, spans[0].Status().Code)
}

func TestGinMiddlewareScrubsServerErrors(t *testing.T) {
	gin.SetMode(gin.TestMode)
	recorder := recordSpans(t)

	router := gin.New()
	router.Use(GinMiddleware(MiddlewareConfig{}))
	router.POST("/api/payments/webhooks/:provider", func(c *gin.Context) {
		_ = c.Error(errors.New("notify ana@example.com failed"))
		c.Status(http.StatusInternalServerError)
	})

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/payments/webhooks/mercadopago", nil))

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status().Code)
	assert.Equal(t, "mercadopago", attrMap(spans[0].Attributes())["webhook.provider"])

	events := spans[0].Events()
	require.Len(t, events, 1)
	assert.Equal(t, "notify [email] failed", attrMap(events[0].Attributes)["exception.message"])
}

func TestRouteAttributes(t *testing.T) {
	params := gin.Params{{Key: "code", Value: "PESCA10"}}
	assert.Equal(t,
		[]attribute.KeyValue{attribute.String("promoter.code", "PESCA10")},
		routeAttributes("/api/promoters/:code", params))
	assert.Nil(t, routeAttributes("/api/raffles", nil))
}
