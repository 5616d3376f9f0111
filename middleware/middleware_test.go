package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"plant-disease-api/config"
	"plant-disease-api/metrics"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEngine(logger logrus.FieldLogger) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestLogger(logger), Metrics(), SetupCORS(config.CORSConfig{AllowedOrigins: "*"}))
	r.GET("/items/:id", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	r.GET("/broken", func(c *gin.Context) { c.Status(http.StatusInternalServerError) })
	return r
}

func TestRequestLoggerAssignsID(t *testing.T) {
	l, hook := test.NewNullLogger()
	r := newEngine(l)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/items/1", nil))

	require.Equal(t, http.StatusOK, w.Code)
	id := w.Header().Get(RequestIDHeader)
	assert.Len(t, id, 36)

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, id, entry.Data["request_id"])
	assert.Equal(t, http.StatusOK, entry.Data["status"])
	assert.Equal(t, logrus.InfoLevel, entry.Level)
}

func TestRequestLoggerKeepsCallerID(t *testing.T) {
	l, hook := test.NewNullLogger()
	r := newEngine(l)

	req := httptest.NewRequest(http.MethodGet, "/broken", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, "abc-123", w.Header().Get(RequestIDHeader))
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, logrus.ErrorLevel, hook.LastEntry().Level)
}

func TestMetricsUseRouteTemplate(t *testing.T) {
	l, _ := test.NewNullLogger()
	r := newEngine(l)

	counter := metrics.HTTPRequests.WithLabelValues(http.MethodGet, "/items/:id", "200")
	before := testutil.ToFloat64(counter)

	for _, path := range []string{"/items/1", "/items/2"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}
	assert.Equal(t, before+2, testutil.ToFloat64(counter))
}

func TestCORSAllowAll(t *testing.T) {
	l, _ := test.NewNullLogger()
	r := newEngine(l)

	req := httptest.NewRequest(http.MethodGet, "/items/1", nil)
	req.Header.Set("Origin", "http://example.com")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}
