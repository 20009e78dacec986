package middleware_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/Vaibhavugile/doenew/common/middleware"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

func newEngine(mw ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(mw...)
	r.GET("/rentals/availability", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/missing", func(c *gin.Context) { c.Status(http.StatusNotFound) })
	return r
}

func TestRateLimitMiddleware_BlocksAfterBurst(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r := newEngine(middleware.RateLimitMiddleware(middleware.NewRateLimiter(ctx, rate.Every(time.Hour), 2, time.Minute)))

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/rentals/availability", nil))
		codes = append(codes, w.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestCORSMiddleware(t *testing.T) {
	r := newEngine(middleware.CORSMiddleware(middleware.ParseOrigins("https://shop.example.in/, http://localhost:3000")))

	req := httptest.NewRequest(http.MethodGet, "/rentals/availability", nil)
	req.Header.Set("Origin", "https://shop.example.in")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "https://shop.example.in", w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/rentals/availability", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestCORSMiddleware_Preflight(t *testing.T) {
	r := newEngine(middleware.CORSMiddleware([]string{"https://shop.example.in"}))

	req := httptest.NewRequest(http.MethodOptions, "/rentals/bookings", nil)
	req.Header.Set("Origin", "https://shop.example.in")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "Idempotency-Key")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Headers"), "Idempotency-Key")
}

func TestSecurityHeaders(t *testing.T) {
	r := newEngine(middleware.SecurityHeaders())
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/rentals/availability", nil))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
}

func TestTimeout_SetsDeadline(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware.Timeout(2 * time.Second))
	var hasDeadline bool
	r.GET("/x", func(c *gin.Context) {
		_, hasDeadline = c.Request.Context().Deadline()
		c.Status(http.StatusOK)
	})
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/x", nil))
	assert.True(t, hasDeadline)
}

type recordedMetric struct {
	name string
	dims map[string]string
}

type fakeMetrics struct {
	mu   sync.Mutex
	got  []recordedMetric
	done chan struct{}
}

func (f *fakeMetrics) IsEnabled() bool { return true }
func (f *fakeMetrics) RecordCount(_ context.Context, name string, dims map[string]string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.got = append(f.got, recordedMetric{name, dims})
	if name == "HTTP4xxErrors" {
		close(f.done)
	}
	return nil
}
func (f *fakeMetrics) RecordLatency(_ context.Context, name string, _ time.Duration, dims map[string]string) error {
	return nil
}

func TestMetricsMiddleware_RecordsRouteAndClientErrors(t *testing.T) {
	m := &fakeMetrics{done: make(chan struct{})}
	r := newEngine(middleware.MetricsMiddleware(m, "rental-service"), middleware.RequestLogger(zap.NewNop()))

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/missing", nil))

	select {
	case <-m.done:
	case <-time.After(2 * time.Second):
		t.Fatal("metrics not recorded")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	assert.Equal(t, "HTTPRequests", m.got[0].name)
	assert.Equal(t, "/missing", m.got[0].dims["Path"])
	assert.Equal(t, "4xx", m.got[0].dims["Status"])
}
