package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func serve(engine *gin.Engine, method, path string, header http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	for k, v := range header {
		req.Header[k] = v
	}
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func limitedEngine(counter Counter, perMinute int) *gin.Engine {
	engine := gin.New()
	cfg := DefaultRateLimitConfig(perMinute)
	if counter != nil {
		cfg.Counter = counter
	}
	engine.POST("/contacts", RateLimitMiddleware(cfg), func(c *gin.Context) {
		c.Status(http.StatusCreated)
	})
	return engine
}

func TestRateLimitMemory(t *testing.T) {
	engine := limitedEngine(nil, 2)

	assert.Equal(t, http.StatusCreated, serve(engine, http.MethodPost, "/contacts", nil).Code)
	w := serve(engine, http.MethodPost, "/contacts", nil)
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))

	w = serve(engine, http.MethodPost, "/contacts", nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "60", w.Header().Get("Retry-After"))
}

func TestRateLimitDisabled(t *testing.T) {
	engine := limitedEngine(nil, 0)
	for i := 0; i < 5; i++ {
		assert.Equal(t, http.StatusCreated, serve(engine, http.MethodPost, "/contacts", nil).Code)
	}
}

func TestRateLimitRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	counter, err := NewRedisCounter(context.Background(), mr.Addr(), "", 0)
	require.NoError(t, err)
	t.Cleanup(func() { _ = counter.Close() })

	// Two instances sharing one Redis share the budget.
	a := limitedEngine(counter, 2)
	b := limitedEngine(counter, 2)
	assert.Equal(t, http.StatusCreated, serve(a, http.MethodPost, "/contacts", nil).Code)
	assert.Equal(t, http.StatusCreated, serve(b, http.MethodPost, "/contacts", nil).Code)
	assert.Equal(t, http.StatusTooManyRequests, serve(a, http.MethodPost, "/contacts", nil).Code)

	mr.FastForward(2 * time.Minute)
	assert.Equal(t, http.StatusCreated, serve(b, http.MethodPost, "/contacts", nil).Code)
}

func TestRateLimitRedisDownFailsOpen(t *testing.T) {
	mr := miniredis.RunT(t)
	counter, err := NewRedisCounter(context.Background(), mr.Addr(), "", 0)
	require.NoError(t, err)
	mr.Close()

	engine := limitedEngine(counter, 1)
	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusCreated, serve(engine, http.MethodPost, "/contacts", nil).Code)
	}
}

func TestNewRedisCounterUnreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_, err := NewRedisCounter(ctx, "127.0.0.1:1", "", 0)
	assert.Error(t, err)
}

func TestRequestID(t *testing.T) {
	engine := gin.New()
	engine.Use(RequestID())
	engine.GET("/id", func(c *gin.Context) {
		c.String(http.StatusOK, GetRequestID(c))
	})

	w := serve(engine, http.MethodGet, "/id", nil)
	_, err := uuid.Parse(w.Body.String())
	require.NoError(t, err)
	assert.Equal(t, w.Body.String(), w.Header().Get(RequestIDHeader))

	given := uuid.NewString()
	w = serve(engine, http.MethodGet, "/id", http.Header{RequestIDHeader: {given}})
	assert.Equal(t, given, w.Body.String())

	w = serve(engine, http.MethodGet, "/id", http.Header{RequestIDHeader: {"<script>"}})
	assert.NotEqual(t, "<script>", w.Body.String())
}

func TestRecovery(t *testing.T) {
	for _, debug := range []bool{false, true} {
		engine := gin.New()
		engine.Use(Recovery(debug))
		engine.GET("/panic", func(c *gin.Context) { panic("boom") })

		w := serve(engine, http.MethodGet, "/panic", nil)
		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Contains(t, w.Body.String(), "Internal server error")
		if debug {
			assert.Contains(t, w.Body.String(), "boom")
		} else {
			assert.NotContains(t, w.Body.String(), "boom")
		}
	}
}

func TestTimeout(t *testing.T) {
	engine := gin.New()
	engine.Use(Timeout(20 * time.Millisecond))
	engine.GET("/slow", func(c *gin.Context) {
		select {
		case <-c.Request.Context().Done():
			c.Status(http.StatusGatewayTimeout)
		case <-time.After(time.Second):
			c.Status(http.StatusOK)
		}
	})
	assert.Equal(t, http.StatusGatewayTimeout, serve(engine, http.MethodGet, "/slow", nil).Code)
}

func TestActionAndResource(t *testing.T) {
	assert.Equal(t, "CREATE", actionFromMethod(http.MethodPost))
	assert.Equal(t, "UPDATE", actionFromMethod(http.MethodPut))
	assert.Equal(t, "DELETE", actionFromMethod(http.MethodDelete))
	assert.Equal(t, "", actionFromMethod(http.MethodGet))

	assert.Equal(t, "registration", resourceFromPath("/api/events/:id/registrations"))
	assert.Equal(t, "contact", resourceFromPath("/api/contacts/:id/status"))
	assert.Equal(t, "event", resourceFromPath("/api/events/:id"))
	assert.Equal(t, "unknown", resourceFromPath("/api/health"))
}
