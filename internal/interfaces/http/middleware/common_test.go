package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newCommonRouter(mw gin.HandlerFunc) *gin.Engine {
	engine := gin.New()
	engine.Use(mw)
	engine.GET("/api/v1/orgs/1/stock-orders", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	return engine
}

func TestRequestID(t *testing.T) {
	t.Run("assigns a fresh id", func(t *testing.T) {
		engine := gin.New()
		engine.Use(RequestID())

		var inContext string
		engine.GET("/ping", func(c *gin.Context) {
			inContext = c.GetString("request_id")
			c.Status(http.StatusOK)
		})

		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))

		echoed := w.Header().Get(RequestIDHeader)
		require.NotEmpty(t, echoed)
		assert.Equal(t, echoed, inContext)
		_, err := uuid.Parse(echoed)
		assert.NoError(t, err, "generated ids are uuids")
	})

	t.Run("keeps the caller's id", func(t *testing.T) {
		engine := newCommonRouter(RequestID())

		req := httptest.NewRequest(http.MethodGet, "/api/v1/orgs/1/stock-orders", nil)
		req.Header.Set(RequestIDHeader, "upstream-77")
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, req)

		assert.Equal(t, "upstream-77", w.Header().Get(RequestIDHeader))
	})
}

func TestSecure(t *testing.T) {
	engine := newCommonRouter(Secure())

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/orgs/1/stock-orders", nil))

	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.Equal(t, "strict-origin-when-cross-origin", w.Header().Get("Referrer-Policy"))
	assert.Contains(t, w.Header().Get("Content-Security-Policy"), "default-src 'none'")
}

func TestCORSWithConfig(t *testing.T) {
	adminOrigin := "https://admin.example.com"
	cfg := CORSConfig{
		AllowOrigins:     []string{adminOrigin},
		ExposeHeaders:    []string{RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}

	t.Run("allowed origin gets the policy headers", func(t *testing.T) {
		engine := newCommonRouter(CORSWithConfig(cfg))

		req := httptest.NewRequest(http.MethodGet, "/api/v1/orgs/1/stock-orders", nil)
		req.Header.Set("Origin", adminOrigin)
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, adminOrigin, w.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))
		assert.Equal(t, RequestIDHeader, w.Header().Get("Access-Control-Expose-Headers"))
		assert.Equal(t, "43200", w.Header().Get("Access-Control-Max-Age"))
		assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), http.MethodDelete)
		assert.Contains(t, w.Header().Get("Access-Control-Allow-Headers"), "Authorization")
	})

	t.Run("unknown origin gets no policy headers", func(t *testing.T) {
		engine := newCommonRouter(CORSWithConfig(cfg))

		req := httptest.NewRequest(http.MethodGet, "/api/v1/orgs/1/stock-orders", nil)
		req.Header.Set("Origin", "https://evil.example.com")
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code, "the request itself still runs")
		assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("empty whitelist rejects every origin", func(t *testing.T) {
		engine := newCommonRouter(CORSWithConfig(CORSConfig{}))

		req := httptest.NewRequest(http.MethodGet, "/api/v1/orgs/1/stock-orders", nil)
		req.Header.Set("Origin", adminOrigin)
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, req)

		assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("wildcard allows any origin without credentials", func(t *testing.T) {
		engine := newCommonRouter(CORSWithConfig(CORSConfig{
			AllowOrigins:     []string{"*"},
			AllowCredentials: true,
		}))

		req := httptest.NewRequest(http.MethodGet, "/api/v1/orgs/1/stock-orders", nil)
		req.Header.Set("Origin", "https://anywhere.example.com")
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, req)

		assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
		assert.Empty(t, w.Header().Get("Access-Control-Allow-Credentials"),
			"credentials never pair with a wildcard origin")
	})

	t.Run("preflight short-circuits with 204", func(t *testing.T) {
		engine := newCommonRouter(CORSWithConfig(cfg))

		req := httptest.NewRequest(http.MethodOptions, "/api/v1/orgs/1/stock-orders", nil)
		req.Header.Set("Origin", adminOrigin)
		req.Header.Set("Access-Control-Request-Method", http.MethodPut)
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Equal(t, adminOrigin, w.Header().Get("Access-Control-Allow-Origin"))
		assert.Empty(t, w.Body.String())
	})

	t.Run("preflight from an unknown origin carries no policy", func(t *testing.T) {
		engine := newCommonRouter(CORSWithConfig(cfg))

		req := httptest.NewRequest(http.MethodOptions, "/api/v1/orgs/1/stock-orders", nil)
		req.Header.Set("Origin", "https://evil.example.com")
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
	})
}
