package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stockup/backend/internal/infrastructure/auth"
	"github.com/stockup/backend/internal/infrastructure/config"
)

func newJWTService(expiry time.Duration) *auth.JWTService {
	return auth.NewJWTService(config.JWTConfig{
		Secret:                "integration-test-secret-0123456789ab",
		AccessTokenExpiration: expiry,
		Issuer:                "stockup-backend",
	})
}

func issueToken(t *testing.T, svc *auth.JWTService) (string, auth.GenerateTokenInput) {
	t.Helper()
	input := auth.GenerateTokenInput{
		TenantID: uuid.New(),
		UserID:   uuid.New(),
		Username: "ops@example.com",
	}
	token, _, err := svc.GenerateToken(input)
	require.NoError(t, err)
	return token, input
}

func newAuthedRouter(mw gin.HandlerFunc, handler gin.HandlerFunc) *gin.Engine {
	engine := gin.New()
	engine.Use(mw)
	engine.GET("/api/v1/orgs/1/stock-orders", handler)
	return engine
}

func TestJWTAuthMiddleware(t *testing.T) {
	okHandler := func(c *gin.Context) { c.Status(http.StatusOK) }

	t.Run("valid token reaches the handler with claims", func(t *testing.T) {
		svc := newJWTService(15 * time.Minute)
		token, input := issueToken(t, svc)

		var claims *auth.Claims
		engine := newAuthedRouter(JWTAuthMiddleware(svc), func(c *gin.Context) {
			claims = GetJWTClaims(c)
			c.Status(http.StatusOK)
		})

		req := httptest.NewRequest(http.MethodGet, "/api/v1/orgs/1/stock-orders", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		require.NotNil(t, claims)
		assert.Equal(t, input.UserID.String(), claims.UserID)
		assert.Equal(t, input.TenantID.String(), claims.TenantID)
	})

	t.Run("missing header is rejected", func(t *testing.T) {
		engine := newAuthedRouter(JWTAuthMiddleware(newJWTService(15*time.Minute)), okHandler)

		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/orgs/1/stock-orders", nil))

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("non-bearer header is rejected", func(t *testing.T) {
		engine := newAuthedRouter(JWTAuthMiddleware(newJWTService(15*time.Minute)), okHandler)

		req := httptest.NewRequest(http.MethodGet, "/api/v1/orgs/1/stock-orders", nil)
		req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("empty bearer token is rejected", func(t *testing.T) {
		engine := newAuthedRouter(JWTAuthMiddleware(newJWTService(15*time.Minute)), okHandler)

		req := httptest.NewRequest(http.MethodGet, "/api/v1/orgs/1/stock-orders", nil)
		req.Header.Set("Authorization", "Bearer ")
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("garbage token reports ERR_TOKEN_INVALID", func(t *testing.T) {
		engine := newAuthedRouter(JWTAuthMiddleware(newJWTService(15*time.Minute)), okHandler)

		req := httptest.NewRequest(http.MethodGet, "/api/v1/orgs/1/stock-orders", nil)
		req.Header.Set("Authorization", "Bearer not-a-jwt")
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)

		var body struct {
			Success bool `json:"success"`
			Error   struct {
				Code string `json:"code"`
			} `json:"error"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.False(t, body.Success)
		assert.Equal(t, "ERR_TOKEN_INVALID", body.Error.Code)
	})

	t.Run("expired token reports ERR_TOKEN_EXPIRED", func(t *testing.T) {
		svc := newJWTService(-time.Hour)
		token, _ := issueToken(t, svc)

		engine := newAuthedRouter(JWTAuthMiddleware(svc), okHandler)

		req := httptest.NewRequest(http.MethodGet, "/api/v1/orgs/1/stock-orders", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)

		var body struct {
			Error struct {
				Code string `json:"code"`
			} `json:"error"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, "ERR_TOKEN_EXPIRED", body.Error.Code)
	})

	t.Run("default skip list leaves health and callbacks open", func(t *testing.T) {
		engine := gin.New()
		engine.Use(JWTAuthMiddleware(newJWTService(15 * time.Minute)))

		open := []string{
			"/health",
			"/healthz",
			"/ready",
			"/api/v1/health",
			"/api/v1/connect/msdynamics/callback",
			"/api/v1/connect/vend/callback",
		}
		for _, path := range open {
			engine.GET(path, okHandler)
		}

		for _, path := range open {
			w := httptest.NewRecorder()
			engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
			assert.Equal(t, http.StatusOK, w.Code, "path %s must stay open", path)
		}
	})

	t.Run("extra skip paths are honoured", func(t *testing.T) {
		cfg := DefaultJWTConfig(newJWTService(15 * time.Minute))
		cfg.SkipPaths = append(cfg.SkipPaths, "/metrics")

		engine := gin.New()
		engine.Use(JWTAuthMiddlewareWithConfig(cfg))
		engine.GET("/metrics", okHandler)

		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestClaimsAccessors(t *testing.T) {
	t.Run("return the authenticated identity", func(t *testing.T) {
		svc := newJWTService(15 * time.Minute)
		token, input := issueToken(t, svc)

		var userID, tenantID string
		engine := newAuthedRouter(JWTAuthMiddleware(svc), func(c *gin.Context) {
			userID = GetJWTUserID(c)
			tenantID = GetJWTTenantID(c)
			c.Status(http.StatusOK)
		})

		req := httptest.NewRequest(http.MethodGet, "/api/v1/orgs/1/stock-orders", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		engine.ServeHTTP(httptest.NewRecorder(), req)

		assert.Equal(t, input.UserID.String(), userID)
		assert.Equal(t, input.TenantID.String(), tenantID)
	})

	t.Run("are empty outside an authenticated request", func(t *testing.T) {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())

		assert.Nil(t, GetJWTClaims(c))
		assert.Empty(t, GetJWTUserID(c))
		assert.Empty(t, GetJWTTenantID(c))
	})
}
