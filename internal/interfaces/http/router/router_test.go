package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestRouter_Setup(t *testing.T) {
	t.Run("mounts registrars under the default version", func(t *testing.T) {
		engine := gin.New()
		r := NewRouter(engine)

		r.Register(RegistrarFunc(func(rg *gin.RouterGroup) {
			rg.GET("/stock-orders", func(c *gin.Context) {
				c.String(http.StatusOK, "orders")
			})
		}))
		r.Setup()

		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/stock-orders", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "orders", w.Body.String())
	})

	t.Run("honours the version option", func(t *testing.T) {
		engine := gin.New()
		r := NewRouter(engine, WithAPIVersion("v2"))

		r.Register(RegistrarFunc(func(rg *gin.RouterGroup) {
			rg.GET("/stock-orders", func(c *gin.Context) {
				c.Status(http.StatusOK)
			})
		}))
		r.Setup()

		old := httptest.NewRecorder()
		engine.ServeHTTP(old, httptest.NewRequest(http.MethodGet, "/api/v1/stock-orders", nil))
		assert.Equal(t, http.StatusNotFound, old.Code)

		current := httptest.NewRecorder()
		engine.ServeHTTP(current, httptest.NewRequest(http.MethodGet, "/api/v2/stock-orders", nil))
		assert.Equal(t, http.StatusOK, current.Code)
	})

	t.Run("chains multiple registrars onto one group", func(t *testing.T) {
		engine := gin.New()

		orders := RegistrarFunc(func(rg *gin.RouterGroup) {
			rg.GET("/orgs/:id/stock-orders", func(c *gin.Context) {
				c.String(http.StatusOK, "orders for "+c.Param("id"))
			})
		})
		connect := RegistrarFunc(func(rg *gin.RouterGroup) {
			rg.GET("/connect/vend/callback", func(c *gin.Context) {
				c.Status(http.StatusFound)
			})
		})

		group := NewRouter(engine).Register(orders).Register(connect).Setup()
		assert.Equal(t, "/api/v1", group.BasePath())

		w1 := httptest.NewRecorder()
		engine.ServeHTTP(w1, httptest.NewRequest(http.MethodGet, "/api/v1/orgs/7/stock-orders", nil))
		assert.Equal(t, http.StatusOK, w1.Code)
		assert.Equal(t, "orders for 7", w1.Body.String())

		w2 := httptest.NewRecorder()
		engine.ServeHTTP(w2, httptest.NewRequest(http.MethodGet, "/api/v1/connect/vend/callback", nil))
		assert.Equal(t, http.StatusFound, w2.Code)
	})

	t.Run("routes outside the group are untouched", func(t *testing.T) {
		engine := gin.New()
		engine.GET("/health", func(c *gin.Context) {
			c.String(http.StatusOK, "ok")
		})

		NewRouter(engine).Register(RegistrarFunc(func(rg *gin.RouterGroup) {})).Setup()

		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	})
}
