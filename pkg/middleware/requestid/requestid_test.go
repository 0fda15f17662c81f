package requestid

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func newRouter(seen *string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(Middleware())
	router.GET("/ping", func(c *gin.Context) {
		*seen = FromContext(c.Request.Context())
		c.Status(http.StatusOK)
	})
	return router
}

func TestMiddlewareReusesWellFormedHeader(t *testing.T) {
	var seen string
	router := newRouter(&seen)
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(headerKey, "run-42.a")
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, "run-42.a", w.Header().Get(headerKey))
	assert.Equal(t, "run-42.a", seen)
}

func TestMiddlewareReplacesUnsafeHeader(t *testing.T) {
	var seen string
	router := newRouter(&seen)
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(headerKey, "bad id\nInjected: 1")
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	generated := w.Header().Get(headerKey)
	assert.NotEqual(t, "bad id\nInjected: 1", generated)
	assert.Len(t, generated, 36)
	assert.Equal(t, generated, seen)
}
