package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/noah-isme/academic-timetable-api/internal/models"
)

type observation struct {
	method string
	route  string
	status int
}

type requestObserverStub struct {
	seen []observation
}

func (s *requestObserverStub) ObserveHTTPRequest(method, path string, status int, _ time.Duration) {
	s.seen = append(s.seen, observation{method: method, route: path, status: status})
}

func TestMetricsLabelsByRoute(t *testing.T) {
	gin.SetMode(gin.TestMode)
	stub := &requestObserverStub{}
	router := gin.New()
	router.Use(Metrics(stub, "/metrics"))
	router.DELETE("/bookings/:id", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	router.GET("/metrics", func(c *gin.Context) { c.Status(http.StatusOK) })

	for _, req := range []*http.Request{
		httptest.NewRequest(http.MethodDelete, "/bookings/b-123", nil),
		httptest.NewRequest(http.MethodGet, "/bookings/b-123/extra", nil),
		httptest.NewRequest(http.MethodGet, "/metrics", nil),
	} {
		router.ServeHTTP(httptest.NewRecorder(), req)
	}

	require.Len(t, stub.seen, 2)
	assert.Equal(t, observation{http.MethodDelete, "/bookings/:id", http.StatusNoContent}, stub.seen[0])
	assert.Equal(t, observation{http.MethodGet, "unmatched", http.StatusNotFound}, stub.seen[1])
}

func TestAuditLogsSuccessfulMutations(t *testing.T) {
	gin.SetMode(gin.TestMode)
	core, logs := observer.New(zap.InfoLevel)
	router := gin.New()
	router.Use(WithResponseMeta())
	router.Use(func(c *gin.Context) {
		c.Set(ContextUserKey, &models.JWTClaims{UserID: "user-9", Role: models.RoleTimetabler})
		c.Next()
	})
	router.POST("/exams/bulk", Audit(zap.New(core), "exam.bulk_schedule"), func(c *gin.Context) {
		SetMeta(c, "run_id", "run-7")
		c.Status(http.StatusOK)
	})
	router.PUT("/bookings/:id", Audit(zap.New(core), "booking.update"), func(c *gin.Context) {
		c.Status(http.StatusConflict)
	})

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/exams/bulk", nil))
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPut, "/bookings/b1", nil))

	entries := logs.FilterMessage("timetable mutation").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "exam.bulk_schedule", fields["action"])
	assert.Equal(t, "user-9", fields["user_id"])
	assert.Equal(t, "TIMETABLER", fields["role"])
	assert.Equal(t, "run-7", fields["run_id"])
}

func TestExtractMetaStampsProcessingTime(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var meta map[string]interface{}
	router := gin.New()
	router.Use(WithResponseMeta())
	router.GET("/empty", func(c *gin.Context) {
		meta = ExtractMeta(c)
		c.Status(http.StatusOK)
	})
	router.GET("/bookings", func(c *gin.Context) {
		SetMeta(c, "total", 3)
		meta = ExtractMeta(c)
		c.Status(http.StatusOK)
	})

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/empty", nil))
	assert.Nil(t, meta)

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/bookings", nil))
	assert.Equal(t, 3, meta["total"])
	assert.Contains(t, meta, "processing_time_ms")
}
