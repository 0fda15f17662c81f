package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/academic-timetable-api/internal/dto"
	internalmiddleware "github.com/noah-isme/academic-timetable-api/internal/middleware"
	"github.com/noah-isme/academic-timetable-api/internal/models"
	appErrors "github.com/noah-isme/academic-timetable-api/pkg/errors"
)

type timetableEngineMock struct {
	checked   dto.CheckConflictsRequest
	query     dto.BookingQuery
	deletedID string
	err       error
}

func (m *timetableEngineMock) Constraints() models.ConstraintConfig {
	return models.DefaultConstraintConfig()
}

func (m *timetableEngineMock) CheckConflicts(_ context.Context, req dto.CheckConflictsRequest) (*dto.ConflictResult, error) {
	m.checked = req
	return &dto.ConflictResult{OK: false, Reasons: []string{"lecturer L1 is already booked"}}, m.err
}

func (m *timetableEngineMock) AllocateVenue(context.Context, dto.AllocateVenueRequest) (*dto.VenueResult, error) {
	return &dto.VenueResult{OK: true, Venue: "Room A"}, m.err
}

func (m *timetableEngineMock) FindAssignment(context.Context, dto.FindAssignmentRequest) (*dto.AssignmentResult, error) {
	return &dto.AssignmentResult{OK: true, Day: "Monday"}, m.err
}

func (m *timetableEngineMock) ScheduleClassSession(context.Context, dto.ScheduleClassSessionRequest) (*models.Booking, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &models.Booking{ID: "b1", Kind: models.BookingKindClass, Day: "Monday"}, nil
}

func (m *timetableEngineMock) BulkScheduleClasses(context.Context, dto.BulkClassScheduleRequest) (*dto.BulkScheduleResult, error) {
	return &dto.BulkScheduleResult{RunID: "run-1"}, m.err
}

func (m *timetableEngineMock) BulkScheduleExams(context.Context, dto.BulkScheduleRequest) (*dto.BulkScheduleResult, error) {
	return &dto.BulkScheduleResult{
		RunID:     "run-2",
		Scheduled: []dto.ScheduledRecord{{BookingID: "e1"}},
		Warnings:  []dto.BulkIssue{{UnitID: "u2", Reason: "no students enrolled"}},
	}, m.err
}

func (m *timetableEngineMock) ListBookings(_ context.Context, query dto.BookingQuery) ([]models.Booking, error) {
	m.query = query
	return []models.Booking{{ID: "b1"}, {ID: "b2"}}, m.err
}

func (m *timetableEngineMock) UpdateBooking(context.Context, string, dto.UpdateBookingRequest) (*models.Booking, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &models.Booking{ID: "b1"}, nil
}

func (m *timetableEngineMock) DeleteBooking(_ context.Context, id string) error {
	m.deletedID = id
	return m.err
}

func newTimetableRouter(engine *timetableEngineMock, role models.UserRole) *gin.Engine {
	gin.SetMode(gin.TestMode)
	handler := &TimetableHandler{service: engine}
	router := gin.New()
	router.Use(internalmiddleware.WithResponseMeta())
	router.Use(func(c *gin.Context) {
		if role != "" {
			c.Set(internalmiddleware.ContextUserKey, &models.JWTClaims{UserID: "user-1", Role: role})
		}
		c.Next()
	})
	group := router.Group("/api/v1/timetable")
	group.POST("/conflicts/check", handler.CheckConflicts)
	group.GET("/bookings", handler.ListBookings)
	writer := group.Group("", internalmiddleware.RequireTimetableWriter())
	writer.POST("/class-sessions", handler.ScheduleClassSession)
	writer.POST("/exams/bulk", handler.BulkScheduleExams)
	writer.DELETE("/bookings/:id", handler.DeleteBooking)
	return router
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestTimetableHandlerCheckConflictsReturnsResult(t *testing.T) {
	engine := &timetableEngineMock{}
	router := newTimetableRouter(engine, models.RoleLecturer)
	payload := []byte(`{"day":"Monday","start_time":"10:00","end_time":"12:00","lecturer":"L1"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/timetable/conflicts/check", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "L1", engine.checked.Lecturer)
	data := decodeEnvelope(t, w)["data"].(map[string]interface{})
	assert.Equal(t, false, data["ok"])
}

func TestTimetableHandlerCheckConflictsRejectsMalformedBody(t *testing.T) {
	router := newTimetableRouter(&timetableEngineMock{}, models.RoleLecturer)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/timetable/conflicts/check", bytes.NewReader([]byte(`{"day":`)))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTimetableHandlerScheduleRequiresWriterRole(t *testing.T) {
	payload := []byte(`{"unit_id":"u1","class_id":"c1","semester_id":"s1","lecturer":"L1","duration_hours":2}`)

	forbidden := newTimetableRouter(&timetableEngineMock{}, models.RoleStudent)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/timetable/class-sessions", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	forbidden.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)

	anonymous := newTimetableRouter(&timetableEngineMock{}, "")
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/api/v1/timetable/class-sessions", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	anonymous.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	allowed := newTimetableRouter(&timetableEngineMock{}, models.RoleTimetabler)
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/api/v1/timetable/class-sessions", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	allowed.ServeHTTP(w, req)
	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestTimetableHandlerScheduleMapsCapacityExhausted(t *testing.T) {
	detail := &models.CapacityExhaustedError{Message: "no room and slot combination satisfies the session", Reason: "insufficient capacity"}
	engine := &timetableEngineMock{err: appErrors.WithDetails(appErrors.Wrap(detail, appErrors.ErrCapacityExhausted.Code, appErrors.ErrCapacityExhausted.Status, detail.Error()), detail)}
	router := newTimetableRouter(engine, models.RoleAdmin)
	payload := []byte(`{"unit_id":"u1","class_id":"c1","semester_id":"s1","lecturer":"L1","duration_hours":2}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/timetable/class-sessions", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	body := decodeEnvelope(t, w)["error"].(map[string]interface{})
	assert.Equal(t, "CAPACITY_EXHAUSTED", body["code"])
	assert.NotNil(t, body["details"])
}

func TestTimetableHandlerBulkExamsReportsCounts(t *testing.T) {
	router := newTimetableRouter(&timetableEngineMock{}, models.RoleSuperAdmin)
	payload := []byte(`{"semester_id":"s1","items":[{"unit_id":"u1","class_id":"c1"}],"start_date":"2024-05-06","end_date":"2024-05-17","exam_duration_hours":2}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/timetable/exams/bulk", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	meta := decodeEnvelope(t, w)["meta"].(map[string]interface{})
	assert.Equal(t, "run-2", meta["run_id"])
	assert.EqualValues(t, 1, meta["scheduled"])
	assert.EqualValues(t, 1, meta["warnings"])
}

func TestTimetableHandlerListBookingsBindsQuery(t *testing.T) {
	engine := &timetableEngineMock{}
	router := newTimetableRouter(engine, models.RoleStudent)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/timetable/bookings?kind=exam&date_from=2024-05-01&class_id=c1", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "exam", engine.query.Kind)
	assert.Equal(t, "2024-05-01", engine.query.DateFrom)
	assert.Equal(t, "c1", engine.query.ClassID)
	meta := decodeEnvelope(t, w)["meta"].(map[string]interface{})
	assert.EqualValues(t, 2, meta["total"])
}

func TestTimetableHandlerDeleteBooking(t *testing.T) {
	engine := &timetableEngineMock{}
	router := newTimetableRouter(engine, models.RoleTimetabler)
	req := httptest.NewRequest(http.MethodDelete, "/api/v1/timetable/bookings/b7", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "b7", engine.deletedID)

	engine.err = appErrors.Clone(appErrors.ErrNotFound, "booking not found")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/api/v1/timetable/bookings/b7", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestMetricsHandlerReady(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewMetricsHandler(nil, map[string]ReadinessProbe{
		"postgres": func(context.Context) error { return nil },
		"redis":    func(context.Context) error { return errors.New("connection refused") },
	})
	router := gin.New()
	router.GET("/ready", handler.Ready)
	router.GET("/metrics/summary", handler.Summary)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ready", nil))
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	body := decodeEnvelope(t, w)
	checks := body["checks"].(map[string]interface{})
	assert.Equal(t, "ok", checks["postgres"])
	assert.Equal(t, "connection refused", checks["redis"])

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics/summary", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
