package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/academic-timetable-api/internal/dto"
	"github.com/noah-isme/academic-timetable-api/internal/middleware"
	"github.com/noah-isme/academic-timetable-api/internal/models"
	"github.com/noah-isme/academic-timetable-api/internal/service"
	appErrors "github.com/noah-isme/academic-timetable-api/pkg/errors"
	"github.com/noah-isme/academic-timetable-api/pkg/response"
)

const maxBulkItems = 2000

type timetableEngine interface {
	Constraints() models.ConstraintConfig
	CheckConflicts(ctx context.Context, req dto.CheckConflictsRequest) (*dto.ConflictResult, error)
	AllocateVenue(ctx context.Context, req dto.AllocateVenueRequest) (*dto.VenueResult, error)
	FindAssignment(ctx context.Context, req dto.FindAssignmentRequest) (*dto.AssignmentResult, error)
	ScheduleClassSession(ctx context.Context, req dto.ScheduleClassSessionRequest) (*models.Booking, error)
	BulkScheduleClasses(ctx context.Context, req dto.BulkClassScheduleRequest) (*dto.BulkScheduleResult, error)
	BulkScheduleExams(ctx context.Context, req dto.BulkScheduleRequest) (*dto.BulkScheduleResult, error)
	ListBookings(ctx context.Context, query dto.BookingQuery) ([]models.Booking, error)
	UpdateBooking(ctx context.Context, id string, req dto.UpdateBookingRequest) (*models.Booking, error)
	DeleteBooking(ctx context.Context, id string) error
}

// TimetableHandler exposes the scheduling engine over HTTP.
type TimetableHandler struct {
	service timetableEngine
}

// NewTimetableHandler constructs the handler.
func NewTimetableHandler(svc *service.TimetableService) *TimetableHandler {
	return &TimetableHandler{service: svc}
}

// Constraints godoc
// @Summary Scheduling constraints in effect
// @Tags Timetable
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /timetable/constraints [get]
func (h *TimetableHandler) Constraints(c *gin.Context) {
	response.JSON(c, http.StatusOK, h.service.Constraints())
}

// CheckConflicts godoc
// @Summary Check a candidate booking against the timetable
// @Description Reports every violated rule. A conflicting candidate is a 200 with ok=false.
// @Tags Timetable
// @Accept json
// @Produce json
// @Param payload body dto.CheckConflictsRequest true "Candidate booking"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /timetable/conflicts/check [post]
func (h *TimetableHandler) CheckConflicts(c *gin.Context) {
	var req dto.CheckConflictsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid conflict check payload"))
		return
	}
	result, err := h.service.CheckConflicts(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result)
}

// AllocateVenue godoc
// @Summary Pick the smallest room with enough remaining capacity
// @Tags Timetable
// @Accept json
// @Produce json
// @Param payload body dto.AllocateVenueRequest true "Venue request"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /timetable/venues/allocate [post]
func (h *TimetableHandler) AllocateVenue(c *gin.Context) {
	var req dto.AllocateVenueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid venue allocation payload"))
		return
	}
	result, err := h.service.AllocateVenue(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result)
}

// FindAssignment godoc
// @Summary Find a feasible day and window for a lecturer
// @Tags Timetable
// @Accept json
// @Produce json
// @Param payload body dto.FindAssignmentRequest true "Assignment search"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /timetable/assignments/find [post]
func (h *TimetableHandler) FindAssignment(c *gin.Context) {
	var req dto.FindAssignmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid assignment payload"))
		return
	}
	result, err := h.service.FindAssignment(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result)
}

// ScheduleClassSession godoc
// @Summary Book one class session into the weekly timetable
// @Tags Timetable
// @Accept json
// @Produce json
// @Param payload body dto.ScheduleClassSessionRequest true "Class session"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /timetable/class-sessions [post]
func (h *TimetableHandler) ScheduleClassSession(c *gin.Context) {
	var req dto.ScheduleClassSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid class session payload"))
		return
	}
	booking, err := h.service.ScheduleClassSession(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, booking)
}

// BulkScheduleClasses godoc
// @Summary Build the weekly class timetable for many items
// @Description Items that cannot be placed are reported as conflicts or warnings without failing the run.
// @Tags Timetable
// @Accept json
// @Produce json
// @Param payload body dto.BulkClassScheduleRequest true "Bulk class run"
// @Success 200 {object} response.Envelope
// @Router /timetable/class-sessions/bulk [post]
func (h *TimetableHandler) BulkScheduleClasses(c *gin.Context) {
	var req dto.BulkClassScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid bulk class payload"))
		return
	}
	if len(req.Items) > maxBulkItems {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "items exceeds supported limit"))
		return
	}
	result, err := h.service.BulkScheduleClasses(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	setBulkMeta(c, result)
	response.JSON(c, http.StatusOK, result, middleware.ExtractMeta(c))
}

// BulkScheduleExams godoc
// @Summary Build the exam timetable over a date range
// @Description One combined sitting per unit; classes keep gap_days between sittings.
// @Tags Timetable
// @Accept json
// @Produce json
// @Param payload body dto.BulkScheduleRequest true "Bulk exam run"
// @Success 200 {object} response.Envelope
// @Router /timetable/exams/bulk [post]
func (h *TimetableHandler) BulkScheduleExams(c *gin.Context) {
	var req dto.BulkScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid bulk exam payload"))
		return
	}
	if len(req.Items) > maxBulkItems {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "items exceeds supported limit"))
		return
	}
	result, err := h.service.BulkScheduleExams(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	setBulkMeta(c, result)
	response.JSON(c, http.StatusOK, result, middleware.ExtractMeta(c))
}

// ListBookings godoc
// @Summary List bookings
// @Tags Timetable
// @Produce json
// @Param kind query string false "class or exam"
// @Param day query string false "Weekday"
// @Param date query string false "YYYY-MM-DD"
// @Param date_from query string false "YYYY-MM-DD"
// @Param date_to query string false "YYYY-MM-DD"
// @Param venue query string false "Venue"
// @Param lecturer query string false "Lecturer"
// @Param class_id query string false "Class ID"
// @Param group_id query string false "Group ID"
// @Param semester_id query string false "Semester ID"
// @Param unit_id query string false "Unit ID"
// @Success 200 {object} response.Envelope
// @Router /timetable/bookings [get]
func (h *TimetableHandler) ListBookings(c *gin.Context) {
	var query dto.BookingQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid booking query"))
		return
	}
	bookings, err := h.service.ListBookings(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetMeta(c, "total", len(bookings))
	response.JSON(c, http.StatusOK, bookings, middleware.ExtractMeta(c))
}

// UpdateBooking godoc
// @Summary Edit a booking and re-validate it
// @Tags Timetable
// @Accept json
// @Produce json
// @Param id path string true "Booking ID"
// @Param payload body dto.UpdateBookingRequest true "Booking fields"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /timetable/bookings/{id} [put]
func (h *TimetableHandler) UpdateBooking(c *gin.Context) {
	var req dto.UpdateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid booking update payload"))
		return
	}
	booking, err := h.service.UpdateBooking(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, booking)
}

// DeleteBooking godoc
// @Summary Delete a booking
// @Tags Timetable
// @Param id path string true "Booking ID"
// @Success 204
// @Failure 404 {object} response.Envelope
// @Router /timetable/bookings/{id} [delete]
func (h *TimetableHandler) DeleteBooking(c *gin.Context) {
	if err := h.service.DeleteBooking(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

func setBulkMeta(c *gin.Context, result *dto.BulkScheduleResult) {
	middleware.SetMeta(c, "run_id", result.RunID)
	middleware.SetMeta(c, "scheduled", len(result.Scheduled))
	middleware.SetMeta(c, "conflicts", len(result.Conflicts))
	middleware.SetMeta(c, "warnings", len(result.Warnings))
}
