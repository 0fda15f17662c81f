package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/academic-timetable-api/internal/dto"
	"github.com/noah-isme/academic-timetable-api/internal/models"
	"github.com/noah-isme/academic-timetable-api/pkg/database"
	appErrors "github.com/noah-isme/academic-timetable-api/pkg/errors"
	applog "github.com/noah-isme/academic-timetable-api/pkg/logger"
	"github.com/noah-isme/academic-timetable-api/pkg/middleware/requestid"
)

type bookingStore interface {
	List(ctx context.Context, exec sqlx.ExtContext, filter models.BookingFilter) ([]models.Booking, error)
	FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Booking, error)
	Create(ctx context.Context, exec sqlx.ExtContext, booking *models.Booking) error
	Update(ctx context.Context, exec sqlx.ExtContext, booking *models.Booking) error
	Delete(ctx context.Context, exec sqlx.ExtContext, id string) error
	LockKeys(ctx context.Context, exec sqlx.ExtContext, keys ...string) error
}

type roomCatalog interface {
	ListActiveRooms(ctx context.Context, kind models.RoomKind, minCapacity int) ([]models.Room, error)
}

type roomLocker interface {
	LockByName(ctx context.Context, exec sqlx.ExtContext, name string) (*models.Room, error)
}

type timeSlotCatalog interface {
	ListTimeSlots(ctx context.Context, day string, durationHours int) ([]models.TimeSlot, error)
}

type enrollmentCatalog interface {
	CountUniqueStudents(ctx context.Context, semesterID, unitID string) (int, error)
	CountStudentsByClass(ctx context.Context, semesterID, unitID, classID string) (int, error)
}

type assignmentCatalog interface {
	ListByUnit(ctx context.Context, semesterID, unitID string) ([]models.UnitAssignment, error)
}

type bookingEventSink interface {
	Publish(event BookingEvent)
}

type schedulingObserver interface {
	ObserveScheduling(operation, outcome string, duration time.Duration)
	AddBulkItems(operation, bucket string, count int)
	RecordConflicts(stage string, conflicts []models.BookingConflict)
	RecordTxRetry(operation string)
}

type viewCache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// TimetableConfig tunes the timetable service.
type TimetableConfig struct {
	Constraints    models.ConstraintConfig
	TxRetries      int
	TxRetryBackoff time.Duration
	ViewTTL        time.Duration
}

// TimetableService runs conflict checks, venue allocation, slot search and booking writes.
type TimetableService struct {
	bookings    bookingStore
	rooms       roomCatalog
	roomLocks   roomLocker
	slots       timeSlotCatalog
	enrollments enrollmentCatalog
	assignments assignmentCatalog
	tx          database.TxBeginner
	events      bookingEventSink
	metrics     schedulingObserver
	cache       viewCache
	random      Randomizer
	validator   *validator.Validate
	logger      *zap.Logger
	cfg         TimetableConfig
}

// NewTimetableService wires the scheduling engine dependencies.
func NewTimetableService(
	bookings bookingStore,
	rooms roomCatalog,
	roomLocks roomLocker,
	slots timeSlotCatalog,
	enrollments enrollmentCatalog,
	assignments assignmentCatalog,
	tx database.TxBeginner,
	events bookingEventSink,
	metrics schedulingObserver,
	cache viewCache,
	random Randomizer,
	validate *validator.Validate,
	logger *zap.Logger,
	cfg TimetableConfig,
) *TimetableService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if random == nil {
		random = NewRandomizer(0)
	}
	if cfg.TxRetries <= 0 {
		cfg.TxRetries = 3
	}
	if cfg.TxRetryBackoff <= 0 {
		cfg.TxRetryBackoff = 50 * time.Millisecond
	}
	cfg.Constraints = cfg.Constraints.Normalize()
	return &TimetableService{
		bookings:    bookings,
		rooms:       rooms,
		roomLocks:   roomLocks,
		slots:       slots,
		enrollments: enrollments,
		assignments: assignments,
		tx:          tx,
		events:      events,
		metrics:     metrics,
		cache:       cache,
		random:      random,
		validator:   validate,
		logger:      logger,
		cfg:         cfg,
	}
}

// Constraints returns the immutable constraint configuration in effect.
func (s *TimetableService) Constraints() models.ConstraintConfig {
	return s.cfg.Constraints
}

// CheckConflicts reports every rule the candidate booking would violate.
func (s *TimetableService) CheckConflicts(ctx context.Context, req dto.CheckConflictsRequest) (*dto.ConflictResult, error) {
	started := time.Now()
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid conflict check payload")
	}
	candidate, err := candidateFromCheck(req)
	if err != nil {
		return nil, err
	}
	start, end, err := candidate.Window()
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}

	ledger, err := s.loadLedger(ctx, nil, dayFilter(candidate))
	if err != nil {
		return nil, err
	}
	var room *models.Room
	if candidate.IsPhysical() && candidate.Venue != "" {
		rooms, err := s.rooms.ListActiveRooms(ctx, models.RoomKindFor(candidate.Kind), 0)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load rooms")
		}
		room = findRoom(rooms, candidate.Venue)
	}

	result := checkCandidate(ledger, candidate, start, end, room, s.cfg.Constraints, req.ExcludeBookingID)
	s.observe("check_conflicts", outcomeOf(result.OK), started)
	s.recordConflicts("check", result.Conflicts)
	return &result, nil
}

// AllocateVenue finds the smallest room with enough remaining capacity for the window.
func (s *TimetableService) AllocateVenue(ctx context.Context, req dto.AllocateVenueRequest) (*dto.VenueResult, error) {
	started := time.Now()
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid venue allocation payload")
	}
	kind := kindOrDefault(req.Kind)
	day, date, err := resolveDay(kind, req.Day, req.Date)
	if err != nil {
		return nil, err
	}
	start, end, err := models.ParseWindow(req.StartTime, req.EndTime)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	mode := models.TeachingMode(req.PreferredMode)
	if mode == models.TeachingModeOnline {
		result := allocateFromRooms(nil, nil, venueQuery{Mode: mode})
		s.observe("allocate_venue", "online", started)
		return &result, nil
	}

	probe := models.Booking{Kind: kind, Day: day, Date: date, SemesterID: req.SemesterID}
	ledger, err := s.loadLedger(ctx, nil, dayFilter(probe))
	if err != nil {
		return nil, err
	}
	rooms, err := s.rooms.ListActiveRooms(ctx, models.RoomKindFor(kind), req.Headcount)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load rooms")
	}
	result := allocateFromRooms(rooms, ledger, venueQuery{
		DayKey:    probe.DayKey(),
		Start:     start,
		End:       end,
		Headcount: req.Headcount,
		Mode:      mode,
		ExcludeID: req.ExcludeBookingID,
		Allowed:   req.Rooms,
	})
	s.observe("allocate_venue", outcomeOf(result.OK), started)
	return &result, nil
}

// FindAssignment searches the time-slot catalogue for a feasible day and window.
func (s *TimetableService) FindAssignment(ctx context.Context, req dto.FindAssignmentRequest) (*dto.AssignmentResult, error) {
	started := time.Now()
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid assignment payload")
	}
	day, err := normalizeOptionalWeekday(req.Day)
	if err != nil {
		return nil, err
	}
	ctxData, err := s.loadClassContext(ctx, day)
	if err != nil {
		return nil, err
	}
	var room *models.Room
	if req.Venue != "" && !models.IsRemoteVenue(req.Venue) {
		room = findRoom(ctxData.rooms, req.Venue)
	}
	result := searchSlot(ctxData.slots, ctxData.ledger, room, s.cfg.Constraints, s.random, slotQuery{
		Lecturer:      req.Lecturer,
		DurationHours: req.DurationHours,
		Mode:          ResolveTeachingMode(req.DurationHours, req.PreferredMode, s.cfg.Constraints),
		GroupID:       req.GroupID,
		Day:           day,
		Venue:         req.Venue,
		Headcount:     req.Headcount,
	})
	s.observe("find_assignment", outcomeOf(result.OK), started)
	return &result, nil
}

// ScheduleClassSession searches, allocates and persists one class session.
func (s *TimetableService) ScheduleClassSession(ctx context.Context, req dto.ScheduleClassSessionRequest) (*models.Booking, error) {
	started := time.Now()
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid class session payload")
	}
	day, err := normalizeOptionalWeekday(req.Day)
	if err != nil {
		return nil, err
	}
	headcount := req.Headcount
	if headcount == 0 {
		if headcount, err = s.classHeadcount(ctx, req.SemesterID, req.UnitID, req.ClassID); err != nil {
			return nil, err
		}
		if headcount == 0 {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("no students enrolled in class %s for unit %s", req.ClassID, req.UnitID))
		}
	}
	ctxData, err := s.loadClassContext(ctx, day)
	if err != nil {
		return nil, err
	}

	item := classItem{
		UnitID:        req.UnitID,
		ClassID:       req.ClassID,
		GroupID:       req.GroupID,
		Lecturer:      req.Lecturer,
		DurationHours: req.DurationHours,
		Headcount:     headcount,
		TeachingMode:  req.TeachingMode,
		Day:           day,
	}
	scope := bookingScope{SemesterID: req.SemesterID, ProgramID: req.ProgramID, SchoolID: req.SchoolID, Rooms: req.Rooms}

	booking, err := s.placeClassSession(ctx, ctxData, item, scope, func(booking *models.Booking) error {
		return s.commitBooking(ctx, booking, "", "schedule_class_session", func(tx *sqlx.Tx) error {
			return s.bookings.Create(ctx, tx, booking)
		})
	})
	if err != nil {
		s.observe("schedule_class_session", outcomeOfErr(err), started)
		return nil, err
	}
	s.observe("schedule_class_session", "ok", started)
	s.publish(ctx, BookingEvent{Type: BookingEventCreated, Kind: booking.Kind, BookingIDs: []string{booking.ID}})
	s.log(ctx).Info("class session scheduled",
		zap.String("booking_id", booking.ID),
		zap.String("unit_id", booking.UnitID),
		zap.String("day", booking.Day),
		zap.String("venue", booking.Venue),
	)
	return booking, nil
}

// UpdateBooking applies field edits and re-validates against every other booking.
func (s *TimetableService) UpdateBooking(ctx context.Context, id string, req dto.UpdateBookingRequest) (*models.Booking, error) {
	started := time.Now()
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid booking update payload")
	}
	current, err := s.bookings.FindByID(ctx, nil, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "booking not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load booking")
	}

	updated, err := applyBookingUpdate(*current, req)
	if err != nil {
		return nil, err
	}
	if err := s.commitBooking(ctx, &updated, id, "update_booking", func(tx *sqlx.Tx) error {
		return s.bookings.Update(ctx, tx, &updated)
	}); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = appErrors.Clone(appErrors.ErrNotFound, "booking not found")
		}
		s.observe("update_booking", outcomeOfErr(err), started)
		return nil, err
	}
	s.observe("update_booking", "ok", started)
	s.publish(ctx, BookingEvent{Type: BookingEventUpdated, Kind: updated.Kind, BookingIDs: []string{updated.ID}})
	return &updated, nil
}

// DeleteBooking removes a booking without cascading.
func (s *TimetableService) DeleteBooking(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return appErrors.Clone(appErrors.ErrValidation, "booking id is required")
	}
	if err := s.bookings.Delete(ctx, nil, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "booking not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete booking")
	}
	s.publish(ctx, BookingEvent{Type: BookingEventDeleted, BookingIDs: []string{id}})
	return nil
}

// ListBookings returns bookings matching the query, served from cache when possible.
func (s *TimetableService) ListBookings(ctx context.Context, query dto.BookingQuery) ([]models.Booking, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid booking query")
	}
	filter := models.BookingFilter{
		Kind:       models.BookingKind(query.Kind),
		Day:        models.NormalizeWeekday(query.Day),
		Date:       query.Date,
		DateFrom:   query.DateFrom,
		DateTo:     query.DateTo,
		Venue:      query.Venue,
		Lecturer:   query.Lecturer,
		ClassID:    query.ClassID,
		GroupID:    query.GroupID,
		SemesterID: query.SemesterID,
		UnitID:     query.UnitID,
	}
	if query.Day != "" && filter.Day == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown weekday %q", query.Day))
	}

	key := bookingViewKey(filter)
	if s.cache != nil {
		var cached []models.Booking
		if hit, err := s.cache.Get(ctx, key, &cached); err == nil && hit {
			return cached, nil
		}
	}
	bookings, err := s.bookings.List(ctx, nil, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list bookings")
	}
	if bookings == nil {
		bookings = []models.Booking{}
	}
	if s.cache != nil {
		_ = s.cache.Set(ctx, key, bookings, s.cfg.ViewTTL)
	}
	return bookings, nil
}

type classContext struct {
	slots  []models.TimeSlot
	rooms  []models.Room
	ledger *occupancyLedger
}

func (s *TimetableService) loadClassContext(ctx context.Context, day string) (*classContext, error) {
	slots, err := s.slots.ListTimeSlots(ctx, day, 0)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load time slots")
	}
	rooms, err := s.rooms.ListActiveRooms(ctx, models.RoomKindClassroom, 0)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load rooms")
	}
	ledger, err := s.loadLedger(ctx, nil, models.BookingFilter{Kind: models.BookingKindClass})
	if err != nil {
		return nil, err
	}
	return &classContext{slots: slots, rooms: rooms, ledger: ledger}, nil
}

func (s *TimetableService) loadLedger(ctx context.Context, exec sqlx.ExtContext, filter models.BookingFilter) (*occupancyLedger, error) {
	bookings, err := s.bookings.List(ctx, exec, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load bookings")
	}
	ledger, err := newOccupancyLedger(bookings)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "stored booking has an invalid window")
	}
	return ledger, nil
}

func (s *TimetableService) classHeadcount(ctx context.Context, semesterID, unitID, classID string) (int, error) {
	if s.enrollments == nil {
		return 0, nil
	}
	count, err := s.enrollments.CountStudentsByClass(ctx, semesterID, unitID, classID)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count enrolled students")
	}
	return count, nil
}

type classItem struct {
	UnitID        string
	ClassID       string
	GroupID       string
	Lecturer      string
	DurationHours int
	Headcount     int
	TeachingMode  string
	Day           string
	Sessions      int
}

type bookingScope struct {
	SemesterID string
	ProgramID  string
	SchoolID   string
	Rooms      []string
}

// placeClassSession runs the bounded search-allocate-persist loop. Slots whose venue allocation
// or locked re-check fails are excluded from the next attempt.
func (s *TimetableService) placeClassSession(ctx context.Context, data *classContext, item classItem, scope bookingScope, persist func(*models.Booking) error) (*models.Booking, error) {
	cfg := s.cfg.Constraints
	mode := ResolveTeachingMode(item.DurationHours, item.TeachingMode, cfg)
	excluded := map[string]struct{}{}
	lastReason := ""

	for attempt := 1; attempt <= cfg.MaxAssignmentAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "scheduling cancelled")
		}
		assignment := searchSlot(data.slots, data.ledger, nil, cfg, s.random, slotQuery{
			Lecturer:      item.Lecturer,
			DurationHours: item.DurationHours,
			Mode:          mode,
			GroupID:       item.GroupID,
			Day:           item.Day,
			Headcount:     item.Headcount,
			excludeSlots:  excluded,
		})
		if !assignment.OK {
			if lastReason == "" {
				lastReason = assignment.Reason
			}
			break
		}
		slotKey := models.TimeSlot{Day: assignment.Day, StartTime: assignment.StartTime, EndTime: assignment.EndTime}.Key()
		start, end, _ := models.ParseWindow(assignment.StartTime, assignment.EndTime)

		venue := allocateFromRooms(data.rooms, data.ledger, venueQuery{
			DayKey:    assignment.Day,
			Start:     start,
			End:       end,
			Headcount: item.Headcount,
			Mode:      assignment.TeachingMode,
			Allowed:   scope.Rooms,
		})
		if !venue.OK {
			lastReason = fmt.Sprintf("%s on %s %s-%s", venue.Reason, assignment.Day, assignment.StartTime, assignment.EndTime)
			excluded[slotKey] = struct{}{}
			continue
		}

		booking := newClassBooking(item, scope, assignment, venue)
		if err := persist(booking); err != nil {
			var conflict *models.BookingConflictError
			if errors.As(err, &conflict) {
				lastReason = conflict.Error()
				excluded[slotKey] = struct{}{}
				s.log(ctx).Warn("slot lost to a concurrent booking, retrying",
					zap.String("slot", slotKey), zap.Int("attempt", attempt), zap.Strings("reasons", conflict.Reasons))
				continue
			}
			return nil, err
		}
		if err := data.ledger.add(*booking); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to track booking")
		}
		return booking, nil
	}

	detail := &models.CapacityExhaustedError{
		Message:       "no room and slot combination satisfies the session",
		Reason:        lastReason,
		Lecturer:      item.Lecturer,
		DurationHours: item.DurationHours,
		Headcount:     item.Headcount,
		Day:           item.Day,
		Attempts:      cfg.MaxAssignmentAttempts,
	}
	return nil, capacityError(detail)
}

func newClassBooking(item classItem, scope bookingScope, assignment dto.AssignmentResult, venue dto.VenueResult) *models.Booking {
	mode := assignment.TeachingMode
	// a physical request can still land in an online catalogue room; the booking follows the venue
	if models.IsRemoteVenue(venue.Venue) {
		mode = models.TeachingModeOnline
	}
	booking := &models.Booking{
		ID:           uuid.NewString(),
		Kind:         models.BookingKindClass,
		UnitID:       item.UnitID,
		ClassID:      item.ClassID,
		SemesterID:   scope.SemesterID,
		ProgramID:    scope.ProgramID,
		SchoolID:     scope.SchoolID,
		Day:          assignment.Day,
		StartTime:    assignment.StartTime,
		EndTime:      assignment.EndTime,
		Venue:        venue.Venue,
		Location:     venue.Location,
		TeachingMode: &mode,
		Headcount:    item.Headcount,
		Lecturer:     item.Lecturer,
	}
	if item.GroupID != "" {
		group := item.GroupID
		booking.GroupID = &group
	}
	return booking
}

// commitBooking writes a booking under advisory locks on its room, lecturer and group for the day,
// re-running the conflict check against rows read inside the transaction.
func (s *TimetableService) commitBooking(ctx context.Context, booking *models.Booking, excludeID, operation string, write func(tx *sqlx.Tx) error) error {
	if s.tx == nil {
		return appErrors.Clone(appErrors.ErrInternal, "transaction provider missing")
	}
	start, end, err := booking.Window()
	if err != nil {
		return appErrors.Clone(appErrors.ErrValidation, err.Error())
	}

	err = database.WithTx(ctx, s.tx, nil, s.retryPolicy(operation), func(tx *sqlx.Tx) error {
		if err := s.lockAndRecheck(ctx, tx, *booking, start, end, excludeID); err != nil {
			return err
		}
		return write(tx)
	})
	if err == nil {
		return nil
	}
	var appErr *appErrors.Error
	if errors.As(err, &appErr) || errors.Is(err, sql.ErrNoRows) {
		return err
	}
	s.log(ctx).Error("booking transaction failed", zap.String("operation", operation), zap.Error(err))
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist booking")
}

// lockAndRecheck takes the advisory locks for the booking, re-reads its day inside the
// transaction and fails with a conflict error when the booking no longer fits.
func (s *TimetableService) lockAndRecheck(ctx context.Context, tx *sqlx.Tx, booking models.Booking, start, end int, excludeID string) error {
	if err := s.bookings.LockKeys(ctx, tx, bookingLockKeys(booking)...); err != nil {
		return err
	}
	room, err := s.lockRoom(ctx, tx, booking)
	if err != nil {
		return err
	}
	ledger, err := s.loadLedger(ctx, tx, dayFilter(booking))
	if err != nil {
		return err
	}
	if result := checkCandidate(ledger, booking, start, end, room, s.cfg.Constraints, excludeID); !result.OK {
		s.recordConflicts("recheck", result.Conflicts)
		return conflictError(result)
	}
	return nil
}

func (s *TimetableService) lockRoom(ctx context.Context, exec sqlx.ExtContext, booking models.Booking) (*models.Room, error) {
	if !booking.IsPhysical() || booking.Venue == "" || s.roomLocks == nil {
		return nil, nil
	}
	room, err := s.roomLocks.LockByName(ctx, exec, booking.Venue)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("lock room %s: %w", booking.Venue, err)
	}
	return room, nil
}

func (s *TimetableService) retryPolicy(operation string) database.RetryPolicy {
	return database.RetryPolicy{
		Attempts: s.cfg.TxRetries,
		Backoff:  s.cfg.TxRetryBackoff,
		OnRetry: func(attempt int, err error) {
			s.logger.Warn("retrying scheduling transaction", zap.String("operation", operation), zap.Int("attempt", attempt), zap.Error(err))
			if s.metrics != nil {
				s.metrics.RecordTxRetry(operation)
			}
		},
	}
}

func (s *TimetableService) publish(ctx context.Context, event BookingEvent) {
	if s.events == nil {
		return
	}
	if event.RequestID == "" {
		event.RequestID = requestid.FromContext(ctx)
	}
	s.events.Publish(event)
}

func (s *TimetableService) log(ctx context.Context) *zap.Logger {
	return applog.WithRequest(ctx, s.logger)
}

func (s *TimetableService) recordConflicts(stage string, conflicts []models.BookingConflict) {
	if s.metrics != nil && len(conflicts) > 0 {
		s.metrics.RecordConflicts(stage, conflicts)
	}
}

func (s *TimetableService) observe(operation, outcome string, started time.Time) {
	if s.metrics != nil {
		s.metrics.ObserveScheduling(operation, outcome, time.Since(started))
	}
}

func bookingLockKeys(booking models.Booking) []string {
	key := booking.DayKey()
	prefix := string(booking.Kind)
	keys := []string{}
	if booking.IsPhysical() && booking.Venue != "" {
		keys = append(keys, fmt.Sprintf("%s:room:%s:%s", prefix, strings.ToLower(booking.Venue), key))
	}
	if booking.Lecturer != "" {
		keys = append(keys, fmt.Sprintf("%s:lecturer:%s:%s", prefix, strings.ToLower(strings.TrimSpace(booking.Lecturer)), key))
	}
	if group := booking.Group(); group != "" {
		keys = append(keys, fmt.Sprintf("%s:group:%s:%s", prefix, group, key))
	}
	if booking.Kind == models.BookingKindExam {
		for _, classID := range booking.Classes() {
			keys = append(keys, fmt.Sprintf("%s:class:%s:%s", prefix, classID, key))
		}
	}
	sort.Strings(keys)
	return keys
}

// dayFilter selects the bookings a candidate competes with. Lecturers and rooms are shared by
// every semester, so the ledger is never narrowed to the candidate's semester.
func dayFilter(booking models.Booking) models.BookingFilter {
	filter := models.BookingFilter{Kind: kindOrDefault(booking.Kind)}
	if booking.Date != nil && *booking.Date != "" {
		filter.Date = *booking.Date
	} else {
		filter.Day = booking.Day
	}
	return filter
}

func bookingViewKey(filter models.BookingFilter) string {
	return fmt.Sprintf("timetable:bookings:%s|%s|%s|%s|%s|%s|%s|%s|%s|%s|%s",
		filter.Kind, filter.Day, filter.Date, filter.DateFrom, filter.DateTo, filter.Venue,
		strings.ToLower(filter.Lecturer), filter.ClassID, filter.GroupID, filter.SemesterID, filter.UnitID)
}

func candidateFromCheck(req dto.CheckConflictsRequest) (models.Booking, error) {
	kind := kindOrDefault(req.Kind)
	day, date, err := resolveDay(kind, req.Day, req.Date)
	if err != nil {
		return models.Booking{}, err
	}
	candidate := models.Booking{
		Kind:       kind,
		Day:        day,
		Date:       date,
		StartTime:  req.StartTime,
		EndTime:    req.EndTime,
		Venue:      req.Venue,
		Lecturer:   req.Lecturer,
		Headcount:  req.Headcount,
		ClassIDs:   req.ClassIDs,
		SemesterID: req.SemesterID,
	}
	if req.TeachingMode != "" {
		mode := models.TeachingMode(req.TeachingMode)
		candidate.TeachingMode = &mode
	}
	if req.GroupID != "" {
		group := req.GroupID
		candidate.GroupID = &group
	}
	if candidate.IsPhysical() && candidate.Venue != "" && candidate.Headcount < 1 {
		return models.Booking{}, appErrors.Clone(appErrors.ErrValidation, "headcount must be at least 1 for a physical venue")
	}
	return candidate, nil
}

func applyBookingUpdate(booking models.Booking, req dto.UpdateBookingRequest) (models.Booking, error) {
	if req.Date != nil {
		if *req.Date == "" {
			booking.Date = nil
		} else {
			date := *req.Date
			booking.Date = &date
		}
	}
	if req.Day != nil {
		booking.Day = *req.Day
	}
	day, date, err := resolveDay(booking.Kind, booking.Day, derefString(booking.Date))
	if err != nil {
		return booking, err
	}
	booking.Day, booking.Date = day, date

	if req.StartTime != nil {
		booking.StartTime = *req.StartTime
	}
	if req.EndTime != nil {
		booking.EndTime = *req.EndTime
	}
	if _, _, err := booking.Window(); err != nil {
		return booking, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	if req.Headcount != nil {
		booking.Headcount = *req.Headcount
	}
	if booking.Headcount < 1 {
		return booking, appErrors.Clone(appErrors.ErrValidation, "headcount must be at least 1")
	}
	if req.Lecturer != nil {
		booking.Lecturer = strings.TrimSpace(*req.Lecturer)
	}
	if req.GroupID != nil {
		if *req.GroupID == "" {
			booking.GroupID = nil
		} else {
			group := *req.GroupID
			booking.GroupID = &group
		}
	}
	if req.Location != nil {
		booking.Location = *req.Location
	}
	if req.Venue != nil {
		booking.Venue = strings.TrimSpace(*req.Venue)
	}
	if req.TeachingMode != nil && booking.Kind == models.BookingKindClass {
		mode := models.TeachingMode(*req.TeachingMode)
		booking.TeachingMode = &mode
	}

	switch {
	case booking.Kind == models.BookingKindClass && booking.Mode() == models.TeachingModeOnline:
		booking.Venue, booking.Location = models.RemoteVenue, models.OnlineLocation
	case models.IsRemoteVenue(booking.Venue):
		if booking.Kind == models.BookingKindExam {
			return booking, appErrors.Clone(appErrors.ErrValidation, "exam sittings require a physical venue")
		}
		mode := models.TeachingModeOnline
		booking.TeachingMode = &mode
		booking.Location = models.OnlineLocation
	case booking.Venue == "":
		return booking, appErrors.Clone(appErrors.ErrValidation, "physical bookings require a venue")
	}
	return booking, nil
}

// resolveDay normalises the day fields. Dated bookings derive their weekday from the date.
func resolveDay(kind models.BookingKind, day, date string) (string, *string, error) {
	if date != "" {
		parsed, err := models.ParseDate(date)
		if err != nil {
			return "", nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
		}
		formatted := parsed.Format(models.DateLayout)
		return parsed.Weekday().String(), &formatted, nil
	}
	if kind == models.BookingKindExam {
		return "", nil, appErrors.Clone(appErrors.ErrValidation, "exam bookings require a date")
	}
	name := models.NormalizeWeekday(day)
	if name == "" {
		return "", nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown weekday %q", day))
	}
	return name, nil, nil
}

func normalizeOptionalWeekday(day string) (string, error) {
	if strings.TrimSpace(day) == "" {
		return "", nil
	}
	name := models.NormalizeWeekday(day)
	if name == "" {
		return "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown weekday %q", day))
	}
	return name, nil
}

func kindOrDefault(kind models.BookingKind) models.BookingKind {
	if kind == "" {
		return models.BookingKindClass
	}
	return kind
}

func derefString(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}

func conflictError(result dto.ConflictResult) error {
	detail := &models.BookingConflictError{
		Message:   "booking conflicts with the timetable",
		Reasons:   result.Reasons,
		Conflicts: result.Conflicts,
	}
	return appErrors.WithDetails(appErrors.Wrap(detail, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, detail.Error()), detail)
}

func capacityError(detail *models.CapacityExhaustedError) error {
	return appErrors.WithDetails(appErrors.Wrap(detail, appErrors.ErrCapacityExhausted.Code, appErrors.ErrCapacityExhausted.Status, detail.Error()), detail)
}

func outcomeOf(ok bool) string {
	if ok {
		return "ok"
	}
	return "rejected"
}

func outcomeOfErr(err error) string {
	switch {
	case errors.Is(err, appErrors.ErrConflict):
		return "conflict"
	case errors.Is(err, appErrors.ErrCapacityExhausted):
		return "capacity_exhausted"
	case errors.Is(err, appErrors.ErrValidation):
		return "invalid"
	default:
		return "error"
	}
}
