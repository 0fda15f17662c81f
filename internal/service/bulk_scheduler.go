package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/noah-isme/academic-timetable-api/internal/dto"
	"github.com/noah-isme/academic-timetable-api/internal/models"
	"github.com/noah-isme/academic-timetable-api/pkg/database"
	appErrors "github.com/noah-isme/academic-timetable-api/pkg/errors"
)

var defaultExamWindows = []string{"09:00", "14:00"}

const (
	reasonNoStudents        = "no students enrolled"
	reasonVenueCapacity     = "insufficient venue capacity"
	reasonClassConflict     = "a class in this unit is already sitting, or within the gap of another sitting, on every eligible day"
	reasonInvigilatorBusy   = "invigilator is busy in the window on every eligible day"
	reasonDailyCap          = "daily sitting limit reached on every eligible day"
	reasonNoEligibleDay     = "no eligible day in range"
	warningNoInvigilator    = "no lecturer assigned to the unit; sitting scheduled without an invigilator"
	bulkOperationExams      = "bulk_schedule_exams"
	bulkOperationClasses    = "bulk_schedule_classes"
	bulkExamLockKeyTemplate = "exam:bulk:%s"
)

type examUnit struct {
	UnitID   string
	ClassIDs []string
	Start    string
	End      string
}

type examPlan struct {
	from     time.Time
	to       time.Time
	gapDays  int
	maxDaily int
	excluded map[time.Weekday]struct{}
	rooms    []string
	scope    bookingScope
}

// BulkScheduleExams places one combined sitting per unit inside the date range, keeping every
// class at least GapDays apart between sittings. Conflicts and warnings do not abort the run.
func (s *TimetableService) BulkScheduleExams(ctx context.Context, req dto.BulkScheduleRequest) (*dto.BulkScheduleResult, error) {
	started := time.Now()
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid bulk exam payload")
	}
	plan, err := buildExamPlan(req)
	if err != nil {
		return nil, err
	}
	units, err := s.examUnits(req)
	if err != nil {
		return nil, err
	}
	rooms, err := s.rooms.ListActiveRooms(ctx, models.RoomKindExamroom, 0)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load exam rooms")
	}
	if s.tx == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "transaction provider missing")
	}

	var result *dto.BulkScheduleResult
	err = database.WithTx(ctx, s.tx, nil, s.retryPolicy(bulkOperationExams), func(tx *sqlx.Tx) error {
		result = &dto.BulkScheduleResult{RunID: uuid.NewString(), Scheduled: []dto.ScheduledRecord{}, Conflicts: []dto.BulkIssue{}, Warnings: []dto.BulkIssue{}}
		if err := s.bookings.LockKeys(ctx, tx, fmt.Sprintf(bulkExamLockKeyTemplate, req.SemesterID)); err != nil {
			return err
		}
		lookback := plan.from.AddDate(0, 0, -(plan.gapDays + 1))
		ledger, err := s.loadLedger(ctx, tx, models.BookingFilter{
			Kind:     models.BookingKindExam,
			DateFrom: lookback.Format(models.DateLayout),
			DateTo:   plan.to.AddDate(0, 0, plan.gapDays).Format(models.DateLayout),
		})
		if err != nil {
			return err
		}
		lastSitting := lastSittingByClass(ledger, plan.from)

		for _, unit := range units {
			if err := ctx.Err(); err != nil {
				return fmt.Errorf("bulk exam run interrupted: %w", err)
			}
			if err := s.scheduleExamUnit(ctx, tx, plan, unit, rooms, ledger, lastSitting, result); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		s.observe(bulkOperationExams, "error", started)
		var appErr *appErrors.Error
		if errors.As(err, &appErr) {
			return nil, err
		}
		s.log(ctx).Error("bulk exam run failed", zap.String("semester_id", req.SemesterID), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "bulk exam scheduling failed")
	}

	s.finishBulk(ctx, bulkOperationExams, models.BookingKindExam, result, started)
	return result, nil
}

func (s *TimetableService) scheduleExamUnit(
	ctx context.Context,
	tx *sqlx.Tx,
	plan examPlan,
	unit examUnit,
	rooms []models.Room,
	ledger *occupancyLedger,
	lastSitting map[string]time.Time,
	result *dto.BulkScheduleResult,
) error {
	headcount, err := s.unitHeadcount(ctx, plan.scope.SemesterID, unit.UnitID)
	if err != nil {
		return err
	}
	if headcount == 0 {
		result.Warnings = append(result.Warnings, dto.BulkIssue{UnitID: unit.UnitID, ClassIDs: unit.ClassIDs, Reason: reasonNoStudents})
		return nil
	}
	lecturer, err := s.unitInvigilator(ctx, plan.scope.SemesterID, unit.UnitID)
	if err != nil {
		return err
	}
	if lecturer == "" {
		result.Warnings = append(result.Warnings, dto.BulkIssue{UnitID: unit.UnitID, ClassIDs: unit.ClassIDs, Reason: warningNoInvigilator})
	}
	start, end, err := models.ParseWindow(unit.Start, unit.End)
	if err != nil {
		return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unit %s: %s", unit.UnitID, err.Error()))
	}

	earliest := plan.from
	for _, classID := range unit.ClassIDs {
		if last, ok := lastSitting[classID]; ok {
			if next := last.AddDate(0, 0, plan.gapDays+1); next.After(earliest) {
				earliest = next
			}
		}
	}

	var sawCapacity, sawClass, sawLecturer, sawDailyCap bool
	walked := 0
	for day := earliest; !day.After(plan.to) && walked < s.cfg.Constraints.MaxBulkDaysPerUnit; day = day.AddDate(0, 0, 1) {
		walked++
		if _, skip := plan.excluded[day.Weekday()]; skip {
			continue
		}
		key := day.Format(models.DateLayout)
		if plan.maxDaily > 0 && sittingsOnDate(ledger, key, plan.scope.SemesterID) >= plan.maxDaily {
			sawDailyCap = true
			continue
		}
		if len(ledger.classClashes(key, unit.ClassIDs, start, end, "")) > 0 || withinGap(ledger, day, unit.ClassIDs, plan.gapDays) {
			sawClass = true
			continue
		}
		if len(ledger.lecturerClashes(key, start, end, lecturer, "")) > 0 {
			sawLecturer = true
			continue
		}
		venue := allocateFromRooms(rooms, ledger, venueQuery{
			DayKey:    key,
			Start:     start,
			End:       end,
			Headcount: headcount,
			Mode:      models.TeachingModePhysical,
			Allowed:   plan.rooms,
		})
		if !venue.OK {
			sawCapacity = true
			if venue.Reason == reasonInsufficientCapacity {
				break
			}
			continue
		}

		booking := newExamBooking(plan.scope, unit, key, day.Weekday().String(), venue, lecturer, headcount)
		if err := s.lockAndRecheck(ctx, tx, *booking, start, end, ""); err != nil {
			var conflict *models.BookingConflictError
			if !errors.As(err, &conflict) {
				return err
			}
			s.log(ctx).Warn("exam day taken by a concurrent writer", zap.String("unit_id", unit.UnitID), zap.String("date", key))
			if err := s.refreshDay(ctx, tx, ledger, *booking); err != nil {
				return err
			}
			continue
		}
		if err := s.bookings.Create(ctx, tx, booking); err != nil {
			return err
		}
		if err := ledger.add(*booking); err != nil {
			return err
		}
		for _, classID := range unit.ClassIDs {
			lastSitting[classID] = day
		}
		result.Scheduled = append(result.Scheduled, scheduledRecord(*booking))
		return nil
	}

	reason := reasonNoEligibleDay
	switch {
	case sawCapacity:
		reason = fmt.Sprintf("%s for %d students", reasonVenueCapacity, headcount)
	case sawClass:
		reason = reasonClassConflict
	case sawLecturer:
		reason = reasonInvigilatorBusy
	case sawDailyCap:
		reason = reasonDailyCap
	}
	result.Conflicts = append(result.Conflicts, dto.BulkIssue{UnitID: unit.UnitID, ClassIDs: unit.ClassIDs, Reason: reason})
	return nil
}

// BulkScheduleClasses places weekly class sessions for every item. Sessions created earlier in
// the run are visible to later items.
func (s *TimetableService) BulkScheduleClasses(ctx context.Context, req dto.BulkClassScheduleRequest) (*dto.BulkScheduleResult, error) {
	started := time.Now()
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid bulk class payload")
	}
	items := make([]classItem, 0, len(req.Items))
	for _, raw := range req.Items {
		day, err := normalizeOptionalWeekday(raw.Day)
		if err != nil {
			return nil, err
		}
		items = append(items, classItem{
			UnitID:        raw.UnitID,
			ClassID:       raw.ClassID,
			GroupID:       raw.GroupID,
			Lecturer:      strings.TrimSpace(raw.Lecturer),
			DurationHours: raw.DurationHours,
			Headcount:     raw.Headcount,
			TeachingMode:  raw.TeachingMode,
			Day:           day,
			Sessions:      raw.SessionsPerWeek,
		})
	}
	slots, err := s.slots.ListTimeSlots(ctx, "", 0)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load time slots")
	}
	rooms, err := s.rooms.ListActiveRooms(ctx, models.RoomKindClassroom, 0)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load rooms")
	}
	if s.tx == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "transaction provider missing")
	}
	scope := bookingScope{SemesterID: req.SemesterID, ProgramID: req.ProgramID, SchoolID: req.SchoolID, Rooms: req.Rooms}

	var result *dto.BulkScheduleResult
	err = database.WithTx(ctx, s.tx, nil, s.retryPolicy(bulkOperationClasses), func(tx *sqlx.Tx) error {
		result = &dto.BulkScheduleResult{RunID: uuid.NewString(), Scheduled: []dto.ScheduledRecord{}, Conflicts: []dto.BulkIssue{}, Warnings: []dto.BulkIssue{}}
		if err := s.bookings.LockKeys(ctx, tx, "class:bulk:"+req.SemesterID); err != nil {
			return err
		}
		ledger, err := s.loadLedger(ctx, tx, models.BookingFilter{Kind: models.BookingKindClass})
		if err != nil {
			return err
		}
		data := &classContext{slots: slots, rooms: rooms, ledger: ledger}
		persist := func(booking *models.Booking) error {
			start, end, err := booking.Window()
			if err != nil {
				return err
			}
			if err := s.lockAndRecheck(ctx, tx, *booking, start, end, ""); err != nil {
				return err
			}
			return s.bookings.Create(ctx, tx, booking)
		}

		for _, item := range items {
			if err := ctx.Err(); err != nil {
				return fmt.Errorf("bulk class run interrupted: %w", err)
			}
			if err := s.scheduleClassItem(ctx, data, item, scope, persist, result); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		s.observe(bulkOperationClasses, "error", started)
		var appErr *appErrors.Error
		if errors.As(err, &appErr) {
			return nil, err
		}
		s.log(ctx).Error("bulk class run failed", zap.String("semester_id", req.SemesterID), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "bulk class scheduling failed")
	}

	s.finishBulk(ctx, bulkOperationClasses, models.BookingKindClass, result, started)
	return result, nil
}

func (s *TimetableService) scheduleClassItem(ctx context.Context, data *classContext, item classItem, scope bookingScope, persist func(*models.Booking) error, result *dto.BulkScheduleResult) error {
	if item.Headcount == 0 {
		count, err := s.classHeadcount(ctx, scope.SemesterID, item.UnitID, item.ClassID)
		if err != nil {
			return err
		}
		item.Headcount = count
	}
	issue := dto.BulkIssue{UnitID: item.UnitID, ClassIDs: []string{item.ClassID}, GroupID: item.GroupID}
	if item.Headcount == 0 {
		issue.Reason = reasonNoStudents
		result.Warnings = append(result.Warnings, issue)
		return nil
	}

	sessions := item.Sessions
	if sessions < 1 {
		sessions = 1
	}
	for i := 0; i < sessions; i++ {
		booking, err := s.placeClassSession(ctx, data, item, scope, persist)
		if err != nil {
			if errors.Is(err, appErrors.ErrCapacityExhausted) {
				issue.Reason = appErrors.FromError(err).Message
				if sessions > 1 {
					issue.Reason = fmt.Sprintf("session %d of %d: %s", i+1, sessions, issue.Reason)
				}
				result.Conflicts = append(result.Conflicts, issue)
				return nil
			}
			return err
		}
		result.Scheduled = append(result.Scheduled, scheduledRecord(*booking))
	}
	return nil
}

func (s *TimetableService) finishBulk(ctx context.Context, operation string, kind models.BookingKind, result *dto.BulkScheduleResult, started time.Time) {
	s.observe(operation, "ok", started)
	if s.metrics != nil {
		s.metrics.AddBulkItems(operation, "scheduled", len(result.Scheduled))
		s.metrics.AddBulkItems(operation, "conflicts", len(result.Conflicts))
		s.metrics.AddBulkItems(operation, "warnings", len(result.Warnings))
	}
	if len(result.Scheduled) > 0 {
		ids := make([]string, 0, len(result.Scheduled))
		for _, record := range result.Scheduled {
			ids = append(ids, record.BookingID)
		}
		s.publish(ctx, BookingEvent{Type: BookingEventBulk, Kind: kind, RunID: result.RunID, BookingIDs: ids})
	}
	s.log(ctx).Info("bulk scheduling finished",
		zap.String("operation", operation),
		zap.String("run_id", result.RunID),
		zap.Int("scheduled", len(result.Scheduled)),
		zap.Int("conflicts", len(result.Conflicts)),
		zap.Int("warnings", len(result.Warnings)),
		zap.Duration("duration", time.Since(started)),
	)
}

func (s *TimetableService) unitHeadcount(ctx context.Context, semesterID, unitID string) (int, error) {
	if s.enrollments == nil {
		return 0, nil
	}
	count, err := s.enrollments.CountUniqueStudents(ctx, semesterID, unitID)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count unit enrollments")
	}
	return count, nil
}

// unitInvigilator picks the most frequent lecturer across the unit's class assignments.
// Ties go to the lecturer seen first.
func (s *TimetableService) unitInvigilator(ctx context.Context, semesterID, unitID string) (string, error) {
	if s.assignments == nil {
		return "", nil
	}
	assignments, err := s.assignments.ListByUnit(ctx, semesterID, unitID)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load unit assignments")
	}
	return majorityLecturer(assignments), nil
}

func majorityLecturer(assignments []models.UnitAssignment) string {
	counts := map[string]int{}
	order := []string{}
	for _, assignment := range assignments {
		code := strings.TrimSpace(assignment.LecturerCode)
		if code == "" {
			continue
		}
		if _, ok := counts[code]; !ok {
			order = append(order, code)
		}
		counts[code]++
	}
	best := ""
	for _, code := range order {
		if counts[code] > counts[best] {
			best = code
		}
	}
	return best
}

func (s *TimetableService) refreshDay(ctx context.Context, tx *sqlx.Tx, ledger *occupancyLedger, booking models.Booking) error {
	fresh, err := s.loadLedger(ctx, tx, dayFilter(booking))
	if err != nil {
		return err
	}
	key := booking.DayKey()
	ledger.byDay[key] = fresh.day(key)
	return nil
}

// examUnits groups items by unit in first-appearance order and assigns each unit its window.
// Units without an explicit window draw a start time at random.
func (s *TimetableService) examUnits(req dto.BulkScheduleRequest) ([]examUnit, error) {
	windows := req.TimeWindows
	if len(windows) == 0 {
		windows = defaultExamWindows
	}
	for _, window := range windows {
		if _, err := models.ParseClock(window); err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
		}
	}

	index := map[string]int{}
	var units []examUnit
	for _, item := range req.Items {
		pos, ok := index[item.UnitID]
		if !ok {
			pos = len(units)
			index[item.UnitID] = pos
			units = append(units, examUnit{UnitID: item.UnitID})
		}
		unit := &units[pos]
		if !containsString(unit.ClassIDs, item.ClassID) {
			unit.ClassIDs = append(unit.ClassIDs, item.ClassID)
		}
		if unit.Start == "" && item.StartTime != "" {
			start, err := models.ParseClock(item.StartTime)
			if err != nil {
				return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
			}
			unit.Start = models.FormatClock(start)
			unit.End = item.EndTime
			if unit.End == "" {
				unit.End = models.FormatClock(start + req.ExamDurationHours*60)
			}
		}
	}
	for i := range units {
		if units[i].Start != "" {
			continue
		}
		pick := windows[0]
		if len(windows) > 1 {
			pick = windows[s.random.Intn(len(windows))]
		}
		start, _ := models.ParseClock(pick)
		units[i].Start = models.FormatClock(start)
		units[i].End = models.FormatClock(start + req.ExamDurationHours*60)
	}
	for _, unit := range units {
		if _, _, err := models.ParseWindow(unit.Start, unit.End); err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unit %s: %s", unit.UnitID, err.Error()))
		}
	}
	return units, nil
}

func buildExamPlan(req dto.BulkScheduleRequest) (examPlan, error) {
	from, err := models.ParseDate(req.StartDate)
	if err != nil {
		return examPlan{}, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	to, err := models.ParseDate(req.EndDate)
	if err != nil {
		return examPlan{}, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	if to.Before(from) {
		return examPlan{}, appErrors.Clone(appErrors.ErrValidation, "end_date must not be before start_date")
	}
	excluded := map[time.Weekday]struct{}{}
	for _, raw := range req.ExcludedWeekdays {
		idx := models.WeekdayIndex(raw)
		if idx < 0 {
			return examPlan{}, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown weekday %q", raw))
		}
		excluded[time.Weekday((idx+1)%7)] = struct{}{}
	}
	return examPlan{
		from:     from,
		to:       to,
		gapDays:  req.GapDays,
		maxDaily: req.MaxSessionsPerDay,
		excluded: excluded,
		rooms:    req.Rooms,
		scope:    bookingScope{SemesterID: req.SemesterID, ProgramID: req.ProgramID, SchoolID: req.SchoolID, Rooms: req.Rooms},
	}, nil
}

func newExamBooking(scope bookingScope, unit examUnit, date, weekday string, venue dto.VenueResult, lecturer string, headcount int) *models.Booking {
	mode := models.TeachingModePhysical
	dateValue := date
	return &models.Booking{
		ID:           uuid.NewString(),
		Kind:         models.BookingKindExam,
		UnitID:       unit.UnitID,
		ClassID:      unit.ClassIDs[0],
		ClassIDs:     pq.StringArray(append([]string(nil), unit.ClassIDs...)),
		SemesterID:   scope.SemesterID,
		ProgramID:    scope.ProgramID,
		SchoolID:     scope.SchoolID,
		Day:          weekday,
		Date:         &dateValue,
		StartTime:    unit.Start,
		EndTime:      unit.End,
		Venue:        venue.Venue,
		Location:     venue.Location,
		TeachingMode: &mode,
		Headcount:    headcount,
		Lecturer:     lecturer,
	}
}

// lastSittingByClass returns, per class, the latest sitting dated before the run starts.
func lastSittingByClass(ledger *occupancyLedger, before time.Time) map[string]time.Time {
	last := map[string]time.Time{}
	for key, entries := range ledger.byDay {
		date, err := models.ParseDate(key)
		if err != nil || !date.Before(before) {
			continue
		}
		for _, entry := range entries {
			for _, classID := range entry.booking.Classes() {
				if current, ok := last[classID]; !ok || date.After(current) {
					last[classID] = date
				}
			}
		}
	}
	return last
}

// withinGap reports whether any class already sits an exam fewer than gapDays+1 days from day.
func withinGap(ledger *occupancyLedger, day time.Time, classIDs []string, gapDays int) bool {
	for offset := -gapDays; offset <= gapDays; offset++ {
		key := day.AddDate(0, 0, offset).Format(models.DateLayout)
		for _, classID := range classIDs {
			if ledger.sittingsFor(key, classID) > 0 {
				return true
			}
		}
	}
	return false
}

func sittingsOnDate(ledger *occupancyLedger, key, semesterID string) int {
	count := 0
	for _, entry := range ledger.day(key) {
		if semesterID == "" || entry.booking.SemesterID == semesterID {
			count++
		}
	}
	return count
}

func scheduledRecord(booking models.Booking) dto.ScheduledRecord {
	record := dto.ScheduledRecord{
		BookingID: booking.ID,
		UnitID:    booking.UnitID,
		ClassIDs:  booking.Classes(),
		GroupID:   booking.Group(),
		Day:       booking.Day,
		Date:      derefString(booking.Date),
		StartTime: booking.StartTime,
		EndTime:   booking.EndTime,
		Venue:     booking.Venue,
		Location:  booking.Location,
		Lecturer:  booking.Lecturer,
		Headcount: booking.Headcount,
	}
	if booking.Kind == models.BookingKindClass {
		record.TeachingMode = string(booking.Mode())
	}
	return record
}

func containsString(values []string, target string) bool {
	for _, value := range values {
		if value == target {
			return true
		}
	}
	return false
}
