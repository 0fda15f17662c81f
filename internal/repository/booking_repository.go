package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/academic-timetable-api/internal/models"
)

var psql = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

var bookingColumns = []string{
	"id", "kind", "unit_id", "class_id", "class_ids", "group_id", "semester_id", "program_id", "school_id",
	"day", "to_char(date, 'YYYY-MM-DD') AS date",
	"to_char(start_time, 'HH24:MI') AS start_time", "to_char(end_time, 'HH24:MI') AS end_time",
	"venue", "location", "teaching_mode", "headcount", "lecturer", "created_at", "updated_at",
}

type queryObserver interface {
	ObserveDBQuery(label string, duration time.Duration)
}

// BookingRepository persists class sessions and exam sittings.
type BookingRepository struct {
	db      *sqlx.DB
	metrics queryObserver
}

// NewBookingRepository constructs the repository. metrics may be nil.
func NewBookingRepository(db *sqlx.DB, metrics queryObserver) *BookingRepository {
	return &BookingRepository{db: db, metrics: metrics}
}

func (r *BookingRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *BookingRepository) observe(label string, started time.Time) {
	if r.metrics != nil {
		r.metrics.ObserveDBQuery(label, time.Since(started))
	}
}

// List returns bookings matching the filter ordered by date, start time and id.
func (r *BookingRepository) List(ctx context.Context, exec sqlx.ExtContext, filter models.BookingFilter) ([]models.Booking, error) {
	builder := psql.Select(bookingColumns...).From("bookings")
	if filter.Kind != "" {
		builder = builder.Where(squirrel.Eq{"kind": filter.Kind})
	}
	if filter.Day != "" {
		builder = builder.Where(squirrel.Eq{"day": filter.Day})
	}
	if filter.Date != "" {
		builder = builder.Where(squirrel.Eq{"date": filter.Date})
	}
	if filter.DateFrom != "" {
		builder = builder.Where(squirrel.GtOrEq{"date": filter.DateFrom})
	}
	if filter.DateTo != "" {
		builder = builder.Where(squirrel.LtOrEq{"date": filter.DateTo})
	}
	if filter.Venue != "" {
		builder = builder.Where(squirrel.Expr("lower(venue) = lower(?)", strings.TrimSpace(filter.Venue)))
	}
	if filter.Lecturer != "" {
		builder = builder.Where(squirrel.Expr("lower(btrim(lecturer)) = lower(?)", strings.TrimSpace(filter.Lecturer)))
	}
	if filter.ClassID != "" {
		builder = builder.Where(squirrel.Expr("(class_id = ? OR ? = ANY(class_ids))", filter.ClassID, filter.ClassID))
	}
	if filter.GroupID != "" {
		builder = builder.Where(squirrel.Eq{"group_id": filter.GroupID})
	}
	if filter.SemesterID != "" {
		builder = builder.Where(squirrel.Eq{"semester_id": filter.SemesterID})
	}
	if filter.UnitID != "" {
		builder = builder.Where(squirrel.Eq{"unit_id": filter.UnitID})
	}
	if filter.ExcludeID != "" {
		builder = builder.Where(squirrel.NotEq{"id": filter.ExcludeID})
	}
	query, args, err := builder.OrderBy("date ASC NULLS FIRST", "start_time ASC", "id ASC").ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list bookings query: %w", err)
	}

	started := time.Now()
	defer r.observe("bookings.list", started)
	var bookings []models.Booking
	if err := sqlx.SelectContext(ctx, r.exec(exec), &bookings, query, args...); err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	return bookings, nil
}

// FindByID fetches a booking. Missing rows surface as sql.ErrNoRows.
func (r *BookingRepository) FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Booking, error) {
	query, args, err := psql.Select(bookingColumns...).From("bookings").Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build find booking query: %w", err)
	}
	var booking models.Booking
	if err := sqlx.GetContext(ctx, r.exec(exec), &booking, query, args...); err != nil {
		return nil, err
	}
	return &booking, nil
}

// Create inserts the booking, assigning id and timestamps.
func (r *BookingRepository) Create(ctx context.Context, exec sqlx.ExtContext, booking *models.Booking) error {
	if booking.ID == "" {
		booking.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	booking.CreatedAt = now
	booking.UpdatedAt = now

	query, args, err := psql.Insert("bookings").
		Columns("id", "kind", "unit_id", "class_id", "class_ids", "group_id", "semester_id", "program_id", "school_id",
			"day", "date", "start_time", "end_time", "venue", "location", "teaching_mode", "headcount", "lecturer",
			"created_at", "updated_at").
		Values(booking.ID, booking.Kind, booking.UnitID, booking.ClassID, booking.ClassIDs, booking.GroupID,
			booking.SemesterID, booking.ProgramID, booking.SchoolID, booking.Day, booking.Date,
			booking.StartTime, booking.EndTime, booking.Venue, booking.Location, booking.TeachingMode,
			booking.Headcount, booking.Lecturer, booking.CreatedAt, booking.UpdatedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("build create booking query: %w", err)
	}
	started := time.Now()
	defer r.observe("bookings.create", started)
	if _, err := r.exec(exec).ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("create booking: %w", err)
	}
	return nil
}

// Update rewrites the mutable booking fields.
func (r *BookingRepository) Update(ctx context.Context, exec sqlx.ExtContext, booking *models.Booking) error {
	booking.UpdatedAt = time.Now().UTC()
	query, args, err := psql.Update("bookings").
		Set("day", booking.Day).
		Set("date", booking.Date).
		Set("start_time", booking.StartTime).
		Set("end_time", booking.EndTime).
		Set("venue", booking.Venue).
		Set("location", booking.Location).
		Set("teaching_mode", booking.TeachingMode).
		Set("headcount", booking.Headcount).
		Set("lecturer", booking.Lecturer).
		Set("group_id", booking.GroupID).
		Set("updated_at", booking.UpdatedAt).
		Where(squirrel.Eq{"id": booking.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update booking query: %w", err)
	}
	res, err := r.exec(exec).ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update booking: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update booking rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes a booking.
func (r *BookingRepository) Delete(ctx context.Context, exec sqlx.ExtContext, id string) error {
	query, args, err := psql.Delete("bookings").Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return fmt.Errorf("build delete booking query: %w", err)
	}
	res, err := r.exec(exec).ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("delete booking: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete booking rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// LockKeys takes transaction scoped advisory locks in the given order. Callers pass sorted keys.
func (r *BookingRepository) LockKeys(ctx context.Context, exec sqlx.ExtContext, keys ...string) error {
	const query = `SELECT pg_advisory_xact_lock(hashtext($1))`
	target := r.exec(exec)
	for _, key := range keys {
		if _, err := target.ExecContext(ctx, query, key); err != nil {
			return fmt.Errorf("advisory lock %s: %w", key, err)
		}
	}
	return nil
}
