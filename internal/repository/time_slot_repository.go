package repository

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/academic-timetable-api/internal/models"
)

// TimeSlotRepository reads the weekly time-slot templates.
type TimeSlotRepository struct {
	db *sqlx.DB
}

// NewTimeSlotRepository constructs the repository.
func NewTimeSlotRepository(db *sqlx.DB) *TimeSlotRepository {
	return &TimeSlotRepository{db: db}
}

// ListTimeSlots returns slots for a day (all days when empty) of an exact length in hours (any when zero).
func (r *TimeSlotRepository) ListTimeSlots(ctx context.Context, day string, durationHours int) ([]models.TimeSlot, error) {
	builder := psql.Select("id", "day", "to_char(start_time, 'HH24:MI') AS start_time", "to_char(end_time, 'HH24:MI') AS end_time").
		From("time_slots")
	if day != "" {
		builder = builder.Where(squirrel.Eq{"day": day})
	}
	if durationHours > 0 {
		builder = builder.Where(squirrel.Expr("EXTRACT(EPOCH FROM (end_time - start_time)) = ?", durationHours*3600))
	}
	query, args, err := builder.OrderBy("day ASC", "start_time ASC").ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list time slots query: %w", err)
	}
	var slots []models.TimeSlot
	if err := r.db.SelectContext(ctx, &slots, query, args...); err != nil {
		return nil, fmt.Errorf("list time slots: %w", err)
	}
	return slots, nil
}
