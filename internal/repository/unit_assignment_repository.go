package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/academic-timetable-api/internal/models"
)

// UnitAssignmentRepository reads lecturer-to-unit assignments.
type UnitAssignmentRepository struct {
	db *sqlx.DB
}

// NewUnitAssignmentRepository constructs the repository.
func NewUnitAssignmentRepository(db *sqlx.DB) *UnitAssignmentRepository {
	return &UnitAssignmentRepository{db: db}
}

// ListByUnit returns the assignments of a unit in creation order.
func (r *UnitAssignmentRepository) ListByUnit(ctx context.Context, semesterID, unitID string) ([]models.UnitAssignment, error) {
	const query = `SELECT id, unit_id, class_id, semester_id, lecturer_code, created_at
FROM unit_assignments WHERE semester_id = $1 AND unit_id = $2 ORDER BY created_at ASC, id ASC`
	var assignments []models.UnitAssignment
	if err := r.db.SelectContext(ctx, &assignments, query, semesterID, unitID); err != nil {
		return nil, fmt.Errorf("list unit assignments: %w", err)
	}
	return assignments, nil
}
