package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// EnrollmentRepository answers headcount questions over student enrollments.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository constructs the repository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

// CountUniqueStudents counts distinct active students taking a unit in a semester across all classes.
func (r *EnrollmentRepository) CountUniqueStudents(ctx context.Context, semesterID, unitID string) (int, error) {
	const query = `SELECT COUNT(DISTINCT student_id) FROM enrollments WHERE semester_id = $1 AND unit_id = $2 AND status = 'ACTIVE'`
	var count int
	if err := r.db.GetContext(ctx, &count, query, semesterID, unitID); err != nil {
		return 0, fmt.Errorf("count unit students: %w", err)
	}
	return count, nil
}

// CountStudentsByClass counts distinct active students of one class taking a unit.
func (r *EnrollmentRepository) CountStudentsByClass(ctx context.Context, semesterID, unitID, classID string) (int, error) {
	const query = `SELECT COUNT(DISTINCT student_id) FROM enrollments WHERE semester_id = $1 AND unit_id = $2 AND class_id = $3 AND status = 'ACTIVE'`
	var count int
	if err := r.db.GetContext(ctx, &count, query, semesterID, unitID, classID); err != nil {
		return 0, fmt.Errorf("count class students: %w", err)
	}
	return count, nil
}
