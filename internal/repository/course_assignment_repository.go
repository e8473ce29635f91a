package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/unitrack/unitrack-api/internal/models"
)

// CourseAssignmentRepository resolves lecturer and cohort context for sessions.
type CourseAssignmentRepository struct {
	db *sqlx.DB
}

// NewCourseAssignmentRepository creates a new course assignment repository.
func NewCourseAssignmentRepository(db *sqlx.DB) *CourseAssignmentRepository {
	return &CourseAssignmentRepository{db: db}
}

// FindByID loads an active assignment joined with its course.
func (r *CourseAssignmentRepository) FindByID(ctx context.Context, id string) (*models.CourseAssignment, error) {
	const query = `SELECT ca.id, ca.course_id, ca.lecturer_id, c.code AS course_code, c.title AS course_title,
		c.department_id, c.level, ca.academic_year, ca.semester, ca.is_active, ca.assigned_at
		FROM course_assignments ca
		JOIN courses c ON c.id = ca.course_id
		WHERE ca.id = $1 AND ca.is_active = TRUE`
	var assignment models.CourseAssignment
	if err := r.db.GetContext(ctx, &assignment, query, id); err != nil {
		return nil, err
	}
	return &assignment, nil
}
