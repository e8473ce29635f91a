package models

import "time"

// CourseAssignment links a lecturer to a course for an academic period.
// The owning course's (department, level) pair is the cohort key used as a
// proxy for the student population that attends the course.
type CourseAssignment struct {
	ID           string    `db:"id" json:"id"`
	CourseID     string    `db:"course_id" json:"course_id"`
	LecturerID   string    `db:"lecturer_id" json:"lecturer_id"`
	CourseCode   string    `db:"course_code" json:"course_code"`
	CourseTitle  string    `db:"course_title" json:"course_title"`
	DepartmentID string    `db:"department_id" json:"department_id"`
	Level        string    `db:"level" json:"level"`
	AcademicYear string    `db:"academic_year" json:"academic_year"`
	Semester     string    `db:"semester" json:"semester"`
	IsActive     bool      `db:"is_active" json:"is_active"`
	AssignedAt   time.Time `db:"assigned_at" json:"assigned_at"`
}

// CohortKey returns the (department, level) pair identifying the cohort.
func (a *CourseAssignment) CohortKey() (string, string) {
	return a.DepartmentID, a.Level
}
