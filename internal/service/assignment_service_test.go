package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unitrack/unitrack-api/internal/models"
	appErrors "github.com/unitrack/unitrack-api/pkg/errors"
)

type mockAssignmentReader struct {
	assignments map[string]*models.CourseAssignment
}

func (m *mockAssignmentReader) FindByID(_ context.Context, id string) (*models.CourseAssignment, error) {
	if a, ok := m.assignments[id]; ok {
		return a, nil
	}
	return nil, sql.ErrNoRows
}

func TestAssignmentServiceGet(t *testing.T) {
	svc := NewAssignmentService(&mockAssignmentReader{assignments: map[string]*models.CourseAssignment{
		"ca-1": {ID: "ca-1", LecturerID: "lect-1", CourseCode: "CSC101", DepartmentID: "dept-1", Level: "300"},
	}}, nil)

	assignment, err := svc.Get(context.Background(), "ca-1")
	require.NoError(t, err)
	assert.Equal(t, "CSC101", assignment.CourseCode)

	dept, level := assignment.CohortKey()
	assert.Equal(t, "dept-1", dept)
	assert.Equal(t, "300", level)
}

func TestAssignmentServiceGetNotFound(t *testing.T) {
	svc := NewAssignmentService(&mockAssignmentReader{}, nil)

	_, err := svc.Get(context.Background(), "missing")
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}
