package service

import (
	"context"
	"database/sql"
	"errors"

	"go.uber.org/zap"

	"github.com/unitrack/unitrack-api/internal/models"
	appErrors "github.com/unitrack/unitrack-api/pkg/errors"
)

type assignmentReader interface {
	FindByID(ctx context.Context, id string) (*models.CourseAssignment, error)
}

// AssignmentService exposes read-only course assignment lookups for
// schedulers that need the lecturer and cohort behind an assignment.
type AssignmentService struct {
	assignments assignmentReader
	logger      *zap.Logger
}

// NewAssignmentService constructs an assignment service.
func NewAssignmentService(assignments assignmentReader, logger *zap.Logger) *AssignmentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AssignmentService{assignments: assignments, logger: logger}
}

// Get returns an active assignment by ID.
func (s *AssignmentService) Get(ctx context.Context, id string) (*models.CourseAssignment, error) {
	assignment, err := s.assignments.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course assignment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course assignment")
	}
	return assignment, nil
}
