package service

import (
	"context"
	"database/sql"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/alumni-portal-api/internal/models"
	appErrors "github.com/noah-isme/alumni-portal-api/pkg/errors"
)

type courseRequestRepository interface {
	Create(ctx context.Context, request *models.CourseRequest) error
	FindByID(ctx context.Context, id string) (*models.CourseRequestDetail, error)
	List(ctx context.Context, filter models.RequestFilter) ([]models.CourseRequestDetail, error)
	HasPending(ctx context.Context, userID, courseID string) (bool, error)
	UpdateStatus(ctx context.Context, id string, status models.RequestStatus, feedback *string) error
	DeletePending(ctx context.Context, id, userID string) error
	PurgeResolved(ctx context.Context, userID string) (int64, error)
}

type courseReader interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
}

type resolutionNotifier interface {
	NotifyResolution(event models.ResolutionEvent)
}

// CreateCourseRequest describes the enrollment request payload.
type CreateCourseRequest struct {
	CourseID string `json:"course_id" validate:"required"`
}

// ResolveRequest describes the admin resolution payload shared by both
// request variants.
type ResolveRequest struct {
	Outcome  models.RequestStatus `json:"outcome" validate:"required"`
	Feedback string               `json:"feedback" validate:"max=2000"`
}

// CourseRequestService orchestrates the elective request lifecycle.
type CourseRequestService struct {
	repo      courseRequestRepository
	courses   courseReader
	notifier  resolutionNotifier
	validator *validator.Validate
	logger    *zap.Logger
}

// NewCourseRequestService constructs CourseRequestService.
func NewCourseRequestService(repo courseRequestRepository, courses courseReader, notifier resolutionNotifier, validate *validator.Validate, logger *zap.Logger) *CourseRequestService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CourseRequestService{repo: repo, courses: courses, notifier: notifier, validator: validate, logger: logger}
}

// Create opens a new PENDING request for the caller. Duplicate open requests
// for the same course are refused.
func (s *CourseRequestService) Create(ctx context.Context, userID string, req CreateCourseRequest) (*models.CourseRequestDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid course request payload")
	}
	course, err := s.courses.FindByID(ctx, req.CourseID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	pending, err := s.repo.HasPending(ctx, userID, course.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate course request")
	}
	if pending {
		return nil, appErrors.Clone(appErrors.ErrConflict, "request for this course is already pending")
	}
	request := &models.CourseRequest{UserID: userID, CourseID: course.ID}
	if err := s.repo.Create(ctx, request); err != nil {
		if appErrors.Is(err, appErrors.ErrConflict) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "request for this course is already pending")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create course request")
	}
	detail, err := s.repo.FindByID(ctx, request.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course request")
	}
	return detail, nil
}

// List returns requests for a single user, or for everyone when userID is
// empty (admin callers only, enforced at the transport layer).
func (s *CourseRequestService) List(ctx context.Context, filter models.RequestFilter) ([]models.CourseRequestDetail, error) {
	requests, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list course requests")
	}
	return requests, nil
}

// Get returns a single request. Non-admin callers may only see their own.
func (s *CourseRequestService) Get(ctx context.Context, id, callerID string, isAdmin bool) (*models.CourseRequestDetail, error) {
	detail, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course request not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course request")
	}
	if !isAdmin && detail.UserID != callerID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "course request belongs to another user")
	}
	return detail, nil
}

// Resolve records an admin decision on a PENDING request. Requests that are
// already resolved are refused, never flipped.
func (s *CourseRequestService) Resolve(ctx context.Context, id string, req ResolveRequest) (*models.CourseRequestDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid resolution payload")
	}
	if !req.Outcome.ValidOutcome() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "outcome must be APPROVED or REJECTED")
	}
	current, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course request not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course request")
	}
	if current.Status.Terminal() {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, "course request already resolved")
	}
	var feedback *string
	if req.Feedback != "" {
		feedback = &req.Feedback
	}
	if err := s.repo.UpdateStatus(ctx, id, req.Outcome, feedback); err != nil {
		if err == sql.ErrNoRows {
			// Lost the race with another admin or a delete.
			return nil, appErrors.Clone(appErrors.ErrInvalidState, "course request already resolved")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve course request")
	}
	detail, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course request")
	}
	if s.notifier != nil {
		s.notifier.NotifyResolution(models.ResolutionEvent{
			RequestID: detail.ID,
			UserID:    detail.UserID,
			Kind:      models.RequestKindCourse,
			Outcome:   detail.Status,
			Feedback:  req.Feedback,
			Subject:   detail.CourseName,
		})
	}
	return detail, nil
}

// DeletePending withdraws the caller's own request while it is still open.
func (s *CourseRequestService) DeletePending(ctx context.Context, id, userID string) error {
	detail, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "course request not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course request")
	}
	if detail.UserID != userID {
		return appErrors.Clone(appErrors.ErrForbidden, "course request belongs to another user")
	}
	if detail.Status.Terminal() {
		return appErrors.Clone(appErrors.ErrInvalidState, "resolved requests cannot be withdrawn")
	}
	if err := s.repo.DeletePending(ctx, id, userID); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrInvalidState, "course request already resolved")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete course request")
	}
	return nil
}

// PurgeResolved clears the caller's resolved history and reports how many
// entries were removed. Open requests always survive.
func (s *CourseRequestService) PurgeResolved(ctx context.Context, userID string) (int64, error) {
	purged, err := s.repo.PurgeResolved(ctx, userID)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to purge course requests")
	}
	return purged, nil
}
