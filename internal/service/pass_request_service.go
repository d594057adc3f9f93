package service

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/noah-isme/alumni-portal-api/internal/models"
	appErrors "github.com/noah-isme/alumni-portal-api/pkg/errors"
)

type passRequestRepository interface {
	Create(ctx context.Context, request *models.PassRequest) error
	FindByID(ctx context.Context, id string) (*models.PassRequestDetail, error)
	List(ctx context.Context, filter models.RequestFilter) ([]models.PassRequestDetail, error)
	HasPendingForDate(ctx context.Context, userID string, date time.Time) (bool, error)
	UpdateStatus(ctx context.Context, id string, status models.RequestStatus, feedback *string) error
	DeletePending(ctx context.Context, id, userID string) error
	PurgeResolved(ctx context.Context, userID string) (int64, error)
}

// CreatePassRequest describes the campus pass payload. Guests arrive as a
// proper list; names may contain any characters.
type CreatePassRequest struct {
	Description   string   `json:"description" validate:"max=2000"`
	RequestedDate string   `json:"requested_date" validate:"required"`
	Guests        []string `json:"guests" validate:"max=20,dive,required,max=200"`
}

// PassRequestService orchestrates the campus pass lifecycle.
type PassRequestService struct {
	repo      passRequestRepository
	notifier  resolutionNotifier
	validator *validator.Validate
	logger    *zap.Logger
}

// NewPassRequestService constructs PassRequestService.
func NewPassRequestService(repo passRequestRepository, notifier resolutionNotifier, validate *validator.Validate, logger *zap.Logger) *PassRequestService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PassRequestService{repo: repo, notifier: notifier, validator: validate, logger: logger}
}

// Create opens a new PENDING pass request for the caller. A second open
// request for the same visit date is refused.
func (s *PassRequestService) Create(ctx context.Context, userID string, req CreatePassRequest) (*models.PassRequestDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid pass request payload")
	}
	date, err := time.Parse("2006-01-02", req.RequestedDate)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "requested_date must be YYYY-MM-DD")
	}
	guests := make([]string, 0, len(req.Guests))
	for _, g := range req.Guests {
		g = strings.TrimSpace(g)
		if g == "" {
			return nil, appErrors.Clone(appErrors.ErrValidation, "guest names cannot be blank")
		}
		guests = append(guests, g)
	}
	pending, err := s.repo.HasPendingForDate(ctx, userID, date)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate pass request")
	}
	if pending {
		return nil, appErrors.Clone(appErrors.ErrConflict, "pass request for this date is already pending")
	}
	request := &models.PassRequest{
		UserID:        userID,
		Description:   req.Description,
		RequestedDate: date,
		Guests:        pq.StringArray(guests),
	}
	if err := s.repo.Create(ctx, request); err != nil {
		if appErrors.Is(err, appErrors.ErrConflict) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "pass request for this date is already pending")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create pass request")
	}
	detail, err := s.repo.FindByID(ctx, request.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load pass request")
	}
	return detail, nil
}

// List returns requests for a single user, or for everyone when userID is
// empty (admin callers only, enforced at the transport layer).
func (s *PassRequestService) List(ctx context.Context, filter models.RequestFilter) ([]models.PassRequestDetail, error) {
	requests, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list pass requests")
	}
	return requests, nil
}

// Get returns a single request. Non-admin callers may only see their own.
func (s *PassRequestService) Get(ctx context.Context, id, callerID string, isAdmin bool) (*models.PassRequestDetail, error) {
	detail, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "pass request not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load pass request")
	}
	if !isAdmin && detail.UserID != callerID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "pass request belongs to another user")
	}
	return detail, nil
}

// Resolve records an admin decision on a PENDING request.
func (s *PassRequestService) Resolve(ctx context.Context, id string, req ResolveRequest) (*models.PassRequestDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid resolution payload")
	}
	if !req.Outcome.ValidOutcome() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "outcome must be APPROVED or REJECTED")
	}
	current, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "pass request not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load pass request")
	}
	if current.Status.Terminal() {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, "pass request already resolved")
	}
	var feedback *string
	if req.Feedback != "" {
		feedback = &req.Feedback
	}
	if err := s.repo.UpdateStatus(ctx, id, req.Outcome, feedback); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrInvalidState, "pass request already resolved")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve pass request")
	}
	detail, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load pass request")
	}
	if s.notifier != nil {
		s.notifier.NotifyResolution(models.ResolutionEvent{
			RequestID: detail.ID,
			UserID:    detail.UserID,
			Kind:      models.RequestKindPass,
			Outcome:   detail.Status,
			Feedback:  req.Feedback,
			Subject:   detail.RequestedDate.Format("2006-01-02"),
		})
	}
	return detail, nil
}

// DeletePending withdraws the caller's own request while it is still open.
func (s *PassRequestService) DeletePending(ctx context.Context, id, userID string) error {
	detail, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "pass request not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load pass request")
	}
	if detail.UserID != userID {
		return appErrors.Clone(appErrors.ErrForbidden, "pass request belongs to another user")
	}
	if detail.Status.Terminal() {
		return appErrors.Clone(appErrors.ErrInvalidState, "resolved requests cannot be withdrawn")
	}
	if err := s.repo.DeletePending(ctx, id, userID); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrInvalidState, "pass request already resolved")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete pass request")
	}
	return nil
}

// PurgeResolved clears the caller's resolved history and reports how many
// entries were removed.
func (s *PassRequestService) PurgeResolved(ctx context.Context, userID string) (int64, error) {
	purged, err := s.repo.PurgeResolved(ctx, userID)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to purge pass requests")
	}
	return purged, nil
}
