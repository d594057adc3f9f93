package service

import (
	"context"
	"database/sql"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/alumni-portal-api/internal/models"
	appErrors "github.com/noah-isme/alumni-portal-api/pkg/errors"
)

const (
	courseCatalogCacheKey     = "catalog:courses"
	courseCatalogCachePattern = "catalog:*"
)

type courseRepository interface {
	List(ctx context.Context) ([]models.Course, error)
	ListAvailableFor(ctx context.Context, userID string) ([]models.Course, error)
	FindByID(ctx context.Context, id string) (*models.Course, error)
	Create(ctx context.Context, course *models.Course) error
	Update(ctx context.Context, course *models.Course) error
	Delete(ctx context.Context, id string) error
	CountPendingRequests(ctx context.Context, courseID string) (int, error)
}

// SaveCourseRequest describes the admin payload for creating or updating a
// course.
type SaveCourseRequest struct {
	Name        string `json:"name" validate:"required,max=300"`
	Instructor  string `json:"instructor" validate:"max=300"`
	Mode        string `json:"mode" validate:"max=100"`
	Description string `json:"description" validate:"max=5000"`
}

// CourseService manages the elective catalog.
type CourseService struct {
	repo      courseRepository
	cache     *CacheService
	cacheTTL  time.Duration
	validator *validator.Validate
	logger    *zap.Logger
}

// NewCourseService constructs CourseService.
func NewCourseService(repo courseRepository, cache *CacheService, cacheTTL time.Duration, validate *validator.Validate, logger *zap.Logger) *CourseService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CourseService{repo: repo, cache: cache, cacheTTL: cacheTTL, validator: validate, logger: logger}
}

// List returns the full catalog, served from cache when possible.
func (s *CourseService) List(ctx context.Context) ([]models.Course, error) {
	var cached []models.Course
	if hit, err := s.cache.Get(ctx, courseCatalogCacheKey, &cached); err == nil && hit {
		return cached, nil
	}
	courses, err := s.repo.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list courses")
	}
	if err := s.cache.Set(ctx, courseCatalogCacheKey, courses, s.cacheTTL); err != nil {
		s.logger.Warn("catalog cache refresh failed", zap.Error(err))
	}
	return courses, nil
}

// ListAvailable returns courses the user can still request: anything without
// an open or approved request of theirs. Never cached, the view is
// per-user.
func (s *CourseService) ListAvailable(ctx context.Context, userID string) ([]models.Course, error) {
	courses, err := s.repo.ListAvailableFor(ctx, userID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list available courses")
	}
	return courses, nil
}

// Get returns a single course.
func (s *CourseService) Get(ctx context.Context, id string) (*models.Course, error) {
	course, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	return course, nil
}

// Create adds a new course to the catalog.
func (s *CourseService) Create(ctx context.Context, req SaveCourseRequest) (*models.Course, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid course payload")
	}
	course := &models.Course{
		Name:        req.Name,
		Instructor:  req.Instructor,
		Mode:        req.Mode,
		Description: req.Description,
	}
	if err := s.repo.Create(ctx, course); err != nil {
		if appErrors.Is(err, appErrors.ErrConflict) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "course with this name already exists")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create course")
	}
	s.invalidateCatalog(ctx)
	return course, nil
}

// CreateBatch adds several courses at once. The batch is all-or-nothing at
// the validation step and best-effort afterwards.
func (s *CourseService) CreateBatch(ctx context.Context, reqs []SaveCourseRequest) ([]models.Course, error) {
	if len(reqs) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "empty course batch")
	}
	for _, req := range reqs {
		if err := s.validator.Struct(req); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid course payload")
		}
	}
	created := make([]models.Course, 0, len(reqs))
	for _, req := range reqs {
		course := &models.Course{
			Name:        req.Name,
			Instructor:  req.Instructor,
			Mode:        req.Mode,
			Description: req.Description,
		}
		if err := s.repo.Create(ctx, course); err != nil {
			if appErrors.Is(err, appErrors.ErrConflict) {
				s.logger.Warn("skipping duplicate course in batch", zap.String("name", req.Name))
				continue
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create course")
		}
		created = append(created, *course)
	}
	s.invalidateCatalog(ctx)
	return created, nil
}

// Update modifies an existing course.
func (s *CourseService) Update(ctx context.Context, id string, req SaveCourseRequest) (*models.Course, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid course payload")
	}
	course, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	course.Name = req.Name
	course.Instructor = req.Instructor
	course.Mode = req.Mode
	course.Description = req.Description
	if err := s.repo.Update(ctx, course); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update course")
	}
	s.invalidateCatalog(ctx)
	return course, nil
}

// Delete removes a course. Deletion is refused while open requests still
// reference it so resolved history never points at a ghost.
func (s *CourseService) Delete(ctx context.Context, id string) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	pending, err := s.repo.CountPendingRequests(ctx, id)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check course references")
	}
	if pending > 0 {
		return appErrors.Clone(appErrors.ErrConflict, "course has open enrollment requests")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete course")
	}
	s.invalidateCatalog(ctx)
	return nil
}

func (s *CourseService) invalidateCatalog(ctx context.Context) {
	if err := s.cache.Invalidate(ctx, courseCatalogCachePattern); err != nil {
		s.logger.Warn("catalog cache invalidation failed", zap.Error(err))
	}
}
