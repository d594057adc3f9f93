package service

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/alumni-portal-api/internal/models"
	appErrors "github.com/noah-isme/alumni-portal-api/pkg/errors"
	"github.com/noah-isme/alumni-portal-api/pkg/export"
)

const directoryCachePattern = "directory:*"

type userRepository interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	UpdateProfile(ctx context.Context, user *models.User) error
	LinkTelegram(ctx context.Context, id string, telegramID int64, handle string) error
	ListDirectory(ctx context.Context, filter models.UserFilter) ([]models.DirectoryEntry, int, error)
}

// UpdateProfileRequest carries optional profile edits. Nil fields keep their
// current value, so partial updates never blank anything out.
type UpdateProfileRequest struct {
	FullName       *string `json:"full_name" validate:"omitempty,max=300"`
	ContactEmail   *string `json:"contact_email" validate:"omitempty,email"`
	Phone          *string `json:"phone" validate:"omitempty,max=50"`
	GraduationYear *string `json:"graduation_year" validate:"omitempty,max=20"`
	GraduatedTrack *string `json:"graduated_track" validate:"omitempty,max=300"`
	About          *string `json:"about" validate:"omitempty,max=5000"`
	City           *string `json:"city" validate:"omitempty,max=300"`
	Company        *string `json:"company" validate:"omitempty,max=300"`
	Position       *string `json:"position" validate:"omitempty,max=300"`
	TelegramHandle *string `json:"telegram_handle" validate:"omitempty,max=100"`
	Volunteer      *bool   `json:"volunteer"`
}

// UserService manages profiles and the admin directory.
type UserService struct {
	repo      userRepository
	cache     *CacheService
	cacheTTL  time.Duration
	csv       *export.CSVExporter
	pdf       *export.PDFExporter
	validator *validator.Validate
	logger    *zap.Logger
}

// NewUserService constructs UserService.
func NewUserService(repo userRepository, cache *CacheService, cacheTTL time.Duration, validate *validator.Validate, logger *zap.Logger) *UserService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserService{
		repo:      repo,
		cache:     cache,
		cacheTTL:  cacheTTL,
		csv:       export.NewCSVExporter(),
		pdf:       export.NewPDFExporter(),
		validator: validate,
		logger:    logger,
	}
}

// Get returns a user profile.
func (s *UserService) Get(ctx context.Context, id string) (*models.User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}
	return user, nil
}

// UpdateProfile applies the provided edits to the caller's profile. Omitted
// fields fall back to their stored values.
func (s *UserService) UpdateProfile(ctx context.Context, id string, req UpdateProfileRequest) (*models.User, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid profile payload")
	}
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}

	if req.FullName != nil {
		user.FullName = *req.FullName
	}
	if req.ContactEmail != nil {
		user.ContactEmail = *req.ContactEmail
	}
	if req.Phone != nil {
		user.Phone = *req.Phone
	}
	if req.GraduationYear != nil {
		user.GraduationYear = *req.GraduationYear
	}
	if req.GraduatedTrack != nil {
		user.GraduatedTrack = *req.GraduatedTrack
	}
	if req.About != nil {
		user.About = *req.About
	}
	if req.City != nil {
		user.City = *req.City
	}
	if req.Company != nil {
		user.Company = *req.Company
	}
	if req.Position != nil {
		user.Position = *req.Position
	}
	if req.TelegramHandle != nil {
		user.TelegramHandle = *req.TelegramHandle
	}
	if req.Volunteer != nil {
		user.Volunteer = *req.Volunteer
	}

	if err := s.repo.UpdateProfile(ctx, user); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update profile")
	}
	if err := s.cache.Invalidate(ctx, directoryCachePattern); err != nil {
		s.logger.Warn("directory cache invalidation failed", zap.Error(err))
	}
	return user, nil
}

// LinkTelegram attaches a Telegram identity to the account.
func (s *UserService) LinkTelegram(ctx context.Context, id string, telegramID int64, handle string) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}
	if err := s.repo.LinkTelegram(ctx, id, telegramID, handle); err != nil {
		if appErrors.Is(err, appErrors.ErrConflict) {
			return appErrors.Clone(appErrors.ErrConflict, "telegram account is already linked")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to link telegram account")
	}
	return nil
}

// ListDirectory returns the alumni directory with activity counts. The first
// uncached page of the unfiltered view is served from cache.
func (s *UserService) ListDirectory(ctx context.Context, filter models.UserFilter) ([]models.DirectoryEntry, *models.Pagination, error) {
	type cachedDirectory struct {
		Entries    []models.DirectoryEntry `json:"entries"`
		Pagination models.Pagination       `json:"pagination"`
	}

	cacheKey := ""
	if filter.Role == nil && filter.Active == nil && filter.Search == "" {
		cacheKey = fmt.Sprintf("directory:p%d:s%d:%s:%s", filter.Page, filter.PageSize, filter.SortBy, filter.SortOrder)
		var cached cachedDirectory
		if hit, err := s.cache.Get(ctx, cacheKey, &cached); err == nil && hit {
			return cached.Entries, &cached.Pagination, nil
		}
	}

	entries, total, err := s.repo.ListDirectory(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list directory")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	pagination := &models.Pagination{Page: page, PageSize: size, TotalCount: total}

	if cacheKey != "" {
		if err := s.cache.Set(ctx, cacheKey, cachedDirectory{Entries: entries, Pagination: *pagination}, s.cacheTTL); err != nil {
			s.logger.Warn("directory cache refresh failed", zap.Error(err))
		}
	}
	return entries, pagination, nil
}

const exportPageSize = 100

// ExportDirectory renders the full directory as CSV or PDF bytes. The
// repository caps page size, so the export pages until the last short batch.
func (s *UserService) ExportDirectory(ctx context.Context, format string) ([]byte, string, error) {
	var entries []models.DirectoryEntry
	for page := 1; ; page++ {
		batch, _, err := s.repo.ListDirectory(ctx, models.UserFilter{Page: page, PageSize: exportPageSize})
		if err != nil {
			return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load directory")
		}
		entries = append(entries, batch...)
		if len(batch) < exportPageSize {
			break
		}
	}

	dataset := export.Dataset{
		Columns: []string{"Name", "Email", "Graduation Year", "Track", "City", "Company", "Position", "Requests", "Donations"},
	}
	for _, e := range entries {
		dataset.Rows = append(dataset.Rows, []string{
			e.FullName,
			e.Email,
			e.GraduationYear,
			e.GraduatedTrack,
			e.City,
			e.Company,
			e.Position,
			fmt.Sprintf("%d", e.CourseRequestCount+e.PassRequestCount),
			fmt.Sprintf("%d", e.DonationCount),
		})
	}

	switch format {
	case "csv":
		payload, err := s.csv.Render(dataset)
		if err != nil {
			return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
		}
		return payload, "alumni-directory.csv", nil
	case "pdf":
		payload, err := s.pdf.Render(dataset, "Alumni Directory")
		if err != nil {
			return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
		}
		return payload, "alumni-directory.pdf", nil
	default:
		return nil, "", appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}
}
