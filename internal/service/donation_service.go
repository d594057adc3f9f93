package service

import (
	"context"
	"database/sql"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/alumni-portal-api/internal/models"
	appErrors "github.com/noah-isme/alumni-portal-api/pkg/errors"
	"github.com/noah-isme/alumni-portal-api/pkg/export"
)

type donationRepository interface {
	Create(ctx context.Context, donation *models.Donation) error
	ListAlumni(ctx context.Context) ([]models.DonationDetail, error)
	FindBanner(ctx context.Context) (*models.Donation, error)
	UpsertBanner(ctx context.Context, banner *models.Donation) error
}

// MakeDonationRequest carries a donation message from an alumnus.
type MakeDonationRequest struct {
	Message string `json:"message" validate:"required,max=5000"`
}

// SetBannerRequest replaces the admin banner shown above the donation feed.
type SetBannerRequest struct {
	Message string `json:"message" validate:"required,max=5000"`
}

// DonationService manages the donation feed and the admin banner.
type DonationService struct {
	repo      donationRepository
	csv       *export.CSVExporter
	pdf       *export.PDFExporter
	validator *validator.Validate
	logger    *zap.Logger
}

// NewDonationService constructs DonationService.
func NewDonationService(repo donationRepository, validate *validator.Validate, logger *zap.Logger) *DonationService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DonationService{
		repo:      repo,
		csv:       export.NewCSVExporter(),
		pdf:       export.NewPDFExporter(),
		validator: validate,
		logger:    logger,
	}
}

// Make records a donation message for the caller.
func (s *DonationService) Make(ctx context.Context, userID string, req MakeDonationRequest) (*models.Donation, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid donation payload")
	}
	donation := &models.Donation{
		UserID:  userID,
		Message: req.Message,
		Type:    models.DonationTypeAlumni,
	}
	if err := s.repo.Create(ctx, donation); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record donation")
	}
	return donation, nil
}

// List returns all alumni donation messages, newest first.
func (s *DonationService) List(ctx context.Context) ([]models.DonationDetail, error) {
	donations, err := s.repo.ListAlumni(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list donations")
	}
	return donations, nil
}

// Banner returns the current admin banner, or nil when none is set.
func (s *DonationService) Banner(ctx context.Context) (*models.Donation, error) {
	banner, err := s.repo.FindBanner(ctx)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load banner")
	}
	return banner, nil
}

// SetBanner replaces the admin banner.
func (s *DonationService) SetBanner(ctx context.Context, adminID string, req SetBannerRequest) (*models.Donation, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid banner payload")
	}
	banner := &models.Donation{
		UserID:  adminID,
		Message: req.Message,
	}
	if err := s.repo.UpsertBanner(ctx, banner); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to set banner")
	}
	return banner, nil
}

// Export renders the donation feed as CSV or PDF bytes.
func (s *DonationService) Export(ctx context.Context, format string) ([]byte, string, error) {
	donations, err := s.repo.ListAlumni(ctx)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load donations")
	}

	dataset := export.Dataset{Columns: []string{"Donor", "Email", "Message", "Date"}}
	for _, d := range donations {
		dataset.Rows = append(dataset.Rows, []string{
			d.DonorName,
			d.DonorEmail,
			d.Message,
			d.CreatedAt.Format("2006-01-02"),
		})
	}

	switch format {
	case "csv":
		payload, err := s.csv.Render(dataset)
		if err != nil {
			return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
		}
		return payload, "donations.csv", nil
	case "pdf":
		payload, err := s.pdf.Render(dataset, "Donations")
		if err != nil {
			return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
		}
		return payload, "donations.pdf", nil
	default:
		return nil, "", appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}
}
