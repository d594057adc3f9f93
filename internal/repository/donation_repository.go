package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/alumni-portal-api/internal/models"
)

// DonationRepository provides database access for donation messages and the
// admin banner.
type DonationRepository struct {
	db *sqlx.DB
}

// NewDonationRepository creates a new instance of DonationRepository.
func NewDonationRepository(db *sqlx.DB) *DonationRepository {
	return &DonationRepository{db: db}
}

// Create inserts a new alumni donation message.
func (r *DonationRepository) Create(ctx context.Context, donation *models.Donation) error {
	if donation.ID == "" {
		donation.ID = uuid.NewString()
	}
	if donation.CreatedAt.IsZero() {
		donation.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO donations (id, user_id, message, type, created_at)
        VALUES (:id, :user_id, :message, :type, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, donation); err != nil {
		return fmt.Errorf("create donation: %w", err)
	}
	return nil
}

// ListAlumni returns alumni donation messages with donor info, newest first.
func (r *DonationRepository) ListAlumni(ctx context.Context) ([]models.DonationDetail, error) {
	const query = `SELECT d.id, d.user_id, d.message, d.type, d.created_at,
        u.full_name AS donor_name, u.email AS donor_email
        FROM donations d
        JOIN users u ON u.id = d.user_id
        WHERE d.type = 'ALUMNI'
        ORDER BY d.created_at DESC`
	var donations []models.DonationDetail
	if err := r.db.SelectContext(ctx, &donations, query); err != nil {
		return nil, fmt.Errorf("list donations: %w", err)
	}
	return donations, nil
}

// FindBanner returns the single admin banner message if one exists.
func (r *DonationRepository) FindBanner(ctx context.Context) (*models.Donation, error) {
	const query = `SELECT id, user_id, message, type, created_at FROM donations WHERE type = 'ADMIN' ORDER BY created_at DESC LIMIT 1`
	var banner models.Donation
	if err := r.db.GetContext(ctx, &banner, query); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find donation banner: %w", err)
	}
	return &banner, nil
}

// UpsertBanner replaces the admin banner with a fresh message.
func (r *DonationRepository) UpsertBanner(ctx context.Context, banner *models.Donation) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("upsert donation banner: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM donations WHERE type = 'ADMIN'`); err != nil {
		return fmt.Errorf("upsert donation banner: %w", err)
	}

	if banner.ID == "" {
		banner.ID = uuid.NewString()
	}
	banner.Type = models.DonationTypeAdmin
	banner.CreatedAt = time.Now().UTC()

	const insert = `INSERT INTO donations (id, user_id, message, type, created_at)
        VALUES (:id, :user_id, :message, :type, :created_at)`
	if _, err := tx.NamedExecContext(ctx, insert, banner); err != nil {
		return fmt.Errorf("upsert donation banner: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("upsert donation banner: %w", err)
	}
	return nil
}
