package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/alumni-portal-api/internal/models"
)

// PassRequestRepository provides database access for campus pass requests.
type PassRequestRepository struct {
	db *sqlx.DB
}

// NewPassRequestRepository creates a new instance of PassRequestRepository.
func NewPassRequestRepository(db *sqlx.DB) *PassRequestRepository {
	return &PassRequestRepository{db: db}
}

// Create inserts a new request in PENDING state.
func (r *PassRequestRepository) Create(ctx context.Context, request *models.PassRequest) error {
	if request.ID == "" {
		request.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	request.Status = models.RequestStatusPending
	request.CreatedAt = now
	request.UpdatedAt = now

	const query = `INSERT INTO pass_requests (id, user_id, description, requested_date, guests, status, feedback, created_at, updated_at)
        VALUES (:id, :user_id, :description, :requested_date, :guests, :status, :feedback, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, request); err != nil {
		return fmt.Errorf("create pass request: %w", translateUniqueViolation(err))
	}
	return nil
}

// FindByID returns a request with requester details.
func (r *PassRequestRepository) FindByID(ctx context.Context, id string) (*models.PassRequestDetail, error) {
	const query = `SELECT pr.id, pr.user_id, pr.description, pr.requested_date, pr.guests, pr.status, pr.feedback, pr.created_at, pr.updated_at,
        u.full_name AS requester_name, u.email AS requester_email
        FROM pass_requests pr
        JOIN users u ON u.id = pr.user_id
        WHERE pr.id = $1 LIMIT 1`
	var detail models.PassRequestDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find pass request: %w", err)
	}
	return &detail, nil
}

// List returns requests matching the filter, newest first.
func (r *PassRequestRepository) List(ctx context.Context, filter models.RequestFilter) ([]models.PassRequestDetail, error) {
	baseQuery := `SELECT pr.id, pr.user_id, pr.description, pr.requested_date, pr.guests, pr.status, pr.feedback, pr.created_at, pr.updated_at,
        u.full_name AS requester_name, u.email AS requester_email
        FROM pass_requests pr
        JOIN users u ON u.id = pr.user_id
        WHERE 1=1`
	var conditions []string
	var args []interface{}

	if filter.UserID != "" {
		conditions = append(conditions, fmt.Sprintf("pr.user_id = $%d", len(args)+1))
		args = append(args, filter.UserID)
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("pr.status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}
	if len(conditions) > 0 {
		baseQuery += " AND " + strings.Join(conditions, " AND ")
	}
	baseQuery += " ORDER BY pr.created_at DESC"

	var requests []models.PassRequestDetail
	if err := r.db.SelectContext(ctx, &requests, baseQuery, args...); err != nil {
		return nil, fmt.Errorf("list pass requests: %w", err)
	}
	return requests, nil
}

// HasPendingForDate reports whether the user already has an open request for
// the same visit date.
func (r *PassRequestRepository) HasPendingForDate(ctx context.Context, userID string, date time.Time) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM pass_requests WHERE user_id = $1 AND requested_date = $2 AND status = 'PENDING')`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, userID, date); err != nil {
		return false, fmt.Errorf("check pending pass request: %w", err)
	}
	return exists, nil
}

// UpdateStatus records the resolution of a request. Only PENDING rows are
// touched.
func (r *PassRequestRepository) UpdateStatus(ctx context.Context, id string, status models.RequestStatus, feedback *string) error {
	const query = `UPDATE pass_requests SET status = $2, feedback = $3, updated_at = $4 WHERE id = $1 AND status = 'PENDING'`
	result, err := r.db.ExecContext(ctx, query, id, status, feedback, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update pass request status: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update pass request status: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// DeletePending removes the user's own request while it is still open.
func (r *PassRequestRepository) DeletePending(ctx context.Context, id, userID string) error {
	const query = `DELETE FROM pass_requests WHERE id = $1 AND user_id = $2 AND status = 'PENDING'`
	result, err := r.db.ExecContext(ctx, query, id, userID)
	if err != nil {
		return fmt.Errorf("delete pending pass request: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete pending pass request: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// PurgeResolved deletes the user's resolved requests and returns how many
// rows went away.
func (r *PassRequestRepository) PurgeResolved(ctx context.Context, userID string) (int64, error) {
	const query = `DELETE FROM pass_requests WHERE user_id = $1 AND status IN ('APPROVED', 'REJECTED')`
	result, err := r.db.ExecContext(ctx, query, userID)
	if err != nil {
		return 0, fmt.Errorf("purge resolved pass requests: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("purge resolved pass requests: %w", err)
	}
	return rows, nil
}
