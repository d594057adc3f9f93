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

// CourseRequestRepository provides database access for elective enrollment
// requests.
type CourseRequestRepository struct {
	db *sqlx.DB
}

// NewCourseRequestRepository creates a new instance of CourseRequestRepository.
func NewCourseRequestRepository(db *sqlx.DB) *CourseRequestRepository {
	return &CourseRequestRepository{db: db}
}

// Create inserts a new request in PENDING state.
func (r *CourseRequestRepository) Create(ctx context.Context, request *models.CourseRequest) error {
	if request.ID == "" {
		request.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	request.Status = models.RequestStatusPending
	request.CreatedAt = now
	request.UpdatedAt = now

	const query = `INSERT INTO course_requests (id, user_id, course_id, status, feedback, created_at, updated_at)
        VALUES (:id, :user_id, :course_id, :status, :feedback, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, request); err != nil {
		return fmt.Errorf("create course request: %w", translateUniqueViolation(err))
	}
	return nil
}

// FindByID returns a request with course and requester details. The course
// join is left-outer so resolved history survives course deletion.
func (r *CourseRequestRepository) FindByID(ctx context.Context, id string) (*models.CourseRequestDetail, error) {
	const query = `SELECT cr.id, cr.user_id, cr.course_id, cr.status, cr.feedback, cr.created_at, cr.updated_at,
        COALESCE(c.name, '') AS course_name, COALESCE(c.instructor, '') AS instructor,
        u.full_name AS requester_name, u.email AS requester_email
        FROM course_requests cr
        LEFT JOIN courses c ON c.id = cr.course_id
        JOIN users u ON u.id = cr.user_id
        WHERE cr.id = $1 LIMIT 1`
	var detail models.CourseRequestDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find course request: %w", err)
	}
	return &detail, nil
}

// List returns requests matching the filter, newest first.
func (r *CourseRequestRepository) List(ctx context.Context, filter models.RequestFilter) ([]models.CourseRequestDetail, error) {
	baseQuery := `SELECT cr.id, cr.user_id, cr.course_id, cr.status, cr.feedback, cr.created_at, cr.updated_at,
        COALESCE(c.name, '') AS course_name, COALESCE(c.instructor, '') AS instructor,
        u.full_name AS requester_name, u.email AS requester_email
        FROM course_requests cr
        LEFT JOIN courses c ON c.id = cr.course_id
        JOIN users u ON u.id = cr.user_id
        WHERE 1=1`
	var conditions []string
	var args []interface{}

	if filter.UserID != "" {
		conditions = append(conditions, fmt.Sprintf("cr.user_id = $%d", len(args)+1))
		args = append(args, filter.UserID)
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("cr.status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}
	if len(conditions) > 0 {
		baseQuery += " AND " + strings.Join(conditions, " AND ")
	}
	baseQuery += " ORDER BY cr.created_at DESC"

	var requests []models.CourseRequestDetail
	if err := r.db.SelectContext(ctx, &requests, baseQuery, args...); err != nil {
		return nil, fmt.Errorf("list course requests: %w", err)
	}
	return requests, nil
}

// HasPending reports whether the user already has an open request for the
// course.
func (r *CourseRequestRepository) HasPending(ctx context.Context, userID, courseID string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM course_requests WHERE user_id = $1 AND course_id = $2 AND status = 'PENDING')`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, userID, courseID); err != nil {
		return false, fmt.Errorf("check pending course request: %w", err)
	}
	return exists, nil
}

// UpdateStatus records the resolution of a request. Only PENDING rows are
// touched; a zero row count means the request vanished or was already
// resolved.
func (r *CourseRequestRepository) UpdateStatus(ctx context.Context, id string, status models.RequestStatus, feedback *string) error {
	const query = `UPDATE course_requests SET status = $2, feedback = $3, updated_at = $4 WHERE id = $1 AND status = 'PENDING'`
	result, err := r.db.ExecContext(ctx, query, id, status, feedback, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update course request status: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update course request status: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// DeletePending removes the user's own request while it is still open.
func (r *CourseRequestRepository) DeletePending(ctx context.Context, id, userID string) error {
	const query = `DELETE FROM course_requests WHERE id = $1 AND user_id = $2 AND status = 'PENDING'`
	result, err := r.db.ExecContext(ctx, query, id, userID)
	if err != nil {
		return fmt.Errorf("delete pending course request: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete pending course request: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// PurgeResolved deletes the user's resolved requests and returns how many
// rows went away. Open requests survive the purge.
func (r *CourseRequestRepository) PurgeResolved(ctx context.Context, userID string) (int64, error) {
	const query = `DELETE FROM course_requests WHERE user_id = $1 AND status IN ('APPROVED', 'REJECTED')`
	result, err := r.db.ExecContext(ctx, query, userID)
	if err != nil {
		return 0, fmt.Errorf("purge resolved course requests: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("purge resolved course requests: %w", err)
	}
	return rows, nil
}
