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

// CourseRepository provides database access for the elective catalog.
type CourseRepository struct {
	db *sqlx.DB
}

// NewCourseRepository creates a new instance of CourseRepository.
func NewCourseRepository(db *sqlx.DB) *CourseRepository {
	return &CourseRepository{db: db}
}

// List returns all courses ordered by name.
func (r *CourseRepository) List(ctx context.Context) ([]models.Course, error) {
	const query = `SELECT id, name, instructor, mode, description, created_at, updated_at FROM courses ORDER BY name ASC`
	var courses []models.Course
	if err := r.db.SelectContext(ctx, &courses, query); err != nil {
		return nil, fmt.Errorf("list courses: %w", err)
	}
	return courses, nil
}

// ListAvailableFor returns courses the given user has no open or approved
// request for, ordered by name.
func (r *CourseRepository) ListAvailableFor(ctx context.Context, userID string) ([]models.Course, error) {
	const query = `SELECT c.id, c.name, c.instructor, c.mode, c.description, c.created_at, c.updated_at
        FROM courses c
        WHERE NOT EXISTS (
            SELECT 1 FROM course_requests cr
            WHERE cr.course_id = c.id AND cr.user_id = $1 AND cr.status IN ('PENDING', 'APPROVED')
        )
        ORDER BY c.name ASC`
	var courses []models.Course
	if err := r.db.SelectContext(ctx, &courses, query, userID); err != nil {
		return nil, fmt.Errorf("list available courses: %w", err)
	}
	return courses, nil
}

// FindByID returns a single course.
func (r *CourseRepository) FindByID(ctx context.Context, id string) (*models.Course, error) {
	const query = `SELECT id, name, instructor, mode, description, created_at, updated_at FROM courses WHERE id = $1 LIMIT 1`
	var course models.Course
	if err := r.db.GetContext(ctx, &course, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find course: %w", err)
	}
	return &course, nil
}

// Create inserts a new course.
func (r *CourseRepository) Create(ctx context.Context, course *models.Course) error {
	if course.ID == "" {
		course.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	course.CreatedAt = now
	course.UpdatedAt = now

	const query = `INSERT INTO courses (id, name, instructor, mode, description, created_at, updated_at)
        VALUES (:id, :name, :instructor, :mode, :description, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, course); err != nil {
		return fmt.Errorf("create course: %w", translateUniqueViolation(err))
	}
	return nil
}

// Update persists course changes.
func (r *CourseRepository) Update(ctx context.Context, course *models.Course) error {
	course.UpdatedAt = time.Now().UTC()
	const query = `UPDATE courses SET name = :name, instructor = :instructor, mode = :mode, description = :description, updated_at = :updated_at WHERE id = :id`
	result, err := r.db.NamedExecContext(ctx, query, course)
	if err != nil {
		return fmt.Errorf("update course: %w", translateUniqueViolation(err))
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update course: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes a course.
func (r *CourseRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM courses WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete course: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete course: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// CountPendingRequests returns the number of open requests referencing a
// course. Deletion is refused while this is non-zero.
func (r *CourseRepository) CountPendingRequests(ctx context.Context, courseID string) (int, error) {
	const query = `SELECT COUNT(*) FROM course_requests WHERE course_id = $1 AND status = 'PENDING'`
	var count int
	if err := r.db.GetContext(ctx, &count, query, courseID); err != nil {
		return 0, fmt.Errorf("count pending course requests: %w", err)
	}
	return count, nil
}
