package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/alumni-portal-api/internal/models"
	appErrors "github.com/noah-isme/alumni-portal-api/pkg/errors"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestCourseRequestRepositoryHasPending(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewCourseRequestRepository(db)

	rows := sqlmock.NewRows([]string{"exists"}).AddRow(true)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS (SELECT 1 FROM course_requests WHERE user_id = $1 AND course_id = $2 AND status = 'PENDING')")).
		WithArgs("user-1", "course-1").
		WillReturnRows(rows)

	exists, err := repo.HasPending(context.Background(), "user-1", "course-1")
	require.NoError(t, err)
	require.True(t, exists)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseRequestRepositoryCreateDuplicateMapsToConflict(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewCourseRequestRepository(db)

	mock.ExpectExec("INSERT INTO course_requests").
		WillReturnError(&pq.Error{Code: "23505", Constraint: "course_requests_pending_unique"})

	err := repo.Create(context.Background(), &models.CourseRequest{UserID: "user-1", CourseID: "course-1"})
	require.True(t, appErrors.Is(err, appErrors.ErrConflict))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseRequestRepositoryUpdateStatusOnlyTouchesPending(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewCourseRequestRepository(db)

	feedback := "welcome aboard"
	mock.ExpectExec(regexp.QuoteMeta("UPDATE course_requests SET status = $2, feedback = $3, updated_at = $4 WHERE id = $1 AND status = 'PENDING'")).
		WithArgs("req-1", models.RequestStatusApproved, &feedback, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.UpdateStatus(context.Background(), "req-1", models.RequestStatusApproved, &feedback)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseRequestRepositoryUpdateStatusAlreadyResolved(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewCourseRequestRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE course_requests SET status = $2, feedback = $3, updated_at = $4 WHERE id = $1 AND status = 'PENDING'")).
		WithArgs("req-1", models.RequestStatusRejected, nil, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateStatus(context.Background(), "req-1", models.RequestStatusRejected, nil)
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseRequestRepositoryPurgeResolvedReportsCount(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewCourseRequestRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM course_requests WHERE user_id = $1 AND status IN ('APPROVED', 'REJECTED')")).
		WithArgs("user-1").
		WillReturnResult(sqlmock.NewResult(0, 2))

	purged, err := repo.PurgeResolved(context.Background(), "user-1")
	require.NoError(t, err)
	require.Equal(t, int64(2), purged)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseRequestRepositoryDeletePendingForeignRowUntouched(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewCourseRequestRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM course_requests WHERE id = $1 AND user_id = $2 AND status = 'PENDING'")).
		WithArgs("req-1", "someone-else").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.DeletePending(context.Background(), "req-1", "someone-else")
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseRequestRepositoryListKeepsHistoryAfterCourseDeleted(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewCourseRequestRepository(db)

	rows := sqlmock.NewRows([]string{"id", "user_id", "course_id", "status", "feedback", "created_at", "updated_at", "course_name", "instructor", "requester_name", "requester_email"}).
		AddRow("req-1", "user-1", "course-gone", models.RequestStatusRejected, nil, time.Now(), time.Now(), "", "", "Jane Doe", "jane@example.com")
	mock.ExpectQuery("LEFT JOIN courses c ON c.id = cr.course_id").
		WithArgs("user-1").
		WillReturnRows(rows)

	requests, err := repo.List(context.Background(), models.RequestFilter{UserID: "user-1"})
	require.NoError(t, err)
	require.Len(t, requests, 1)
	require.Equal(t, models.RequestStatusRejected, requests[0].Status)
	require.Empty(t, requests[0].CourseName)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseRequestRepositoryFindByIDSurvivesCourseDeletion(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewCourseRequestRepository(db)

	rows := sqlmock.NewRows([]string{"id", "user_id", "course_id", "status", "feedback", "created_at", "updated_at", "course_name", "instructor", "requester_name", "requester_email"}).
		AddRow("req-1", "user-1", "course-gone", models.RequestStatusApproved, nil, time.Now(), time.Now(), "", "", "Jane Doe", "jane@example.com")
	mock.ExpectQuery("LEFT JOIN courses c ON c.id = cr.course_id").
		WithArgs("req-1").
		WillReturnRows(rows)

	detail, err := repo.FindByID(context.Background(), "req-1")
	require.NoError(t, err)
	require.Equal(t, models.RequestStatusApproved, detail.Status)
	require.Empty(t, detail.CourseName)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseRequestRepositoryListFiltersByStatus(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewCourseRequestRepository(db)

	rows := sqlmock.NewRows([]string{"id", "user_id", "course_id", "status", "feedback", "created_at", "updated_at", "course_name", "instructor", "requester_name", "requester_email"}).
		AddRow("req-1", "user-1", "course-1", models.RequestStatusPending, nil, time.Now(), time.Now(), "Robotics", "I. Petrov", "Jane Doe", "jane@example.com")
	mock.ExpectQuery("SELECT cr.id, cr.user_id, cr.course_id").
		WithArgs(models.RequestStatusPending).
		WillReturnRows(rows)

	requests, err := repo.List(context.Background(), models.RequestFilter{Status: models.RequestStatusPending})
	require.NoError(t, err)
	require.Len(t, requests, 1)
	require.Equal(t, "Robotics", requests[0].CourseName)
	require.NoError(t, mock.ExpectationsWereMet())
}
