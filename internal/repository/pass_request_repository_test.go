package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/alumni-portal-api/internal/models"
	appErrors "github.com/noah-isme/alumni-portal-api/pkg/errors"
)

func TestPassRequestRepositoryCreateStartsPending(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewPassRequestRepository(db)

	mock.ExpectExec("INSERT INTO pass_requests").
		WillReturnResult(sqlmock.NewResult(0, 1))

	request := &models.PassRequest{
		UserID:        "user-1",
		Description:   "reunion visit",
		RequestedDate: time.Date(2026, 9, 12, 0, 0, 0, 0, time.UTC),
		Guests:        pq.StringArray{"Anna Lee", "Omar Diaz"},
	}
	err := repo.Create(context.Background(), request)
	require.NoError(t, err)
	require.NotEmpty(t, request.ID)
	require.Equal(t, models.RequestStatusPending, request.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPassRequestRepositoryCreateDuplicateMapsToConflict(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewPassRequestRepository(db)

	mock.ExpectExec("INSERT INTO pass_requests").
		WillReturnError(&pq.Error{Code: "23505", Constraint: "pass_requests_pending_unique"})

	err := repo.Create(context.Background(), &models.PassRequest{UserID: "user-1"})
	require.True(t, appErrors.Is(err, appErrors.ErrConflict))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPassRequestRepositoryGuestsRoundTrip(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewPassRequestRepository(db)

	guests := pq.StringArray{"Anna Lee", "Omar Diaz", "Wei Chen"}
	raw, err := guests.Value()
	require.NoError(t, err)

	rows := sqlmock.NewRows([]string{"id", "user_id", "description", "requested_date", "guests", "status", "feedback", "created_at", "updated_at", "requester_name", "requester_email"}).
		AddRow("pass-1", "user-1", "family day", time.Now(), raw, models.RequestStatusPending, nil, time.Now(), time.Now(), "Jane Doe", "jane@example.com")
	mock.ExpectQuery(regexp.QuoteMeta("WHERE pr.id = $1 LIMIT 1")).
		WithArgs("pass-1").
		WillReturnRows(rows)

	detail, err := repo.FindByID(context.Background(), "pass-1")
	require.NoError(t, err)
	require.Equal(t, []string(guests), []string(detail.Guests))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPassRequestRepositoryPurgeResolvedLeavesPending(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewPassRequestRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM pass_requests WHERE user_id = $1 AND status IN ('APPROVED', 'REJECTED')")).
		WithArgs("user-1").
		WillReturnResult(sqlmock.NewResult(0, 2))

	purged, err := repo.PurgeResolved(context.Background(), "user-1")
	require.NoError(t, err)
	require.Equal(t, int64(2), purged)
	require.NoError(t, mock.ExpectationsWereMet())
}
