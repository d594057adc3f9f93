package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/alumni-portal-api/internal/models"
	appErrors "github.com/noah-isme/alumni-portal-api/pkg/errors"
)

func userRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "email", "password_hash", "full_name", "role", "contact_email", "phone",
		"graduation_year", "graduated_track", "about", "city", "company", "position",
		"telegram_id", "telegram_handle", "volunteer", "verified", "verification_code",
		"active", "last_login", "created_at", "updated_at",
	})
}

func TestUserRepositoryFindByEmail(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	rows := userRows().AddRow(
		"user-1", "jane@example.com", "$2a$10$hash", "Jane Doe", models.RoleAlumni, "", "",
		2015, "", "", "", "", "", nil, "", false, true, "", true, nil, time.Now(), time.Now(),
	)
	mock.ExpectQuery("SELECT (.+) FROM users WHERE email = \\$1 LIMIT 1").
		WithArgs("jane@example.com").
		WillReturnRows(rows)

	user, err := repo.FindByEmail(context.Background(), "jane@example.com")
	require.NoError(t, err)
	require.Equal(t, "Jane Doe", user.FullName)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepositoryFindByEmailNotFound(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectQuery("SELECT (.+) FROM users WHERE email = \\$1 LIMIT 1").
		WithArgs("missing@example.com").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByEmail(context.Background(), "missing@example.com")
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepositoryCreateDuplicateEmail(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectExec("INSERT INTO users").
		WillReturnError(&pq.Error{Code: "23505", Constraint: "users_email_key"})

	err := repo.Create(context.Background(), &models.User{Email: "jane@example.com"})
	require.Error(t, err)
	require.True(t, appErrors.Is(err, appErrors.ErrConflict))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepositoryFindByTelegramID(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	tgID := int64(987654321)
	rows := userRows().AddRow(
		"user-1", "jane@example.com", "$2a$10$hash", "Jane Doe", models.RoleAlumni, "", "",
		2015, "", "", "", "", "", tgID, "janedoe", false, true, "", true, nil, time.Now(), time.Now(),
	)
	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE telegram_id = $1 LIMIT 1")).
		WithArgs(tgID).
		WillReturnRows(rows)

	user, err := repo.FindByTelegramID(context.Background(), tgID)
	require.NoError(t, err)
	require.NotNil(t, user.TelegramID)
	require.Equal(t, tgID, *user.TelegramID)
	require.NoError(t, mock.ExpectationsWereMet())
}
