package service

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/alumni-portal-api/internal/models"
	appErrors "github.com/noah-isme/alumni-portal-api/pkg/errors"
)

type mockUserRepo struct {
	users       map[string]*models.User
	directory   []models.DirectoryEntry
	linkErr     error
	linkedID    int64
	linkedUser  string
	listedCalls int
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: make(map[string]*models.User)}
}

func (m *mockUserRepo) FindByID(_ context.Context, id string) (*models.User, error) {
	user, ok := m.users[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *user
	return &copied, nil
}

func (m *mockUserRepo) UpdateProfile(_ context.Context, user *models.User) error {
	if _, ok := m.users[user.ID]; !ok {
		return sql.ErrNoRows
	}
	copied := *user
	m.users[user.ID] = &copied
	return nil
}

func (m *mockUserRepo) LinkTelegram(_ context.Context, id string, telegramID int64, _ string) error {
	if m.linkErr != nil {
		return m.linkErr
	}
	m.linkedUser = id
	m.linkedID = telegramID
	return nil
}

func (m *mockUserRepo) ListDirectory(_ context.Context, filter models.UserFilter) ([]models.DirectoryEntry, int, error) {
	m.listedCalls++
	if filter.PageSize <= 0 {
		return m.directory, len(m.directory), nil
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	start := (page - 1) * filter.PageSize
	if start >= len(m.directory) {
		return nil, len(m.directory), nil
	}
	end := start + filter.PageSize
	if end > len(m.directory) {
		end = len(m.directory)
	}
	return m.directory[start:end], len(m.directory), nil
}

func TestUserServiceUpdateProfileKeepsOmittedFields(t *testing.T) {
	repo := newMockUserRepo()
	repo.users["u1"] = &models.User{ID: "u1", FullName: "Dana Cole", City: "Riga", Company: "Acme"}
	svc := NewUserService(repo, nil, 0, nil, nil)

	city := "Tallinn"
	updated, err := svc.UpdateProfile(context.Background(), "u1", UpdateProfileRequest{City: &city})

	require.NoError(t, err)
	assert.Equal(t, "Tallinn", updated.City)
	assert.Equal(t, "Dana Cole", updated.FullName)
	assert.Equal(t, "Acme", updated.Company)
}

func TestUserServiceUpdateProfileUnknownUser(t *testing.T) {
	svc := NewUserService(newMockUserRepo(), nil, 0, nil, nil)

	name := "Ghost"
	_, err := svc.UpdateProfile(context.Background(), "missing", UpdateProfileRequest{FullName: &name})

	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
}

func TestUserServiceLinkTelegram(t *testing.T) {
	repo := newMockUserRepo()
	repo.users["u1"] = &models.User{ID: "u1"}
	svc := NewUserService(repo, nil, 0, nil, nil)

	require.NoError(t, svc.LinkTelegram(context.Background(), "u1", 777, "dana"))
	assert.Equal(t, "u1", repo.linkedUser)
	assert.Equal(t, int64(777), repo.linkedID)
}

func TestUserServiceLinkTelegramAlreadyLinked(t *testing.T) {
	repo := newMockUserRepo()
	repo.users["u1"] = &models.User{ID: "u1"}
	repo.linkErr = appErrors.Clone(appErrors.ErrConflict, "duplicate")
	svc := NewUserService(repo, nil, 0, nil, nil)

	err := svc.LinkTelegram(context.Background(), "u1", 777, "dana")

	assert.True(t, appErrors.Is(err, appErrors.ErrConflict))
}

func TestUserServiceExportDirectoryCSV(t *testing.T) {
	repo := newMockUserRepo()
	repo.directory = []models.DirectoryEntry{
		{
			User:               models.User{FullName: "Dana Cole", Email: "dana@example.com", GraduationYear: "2015", City: "Riga"},
			CourseRequestCount: 2,
			PassRequestCount:   1,
			DonationCount:      3,
		},
	}
	svc := NewUserService(repo, nil, 0, nil, nil)

	payload, filename, err := svc.ExportDirectory(context.Background(), "csv")

	require.NoError(t, err)
	assert.Equal(t, "alumni-directory.csv", filename)
	lines := strings.Split(strings.TrimSpace(string(payload)), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "Name,Email,Graduation Year"))
	assert.Contains(t, lines[1], "Dana Cole")
	assert.Contains(t, lines[1], ",3")
}

func TestUserServiceExportDirectoryPagesBeyondRepositoryCap(t *testing.T) {
	repo := newMockUserRepo()
	for i := 0; i < 150; i++ {
		repo.directory = append(repo.directory, models.DirectoryEntry{
			User: models.User{FullName: fmt.Sprintf("Alum %03d", i), Email: fmt.Sprintf("alum%03d@example.com", i)},
		})
	}
	svc := NewUserService(repo, nil, 0, nil, nil)

	payload, _, err := svc.ExportDirectory(context.Background(), "csv")

	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(payload)), "\n")
	assert.Len(t, lines, 151)
	assert.Contains(t, lines[150], "Alum 149")
	assert.Equal(t, 2, repo.listedCalls)
}

func TestUserServiceExportDirectoryBadFormat(t *testing.T) {
	svc := NewUserService(newMockUserRepo(), nil, 0, nil, nil)

	_, _, err := svc.ExportDirectory(context.Background(), "xlsx")

	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

func TestUserServiceListDirectoryPagination(t *testing.T) {
	repo := newMockUserRepo()
	repo.directory = []models.DirectoryEntry{
		{User: models.User{FullName: "Dana Cole"}},
		{User: models.User{FullName: "Eli Park"}},
	}
	svc := NewUserService(repo, nil, 0, nil, nil)

	entries, pagination, err := svc.ListDirectory(context.Background(), models.UserFilter{})

	require.NoError(t, err)
	assert.Len(t, entries, 2)
	assert.Equal(t, 1, pagination.Page)
	assert.Equal(t, 20, pagination.PageSize)
	assert.Equal(t, 2, pagination.TotalCount)
	assert.Equal(t, 1, repo.listedCalls)
}
