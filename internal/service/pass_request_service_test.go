package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/alumni-portal-api/internal/models"
	appErrors "github.com/noah-isme/alumni-portal-api/pkg/errors"
)

type mockPassRequestRepo struct {
	requests map[string]models.PassRequestDetail
	pending  map[string]bool
}

func (m *mockPassRequestRepo) Create(ctx context.Context, request *models.PassRequest) error {
	if m.requests == nil {
		m.requests = make(map[string]models.PassRequestDetail)
	}
	if request.ID == "" {
		request.ID = "new-pass"
	}
	request.Status = models.RequestStatusPending
	m.requests[request.ID] = models.PassRequestDetail{PassRequest: *request}
	return nil
}

func (m *mockPassRequestRepo) FindByID(ctx context.Context, id string) (*models.PassRequestDetail, error) {
	if r, ok := m.requests[id]; ok {
		return &r, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockPassRequestRepo) List(ctx context.Context, filter models.RequestFilter) ([]models.PassRequestDetail, error) {
	var out []models.PassRequestDetail
	for _, r := range m.requests {
		if filter.UserID != "" && r.UserID != filter.UserID {
			continue
		}
		if filter.Status != "" && r.Status != filter.Status {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

func (m *mockPassRequestRepo) HasPendingForDate(ctx context.Context, userID string, date time.Time) (bool, error) {
	return m.pending[userID+date.Format("2006-01-02")], nil
}

func (m *mockPassRequestRepo) UpdateStatus(ctx context.Context, id string, status models.RequestStatus, feedback *string) error {
	r, ok := m.requests[id]
	if !ok || r.Status != models.RequestStatusPending {
		return sql.ErrNoRows
	}
	r.Status = status
	r.Feedback = feedback
	m.requests[id] = r
	return nil
}

func (m *mockPassRequestRepo) DeletePending(ctx context.Context, id, userID string) error {
	r, ok := m.requests[id]
	if !ok || r.UserID != userID || r.Status != models.RequestStatusPending {
		return sql.ErrNoRows
	}
	delete(m.requests, id)
	return nil
}

func (m *mockPassRequestRepo) PurgeResolved(ctx context.Context, userID string) (int64, error) {
	var count int64
	for id, r := range m.requests {
		if r.UserID == userID && r.Status.Terminal() {
			delete(m.requests, id)
			count++
		}
	}
	return count, nil
}

func TestPassRequestServiceCreatePreservesGuestNames(t *testing.T) {
	repo := &mockPassRequestRepo{pending: map[string]bool{}}
	svc := NewPassRequestService(repo, nil, nil, nil)

	guests := []string{"Anna Lee", "Omar Diaz", "O'Brien, Pat"}
	detail, err := svc.Create(context.Background(), "user-1", CreatePassRequest{
		Description:   "reunion visit",
		RequestedDate: "2026-09-12",
		Guests:        guests,
	})
	require.NoError(t, err)
	assert.Equal(t, models.RequestStatusPending, detail.Status)
	assert.Equal(t, guests, []string(detail.Guests))
}

func TestPassRequestServiceCreateBadDate(t *testing.T) {
	svc := NewPassRequestService(&mockPassRequestRepo{}, nil, nil, nil)

	_, err := svc.Create(context.Background(), "user-1", CreatePassRequest{RequestedDate: "12/09/2026"})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

func TestPassRequestServiceCreateDuplicateDate(t *testing.T) {
	repo := &mockPassRequestRepo{pending: map[string]bool{"user-12026-09-12": true}}
	svc := NewPassRequestService(repo, nil, nil, nil)

	_, err := svc.Create(context.Background(), "user-1", CreatePassRequest{RequestedDate: "2026-09-12"})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrConflict))
}

func TestPassRequestServiceResolveNotifiesWithVisitDate(t *testing.T) {
	visit := time.Date(2026, 9, 12, 0, 0, 0, 0, time.UTC)
	repo := &mockPassRequestRepo{requests: map[string]models.PassRequestDetail{
		"pass-1": {PassRequest: models.PassRequest{ID: "pass-1", UserID: "user-1", RequestedDate: visit, Status: models.RequestStatusPending}},
	}}
	notifier := &mockNotifier{}
	svc := NewPassRequestService(repo, notifier, nil, nil)

	detail, err := svc.Resolve(context.Background(), "pass-1", ResolveRequest{Outcome: models.RequestStatusRejected, Feedback: "campus closed"})
	require.NoError(t, err)
	assert.Equal(t, models.RequestStatusRejected, detail.Status)
	require.Len(t, notifier.events, 1)
	assert.Equal(t, models.RequestKindPass, notifier.events[0].Kind)
	assert.Equal(t, "2026-09-12", notifier.events[0].Subject)
}

func TestPassRequestServiceResolveVanishedRequest(t *testing.T) {
	svc := NewPassRequestService(&mockPassRequestRepo{}, nil, nil, nil)

	_, err := svc.Resolve(context.Background(), "gone", ResolveRequest{Outcome: models.RequestStatusApproved})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
}

func TestPassRequestServiceGetForeignRequestForbidden(t *testing.T) {
	repo := &mockPassRequestRepo{requests: map[string]models.PassRequestDetail{
		"pass-1": {PassRequest: models.PassRequest{ID: "pass-1", UserID: "user-1", Status: models.RequestStatusPending}},
	}}
	svc := NewPassRequestService(repo, nil, nil, nil)

	_, err := svc.Get(context.Background(), "pass-1", "user-2", false)
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrForbidden))

	detail, err := svc.Get(context.Background(), "pass-1", "user-2", true)
	require.NoError(t, err)
	assert.Equal(t, "pass-1", detail.ID)
}

func TestPassRequestServicePurgeResolvedCounts(t *testing.T) {
	repo := &mockPassRequestRepo{requests: map[string]models.PassRequestDetail{
		"pass-1": {PassRequest: models.PassRequest{ID: "pass-1", UserID: "user-1", Status: models.RequestStatusApproved}},
		"pass-2": {PassRequest: models.PassRequest{ID: "pass-2", UserID: "user-1", Status: models.RequestStatusPending}},
		"pass-3": {PassRequest: models.PassRequest{ID: "pass-3", UserID: "user-2", Status: models.RequestStatusRejected}},
	}}
	svc := NewPassRequestService(repo, nil, nil, nil)

	purged, err := svc.PurgeResolved(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), purged)

	remaining, err := svc.List(context.Background(), models.RequestFilter{UserID: "user-1"})
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, models.RequestStatusPending, remaining[0].Status)
}
