package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/alumni-portal-api/internal/models"
	appErrors "github.com/noah-isme/alumni-portal-api/pkg/errors"
)

type mockCourseRequestRepo struct {
	requests map[string]models.CourseRequestDetail
	pending  map[string]bool
	purged   int64
	deleted  []string
}

func (m *mockCourseRequestRepo) Create(ctx context.Context, request *models.CourseRequest) error {
	if m.requests == nil {
		m.requests = make(map[string]models.CourseRequestDetail)
	}
	if request.ID == "" {
		request.ID = "new-request"
	}
	request.Status = models.RequestStatusPending
	m.requests[request.ID] = models.CourseRequestDetail{CourseRequest: *request}
	return nil
}

func (m *mockCourseRequestRepo) FindByID(ctx context.Context, id string) (*models.CourseRequestDetail, error) {
	if r, ok := m.requests[id]; ok {
		return &r, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockCourseRequestRepo) List(ctx context.Context, filter models.RequestFilter) ([]models.CourseRequestDetail, error) {
	var out []models.CourseRequestDetail
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

func (m *mockCourseRequestRepo) HasPending(ctx context.Context, userID, courseID string) (bool, error) {
	return m.pending[userID+courseID], nil
}

func (m *mockCourseRequestRepo) UpdateStatus(ctx context.Context, id string, status models.RequestStatus, feedback *string) error {
	r, ok := m.requests[id]
	if !ok || r.Status != models.RequestStatusPending {
		return sql.ErrNoRows
	}
	r.Status = status
	r.Feedback = feedback
	m.requests[id] = r
	return nil
}

func (m *mockCourseRequestRepo) DeletePending(ctx context.Context, id, userID string) error {
	r, ok := m.requests[id]
	if !ok || r.UserID != userID || r.Status != models.RequestStatusPending {
		return sql.ErrNoRows
	}
	delete(m.requests, id)
	m.deleted = append(m.deleted, id)
	return nil
}

func (m *mockCourseRequestRepo) PurgeResolved(ctx context.Context, userID string) (int64, error) {
	var count int64
	for id, r := range m.requests {
		if r.UserID == userID && r.Status.Terminal() {
			delete(m.requests, id)
			count++
		}
	}
	m.purged = count
	return count, nil
}

type mockCourseReader struct {
	courses map[string]*models.Course
}

func (m *mockCourseReader) FindByID(ctx context.Context, id string) (*models.Course, error) {
	if c, ok := m.courses[id]; ok {
		return c, nil
	}
	return nil, sql.ErrNoRows
}

type mockNotifier struct {
	events []models.ResolutionEvent
}

func (m *mockNotifier) NotifyResolution(event models.ResolutionEvent) {
	m.events = append(m.events, event)
}

func TestCourseRequestServiceCreate(t *testing.T) {
	repo := &mockCourseRequestRepo{pending: map[string]bool{}}
	courses := &mockCourseReader{courses: map[string]*models.Course{"course-1": {ID: "course-1", Name: "Robotics"}}}
	svc := NewCourseRequestService(repo, courses, nil, nil, nil)

	detail, err := svc.Create(context.Background(), "user-1", CreateCourseRequest{CourseID: "course-1"})
	require.NoError(t, err)
	assert.Equal(t, models.RequestStatusPending, detail.Status)
	assert.Equal(t, "user-1", detail.UserID)
}

func TestCourseRequestServiceCreateMissingCourse(t *testing.T) {
	repo := &mockCourseRequestRepo{}
	courses := &mockCourseReader{courses: map[string]*models.Course{}}
	svc := NewCourseRequestService(repo, courses, nil, nil, nil)

	_, err := svc.Create(context.Background(), "user-1", CreateCourseRequest{CourseID: "missing"})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
}

func TestCourseRequestServiceCreateDuplicatePending(t *testing.T) {
	repo := &mockCourseRequestRepo{pending: map[string]bool{"user-1course-1": true}}
	courses := &mockCourseReader{courses: map[string]*models.Course{"course-1": {ID: "course-1"}}}
	svc := NewCourseRequestService(repo, courses, nil, nil, nil)

	_, err := svc.Create(context.Background(), "user-1", CreateCourseRequest{CourseID: "course-1"})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrConflict))
}

func TestCourseRequestServiceResolveApproves(t *testing.T) {
	repo := &mockCourseRequestRepo{requests: map[string]models.CourseRequestDetail{
		"req-1": {CourseRequest: models.CourseRequest{ID: "req-1", UserID: "user-1", Status: models.RequestStatusPending}, CourseName: "Robotics"},
	}}
	notifier := &mockNotifier{}
	svc := NewCourseRequestService(repo, &mockCourseReader{}, notifier, nil, nil)

	detail, err := svc.Resolve(context.Background(), "req-1", ResolveRequest{Outcome: models.RequestStatusApproved, Feedback: "welcome"})
	require.NoError(t, err)
	assert.Equal(t, models.RequestStatusApproved, detail.Status)
	require.Len(t, notifier.events, 1)
	assert.Equal(t, models.RequestKindCourse, notifier.events[0].Kind)
	assert.Equal(t, "Robotics", notifier.events[0].Subject)
}

func TestCourseRequestServiceResolveTwiceRefused(t *testing.T) {
	repo := &mockCourseRequestRepo{requests: map[string]models.CourseRequestDetail{
		"req-1": {CourseRequest: models.CourseRequest{ID: "req-1", UserID: "user-1", Status: models.RequestStatusPending}},
	}}
	svc := NewCourseRequestService(repo, &mockCourseReader{}, nil, nil, nil)

	_, err := svc.Resolve(context.Background(), "req-1", ResolveRequest{Outcome: models.RequestStatusApproved})
	require.NoError(t, err)

	_, err = svc.Resolve(context.Background(), "req-1", ResolveRequest{Outcome: models.RequestStatusRejected})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrInvalidState))

	// The first outcome survives.
	detail, err := svc.Get(context.Background(), "req-1", "user-1", false)
	require.NoError(t, err)
	assert.Equal(t, models.RequestStatusApproved, detail.Status)
}

func TestCourseRequestServiceResolveVanishedRequest(t *testing.T) {
	notifier := &mockNotifier{}
	svc := NewCourseRequestService(&mockCourseRequestRepo{}, &mockCourseReader{}, notifier, nil, nil)

	_, err := svc.Resolve(context.Background(), "withdrawn-req", ResolveRequest{Outcome: models.RequestStatusApproved})

	// The admin review loop treats a withdrawn request as skippable, so the
	// failure must be a typed not-found, not an internal error.
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
	assert.Empty(t, notifier.events)
}

func TestCourseRequestServiceResolveInvalidOutcome(t *testing.T) {
	svc := NewCourseRequestService(&mockCourseRequestRepo{}, &mockCourseReader{}, nil, nil, nil)

	_, err := svc.Resolve(context.Background(), "req-1", ResolveRequest{Outcome: models.RequestStatusPending})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

func TestCourseRequestServicePurgeResolvedLeavesPending(t *testing.T) {
	repo := &mockCourseRequestRepo{requests: map[string]models.CourseRequestDetail{
		"req-1": {CourseRequest: models.CourseRequest{ID: "req-1", UserID: "user-1", Status: models.RequestStatusApproved}},
		"req-2": {CourseRequest: models.CourseRequest{ID: "req-2", UserID: "user-1", Status: models.RequestStatusRejected}},
		"req-3": {CourseRequest: models.CourseRequest{ID: "req-3", UserID: "user-1", Status: models.RequestStatusPending}},
	}}
	svc := NewCourseRequestService(repo, &mockCourseReader{}, nil, nil, nil)

	purged, err := svc.PurgeResolved(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), purged)

	remaining, err := svc.List(context.Background(), models.RequestFilter{UserID: "user-1"})
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, models.RequestStatusPending, remaining[0].Status)
}

func TestCourseRequestServiceDeletePendingOwnerOnly(t *testing.T) {
	repo := &mockCourseRequestRepo{requests: map[string]models.CourseRequestDetail{
		"req-1": {CourseRequest: models.CourseRequest{ID: "req-1", UserID: "user-1", Status: models.RequestStatusPending}},
	}}
	svc := NewCourseRequestService(repo, &mockCourseReader{}, nil, nil, nil)

	err := svc.DeletePending(context.Background(), "req-1", "someone-else")
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrForbidden))

	err = svc.DeletePending(context.Background(), "req-1", "user-1")
	require.NoError(t, err)
}

func TestCourseRequestServiceDeleteResolvedRefused(t *testing.T) {
	repo := &mockCourseRequestRepo{requests: map[string]models.CourseRequestDetail{
		"req-1": {CourseRequest: models.CourseRequest{ID: "req-1", UserID: "user-1", Status: models.RequestStatusApproved}},
	}}
	svc := NewCourseRequestService(repo, &mockCourseReader{}, nil, nil, nil)

	err := svc.DeletePending(context.Background(), "req-1", "user-1")
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrInvalidState))
}
