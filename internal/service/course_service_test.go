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

type mockCourseRepo struct {
	courses map[string]*models.Course
	pending map[string]int
	deleted []string
}

func (m *mockCourseRepo) List(ctx context.Context) ([]models.Course, error) {
	var out []models.Course
	for _, c := range m.courses {
		out = append(out, *c)
	}
	return out, nil
}

func (m *mockCourseRepo) ListAvailableFor(ctx context.Context, userID string) ([]models.Course, error) {
	return m.List(ctx)
}

func (m *mockCourseRepo) FindByID(ctx context.Context, id string) (*models.Course, error) {
	if c, ok := m.courses[id]; ok {
		return c, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockCourseRepo) Create(ctx context.Context, course *models.Course) error {
	if m.courses == nil {
		m.courses = make(map[string]*models.Course)
	}
	if course.ID == "" {
		course.ID = "course-" + course.Name
	}
	m.courses[course.ID] = course
	return nil
}

func (m *mockCourseRepo) Update(ctx context.Context, course *models.Course) error {
	if _, ok := m.courses[course.ID]; !ok {
		return sql.ErrNoRows
	}
	m.courses[course.ID] = course
	return nil
}

func (m *mockCourseRepo) Delete(ctx context.Context, id string) error {
	if _, ok := m.courses[id]; !ok {
		return sql.ErrNoRows
	}
	delete(m.courses, id)
	m.deleted = append(m.deleted, id)
	return nil
}

func (m *mockCourseRepo) CountPendingRequests(ctx context.Context, courseID string) (int, error) {
	return m.pending[courseID], nil
}

func TestCourseServiceCreateAndGet(t *testing.T) {
	repo := &mockCourseRepo{}
	svc := NewCourseService(repo, nil, 0, nil, nil)

	course, err := svc.Create(context.Background(), SaveCourseRequest{Name: "Robotics", Instructor: "I. Petrov", Mode: "offline"})
	require.NoError(t, err)
	require.NotEmpty(t, course.ID)

	got, err := svc.Get(context.Background(), course.ID)
	require.NoError(t, err)
	assert.Equal(t, "Robotics", got.Name)
}

func TestCourseServiceDeleteRefusedWithOpenRequests(t *testing.T) {
	repo := &mockCourseRepo{
		courses: map[string]*models.Course{"course-1": {ID: "course-1", Name: "Robotics"}},
		pending: map[string]int{"course-1": 2},
	}
	svc := NewCourseService(repo, nil, 0, nil, nil)

	err := svc.Delete(context.Background(), "course-1")
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrConflict))
	assert.Empty(t, repo.deleted)
}

func TestCourseServiceDeleteWithoutReferences(t *testing.T) {
	repo := &mockCourseRepo{
		courses: map[string]*models.Course{"course-1": {ID: "course-1", Name: "Robotics"}},
	}
	svc := NewCourseService(repo, nil, 0, nil, nil)

	err := svc.Delete(context.Background(), "course-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"course-1"}, repo.deleted)
}

func TestCourseServiceUpdateMissing(t *testing.T) {
	svc := NewCourseService(&mockCourseRepo{}, nil, 0, nil, nil)

	_, err := svc.Update(context.Background(), "missing", SaveCourseRequest{Name: "Robotics"})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
}

func TestCourseServiceCreateBatchSkipsDuplicates(t *testing.T) {
	repo := &mockCourseRepo{}
	svc := NewCourseService(repo, nil, 0, nil, nil)

	created, err := svc.CreateBatch(context.Background(), []SaveCourseRequest{
		{Name: "Robotics"},
		{Name: "Public Speaking"},
	})
	require.NoError(t, err)
	assert.Len(t, created, 2)

	_, err = svc.CreateBatch(context.Background(), nil)
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}
