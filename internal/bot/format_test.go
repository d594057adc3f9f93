package bot

import (
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/alumni-portal-api/internal/models"
)

func TestRenderCoursesNumbersEntries(t *testing.T) {
	out := renderCourses([]models.Course{
		{ID: "c1", Name: "Robotics", Instructor: "Dr. Ada"},
		{ID: "c2", Name: "Watercolor"},
	})

	assert.Contains(t, out, "1. Robotics (Dr. Ada)")
	assert.Contains(t, out, "2. Watercolor")
	assert.Contains(t, out, "/enroll")
}

func TestRenderCoursesEmpty(t *testing.T) {
	out := renderCourses(nil)
	assert.Contains(t, out, "No electives")
}

func TestRenderRequestsShowsFeedback(t *testing.T) {
	feedback := "room is full"
	out := renderRequests(
		[]models.CourseRequestDetail{
			{
				CourseRequest: models.CourseRequest{ID: "req-1", Status: models.RequestStatusRejected, Feedback: &feedback},
				CourseName:    "Robotics",
			},
		},
		[]models.PassRequestDetail{
			{
				PassRequest: models.PassRequest{
					ID:            "pass-1",
					Status:        models.RequestStatusPending,
					RequestedDate: time.Date(2026, 9, 12, 0, 0, 0, 0, time.UTC),
					Guests:        pq.StringArray{"Sam", "Lee"},
				},
			},
		},
	)

	assert.Contains(t, out, "[REJECTED] Robotics (req-1) (feedback: room is full)")
	assert.Contains(t, out, "[PENDING] 2026-09-12, 2 guest(s) (pass-1)")
}

func TestRenderRequestsEmpty(t *testing.T) {
	assert.Equal(t, "You have no requests on file.", renderRequests(nil, nil))
}

func TestRenderPendingListsBothKinds(t *testing.T) {
	out := renderPending(
		[]models.CourseRequestDetail{
			{
				CourseRequest:  models.CourseRequest{ID: "req-1"},
				CourseName:     "Robotics",
				RequesterName:  "Dana Cole",
				RequesterEmail: "dana@example.com",
			},
		},
		[]models.PassRequestDetail{
			{
				PassRequest: models.PassRequest{
					ID:            "pass-1",
					RequestedDate: time.Date(2026, 9, 12, 0, 0, 0, 0, time.UTC),
				},
				RequesterName:  "Eli Park",
				RequesterEmail: "eli@example.com",
			},
		},
	)

	assert.Contains(t, out, `course "Robotics" for Dana Cole (dana@example.com), id req-1`)
	assert.Contains(t, out, "pass on 2026-09-12 for Eli Park (eli@example.com), 0 guest(s), id pass-1")
	assert.Contains(t, out, "/approve")
}
