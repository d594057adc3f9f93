package bot

import (
	"fmt"
	"strings"

	"github.com/noah-isme/alumni-portal-api/internal/models"
)

func renderCourses(courses []models.Course) string {
	if len(courses) == 0 {
		return "No electives open to you right now. Check back later."
	}
	var b strings.Builder
	b.WriteString("Electives you can request:\n")
	for i, c := range courses {
		fmt.Fprintf(&b, "%d. %s", i+1, c.Name)
		if c.Instructor != "" {
			fmt.Fprintf(&b, " (%s)", c.Instructor)
		}
		b.WriteByte('\n')
	}
	b.WriteString("Use /enroll <number> to request one.")
	return b.String()
}

func renderRequests(courseReqs []models.CourseRequestDetail, passReqs []models.PassRequestDetail) string {
	if len(courseReqs) == 0 && len(passReqs) == 0 {
		return "You have no requests on file."
	}
	var b strings.Builder
	if len(courseReqs) > 0 {
		b.WriteString("Course requests:\n")
		for _, r := range courseReqs {
			fmt.Fprintf(&b, "- [%s] %s (%s)%s\n", r.Status, r.CourseName, r.ID, feedbackSuffix(r.Feedback))
		}
	}
	if len(passReqs) > 0 {
		b.WriteString("Campus passes:\n")
		for _, r := range passReqs {
			fmt.Fprintf(&b, "- [%s] %s, %d guest(s) (%s)%s\n", r.Status, r.RequestedDate.Format("2006-01-02"), len(r.Guests), r.ID, feedbackSuffix(r.Feedback))
		}
	}
	b.WriteString("Use /cancel <id> to withdraw a pending one, /clear to drop resolved ones.")
	return b.String()
}

func renderPending(courseReqs []models.CourseRequestDetail, passReqs []models.PassRequestDetail) string {
	var b strings.Builder
	b.WriteString("Awaiting review:\n")
	for _, r := range courseReqs {
		fmt.Fprintf(&b, "- course %q for %s (%s), id %s\n", r.CourseName, r.RequesterName, r.RequesterEmail, r.ID)
	}
	for _, r := range passReqs {
		fmt.Fprintf(&b, "- pass on %s for %s (%s), %d guest(s), id %s\n", r.RequestedDate.Format("2006-01-02"), r.RequesterName, r.RequesterEmail, len(r.Guests), r.ID)
	}
	b.WriteString("Use /approve <id> [feedback] or /reject <id> [feedback].")
	return b.String()
}

func feedbackSuffix(feedback *string) string {
	if feedback == nil || *feedback == "" {
		return ""
	}
	return " (feedback: " + *feedback + ")"
}
