package models

import "time"

// RequestStatus represents the lifecycle of a moderated request. The only
// legal transition is PENDING to one of the terminal states.
type RequestStatus string

const (
	RequestStatusPending  RequestStatus = "PENDING"
	RequestStatusApproved RequestStatus = "APPROVED"
	RequestStatusRejected RequestStatus = "REJECTED"
)

// Terminal reports whether the status permits no further transitions.
func (s RequestStatus) Terminal() bool {
	return s == RequestStatusApproved || s == RequestStatusRejected
}

// ValidOutcome reports whether the status is an acceptable resolution target.
func (s RequestStatus) ValidOutcome() bool {
	return s == RequestStatusApproved || s == RequestStatusRejected
}

// CourseRequest is an alumni request to join an elective course.
type CourseRequest struct {
	ID        string        `db:"id" json:"id"`
	UserID    string        `db:"user_id" json:"user_id"`
	CourseID  string        `db:"course_id" json:"course_id"`
	Status    RequestStatus `db:"status" json:"status"`
	Feedback  *string       `db:"feedback" json:"feedback,omitempty"`
	CreatedAt time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt time.Time     `db:"updated_at" json:"updated_at"`
}

// CourseRequestDetail enriches CourseRequest with course and requester info.
type CourseRequestDetail struct {
	CourseRequest
	CourseName     string `db:"course_name" json:"course_name"`
	Instructor     string `db:"instructor" json:"instructor,omitempty"`
	RequesterName  string `db:"requester_name" json:"requester_name,omitempty"`
	RequesterEmail string `db:"requester_email" json:"requester_email,omitempty"`
}

// RequestFilter scopes request listings. An empty UserID spans all
// requesters and is reserved for admin callers.
type RequestFilter struct {
	UserID string
	Status RequestStatus
}
