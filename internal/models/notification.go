package models

// RequestKind distinguishes the two moderated request variants in
// notifications and bot output.
type RequestKind string

const (
	RequestKindCourse RequestKind = "COURSE"
	RequestKindPass   RequestKind = "PASS"
)

// ResolutionEvent is emitted when an admin resolves a request. Dispatch is
// fire-and-forget; a lost event never undoes the transition.
type ResolutionEvent struct {
	RequestID string        `json:"request_id"`
	UserID    string        `json:"user_id"`
	Kind      RequestKind   `json:"kind"`
	Outcome   RequestStatus `json:"outcome"`
	Feedback  string        `json:"feedback"`
	Subject   string        `json:"subject"`
}
