package models

import (
	"time"

	"github.com/lib/pq"
)

// PassRequest is an alumni request for a campus entry pass. Guests are kept
// as a native text[] column so names round-trip without a delimiter.
type PassRequest struct {
	ID            string         `db:"id" json:"id"`
	UserID        string         `db:"user_id" json:"user_id"`
	Description   string         `db:"description" json:"description,omitempty"`
	RequestedDate time.Time      `db:"requested_date" json:"requested_date"`
	Guests        pq.StringArray `db:"guests" json:"guests"`
	Status        RequestStatus  `db:"status" json:"status"`
	Feedback      *string        `db:"feedback" json:"feedback,omitempty"`
	CreatedAt     time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time      `db:"updated_at" json:"updated_at"`
}

// PassRequestDetail enriches PassRequest with requester info for admin views.
type PassRequestDetail struct {
	PassRequest
	RequesterName  string `db:"requester_name" json:"requester_name,omitempty"`
	RequesterEmail string `db:"requester_email" json:"requester_email,omitempty"`
}
