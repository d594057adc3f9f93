package models

import "time"

// UserRole represents the available roles for the RBAC system.
type UserRole string

const (
	RoleAdmin  UserRole = "ADMIN"
	RoleAlumni UserRole = "ALUMNI"
)

// User represents a portal account stored in the users table. Alumni fill in
// the optional profile fields after registration; telegram columns are set
// when the account is linked through the bot.
type User struct {
	ID               string     `db:"id" json:"id"`
	Email            string     `db:"email" json:"email"`
	PasswordHash     string     `db:"password_hash" json:"-"`
	FullName         string     `db:"full_name" json:"full_name"`
	Role             UserRole   `db:"role" json:"role"`
	ContactEmail     string     `db:"contact_email" json:"contact_email,omitempty"`
	Phone            string     `db:"phone" json:"phone,omitempty"`
	GraduationYear   string     `db:"graduation_year" json:"graduation_year,omitempty"`
	GraduatedTrack   string     `db:"graduated_track" json:"graduated_track,omitempty"`
	About            string     `db:"about" json:"about,omitempty"`
	City             string     `db:"city" json:"city,omitempty"`
	Company          string     `db:"company" json:"company,omitempty"`
	Position         string     `db:"position" json:"position,omitempty"`
	TelegramID       *int64     `db:"telegram_id" json:"telegram_id,omitempty"`
	TelegramHandle   string     `db:"telegram_handle" json:"telegram_handle,omitempty"`
	Volunteer        bool       `db:"volunteer" json:"volunteer"`
	Verified         bool       `db:"verified" json:"verified"`
	VerificationCode string     `db:"verification_code" json:"-"`
	Active           bool       `db:"active" json:"active"`
	LastLogin        *time.Time `db:"last_login" json:"last_login,omitempty"`
	CreatedAt        time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time  `db:"updated_at" json:"updated_at"`
}

// DirectoryEntry is a user row enriched with activity counts for the admin
// alumni directory.
type DirectoryEntry struct {
	User
	CourseRequestCount int `db:"course_request_count" json:"course_request_count"`
	PassRequestCount   int `db:"pass_request_count" json:"pass_request_count"`
	DonationCount      int `db:"donation_count" json:"donation_count"`
}

// UserFilter captures filtering criteria for listing users.
type UserFilter struct {
	Role      *UserRole
	Active    *bool
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
