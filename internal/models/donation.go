package models

import "time"

// DonationType separates alumni donations from the admin banner message.
type DonationType string

const (
	DonationTypeAlumni DonationType = "ALUMNI"
	DonationTypeAdmin  DonationType = "ADMIN"
)

// Donation records a donation message left by a user.
type Donation struct {
	ID        string       `db:"id" json:"id"`
	UserID    string       `db:"user_id" json:"user_id"`
	Message   string       `db:"message" json:"message"`
	Type      DonationType `db:"type" json:"type"`
	CreatedAt time.Time    `db:"created_at" json:"created_at"`
}

// DonationDetail enriches Donation with donor info.
type DonationDetail struct {
	Donation
	DonorName  string `db:"donor_name" json:"donor_name"`
	DonorEmail string `db:"donor_email" json:"donor_email"`
}
