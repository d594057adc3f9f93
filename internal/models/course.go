package models

import "time"

// Course is an elective course alumni may request to join.
type Course struct {
	ID          string    `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Instructor  string    `db:"instructor" json:"instructor,omitempty"`
	Mode        string    `db:"mode" json:"mode,omitempty"`
	Description string    `db:"description" json:"description,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}
