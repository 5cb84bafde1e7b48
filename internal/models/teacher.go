package models

import "time"

// Teacher is an instructor that can be offered a pre-contract.
type Teacher struct {
	ID        string    `db:"id" json:"id"`
	FullName  string    `db:"full_name" json:"full_name"`
	Email     string    `db:"email" json:"email"`
	Active    bool      `db:"active" json:"active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// TeacherFilter narrows the teacher option list.
type TeacherFilter struct {
	Search string
	Active *bool
	Limit  int
}
