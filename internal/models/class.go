package models

import "time"

// Class is an academic class (a level within a track).
type Class struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Level     string    `db:"level" json:"level"`
	Track     string    `db:"track" json:"track"`
	Active    bool      `db:"active" json:"active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// ClassFilter narrows the class option list.
type ClassFilter struct {
	Level  string
	Track  string
	Search string
	Limit  int
}
