package models

import "time"

// ThemePreference is the stored colour theme of one client.
type ThemePreference struct {
	ClientID  string    `json:"client_id"`
	Theme     string    `json:"theme"`
	Source    string    `json:"source"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
}
