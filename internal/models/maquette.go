package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Maquette is the curriculum of a class: its teaching units and their subjects.
type Maquette struct {
	ID        string        `db:"id" json:"id"`
	ClassID   string        `db:"class_id" json:"class_id"`
	Units     TeachingUnits `db:"unites_enseignement" json:"unites_enseignement"`
	Active    bool          `db:"active" json:"active"`
	CreatedAt time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt time.Time     `db:"updated_at" json:"updated_at"`
}

// TeachingUnit groups the subjects of one unit of a curriculum.
type TeachingUnit struct {
	Label    string    `json:"libelle"`
	Subjects []Subject `json:"matieres"`
}

// Subject is one curriculum entry. Hour volumes are optional in stored data.
type Subject struct {
	ID            SubjectID `json:"id"`
	Code          string    `json:"code"`
	Name          string    `json:"nom"`
	LectureHours  *float64  `json:"volume_horaire_cm,omitempty"`
	TutorialHours *float64  `json:"volume_horaire_td,omitempty"`
}

// SubjectID accepts both string and numeric ids found in stored curricula.
type SubjectID string

// UnmarshalJSON implements json.Unmarshaler.
func (id *SubjectID) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*id = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*id = SubjectID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("subject id: %w", err)
	}
	*id = SubjectID(n.String())
	return nil
}

// TeachingUnits is the jsonb column holding a curriculum's units.
type TeachingUnits []TeachingUnit

// Scan implements sql.Scanner for jsonb values.
func (u *TeachingUnits) Scan(src interface{}) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*u = nil
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("teaching units: unsupported type %T", src)
	}
	if len(raw) == 0 {
		*u = nil
		return nil
	}
	return json.Unmarshal(raw, u)
}

// Value implements driver.Valuer.
func (u TeachingUnits) Value() (driver.Value, error) {
	if u == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(u)
}
