package models

// CatalogModule is one module entry of the catalog contract. Upstream
// catalogs may send the id as a number.
type CatalogModule struct {
	ID            SubjectID `json:"id"`
	Code          string    `json:"code"`
	Name          string    `json:"name"`
	UnitName      string    `json:"unitName"`
	LectureHours  float64   `json:"lectureHours"`
	TutorialHours float64   `json:"tutorialHours"`
}

// CatalogResponse is the modules-by-class payload. It is served and consumed
// as is, outside the usual response envelope.
type CatalogResponse struct {
	Success    bool            `json:"success"`
	ClassLabel string          `json:"classLabel,omitempty"`
	Modules    []CatalogModule `json:"modules,omitempty"`
	Count      int             `json:"count,omitempty"`
	Error      string          `json:"error,omitempty"`
}

// OptionItem is an entry of a select control.
type OptionItem struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Email string `json:"email,omitempty"`
	Level string `json:"level,omitempty"`
	Track string `json:"track,omitempty"`
}
