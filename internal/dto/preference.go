package dto

// ThemeRequest stores the client's theme choice.
type ThemeRequest struct {
	Theme string `json:"theme" validate:"required,oneof=light dark"`
}
