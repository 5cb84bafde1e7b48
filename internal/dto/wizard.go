package dto

// CreateWizardSessionRequest opens a wizard session. The CSRF token is
// forwarded with the final form post.
type CreateWizardSessionRequest struct {
	CSRFToken string `json:"csrfToken" validate:"omitempty,max=256"`
}

// SelectTeacherRequest selects or clears (empty id) the teacher.
type SelectTeacherRequest struct {
	TeacherID string `json:"teacherId" validate:"omitempty,max=64"`
}

// SelectClassRequest selects or clears (empty id) the class.
type SelectClassRequest struct {
	ClassID string `json:"classId" validate:"omitempty,max=64"`
}

// ToggleModuleRequest adds or removes a module from the selection.
type ToggleModuleRequest struct {
	Selected *bool `json:"selected" validate:"required"`
}

// ExportQuery picks the recap format.
type ExportQuery struct {
	Format string `form:"format" validate:"omitempty,oneof=csv pdf xlsx CSV PDF XLSX"`
}
