package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/pedago-admin/internal/dto"
	"github.com/noah-isme/pedago-admin/internal/service"
	appErrors "github.com/noah-isme/pedago-admin/pkg/errors"
	"github.com/noah-isme/pedago-admin/pkg/response"
)

type wizardService interface {
	Create(ctx context.Context, csrfToken string) (*service.WizardSnapshot, error)
	Get(ctx context.Context, id string) (*service.WizardSnapshot, error)
	Delete(ctx context.Context, id string) error
	SelectTeacher(ctx context.Context, id, teacherID string) (*service.WizardSnapshot, error)
	SelectClass(ctx context.Context, id, classID string) (*service.WizardSnapshot, error)
	Advance(ctx context.Context, id string) (*service.WizardSnapshot, error)
	Retreat(ctx context.Context, id string) (*service.WizardSnapshot, error)
	Reload(ctx context.Context, id string) (*service.WizardSnapshot, error)
	ToggleModule(ctx context.Context, id, moduleID string, selected bool) (*service.WizardSnapshot, error)
	Submit(ctx context.Context, id string) (*service.WizardSnapshot, error)
	Export(ctx context.Context, id, format string) (*service.ExportFile, error)
}

// WizardHandler exposes wizard sessions over HTTP. Every mutation answers with
// the session snapshot, failed ones included.
type WizardHandler struct {
	service  wizardService
	validate *validator.Validate
}

// NewWizardHandler builds a wizard handler.
func NewWizardHandler(service wizardService, validate *validator.Validate) *WizardHandler {
	if validate == nil {
		validate = validator.New()
	}
	return &WizardHandler{service: service, validate: validate}
}

// Create godoc
// @Summary Open a wizard session
// @Tags Wizard
// @Accept json
// @Produce json
// @Param payload body dto.CreateWizardSessionRequest false "Session payload"
// @Success 201 {object} response.Envelope
// @Router /wizard/sessions [post]
func (h *WizardHandler) Create(c *gin.Context) {
	var req dto.CreateWizardSessionRequest
	if !h.bind(c, &req, true) {
		return
	}
	snap, err := h.service.Create(c.Request.Context(), req.CSRFToken)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, snap)
}

// Get godoc
// @Summary Current state of a wizard session
// @Tags Wizard
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 410 {object} response.Envelope
// @Router /wizard/sessions/{id} [get]
func (h *WizardHandler) Get(c *gin.Context) {
	snap, err := h.service.Get(c.Request.Context(), c.Param("id"))
	h.reply(c, snap, err)
}

// Delete godoc
// @Summary Close a wizard session
// @Tags Wizard
// @Param id path string true "Session ID"
// @Success 204
// @Router /wizard/sessions/{id} [delete]
func (h *WizardHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// SelectTeacher godoc
// @Summary Select the teacher
// @Tags Wizard
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param payload body dto.SelectTeacherRequest true "Teacher"
// @Success 200 {object} response.Envelope
// @Router /wizard/sessions/{id}/teacher [put]
func (h *WizardHandler) SelectTeacher(c *gin.Context) {
	var req dto.SelectTeacherRequest
	if !h.bind(c, &req, false) {
		return
	}
	snap, err := h.service.SelectTeacher(c.Request.Context(), c.Param("id"), req.TeacherID)
	h.reply(c, snap, err)
}

// SelectClass godoc
// @Summary Select the class
// @Description Changing the class clears the module selection and reloads the catalog when on the modules step.
// @Tags Wizard
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param payload body dto.SelectClassRequest true "Class"
// @Success 200 {object} response.Envelope
// @Router /wizard/sessions/{id}/class [put]
func (h *WizardHandler) SelectClass(c *gin.Context) {
	var req dto.SelectClassRequest
	if !h.bind(c, &req, false) {
		return
	}
	snap, err := h.service.SelectClass(c.Request.Context(), c.Param("id"), req.ClassID)
	h.reply(c, snap, err)
}

// Advance godoc
// @Summary Go to the next step
// @Tags Wizard
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /wizard/sessions/{id}/advance [post]
func (h *WizardHandler) Advance(c *gin.Context) {
	snap, err := h.service.Advance(c.Request.Context(), c.Param("id"))
	h.reply(c, snap, err)
}

// Retreat godoc
// @Summary Go back one step
// @Tags Wizard
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} response.Envelope
// @Router /wizard/sessions/{id}/retreat [post]
func (h *WizardHandler) Retreat(c *gin.Context) {
	snap, err := h.service.Retreat(c.Request.Context(), c.Param("id"))
	h.reply(c, snap, err)
}

// Reload godoc
// @Summary Reload the module catalog
// @Tags Wizard
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} response.Envelope
// @Router /wizard/sessions/{id}/reload [post]
func (h *WizardHandler) Reload(c *gin.Context) {
	snap, err := h.service.Reload(c.Request.Context(), c.Param("id"))
	h.reply(c, snap, err)
}

// ToggleModule godoc
// @Summary Add or remove a module
// @Tags Wizard
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param moduleId path string true "Module ID"
// @Param payload body dto.ToggleModuleRequest true "Selection"
// @Success 200 {object} response.Envelope
// @Router /wizard/sessions/{id}/modules/{moduleId} [put]
func (h *WizardHandler) ToggleModule(c *gin.Context) {
	var req dto.ToggleModuleRequest
	if !h.bind(c, &req, false) {
		return
	}
	snap, err := h.service.ToggleModule(c.Request.Context(), c.Param("id"), c.Param("moduleId"), *req.Selected)
	h.reply(c, snap, err)
}

// Submit godoc
// @Summary Submit the pre-contract
// @Tags Wizard
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Failure 502 {object} response.Envelope
// @Router /wizard/sessions/{id}/submit [post]
func (h *WizardHandler) Submit(c *gin.Context) {
	snap, err := h.service.Submit(c.Request.Context(), c.Param("id"))
	h.reply(c, snap, err)
}

// Export godoc
// @Summary Download the recap of the selection
// @Tags Wizard
// @Produce octet-stream
// @Param id path string true "Session ID"
// @Param format query string false "csv, pdf or xlsx" default(pdf)
// @Success 200 {file} file
// @Router /wizard/sessions/{id}/export [get]
func (h *WizardHandler) Export(c *gin.Context) {
	var query dto.ExportQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid export query"))
		return
	}
	if err := h.validate.Struct(query); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrUnsupportedFormat, "format must be csv, pdf or xlsx"))
		return
	}
	if query.Format == "" {
		query.Format = "pdf"
	}
	file, err := h.service.Export(c.Request.Context(), c.Param("id"), query.Format)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.Filename))
	c.Data(http.StatusOK, file.ContentType, file.Content)
}

// bind decodes and validates a JSON body. An empty body is accepted when
// optional is set.
func (h *WizardHandler) bind(c *gin.Context, dest interface{}, optional bool) bool {
	if err := c.ShouldBindJSON(dest); err != nil {
		if !optional || !errors.Is(err, io.EOF) {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
			return false
		}
	}
	if err := h.validate.Struct(dest); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, validationMessage(err)))
		return false
	}
	return true
}

func (h *WizardHandler) reply(c *gin.Context, snap *service.WizardSnapshot, err error) {
	if err != nil {
		if snap != nil {
			response.ErrorWithData(c, err, snap)
			return
		}
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, snap)
}

func validationMessage(err error) string {
	errs, ok := err.(validator.ValidationErrors)
	if !ok || len(errs) == 0 {
		return appErrors.ErrValidation.Message
	}
	fe := errs[0]
	return fmt.Sprintf("%s failed on %s", fe.Field(), fe.Tag())
}
