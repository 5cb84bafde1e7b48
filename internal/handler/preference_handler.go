package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/pedago-admin/internal/dto"
	"github.com/noah-isme/pedago-admin/internal/models"
	appErrors "github.com/noah-isme/pedago-admin/pkg/errors"
	"github.com/noah-isme/pedago-admin/pkg/response"
)

// Header names read by the preference endpoints.
const (
	HeaderClientID        = "X-Client-ID"
	HeaderColorSchemeHint = "Sec-CH-Prefers-Color-Scheme"
)

type preferenceService interface {
	Theme(ctx context.Context, clientID, hint string) (*models.ThemePreference, error)
	SetTheme(ctx context.Context, clientID, raw string) (*models.ThemePreference, error)
}

// PreferenceHandler exposes the theme preference.
type PreferenceHandler struct {
	service  preferenceService
	validate *validator.Validate
}

// NewPreferenceHandler builds a preference handler.
func NewPreferenceHandler(service preferenceService, validate *validator.Validate) *PreferenceHandler {
	if validate == nil {
		validate = validator.New()
	}
	return &PreferenceHandler{service: service, validate: validate}
}

// GetTheme godoc
// @Summary Theme preference of the client
// @Tags Preferences
// @Produce json
// @Param X-Client-ID header string false "Client identifier"
// @Param Sec-CH-Prefers-Color-Scheme header string false "System color scheme hint"
// @Success 200 {object} response.Envelope
// @Router /preferences/theme [get]
func (h *PreferenceHandler) GetTheme(c *gin.Context) {
	hint := strings.Trim(c.GetHeader(HeaderColorSchemeHint), `" `)
	pref, err := h.service.Theme(c.Request.Context(), c.GetHeader(HeaderClientID), hint)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Vary", HeaderClientID+", "+HeaderColorSchemeHint)
	response.JSON(c, http.StatusOK, pref)
}

// SetTheme godoc
// @Summary Store the theme preference of the client
// @Tags Preferences
// @Accept json
// @Produce json
// @Param X-Client-ID header string true "Client identifier"
// @Param payload body dto.ThemeRequest true "Theme"
// @Success 200 {object} response.Envelope
// @Router /preferences/theme [put]
func (h *PreferenceHandler) SetTheme(c *gin.Context) {
	var req dto.ThemeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid theme payload"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "theme must be light or dark"))
		return
	}
	pref, err := h.service.SetTheme(c.Request.Context(), c.GetHeader(HeaderClientID), req.Theme)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, pref)
}
