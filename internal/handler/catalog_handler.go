package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/pedago-admin/internal/middleware"
	"github.com/noah-isme/pedago-admin/internal/models"
	appErrors "github.com/noah-isme/pedago-admin/pkg/errors"
	"github.com/noah-isme/pedago-admin/pkg/response"
)

type catalogService interface {
	Teachers(ctx context.Context, search string) ([]models.OptionItem, error)
	Classes(ctx context.Context, filter models.ClassFilter) ([]models.OptionItem, error)
	ModulesByClass(ctx context.Context, classID string) (*models.CatalogResponse, bool, error)
	InvalidateClass(ctx context.Context, classID string) error
}

// CatalogHandler serves the select-control options and the module catalog.
type CatalogHandler struct {
	service catalogService
	logger  *zap.Logger
}

// NewCatalogHandler builds a catalog handler.
func NewCatalogHandler(service catalogService, logger *zap.Logger) *CatalogHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CatalogHandler{service: service, logger: logger}
}

// Teachers godoc
// @Summary List teachers for the wizard
// @Tags Pre-contract
// @Produce json
// @Param search query string false "Name or email fragment"
// @Success 200 {object} response.Envelope
// @Router /precontrat/teachers [get]
func (h *CatalogHandler) Teachers(c *gin.Context) {
	items, err := h.service.Teachers(c.Request.Context(), c.Query("search"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, middleware.MergeMeta(c, map[string]interface{}{"count": len(items)}))
}

// Classes godoc
// @Summary List classes for the wizard
// @Tags Pre-contract
// @Produce json
// @Param level query string false "Level"
// @Param track query string false "Track"
// @Param search query string false "Name fragment"
// @Param limit query int false "Maximum number of classes"
// @Success 200 {object} response.Envelope
// @Router /precontrat/classes [get]
func (h *CatalogHandler) Classes(c *gin.Context) {
	filter := models.ClassFilter{
		Level:  c.Query("level"),
		Track:  c.Query("track"),
		Search: c.Query("search"),
	}
	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "limit must be a positive integer"))
			return
		}
		filter.Limit = limit
	}
	items, err := h.service.Classes(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, middleware.MergeMeta(c, map[string]interface{}{"count": len(items)}))
}

// Modules godoc
// @Summary Module catalog of a class
// @Description Returns the raw catalog payload, outside the response envelope.
// @Tags Pre-contract
// @Produce json
// @Param id path string true "Class ID"
// @Success 200 {object} models.CatalogResponse
// @Failure 404 {object} models.CatalogResponse
// @Router /precontrat/classes/{id}/modules [get]
func (h *CatalogHandler) Modules(c *gin.Context) {
	resp, hit, err := h.service.ModulesByClass(c.Request.Context(), c.Param("id"))
	if err != nil {
		appErr := appErrors.FromError(err)
		if appErr.Status >= http.StatusInternalServerError {
			h.logger.Error("module catalog failed", zap.String("class_id", c.Param("id")), zap.Error(err))
		}
		c.JSON(appErr.Status, models.CatalogResponse{Success: false, Error: appErr.Message})
		return
	}
	middleware.SetCacheHit(c, hit)
	c.JSON(http.StatusOK, resp)
}

// InvalidateModules godoc
// @Summary Drop the cached catalog of a class
// @Tags Pre-contract
// @Param id path string true "Class ID"
// @Success 204
// @Router /precontrat/classes/{id}/modules/cache [delete]
func (h *CatalogHandler) InvalidateModules(c *gin.Context) {
	if err := h.service.InvalidateClass(c.Request.Context(), c.Param("id")); err != nil {
		var appErr *appErrors.Error
		if !errors.As(err, &appErr) {
			err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to invalidate catalog cache")
		}
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
