package router

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/pedago-admin/internal/handler"
	"github.com/noah-isme/pedago-admin/internal/middleware"
	"github.com/noah-isme/pedago-admin/internal/service"
	"github.com/noah-isme/pedago-admin/pkg/config"
	"github.com/noah-isme/pedago-admin/pkg/logger"
	corsmiddleware "github.com/noah-isme/pedago-admin/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/pedago-admin/pkg/middleware/requestid"
)

// Handlers groups the handler instances mounted by Setup.
type Handlers struct {
	Catalog    *handler.CatalogHandler
	Wizard     *handler.WizardHandler
	Preference *handler.PreferenceHandler
	Metrics    *handler.MetricsHandler
}

// Setup builds the engine with the global middleware chain and every route.
func Setup(cfg *config.Config, h Handlers, metrics *service.MetricsService, logr *zap.Logger) *gin.Engine {
	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr, "/health", "/ready", "/metrics"))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics))
	r.Use(middleware.WithResponseMeta())

	r.GET("/health", h.Metrics.Health)
	r.GET("/ready", h.Metrics.Ready)
	r.GET("/metrics", h.Metrics.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	precontrat := api.Group("/precontrat")
	precontrat.GET("/teachers", h.Catalog.Teachers)
	precontrat.GET("/classes", h.Catalog.Classes)
	precontrat.GET("/classes/:id/modules", h.Catalog.Modules)
	precontrat.DELETE("/classes/:id/modules/cache", h.Catalog.InvalidateModules)

	sessions := api.Group("/wizard/sessions")
	sessions.POST("", h.Wizard.Create)
	sessions.GET("/:id", h.Wizard.Get)
	sessions.DELETE("/:id", h.Wizard.Delete)
	sessions.PUT("/:id/teacher", h.Wizard.SelectTeacher)
	sessions.PUT("/:id/class", h.Wizard.SelectClass)
	sessions.POST("/:id/advance", h.Wizard.Advance)
	sessions.POST("/:id/retreat", h.Wizard.Retreat)
	sessions.POST("/:id/reload", h.Wizard.Reload)
	sessions.PUT("/:id/modules/:moduleId", h.Wizard.ToggleModule)
	sessions.POST("/:id/submit", h.Wizard.Submit)
	sessions.GET("/:id/export", h.Wizard.Export)

	prefs := api.Group("/preferences")
	prefs.GET("/theme", h.Preference.GetTheme)
	prefs.PUT("/theme", h.Preference.SetTheme)

	return r
}
