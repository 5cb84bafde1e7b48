package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	_ "github.com/noah-isme/pedago-admin/api/swagger"
	"github.com/noah-isme/pedago-admin/internal/client"
	"github.com/noah-isme/pedago-admin/internal/handler"
	"github.com/noah-isme/pedago-admin/internal/repository"
	"github.com/noah-isme/pedago-admin/internal/router"
	"github.com/noah-isme/pedago-admin/internal/service"
	"github.com/noah-isme/pedago-admin/internal/wizard"
	"github.com/noah-isme/pedago-admin/pkg/cache"
	"github.com/noah-isme/pedago-admin/pkg/config"
	"github.com/noah-isme/pedago-admin/pkg/database"
	"github.com/noah-isme/pedago-admin/pkg/logger"
	"github.com/noah-isme/pedago-admin/pkg/telemetry"
)

// @title Pedago Admin API
// @version 1.0.0
// @description Pre-contract wizard, module catalog and client preferences
// @BasePath /
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(ctx, cfg.Telemetry)
	if err != nil {
		logr.Warn("tracing disabled", zap.Error(err))
		shutdownTracing = func(context.Context) error { return nil }
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer db.Close()

	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient, err = cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, catalog cache and theme storage disabled", zap.Error(err))
			redisClient = nil
		}
	}

	metrics := service.NewMetricsService()

	teacherRepo := repository.NewTeacherRepository(db)
	classRepo := repository.NewClassRepository(db)
	maquetteRepo := repository.NewMaquetteRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	defer cacheRepo.Close() //nolint:errcheck
	prefRepo := repository.NewPreferenceRepository(redisClient, 0)

	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Catalog.CacheTTL, logr, cfg.Catalog.CacheEnabled && redisClient != nil)
	catalogSvc := service.NewCatalogService(teacherRepo, classRepo, maquetteRepo, cacheSvc, metrics, cfg.Catalog.CacheTTL, logr)

	fetcher, err := moduleFetcher(cfg, catalogSvc, logr)
	if err != nil {
		logr.Fatal("failed to configure module catalog", zap.Error(err))
	}

	wizardSvc := service.NewWizardService(teacherRepo, classRepo, fetcher, submitter(cfg, logr), metrics, service.WizardSessionConfig{
		Wizard: wizard.Config{
			Rates:    wizard.Rates{Lecture: cfg.Wizard.LectureRate, Tutorial: cfg.Wizard.TutorialRate},
			Currency: cfg.Wizard.Currency,
		},
		SessionTTL:    cfg.Wizard.SessionTTL,
		SweepInterval: cfg.Wizard.SweepInterval,
		LoaderWorkers: cfg.Wizard.LoaderWorkers,
		FetchTimeout:  cfg.Catalog.Timeout,
	}, logr)
	wizardSvc.Start(ctx)
	defer wizardSvc.Stop()

	preferenceSvc := service.NewPreferenceService(prefRepo, logr)

	checks := map[string]handler.ReadinessCheck{
		"postgres": db.PingContext,
	}
	if redisClient != nil {
		checks["redis"] = cacheRepo.Ping
	}

	validate := validator.New()
	engine := router.Setup(cfg, router.Handlers{
		Catalog:    handler.NewCatalogHandler(catalogSvc, logr),
		Wizard:     handler.NewWizardHandler(wizardSvc, validate),
		Preference: handler.NewPreferenceHandler(preferenceSvc, validate),
		Metrics:    handler.NewMetricsHandler(metrics, checks),
	}, metrics, logr)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Info("server starting",
			zap.String("addr", srv.Addr),
			zap.String("env", cfg.Env),
			zap.String("catalog_source", cfg.Catalog.Source),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		logr.Warn("tracer shutdown failed", zap.Error(err))
	}
}

// moduleFetcher serves wizard loads from the local curricula or from a remote
// catalog endpoint.
func moduleFetcher(cfg *config.Config, catalog *service.CatalogService, logr *zap.Logger) (service.ModuleFetcher, error) {
	if cfg.Catalog.Source != config.CatalogSourceRemote {
		return service.LocalModuleFetcher{Catalog: catalog}, nil
	}
	return client.NewCatalogClient(client.CatalogConfig{
		Endpoint:       cfg.Catalog.Endpoint,
		Timeout:        cfg.Catalog.Timeout,
		ValidateSchema: cfg.Catalog.ValidateSchema,
		Logger:         logr,
	})
}

func submitter(cfg *config.Config, logr *zap.Logger) service.FormSubmitter {
	if cfg.Submit.Endpoint == "" {
		logr.Warn("SUBMIT_ENDPOINT is empty, submission disabled")
		return nil
	}
	return client.NewFormPoster(client.FormPosterConfig{
		Endpoint: cfg.Submit.Endpoint,
		Timeout:  cfg.Submit.Timeout,
		Logger:   logr,
	})
}
