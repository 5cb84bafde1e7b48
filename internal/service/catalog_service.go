package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/pedago-admin/internal/models"
	appErrors "github.com/noah-isme/pedago-admin/pkg/errors"
)

// DefaultSubjectHours fills lecture or tutorial volumes missing from a curriculum.
const DefaultSubjectHours = 5.0

const catalogCachePrefix = "pedago:catalog:"

// Catalog failure messages returned inside the payload.
const (
	MsgClassNotFound     = "class not found"
	MsgNoCurriculumFound = "no curriculum found for this class"
)

type teacherReader interface {
	List(ctx context.Context, filter models.TeacherFilter) ([]models.Teacher, error)
}

type classReader interface {
	ListActive(ctx context.Context, filter models.ClassFilter) ([]models.Class, error)
	FindByID(ctx context.Context, id string) (*models.Class, error)
}

type maquetteReader interface {
	ListActiveByClass(ctx context.Context, classID string) ([]models.Maquette, error)
}

// CatalogService serves the wizard's select options and module catalogs.
type CatalogService struct {
	teachers  teacherReader
	classes   classReader
	maquettes maquetteReader
	cache     *CacheService
	metrics   *MetricsService
	cacheTTL  time.Duration
	logger    *zap.Logger
}

// NewCatalogService constructs a CatalogService. cache and metrics may be nil.
func NewCatalogService(teachers teacherReader, classes classReader, maquettes maquetteReader, cache *CacheService, metrics *MetricsService, cacheTTL time.Duration, logger *zap.Logger) *CatalogService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CatalogService{
		teachers:  teachers,
		classes:   classes,
		maquettes: maquettes,
		cache:     cache,
		metrics:   metrics,
		cacheTTL:  cacheTTL,
		logger:    logger,
	}
}

// Teachers lists active teachers as select options.
func (s *CatalogService) Teachers(ctx context.Context, search string) ([]models.OptionItem, error) {
	active := true
	start := time.Now()
	teachers, err := s.teachers.List(ctx, models.TeacherFilter{Active: &active, Search: strings.TrimSpace(search)})
	s.metrics.ObserveDBQuery("teachers_list", time.Since(start))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list teachers")
	}
	items := make([]models.OptionItem, 0, len(teachers))
	for _, t := range teachers {
		items = append(items, models.OptionItem{ID: t.ID, Label: t.FullName, Email: t.Email})
	}
	return items, nil
}

// Classes lists active classes as select options.
func (s *CatalogService) Classes(ctx context.Context, filter models.ClassFilter) ([]models.OptionItem, error) {
	start := time.Now()
	classes, err := s.classes.ListActive(ctx, filter)
	s.metrics.ObserveDBQuery("classes_list", time.Since(start))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list classes")
	}
	items := make([]models.OptionItem, 0, len(classes))
	for _, c := range classes {
		items = append(items, models.OptionItem{ID: c.ID, Label: c.Name, Level: c.Level, Track: c.Track})
	}
	return items, nil
}

// ModulesByClass flattens the active curricula of a class into the catalog
// payload. An unknown or inactive class yields ErrNotFound; a class without a
// curriculum yields an unsuccessful payload and no error.
func (s *CatalogService) ModulesByClass(ctx context.Context, classID string) (*models.CatalogResponse, bool, error) {
	classID = strings.TrimSpace(classID)
	if classID == "" {
		return nil, false, appErrors.Clone(appErrors.ErrValidation, "class id is required")
	}

	key := catalogCachePrefix + classID
	var cached models.CatalogResponse
	if s.cache.Get(ctx, key, &cached) {
		return &cached, true, nil
	}

	start := time.Now()
	class, err := s.classes.FindByID(ctx, classID)
	s.metrics.ObserveDBQuery("class_find", time.Since(start))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, appErrors.Clone(appErrors.ErrNotFound, MsgClassNotFound)
		}
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}
	if !class.Active {
		return nil, false, appErrors.Clone(appErrors.ErrNotFound, MsgClassNotFound)
	}

	start = time.Now()
	maquettes, err := s.maquettes.ListActiveByClass(ctx, classID)
	s.metrics.ObserveDBQuery("maquettes_by_class", time.Since(start))
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load curriculum")
	}
	if len(maquettes) == 0 {
		return &models.CatalogResponse{Success: false, Error: MsgNoCurriculumFound}, false, nil
	}

	modules := flattenMaquettes(maquettes)
	resp := &models.CatalogResponse{
		Success:    true,
		ClassLabel: class.Name,
		Modules:    modules,
		Count:      len(modules),
	}
	s.cache.Set(ctx, key, resp, s.cacheTTL)
	s.logger.Debug("module catalog built", zap.String("class_id", classID), zap.Int("count", len(modules)))
	return resp, false, nil
}

// InvalidateClass drops a cached catalog, or all of them when classID is empty.
func (s *CatalogService) InvalidateClass(ctx context.Context, classID string) error {
	pattern := catalogCachePrefix + "*"
	if classID != "" {
		pattern = catalogCachePrefix + classID
	}
	if err := s.cache.Invalidate(ctx, pattern); err != nil {
		return fmt.Errorf("invalidate catalog cache: %w", err)
	}
	return nil
}

func flattenMaquettes(maquettes []models.Maquette) []models.CatalogModule {
	modules := make([]models.CatalogModule, 0)
	for _, q := range maquettes {
		for _, unit := range q.Units {
			for _, subject := range unit.Subjects {
				if subject.ID == "" {
					continue
				}
				modules = append(modules, models.CatalogModule{
					ID:            subject.ID,
					Code:          subject.Code,
					Name:          subject.Name,
					UnitName:      unit.Label,
					LectureHours:  hoursOrDefault(subject.LectureHours),
					TutorialHours: hoursOrDefault(subject.TutorialHours),
				})
			}
		}
	}
	return modules
}

func hoursOrDefault(h *float64) float64 {
	if h == nil {
		return DefaultSubjectHours
	}
	return *h
}
