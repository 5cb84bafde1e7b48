package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/pedago-admin/internal/models"
	"github.com/noah-isme/pedago-admin/internal/preference"
	appErrors "github.com/noah-isme/pedago-admin/pkg/errors"
)

type preferenceStore interface {
	Get(ctx context.Context, clientID, key string) (string, error)
	Set(ctx context.Context, clientID, key, value string) error
}

// PreferenceService resolves and stores the theme preference of API clients.
type PreferenceService struct {
	store  preferenceStore
	logger *zap.Logger
	now    func() time.Time
}

// NewPreferenceService constructs a PreferenceService.
func NewPreferenceService(store preferenceStore, logger *zap.Logger) *PreferenceService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PreferenceService{store: store, logger: logger, now: time.Now}
}

// Theme returns the stored theme of clientID, falling back to the system hint
// and then to light. Storage failures degrade to the fallback.
func (s *PreferenceService) Theme(ctx context.Context, clientID, hint string) (*models.ThemePreference, error) {
	clientID = strings.TrimSpace(clientID)
	var stored string
	if clientID != "" && s.store != nil {
		value, err := s.store.Get(ctx, clientID, preference.ThemeKey)
		switch {
		case err == nil:
			stored = value
		case errors.Is(err, appErrors.ErrNotFound):
		default:
			s.logger.Warn("theme lookup failed", zap.String("client_id", clientID), zap.Error(err))
		}
	}
	theme, source := preference.Resolve(stored, hint)
	return &models.ThemePreference{ClientID: clientID, Theme: string(theme), Source: source}, nil
}

// SetTheme stores the theme for clientID.
func (s *PreferenceService) SetTheme(ctx context.Context, clientID, raw string) (*models.ThemePreference, error) {
	clientID = strings.TrimSpace(clientID)
	if clientID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "X-Client-ID header is required")
	}
	theme, err := preference.ParseTheme(raw)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	if s.store == nil {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "preference storage is disabled")
	}
	if err := s.store.Set(ctx, clientID, preference.ThemeKey, string(theme)); err != nil {
		var appErr *appErrors.Error
		if errors.As(err, &appErr) {
			return nil, appErr
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store theme")
	}
	return &models.ThemePreference{ClientID: clientID, Theme: string(theme), Source: preference.SourceStored, UpdatedAt: s.now().UTC()}, nil
}
