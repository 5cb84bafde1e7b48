package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	appErrors "github.com/noah-isme/pedago-admin/pkg/errors"
)

const preferenceKeyPrefix = "pedago:pref:"

// PreferenceRepository keeps per-client key/value preferences in Redis.
type PreferenceRepository struct {
	client *redis.Client
	ttl    time.Duration
}

// NewPreferenceRepository constructs a PreferenceRepository. A zero ttl keeps
// values forever.
func NewPreferenceRepository(client *redis.Client, ttl time.Duration) *PreferenceRepository {
	return &PreferenceRepository{client: client, ttl: ttl}
}

// Get returns the stored value or ErrNotFound.
func (r *PreferenceRepository) Get(ctx context.Context, clientID, key string) (string, error) {
	if r.client == nil {
		return "", appErrors.ErrNotFound
	}
	value, err := r.client.Get(ctx, preferenceKey(clientID, key)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", appErrors.ErrNotFound
		}
		return "", fmt.Errorf("redis get preference %s: %w", key, err)
	}
	return value, nil
}

// Set stores a value. Without Redis the write is rejected so callers can tell
// the preference was not kept.
func (r *PreferenceRepository) Set(ctx context.Context, clientID, key, value string) error {
	if r.client == nil {
		return appErrors.Clone(appErrors.ErrPreconditionFailed, "preference storage is disabled")
	}
	if err := r.client.Set(ctx, preferenceKey(clientID, key), value, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set preference %s: %w", key, err)
	}
	return nil
}

func preferenceKey(clientID, key string) string {
	return preferenceKeyPrefix + clientID + ":" + key
}
