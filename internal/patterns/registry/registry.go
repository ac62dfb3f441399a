package registry

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"trapper/internal/patterns/models"
	dErrors "trapper/pkg/domain-errors"
	"trapper/pkg/normalize"
)

const cacheKey = "patterns:active"

type Store interface {
	ListActive(ctx context.Context) ([]*models.Pattern, error)
}

// Cache is the subset of the redis client the registry needs.
type Cache interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// Registry evaluates blacklist patterns against normalized values. The
// active pattern set is read through a Redis cache; a nil cache degrades
// to hitting the store on every call.
type Registry struct {
	store  Store
	cache  Cache
	ttl    time.Duration
	logger *slog.Logger
}

func New(store Store, cache Cache, ttl time.Duration, logger *slog.Logger) *Registry {
	return &Registry{store: store, cache: cache, ttl: ttl, logger: logger}
}

// Match is the outcome of evaluating a value against the registry.
type Match struct {
	Pattern        *models.Pattern
	Classification models.Classification
}

// Evaluate returns the first active pattern matching the value, in priority
// order, or nil when nothing matches. Values are lowercased and trimmed
// before comparison.
func (r *Registry) Evaluate(ctx context.Context, value string) (*Match, error) {
	v := strings.ToLower(strings.TrimSpace(value))
	if v == "" {
		return nil, nil
	}
	patterns, err := r.active(ctx)
	if err != nil {
		return nil, err
	}
	for _, p := range patterns {
		if p.Matches(v) {
			return &Match{Pattern: p, Classification: p.Classification}, nil
		}
	}
	return nil, nil
}

// EvaluateName additionally honors per-pattern similarity thresholds: a
// pattern with a threshold below 1.0 also matches when the name is merely
// similar to the pattern text.
func (r *Registry) EvaluateName(ctx context.Context, name string) (*Match, error) {
	v := normalize.Name(name)
	if v == "" {
		return nil, nil
	}
	patterns, err := r.active(ctx)
	if err != nil {
		return nil, err
	}
	for _, p := range patterns {
		if p.Matches(v) {
			return &Match{Pattern: p, Classification: p.Classification}, nil
		}
		if p.MatchThreshold < 1.0 {
			if normalize.NameSimilarity(v, strings.ToLower(p.Pattern)) >= p.MatchThreshold {
				return &Match{Pattern: p, Classification: p.Classification}, nil
			}
		}
	}
	return nil, nil
}

// Invalidate drops the cached pattern set, forcing a reload on next use.
func (r *Registry) Invalidate(ctx context.Context) {
	if r.cache == nil {
		return
	}
	if err := r.cache.Del(ctx, cacheKey).Err(); err != nil {
		r.logger.Warn("pattern cache invalidation failed", "error", err)
	}
}

func (r *Registry) active(ctx context.Context) ([]*models.Pattern, error) {
	if r.cache != nil {
		raw, err := r.cache.Get(ctx, cacheKey).Result()
		if err == nil {
			var cached []*models.Pattern
			if jsonErr := json.Unmarshal([]byte(raw), &cached); jsonErr == nil {
				return cached, nil
			}
			// Unreadable cache entry; fall through to the store.
		} else if err != redis.Nil {
			r.logger.Warn("pattern cache read failed", "error", err)
		}
	}

	patterns, err := r.store.ListActive(ctx)
	if err != nil {
		return nil, dErrors.Wrap(dErrors.CodeInternal, "load active patterns", err)
	}

	if r.cache != nil {
		if raw, err := json.Marshal(patterns); err == nil {
			if err := r.cache.Set(ctx, cacheKey, raw, r.ttl).Err(); err != nil {
				r.logger.Warn("pattern cache write failed", "error", err)
			}
		}
	}
	return patterns, nil
}
