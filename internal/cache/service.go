package cache

import (
	"context"
	"errors"
	"time"

	"github.com/etzlertech/rancheye-02-analysis/internal/shared/metrics"
	"github.com/etzlertech/rancheye-02-analysis/internal/shared/telemetry"
	"github.com/etzlertech/rancheye-02-analysis/internal/shared/util"
)

// Service is the advisory result cache. Backend failures degrade to misses.
type Service struct {
	store Store
	ttl   time.Duration
	now   func() time.Time
}

// NewService wraps a store. A non-positive ttl uses DefaultTTL.
func NewService(store Store, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Service{store: store, ttl: ttl, now: time.Now}
}

// Lookup returns a live entry for key.
func (s *Service) Lookup(ctx context.Context, key Key) (Entry, bool) {
	if s == nil || s.store == nil || !key.Valid() {
		return Entry{}, false
	}
	entry, err := s.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrMiss) {
			telemetry.Warn("cache.lookup_failed", map[string]any{
				"provider": key.Provider,
				"model":    key.Model,
				"error":    util.SanitizeError(err),
			})
		}
		metrics.IncCacheLookup(false)
		return Entry{}, false
	}
	metrics.IncCacheLookup(true)
	return entry, true
}

// Store saves a parsed answer under key for the configured TTL.
func (s *Service) Store(ctx context.Context, key Key, data map[string]any, confidence float64) {
	if s == nil || s.store == nil || !key.Valid() {
		return
	}
	entry := Entry{
		Key:        key,
		Data:       data,
		Confidence: confidence,
		ExpiresAt:  s.now().UTC().Add(s.ttl),
	}
	if err := s.store.Put(ctx, entry); err != nil {
		telemetry.Warn("cache.store_failed", map[string]any{
			"provider": key.Provider,
			"model":    key.Model,
			"error":    util.SanitizeError(err),
		})
	}
}
