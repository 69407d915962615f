package measure

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/pagefit/pkg/cache"
	"github.com/matzehuels/pagefit/pkg/errors"
	"github.com/matzehuels/pagefit/pkg/layout"
	"github.com/matzehuels/pagefit/pkg/observability"
)

const keyType = "measurement"

// CachedMeasurer serves measurements of previously seen artifact contents
// from a cache and delegates everything else.
type CachedMeasurer struct {
	inner  Measurer
	cache  cache.Cache
	ttl    time.Duration
	logger *log.Logger
}

// NewCachedMeasurer wraps inner. A nil cache disables caching; a zero ttl
// keeps entries until the cache is cleared.
func NewCachedMeasurer(inner Measurer, c cache.Cache, ttl time.Duration, logger *log.Logger) *CachedMeasurer {
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return &CachedMeasurer{inner: inner, cache: c, ttl: ttl, logger: logger}
}

// Measure implements Measurer.
func (m *CachedMeasurer) Measure(ctx context.Context, path string) (layout.Measurement, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return layout.Measurement{}, errors.Wrap(errors.ErrCodeMeasurement, err, "read %s", path)
	}
	key := cache.MeasurementKey(cache.Hash(data))
	hooks := observability.Cache()

	raw, hit, err := m.cache.Get(ctx, key)
	if err != nil {
		m.logger.Debug("Measurement cache read failed", "path", path, "error", err)
	}
	if hit {
		var cached layout.Measurement
		if json.Unmarshal(raw, &cached) == nil && cached.Validate() == nil {
			hooks.OnCacheHit(ctx, keyType)
			m.logger.Debug("Measurement cache hit", "path", path)
			return cached, nil
		}
		_ = m.cache.Delete(ctx, key)
	}
	hooks.OnCacheMiss(ctx, keyType)

	meas, err := m.inner.Measure(ctx, path)
	if err != nil {
		return layout.Measurement{}, err
	}

	raw, err = json.Marshal(meas)
	if err != nil {
		return meas, nil
	}
	if err := m.cache.Set(ctx, key, raw, m.ttl); err != nil {
		m.logger.Warn("Failed to cache measurement", "path", path, "error", err)
		return meas, nil
	}
	hooks.OnCacheSet(ctx, keyType, len(raw))
	return meas, nil
}
