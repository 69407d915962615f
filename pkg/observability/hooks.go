// Package observability provides hooks for metrics, tracing, and logging.
//
// Libraries in this module emit events through package-level hook registries
// instead of depending on a metrics backend. The command line registers
// implementations at startup; everything else sees no-op defaults.
//
// # Usage
//
// Register hooks at application startup:
//
//	func main() {
//	    observability.SetCalibrationHooks(&myCalibrationHooks{})
//	    observability.SetCacheHooks(&myCacheHooks{})
//	    // ... run application
//	}
//
// Libraries call hooks to emit events:
//
//	observability.Calibration().OnIterationStart(ctx, iteration)
//	// ... build, measure, adjust ...
//	observability.Calibration().OnIterationComplete(ctx, iteration, adjusted, time.Since(start))
package observability

import (
	"context"
	"sync"
	"time"
)

// =============================================================================
// Calibration Hooks
// =============================================================================

// CalibrationHooks receives events from the calibration driver.
type CalibrationHooks interface {
	// Run events
	OnRunStart(ctx context.Context, runID string, variants int)
	OnRunComplete(ctx context.Context, runID, status string, iterations int, duration time.Duration, err error)

	// Iteration events
	OnIterationStart(ctx context.Context, iteration int)
	OnIterationComplete(ctx context.Context, iteration, adjusted int, duration time.Duration)

	// OnVariantClassified reports the outcome of measuring one variant.
	OnVariantClassified(ctx context.Context, iteration int, variant, class string, deltaPts float64)
}

// =============================================================================
// Build Hooks
// =============================================================================

// BuildHooks receives events from the external build step.
type BuildHooks interface {
	OnBuildStart(ctx context.Context, port int, variants []string)
	OnBuildComplete(ctx context.Context, port int, duration time.Duration, err error)
}

// =============================================================================
// Cache Hooks
// =============================================================================

// CacheHooks receives events from cache operations.
type CacheHooks interface {
	// OnCacheHit records a cache hit.
	OnCacheHit(ctx context.Context, keyType string)

	// OnCacheMiss records a cache miss.
	OnCacheMiss(ctx context.Context, keyType string)

	// OnCacheSet records a cache write.
	OnCacheSet(ctx context.Context, keyType string, size int)
}

// =============================================================================
// No-op Implementations
// =============================================================================

// NoopCalibrationHooks is a no-op implementation of CalibrationHooks.
type NoopCalibrationHooks struct{}

func (NoopCalibrationHooks) OnRunStart(context.Context, string, int) {}
func (NoopCalibrationHooks) OnRunComplete(context.Context, string, string, int, time.Duration, error) {
}
func (NoopCalibrationHooks) OnIterationStart(context.Context, int)                             {}
func (NoopCalibrationHooks) OnIterationComplete(context.Context, int, int, time.Duration)      {}
func (NoopCalibrationHooks) OnVariantClassified(context.Context, int, string, string, float64) {}

// NoopBuildHooks is a no-op implementation of BuildHooks.
type NoopBuildHooks struct{}

func (NoopBuildHooks) OnBuildStart(context.Context, int, []string)                {}
func (NoopBuildHooks) OnBuildComplete(context.Context, int, time.Duration, error) {}

// NoopCacheHooks is a no-op implementation of CacheHooks.
type NoopCacheHooks struct{}

func (NoopCacheHooks) OnCacheHit(context.Context, string)      {}
func (NoopCacheHooks) OnCacheMiss(context.Context, string)     {}
func (NoopCacheHooks) OnCacheSet(context.Context, string, int) {}

// =============================================================================
// Global Hook Registry
// =============================================================================

var (
	calibrationHooks CalibrationHooks = NoopCalibrationHooks{}
	buildHooks       BuildHooks       = NoopBuildHooks{}
	cacheHooks       CacheHooks       = NoopCacheHooks{}
	hooksMu          sync.RWMutex
)

// SetCalibrationHooks registers custom calibration hooks.
// This should be called once at application startup before any run begins.
func SetCalibrationHooks(h CalibrationHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		calibrationHooks = h
	}
}

// SetBuildHooks registers custom build hooks.
func SetBuildHooks(h BuildHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		buildHooks = h
	}
}

// SetCacheHooks registers custom cache hooks.
// This should be called once at application startup before any cache operations.
func SetCacheHooks(h CacheHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		cacheHooks = h
	}
}

// Calibration returns the registered calibration hooks.
func Calibration() CalibrationHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return calibrationHooks
}

// Build returns the registered build hooks.
func Build() BuildHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return buildHooks
}

// Cache returns the registered cache hooks.
func Cache() CacheHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return cacheHooks
}

// Reset restores all hooks to their no-op defaults.
// This is primarily useful for testing.
func Reset() {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	calibrationHooks = NoopCalibrationHooks{}
	buildHooks = NoopBuildHooks{}
	cacheHooks = NoopCacheHooks{}
}
