package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/pagefit/pkg/observability"
)

// runHooks reports calibration progress through the logger and the spinner.
type runHooks struct {
	observability.NoopCalibrationHooks
	logger  *log.Logger
	spinner *Spinner
}

func (h runHooks) OnIterationStart(_ context.Context, iteration int) {
	if h.spinner != nil {
		h.spinner.SetMessage(fmt.Sprintf("Iteration %d...", iteration))
	}
	h.logger.Debug("Iteration started", "iteration", iteration)
}

func (h runHooks) OnIterationComplete(_ context.Context, iteration, adjusted int, d time.Duration) {
	h.logger.Debug("Iteration complete", "iteration", iteration, "adjusted", adjusted, "took", d.Round(time.Millisecond))
}

func (h runHooks) OnVariantClassified(_ context.Context, iteration int, variant, class string, deltaPts float64) {
	h.logger.Debug("Classified", "iteration", iteration, "variant", variant, "class", class, "delta", fmt.Sprintf("%+.2fpt", deltaPts))
}

// cacheLogHooks logs measurement cache traffic at debug level.
type cacheLogHooks struct {
	logger *log.Logger
}

func (h cacheLogHooks) OnCacheHit(_ context.Context, keyType string) {
	h.logger.Debug("Cache hit", "type", keyType)
}

func (h cacheLogHooks) OnCacheMiss(_ context.Context, keyType string) {
	h.logger.Debug("Cache miss", "type", keyType)
}

func (h cacheLogHooks) OnCacheSet(_ context.Context, keyType string, size int) {
	h.logger.Debug("Cache set", "type", keyType, "bytes", size)
}

// buildLogHooks surfaces build attempts, including the alternate-port retry.
type buildLogHooks struct {
	logger  *log.Logger
	spinner *Spinner
}

func (h buildLogHooks) OnBuildStart(_ context.Context, port int, variants []string) {
	if h.spinner != nil {
		h.spinner.SetMessage(fmt.Sprintf("Building on port %d...", port))
	}
	h.logger.Debug("Build started", "port", port, "variants", len(variants))
}

func (h buildLogHooks) OnBuildComplete(_ context.Context, port int, d time.Duration, err error) {
	if err != nil {
		h.logger.Warn("Build failed", "port", port, "error", err)
		return
	}
	h.logger.Debug("Build complete", "port", port, "took", d.Round(time.Millisecond))
}
