// Package cli implements the pagefit command-line interface.
//
// # Commands
//
//   - calibrate: tune print settings until every variant fits one page
//   - measure: print the measurement of a single PDF
//   - baseline: show or derive the baseline descriptor
//   - settings: show the settings block or diff it against a file
//   - history: inspect past runs from the journal
//   - cache: manage the measurement cache
//
// # Logging
//
// All commands support --verbose (-v) for debug-level logging. The logger
// lives on the CLI struct and is handed to every library type.
package cli

import (
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/pagefit/pkg/cache"
	"github.com/matzehuels/pagefit/pkg/config"
	"github.com/matzehuels/pagefit/pkg/measure"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// appName is the application name used for directories and display.
	appName = "pagefit"
)

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	configPath string
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// =============================================================================
// Factories
// =============================================================================

// loadProject reads the project file named by --config.
func (c *CLI) loadProject() (*config.Config, error) {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return nil, err
	}
	c.Logger.Debug("Loaded project", "dir", cfg.Dir, "variants", len(cfg.Variants))
	return cfg, nil
}

// newMeasurer returns a PDF measurer backed by the measurement cache.
// cacheDir overrides the default cache location when set. Measurement
// failures are never retried; the build step owns the only retry.
func (c *CLI) newMeasurer(cacheDir string, noCache bool) (measure.Measurer, cache.Cache) {
	mc := c.newCache(cacheDir, noCache)
	return measure.NewCachedMeasurer(measure.NewPDFMeasurer(c.Logger), mc, 0, c.Logger), mc
}

func (c *CLI) newCache(dir string, noCache bool) cache.Cache {
	if noCache {
		return cache.NewNullCache()
	}
	if dir == "" {
		d, err := cacheDir()
		if err != nil {
			return cache.NewNullCache()
		}
		dir = d
	}
	fc, err := cache.NewFileCache(dir)
	if err != nil {
		c.Logger.Warn("Measurement cache disabled", "dir", dir, "error", err)
		return cache.NewNullCache()
	}
	return fc
}

// =============================================================================
// Paths
// =============================================================================

// cacheDir returns the cache directory using XDG standard (~/.cache/pagefit/).
func cacheDir() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}
