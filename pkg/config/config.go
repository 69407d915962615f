// Package config loads the pagefit project file.
//
// A project file is TOML and describes where the baseline descriptor and the
// settings block live, how to run the render step, and which artifact each
// variant produces:
//
//	[project]
//	baseline = "layout/baseline.yaml"
//	settings = "src/print-settings.json"
//	reference_variant = "classic"
//
//	[build]
//	command = "npm run export-pdf -- --port {port} --only {variants}"
//	port = 4173
//	alternate_port = 4174
//	timeout = "5m"
//
//	[[variant]]
//	id = "classic"
//	artifact = "dist/classic.pdf"
//
//	[[variant]]
//	id = "compact"
//	artifact = "dist/compact.pdf"
//
//	[run]
//	max_iterations = 8
//
// Relative paths are resolved against the directory holding the file.
// Solver tunables may be overridden in a [tuning] table.
package config

import (
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/pagefit/pkg/errors"
	"github.com/matzehuels/pagefit/pkg/solver"
)

// Defaults.
const (
	DefaultFile          = "pagefit.toml"
	DefaultPort          = 4173
	DefaultAlternatePort = 4174
	DefaultBuildTimeout  = 10 * time.Minute
	DefaultMaxIterations = 8
	DefaultJournal       = ".pagefit/journal.db"
)

// Config is a parsed project file.
type Config struct {
	Project  Project       `toml:"project"`
	Build    Build         `toml:"build"`
	Variants []Variant     `toml:"variant"`
	Tuning   solver.Tuning `toml:"tuning"`
	Run      Run           `toml:"run"`

	// Dir is the directory relative paths were resolved against.
	Dir string `toml:"-"`
}

// Project locates the shared inputs of a calibration run.
type Project struct {
	Baseline         string `toml:"baseline"`
	Settings         string `toml:"settings"`
	ReferenceVariant string `toml:"reference_variant"`
	CacheDir         string `toml:"cache_dir"`
	Journal          string `toml:"journal"`
}

// Build configures the external render step. An empty command means
// artifacts are produced by some other process.
type Build struct {
	Command       string        `toml:"command"`
	Dir           string        `toml:"dir"`
	Port          int           `toml:"port"`
	AlternatePort int           `toml:"alternate_port"`
	Timeout       time.Duration `toml:"timeout"`
	Env           []string      `toml:"env"`
}

// Variant maps a variant id to the artifact the build writes for it.
type Variant struct {
	ID       string `toml:"id"`
	Artifact string `toml:"artifact"`
}

// Run holds per-run defaults that flags may override.
type Run struct {
	MaxIterations int  `toml:"max_iterations"`
	KeepPartial   bool `toml:"keep_partial"`
}

// Load reads, defaults and validates the project file at path. An empty
// path means DefaultFile in the working directory.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultFile
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeConfig, err, "read project file")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeConfig, err, "resolve %s", path)
	}
	cfg, err := Parse(data, filepath.Dir(abs))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeConfig, err, "project file %s", path)
	}
	return cfg, nil
}

// Parse decodes a project file whose relative paths are anchored at dir.
func Parse(data []byte, dir string) (*Config, error) {
	// Unset [tuning] keys keep their defaults; keys set to 0 stay 0.
	cfg := Config{Tuning: solver.DefaultTuning()}
	md, err := toml.Decode(string(data), &cfg)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeConfig, err, "parse toml")
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, errors.New(errors.ErrCodeConfig, "unknown key %q", undecoded[0].String())
	}
	cfg.Dir = dir
	cfg.SetDefaults()
	cfg.resolvePaths()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// SetDefaults fills unset fields.
func (c *Config) SetDefaults() {
	if c.Build.Port == 0 {
		c.Build.Port = DefaultPort
	}
	if c.Build.AlternatePort == 0 {
		c.Build.AlternatePort = DefaultAlternatePort
	}
	if c.Build.Timeout == 0 {
		c.Build.Timeout = DefaultBuildTimeout
	}
	if c.Run.MaxIterations == 0 {
		c.Run.MaxIterations = DefaultMaxIterations
	}
	if c.Project.Journal == "" {
		c.Project.Journal = DefaultJournal
	}
	c.Tuning = c.Tuning.OrDefault()
}

// Validate checks required fields and cross references.
func (c *Config) Validate() error {
	if c.Project.Baseline == "" {
		return errors.New(errors.ErrCodeConfig, "project.baseline is required")
	}
	if c.Project.Settings == "" {
		return errors.New(errors.ErrCodeConfig, "project.settings is required")
	}
	if len(c.Variants) == 0 {
		return errors.New(errors.ErrCodeConfig, "at least one [[variant]] is required")
	}
	if c.Run.MaxIterations < 1 {
		return errors.New(errors.ErrCodeConfig, "run.max_iterations must be >= 1, got %d", c.Run.MaxIterations)
	}

	seen := make(map[string]bool, len(c.Variants))
	for _, v := range c.Variants {
		if err := errors.ValidateVariantID(v.ID); err != nil {
			return errors.Wrap(errors.ErrCodeConfig, err, "variant")
		}
		if seen[v.ID] {
			return errors.New(errors.ErrCodeConfig, "duplicate variant %q", v.ID)
		}
		seen[v.ID] = true
		if err := errors.ValidatePath(v.Artifact); err != nil {
			return errors.Wrap(errors.ErrCodeConfig, err, "variant %s artifact", v.ID)
		}
	}

	if err := c.Tuning.Validate(); err != nil {
		return errors.Wrap(errors.ErrCodeConfig, err, "tuning")
	}

	if c.Project.ReferenceVariant == "" {
		return errors.New(errors.ErrCodeConfig, "project.reference_variant is required")
	}
	if !seen[c.Project.ReferenceVariant] {
		return errors.New(errors.ErrCodeConfig, "reference variant %q is not a declared variant", c.Project.ReferenceVariant)
	}
	return nil
}

// Variant returns the variant with the given id.
func (c *Config) Variant(id string) (Variant, bool) {
	for _, v := range c.Variants {
		if v.ID == id {
			return v, true
		}
	}
	return Variant{}, false
}

// VariantIDs returns all variant ids in sorted order.
func (c *Config) VariantIDs() []string {
	ids := make([]string, 0, len(c.Variants))
	for _, v := range c.Variants {
		ids = append(ids, v.ID)
	}
	sort.Strings(ids)
	return ids
}

func (c *Config) resolvePaths() {
	c.Project.Baseline = c.resolve(c.Project.Baseline)
	c.Project.Settings = c.resolve(c.Project.Settings)
	c.Project.CacheDir = c.resolve(c.Project.CacheDir)
	c.Project.Journal = c.resolve(c.Project.Journal)
	if c.Build.Dir == "" {
		c.Build.Dir = c.Dir
	} else {
		c.Build.Dir = c.resolve(c.Build.Dir)
	}
	for i := range c.Variants {
		c.Variants[i].Artifact = c.resolve(c.Variants[i].Artifact)
	}
}

func (c *Config) resolve(p string) string {
	if p == "" || filepath.IsAbs(p) || c.Dir == "" {
		return p
	}
	return filepath.Join(c.Dir, p)
}
