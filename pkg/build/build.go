// Package build runs the external render step that turns settings into PDF
// artifacts.
//
// The renderer is a black box reached through a shell command. Its command
// line may contain the placeholders {port} and {variants}; the same values are
// exported as PAGEFIT_PORT and PAGEFIT_VARIANTS. A failing build is retried
// exactly once on the alternate port, which covers the common case of a
// preview server still holding the primary port.
package build

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/pagefit/pkg/errors"
	"github.com/matzehuels/pagefit/pkg/observability"
)

// Request names the variants whose artifacts must be rendered. An empty list
// means all variants.
type Request struct {
	Variants []string
}

// Builder renders artifacts.
type Builder interface {
	Build(ctx context.Context, req Request) error
}

// Func adapts a function to the Builder interface.
type Func func(ctx context.Context, req Request) error

// Build calls f.
func (f Func) Build(ctx context.Context, req Request) error { return f(ctx, req) }

// Options configures a CommandBuilder.
type Options struct {
	Command       string
	Dir           string
	Port          int
	AlternatePort int
	Timeout       time.Duration
	Env           []string
}

// Validate checks the options.
func (o Options) Validate() error {
	if strings.TrimSpace(o.Command) == "" {
		return errors.New(errors.ErrCodeConfig, "build command is empty")
	}
	if o.Port < 0 || o.Port > 65535 {
		return errors.New(errors.ErrCodeConfig, "build port %d out of range", o.Port)
	}
	if o.AlternatePort < 0 || o.AlternatePort > 65535 {
		return errors.New(errors.ErrCodeConfig, "alternate port %d out of range", o.AlternatePort)
	}
	if o.Timeout < 0 {
		return errors.New(errors.ErrCodeConfig, "build timeout must be >= 0")
	}
	return nil
}

// CommandBuilder runs the build command through sh -c.
type CommandBuilder struct {
	opts   Options
	logger *log.Logger
}

// NewCommandBuilder validates opts and returns a builder.
func NewCommandBuilder(opts Options, logger *log.Logger) (*CommandBuilder, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return &CommandBuilder{opts: opts, logger: logger}, nil
}

// Build runs the command on the primary port and, on failure, once more on
// the alternate port.
func (b *CommandBuilder) Build(ctx context.Context, req Request) error {
	err := b.run(ctx, b.opts.Port, req)
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}

	retryPort := b.opts.AlternatePort
	if retryPort == 0 {
		retryPort = b.opts.Port
	}
	b.logger.Warn("Build failed, retrying", "port", retryPort, "error", err)

	if err := b.run(ctx, retryPort, req); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return errors.Wrap(errors.ErrCodeBuild, err, "build failed twice")
	}
	return nil
}

func (b *CommandBuilder) run(ctx context.Context, port int, req Request) (err error) {
	hooks := observability.Build()
	hooks.OnBuildStart(ctx, port, req.Variants)
	start := time.Now()
	defer func() { hooks.OnBuildComplete(ctx, port, time.Since(start), err) }()

	if b.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.opts.Timeout)
		defer cancel()
	}

	variants := strings.Join(req.Variants, ",")
	line := expand(b.opts.Command, port, variants)

	cmd := exec.CommandContext(ctx, "sh", "-c", line)
	cmd.Dir = b.opts.Dir
	cmd.Env = append(os.Environ(), b.opts.Env...)
	cmd.Env = append(cmd.Env,
		"PAGEFIT_PORT="+strconv.Itoa(port),
		"PAGEFIT_VARIANTS="+variants,
	)
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	b.logger.Debug("Running build", "command", line, "port", port)
	runErr := cmd.Run()
	if out.Len() > 0 {
		b.logger.Debug("Build output", "output", strings.TrimSpace(out.String()))
	}
	if runErr != nil {
		if tail := lastLines(out.String(), 5); tail != "" {
			return fmt.Errorf("%w: %s", runErr, tail)
		}
		return runErr
	}
	return nil
}

func expand(command string, port int, variants string) string {
	r := strings.NewReplacer("{port}", strconv.Itoa(port), "{variants}", variants)
	return r.Replace(command)
}

func lastLines(s string, n int) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, " | ")
}
