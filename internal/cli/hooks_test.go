package cli

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
)

func TestRunHooks(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, log.DebugLevel)
	s := newSpinner("Calibrating...")
	s.tty = false

	h := runHooks{logger: logger, spinner: s}
	ctx := context.Background()
	h.OnIterationStart(ctx, 2)
	h.OnVariantClassified(ctx, 2, "short", "adjustable", 4.25)
	h.OnIterationComplete(ctx, 2, 1, 15*time.Millisecond)

	if s.message != "Iteration 2..." {
		t.Errorf("spinner message = %q, want %q", s.message, "Iteration 2...")
	}
	out := buf.String()
	for _, want := range []string{"Iteration started", "short", "+4.25pt", "adjusted=1"} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %q:\n%s", want, out)
		}
	}
}

func TestBuildLogHooks(t *testing.T) {
	var buf bytes.Buffer
	h := buildLogHooks{logger: newLogger(&buf, log.InfoLevel)}
	ctx := context.Background()

	h.OnBuildStart(ctx, 4173, []string{"short"})
	h.OnBuildComplete(ctx, 4173, time.Second, nil)
	if buf.Len() != 0 {
		t.Errorf("successful build should only log at debug level, got %q", buf.String())
	}

	h.OnBuildComplete(ctx, 4173, time.Second, errors.New("port in use"))
	if !strings.Contains(buf.String(), "port in use") {
		t.Errorf("failed build should be logged, got %q", buf.String())
	}
}

func TestCacheTracker(t *testing.T) {
	p := &cacheTracker{}
	p.OnCacheMiss(context.Background(), "measurement")
	if p.hit {
		t.Error("miss should not mark a hit")
	}
	p.OnCacheHit(context.Background(), "measurement")
	if !p.hit {
		t.Error("hit not recorded")
	}
}
