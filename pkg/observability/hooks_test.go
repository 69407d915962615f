package observability

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestNoopHooksDoNotPanic(t *testing.T) {
	ctx := context.Background()

	c := NoopCalibrationHooks{}
	c.OnRunStart(ctx, "run", 3)
	c.OnIterationStart(ctx, 1)
	c.OnVariantClassified(ctx, 1, "letter", "adjustable", 4.5)
	c.OnIterationComplete(ctx, 1, 2, time.Second)
	c.OnRunComplete(ctx, "run", "converged", 1, time.Second, nil)

	b := NoopBuildHooks{}
	b.OnBuildStart(ctx, 4173, []string{"letter"})
	b.OnBuildComplete(ctx, 4173, time.Second, errors.New("boom"))

	ch := NoopCacheHooks{}
	ch.OnCacheHit(ctx, "measurement")
	ch.OnCacheMiss(ctx, "measurement")
	ch.OnCacheSet(ctx, "measurement", 128)
}

func TestGlobalHooksRegistry(t *testing.T) {
	Reset()

	if _, ok := Calibration().(NoopCalibrationHooks); !ok {
		t.Error("Calibration() should return NoopCalibrationHooks by default")
	}
	if _, ok := Build().(NoopBuildHooks); !ok {
		t.Error("Build() should return NoopBuildHooks by default")
	}
	if _, ok := Cache().(NoopCacheHooks); !ok {
		t.Error("Cache() should return NoopCacheHooks by default")
	}

	customCalibration := &testCalibrationHooks{}
	SetCalibrationHooks(customCalibration)
	if Calibration() != customCalibration {
		t.Error("SetCalibrationHooks should set custom hooks")
	}

	customBuild := &testBuildHooks{}
	SetBuildHooks(customBuild)
	if Build() != customBuild {
		t.Error("SetBuildHooks should set custom hooks")
	}

	customCache := &testCacheHooks{}
	SetCacheHooks(customCache)
	if Cache() != customCache {
		t.Error("SetCacheHooks should set custom hooks")
	}

	Reset()
	if _, ok := Calibration().(NoopCalibrationHooks); !ok {
		t.Error("Reset() should restore NoopCalibrationHooks")
	}
	if _, ok := Build().(NoopBuildHooks); !ok {
		t.Error("Reset() should restore NoopBuildHooks")
	}
}

func TestSetNilHooksIsIgnored(t *testing.T) {
	Reset()
	defer Reset()

	custom := &testCalibrationHooks{}
	SetCalibrationHooks(custom)
	SetCalibrationHooks(nil)
	if Calibration() != custom {
		t.Error("SetCalibrationHooks(nil) should be ignored")
	}
}

type testCalibrationHooks struct{ NoopCalibrationHooks }
type testBuildHooks struct{ NoopBuildHooks }
type testCacheHooks struct{ NoopCacheHooks }
