package raytrace

import (
	"bytes"
	"log/slog"
	"testing"
)

func TestDefaultOrchestratorOptions(t *testing.T) {
	o := defaultOrchestratorOptions()
	if o.maxBounces != 8 {
		t.Errorf("default maxBounces = %d, want 8", o.maxBounces)
	}
	if o.showGrid {
		t.Error("default showGrid = true, want false")
	}
	if o.debugEnabled {
		t.Error("default debugEnabled = true, want false")
	}
	if o.maxFrameFailures != 8 {
		t.Errorf("default maxFrameFailures = %d, want 8", o.maxFrameFailures)
	}
}

func TestWithMaxBounces(t *testing.T) {
	o := defaultOrchestratorOptions()
	WithMaxBounces(4)(&o)
	if o.maxBounces != 4 {
		t.Errorf("maxBounces = %d, want 4", o.maxBounces)
	}
}

func TestWithMaxBouncesClampsToEight(t *testing.T) {
	o := defaultOrchestratorOptions()
	WithMaxBounces(100)(&o)
	if o.maxBounces != 8 {
		t.Errorf("maxBounces = %d, want clamped to 8", o.maxBounces)
	}
}

func TestWithShowGrid(t *testing.T) {
	o := defaultOrchestratorOptions()
	WithShowGrid(true)(&o)
	if !o.showGrid {
		t.Error("showGrid = false, want true")
	}
}

func TestWithDebugPixel(t *testing.T) {
	o := defaultOrchestratorOptions()
	WithDebugPixel(12, 34)(&o)
	if !o.debugEnabled {
		t.Error("debugEnabled = false, want true")
	}
	if o.debugPixel != [2]uint32{12, 34} {
		t.Errorf("debugPixel = %v, want [12 34]", o.debugPixel)
	}
}

func TestWithMaxFrameFailuresFloorsAtOne(t *testing.T) {
	o := defaultOrchestratorOptions()
	WithMaxFrameFailures(0)(&o)
	if o.maxFrameFailures != 1 {
		t.Errorf("maxFrameFailures = %d, want floored to 1", o.maxFrameFailures)
	}
}

func TestWithLogger(t *testing.T) {
	o := defaultOrchestratorOptions()
	var buf bytes.Buffer
	l := slog.New(slog.NewTextHandler(&buf, nil))
	WithLogger(l)(&o)
	if o.logger != l {
		t.Error("WithLogger did not set the logger")
	}
}

func TestWithSoftwareFallback(t *testing.T) {
	o := defaultOrchestratorOptions()
	WithSoftwareFallback(true)(&o)
	if !o.useSoftware {
		t.Error("useSoftware = false, want true")
	}
}

func TestWithLODFactor(t *testing.T) {
	o := defaultOrchestratorOptions()
	WithLODFactor(0.5)(&o)
	if o.lodFactor != 0.5 {
		t.Errorf("lodFactor = %v, want 0.5", o.lodFactor)
	}
}

func TestMultipleOrchestratorOptions(t *testing.T) {
	o := defaultOrchestratorOptions()
	WithMaxBounces(2)(&o)
	WithShowGrid(true)(&o)
	WithDebugPixel(1, 2)(&o)

	if o.maxBounces != 2 || !o.showGrid || !o.debugEnabled {
		t.Errorf("combined options not all applied: %+v", o)
	}
}
