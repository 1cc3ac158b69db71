// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package raytrace

import (
	"github.com/gogpu/gpucontext"
)

// DeviceHandle provides GPU device access from the host application.
//
// This is the same integration point the gogpu ecosystem uses elsewhere:
// the host (e.g. a windowing application) owns device creation and hands
// raytrace a shared device/queue pair. The core never creates its own
// GPU device.
//
// DeviceHandle is an alias for gpucontext.DeviceProvider.
type DeviceHandle = gpucontext.DeviceProvider

// Presenter receives the finished color buffer for a frame and is
// responsible for getting pixels on screen (blit to a swapchain texture,
// copy to a window surface, encode to a file). Presentation mechanics are
// an external collaborator (spec.md §1); the core only produces the
// buffer described in spec.md §5.
type Presenter interface {
	// Present is called once per frame with the rendered color buffer,
	// tightly packed RGBA8 rows of width*height*4 bytes.
	Present(width, height uint32, rgba []byte) error
}

// PresenterFunc adapts a plain function to Presenter.
type PresenterFunc func(width, height uint32, rgba []byte) error

// Present calls f.
func (f PresenterFunc) Present(width, height uint32, rgba []byte) error {
	return f(width, height, rgba)
}

// DiscardPresenter is a Presenter that drops every frame. Useful for
// benchmarks and tests that only care about dispatch correctness.
type DiscardPresenter struct{}

// Present does nothing and returns nil.
func (DiscardPresenter) Present(uint32, uint32, []byte) error { return nil }
