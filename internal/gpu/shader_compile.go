// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

//go:build !nogpu

package gpu

import (
	"fmt"

	"github.com/gogpu/naga"
)

// validateShader compiles wgslSource to SPIR-V purely to surface parse/type
// errors with naga's diagnostics before the WGSL reaches the driver's own
// (often less precise) compiler. The SPIR-V result itself is discarded;
// Init still creates the shader module from WGSL source directly, the
// convention every other compute/render pipeline in this stack uses.
func validateShader(label, wgslSource string) error {
	spirv, err := naga.Compile(wgslSource)
	if err != nil {
		return fmt.Errorf("raytrace gpu: %s: shader validation failed: %w", label, err)
	}
	slogger().Debug("raytrace gpu: shader validated", "label", label, "spirv_bytes", len(spirv))
	return nil
}
