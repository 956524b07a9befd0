// Copyright 2025 nplift Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package wgpu

import (
	internalwgpu "github.com/nplift-ml/nplift/internal/device/wgpu"
)

// Runtime is the WebGPU device runtime. GPU memory is not host-addressable;
// staged operations copy through mapped staging buffers.
type Runtime = internalwgpu.Runtime

// New creates a WebGPU runtime.
// Returns an error if WebGPU is not available or initialization fails.
//
// The returned runtime holds native resources; call Release when done.
func New() (*Runtime, error) {
	return internalwgpu.New()
}

// IsAvailable checks if WebGPU is available on this system.
func IsAvailable() bool {
	return internalwgpu.IsAvailable()
}
