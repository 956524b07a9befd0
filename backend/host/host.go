// Copyright 2025 nplift Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package host

import (
	"github.com/nplift-ml/nplift/internal/device"
)

// Runtime is the in-process host runtime. Buffers live in shared
// (host-addressable) memory, so the reference kernels can read and write
// them directly.
type Runtime = device.HostRuntime

// New creates a host runtime.
//
// Example:
//
//	import (
//	    "github.com/nplift-ml/nplift/backend/host"
//	    "github.com/nplift-ml/nplift/lower"
//	)
//
//	func main() {
//	    table := lower.NewTable(nil)
//	    lower.InstallReference(table)
//	    eng := lower.New(table, host.New())
//	    _ = eng
//	}
func New() *Runtime {
	return device.NewHost()
}
