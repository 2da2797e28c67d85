// Copyright 2017 The Memory Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package malloc

import (
	"fmt"
	"io"
	"os"
)

// Debug toggles the debug trace sink. C allocators traditionally gate
// tracing behind a compile-time flag; Go has no preprocessor, so this is
// a runtime switch instead, defaulting off so it has no observable effect
// -- and no cost beyond a branch -- in the common case.
var Debug = false

// DebugOutput is where trace lines are written when Debug is true. Tests
// redirect this to an in-memory writer to capture the trace output.
var DebugOutput io.Writer = os.Stderr

// debugf writes a single trace line, prefixed so interleaved program
// output stays attributable.
func debugf(format string, args ...interface{}) {
	if !Debug {
		return
	}
	fmt.Fprintf(DebugOutput, "[malloc] "+format+"\n", args...)
}

// fatalAbort is invoked when Free detects the one form of corruption this
// allocator can cheaply catch: a non-nil pointer passed to Free before any
// Allocate has ever run on this Heap. It is a package variable, not a
// hardcoded call, so tests can swap it out instead of actually crashing
// the test binary.
var fatalAbort = defaultFatalAbort
