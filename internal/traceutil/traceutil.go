// Package traceutil wires the library's optional parse trace (one
// event at the start of each challenge; capability "trace": diagnostic
// only, off by default, must
// never change observable output) to the teacher's own tracing
// dependency, github.com/jimrobinson/trace, the same way
// authorization.go calls trace.M/trace.T around lexauth.go.
package traceutil

import (
	"github.com/jimrobinson/trace"
)

// id identifies this package's trace channel, mirroring the teacher's
// package-level traceId var in httpclient.go.
var id = "github.com/colindev/httpauth"

var traceFn, traceEnabled = trace.M(id, trace.Trace)

// Trace emits a formatted trace event if the trace capability has
// been enabled for this process via the trace package's own
// level-setting API. It is a no-op otherwise.
func Trace(format string, args ...any) {
	if traceEnabled {
		trace.T(traceFn, format, args...)
	}
}
