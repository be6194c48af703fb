// Package monitoring carries the simulation's package-level logger and the
// per-agent diagnostics recorder.
package monitoring

import "log"

// Logf is the package-level logger used outside the pipeline (scenario
// loading, HTTP API, process wiring). It defaults to log.Printf.
var Logf func(format string, v ...interface{}) = log.Printf

// SetLogger replaces Logf. Passing nil mutes it.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}

// Component returns a logger that prefixes every message with a bracketed
// component tag, e.g. "[Scenario] ". It resolves Logf at call time so a
// later SetLogger still applies.
func Component(tag string) func(format string, v ...interface{}) {
	prefix := "[" + tag + "] "
	return func(format string, v ...interface{}) {
		Logf(prefix+format, v...)
	}
}
