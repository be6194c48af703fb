package pipeline

import (
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/banshee-data/agentsim/internal/agent"
	"github.com/banshee-data/agentsim/internal/monitoring"
)

// Env carries what every pass shares: the diagnostics sink and the size of
// the per-agent worker pool.
type Env struct {
	Diagnostics *monitoring.Recorder
	Workers     int // <= 1 runs per-agent work on the calling goroutine
}

// forEach runs fn(i) for every i in [0, n) on up to Workers goroutines and
// waits for all of them. Callers must give each index a distinct agent.
func (e Env) forEach(n int, fn func(i int)) {
	if n == 0 {
		return
	}
	if e.Workers <= 1 || n == 1 {
		for i := 0; i < n; i++ {
			fn(i)
		}
		return
	}
	var g errgroup.Group
	g.SetLimit(e.Workers)
	for i := 0; i < n; i++ {
		g.Go(func() error {
			fn(i)
			return nil
		})
	}
	_ = g.Wait()
}

// guard runs fn and converts a panic into a plugin-panic diagnostic for a.
// It reports whether fn returned normally.
func (e Env) guard(pass monitoring.Pass, a *agent.Agent, now float64, what string, fn func()) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			ok = false
			e.report(now, a, pass, monitoring.KindPluginPanic, fmt.Sprintf("%s panicked: %v", what, r))
		}
	}()
	fn()
	return true
}

// report records a diagnostic for a (nil for pass-wide conditions).
func (e Env) report(now float64, a *agent.Agent, pass monitoring.Pass, kind monitoring.Kind, reason string) {
	d := monitoring.Diagnostic{SimTime: now, Pass: pass, Kind: kind, Reason: reason}
	if a != nil {
		d.Agent = a.ID
		d.AgentName = a.Name
	}
	e.record(d)
}

func (e Env) record(d monitoring.Diagnostic) {
	d = e.Diagnostics.Record(d)
	switch d.Kind {
	case monitoring.KindInvalidStep, monitoring.KindEmptyEnvironment, monitoring.KindStaleResult:
		diagf("[Diagnostics] %s", d)
	default:
		opsf("[Diagnostics] %s", d)
	}
}
