package monitoring

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// Pass names the orchestrator that raised a diagnostic.
type Pass string

const (
	PassDynamics   Pass = "dynamics"
	PassSensors    Pass = "sensors"
	PassEstimation Pass = "estimation"
	PassPlanning   Pass = "planning"
	PassControl    Pass = "control"
)

// Kind classifies a diagnostic.
type Kind string

const (
	KindInvalidStep         Kind = "invalid_step"
	KindPlanningFailed      Kind = "planning_failed"
	KindEmptyEnvironment    Kind = "empty_environment"
	KindPropagationRejected Kind = "propagation_rejected"
	KindPluginPanic         Kind = "plugin_panic"
	KindStaleResult         Kind = "stale_result"
)

// Diagnostic is a non-fatal, agent-scoped failure. Agent is uuid.Nil for
// pass-wide conditions such as an invalid step.
type Diagnostic struct {
	Seq       uint64    `json:"seq"`
	SimTime   float64   `json:"sim_time"`
	Agent     uuid.UUID `json:"agent"`
	AgentName string    `json:"agent_name,omitempty"`
	Pass      Pass      `json:"pass"`
	Kind      Kind      `json:"kind"`
	Reason    string    `json:"reason"`
}

func (d Diagnostic) String() string {
	who := "*"
	if d.Agent != uuid.Nil {
		who = d.Agent.String()
		if d.AgentName != "" {
			who = fmt.Sprintf("%s (%s)", d.AgentName, who)
		}
	}
	return fmt.Sprintf("t=%.3fs %s agent %s: %s: %s", d.SimTime, d.Pass, who, d.Kind, d.Reason)
}

// DefaultDiagnosticsCapacity is used when a Recorder is created with a
// non-positive capacity.
const DefaultDiagnosticsCapacity = 256

// Recorder keeps the most recent diagnostics in a bounded ring and counts
// every diagnostic ever recorded by kind. It is safe for concurrent use.
type Recorder struct {
	mu     sync.Mutex
	ring   []Diagnostic
	next   int
	full   bool
	seq    uint64
	byKind map[Kind]uint64
}

// NewRecorder returns a recorder holding up to capacity diagnostics.
func NewRecorder(capacity int) *Recorder {
	if capacity <= 0 {
		capacity = DefaultDiagnosticsCapacity
	}
	return &Recorder{ring: make([]Diagnostic, capacity), byKind: make(map[Kind]uint64)}
}

// Record stores d, assigning it the next sequence number, and returns the
// stored value.
func (r *Recorder) Record(d Diagnostic) Diagnostic {
	if r == nil {
		return d
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	d.Seq = r.seq
	r.ring[r.next] = d
	r.next = (r.next + 1) % len(r.ring)
	if r.next == 0 {
		r.full = true
	}
	r.byKind[d.Kind]++
	return d
}

// Recent returns up to n of the most recent diagnostics, oldest first.
// n <= 0 returns everything retained.
func (r *Recorder) Recent(n int) []Diagnostic {
	if r == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	size := r.next
	if r.full {
		size = len(r.ring)
	}
	if n <= 0 || n > size {
		n = size
	}
	out := make([]Diagnostic, 0, n)
	start := r.next - n
	for i := 0; i < n; i++ {
		idx := (start + i + len(r.ring)) % len(r.ring)
		out = append(out, r.ring[idx])
	}
	return out
}

// ForAgent returns the retained diagnostics for one agent, oldest first.
func (r *Recorder) ForAgent(id uuid.UUID) []Diagnostic {
	var out []Diagnostic
	for _, d := range r.Recent(0) {
		if d.Agent == id {
			out = append(out, d)
		}
	}
	return out
}

// Count returns how many diagnostics of kind have been recorded in total.
func (r *Recorder) Count(kind Kind) uint64 {
	if r == nil {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.byKind[kind]
}

// Total returns how many diagnostics have been recorded in total.
func (r *Recorder) Total() uint64 {
	if r == nil {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.seq
}
