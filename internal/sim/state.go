package sim

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// State is an agent state vector. Its shape is agent specific.
type State []float64

// Clone returns an independent copy of s. A nil state clones to nil.
func (s State) Clone() State {
	if s == nil {
		return nil
	}
	c := make(State, len(s))
	copy(c, s)
	return c
}

// Finite reports whether every element of s is a finite number.
func (s State) Finite() bool {
	for _, v := range s {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Control is a control input vector.
type Control []float64

// Clone returns an independent copy of c.
func (c Control) Clone() Control {
	if c == nil {
		return nil
	}
	out := make(Control, len(c))
	copy(out, c)
	return out
}

// Estimate is the published output of an estimator: the state estimate and
// an optional covariance.
type Estimate struct {
	State      State
	Covariance *mat.SymDense // nil when the estimator reports none
}

// Clone deep-copies the estimate so the published value never aliases the
// estimator's internal buffers.
func (e Estimate) Clone() Estimate {
	return Estimate{State: e.State.Clone(), Covariance: CloneSym(e.Covariance)}
}

// CloneSym returns a copy of m, or nil if m is nil.
func CloneSym(m *mat.SymDense) *mat.SymDense {
	if m == nil {
		return nil
	}
	n, _ := m.Dims()
	if n == 0 {
		return nil
	}
	out := mat.NewSymDense(n, nil)
	out.CopySym(m)
	return out
}

// Goal is the externally supplied target of an agent. Planners and
// controllers read the position of Pose; State optionally carries a full
// target state for controllers that regulate more than position.
type Goal struct {
	Pose  Pose
	State State
}
