package agent

import (
	"gonum.org/v1/gonum/mat"
)

// SensorView is a read-only summary of a sensor instance.
type SensorView struct {
	Name   string  `json:"name"`
	RateHz float64 `json:"rate_hz"`
	Fires  uint64  `json:"fires"`
}

// EstimateView is the JSON-friendly form of a published estimate.
type EstimateView struct {
	State      []float64   `json:"state"`
	Covariance [][]float64 `json:"covariance,omitempty"`
}

// View is a deep-copied snapshot of one agent, safe to use after the
// registry lock is released.
type View struct {
	ID             ID            `json:"id"`
	Name           string        `json:"name"`
	Autonomous     bool          `json:"autonomous"`
	Position       [3]float64    `json:"position"`
	Yaw            float64       `json:"yaw"`
	TrueState      []float64     `json:"true_state"`
	Estimate       *EstimateView `json:"estimate,omitempty"`
	Control        []float64     `json:"control,omitempty"`
	Goal           *[3]float64   `json:"goal,omitempty"`
	GoalGeneration uint64        `json:"goal_generation"`
	HasPath        bool          `json:"has_path"`
	Path           [][3]float64  `json:"path,omitempty"`
	Predicts       uint64        `json:"predicts"`
	Updates        uint64        `json:"updates"`
	Sensors        []SensorView  `json:"sensors,omitempty"`
}

// ViewOf builds a snapshot of a. Callers must hold the registry lock.
func ViewOf(a *Agent) View {
	v := View{
		ID:             a.ID,
		Name:           a.Name,
		Autonomous:     a.Autonomous,
		Position:       [3]float64{a.Pose.Position.X, a.Pose.Position.Y, a.Pose.Position.Z},
		Yaw:            a.Pose.Yaw(),
		TrueState:      a.TrueState.Clone(),
		GoalGeneration: a.goalGen,
	}
	if a.Estimated != nil {
		v.Estimate = &EstimateView{State: a.Estimated.State.Clone(), Covariance: denseRows(a.Estimated.Covariance)}
	}
	if a.Control != nil {
		v.Control = a.Control.U.Clone()
	}
	if g, ok := a.Goal(); ok {
		p := g.Pose.Position
		v.Goal = &[3]float64{p.X, p.Y, p.Z}
	}
	if p := a.Path(); p != nil {
		v.HasPath = true
		for _, w := range *p {
			v.Path = append(v.Path, [3]float64{w.X, w.Y, w.Z})
		}
	}
	if a.Estimator != nil {
		v.Predicts, v.Updates = a.Estimator.Counts()
	}
	if a.Sensors != nil {
		for _, s := range a.Sensors.Sensors {
			v.Sensors = append(v.Sensors, SensorView{Name: s.Name, RateHz: s.RateHz, Fires: s.Fires()})
		}
	}
	return v
}

func denseRows(m *mat.SymDense) [][]float64 {
	if m == nil {
		return nil
	}
	n, _ := m.Dims()
	rows := make([][]float64, n)
	for i := range rows {
		rows[i] = make([]float64, n)
		for j := range rows[i] {
			rows[i][j] = m.At(i, j)
		}
	}
	return rows
}

// Snapshot returns views of every agent in spawn order.
func (r *Registry) Snapshot() []View {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]View, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, ViewOf(r.agents[id]))
	}
	return out
}

// ViewAgent returns a snapshot of a single agent.
func (r *Registry) ViewAgent(id ID) (View, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.agents[id]
	if !ok {
		return View{}, false
	}
	return ViewOf(a), true
}
