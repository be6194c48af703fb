package pipeline

import (
	"fmt"

	"github.com/banshee-data/agentsim/internal/agent"
	"github.com/banshee-data/agentsim/internal/monitoring"
	"github.com/banshee-data/agentsim/internal/scheduler"
	"github.com/banshee-data/agentsim/internal/sim"
)

// DynamicsStep advances every agent's true state once per physics tick.
type DynamicsStep struct {
	Env
	Integrator sim.Integrator // shared by all propagations; must be stateless
}

// Run propagates every agent that has a true state, a dynamics model and a
// control input. Agents carrying an obstacle component are not propagated.
// A non-positive step turns the whole pass into a no-op.
func (d *DynamicsStep) Run(w *agent.World, tick scheduler.Tick) {
	dt := tick.Dt()
	if dt <= 0 {
		d.report(tick.Time(), nil, monitoring.PassDynamics, monitoring.KindInvalidStep,
			fmt.Sprintf("non-positive step %s, pass skipped", tick.Delta))
		return
	}

	var agents []*agent.Agent
	for _, a := range w.Agents() {
		if a.TrueState == nil || a.Dynamics == nil || a.Control == nil || a.Obstacle != nil {
			continue
		}
		agents = append(agents, a)
	}

	t0 := tick.Start()
	d.forEach(len(agents), func(i int) {
		d.step(agents[i], t0, dt)
	})
	tracef("[Dynamics] t=%.3fs propagated %d agents (dt=%s)", tick.Time(), len(agents), tick.Delta)
}

// step propagates a copy of a's state and writes it back only if the
// result is well formed. It touches no other agent.
func (d *DynamicsStep) step(a *agent.Agent, t, dt float64) {
	var next sim.State
	ok := d.guard(monitoring.PassDynamics, a, t, "dynamics", func() {
		next = a.Dynamics.Propagate(a.TrueState.Clone(), a.Control.U.Clone(), t, dt, d.Integrator)
	})
	if !ok {
		return
	}
	if len(next) != len(a.TrueState) {
		d.report(t, a, monitoring.PassDynamics, monitoring.KindPropagationRejected,
			fmt.Sprintf("dynamics returned %d values, want %d", len(next), len(a.TrueState)))
		return
	}
	if !next.Finite() {
		d.report(t, a, monitoring.PassDynamics, monitoring.KindPropagationRejected,
			"dynamics returned non-finite values")
		return
	}
	a.TrueState = next

	pp, isPosed := a.Dynamics.(sim.PoseProvider)
	if !isPosed {
		return
	}
	var pose sim.Pose
	if d.guard(monitoring.PassDynamics, a, t, "pose", func() { pose = pp.Pose(next) }) {
		a.Pose = pose.Normalized()
	}
}
