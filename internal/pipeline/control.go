package pipeline

import (
	"github.com/banshee-data/agentsim/internal/agent"
	"github.com/banshee-data/agentsim/internal/monitoring"
	"github.com/banshee-data/agentsim/internal/scheduler"
	"github.com/banshee-data/agentsim/internal/sim"
)

// ControllerDrive recomputes the control input of every autonomous agent on
// every controller tick.
type ControllerDrive struct {
	Env
	FromEstimate bool // feed the published estimate instead of the true state
}

// Run overwrites ControlInput for every autonomous agent with a control
// input, a controller, a goal and a true state. The controller receives the
// agent's path container, when it has one, and may advance it in place. A
// panicking controller leaves the previous control in place.
func (c *ControllerDrive) Run(w *agent.World, tick scheduler.Tick) {
	now := tick.Time()

	var agents []*agent.Agent
	for _, a := range w.Agents() {
		if !a.Autonomous || a.Control == nil || a.Controller == nil || !a.HasGoal() || a.TrueState == nil {
			continue
		}
		agents = append(agents, a)
	}

	c.forEach(len(agents), func(i int) {
		a := agents[i]
		state := feedbackState(a, c.FromEstimate)
		goal := goalCopy(a)
		var u sim.Control
		if c.guard(monitoring.PassControl, a, now, "controller", func() {
			u = a.Controller.CalculateControl(state, goal, a.Dynamics, a.Path(), now)
		}) {
			a.Control.U = u
		}
	})
	tracef("[Control] t=%.3fs computed control for %d agents", now, len(agents))
}

// feedbackState returns a copy of the state a controller or planner should
// act on: the published estimate when requested and available, otherwise
// the true state.
func feedbackState(a *agent.Agent, fromEstimate bool) sim.State {
	if fromEstimate && a.Estimated != nil && len(a.Estimated.State) > 0 {
		return a.Estimated.State.Clone()
	}
	return a.TrueState.Clone()
}

func goalCopy(a *agent.Agent) sim.Goal {
	g, _ := a.Goal()
	g.State = g.State.Clone()
	return g
}
