package pipeline

import (
	"fmt"

	"github.com/banshee-data/agentsim/internal/agent"
	"github.com/banshee-data/agentsim/internal/monitoring"
	"github.com/banshee-data/agentsim/internal/scheduler"
	"github.com/banshee-data/agentsim/internal/sim"
)

// PlanningTrigger invokes an agent's planner on the rising edge of "has a
// goal and an empty path": right after a goal is set or a path container is
// (re)created. It never re-plans on its own, so a failed attempt is retried
// only when the goal changes again.
type PlanningTrigger struct {
	Env
	FromEstimate bool

	async         *asyncPlanner
	emptyReported bool
}

// NewPlanningTrigger returns a planning pass. With async set, planners run
// on background workers and their results are committed on a later tick.
func NewPlanningTrigger(env Env, fromEstimate, async bool) *PlanningTrigger {
	p := &PlanningTrigger{Env: env, FromEstimate: fromEstimate}
	if async {
		p.async = newAsyncPlanner(env.Workers)
	}
	return p
}

// Run commits finished background plans, then plans for every triggered
// agent. While no obstacle grid is configured the pass is skipped and
// pending edges are kept.
func (p *PlanningTrigger) Run(w *agent.World, tick scheduler.Tick) {
	now := tick.Time()
	if p.async != nil {
		p.commit(w, now)
	}

	cfg, grid := w.Grid()
	if grid.Empty() {
		if !p.emptyReported {
			p.report(now, nil, monitoring.PassPlanning, monitoring.KindEmptyEnvironment,
				"no obstacle grid configured, planning paused")
			p.emptyReported = true
		}
		return
	}
	p.emptyReported = false

	triggered := p.triggered(w)
	if len(triggered) == 0 {
		return
	}

	// One snapshot for the whole batch.
	obstacles := w.Obstacles()
	reqs := make([]sim.PlanRequest, len(triggered))
	for i, a := range triggered {
		reqs[i] = sim.PlanRequest{
			State:     feedbackState(a, p.FromEstimate),
			Goal:      goalCopy(a),
			Obstacles: obstacles,
			Dynamics:  a.Dynamics,
			Grid:      cfg,
			Occupancy: grid,
			Time:      now,
		}
	}

	if p.async != nil {
		submitted := 0
		for i, a := range triggered {
			job := planJob{agent: a.ID, name: a.Name, gen: a.GoalGeneration(), planner: a.Planner, req: reqs[i]}
			if !p.async.submit(job) {
				// Pool saturated; the edge stays pending for the next tick.
				continue
			}
			a.ConsumePlanningEdge()
			submitted++
		}
		tracef("[Planning] t=%.3fs submitted %d of %d plans", now, submitted, len(triggered))
		return
	}

	results := make([]planResult, len(triggered))
	p.forEach(len(triggered), func(i int) {
		a := triggered[i]
		results[i].panicked = !p.guard(monitoring.PassPlanning, a, now, "planner", func() {
			results[i].path, results[i].err = a.Planner.PlanPath(reqs[i])
		})
	})
	for i, a := range triggered {
		a.ConsumePlanningEdge()
		if results[i].panicked {
			clearPath(a)
			continue
		}
		p.apply(a, results[i].path, results[i].err, now)
	}
}

// triggered selects the agents to plan for. Edges of agents that cannot be
// planned for right now (no goal, no path container, a path still being
// followed) are consumed; agents with a plan in flight keep theirs.
func (p *PlanningTrigger) triggered(w *agent.World) []*agent.Agent {
	var out []*agent.Agent
	for _, a := range w.Agents() {
		if !a.Autonomous || a.Planner == nil || !a.PlanningEdge() {
			continue
		}
		if p.async != nil && p.async.busy(a.ID) {
			continue
		}
		path := a.Path()
		if !a.HasGoal() || a.TrueState == nil || path == nil || len(*path) > 0 {
			a.ConsumePlanningEdge()
			continue
		}
		out = append(out, a)
	}
	return out
}

// apply stores a planner outcome on the agent's path container.
func (p *PlanningTrigger) apply(a *agent.Agent, path sim.Path, err error, now float64) {
	if err != nil {
		clearPath(a)
		p.report(now, a, monitoring.PassPlanning, monitoring.KindPlanningFailed,
			fmt.Sprintf("path planning failed: %v", err))
		return
	}
	if len(path) == 0 {
		clearPath(a)
		diagf("[Planning] agent %s: planner returned an empty path, holding at goal", a.ID)
		return
	}
	*a.Path() = path
	diagf("[Planning] agent %s: path found with %d waypoints", a.ID, len(path))
}

// commit applies finished background plans. A result is discarded when
// its agent has been despawned, has dropped its path container, or has
// received a new goal since the plan was submitted.
func (p *PlanningTrigger) commit(w *agent.World, now float64) {
	for _, res := range p.async.collect() {
		a := w.Agent(res.agent)
		switch {
		case a == nil:
			p.record(monitoring.Diagnostic{SimTime: now, Agent: res.agent, AgentName: res.name,
				Pass: monitoring.PassPlanning, Kind: monitoring.KindStaleResult,
				Reason: "agent despawned before its plan completed"})
		case a.Path() == nil:
			p.report(now, a, monitoring.PassPlanning, monitoring.KindStaleResult,
				"path container removed before the plan completed")
		case !a.HasGoal() || a.GoalGeneration() != res.gen:
			p.report(now, a, monitoring.PassPlanning, monitoring.KindStaleResult,
				fmt.Sprintf("goal changed while planning (generation %d, now %d)", res.gen, a.GoalGeneration()))
		case res.panicked:
			clearPath(a)
			p.report(now, a, monitoring.PassPlanning, monitoring.KindPluginPanic,
				fmt.Sprintf("planner panicked: %v", res.recovered))
		default:
			p.apply(a, res.path, res.err, now)
		}
	}
}

// Close waits for background plans to finish. Their results are dropped.
func (p *PlanningTrigger) Close() {
	if p.async != nil {
		p.async.wait()
	}
}

func clearPath(a *agent.Agent) {
	if path := a.Path(); path != nil {
		*path = sim.Path{}
	}
}
