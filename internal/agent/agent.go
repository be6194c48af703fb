package agent

import (
	"github.com/google/uuid"

	"github.com/banshee-data/agentsim/internal/sim"
)

// ID identifies an agent for its whole lifetime.
type ID = uuid.UUID

// NilID is the zero agent ID. Spawn assigns a fresh ID to agents that carry it.
var NilID = uuid.Nil

// ParseID parses the canonical string form of an agent ID.
func ParseID(s string) (ID, error) {
	return uuid.Parse(s)
}

// ControlInput holds the most recent control vector of an agent.
type ControlInput struct {
	U sim.Control
}

// Agent is the attribute bundle of one simulated agent. Optional components
// are nil when absent.
type Agent struct {
	ID         ID
	Name       string
	Autonomous bool // estimator, planner and controller passes skip non-autonomous agents

	// Pose is the agent's world transform. Dynamics models implementing
	// sim.PoseProvider keep it in sync with TrueState.
	Pose      sim.Pose
	TrueState sim.State

	// Obstacle, when set, makes the agent visible to sensors and planners
	// as an obstacle located at Pose. Such agents are not propagated.
	Obstacle *sim.Obstacle

	Estimated  *sim.Estimate
	Control    *ControlInput
	Dynamics   sim.Dynamics
	Sensors    *SensorSuite
	Estimator  *EstimatorLogic
	Planner    sim.Planner
	Controller sim.Controller

	goal    *sim.Goal
	goalGen uint64
	path    *sim.Path

	goalEdge bool
	pathEdge bool
}

// Goal returns the agent's current goal.
func (a *Agent) Goal() (sim.Goal, bool) {
	if a.goal == nil {
		return sim.Goal{}, false
	}
	return *a.goal, true
}

// HasGoal reports whether a goal is attached.
func (a *Agent) HasGoal() bool { return a.goal != nil }

// GoalGeneration increments every time a goal is set. Asynchronous planning
// uses it to discard results computed for a goal that has since changed.
func (a *Agent) GoalGeneration() uint64 { return a.goalGen }

// SetGoal attaches or replaces the goal and raises the planning edge.
func (a *Agent) SetGoal(g sim.Goal) {
	g.State = g.State.Clone()
	a.goal = &g
	a.goalGen++
	a.goalEdge = true
}

// ClearGoal removes the goal. It does not raise the planning edge.
func (a *Agent) ClearGoal() {
	a.goal = nil
}

// Path returns the agent's path container, or nil if it has none. The
// returned pointer may be used to modify the path in place.
func (a *Agent) Path() *sim.Path { return a.path }

// AttachPath (re)creates an empty path container and raises the planning
// edge.
func (a *Agent) AttachPath() {
	p := sim.Path{}
	a.path = &p
	a.pathEdge = true
}

// DetachPath removes the path container.
func (a *Agent) DetachPath() {
	a.path = nil
	a.pathEdge = false
}

// PlanningEdge reports whether a goal was set or the path container was
// created since the edge was last consumed.
func (a *Agent) PlanningEdge() bool { return a.goalEdge || a.pathEdge }

// ConsumePlanningEdge clears the planning edge.
func (a *Agent) ConsumePlanningEdge() {
	a.goalEdge = false
	a.pathEdge = false
}
