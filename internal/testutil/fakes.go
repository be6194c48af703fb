package testutil

import (
	"sync"

	"gonum.org/v1/gonum/mat"

	"github.com/banshee-data/agentsim/internal/sim"
)

// Euler is a forward-Euler integrator: x + dt*f(x, u, t).
type Euler struct{}

// Step implements sim.Integrator.
func (Euler) Step(f sim.Derivative, x sim.State, u sim.Control, t, dt float64) sim.State {
	d := f(x, u, t)
	out := x.Clone()
	for i := range out {
		out[i] += dt * d[i]
	}
	return out
}

// PropagateCall captures the arguments of one Propagate call.
type PropagateCall struct {
	State   sim.State
	Control sim.Control
	T, Dt   float64
}

// CountingDynamics integrates dx/dt = u, padding missing control entries
// with zero, and records every call. Fn, when set, replaces the model.
type CountingDynamics struct {
	Fn func(x sim.State, u sim.Control, t, dt float64) sim.State

	mu    sync.Mutex
	calls []PropagateCall
}

// Propagate implements sim.Dynamics.
func (d *CountingDynamics) Propagate(x sim.State, u sim.Control, t, dt float64, integrator sim.Integrator) sim.State {
	d.mu.Lock()
	d.calls = append(d.calls, PropagateCall{State: x.Clone(), Control: u.Clone(), T: t, Dt: dt})
	d.mu.Unlock()

	if d.Fn != nil {
		return d.Fn(x, u, t, dt)
	}
	return integrator.Step(func(x sim.State, u sim.Control, _ float64) sim.State {
		dx := make(sim.State, len(x))
		for i := range dx {
			if i < len(u) {
				dx[i] = u[i]
			}
		}
		return dx
	}, x, u, t, dt)
}

// Calls returns the number of Propagate calls.
func (d *CountingDynamics) Calls() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.calls)
}

// History returns a copy of every recorded call.
func (d *CountingDynamics) History() []PropagateCall {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]PropagateCall(nil), d.calls...)
}

// PosedDynamics wraps CountingDynamics and reads the pose from state[0:2].
type PosedDynamics struct {
	CountingDynamics
}

// Pose implements sim.PoseProvider.
func (d *PosedDynamics) Pose(x sim.State) sim.Pose {
	return sim.PoseXYYaw(x[0], x[1], 0)
}

// SenseCall captures the arguments of one Sense call.
type SenseCall struct {
	Truth     sim.State
	Pose      sim.Pose
	Obstacles sim.ObstacleSnapshot
	T         float64
}

// StubSensor reports Values on every call unless Silent is set.
type StubSensor struct {
	Kind   sim.MeasurementKind
	Values []float64
	Silent bool

	// OnSense, when set, runs before the measurement is produced.
	OnSense func(call SenseCall)

	mu    sync.Mutex
	calls []SenseCall
}

// Sense implements sim.SensorModel.
func (s *StubSensor) Sense(truth sim.State, pose sim.Pose, obstacles sim.ObstacleSnapshot, t float64) (sim.Measurement, bool) {
	call := SenseCall{Truth: truth.Clone(), Pose: pose, Obstacles: obstacles, T: t}
	s.mu.Lock()
	s.calls = append(s.calls, call)
	s.mu.Unlock()
	if s.OnSense != nil {
		s.OnSense(call)
	}
	if s.Silent {
		return sim.Measurement{}, false
	}
	return sim.Measurement{Kind: s.Kind, Time: t, Values: append([]float64(nil), s.Values...)}, true
}

// Calls returns the number of Sense calls.
func (s *StubSensor) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

// History returns a copy of every recorded call.
func (s *StubSensor) History() []SenseCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]SenseCall(nil), s.calls...)
}

// RecordingEstimator records predict and update calls in order. Its estimate
// is the last measurement's values, or State if none arrived yet.
type RecordingEstimator struct {
	State      sim.State
	Covariance *mat.SymDense

	mu      sync.Mutex
	log     []string
	updates []sim.Measurement
	reads   int
}

// Predict implements sim.Estimator.
func (e *RecordingEstimator) Predict(u sim.Control, dynamics sim.Dynamics, dt float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.log = append(e.log, "predict")
}

// Update implements sim.Estimator.
func (e *RecordingEstimator) Update(m sim.Measurement) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.log = append(e.log, "update")
	e.updates = append(e.updates, m)
	e.State = append(sim.State(nil), m.Values...)
}

// CurrentEstimate implements sim.Estimator.
func (e *RecordingEstimator) CurrentEstimate() sim.State {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.reads++
	return e.State.Clone()
}

// CurrentCovariance implements sim.Estimator.
func (e *RecordingEstimator) CurrentCovariance() *mat.SymDense {
	return sim.CloneSym(e.Covariance)
}

// Log returns the sequence of "predict" and "update" calls.
func (e *RecordingEstimator) Log() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.log...)
}

// Updates returns every measurement passed to Update, in call order.
func (e *RecordingEstimator) Updates() []sim.Measurement {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]sim.Measurement(nil), e.updates...)
}

// Count returns how many times call ("predict" or "update") was made.
func (e *RecordingEstimator) Count(call string) int {
	n := 0
	for _, c := range e.Log() {
		if c == call {
			n++
		}
	}
	return n
}

// Reads returns how many times CurrentEstimate was called.
func (e *RecordingEstimator) Reads() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.reads
}

// PlanOutcome is one scripted planner response.
type PlanOutcome struct {
	Path sim.Path
	Err  error
}

// ScriptedPlanner returns its outcomes in order, repeating the last one.
// With no outcomes it returns a straight line to the goal position.
type ScriptedPlanner struct {
	Outcomes []PlanOutcome

	// Gate, when set, blocks every call until a value is received.
	Gate chan struct{}

	mu       sync.Mutex
	requests []sim.PlanRequest
}

// PlanPath implements sim.Planner.
func (p *ScriptedPlanner) PlanPath(req sim.PlanRequest) (sim.Path, error) {
	p.mu.Lock()
	n := len(p.requests)
	p.requests = append(p.requests, req)
	p.mu.Unlock()

	if p.Gate != nil {
		<-p.Gate
	}
	if len(p.Outcomes) == 0 {
		return sim.Path{req.Goal.Pose.Position}, nil
	}
	if n >= len(p.Outcomes) {
		n = len(p.Outcomes) - 1
	}
	out := p.Outcomes[n]
	return out.Path.Clone(), out.Err
}

// Calls returns the number of PlanPath calls.
func (p *ScriptedPlanner) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.requests)
}

// Requests returns a copy of every request received.
func (p *ScriptedPlanner) Requests() []sim.PlanRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]sim.PlanRequest(nil), p.requests...)
}

// ControlCall captures the arguments of one CalculateControl call.
type ControlCall struct {
	State   sim.State
	Goal    sim.Goal
	HasPath bool
	Path    sim.Path
	T       float64
}

// RecordingController returns Output on every call. When PopWaypoint is
// set it removes the first waypoint of a non-empty path.
type RecordingController struct {
	Output      sim.Control
	PopWaypoint bool

	mu    sync.Mutex
	calls []ControlCall
}

// CalculateControl implements sim.Controller.
func (c *RecordingController) CalculateControl(x sim.State, goal sim.Goal, dynamics sim.Dynamics, path *sim.Path, t float64) sim.Control {
	call := ControlCall{State: x.Clone(), Goal: goal, HasPath: path != nil, T: t}
	if path != nil {
		call.Path = path.Clone()
		if c.PopWaypoint && len(*path) > 0 {
			*path = (*path)[1:]
		}
	}
	c.mu.Lock()
	c.calls = append(c.calls, call)
	c.mu.Unlock()
	return c.Output.Clone()
}

// Calls returns the number of CalculateControl calls.
func (c *RecordingController) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.calls)
}

// History returns a copy of every recorded call.
func (c *RecordingController) History() []ControlCall {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]ControlCall(nil), c.calls...)
}

// Panicker panics in every capability method.
type Panicker struct {
	Message string
}

func (p Panicker) msg() string {
	if p.Message == "" {
		return "boom"
	}
	return p.Message
}

func (p Panicker) Propagate(sim.State, sim.Control, float64, float64, sim.Integrator) sim.State {
	panic(p.msg())
}

func (p Panicker) Sense(sim.State, sim.Pose, sim.ObstacleSnapshot, float64) (sim.Measurement, bool) {
	panic(p.msg())
}

func (p Panicker) PlanPath(sim.PlanRequest) (sim.Path, error) { panic(p.msg()) }

func (p Panicker) CalculateControl(sim.State, sim.Goal, sim.Dynamics, *sim.Path, float64) sim.Control {
	panic(p.msg())
}
