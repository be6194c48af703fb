package sim

import "gonum.org/v1/gonum/mat"

// Derivative is a continuous-time system: dx/dt = f(x, u, t).
type Derivative func(x State, u Control, t float64) State

// Integrator advances a continuous-time system by one step. Implementations
// must be stateless between calls so one instance can be shared by
// concurrent propagations.
type Integrator interface {
	Step(f Derivative, x State, u Control, t, dt float64) State
}

// Dynamics propagates an agent's physical state. A model may be called from
// a background planner while the dynamics pass runs, so it must not keep
// mutable state.
type Dynamics interface {
	Propagate(x State, u Control, t, dt float64, integrator Integrator) State
}

// PoseProvider is implemented by dynamics models that can derive a world
// pose from their state vector.
type PoseProvider interface {
	Pose(x State) Pose
}

// SensorModel produces a measurement from the true state. ok is false when
// the sensor has nothing to report this time.
type SensorModel interface {
	Sense(truth State, sensorPose Pose, obstacles ObstacleSnapshot, t float64) (m Measurement, ok bool)
}

// Estimator is a recursive state estimator owned by a single agent.
type Estimator interface {
	Predict(u Control, dynamics Dynamics, dt float64)
	Update(m Measurement)
	CurrentEstimate() State
	CurrentCovariance() *mat.SymDense // nil if the estimator has none
}

// PlanRequest carries the inputs of a single planning attempt.
type PlanRequest struct {
	State     State
	Goal      Goal
	Obstacles ObstacleSnapshot
	Dynamics  Dynamics // may be nil
	Grid      GridConfig
	Occupancy *ObstacleGrid
	Time      float64
}

// Planner computes a path to the goal. An empty path with a nil error is a
// valid result when the agent already sits at the goal. A planner is never
// invoked concurrently for the same agent.
type Planner interface {
	PlanPath(req PlanRequest) (Path, error)
}

// Controller computes a control input. path may be nil when the agent has
// no path container; the controller may advance it in place. Controllers
// must handle an empty path by seeking or holding the goal.
type Controller interface {
	CalculateControl(x State, goal Goal, dynamics Dynamics, path *Path, t float64) Control
}
