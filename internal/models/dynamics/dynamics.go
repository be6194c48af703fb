// Package dynamics provides reference dynamics models. Models hold only
// parameters, so a single instance may be shared by many agents.
package dynamics

import (
	"fmt"
	"math"

	"github.com/banshee-data/agentsim/internal/sim"
)

// Model is a dynamics model that also reports its state layout and the
// agent pose.
type Model interface {
	sim.Dynamics
	sim.PoseProvider
	StateDim() int
	ControlDim() int
}

// at returns v[i], or 0 past the end.
func at(v []float64, i int) float64 {
	if i < len(v) {
		return v[i]
	}
	return 0
}

// PointMass is a planar double integrator with linear drag.
//
//	state   [x, y, vx, vy]
//	control [ax, ay]
type PointMass struct {
	Damping  float64 // 1/s
	MaxAccel float64 // per-axis clamp, 0 disables
}

// StateDim returns 4.
func (PointMass) StateDim() int { return 4 }

// ControlDim returns 2.
func (PointMass) ControlDim() int { return 2 }

func (m PointMass) accel(u sim.Control, i int) float64 {
	a := at(u, i)
	if m.MaxAccel > 0 {
		a = math.Max(-m.MaxAccel, math.Min(m.MaxAccel, a))
	}
	return a
}

func (m PointMass) derivative(x sim.State, u sim.Control, _ float64) sim.State {
	return sim.State{
		x[2],
		x[3],
		m.accel(u, 0) - m.Damping*x[2],
		m.accel(u, 1) - m.Damping*x[3],
	}
}

// Propagate implements sim.Dynamics.
func (m PointMass) Propagate(x sim.State, u sim.Control, t, dt float64, integrator sim.Integrator) sim.State {
	return integrator.Step(m.derivative, x, u, t, dt)
}

// Pose faces along the velocity; a resting point mass faces +X.
func (PointMass) Pose(x sim.State) sim.Pose {
	yaw := 0.0
	if math.Hypot(x[2], x[3]) > 1e-9 {
		yaw = math.Atan2(x[3], x[2])
	}
	return sim.PoseXYYaw(x[0], x[1], yaw)
}

// Unicycle is a planar kinematic unicycle.
//
//	state   [x, y, yaw]
//	control [v, omega]
type Unicycle struct {
	MaxSpeed   float64 // 0 disables
	MaxYawRate float64 // 0 disables
}

// StateDim returns 3.
func (Unicycle) StateDim() int { return 3 }

// ControlDim returns 2.
func (Unicycle) ControlDim() int { return 2 }

func clamp(v, limit float64) float64 {
	if limit <= 0 {
		return v
	}
	return math.Max(-limit, math.Min(limit, v))
}

func (m Unicycle) derivative(x sim.State, u sim.Control, _ float64) sim.State {
	v := clamp(at(u, 0), m.MaxSpeed)
	w := clamp(at(u, 1), m.MaxYawRate)
	return sim.State{v * math.Cos(x[2]), v * math.Sin(x[2]), w}
}

// Propagate implements sim.Dynamics. The heading is wrapped to (-pi, pi].
func (m Unicycle) Propagate(x sim.State, u sim.Control, t, dt float64, integrator sim.Integrator) sim.State {
	next := integrator.Step(m.derivative, x, u, t, dt)
	next[2] = WrapAngle(next[2])
	return next
}

// Pose implements sim.PoseProvider.
func (Unicycle) Pose(x sim.State) sim.Pose {
	return sim.PoseXYYaw(x[0], x[1], x[2])
}

// WrapAngle maps a to (-pi, pi].
func WrapAngle(a float64) float64 {
	a = math.Mod(a+math.Pi, 2*math.Pi)
	if a <= 0 {
		a += 2 * math.Pi
	}
	return a - math.Pi
}

// Params configures New.
type Params struct {
	Damping    float64 `yaml:"damping"`
	MaxAccel   float64 `yaml:"max_accel"`
	MaxSpeed   float64 `yaml:"max_speed"`
	MaxYawRate float64 `yaml:"max_yaw_rate"`
}

// New returns the model registered under kind: "point_mass" or "unicycle".
func New(kind string, p Params) (Model, error) {
	switch kind {
	case "point_mass":
		return PointMass{Damping: p.Damping, MaxAccel: p.MaxAccel}, nil
	case "unicycle":
		return Unicycle{MaxSpeed: p.MaxSpeed, MaxYawRate: p.MaxYawRate}, nil
	default:
		return nil, fmt.Errorf("unknown dynamics model %q", kind)
	}
}

// InitialState builds a state vector for m at the given planar pose.
func InitialState(m Model, x, y, yaw float64) sim.State {
	switch m.(type) {
	case Unicycle:
		return sim.State{x, y, WrapAngle(yaw)}
	default:
		s := make(sim.State, m.StateDim())
		s[0], s[1] = x, y
		return s
	}
}
