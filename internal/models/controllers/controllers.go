// Package controllers provides waypoint-following controllers. Both
// controllers advance the agent's path in place as waypoints are reached
// and fall back to the goal position once the path is exhausted.
package controllers

import (
	"fmt"
	"math"

	"github.com/banshee-data/agentsim/internal/models/dynamics"
	"github.com/banshee-data/agentsim/internal/sim"
)

const defaultTolerance = 0.1

// track pops every leading waypoint within tol of (x, y) and returns the
// point to steer towards. final is true when that point is the goal.
func track(x, y float64, goal sim.Goal, path *sim.Path, tol float64) (tx, ty float64, final bool) {
	if path != nil {
		p := *path
		for len(p) > 0 && math.Hypot(p[0].X-x, p[0].Y-y) <= tol {
			p = p[1:]
		}
		*path = p
		if len(p) > 0 {
			return p[0].X, p[0].Y, len(p) == 1
		}
	}
	g := goal.Pose.Position
	return g.X, g.Y, true
}

func tolerance(t float64) float64 {
	if t <= 0 {
		return defaultTolerance
	}
	return t
}

// PointMassPD drives a point mass ([x, y, vx, vy]) with a PD law on
// position error. The output acceleration is limited to MaxAccel in norm.
type PointMassPD struct {
	Kp        float64
	Kd        float64
	MaxAccel  float64 // 0 disables
	Tolerance float64
}

// CalculateControl implements sim.Controller.
func (c PointMassPD) CalculateControl(x sim.State, goal sim.Goal, _ sim.Dynamics, path *sim.Path, _ float64) sim.Control {
	if len(x) < 4 {
		return sim.Control{0, 0}
	}
	tx, ty, _ := track(x[0], x[1], goal, path, tolerance(c.Tolerance))
	ax := c.Kp*(tx-x[0]) - c.Kd*x[2]
	ay := c.Kp*(ty-x[1]) - c.Kd*x[3]
	if n := math.Hypot(ax, ay); c.MaxAccel > 0 && n > c.MaxAccel {
		ax, ay = ax*c.MaxAccel/n, ay*c.MaxAccel/n
	}
	return sim.Control{ax, ay}
}

// UnicycleTracker steers a unicycle ([x, y, yaw]) towards the next
// waypoint: turn rate proportional to heading error, forward speed scaled
// by how well the vehicle faces its target. It slows on the final approach
// and holds still within Tolerance of the goal.
type UnicycleTracker struct {
	Speed     float64
	Gain      float64
	Tolerance float64
}

// CalculateControl implements sim.Controller.
func (c UnicycleTracker) CalculateControl(x sim.State, goal sim.Goal, _ sim.Dynamics, path *sim.Path, _ float64) sim.Control {
	if len(x) < 3 {
		return sim.Control{0, 0}
	}
	tol := tolerance(c.Tolerance)
	tx, ty, final := track(x[0], x[1], goal, path, tol)
	dist := math.Hypot(tx-x[0], ty-x[1])
	if final && dist <= tol {
		return sim.Control{0, 0}
	}

	heading := dynamics.WrapAngle(math.Atan2(ty-x[1], tx-x[0]) - x[2])
	v := c.Speed * math.Max(math.Cos(heading), 0)
	if final {
		v = math.Min(v, dist)
	}
	return sim.Control{v, c.Gain * heading}
}

// Params configures New.
type Params struct {
	Kp        float64 `yaml:"kp"`
	Kd        float64 `yaml:"kd"`
	MaxAccel  float64 `yaml:"max_accel"`
	Speed     float64 `yaml:"speed"`
	Gain      float64 `yaml:"gain"`
	Tolerance float64 `yaml:"tolerance"`
}

// New returns the controller registered under kind: "point_mass_pd" or
// "unicycle_tracker". Zero gains take working defaults.
func New(kind string, p Params) (sim.Controller, error) {
	switch kind {
	case "point_mass_pd":
		c := PointMassPD{Kp: p.Kp, Kd: p.Kd, MaxAccel: p.MaxAccel, Tolerance: p.Tolerance}
		if c.Kp == 0 {
			c.Kp = 1
		}
		if c.Kd == 0 {
			c.Kd = 1.5
		}
		return c, nil
	case "unicycle_tracker":
		c := UnicycleTracker{Speed: p.Speed, Gain: p.Gain, Tolerance: p.Tolerance}
		if c.Speed == 0 {
			c.Speed = 1
		}
		if c.Gain == 0 {
			c.Gain = 2
		}
		return c, nil
	default:
		return nil, fmt.Errorf("unknown controller %q", kind)
	}
}
