// Package integrate provides fixed-step ODE integrators. All of them are
// stateless and safe to share between goroutines.
package integrate

import (
	"fmt"

	"github.com/banshee-data/agentsim/internal/sim"
)

// Euler is the explicit first-order method.
type Euler struct{}

// Step implements sim.Integrator.
func (Euler) Step(f sim.Derivative, x sim.State, u sim.Control, t, dt float64) sim.State {
	return axpy(x, dt, f(x, u, t))
}

// Midpoint is the explicit second-order midpoint method.
type Midpoint struct{}

// Step implements sim.Integrator.
func (Midpoint) Step(f sim.Derivative, x sim.State, u sim.Control, t, dt float64) sim.State {
	k1 := f(x, u, t)
	k2 := f(axpy(x, dt/2, k1), u, t+dt/2)
	return axpy(x, dt, k2)
}

// RK4 is the classical fourth-order Runge-Kutta method.
type RK4 struct{}

// Step implements sim.Integrator.
func (RK4) Step(f sim.Derivative, x sim.State, u sim.Control, t, dt float64) sim.State {
	k1 := f(x, u, t)
	k2 := f(axpy(x, dt/2, k1), u, t+dt/2)
	k3 := f(axpy(x, dt/2, k2), u, t+dt/2)
	k4 := f(axpy(x, dt, k3), u, t+dt)

	out := x.Clone()
	for i := range out {
		out[i] += dt / 6 * (k1[i] + 2*k2[i] + 2*k3[i] + k4[i])
	}
	return out
}

// axpy returns x + a*d as a new state.
func axpy(x sim.State, a float64, d sim.State) sim.State {
	out := x.Clone()
	for i := range out {
		out[i] += a * d[i]
	}
	return out
}

// ByName returns the integrator registered under name: "euler",
// "midpoint" or "rk4".
func ByName(name string) (sim.Integrator, error) {
	switch name {
	case "euler":
		return Euler{}, nil
	case "midpoint":
		return Midpoint{}, nil
	case "", "rk4":
		return RK4{}, nil
	default:
		return nil, fmt.Errorf("unknown integrator %q", name)
	}
}
