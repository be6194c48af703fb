// Package estimators provides reference state estimators.
package estimators

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/banshee-data/agentsim/internal/sim"
)

// jacobianStep is the finite-difference step for the state Jacobian.
const jacobianStep = 1e-6

// EKF is an extended Kalman filter over an agent's full state vector. The
// transition Jacobian is taken numerically from the dynamics model, so any
// sim.Dynamics works. Position fixes update the first two state components;
// other measurement kinds carry no information about the state and are
// ignored.
type EKF struct {
	integrator sim.Integrator

	x sim.State
	p *mat.SymDense
	q *mat.SymDense // process noise density, scaled by dt

	defaultR float64 // measurement variance when a measurement has none
	t        float64
}

// EKFParams configures NewEKF.
type EKFParams struct {
	InitialVariance     float64 `yaml:"initial_variance"`
	ProcessNoise        float64 `yaml:"process_noise"`
	MeasurementVariance float64 `yaml:"measurement_variance"`
}

// DefaultEKFParams returns conservative defaults.
func DefaultEKFParams() EKFParams {
	return EKFParams{InitialVariance: 1, ProcessNoise: 0.01, MeasurementVariance: 0.25}
}

// NewEKF returns a filter starting at x0 with diagonal covariances.
func NewEKF(x0 sim.State, integrator sim.Integrator, p EKFParams) (*EKF, error) {
	n := len(x0)
	if n == 0 {
		return nil, fmt.Errorf("ekf: empty initial state")
	}
	if integrator == nil {
		return nil, fmt.Errorf("ekf: nil integrator")
	}
	if p.InitialVariance < 0 || p.ProcessNoise < 0 || p.MeasurementVariance <= 0 {
		return nil, fmt.Errorf("ekf: variances must be non-negative and measurement variance positive, got %+v", p)
	}
	return &EKF{
		integrator: integrator,
		x:          x0.Clone(),
		p:          diagSym(n, p.InitialVariance),
		q:          diagSym(n, p.ProcessNoise),
		defaultR:   p.MeasurementVariance,
	}, nil
}

func diagSym(n int, v float64) *mat.SymDense {
	s := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		s.SetSym(i, i, v)
	}
	return s
}

// Predict implements sim.Estimator.
func (e *EKF) Predict(u sim.Control, dynamics sim.Dynamics, dt float64) {
	if dynamics == nil || dt <= 0 {
		return
	}
	n := len(e.x)
	fx := dynamics.Propagate(e.x.Clone(), u, e.t, dt, e.integrator)
	if len(fx) != n || !fx.Finite() {
		return
	}

	// F[:, j] = (f(x + h e_j) - f(x)) / h
	f := mat.NewDense(n, n, nil)
	for j := 0; j < n; j++ {
		xp := e.x.Clone()
		xp[j] += jacobianStep
		fp := dynamics.Propagate(xp, u, e.t, dt, e.integrator)
		for i := 0; i < n; i++ {
			f.Set(i, j, (fp[i]-fx[i])/jacobianStep)
		}
	}

	// P = F P F^T + Q dt
	var fp, fpft mat.Dense
	fp.Mul(f, e.p)
	fpft.Mul(&fp, f.T())
	var q mat.SymDense
	q.ScaleSym(dt, e.q)
	fpft.Add(&fpft, &q)

	e.p = symmetrize(&fpft)
	e.x = fx
	e.t += dt
}

// Update implements sim.Estimator.
func (e *EKF) Update(m sim.Measurement) {
	if m.Kind != sim.MeasurePosition || len(m.Values) < 2 || len(e.x) < 2 {
		return
	}
	n := len(e.x)

	h := mat.NewDense(2, n, nil)
	h.Set(0, 0, 1)
	h.Set(1, 1, 1)

	r := mat.NewSymDense(2, nil)
	for i := 0; i < 2; i++ {
		v := e.defaultR
		if i < len(m.Noise) && m.Noise[i] > 0 {
			v = m.Noise[i]
		}
		r.SetSym(i, i, v)
	}

	// Innovation y = z - H x
	y := mat.NewVecDense(2, []float64{m.Values[0] - e.x[0], m.Values[1] - e.x[1]})

	// S = H P H^T + R
	var hp, s mat.Dense
	hp.Mul(h, e.p)
	s.Mul(&hp, h.T())
	s.Add(&s, r)

	// K^T = S^-1 H P, since P and S are symmetric.
	var kt mat.Dense
	if err := kt.Solve(&s, &hp); err != nil {
		return
	}

	var dx mat.VecDense
	dx.MulVec(kt.T(), y)
	for i := 0; i < n; i++ {
		e.x[i] += dx.AtVec(i)
	}

	// P = P - K H P
	var khp, next mat.Dense
	khp.Mul(kt.T(), &hp)
	next.Sub(e.p, &khp)
	e.p = symmetrize(&next)
}

// CurrentEstimate implements sim.Estimator.
func (e *EKF) CurrentEstimate() sim.State { return e.x.Clone() }

// CurrentCovariance implements sim.Estimator.
func (e *EKF) CurrentCovariance() *mat.SymDense { return sim.CloneSym(e.p) }

// symmetrize returns (m + m^T) / 2 as a SymDense.
func symmetrize(m mat.Matrix) *mat.SymDense {
	n, _ := m.Dims()
	s := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			s.SetSym(i, j, (m.At(i, j)+m.At(j, i))/2)
		}
	}
	return s
}

// New returns the estimator registered under kind, initialised at x0:
// "ekf".
func New(kind string, x0 sim.State, integrator sim.Integrator, p EKFParams) (sim.Estimator, error) {
	switch kind {
	case "ekf":
		return NewEKF(x0, integrator, p)
	default:
		return nil, fmt.Errorf("unknown estimator %q", kind)
	}
}
