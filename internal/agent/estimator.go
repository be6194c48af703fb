package agent

import "github.com/banshee-data/agentsim/internal/sim"

// EstimatorLogic wraps an agent's estimator and records whether it has been
// touched since the estimate was last published.
type EstimatorLogic struct {
	est   sim.Estimator
	dirty bool

	predicts uint64
	updates  uint64
}

// NewEstimatorLogic wraps est.
func NewEstimatorLogic(est sim.Estimator) *EstimatorLogic {
	return &EstimatorLogic{est: est}
}

// Estimator returns the wrapped estimator.
func (l *EstimatorLogic) Estimator() sim.Estimator { return l.est }

// Predict runs the estimator's prediction step and marks it dirty. The flag
// is raised before the call so a panicking estimator is still republished.
func (l *EstimatorLogic) Predict(u sim.Control, dynamics sim.Dynamics, dt float64) {
	l.dirty = true
	l.predicts++
	l.est.Predict(u, dynamics, dt)
}

// Update applies one measurement and marks the estimator dirty.
func (l *EstimatorLogic) Update(m sim.Measurement) {
	l.dirty = true
	l.updates++
	l.est.Update(m)
}

// Dirty reports whether Predict or Update ran since the last Publish.
func (l *EstimatorLogic) Dirty() bool { return l.dirty }

// Publish returns a copy of the current estimate and clears the dirty flag.
// ok is false, and nothing is read from the estimator, when it is clean.
func (l *EstimatorLogic) Publish() (est sim.Estimate, ok bool) {
	if !l.dirty {
		return sim.Estimate{}, false
	}
	l.dirty = false
	e := sim.Estimate{State: l.est.CurrentEstimate(), Covariance: l.est.CurrentCovariance()}
	return e.Clone(), true
}

// Counts returns the number of Predict and Update calls so far.
func (l *EstimatorLogic) Counts() (predicts, updates uint64) {
	return l.predicts, l.updates
}
