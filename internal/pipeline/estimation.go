package pipeline

import (
	"fmt"

	"github.com/banshee-data/agentsim/internal/agent"
	"github.com/banshee-data/agentsim/internal/monitoring"
	"github.com/banshee-data/agentsim/internal/scheduler"
	"github.com/banshee-data/agentsim/internal/sim"
)

// EstimationEpoch runs one predict, update, publish cycle per estimator
// tick for every autonomous agent with an estimator.
type EstimationEpoch struct {
	Env
	Queue *MeasurementQueue
}

// Run executes the epoch. The three phases never interleave: every predict
// completes before any update, and estimates are published last.
func (e *EstimationEpoch) Run(w *agent.World, tick scheduler.Tick) {
	now := tick.Time()

	var agents []*agent.Agent
	for _, a := range w.Agents() {
		if a.Autonomous && a.Estimator != nil {
			agents = append(agents, a)
		}
	}

	predicted := e.predict(agents, tick)
	updated, consumed, pending := e.update(agents, now)
	published := e.publish(agents, now)

	if dropped := pending - consumed; dropped > 0 {
		tracef("[Estimation] t=%.3fs discarded %d events for agents without an estimator", now, dropped)
	}
	tracef("[Estimation] t=%.3fs predicted %d, updated %d (%d events), published %d",
		now, predicted, updated, consumed, published)
}

// predict calls Predict exactly once for every agent that also has a
// control input and a dynamics model. A non-positive step skips the phase.
func (e *EstimationEpoch) predict(agents []*agent.Agent, tick scheduler.Tick) int {
	dt := tick.Dt()
	if dt <= 0 {
		e.report(tick.Time(), nil, monitoring.PassEstimation, monitoring.KindInvalidStep,
			fmt.Sprintf("non-positive step %s, predict skipped", tick.Delta))
		return 0
	}
	var targets []*agent.Agent
	for _, a := range agents {
		if a.Control != nil && a.Dynamics != nil {
			targets = append(targets, a)
		}
	}
	e.forEach(len(targets), func(i int) {
		a := targets[i]
		e.guard(monitoring.PassEstimation, a, tick.Time(), "estimator predict", func() {
			a.Estimator.Predict(a.Control.U.Clone(), a.Dynamics, dt)
		})
	})
	return len(targets)
}

// update drains the queue and applies each agent's batch in arrival order.
// It returns the number of agents updated, the events applied and the
// events drained.
func (e *EstimationEpoch) update(agents []*agent.Agent, now float64) (updated, consumed, drained int) {
	events := e.Queue.Drain()
	if len(events) == 0 {
		return 0, 0, 0
	}
	groups := GroupByAgent(events)

	type batch struct {
		a  *agent.Agent
		ms []sim.Measurement
	}
	var batches []batch
	for _, a := range agents {
		if ms := groups[a.ID]; len(ms) > 0 {
			batches = append(batches, batch{a: a, ms: ms})
			consumed += len(ms)
		}
	}

	e.forEach(len(batches), func(i int) {
		b := batches[i]
		for _, m := range b.ms {
			e.guard(monitoring.PassEstimation, b.a, now, "estimator update", func() {
				b.a.Estimator.Update(m)
			})
		}
	})
	return len(batches), consumed, len(events)
}

// publish copies the estimate of every estimator touched since its last
// publication. Untouched agents keep their previous EstimatedState.
func (e *EstimationEpoch) publish(agents []*agent.Agent, now float64) int {
	published := 0
	for _, a := range agents {
		if a.Estimated == nil || !a.Estimator.Dirty() {
			continue
		}
		var (
			est sim.Estimate
			ok  bool
		)
		e.guard(monitoring.PassEstimation, a, now, "estimator output", func() {
			est, ok = a.Estimator.Publish()
		})
		if ok {
			*a.Estimated = est
			published++
		}
	}
	return published
}
