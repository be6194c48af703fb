package pipeline

import (
	"github.com/banshee-data/agentsim/internal/agent"
	"github.com/banshee-data/agentsim/internal/monitoring"
	"github.com/banshee-data/agentsim/internal/scheduler"
	"github.com/banshee-data/agentsim/internal/sim"
)

// SensorScheduler times every sensor instance of every agent and queues the
// measurements they produce.
type SensorScheduler struct {
	Env
	Queue *MeasurementQueue
}

// Run advances each sensor timer by the tick delta and fires the due ones.
// The obstacle snapshot is collected once and shared by every sensor in the
// pass. Events are queued in agent spawn order, and per agent in sensor
// order.
func (s *SensorScheduler) Run(w *agent.World, tick scheduler.Tick) {
	now := tick.Time()
	obstacles := w.Obstacles()

	var agents []*agent.Agent
	for _, a := range w.Agents() {
		if a.Sensors == nil || a.TrueState == nil {
			continue
		}
		agents = append(agents, a)
	}

	batches := make([][]sim.Measurement, len(agents))
	s.forEach(len(agents), func(i int) {
		batches[i] = s.fire(agents[i], obstacles, tick)
	})

	queued := 0
	for i, a := range agents {
		s.Queue.Push(a.ID, batches[i]...)
		queued += len(batches[i])
	}
	tracef("[Sensors] t=%.3fs %d agents, %d obstacles, %d measurements queued",
		now, len(agents), obstacles.Len(), queued)
}

func (s *SensorScheduler) fire(a *agent.Agent, obstacles sim.ObstacleSnapshot, tick scheduler.Tick) []sim.Measurement {
	now := tick.Time()
	var out []sim.Measurement
	for _, inst := range a.Sensors.Sensors {
		if inst == nil || inst.Model == nil || !inst.Tick(tick.Delta) {
			continue
		}
		pose := a.Pose.Compose(inst.Offset)

		var (
			m  sim.Measurement
			ok bool
		)
		if !s.guard(monitoring.PassSensors, a, now, "sensor "+inst.Name, func() {
			m, ok = inst.Model.Sense(a.TrueState.Clone(), pose, obstacles, now)
		}) || !ok {
			continue
		}
		if m.Sensor == "" {
			m.Sensor = inst.Name
		}
		out = append(out, m)
	}
	return out
}
