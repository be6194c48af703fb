package agent

import (
	"time"

	"github.com/banshee-data/agentsim/internal/sim"
)

// SensorInstance is one mounted sensor with its own update rate and timer.
type SensorInstance struct {
	Name   string
	RateHz float64  // <= 0 fires on every sensor pass
	Offset sim.Pose // mounting pose relative to the agent frame
	Model  sim.SensorModel

	elapsed time.Duration
	fires   uint64
}

// NewSensorInstance returns a sensor with a fresh timer.
func NewSensorInstance(name string, rateHz float64, offset sim.Pose, model sim.SensorModel) *SensorInstance {
	return &SensorInstance{Name: name, RateHz: rateHz, Offset: offset.Normalized(), Model: model}
}

// Period returns the firing period, or zero for a rateless sensor.
func (s *SensorInstance) Period() time.Duration {
	if s.RateHz <= 0 {
		return 0
	}
	return time.Duration(float64(time.Second) / s.RateHz)
}

// Tick advances the sensor timer by delta and reports whether the sensor
// fires on this pass. A firing timer keeps its remainder so the long-run
// rate matches RateHz; it never fires more than once per pass.
func (s *SensorInstance) Tick(delta time.Duration) bool {
	period := s.Period()
	if period <= 0 {
		s.fires++
		return true
	}
	if delta > 0 {
		s.elapsed += delta
	}
	if s.elapsed < period {
		return false
	}
	s.elapsed -= period
	if s.elapsed >= period {
		s.elapsed %= period
	}
	s.fires++
	return true
}

// Elapsed returns the time accumulated towards the next firing.
func (s *SensorInstance) Elapsed() time.Duration { return s.elapsed }

// Fires returns how many times the sensor has fired.
func (s *SensorInstance) Fires() uint64 { return s.fires }

// SensorSuite is the ordered set of sensors mounted on an agent.
type SensorSuite struct {
	Sensors []*SensorInstance
}

// NewSensorSuite builds a suite from the given instances, preserving order.
func NewSensorSuite(sensors ...*SensorInstance) *SensorSuite {
	return &SensorSuite{Sensors: append([]*SensorInstance(nil), sensors...)}
}
