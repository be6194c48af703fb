// Package sensors provides reference sensor models.
//
// Noise is drawn from gonum's distuv.Normal over a seeded PCG source, so a
// scenario with fixed seeds is reproducible. Each model guards its source
// with a mutex; the simulation never calls one instance concurrently, but
// scenarios may share a model between agents.
package sensors

import (
	"fmt"
	"math/rand/v2"
	"sync"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/banshee-data/agentsim/internal/sim"
)

type noise struct {
	mu     sync.Mutex
	normal distuv.Normal
}

func newNoise(stddev float64, seed uint64) *noise {
	return &noise{normal: distuv.Normal{Mu: 0, Sigma: stddev, Src: rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)}}
}

func (n *noise) sample() float64 {
	if n.normal.Sigma <= 0 {
		return 0
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.normal.Rand()
}

// Position reports the sensor's planar world position with Gaussian noise.
type Position struct {
	StdDev float64
	noise  *noise
}

// NewPosition returns a position sensor.
func NewPosition(stddev float64, seed uint64) *Position {
	return &Position{StdDev: stddev, noise: newNoise(stddev, seed)}
}

// Sense implements sim.SensorModel.
func (s *Position) Sense(_ sim.State, pose sim.Pose, _ sim.ObstacleSnapshot, t float64) (sim.Measurement, bool) {
	v := s.StdDev * s.StdDev
	return sim.Measurement{
		Kind:   sim.MeasurePosition,
		Time:   t,
		Values: []float64{pose.Position.X + s.noise.sample(), pose.Position.Y + s.noise.sample()},
		Noise:  []float64{v, v},
	}, true
}

// Range reports the distance from the sensor to the nearest obstacle
// surface. It has nothing to report when no obstacle is within MaxRange.
type Range struct {
	MaxRange float64 // 0 means unlimited
	StdDev   float64
	noise    *noise
}

// NewRange returns a range sensor.
func NewRange(maxRange, stddev float64, seed uint64) *Range {
	return &Range{MaxRange: maxRange, StdDev: stddev, noise: newNoise(stddev, seed)}
}

// Sense implements sim.SensorModel.
func (s *Range) Sense(_ sim.State, pose sim.Pose, obstacles sim.ObstacleSnapshot, t float64) (sim.Measurement, bool) {
	_, d, ok := obstacles.Nearest(pose.Position)
	if !ok || (s.MaxRange > 0 && d > s.MaxRange) {
		return sim.Measurement{}, false
	}
	d += s.noise.sample()
	if d < 0 {
		d = 0
	}
	return sim.Measurement{
		Kind:   sim.MeasureRange,
		Time:   t,
		Values: []float64{d},
		Noise:  []float64{s.StdDev * s.StdDev},
	}, true
}

// Params configures New.
type Params struct {
	StdDev   float64 `yaml:"stddev"`
	MaxRange float64 `yaml:"max_range"`
	Seed     uint64  `yaml:"seed"`
}

// New returns the model registered under kind: "position" or "range".
func New(kind string, p Params) (sim.SensorModel, error) {
	if p.StdDev < 0 {
		return nil, fmt.Errorf("sensor %q: negative stddev %v", kind, p.StdDev)
	}
	switch kind {
	case "position":
		return NewPosition(p.StdDev, p.Seed), nil
	case "range":
		return NewRange(p.MaxRange, p.StdDev, p.Seed), nil
	default:
		return nil, fmt.Errorf("unknown sensor model %q", kind)
	}
}
