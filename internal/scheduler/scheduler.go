// Package scheduler dispatches fixed-rate tasks ("lanes") against a
// simulated clock. Each lane runs at its own period without drift: lane
// ticks land exactly on multiples of the period, and lanes due at the same
// instant run in registration order.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/banshee-data/agentsim/internal/timeutil"
)

// ErrInvalidRate is returned when a lane is registered with a rate that is
// not a positive finite number.
var ErrInvalidRate = errors.New("rate must be positive")

// Tick describes one run of a lane.
type Tick struct {
	Lane    string
	Seq     uint64        // 1-based run counter of the lane
	Elapsed time.Duration // simulated time at the end of this tick
	Delta   time.Duration // step covered by this tick
}

// Time returns Elapsed in seconds.
func (t Tick) Time() float64 { return t.Elapsed.Seconds() }

// Dt returns Delta in seconds.
func (t Tick) Dt() float64 { return t.Delta.Seconds() }

// Start returns the simulated time at the beginning of this tick, in seconds.
func (t Tick) Start() float64 { return (t.Elapsed - t.Delta).Seconds() }

// Task is the body of a lane.
type Task func(Tick)

type lane struct {
	name   string
	hz     float64
	period time.Duration
	task   Task
	next   time.Duration
	runs   uint64
}

// LaneStats summarises a lane for monitoring.
type LaneStats struct {
	Name   string        `json:"name"`
	Hz     float64       `json:"hz"`
	Period time.Duration `json:"period_ns"`
	Runs   uint64        `json:"runs"`
	Next   time.Duration `json:"next_ns"`
}

// Scheduler is a time-ordered dispatcher over fixed-rate lanes.
type Scheduler struct {
	mu       sync.Mutex
	lanes    []*lane
	elapsed  time.Duration
	maxDelta time.Duration
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithMaxDelta clamps the simulated time a single real-time frame in Run
// may cover, so a stalled host does not trigger an unbounded catch-up
// burst. Advance is never clamped. Zero disables the clamp.
func WithMaxDelta(d time.Duration) Option {
	return func(s *Scheduler) { s.maxDelta = d }
}

// New returns a scheduler at simulated time zero with no lanes.
func New(opts ...Option) *Scheduler {
	s := &Scheduler{}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// PeriodOf converts a rate in Hz to a whole-nanosecond period.
func PeriodOf(hz float64) (time.Duration, error) {
	if !(hz > 0) || math.IsInf(hz, 0) {
		return 0, fmt.Errorf("%w, got %v", ErrInvalidRate, hz)
	}
	p := time.Duration(float64(time.Second) / hz)
	if p <= 0 {
		return 0, fmt.Errorf("%w: %v Hz is finer than 1ns", ErrInvalidRate, hz)
	}
	return p, nil
}

// AddLane registers a lane. Its first tick is one period after the current
// simulated time.
func (s *Scheduler) AddLane(name string, hz float64, task Task) error {
	period, err := PeriodOf(hz)
	if err != nil {
		return fmt.Errorf("failed to add lane %q: %w", name, err)
	}
	if task == nil {
		return fmt.Errorf("failed to add lane %q: nil task", name)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lanes = append(s.lanes, &lane{
		name:   name,
		hz:     hz,
		period: period,
		task:   task,
		next:   s.elapsed + period,
	})
	return nil
}

// Advance moves simulated time forward by delta, running every lane tick
// that falls due in order of simulated time. It returns the number of lane
// runs. A non-positive delta is a no-op.
func (s *Scheduler) Advance(delta time.Duration) int {
	if delta <= 0 {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	target := s.elapsed + delta

	runs := 0
	for {
		l := s.nextDueLocked(target)
		if l == nil {
			break
		}
		l.runs++
		l.task(Tick{Lane: l.name, Seq: l.runs, Elapsed: l.next, Delta: l.period})
		l.next += l.period
		runs++
	}
	s.elapsed = target
	return runs
}

// nextDueLocked returns the lane with the earliest tick at or before target;
// ties go to the lane registered first.
func (s *Scheduler) nextDueLocked(target time.Duration) *lane {
	var best *lane
	for _, l := range s.lanes {
		if l.next > target {
			continue
		}
		if best == nil || l.next < best.next {
			best = l
		}
	}
	return best
}

// Elapsed returns the current simulated time.
func (s *Scheduler) Elapsed() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.elapsed
}

// Stats returns a summary of every lane in registration order.
func (s *Scheduler) Stats() []LaneStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]LaneStats, 0, len(s.lanes))
	for _, l := range s.lanes {
		out = append(out, LaneStats{Name: l.name, Hz: l.hz, Period: l.period, Runs: l.runs, Next: l.next})
	}
	return out
}

// Run advances the scheduler in real time. Every tick of a ticker with the
// given frame interval advances simulated time by the wall time measured
// since the previous frame, clamped to the max delta. Run returns nil when
// ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context, clock timeutil.Clock, frame time.Duration) error {
	if frame <= 0 {
		return fmt.Errorf("frame interval must be positive, got %s", frame)
	}
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	ticker := clock.NewTicker(frame)
	defer ticker.Stop()
	sw := timeutil.NewStopwatch(clock)

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C():
			s.Advance(s.clampFrame(sw.Lap()))
		}
	}
}

func (s *Scheduler) clampFrame(d time.Duration) time.Duration {
	if s.maxDelta > 0 && d > s.maxDelta {
		return s.maxDelta
	}
	return d
}
