package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/banshee-data/agentsim/internal/agent"
	"github.com/banshee-data/agentsim/internal/config"
	"github.com/banshee-data/agentsim/internal/monitoring"
	"github.com/banshee-data/agentsim/internal/scheduler"
	"github.com/banshee-data/agentsim/internal/sim"
	"github.com/banshee-data/agentsim/internal/timeutil"
)

// Lane names, in registration order. Lanes due at the same instant run in
// this order, so control precedes dynamics, which precedes sensing and
// estimation.
const (
	LanePlanning   = "planning"
	LaneControl    = "control"
	LaneDynamics   = "dynamics"
	LaneSensors    = "sensors"
	LaneEstimation = "estimation"
)

// Simulation wires the five passes onto scheduler lanes over one registry.
type Simulation struct {
	registry    *agent.Registry
	sched       *scheduler.Scheduler
	diagnostics *monitoring.Recorder
	queue       *MeasurementQueue
	frame       time.Duration

	planning   *PlanningTrigger
	control    *ControllerDrive
	dynamics   *DynamicsStep
	sensors    *SensorScheduler
	estimation *EstimationEpoch
}

// NewSimulation builds a simulation over reg. A nil cfg uses the defaults.
// The integrator is shared by every propagation.
func NewSimulation(reg *agent.Registry, cfg *config.SimConfig, integrator sim.Integrator) (*Simulation, error) {
	if reg == nil {
		return nil, errors.New("failed to create simulation: nil registry")
	}
	if integrator == nil {
		return nil, errors.New("failed to create simulation: nil integrator")
	}
	if cfg == nil {
		cfg = config.DefaultSimConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("failed to create simulation: %w", err)
	}

	rec := monitoring.NewRecorder(cfg.GetDiagnosticsCapacity())
	env := Env{Diagnostics: rec, Workers: cfg.GetWorkers()}
	queue := NewMeasurementQueue()

	s := &Simulation{
		registry:    reg,
		sched:       scheduler.New(scheduler.WithMaxDelta(cfg.GetMaxFrameDelta())),
		diagnostics: rec,
		queue:       queue,
		frame:       cfg.GetFrameInterval(),
		planning:    NewPlanningTrigger(env, cfg.GetControlFromEstimate(), cfg.GetAsyncPlanning()),
		control:     &ControllerDrive{Env: env, FromEstimate: cfg.GetControlFromEstimate()},
		dynamics:    &DynamicsStep{Env: env, Integrator: integrator},
		sensors:     &SensorScheduler{Env: env, Queue: queue},
		estimation:  &EstimationEpoch{Env: env, Queue: queue},
	}

	lanes := []struct {
		name string
		hz   float64
		run  func(*agent.World, scheduler.Tick)
	}{
		{LanePlanning, cfg.GetPlannerHz(), s.planning.Run},
		{LaneControl, cfg.GetControllerHz(), s.control.Run},
		{LaneDynamics, cfg.GetDynamicsHz(), s.dynamics.Run},
		{LaneSensors, cfg.GetSensorPassHz(), s.sensors.Run},
		{LaneEstimation, cfg.GetEstimatorHz(), s.estimation.Run},
	}
	for _, l := range lanes {
		run := l.run
		if err := s.sched.AddLane(l.name, l.hz, func(t scheduler.Tick) {
			reg.Mutate(func(w *agent.World) { run(w, t) })
		}); err != nil {
			return nil, fmt.Errorf("failed to create simulation: %w", err)
		}
		diagf("[Simulation] lane %s at %.1f Hz", l.name, l.hz)
	}
	diagf("[Simulation] workers=%d async_planning=%t control_from_estimate=%t",
		env.Workers, cfg.GetAsyncPlanning(), cfg.GetControlFromEstimate())
	return s, nil
}

// Advance moves simulated time forward by d, running every pass that falls
// due. It returns the number of passes run.
func (s *Simulation) Advance(d time.Duration) int {
	return s.sched.Advance(d)
}

// Run drives the simulation in real time until ctx is cancelled, then waits
// for background planning to finish. A nil clock uses the wall clock.
func (s *Simulation) Run(ctx context.Context, clock timeutil.Clock) error {
	defer s.Close()
	diagf("[Simulation] running in real time, frame interval %s", s.frame)
	return s.sched.Run(ctx, clock, s.frame)
}

// Close waits for in-flight background plans.
func (s *Simulation) Close() {
	s.planning.Close()
}

// Elapsed returns the simulated time.
func (s *Simulation) Elapsed() time.Duration { return s.sched.Elapsed() }

// Lanes returns per-lane run statistics.
func (s *Simulation) Lanes() []scheduler.LaneStats { return s.sched.Stats() }

// Diagnostics returns the diagnostics recorder.
func (s *Simulation) Diagnostics() *monitoring.Recorder { return s.diagnostics }

// Registry returns the agent registry.
func (s *Simulation) Registry() *agent.Registry { return s.registry }

// PendingMeasurements returns the number of queued measurement events.
func (s *Simulation) PendingMeasurements() int { return s.queue.Len() }
