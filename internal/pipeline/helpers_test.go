package pipeline

import (
	"testing"
	"time"

	"github.com/banshee-data/agentsim/internal/agent"
	"github.com/banshee-data/agentsim/internal/monitoring"
	"github.com/banshee-data/agentsim/internal/scheduler"
	"github.com/banshee-data/agentsim/internal/sim"
	"github.com/banshee-data/agentsim/internal/testutil"
)

const step = 10 * time.Millisecond

func newEnv(workers int) Env {
	return Env{Diagnostics: monitoring.NewRecorder(64), Workers: workers}
}

// tickN returns the n-th (1-based) tick of a lane with the given period.
func tickN(n int, period time.Duration) scheduler.Tick {
	return scheduler.Tick{Seq: uint64(n), Elapsed: time.Duration(n) * period, Delta: period}
}

func runPass(reg *agent.Registry, pass func(*agent.World, scheduler.Tick), tick scheduler.Tick) {
	reg.Mutate(func(w *agent.World) { pass(w, tick) })
}

func spawn(t testing.TB, reg *agent.Registry, a *agent.Agent) agent.ID {
	t.Helper()
	id, err := reg.Spawn(a)
	if err != nil {
		t.Fatalf("spawn: %v", err)
	}
	return id
}

// movingAgent returns an agent with counting dynamics and a control input.
func movingAgent(name string, x sim.State, u sim.Control) (*agent.Agent, *testutil.CountingDynamics) {
	dyn := &testutil.CountingDynamics{}
	return &agent.Agent{
		Name:      name,
		TrueState: x,
		Dynamics:  dyn,
		Control:   &agent.ControlInput{U: u},
	}, dyn
}

func withGrid(reg *agent.Registry) {
	reg.SetGrid(sim.GridConfig{Resolution: 1}, sim.NewObstacleGrid(10, 10))
}
