package pipeline

import (
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/banshee-data/agentsim/internal/agent"
	"github.com/banshee-data/agentsim/internal/sim"
)

type planJob struct {
	agent   agent.ID
	name    string
	gen     uint64
	planner sim.Planner
	req     sim.PlanRequest
}

type planResult struct {
	planJob
	path      sim.Path
	err       error
	panicked  bool
	recovered interface{}
}

// asyncPlanner runs planners off the scheduling path. Every job works on
// copied inputs; results wait in done until the planning pass collects
// them. An agent stays busy from submission until its result is collected,
// so its planner is never invoked concurrently.
type asyncPlanner struct {
	group errgroup.Group

	mu       sync.Mutex
	inFlight map[agent.ID]bool
	done     []planResult
}

func newAsyncPlanner(workers int) *asyncPlanner {
	if workers < 1 {
		workers = 1
	}
	ap := &asyncPlanner{inFlight: make(map[agent.ID]bool)}
	ap.group.SetLimit(workers)
	return ap
}

func (ap *asyncPlanner) busy(id agent.ID) bool {
	ap.mu.Lock()
	defer ap.mu.Unlock()
	return ap.inFlight[id]
}

// submit starts job if a worker is free and reports whether it did.
func (ap *asyncPlanner) submit(job planJob) bool {
	ap.mu.Lock()
	ap.inFlight[job.agent] = true
	ap.mu.Unlock()

	started := ap.group.TryGo(func() error {
		res := runPlan(job)
		ap.mu.Lock()
		ap.done = append(ap.done, res)
		ap.mu.Unlock()
		return nil
	})
	if !started {
		ap.mu.Lock()
		delete(ap.inFlight, job.agent)
		ap.mu.Unlock()
	}
	return started
}

// collect returns finished results in completion order and frees their agents.
func (ap *asyncPlanner) collect() []planResult {
	ap.mu.Lock()
	defer ap.mu.Unlock()
	out := ap.done
	ap.done = nil
	for _, res := range out {
		delete(ap.inFlight, res.agent)
	}
	return out
}

func (ap *asyncPlanner) wait() {
	_ = ap.group.Wait()
}

func runPlan(job planJob) (res planResult) {
	res.planJob = job
	defer func() {
		if r := recover(); r != nil {
			res.panicked = true
			res.recovered = r
			res.path = nil
			res.err = nil
		}
	}()
	res.path, res.err = job.planner.PlanPath(job.req)
	return res
}
