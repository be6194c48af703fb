package agent

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/banshee-data/agentsim/internal/sim"
)

var (
	// ErrUnknownAgent is returned for operations on an ID that is not registered.
	ErrUnknownAgent = errors.New("unknown agent")
	// ErrDuplicateAgent is returned when spawning an ID that is already registered.
	ErrDuplicateAgent = errors.New("agent already registered")
	// ErrNoTrueState is returned when spawning an agent without a TrueState.
	ErrNoTrueState = errors.New("agent has no true state")
	// ErrUnknownObstacle is returned for operations on an unregistered obstacle.
	ErrUnknownObstacle = errors.New("unknown obstacle")
)

// Registry maps agent identities to their attribute bundles and owns the
// static environment: free-standing obstacles and the planning grid.
//
// All mutation of agent components happens under the registry's write lock,
// either through the convenience methods or inside Mutate. Readers such as
// the HTTP API take snapshots under the read lock.
type Registry struct {
	mu sync.RWMutex

	agents map[ID]*Agent
	order  []ID // spawn order; iteration order of every pass

	obstacles      map[sim.ObstacleID]sim.Obstacle
	nextObstacleID sim.ObstacleID

	grid      sim.GridConfig
	occupancy *sim.ObstacleGrid
}

// NewRegistry returns an empty registry with no grid configured.
func NewRegistry() *Registry {
	return &Registry{
		agents:         make(map[ID]*Agent),
		obstacles:      make(map[sim.ObstacleID]sim.Obstacle),
		nextObstacleID: 1,
	}
}

// Spawn registers a. Agents without an ID receive a random one. An agent
// carrying an Obstacle component with a zero ID receives an obstacle ID.
func (r *Registry) Spawn(a *Agent) (ID, error) {
	if a == nil {
		return NilID, fmt.Errorf("failed to spawn agent: %w", ErrNoTrueState)
	}
	if a.TrueState == nil {
		return NilID, fmt.Errorf("failed to spawn agent %q: %w", a.Name, ErrNoTrueState)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if a.ID == NilID {
		a.ID = uuid.New()
	}
	if _, exists := r.agents[a.ID]; exists {
		return NilID, fmt.Errorf("failed to spawn agent %s: %w", a.ID, ErrDuplicateAgent)
	}
	if a.Pose == (sim.Pose{}) {
		a.Pose = sim.IdentityPose()
	}
	if a.Obstacle != nil && a.Obstacle.ID == 0 {
		a.Obstacle.ID = r.allocObstacleIDLocked()
	}
	r.agents[a.ID] = a
	r.order = append(r.order, a.ID)
	return a.ID, nil
}

// Despawn removes the agent. It reports whether the agent was registered.
func (r *Registry) Despawn(id ID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.agents[id]; !ok {
		return false
	}
	delete(r.agents, id)
	for i, oid := range r.order {
		if oid == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return true
}

// Len returns the number of registered agents.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.agents)
}

// SetGoal attaches or replaces an agent's goal, raising its planning edge.
func (r *Registry) SetGoal(id ID, g sim.Goal) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.agents[id]
	if !ok {
		return fmt.Errorf("failed to set goal for %s: %w", id, ErrUnknownAgent)
	}
	a.SetGoal(g)
	return nil
}

// Retarget replaces an agent's goal and recreates its path container, so the
// agent re-plans even when it was following a path to the old goal.
func (r *Registry) Retarget(id ID, g sim.Goal) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.agents[id]
	if !ok {
		return fmt.Errorf("failed to retarget %s: %w", id, ErrUnknownAgent)
	}
	a.SetGoal(g)
	a.AttachPath()
	return nil
}

// SetControl overwrites an agent's control input from an external source
// such as teleoperation. The ControlInput component is attached if absent.
func (r *Registry) SetControl(id ID, u sim.Control) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.agents[id]
	if !ok {
		return fmt.Errorf("failed to set control for %s: %w", id, ErrUnknownAgent)
	}
	if a.Control == nil {
		a.Control = &ControlInput{}
	}
	a.Control.U = u.Clone()
	return nil
}

// AddObstacle registers a free-standing obstacle and returns its ID. A zero
// ID is replaced by a freshly allocated one.
func (r *Registry) AddObstacle(o sim.Obstacle) sim.ObstacleID {
	r.mu.Lock()
	defer r.mu.Unlock()
	if o.ID == 0 {
		o.ID = r.allocObstacleIDLocked()
	} else if o.ID >= r.nextObstacleID {
		r.nextObstacleID = o.ID + 1
	}
	o.Pose = o.Pose.Normalized()
	r.obstacles[o.ID] = o
	return o.ID
}

// MoveObstacle replaces the pose of a free-standing obstacle.
func (r *Registry) MoveObstacle(id sim.ObstacleID, pose sim.Pose) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.obstacles[id]
	if !ok {
		return fmt.Errorf("failed to move obstacle %d: %w", id, ErrUnknownObstacle)
	}
	o.Pose = pose.Normalized()
	r.obstacles[id] = o
	return nil
}

// RemoveObstacle deletes a free-standing obstacle.
func (r *Registry) RemoveObstacle(id sim.ObstacleID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.obstacles[id]; !ok {
		return false
	}
	delete(r.obstacles, id)
	return true
}

// SetGrid configures the planning grid. A nil or zero-sized occupancy grid
// leaves planning disabled.
func (r *Registry) SetGrid(cfg sim.GridConfig, occupancy *sim.ObstacleGrid) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.grid = cfg
	r.occupancy = occupancy.Clone()
}

// Mutate runs fn with exclusive access to every agent.
func (r *Registry) Mutate(fn func(w *World)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fn(&World{r: r})
}

// Read runs fn with shared access. fn must not modify agents.
func (r *Registry) Read(fn func(w *World)) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn(&World{r: r})
}

func (r *Registry) allocObstacleIDLocked() sim.ObstacleID {
	id := r.nextObstacleID
	r.nextObstacleID++
	return id
}

// World is the view of the registry handed to Mutate and Read callbacks.
// It must not be retained after the callback returns.
type World struct {
	r *Registry
}

// Agents returns every agent in spawn order.
func (w *World) Agents() []*Agent {
	out := make([]*Agent, 0, len(w.r.order))
	for _, id := range w.r.order {
		out = append(out, w.r.agents[id])
	}
	return out
}

// Agent returns the agent with the given ID, or nil.
func (w *World) Agent(id ID) *Agent {
	return w.r.agents[id]
}

// Obstacles collects a fresh snapshot of every obstacle: free-standing
// obstacles and agents carrying an Obstacle component, ordered by ID.
func (w *World) Obstacles() sim.ObstacleSnapshot {
	list := make([]sim.Obstacle, 0, len(w.r.obstacles))
	for _, o := range w.r.obstacles {
		list = append(list, o)
	}
	for _, id := range w.r.order {
		a := w.r.agents[id]
		if a.Obstacle == nil {
			continue
		}
		o := *a.Obstacle
		o.Pose = a.Pose
		list = append(list, o)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return sim.NewObstacleSnapshot(list)
}

// Grid returns the planning grid configuration and occupancy. The occupancy
// grid is shared; callers must treat it as read-only.
func (w *World) Grid() (sim.GridConfig, *sim.ObstacleGrid) {
	return w.r.grid, w.r.occupancy
}
