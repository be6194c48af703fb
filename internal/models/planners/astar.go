// Package planners provides reference path planners.
package planners

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/path"
	"gonum.org/v1/gonum/graph/simple"

	"github.com/banshee-data/agentsim/internal/sim"
)

var (
	// ErrNoPath is returned when the goal cannot be reached from the start.
	ErrNoPath = errors.New("no path to goal")
	// ErrOutOfBounds is returned when the start or the goal lies outside the grid.
	ErrOutOfBounds = errors.New("position outside planning grid")
)

// GridAStar plans over the occupancy grid with A*. Obstacles from the
// snapshot are rasterised onto a copy of the grid, grown by Clearance.
// Waypoints are cell centres; the last waypoint is the exact goal position.
type GridAStar struct {
	Diagonal  bool    // allow 8-connected moves; corners are never cut
	Clearance float64 // extra margin around snapshot obstacles, in metres
}

type cell struct{ x, y int }

// PlanPath implements sim.Planner.
func (p GridAStar) PlanPath(req sim.PlanRequest) (sim.Path, error) {
	if req.Occupancy.Empty() {
		return nil, fmt.Errorf("%w: empty grid", ErrNoPath)
	}
	if req.Grid.Resolution <= 0 {
		return nil, fmt.Errorf("invalid grid resolution %v", req.Grid.Resolution)
	}
	if len(req.State) < 2 {
		return nil, fmt.Errorf("state has %d components, need a planar position", len(req.State))
	}
	width, height := req.Occupancy.Width, req.Occupancy.Height

	sx, sy := req.Grid.CellOf(req.State[0], req.State[1])
	goalPos := req.Goal.Pose.Position
	gx, gy := req.Grid.CellOf(goalPos.X, goalPos.Y)
	if !req.Occupancy.InBounds(sx, sy) {
		return nil, fmt.Errorf("%w: start (%.2f, %.2f)", ErrOutOfBounds, req.State[0], req.State[1])
	}
	if !req.Occupancy.InBounds(gx, gy) {
		return nil, fmt.Errorf("%w: goal (%.2f, %.2f)", ErrOutOfBounds, goalPos.X, goalPos.Y)
	}
	start, goal := cell{sx, sy}, cell{gx, gy}
	if start == goal {
		return sim.Path{}, nil
	}

	blocked := p.rasterise(req)
	blocked.Set(sx, sy, false) // never trapped by our own footprint
	if blocked.Occupied(gx, gy) {
		return nil, fmt.Errorf("%w: goal cell (%d, %d) is occupied", ErrNoPath, gx, gy)
	}

	g := p.buildGraph(blocked)
	id := func(c cell) int64 { return int64(c.y*width + c.x) }
	toCell := func(n graph.Node) cell {
		v := int(n.ID())
		return cell{v % width, v / width}
	}
	heuristic := func(a, b graph.Node) float64 {
		ca, cb := toCell(a), toCell(b)
		dx := math.Abs(float64(ca.x - cb.x))
		dy := math.Abs(float64(ca.y - cb.y))
		if !p.Diagonal {
			return dx + dy
		}
		return math.Max(dx, dy) + (math.Sqrt2-1)*math.Min(dx, dy)
	}

	shortest, _ := path.AStar(simple.Node(id(start)), simple.Node(id(goal)), g, heuristic)
	nodes, _ := shortest.To(id(goal))
	if len(nodes) == 0 {
		return nil, fmt.Errorf("%w: from cell (%d, %d) to (%d, %d) on %dx%d grid",
			ErrNoPath, sx, sy, gx, gy, width, height)
	}

	out := make(sim.Path, 0, len(nodes)-1)
	for _, n := range nodes[1:] {
		c := toCell(n)
		out = append(out, req.Grid.CellCenter(c.x, c.y))
	}
	out[len(out)-1] = goalPos
	return out, nil
}

// rasterise returns a copy of the occupancy grid with every snapshot
// obstacle's bounding circle, grown by Clearance, marked occupied.
func (p GridAStar) rasterise(req sim.PlanRequest) *sim.ObstacleGrid {
	grid := req.Occupancy.Clone()
	res := req.Grid.Resolution
	for _, o := range req.Obstacles.All() {
		r := o.Shape.BoundingRadius() + p.Clearance
		c := o.Pose.Position
		x0, y0 := req.Grid.CellOf(c.X-r, c.Y-r)
		x1, y1 := req.Grid.CellOf(c.X+r, c.Y+r)
		for y := y0; y <= y1; y++ {
			for x := x0; x <= x1; x++ {
				if !grid.InBounds(x, y) {
					continue
				}
				centre := req.Grid.CellCenter(x, y)
				// Mark cells whose square intersects the circle.
				dx := math.Max(math.Abs(centre.X-c.X)-res/2, 0)
				dy := math.Max(math.Abs(centre.Y-c.Y)-res/2, 0)
				if dx*dx+dy*dy <= r*r {
					grid.Set(x, y, true)
				}
			}
		}
	}
	return grid
}

// buildGraph connects every pair of adjacent free cells. Diagonal edges
// require both orthogonal neighbours to be free.
func (p GridAStar) buildGraph(grid *sim.ObstacleGrid) *simple.WeightedUndirectedGraph {
	g := simple.NewWeightedUndirectedGraph(0, math.Inf(1))
	w := grid.Width
	id := func(x, y int) int64 { return int64(y*w + x) }
	free := func(x, y int) bool { return grid.InBounds(x, y) && !grid.Occupied(x, y) }

	for y := 0; y < grid.Height; y++ {
		for x := 0; x < w; x++ {
			if free(x, y) {
				g.AddNode(simple.Node(id(x, y)))
			}
		}
	}
	link := func(x0, y0, x1, y1 int, cost float64) {
		g.SetWeightedEdge(g.NewWeightedEdge(simple.Node(id(x0, y0)), simple.Node(id(x1, y1)), cost))
	}
	for y := 0; y < grid.Height; y++ {
		for x := 0; x < w; x++ {
			if !free(x, y) {
				continue
			}
			if free(x+1, y) {
				link(x, y, x+1, y, 1)
			}
			if free(x, y+1) {
				link(x, y, x, y+1, 1)
			}
			if !p.Diagonal {
				continue
			}
			if free(x+1, y+1) && free(x+1, y) && free(x, y+1) {
				link(x, y, x+1, y+1, math.Sqrt2)
			}
			if free(x-1, y+1) && free(x-1, y) && free(x, y+1) {
				link(x, y, x-1, y+1, math.Sqrt2)
			}
		}
	}
	return g
}

// Params configures New.
type Params struct {
	Diagonal  bool    `yaml:"diagonal"`
	Clearance float64 `yaml:"clearance"`
}

// New returns the planner registered under kind: "grid_astar".
func New(kind string, p Params) (sim.Planner, error) {
	switch kind {
	case "grid_astar", "astar":
		return GridAStar{Diagonal: p.Diagonal, Clearance: p.Clearance}, nil
	default:
		return nil, fmt.Errorf("unknown planner %q", kind)
	}
}
