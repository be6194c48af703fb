package sim

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Waypoint is a world-frame position along a path.
type Waypoint = r3.Vec

// Path is an ordered sequence of waypoints. The first element is the next
// waypoint to reach.
type Path []Waypoint

// Clone returns an independent copy of p.
func (p Path) Clone() Path {
	if p == nil {
		return nil
	}
	out := make(Path, len(p))
	copy(out, p)
	return out
}

// GridConfig maps grid cells to world coordinates.
type GridConfig struct {
	Resolution float64 // cell edge length in metres
	OriginX    float64 // world X of the lower-left corner of cell (0, 0)
	OriginY    float64 // world Y of the lower-left corner of cell (0, 0)
}

// CellOf returns the cell containing the world point (x, y).
func (g GridConfig) CellOf(x, y float64) (cx, cy int) {
	res := g.Resolution
	if res <= 0 {
		res = 1
	}
	return int(math.Floor((x - g.OriginX) / res)), int(math.Floor((y - g.OriginY) / res))
}

// CellCenter returns the world coordinates of the centre of cell (cx, cy).
func (g GridConfig) CellCenter(cx, cy int) Waypoint {
	res := g.Resolution
	if res <= 0 {
		res = 1
	}
	return Waypoint{
		X: g.OriginX + (float64(cx)+0.5)*res,
		Y: g.OriginY + (float64(cy)+0.5)*res,
	}
}

// ObstacleGrid is a row-major occupancy grid.
type ObstacleGrid struct {
	Width  int
	Height int
	Cells  []bool // len Width*Height; true marks an occupied cell
}

// NewObstacleGrid allocates a free grid of the given size.
func NewObstacleGrid(width, height int) *ObstacleGrid {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	return &ObstacleGrid{Width: width, Height: height, Cells: make([]bool, width*height)}
}

// Empty reports whether the grid has no cells. A nil grid is empty.
func (g *ObstacleGrid) Empty() bool {
	return g == nil || g.Width == 0 || g.Height == 0
}

// InBounds reports whether (x, y) is a cell of the grid.
func (g *ObstacleGrid) InBounds(x, y int) bool {
	return !g.Empty() && x >= 0 && y >= 0 && x < g.Width && y < g.Height
}

// Occupied reports whether (x, y) is occupied. Out-of-bounds cells count
// as occupied.
func (g *ObstacleGrid) Occupied(x, y int) bool {
	if !g.InBounds(x, y) {
		return true
	}
	return g.Cells[y*g.Width+x]
}

// Set marks (x, y) as occupied or free. Out-of-bounds writes are ignored.
func (g *ObstacleGrid) Set(x, y int, occupied bool) {
	if !g.InBounds(x, y) {
		return
	}
	g.Cells[y*g.Width+x] = occupied
}

// Clone returns an independent copy of g.
func (g *ObstacleGrid) Clone() *ObstacleGrid {
	if g == nil {
		return nil
	}
	cells := make([]bool, len(g.Cells))
	copy(cells, g.Cells)
	return &ObstacleGrid{Width: g.Width, Height: g.Height, Cells: cells}
}
