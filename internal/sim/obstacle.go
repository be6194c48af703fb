package sim

import "gonum.org/v1/gonum/spatial/r3"

// ShapeKind identifies the geometry of an obstacle.
type ShapeKind string

const (
	ShapeSphere ShapeKind = "sphere" // Radius
	ShapeBox    ShapeKind = "box"    // HalfExtents, axis aligned in the obstacle frame
)

// Shape is a value type so copying an Obstacle copies its geometry.
type Shape struct {
	Kind        ShapeKind
	Radius      float64
	HalfExtents r3.Vec
}

// BoundingRadius returns the radius of a sphere centred on the obstacle
// origin that encloses the shape.
func (s Shape) BoundingRadius() float64 {
	switch s.Kind {
	case ShapeBox:
		return r3.Norm(s.HalfExtents)
	default:
		return s.Radius
	}
}

// ObstacleID identifies an obstacle in the world.
type ObstacleID uint32

// Obstacle is a world obstacle as seen by sensors and planners.
type Obstacle struct {
	ID     ObstacleID
	Pose   Pose
	Shape  Shape
	Static bool
}

// ObstacleSnapshot is an immutable list of obstacles collected once for a
// single orchestrator pass. Every consumer in that pass observes the same
// values; accessors hand out copies so no consumer can alter what another
// sees.
type ObstacleSnapshot struct {
	items []Obstacle
}

// NewObstacleSnapshot copies obstacles into a new snapshot.
func NewObstacleSnapshot(obstacles []Obstacle) ObstacleSnapshot {
	items := make([]Obstacle, len(obstacles))
	copy(items, obstacles)
	return ObstacleSnapshot{items: items}
}

// Len returns the number of obstacles in the snapshot.
func (s ObstacleSnapshot) Len() int { return len(s.items) }

// At returns a copy of the i-th obstacle.
func (s ObstacleSnapshot) At(i int) Obstacle { return s.items[i] }

// All returns a copy of every obstacle in the snapshot.
func (s ObstacleSnapshot) All() []Obstacle {
	out := make([]Obstacle, len(s.items))
	copy(out, s.items)
	return out
}

// Nearest returns the obstacle whose surface is closest to p, and the
// distance to that surface (clamped at zero). ok is false for an empty
// snapshot.
func (s ObstacleSnapshot) Nearest(p r3.Vec) (nearest Obstacle, dist float64, ok bool) {
	for i, o := range s.items {
		d := r3.Norm(r3.Sub(o.Pose.Position, p)) - o.Shape.BoundingRadius()
		if d < 0 {
			d = 0
		}
		if i == 0 || d < dist {
			nearest, dist, ok = o, d, true
		}
	}
	return nearest, dist, ok
}
