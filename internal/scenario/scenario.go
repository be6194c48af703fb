// Package scenario loads YAML scenario files and builds a populated agent
// registry from them using the reference models.
package scenario

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/banshee-data/agentsim/internal/fsutil"
	"github.com/banshee-data/agentsim/internal/monitoring"
	"github.com/banshee-data/agentsim/internal/sim"
)

const maxScenarioFileSize = 4 * 1024 * 1024

var logf = monitoring.Component("Scenario")

// Scenario is the decoded form of a scenario file.
type Scenario struct {
	Name       string      `yaml:"name"`
	Integrator string      `yaml:"integrator"`
	Grid       *GridSpec   `yaml:"grid"`
	Obstacles  []Obstacle  `yaml:"obstacles"`
	Agents     []AgentSpec `yaml:"agents"`
}

// GridSpec describes the planning grid. Cells may be marked occupied
// individually or drawn as Rows, where the first row is the top (highest
// Y) of the grid and '#' marks an occupied cell.
type GridSpec struct {
	Resolution float64    `yaml:"resolution"`
	Origin     [2]float64 `yaml:"origin"`
	Width      int        `yaml:"width"`
	Height     int        `yaml:"height"`
	Occupied   [][2]int   `yaml:"occupied"`
	Rows       []string   `yaml:"rows"`
}

// PoseSpec is a planar pose.
type PoseSpec struct {
	X   float64 `yaml:"x"`
	Y   float64 `yaml:"y"`
	Yaw float64 `yaml:"yaw"`
}

// Pose converts p to a sim.Pose.
func (p PoseSpec) Pose() sim.Pose { return sim.PoseXYYaw(p.X, p.Y, p.Yaw) }

// Obstacle is a world obstacle.
type Obstacle struct {
	Name        string     `yaml:"name"`
	Pose        PoseSpec   `yaml:"pose"`
	Shape       string     `yaml:"shape"`
	Radius      float64    `yaml:"radius"`
	HalfExtents [3]float64 `yaml:"half_extents"`
	Static      *bool      `yaml:"static"`
}

// ModelSpec selects a model by kind. Params is decoded by the model's
// own parameter type once the kind is known.
type ModelSpec struct {
	Kind   string    `yaml:"kind"`
	Params yaml.Node `yaml:"params"`
}

// SensorSpec is one sensor instance mounted on an agent.
type SensorSpec struct {
	Name      string   `yaml:"name"`
	RateHz    float64  `yaml:"rate_hz"`
	Offset    PoseSpec `yaml:"offset"`
	ModelSpec `yaml:",inline"`
}

// AgentSpec describes one agent. Omitted capabilities leave the matching
// component unset.
type AgentSpec struct {
	Name       string       `yaml:"name"`
	Autonomous *bool        `yaml:"autonomous"`
	Start      PoseSpec     `yaml:"start"`
	Goal       *PoseSpec    `yaml:"goal"`
	Dynamics   *ModelSpec   `yaml:"dynamics"`
	Sensors    []SensorSpec `yaml:"sensors"`
	Estimator  *ModelSpec   `yaml:"estimator"`
	Planner    *ModelSpec   `yaml:"planner"`
	Controller *ModelSpec   `yaml:"controller"`
}

// IsAutonomous reports whether the agent is autonomous; the default is true.
func (a AgentSpec) IsAutonomous() bool { return a.Autonomous == nil || *a.Autonomous }

// decodeParams decodes the params node into out, leaving out untouched when
// params were omitted.
func (m ModelSpec) decodeParams(out interface{}) error {
	if m.Params.Kind == 0 {
		return nil
	}
	if err := m.Params.Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s params: %w", m.Kind, err)
	}
	return nil
}

// Load reads a scenario from a .yaml or .yml file.
func Load(fsys fsutil.FileSystem, path string) (*Scenario, error) {
	data, _, err := fsutil.ReadBounded(fsys, path, maxScenarioFileSize, ".yaml", ".yml")
	if err != nil {
		return nil, fmt.Errorf("failed to load scenario file: %w", err)
	}
	s, err := Parse(data)
	if err != nil {
		return nil, err
	}
	logf("loaded %q from %s: %d agents, %d obstacles", s.Name, path, len(s.Agents), len(s.Obstacles))
	return s, nil
}

// Parse decodes and validates a scenario document.
func Parse(data []byte) (*Scenario, error) {
	var s Scenario
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse scenario YAML: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &s, nil
}

// Validate checks structural constraints that do not depend on model
// construction.
func (s *Scenario) Validate() error {
	if g := s.Grid; g != nil {
		if g.Resolution <= 0 {
			return fmt.Errorf("grid resolution must be positive, got %v", g.Resolution)
		}
		if g.Width <= 0 || g.Height <= 0 {
			return fmt.Errorf("grid size must be positive, got %dx%d", g.Width, g.Height)
		}
		if len(g.Rows) > 0 && len(g.Rows) != g.Height {
			return fmt.Errorf("grid has %d rows, want %d", len(g.Rows), g.Height)
		}
		for i, row := range g.Rows {
			if len(row) != g.Width {
				return fmt.Errorf("grid row %d has %d cells, want %d", i, len(row), g.Width)
			}
		}
		for _, c := range g.Occupied {
			if c[0] < 0 || c[1] < 0 || c[0] >= g.Width || c[1] >= g.Height {
				return fmt.Errorf("occupied cell %v outside %dx%d grid", c, g.Width, g.Height)
			}
		}
	}
	for i, o := range s.Obstacles {
		switch sim.ShapeKind(o.Shape) {
		case sim.ShapeSphere, "":
			if o.Radius <= 0 {
				return fmt.Errorf("obstacle %d (%s): radius must be positive", i, o.Name)
			}
		case sim.ShapeBox:
		default:
			return fmt.Errorf("obstacle %d (%s): unknown shape %q", i, o.Name, o.Shape)
		}
	}
	names := make(map[string]bool, len(s.Agents))
	for i, a := range s.Agents {
		if a.Name == "" {
			return fmt.Errorf("agent %d has no name", i)
		}
		if names[a.Name] {
			return fmt.Errorf("duplicate agent name %q", a.Name)
		}
		names[a.Name] = true
		if a.Dynamics == nil {
			return fmt.Errorf("agent %s has no dynamics", a.Name)
		}
	}
	return nil
}
