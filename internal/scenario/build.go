package scenario

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/agentsim/internal/agent"
	"github.com/banshee-data/agentsim/internal/models/controllers"
	"github.com/banshee-data/agentsim/internal/models/dynamics"
	"github.com/banshee-data/agentsim/internal/models/estimators"
	"github.com/banshee-data/agentsim/internal/models/integrate"
	"github.com/banshee-data/agentsim/internal/models/planners"
	"github.com/banshee-data/agentsim/internal/models/sensors"
	"github.com/banshee-data/agentsim/internal/sim"
)

// Instance is a scenario materialised into a registry.
type Instance struct {
	Registry   *agent.Registry
	Integrator sim.Integrator
	Agents     map[string]agent.ID // by agent name
}

// Build constructs every model named by the scenario and spawns the agents
// into a fresh registry. Sensor models without an explicit seed get a
// seed derived from their position in the file, so a scenario replays
// identically.
func (s *Scenario) Build() (*Instance, error) {
	integrator, err := integrate.ByName(s.Integrator)
	if err != nil {
		return nil, fmt.Errorf("failed to build scenario: %w", err)
	}

	reg := agent.NewRegistry()
	if s.Grid != nil {
		cfg, grid := s.Grid.build()
		reg.SetGrid(cfg, grid)
	}
	for _, o := range s.Obstacles {
		reg.AddObstacle(o.build())
	}

	inst := &Instance{Registry: reg, Integrator: integrator, Agents: make(map[string]agent.ID, len(s.Agents))}
	for i, spec := range s.Agents {
		a, err := buildAgent(i, spec, integrator)
		if err != nil {
			return nil, fmt.Errorf("failed to build agent %s: %w", spec.Name, err)
		}
		id, err := reg.Spawn(a)
		if err != nil {
			return nil, fmt.Errorf("failed to spawn agent %s: %w", spec.Name, err)
		}
		inst.Agents[spec.Name] = id
	}
	logf("built %q: %d agents, %d obstacles, grid=%v", s.Name, len(inst.Agents), len(s.Obstacles), s.Grid != nil)
	return inst, nil
}

func (g *GridSpec) build() (sim.GridConfig, *sim.ObstacleGrid) {
	cfg := sim.GridConfig{Resolution: g.Resolution, OriginX: g.Origin[0], OriginY: g.Origin[1]}
	grid := sim.NewObstacleGrid(g.Width, g.Height)
	for row, line := range g.Rows {
		y := g.Height - 1 - row
		for x, ch := range []byte(line) {
			if ch == '#' {
				grid.Set(x, y, true)
			}
		}
	}
	for _, c := range g.Occupied {
		grid.Set(c[0], c[1], true)
	}
	return cfg, grid
}

func (o Obstacle) build() sim.Obstacle {
	shape := sim.Shape{Kind: sim.ShapeKind(o.Shape), Radius: o.Radius}
	if shape.Kind == "" {
		shape.Kind = sim.ShapeSphere
	}
	if shape.Kind == sim.ShapeBox {
		shape.HalfExtents = r3.Vec{X: o.HalfExtents[0], Y: o.HalfExtents[1], Z: o.HalfExtents[2]}
	}
	return sim.Obstacle{
		Pose:   o.Pose.Pose(),
		Shape:  shape,
		Static: o.Static == nil || *o.Static,
	}
}

func buildAgent(index int, spec AgentSpec, integrator sim.Integrator) (*agent.Agent, error) {
	var dp dynamics.Params
	if err := spec.Dynamics.decodeParams(&dp); err != nil {
		return nil, err
	}
	model, err := dynamics.New(spec.Dynamics.Kind, dp)
	if err != nil {
		return nil, err
	}
	x0 := dynamics.InitialState(model, spec.Start.X, spec.Start.Y, spec.Start.Yaw)

	a := &agent.Agent{
		Name:       spec.Name,
		Autonomous: spec.IsAutonomous(),
		Pose:       model.Pose(x0),
		TrueState:  x0,
		Dynamics:   model,
		Control:    &agent.ControlInput{U: make(sim.Control, model.ControlDim())},
	}

	if len(spec.Sensors) > 0 {
		instances := make([]*agent.SensorInstance, 0, len(spec.Sensors))
		for j, ss := range spec.Sensors {
			var sp sensors.Params
			if err := ss.decodeParams(&sp); err != nil {
				return nil, err
			}
			if sp.Seed == 0 {
				sp.Seed = uint64(index)<<16 | uint64(j) + 1
			}
			m, err := sensors.New(ss.Kind, sp)
			if err != nil {
				return nil, err
			}
			name := ss.Name
			if name == "" {
				name = fmt.Sprintf("%s-%d", ss.Kind, j)
			}
			instances = append(instances, agent.NewSensorInstance(name, ss.RateHz, ss.Offset.Pose(), m))
		}
		a.Sensors = agent.NewSensorSuite(instances...)
	}

	if spec.Estimator != nil {
		ep := estimators.DefaultEKFParams()
		if err := spec.Estimator.decodeParams(&ep); err != nil {
			return nil, err
		}
		est, err := estimators.New(spec.Estimator.Kind, x0, integrator, ep)
		if err != nil {
			return nil, err
		}
		a.Estimator = agent.NewEstimatorLogic(est)
		a.Estimated = &sim.Estimate{State: est.CurrentEstimate(), Covariance: est.CurrentCovariance()}
	}

	if spec.Planner != nil {
		var pp planners.Params
		if err := spec.Planner.decodeParams(&pp); err != nil {
			return nil, err
		}
		p, err := planners.New(spec.Planner.Kind, pp)
		if err != nil {
			return nil, err
		}
		a.Planner = p
		a.AttachPath()
	}

	if spec.Controller != nil {
		var cp controllers.Params
		if err := spec.Controller.decodeParams(&cp); err != nil {
			return nil, err
		}
		c, err := controllers.New(spec.Controller.Kind, cp)
		if err != nil {
			return nil, err
		}
		a.Controller = c
	}

	if spec.Goal != nil {
		a.SetGoal(sim.Goal{Pose: spec.Goal.Pose()})
	}
	return a, nil
}
