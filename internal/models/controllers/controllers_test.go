package controllers

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/agentsim/internal/models/dynamics"
	"github.com/banshee-data/agentsim/internal/models/integrate"
	"github.com/banshee-data/agentsim/internal/sim"
)

func goalAt(x, y float64) sim.Goal { return sim.Goal{Pose: sim.PoseXYYaw(x, y, 0)} }

func TestTrackPopsReachedWaypoints(t *testing.T) {
	t.Parallel()
	path := sim.Path{{X: 1}, {X: 1.05}, {X: 2}}
	tx, ty, final := track(1, 0, goalAt(5, 0), &path, 0.1)
	assert.Equal(t, 2.0, tx)
	assert.Equal(t, 0.0, ty)
	assert.True(t, final)
	assert.Len(t, path, 1)

	path = sim.Path{{X: 1}}
	tx, _, final = track(1, 0, goalAt(5, 0), &path, 0.1)
	assert.Empty(t, path)
	assert.Equal(t, 5.0, tx, "exhausted path falls back to the goal")
	assert.True(t, final)

	tx, ty, _ = track(0, 0, goalAt(3, 4), nil, 0.1)
	assert.Equal(t, [2]float64{3, 4}, [2]float64{tx, ty})
}

func TestPointMassPD(t *testing.T) {
	t.Parallel()

	t.Run("seeks next waypoint", func(t *testing.T) {
		t.Parallel()
		c := PointMassPD{Kp: 1, Kd: 1}
		path := sim.Path{{X: 0, Y: 2}, {X: 5, Y: 5}}
		u := c.CalculateControl(sim.State{0, 0, 0, 0}, goalAt(5, 5), nil, &path, 0)
		assert.Equal(t, sim.Control{0, 2}, u)
		assert.Len(t, path, 2)
	})

	t.Run("holds at goal", func(t *testing.T) {
		t.Parallel()
		c := PointMassPD{Kp: 1, Kd: 1}
		path := sim.Path{}
		u := c.CalculateControl(sim.State{2, 2, 0, 0}, goalAt(2, 2), nil, &path, 0)
		assert.Equal(t, sim.Control{0, 0}, u)
	})

	t.Run("limits acceleration", func(t *testing.T) {
		t.Parallel()
		c := PointMassPD{Kp: 10, Kd: 0, MaxAccel: 2}
		u := c.CalculateControl(sim.State{0, 0, 0, 0}, goalAt(30, 40), nil, nil, 0)
		assert.InDelta(t, 2.0, math.Hypot(u[0], u[1]), 1e-12)
		assert.InDelta(t, 0.6, u[0]/2, 1e-12)
	})

	t.Run("short state", func(t *testing.T) {
		t.Parallel()
		u := PointMassPD{Kp: 1}.CalculateControl(sim.State{1}, goalAt(2, 2), nil, nil, 0)
		assert.Equal(t, sim.Control{0, 0}, u)
	})
}

func TestUnicycleTracker(t *testing.T) {
	t.Parallel()
	c := UnicycleTracker{Speed: 1, Gain: 2, Tolerance: 0.1}

	u := c.CalculateControl(sim.State{0, 0, 0}, goalAt(5, 0), nil, nil, 0)
	assert.InDelta(t, 1.0, u[0], 1e-12)
	assert.InDelta(t, 0.0, u[1], 1e-12)

	u = c.CalculateControl(sim.State{0, 0, 0}, goalAt(0, 5), nil, nil, 0)
	assert.InDelta(t, 0.0, u[0], 1e-9, "target abeam: turn in place")
	assert.InDelta(t, math.Pi, u[1], 1e-12)

	u = c.CalculateControl(sim.State{0, 0, 0}, goalAt(0.3, 0), nil, nil, 0)
	assert.InDelta(t, 0.3, u[0], 1e-12, "slows on final approach")

	u = c.CalculateControl(sim.State{0, 0, 1}, goalAt(0.05, 0), nil, nil, 0)
	assert.Equal(t, sim.Control{0, 0}, u)
}

func TestClosedLoopReachesGoal(t *testing.T) {
	t.Parallel()
	const dt = 0.01

	tests := []struct {
		name  string
		model dynamics.Model
		ctrl  sim.Controller
	}{
		{"point mass", dynamics.PointMass{Damping: 0.5, MaxAccel: 2}, PointMassPD{Kp: 1, Kd: 1.5, MaxAccel: 2}},
		{"unicycle", dynamics.Unicycle{MaxSpeed: 1, MaxYawRate: 2}, UnicycleTracker{Speed: 1, Gain: 2, Tolerance: 0.05}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			x := dynamics.InitialState(tt.model, 0, 0, 0)
			goal := goalAt(3, 4)
			path := sim.Path{{X: 3, Y: 0}, {X: 3, Y: 4}}
			for i := 0; i < 3000; i++ {
				u := tt.ctrl.CalculateControl(x, goal, tt.model, &path, float64(i)*dt)
				x = tt.model.Propagate(x, u, float64(i)*dt, dt, integrate.RK4{})
			}
			require.Empty(t, path)
			assert.InDelta(t, 3.0, x[0], 0.1)
			assert.InDelta(t, 4.0, x[1], 0.1)
		})
	}
}

func TestNew(t *testing.T) {
	t.Parallel()
	c, err := New("point_mass_pd", Params{})
	require.NoError(t, err)
	assert.Equal(t, PointMassPD{Kp: 1, Kd: 1.5}, c)

	c, err = New("unicycle_tracker", Params{Speed: 2})
	require.NoError(t, err)
	assert.Equal(t, UnicycleTracker{Speed: 2, Gain: 2}, c)

	_, err = New("mpc", Params{})
	assert.Error(t, err)
}
