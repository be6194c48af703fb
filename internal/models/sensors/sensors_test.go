package sensors

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/agentsim/internal/sim"
)

func TestPositionWithoutNoiseIsExact(t *testing.T) {
	t.Parallel()
	s := NewPosition(0, 1)
	m, ok := s.Sense(nil, sim.PoseXYYaw(3, -4, 1), sim.ObstacleSnapshot{}, 2.5)
	require.True(t, ok)
	assert.Equal(t, sim.MeasurePosition, m.Kind)
	assert.Equal(t, []float64{3, -4}, m.Values)
	assert.Equal(t, 2.5, m.Time)
}

func TestPositionNoiseStatistics(t *testing.T) {
	t.Parallel()
	s := NewPosition(0.5, 42)
	xs := make([]float64, 0, 4000)
	for i := 0; i < 4000; i++ {
		m, _ := s.Sense(nil, sim.IdentityPose(), sim.ObstacleSnapshot{}, 0)
		xs = append(xs, m.Values[0])
	}
	mean, std := stat.MeanStdDev(xs, nil)
	assert.InDelta(t, 0, mean, 0.05)
	assert.InDelta(t, 0.5, std, 0.05)
}

func TestPositionIsReproducible(t *testing.T) {
	t.Parallel()
	a, b := NewPosition(1, 7), NewPosition(1, 7)
	for i := 0; i < 10; i++ {
		ma, _ := a.Sense(nil, sim.IdentityPose(), sim.ObstacleSnapshot{}, 0)
		mb, _ := b.Sense(nil, sim.IdentityPose(), sim.ObstacleSnapshot{}, 0)
		assert.Equal(t, ma.Values, mb.Values)
	}
}

func TestRangeToNearestObstacle(t *testing.T) {
	t.Parallel()
	obstacles := sim.NewObstacleSnapshot([]sim.Obstacle{
		{ID: 1, Pose: sim.PoseXYYaw(10, 0, 0), Shape: sim.Shape{Kind: sim.ShapeSphere, Radius: 1}},
		{ID: 2, Pose: sim.PoseXYYaw(0, 4, 0), Shape: sim.Shape{Kind: sim.ShapeSphere, Radius: 1}},
	})
	s := NewRange(0, 0, 1)
	m, ok := s.Sense(nil, sim.IdentityPose(), obstacles, 0)
	require.True(t, ok)
	assert.Equal(t, sim.MeasureRange, m.Kind)
	assert.InDelta(t, 3, m.Values[0], 1e-12)

	limited := NewRange(2, 0, 1)
	_, ok = limited.Sense(nil, sim.IdentityPose(), obstacles, 0)
	assert.False(t, ok)

	_, ok = s.Sense(nil, sim.IdentityPose(), sim.ObstacleSnapshot{}, 0)
	assert.False(t, ok, "no obstacles, no output")
}

func TestNew(t *testing.T) {
	t.Parallel()
	m, err := New("position", Params{StdDev: 0.1})
	require.NoError(t, err)
	assert.IsType(t, &Position{}, m)

	m, err = New("range", Params{MaxRange: 5})
	require.NoError(t, err)
	assert.IsType(t, &Range{}, m)

	_, err = New("lidar", Params{})
	assert.Error(t, err)
	_, err = New("position", Params{StdDev: -1})
	assert.Error(t, err)
}
