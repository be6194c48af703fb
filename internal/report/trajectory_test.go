package report

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/agentsim/internal/agent"
)

func view(id agent.ID, name string, x, y float64) agent.View {
	return agent.View{ID: id, Name: name, Position: [3]float64{x, y, 0}}
}

func TestRecordKeepsOrderAndEstimates(t *testing.T) {
	t.Parallel()
	a, b := uuid.New(), uuid.New()
	tr := NewTrajectories(0)

	withEst := view(b, "b", 1, 1)
	withEst.Estimate = &agent.EstimateView{State: []float64{1.1, 0.9}}
	withEst.Goal = &[3]float64{5, 5, 0}
	tr.Record(0, []agent.View{view(a, "a", 0, 0), withEst})
	tr.Record(10*time.Millisecond, []agent.View{view(a, "a", 1, 0)})

	assert.Equal(t, []agent.ID{a, b}, tr.Agents())
	sa := tr.Samples(a)
	require.Len(t, sa, 2)
	assert.Equal(t, 1.0, sa[1].X)
	assert.False(t, sa[0].HasEstimate)

	sb := tr.Samples(b)
	require.Len(t, sb, 1)
	assert.True(t, sb[0].HasEstimate)
	assert.Equal(t, 1.1, sb[0].EX)

	assert.Nil(t, tr.Samples(uuid.New()))
}

func TestRecordThinsLongRuns(t *testing.T) {
	t.Parallel()
	id := uuid.New()
	tr := NewTrajectories(4)
	for i := 0; i < 7; i++ {
		tr.Record(time.Duration(i)*time.Second, []agent.View{view(id, "a", float64(i), 0)})
	}
	var got []time.Duration
	for _, s := range tr.Samples(id) {
		got = append(got, s.T)
	}
	assert.Equal(t, []time.Duration{0, 4 * time.Second}, got)
}

func TestSave(t *testing.T) {
	t.Parallel()
	id := uuid.New()
	tr := NewTrajectories(0)
	for i := 0; i < 20; i++ {
		v := view(id, "rover", float64(i)*0.1, float64(i)*0.05)
		v.Estimate = &agent.EstimateView{State: []float64{float64(i) * 0.1, float64(i)*0.05 + 0.01}}
		v.Goal = &[3]float64{2, 1, 0}
		tr.Record(time.Duration(i)*100*time.Millisecond, []agent.View{v})
	}

	p, err := tr.Plot("corridor")
	require.NoError(t, err)
	assert.Equal(t, "corridor", p.Title.Text)

	path := filepath.Join(t.TempDir(), "trajectories.png")
	require.NoError(t, tr.Save(path, "corridor"))
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Positive(t, info.Size())

	assert.Error(t, tr.Save(filepath.Join(t.TempDir(), "out.unknown"), "x"))
}
