package testutil

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/agentsim/internal/sim"
)

func TestAssertStatusCode(t *testing.T) {
	t.Parallel()
	AssertStatusCode(t, http.StatusOK, http.StatusOK)
}

// errorRecorder captures Errorf calls instead of failing the test.
type errorRecorder struct {
	testing.TB
	errors []string
}

func (r *errorRecorder) Helper() {}

func (r *errorRecorder) Errorf(format string, args ...interface{}) {
	r.errors = append(r.errors, fmt.Sprintf(format, args...))
}

func TestAssertStatusCode_FailurePath(t *testing.T) {
	t.Parallel()

	rec := &errorRecorder{TB: t}
	AssertStatusCode(rec, http.StatusOK, http.StatusBadRequest)
	assert.Equal(t, []string{"status code = 200, want 400"}, rec.errors)

	rec = &errorRecorder{TB: t}
	AssertStatusCode(rec, http.StatusNotFound, http.StatusNotFound)
	assert.Empty(t, rec.errors)
}

func TestNewTestRequest(t *testing.T) {
	t.Parallel()
	req := NewTestRequest(http.MethodGet, "/api/agents")
	assert.Equal(t, http.MethodGet, req.Method)
	assert.Equal(t, "/api/agents", req.URL.Path)
	assert.Equal(t, http.StatusOK, NewTestRecorder().Code)
}

func TestCountingDynamicsIntegratesControl(t *testing.T) {
	t.Parallel()
	d := &CountingDynamics{}
	next := d.Propagate(sim.State{1, 2, 3}, sim.Control{10, -10}, 0.5, 0.1, Euler{})
	assert.InDeltaSlice(t, []float64{2, 1, 3}, []float64(next), 1e-12)
	require.Equal(t, 1, d.Calls())
	assert.Equal(t, 0.5, d.History()[0].T)
}

func TestRecordingEstimator(t *testing.T) {
	t.Parallel()
	e := &RecordingEstimator{State: sim.State{0}}
	e.Predict(nil, nil, 0.1)
	e.Update(sim.Measurement{Values: []float64{4}})
	assert.Equal(t, []string{"predict", "update"}, e.Log())
	assert.Equal(t, sim.State{4}, e.CurrentEstimate())
	assert.Equal(t, 1, e.Reads())
	assert.Nil(t, e.CurrentCovariance())
}

func TestScriptedPlannerRepeatsLastOutcome(t *testing.T) {
	t.Parallel()
	failed := errors.New("blocked")
	p := &ScriptedPlanner{Outcomes: []PlanOutcome{{Err: failed}, {Path: sim.Path{{X: 1}}}}}

	_, err := p.PlanPath(sim.PlanRequest{})
	assert.ErrorIs(t, err, failed)
	for i := 0; i < 2; i++ {
		path, err := p.PlanPath(sim.PlanRequest{})
		require.NoError(t, err)
		assert.Len(t, path, 1)
	}
	assert.Equal(t, 3, p.Calls())
}

func TestRecordingControllerPopsWaypoint(t *testing.T) {
	t.Parallel()
	c := &RecordingController{Output: sim.Control{1}, PopWaypoint: true}
	path := sim.Path{{X: 1}, {X: 2}}
	u := c.CalculateControl(sim.State{0}, sim.Goal{}, nil, &path, 0)
	assert.Equal(t, sim.Control{1}, u)
	assert.Len(t, path, 1)
	assert.Len(t, c.History()[0].Path, 2)
}
