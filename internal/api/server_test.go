package api

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/agentsim/internal/agent"
	"github.com/banshee-data/agentsim/internal/httputil"
	"github.com/banshee-data/agentsim/internal/models/integrate"
	"github.com/banshee-data/agentsim/internal/monitoring"
	"github.com/banshee-data/agentsim/internal/pipeline"
	"github.com/banshee-data/agentsim/internal/scheduler"
	"github.com/banshee-data/agentsim/internal/sim"
	"github.com/banshee-data/agentsim/internal/testutil"
	"github.com/banshee-data/agentsim/internal/version"
)

// newFixture returns a simulation with one autonomous agent whose planner
// always fails, advanced far enough to record one diagnostic.
func newFixture(t *testing.T) (*pipeline.Simulation, agent.ID) {
	t.Helper()
	reg := agent.NewRegistry()
	reg.SetGrid(sim.GridConfig{Resolution: 1}, sim.NewObstacleGrid(4, 4))

	a := &agent.Agent{
		Name:       "rover",
		Autonomous: true,
		TrueState:  sim.State{0.5, 0.5},
		Planner:    &testutil.ScriptedPlanner{Outcomes: []testutil.PlanOutcome{{Err: errors.New("blocked")}}},
	}
	a.SetGoal(sim.Goal{Pose: sim.PoseXYYaw(3.5, 3.5, 0)})
	a.AttachPath()
	id, err := reg.Spawn(a)
	require.NoError(t, err)

	s, err := pipeline.NewSimulation(reg, nil, integrate.Euler{})
	require.NoError(t, err)
	t.Cleanup(s.Close)
	s.Advance(100 * time.Millisecond)
	return s, id
}

func serve(s *Server, req *http.Request) *httptest.ResponseRecorder {
	rec := testutil.NewTestRecorder()
	s.ServeMux().ServeHTTP(rec, req)
	return rec
}

func TestListAndShowAgents(t *testing.T) {
	t.Parallel()
	simulation, id := newFixture(t)
	srv := NewServer(simulation)

	rec := serve(srv, testutil.NewTestRequest(http.MethodGet, "/api/agents"))
	testutil.AssertStatusCode(t, rec.Code, http.StatusOK)
	var views []agent.View
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&views))
	require.Len(t, views, 1)
	assert.Equal(t, id, views[0].ID)
	assert.Equal(t, "rover", views[0].Name)

	rec = serve(srv, testutil.NewTestRequest(http.MethodGet, "/api/agents/"+id.String()))
	testutil.AssertStatusCode(t, rec.Code, http.StatusOK)
	var v agent.View
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v))
	assert.Equal(t, []float64{0.5, 0.5}, v.TrueState)

	rec = serve(srv, testutil.NewTestRequest(http.MethodGet, "/api/agents/not-a-uuid"))
	testutil.AssertStatusCode(t, rec.Code, http.StatusBadRequest)

	rec = serve(srv, testutil.NewTestRequest(http.MethodGet, "/api/agents/"+agent.NilID.String()))
	testutil.AssertStatusCode(t, rec.Code, http.StatusNotFound)

	rec = serve(srv, testutil.NewTestRequest(http.MethodPost, "/api/agents"))
	testutil.AssertStatusCode(t, rec.Code, http.StatusMethodNotAllowed)
}

func TestSetGoal(t *testing.T) {
	t.Parallel()
	simulation, id := newFixture(t)
	srv := NewServer(simulation)
	path := "/api/agents/" + id.String() + "/goal"

	put := func(p, body string) *httptest.ResponseRecorder {
		return serve(srv, httptest.NewRequest(http.MethodPut, p, strings.NewReader(body)))
	}

	rec := put(path, `{"x": 2.5, "y": 1.5}`)
	testutil.AssertStatusCode(t, rec.Code, http.StatusOK)
	var v agent.View
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v))
	require.NotNil(t, v.Goal)
	assert.Equal(t, [3]float64{2.5, 1.5, 0}, *v.Goal)
	assert.Equal(t, uint64(2), v.GoalGeneration)
	assert.True(t, v.HasPath)

	simulation.Registry().Read(func(w *agent.World) {
		assert.True(t, w.Agent(id).PlanningEdge(), "goal change must raise a planning edge")
	})

	testutil.AssertStatusCode(t, put(path, `{"x": 1, "speed": 3}`).Code, http.StatusBadRequest)
	testutil.AssertStatusCode(t, put(path, ``).Code, http.StatusBadRequest)
	testutil.AssertStatusCode(t, put("/api/agents/"+agent.NilID.String()+"/goal", `{"x": 1}`).Code, http.StatusNotFound)
	testutil.AssertStatusCode(t, put("/api/agents/nope/goal", `{"x": 1}`).Code, http.StatusBadRequest)

	rec = serve(srv, testutil.NewTestRequest(http.MethodGet, path))
	testutil.AssertStatusCode(t, rec.Code, http.StatusMethodNotAllowed)
}

func TestGoalRequestValid(t *testing.T) {
	t.Parallel()
	assert.True(t, GoalRequest{X: 1, Y: -2, Yaw: 3}.valid())
	assert.False(t, GoalRequest{X: math.NaN()}.valid())
	assert.False(t, GoalRequest{Yaw: math.Inf(1)}.valid())
}

func TestListDiagnostics(t *testing.T) {
	t.Parallel()
	simulation, id := newFixture(t)
	srv := NewServer(simulation)

	rec := serve(srv, testutil.NewTestRequest(http.MethodGet, "/api/diagnostics"))
	testutil.AssertStatusCode(t, rec.Code, http.StatusOK)
	var diags []monitoring.Diagnostic
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&diags))
	require.Len(t, diags, 1)
	assert.Equal(t, monitoring.KindPlanningFailed, diags[0].Kind)
	assert.Equal(t, id, diags[0].Agent)

	rec = serve(srv, testutil.NewTestRequest(http.MethodGet, "/api/diagnostics?agent="+agent.NilID.String()))
	testutil.AssertStatusCode(t, rec.Code, http.StatusOK)
	assert.JSONEq(t, `[]`, rec.Body.String())

	rec = serve(srv, testutil.NewTestRequest(http.MethodGet, "/api/diagnostics?agent="+id.String()))
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&diags))
	assert.Len(t, diags, 1)

	for _, q := range []string{"limit=0", "limit=x", "agent=bogus"} {
		rec = serve(srv, testutil.NewTestRequest(http.MethodGet, "/api/diagnostics?"+q))
		testutil.AssertStatusCode(t, rec.Code, http.StatusBadRequest)
	}
}

func TestLanesStatusAndVersion(t *testing.T) {
	t.Parallel()
	simulation, _ := newFixture(t)
	srv := NewServer(simulation)

	rec := serve(srv, testutil.NewTestRequest(http.MethodGet, "/api/lanes"))
	testutil.AssertStatusCode(t, rec.Code, http.StatusOK)
	var lanes []scheduler.LaneStats
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&lanes))
	require.Len(t, lanes, 5)
	assert.Equal(t, pipeline.LanePlanning, lanes[0].Name)
	assert.Equal(t, uint64(1), lanes[0].Runs)
	assert.Equal(t, uint64(10), lanes[2].Runs)

	rec = serve(srv, testutil.NewTestRequest(http.MethodGet, "/api/status"))
	testutil.AssertStatusCode(t, rec.Code, http.StatusOK)
	var st Status
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&st))
	assert.Equal(t, Status{Elapsed: 0.1, Agents: 1, Diagnostics: 1}, st)

	rec = serve(srv, testutil.NewTestRequest(http.MethodGet, "/api/version"))
	testutil.AssertStatusCode(t, rec.Code, http.StatusOK)
	var info version.Info
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&info))
	assert.Equal(t, version.Current(), info)

	for _, p := range []string{"/api/lanes", "/api/status", "/api/version", "/api/diagnostics"} {
		rec = serve(srv, testutil.NewTestRequest(http.MethodDelete, p))
		testutil.AssertStatusCode(t, rec.Code, http.StatusMethodNotAllowed)
	}
}

func TestLoggingMiddleware(t *testing.T) {
	var lines []string
	monitoring.SetLogger(func(format string, v ...interface{}) {
		lines = append(lines, format)
	})
	t.Cleanup(func() { monitoring.SetLogger(nil) })

	h := LoggingMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httputil.NotFound(w, "nothing here")
	}))
	rec := testutil.NewTestRecorder()
	h.ServeHTTP(rec, testutil.NewTestRequest(http.MethodGet, "/api/missing"))

	testutil.AssertStatusCode(t, rec.Code, http.StatusNotFound)
	require.Len(t, lines, 1)
	assert.True(t, strings.HasPrefix(lines[0], "[API] "))
	assert.Contains(t, statusCodeColor(http.StatusNotFound), "404")
}

func TestClientRoundTrip(t *testing.T) {
	t.Parallel()
	simulation, id := newFixture(t)
	ts := httptest.NewServer(NewServer(simulation).ServeMux())
	t.Cleanup(ts.Close)

	c := NewClient(ts.URL+"/", nil)
	ctx := context.Background()

	views, err := c.Agents(ctx)
	require.NoError(t, err)
	require.Len(t, views, 1)

	v, err := c.SetGoal(ctx, id, GoalRequest{X: 1.5, Y: 2.5})
	require.NoError(t, err)
	assert.Equal(t, [3]float64{1.5, 2.5, 0}, *v.Goal)

	lanes, err := c.Lanes(ctx)
	require.NoError(t, err)
	assert.Len(t, lanes, 5)

	st, err := c.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, st.Agents)

	diags, err := c.Diagnostics(ctx, 5)
	require.NoError(t, err)
	assert.Len(t, diags, 1)

	_, err = c.SetGoal(ctx, agent.NilID, GoalRequest{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "agent not found")
}

func TestClientErrors(t *testing.T) {
	t.Parallel()
	mock := httputil.NewMockHTTPClient().
		AddErrorResponse(errors.New("connection refused")).
		AddResponse(http.StatusBadGateway, "<html>").
		AddResponse(http.StatusOK, "not json")
	c := NewClient("http://sim.local", mock)
	ctx := context.Background()

	_, err := c.Agents(ctx)
	assert.ErrorContains(t, err, "connection refused")
	_, err = c.Lanes(ctx)
	assert.ErrorContains(t, err, "unexpected status 502")
	_, err = c.Status(ctx)
	assert.ErrorContains(t, err, "failed to decode")

	req, _ := mock.Request(0)
	require.NotNil(t, req)
	assert.Equal(t, "http://sim.local/api/agents", req.URL.String())
}
