package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/agentsim/internal/sim"
	"github.com/banshee-data/agentsim/internal/testutil"
)

// loopbackRequest sets RemoteAddr to loopback so tsweb allows debug access.
func loopbackRequest(method, target string) *http.Request {
	req := httptest.NewRequest(method, target, nil)
	req.RemoteAddr = "127.0.0.1:12345"
	return req
}

func TestCollectWorld(t *testing.T) {
	t.Parallel()
	simulation, _ := newFixture(t)
	reg := simulation.Registry()
	grid := sim.NewObstacleGrid(4, 4)
	grid.Set(1, 2, true)
	reg.SetGrid(sim.GridConfig{Resolution: 1}, grid)
	reg.AddObstacle(sim.Obstacle{Pose: sim.PoseXYYaw(2, 2, 0), Shape: sim.Shape{Kind: sim.ShapeSphere, Radius: 0.3}})

	ws := collectWorld(reg)
	require.Len(t, ws.occupied, 1)
	assert.Equal(t, []interface{}{1.5, 2.5}, ws.occupied[0].Value)
	assert.Len(t, ws.obstacles, 1)
	require.Len(t, ws.agents, 1)
	assert.Equal(t, "rover", ws.agents[0].Name)
	require.Len(t, ws.goals, 1)
	assert.Equal(t, []interface{}{3.5, 3.5}, ws.goals[0].Value)
	assert.Equal(t, 4.0, ws.width)
	assert.Equal(t, 4.0, ws.height)
}

func TestWorldChart(t *testing.T) {
	t.Parallel()
	simulation, _ := newFixture(t)
	srv := NewServer(simulation)

	rec := testutil.NewTestRecorder()
	srv.handleWorldChart(rec, testutil.NewTestRequest(http.MethodGet, "/debug/world"))
	testutil.AssertStatusCode(t, rec.Code, http.StatusOK)
	assert.True(t, strings.HasPrefix(rec.Header().Get("Content-Type"), "text/html"))
	body := rec.Body.String()
	assert.Contains(t, body, "agentsim world")
	assert.Contains(t, body, "rover")
}

func TestAttachDebugRoutes(t *testing.T) {
	t.Parallel()
	simulation, _ := newFixture(t)
	srv := NewServer(simulation)
	mux := srv.ServeMux()
	srv.AttachDebugRoutes(mux)

	rec := testutil.NewTestRecorder()
	mux.ServeHTTP(rec, loopbackRequest(http.MethodGet, "/debug/world"))
	testutil.AssertStatusCode(t, rec.Code, http.StatusOK)
	assert.Contains(t, rec.Body.String(), "rover")

	rec = testutil.NewTestRecorder()
	mux.ServeHTTP(rec, loopbackRequest(http.MethodGet, "/debug/"))
	testutil.AssertStatusCode(t, rec.Code, http.StatusOK)
	assert.Contains(t, rec.Body.String(), "world")
}
