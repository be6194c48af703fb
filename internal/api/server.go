// Package api serves the simulation's HTTP status surface: agent
// snapshots, diagnostics, lane statistics and goal assignment.
package api

import (
	"errors"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/banshee-data/agentsim/internal/agent"
	"github.com/banshee-data/agentsim/internal/httputil"
	"github.com/banshee-data/agentsim/internal/monitoring"
	"github.com/banshee-data/agentsim/internal/scheduler"
	"github.com/banshee-data/agentsim/internal/sim"
	"github.com/banshee-data/agentsim/internal/version"
)

// ANSI escape codes for request logging
const (
	colorCyan      = "\033[36m"
	colorReset     = "\033[0m"
	colorYellow    = "\033[33m"
	colorBoldGreen = "\033[1;32m"
	colorBoldRed   = "\033[1;31m"
)

const defaultDiagnosticsLimit = 50

var logf = monitoring.Component("API")

// Simulation is the read side of a running simulation plus its registry.
type Simulation interface {
	Registry() *agent.Registry
	Diagnostics() *monitoring.Recorder
	Lanes() []scheduler.LaneStats
	Elapsed() time.Duration
	PendingMeasurements() int
}

// Server exposes a Simulation over HTTP.
type Server struct {
	sim Simulation
}

// NewServer returns a server over s.
func NewServer(s Simulation) *Server {
	return &Server{sim: s}
}

// Status summarises the simulation.
type Status struct {
	Elapsed             float64 `json:"elapsed_s"`
	Agents              int     `json:"agents"`
	PendingMeasurements int     `json:"pending_measurements"`
	Diagnostics         uint64  `json:"diagnostics"`
}

// GoalRequest is the body of PUT /api/agents/{id}/goal.
type GoalRequest struct {
	X   float64 `json:"x"`
	Y   float64 `json:"y"`
	Yaw float64 `json:"yaw"`
}

func (g GoalRequest) valid() bool {
	for _, v := range []float64{g.X, g.Y, g.Yaw} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// ServeMux returns a mux with every API route mounted.
func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/status", s.showStatus)
	mux.HandleFunc("/api/agents", s.listAgents)
	mux.HandleFunc("/api/agents/{id}", s.showAgent)
	mux.HandleFunc("/api/agents/{id}/goal", s.setGoal)
	mux.HandleFunc("/api/diagnostics", s.listDiagnostics)
	mux.HandleFunc("/api/lanes", s.listLanes)
	mux.HandleFunc("/api/version", s.showVersion)
	return mux
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func statusCodeColor(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return colorBoldGreen + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 300 && statusCode < 400:
		return colorYellow + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 400:
		return colorBoldRed + strconv.Itoa(statusCode) + colorReset
	default:
		return strconv.Itoa(statusCode)
	}
}

// LoggingMiddleware logs method, path, status, and duration
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{w, http.StatusOK}
		next.ServeHTTP(lrw, r)
		logf("[%s] %s %s%s%s %vms",
			statusCodeColor(lrw.statusCode), r.Method,
			colorCyan, r.RequestURI, colorReset,
			float64(time.Since(start).Nanoseconds())/1e6,
		)
	})
}

func (s *Server) showStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	httputil.WriteJSONOK(w, Status{
		Elapsed:             s.sim.Elapsed().Seconds(),
		Agents:              s.sim.Registry().Len(),
		PendingMeasurements: s.sim.PendingMeasurements(),
		Diagnostics:         s.sim.Diagnostics().Total(),
	})
}

func (s *Server) listAgents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	httputil.WriteJSONOK(w, s.sim.Registry().Snapshot())
}

func (s *Server) showAgent(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	id, err := agent.ParseID(r.PathValue("id"))
	if err != nil {
		httputil.BadRequest(w, "invalid agent id")
		return
	}
	v, ok := s.sim.Registry().ViewAgent(id)
	if !ok {
		httputil.NotFound(w, "agent not found")
		return
	}
	httputil.WriteJSONOK(w, v)
}

// setGoal assigns a new goal and discards the current path so the planner
// sees a fresh rising edge.
func (s *Server) setGoal(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		httputil.MethodNotAllowed(w)
		return
	}
	id, err := agent.ParseID(r.PathValue("id"))
	if err != nil {
		httputil.BadRequest(w, "invalid agent id")
		return
	}
	var req GoalRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	if !req.valid() {
		httputil.BadRequest(w, "goal coordinates must be finite")
		return
	}

	err = s.sim.Registry().Retarget(id, sim.Goal{Pose: sim.PoseXYYaw(req.X, req.Y, req.Yaw)})
	if errors.Is(err, agent.ErrUnknownAgent) {
		httputil.NotFound(w, "agent not found")
		return
	}
	if err != nil {
		httputil.WriteJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	logf("agent %s retargeted to (%.2f, %.2f)", id, req.X, req.Y)

	v, _ := s.sim.Registry().ViewAgent(id)
	httputil.WriteJSONOK(w, v)
}

func (s *Server) listDiagnostics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	rec := s.sim.Diagnostics()

	if a := r.URL.Query().Get("agent"); a != "" {
		id, err := agent.ParseID(a)
		if err != nil {
			httputil.BadRequest(w, "invalid agent id")
			return
		}
		httputil.WriteJSONOK(w, nonNil(rec.ForAgent(id)))
		return
	}

	limit := defaultDiagnosticsLimit
	if l := r.URL.Query().Get("limit"); l != "" {
		n, err := strconv.Atoi(l)
		if err != nil || n < 1 {
			httputil.BadRequest(w, "invalid 'limit' parameter")
			return
		}
		limit = n
	}
	httputil.WriteJSONOK(w, nonNil(rec.Recent(limit)))
}

func (s *Server) listLanes(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	httputil.WriteJSONOK(w, s.sim.Lanes())
}

func (s *Server) showVersion(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	httputil.WriteJSONOK(w, version.Current())
}

// nonNil makes empty results encode as [] rather than null.
func nonNil(d []monitoring.Diagnostic) []monitoring.Diagnostic {
	if d == nil {
		return []monitoring.Diagnostic{}
	}
	return d
}
