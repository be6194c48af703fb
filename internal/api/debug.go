package api

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"tailscale.com/tsweb"

	"github.com/banshee-data/agentsim/internal/agent"
	"github.com/banshee-data/agentsim/internal/httputil"
)

// AttachDebugRoutes mounts the debug index under /debug/ with the world
// chart and the Go runtime handlers tsweb provides.
func (s *Server) AttachDebugRoutes(mux *http.ServeMux) {
	debug := tsweb.Debugger(mux)
	debug.HandleFunc("world", "scatter chart of the grid, obstacles, agents and paths", s.handleWorldChart)
	debug.HandleFunc("lanes", "scheduler lane statistics", s.listLanes)
}

// worldSeries collects chart points under the registry read lock.
type worldSeries struct {
	occupied  []opts.ScatterData
	obstacles []opts.ScatterData
	agents    []opts.ScatterData
	paths     []opts.ScatterData
	goals     []opts.ScatterData
	width     float64
	height    float64
	originX   float64
	originY   float64
}

func point(name string, x, y float64) opts.ScatterData {
	return opts.ScatterData{Name: name, Value: []interface{}{x, y}}
}

func collectWorld(reg *agent.Registry) worldSeries {
	var ws worldSeries
	reg.Read(func(w *agent.World) {
		cfg, grid := w.Grid()
		if !grid.Empty() {
			ws.originX, ws.originY = cfg.OriginX, cfg.OriginY
			ws.width = float64(grid.Width) * cfg.Resolution
			ws.height = float64(grid.Height) * cfg.Resolution
			for y := 0; y < grid.Height; y++ {
				for x := 0; x < grid.Width; x++ {
					if grid.Occupied(x, y) {
						c := cfg.CellCenter(x, y)
						ws.occupied = append(ws.occupied, point(fmt.Sprintf("cell %d,%d", x, y), c.X, c.Y))
					}
				}
			}
		}
		for _, o := range w.Obstacles().All() {
			ws.obstacles = append(ws.obstacles, point(fmt.Sprintf("obstacle %d", o.ID), o.Pose.Position.X, o.Pose.Position.Y))
		}
	})
	for _, v := range reg.Snapshot() {
		ws.agents = append(ws.agents, point(v.Name, v.Position[0], v.Position[1]))
		for i, wp := range v.Path {
			ws.paths = append(ws.paths, point(fmt.Sprintf("%s #%d", v.Name, i), wp[0], wp[1]))
		}
		if v.Goal != nil {
			ws.goals = append(ws.goals, point(v.Name+" goal", v.Goal[0], v.Goal[1]))
		}
	}
	return ws
}

// handleWorldChart renders an HTML scatter chart of the current world.
// This is a debugging-only endpoint.
func (s *Server) handleWorldChart(w http.ResponseWriter, r *http.Request) {
	ws := collectWorld(s.sim.Registry())

	scatter := charts.NewScatter()
	global := []charts.GlobalOpts{
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "agentsim world", Width: "900px", Height: "900px"}),
		charts.WithTitleOpts(opts.Title{Title: "World", Subtitle: fmt.Sprintf("t=%s agents=%d", s.sim.Elapsed(), len(ws.agents))}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
	}
	if ws.width > 0 {
		global = append(global,
			charts.WithXAxisOpts(opts.XAxis{Min: ws.originX, Max: ws.originX + ws.width, Name: "X (m)", NameLocation: "middle", NameGap: 25}),
			charts.WithYAxisOpts(opts.YAxis{Min: ws.originY, Max: ws.originY + ws.height, Name: "Y (m)", NameLocation: "middle", NameGap: 30}),
		)
	}
	scatter.SetGlobalOptions(global...)

	scatter.AddSeries("occupied", ws.occupied, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 12}))
	scatter.AddSeries("obstacles", ws.obstacles, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 10}))
	scatter.AddSeries("paths", ws.paths, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 4}))
	scatter.AddSeries("goals", ws.goals, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 10}))
	scatter.AddSeries("agents", ws.agents, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 14}))

	var buf bytes.Buffer
	if err := scatter.Render(&buf); err != nil {
		httputil.WriteJSONError(w, http.StatusInternalServerError, fmt.Sprintf("failed to render chart: %v", err))
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}
