// Package report records agent trajectories during a run and renders them
// as a plot image (PNG, SVG or PDF) for offline inspection.
package report

import (
	"fmt"
	"image/color"
	"sync"
	"time"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/banshee-data/agentsim/internal/agent"
)

// DefaultMaxSamples bounds the samples kept per agent.
const DefaultMaxSamples = 4096

// Sample is one observation of an agent.
type Sample struct {
	T           time.Duration
	X, Y        float64
	EX, EY      float64 // estimated position, valid when HasEstimate
	HasEstimate bool
}

type track struct {
	name    string
	samples []Sample
	goal    *[2]float64
}

// Trajectories accumulates per-agent samples. When an agent reaches the
// sample limit every other sample is dropped and the sampling stride
// doubles, so long runs keep an evenly thinned history.
type Trajectories struct {
	mu     sync.Mutex
	max    int
	stride int
	calls  int
	order  []agent.ID
	tracks map[agent.ID]*track
}

// NewTrajectories returns a recorder keeping at most maxSamples per agent.
func NewTrajectories(maxSamples int) *Trajectories {
	if maxSamples < 2 {
		maxSamples = DefaultMaxSamples
	}
	return &Trajectories{max: maxSamples, stride: 1, tracks: make(map[agent.ID]*track)}
}

// Record adds one sample per agent view taken at simulated time t.
func (tr *Trajectories) Record(t time.Duration, views []agent.View) {
	tr.mu.Lock()
	defer tr.mu.Unlock()

	tr.calls++
	if (tr.calls-1)%tr.stride != 0 {
		return
	}
	thin := false
	for _, v := range views {
		tk, ok := tr.tracks[v.ID]
		if !ok {
			tk = &track{name: v.Name}
			tr.tracks[v.ID] = tk
			tr.order = append(tr.order, v.ID)
		}
		s := Sample{T: t, X: v.Position[0], Y: v.Position[1]}
		if v.Estimate != nil && len(v.Estimate.State) >= 2 {
			s.EX, s.EY, s.HasEstimate = v.Estimate.State[0], v.Estimate.State[1], true
		}
		tk.samples = append(tk.samples, s)
		if v.Goal != nil {
			tk.goal = &[2]float64{v.Goal[0], v.Goal[1]}
		}
		if len(tk.samples) >= tr.max {
			thin = true
		}
	}
	if thin {
		for _, tk := range tr.tracks {
			kept := tk.samples[:0]
			for i := 0; i < len(tk.samples); i += 2 {
				kept = append(kept, tk.samples[i])
			}
			tk.samples = kept
		}
		tr.stride *= 2
	}
}

// Samples returns a copy of the samples recorded for id.
func (tr *Trajectories) Samples(id agent.ID) []Sample {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	tk, ok := tr.tracks[id]
	if !ok {
		return nil
	}
	return append([]Sample(nil), tk.samples...)
}

// Agents returns the recorded agents in first-seen order.
func (tr *Trajectories) Agents() []agent.ID {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	return append([]agent.ID(nil), tr.order...)
}

var palette = []color.Color{
	color.RGBA{R: 0x1f, G: 0x77, B: 0xb4, A: 0xff},
	color.RGBA{R: 0xff, G: 0x7f, B: 0x0e, A: 0xff},
	color.RGBA{R: 0x2c, G: 0xa0, B: 0x2c, A: 0xff},
	color.RGBA{R: 0xd6, G: 0x27, B: 0x28, A: 0xff},
	color.RGBA{R: 0x94, G: 0x67, B: 0xbd, A: 0xff},
	color.RGBA{R: 0x8c, G: 0x56, B: 0x4b, A: 0xff},
}

// Plot builds an XY plot with one solid line per agent for the true
// trajectory, a dashed line for the estimate, and a cross at the goal.
func (tr *Trajectories) Plot(title string) (*plot.Plot, error) {
	tr.mu.Lock()
	defer tr.mu.Unlock()

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "X (m)"
	p.Y.Label.Text = "Y (m)"
	p.Legend.Top = true
	p.Legend.Left = false

	for i, id := range tr.order {
		tk := tr.tracks[id]
		if len(tk.samples) == 0 {
			continue
		}
		c := palette[i%len(palette)]

		truth := make(plotter.XYs, 0, len(tk.samples))
		est := make(plotter.XYs, 0, len(tk.samples))
		for _, s := range tk.samples {
			truth = append(truth, plotter.XY{X: s.X, Y: s.Y})
			if s.HasEstimate {
				est = append(est, plotter.XY{X: s.EX, Y: s.EY})
			}
		}

		line, err := plotter.NewLine(truth)
		if err != nil {
			return nil, fmt.Errorf("agent %s: %w", tk.name, err)
		}
		line.Color = c
		line.Width = vg.Points(1.5)
		p.Add(line)
		p.Legend.Add(tk.name, line)

		if len(est) > 0 {
			estLine, err := plotter.NewLine(est)
			if err != nil {
				return nil, fmt.Errorf("agent %s estimate: %w", tk.name, err)
			}
			estLine.Color = c
			estLine.Width = vg.Points(0.75)
			estLine.Dashes = []vg.Length{vg.Points(3), vg.Points(2)}
			p.Add(estLine)
		}

		if tk.goal != nil {
			goal, err := plotter.NewScatter(plotter.XYs{{X: tk.goal[0], Y: tk.goal[1]}})
			if err != nil {
				return nil, fmt.Errorf("agent %s goal: %w", tk.name, err)
			}
			goal.GlyphStyle.Color = c
			goal.GlyphStyle.Shape = draw.CrossGlyph{}
			goal.GlyphStyle.Radius = vg.Points(4)
			p.Add(goal)
		}
	}
	return p, nil
}

// Save renders the plot to path. The format follows the file extension.
func (tr *Trajectories) Save(path, title string) error {
	p, err := tr.Plot(title)
	if err != nil {
		return fmt.Errorf("failed to build trajectory plot: %w", err)
	}
	if err := p.Save(8*vg.Inch, 8*vg.Inch, path); err != nil {
		return fmt.Errorf("failed to save trajectory plot: %w", err)
	}
	return nil
}
