package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/banshee-data/agentsim/internal/agent"
	"github.com/banshee-data/agentsim/internal/api"
	"github.com/banshee-data/agentsim/internal/config"
	"github.com/banshee-data/agentsim/internal/fsutil"
	"github.com/banshee-data/agentsim/internal/pipeline"
	"github.com/banshee-data/agentsim/internal/report"
	"github.com/banshee-data/agentsim/internal/scenario"
	"github.com/banshee-data/agentsim/internal/security"
	"github.com/banshee-data/agentsim/internal/timeutil"
	"github.com/banshee-data/agentsim/internal/version"
)

var (
	configPath   = flag.String("config", "", "Simulation config file (.json, .yaml); defaults apply when empty")
	scenarioPath = flag.String("scenario", "scenarios/corridor.yaml", "Scenario file (.yaml)")
	listen       = flag.String("listen", ":8080", "Status API listen address; empty disables the API")
	duration     = flag.Duration("duration", 0, "Simulated time to run; 0 runs until interrupted")
	fast         = flag.Bool("fast", false, "Advance as fast as possible instead of in real time (requires -duration)")
	logOps       = flag.String("log-ops", "stderr", "Destination of actionable pipeline logs: stderr, stdout, a file path, or empty to disable")
	logDiag      = flag.String("log-diag", "", "Destination of day-to-day pipeline diagnostics")
	logTrace     = flag.String("log-trace", "", "Destination of per-tick pipeline telemetry")
	logAll       = flag.String("log", "", "Send all three pipeline log streams to one destination; overrides -log-ops, -log-diag and -log-trace")
	plotPath     = flag.String("plot", "", "Write a trajectory plot (.png, .svg, .pdf) when the run ends")
	showVersion  = flag.Bool("version", false, "Print version and exit")
)

type options struct {
	configPath   string
	scenarioPath string
	listen       string
	duration     time.Duration
	fast         bool
	plotPath     string
}

// sampleEvery is the simulated-time spacing of trajectory samples.
const sampleEvery = 100 * time.Millisecond

// openLogWriter resolves a log destination flag. The returned close
// function is always safe to call.
func openLogWriter(dest string) (io.Writer, func(), error) {
	switch dest {
	case "":
		return nil, func() {}, nil
	case "stderr":
		return os.Stderr, func() {}, nil
	case "stdout":
		return os.Stdout, func() {}, nil
	}
	f, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, func() {}, fmt.Errorf("failed to open log file %s: %w", dest, err)
	}
	return f, func() { f.Close() }, nil
}

// configureLogs points the pipeline log streams at their destinations. A
// non-empty single destination receives all three streams.
func configureLogs(single, ops, diag, trace string) (func(), error) {
	if single != "" {
		w, closeFn, err := openLogWriter(single)
		if err != nil {
			return func() {}, err
		}
		pipeline.SetSingleLogger(w)
		return closeFn, nil
	}

	var closers []func()
	closeAll := func() {
		for _, c := range closers {
			c()
		}
	}
	var writers [3]io.Writer
	for i, dest := range []string{ops, diag, trace} {
		w, closeFn, err := openLogWriter(dest)
		if err != nil {
			closeAll()
			return func() {}, err
		}
		writers[i] = w
		closers = append(closers, closeFn)
	}
	pipeline.SetLogWriters(writers[0], writers[1], writers[2])
	return closeAll, nil
}

func (o options) validate() error {
	if o.scenarioPath == "" {
		return errors.New("a scenario is required")
	}
	if o.fast && o.duration <= 0 {
		return errors.New("-fast requires a positive -duration")
	}
	if o.duration < 0 {
		return errors.New("-duration must not be negative")
	}
	if o.plotPath != "" {
		switch strings.ToLower(filepath.Ext(o.plotPath)) {
		case ".png", ".svg", ".pdf":
		default:
			return fmt.Errorf("unsupported plot format %q", filepath.Ext(o.plotPath))
		}
		if err := security.ValidateOutputPath(o.plotPath); err != nil {
			return err
		}
	}
	return nil
}

// load builds the simulation described by the options.
func load(o options) (*pipeline.Simulation, error) {
	fsys := fsutil.OSFileSystem{}
	cfg := config.DefaultSimConfig()
	if o.configPath != "" {
		var err error
		if cfg, err = config.LoadSimConfig(fsys, o.configPath); err != nil {
			return nil, err
		}
	}
	sc, err := scenario.Load(fsys, o.scenarioPath)
	if err != nil {
		return nil, err
	}
	inst, err := sc.Build()
	if err != nil {
		return nil, err
	}
	return pipeline.NewSimulation(inst.Registry, cfg, inst.Integrator)
}

// run drives the simulation until ctx is cancelled or the configured
// duration elapses, serving the status API alongside when enabled.
func run(ctx context.Context, o options) error {
	if err := o.validate(); err != nil {
		return err
	}
	s, err := load(o)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var traj *report.Trajectories
	if o.plotPath != "" {
		traj = report.NewTrajectories(report.DefaultMaxSamples)
		traj.Record(s.Elapsed(), s.Registry().Snapshot())
	}

	var wg sync.WaitGroup
	if o.listen != "" {
		apiServer := api.NewServer(s)
		mux := apiServer.ServeMux()
		apiServer.AttachDebugRoutes(mux)
		server := &http.Server{
			Addr:    o.listen,
			Handler: api.LoggingMiddleware(mux),
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			go func() {
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Printf("failed to start server: %v", err)
					cancel()
				}
			}()

			<-ctx.Done()
			log.Println("shutting down HTTP server...")
			shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), time.Second)
			defer cancelShutdown()
			if err := server.Shutdown(shutdownCtx); err != nil {
				log.Printf("HTTP server shutdown error: %v", err)
				if err := server.Close(); err != nil {
					log.Printf("HTTP server force close error: %v", err)
				}
			}
			log.Printf("HTTP server routine stopped")
		}()
	}

	if o.fast {
		err = runFast(ctx, s, o.duration, traj)
	} else {
		runCtx := ctx
		if o.duration > 0 {
			var cancelRun context.CancelFunc
			runCtx, cancelRun = context.WithTimeout(ctx, o.duration)
			defer cancelRun()
		}
		if traj != nil {
			wg.Add(1)
			go func() {
				defer wg.Done()
				sampleWallClock(runCtx, s, traj)
			}()
		}
		err = s.Run(runCtx, timeutil.RealClock{})
	}
	cancel()
	wg.Wait()

	summarise(s)
	if traj != nil {
		traj.Record(s.Elapsed(), s.Registry().Snapshot())
		if perr := traj.Save(o.plotPath, filepath.Base(o.scenarioPath)); perr != nil {
			return errors.Join(err, perr)
		}
		log.Printf("trajectory plot written to %s", o.plotPath)
	}
	return err
}

// sampleWallClock records trajectories while a real-time run is in progress.
func sampleWallClock(ctx context.Context, s *pipeline.Simulation, traj *report.Trajectories) {
	ticker := time.NewTicker(sampleEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			traj.Record(s.Elapsed(), s.Registry().Snapshot())
		}
	}
}

// runFast advances in frame-sized steps without waiting for the wall clock.
// A non-nil traj is sampled every sampleEvery of simulated time.
func runFast(ctx context.Context, s *pipeline.Simulation, d time.Duration, traj *report.Trajectories) error {
	defer s.Close()
	const frame = 10 * time.Millisecond
	next := sampleEvery
	for s.Elapsed() < d {
		select {
		case <-ctx.Done():
			return nil
		default:
		}
		step := frame
		if rest := d - s.Elapsed(); rest < step {
			step = rest
		}
		s.Advance(step)
		if traj != nil && s.Elapsed() >= next {
			traj.Record(s.Elapsed(), s.Registry().Snapshot())
			next += sampleEvery
		}
	}
	return nil
}

func summarise(s *pipeline.Simulation) {
	log.Printf("simulated %s, %d diagnostics", s.Elapsed(), s.Diagnostics().Total())
	for _, l := range s.Lanes() {
		log.Printf("  lane %-10s %6.1f Hz %8d runs", l.Name, l.Hz, l.Runs)
	}
	for _, v := range s.Registry().Snapshot() {
		log.Printf("  agent %-10s at (%.2f, %.2f) yaw %.2f%s", v.Name, v.Position[0], v.Position[1], v.Yaw, goalSuffix(v))
	}
}

func goalSuffix(v agent.View) string {
	if v.Goal == nil {
		return ""
	}
	return fmt.Sprintf(" goal (%.2f, %.2f)", v.Goal[0], v.Goal[1])
}

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Println(version.Current())
		return
	}

	closeLogs, err := configureLogs(*logAll, *logOps, *logDiag, *logTrace)
	if err != nil {
		log.Fatalf("%v", err)
	}
	defer closeLogs()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	opts := options{
		configPath:   *configPath,
		scenarioPath: *scenarioPath,
		listen:       *listen,
		duration:     *duration,
		fast:         *fast,
		plotPath:     *plotPath,
	}
	if err := run(ctx, opts); err != nil {
		log.Printf("simulation failed: %v", err)
		stop()
		os.Exit(1)
	}
	log.Printf("Graceful shutdown complete")
}
