package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/kwv/photoicp/diagnostics"
	"github.com/kwv/photoicp/icp"
	"github.com/kwv/photoicp/telemetry"
)

// AppOptions collects the flag-parsed settings ApplyOptions wires into an App.
type AppOptions struct {
	ConfigFile  string
	FixedFile   string
	MovingFile  string
	OutputDir   string
	MQTTBroker  string
	SessionName string
	RenderChart bool
	HTTPPort    int
}

// App holds the wiring for one photoicp run: configuration, the registration
// controller, the telemetry publisher, the input/output settings and the
// -http mode port.
type App struct {
	Config     icp.Config
	Controller *icp.Controller
	Publisher  *telemetry.Publisher

	FixedFile   string
	MovingFile  string
	OutputDir   string
	SessionName string
	RenderChart bool
	HTTPPort    int

	mu         sync.Mutex
	lastDelta  icp.Transform
	degenerate bool
}

// NewApp returns an App with no configuration loaded yet.
func NewApp() *App {
	return &App{Config: icp.DefaultConfig()}
}

// ApplyOptions loads the configuration file (if any) and the telemetry
// publisher, and copies the remaining flag values onto the App.
func (a *App) ApplyOptions(opts AppOptions) error {
	if opts.ConfigFile != "" {
		cfg, err := icp.LoadConfig(opts.ConfigFile)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		a.Config = cfg
	}

	ctrl, err := icp.New(a.Config)
	if err != nil {
		return fmt.Errorf("constructing controller: %w", err)
	}
	a.Controller = ctrl

	if opts.MQTTBroker != "" {
		client, err := telemetry.Connect(opts.MQTTBroker, "photoicp-"+opts.SessionName)
		if err != nil {
			log.Printf("telemetry disabled: %v", err)
		} else {
			a.Publisher = telemetry.NewPublisher(client, "")
		}
	}

	a.FixedFile = opts.FixedFile
	a.MovingFile = opts.MovingFile
	a.OutputDir = opts.OutputDir
	a.SessionName = opts.SessionName
	a.RenderChart = opts.RenderChart
	a.HTTPPort = opts.HTTPPort
	return nil
}

// loadClouds reads the fixed and moving clouds and initialises the
// controller; shared by every run mode.
func (a *App) loadClouds(ctx context.Context) error {
	f, err := icp.LoadCloud(a.FixedFile)
	if err != nil {
		return fmt.Errorf("loading fixed cloud: %w", err)
	}
	m, err := icp.LoadCloud(a.MovingFile)
	if err != nil {
		return fmt.Errorf("loading moving cloud: %w", err)
	}
	if err := a.Controller.Init(ctx, f, m); err != nil {
		return fmt.Errorf("init: %w", err)
	}
	return nil
}

// step runs one controller Step, recording the delta for the status endpoint
// and publishing telemetry if a publisher is wired.
func (a *App) step(ctx context.Context) (icp.Transform, bool, error) {
	delta, converged, degenerate, err := a.Controller.Step(ctx)
	if err != nil {
		return icp.Transform{}, false, fmt.Errorf("step %d: %w", a.Controller.Iterations(), err)
	}

	a.mu.Lock()
	a.lastDelta = delta
	a.degenerate = degenerate
	a.mu.Unlock()

	if a.Publisher != nil {
		if err := a.Publisher.PublishIteration(a.SessionName, a.Controller.Iterations(), a.Controller.State(), delta, degenerate); err != nil {
			log.Printf("telemetry publish: %v", err)
		}
	}
	return delta, converged, nil
}

// runToConvergence drives Step until the controller reports converged or
// exceeded, returning the recorded per-iteration samples.
func (a *App) runToConvergence(ctx context.Context, trace bool) ([]diagnostics.IterationSample, []float64, []float64, error) {
	var samples []diagnostics.IterationSample
	var angles, translations []float64

	for {
		delta, converged, err := a.step(ctx)
		if err != nil {
			return nil, nil, nil, err
		}

		samples = append(samples, diagnostics.IterationSample{Iteration: a.Controller.Iterations(), T: a.Controller.GlobalTransform().T})
		angles = append(angles, delta.Q.AngleDelta())
		translations = append(translations, delta.T.Norm())

		if trace {
			log.Printf("iteration %d: state=%s angle=%.6g translation=%.6g scale=%.6f",
				a.Controller.Iterations(), a.Controller.State(), delta.Q.AngleDelta(), delta.T.Norm(), delta.S)
		}

		if converged || a.Controller.State() == icp.StateExceeded {
			break
		}
	}
	return samples, angles, translations, nil
}

// finish publishes the terminal outcome and returns the status implied by
// the controller's final state.
func (a *App) finish() icp.Status {
	status := icp.StatusConverged
	if a.Controller.State() == icp.StateExceeded {
		status = icp.StatusExceeded
	}
	global := a.Controller.GlobalTransform()
	log.Printf("registration %s after %d iterations: q=%+v t=%+v s=%.6f",
		status, a.Controller.Iterations(), global.Q, global.T, global.S)
	if a.Publisher != nil {
		if err := a.Publisher.PublishFinal(a.SessionName, status, a.Controller.Iterations(), global); err != nil {
			log.Printf("telemetry final publish: %v", err)
		}
	}
	return status
}

// RunRegister loads both clouds, registers them to convergence and prints
// the resulting transform; no files are written.
func (a *App) RunRegister(ctx context.Context) error {
	if err := a.loadClouds(ctx); err != nil {
		return err
	}
	if _, _, _, err := a.runToConvergence(ctx, false); err != nil {
		return err
	}
	a.finish()
	return nil
}

// RunStepTrace is RunRegister with a log line printed after every Step,
// useful for watching convergence behaviour interactively.
func (a *App) RunStepTrace(ctx context.Context) error {
	if err := a.loadClouds(ctx); err != nil {
		return err
	}
	if _, _, _, err := a.runToConvergence(ctx, true); err != nil {
		return err
	}
	a.finish()
	return nil
}

// RunRenderSVG registers the clouds, then writes the aligned cloud, the
// trajectory GeoJSON and an SVG convergence chart to OutputDir.
func (a *App) RunRenderSVG(ctx context.Context) error {
	if err := a.loadClouds(ctx); err != nil {
		return err
	}
	samples, angles, translations, err := a.runToConvergence(ctx, false)
	if err != nil {
		return err
	}
	a.finish()

	if err := os.MkdirAll(a.OutputDir, 0755); err != nil {
		return fmt.Errorf("creating output dir: %w", err)
	}

	alignedPath := filepath.Join(a.OutputDir, a.SessionName+"-aligned.bin")
	if err := icp.SaveCloud(alignedPath, a.Controller.TransformedM()); err != nil {
		return fmt.Errorf("saving aligned cloud: %w", err)
	}

	fc := diagnostics.TrajectoryFeatureCollection(samples, 0.5)
	if footprint := diagnostics.FootprintPolygon(a.Controller.TransformedM()); footprint != nil {
		fc.Append(footprint)
	}
	geojsonPath := filepath.Join(a.OutputDir, a.SessionName+"-trajectory.geojson")
	if err := diagnostics.WriteFeatureCollection(geojsonPath, fc); err != nil {
		return fmt.Errorf("writing trajectory geojson: %w", err)
	}

	if a.RenderChart {
		chart := diagnostics.NewConvergenceChart(samples, angles, translations)
		if err := chart.ValidateSeriesLengths(); err != nil {
			return err
		}
		chartPath := filepath.Join(a.OutputDir, a.SessionName+"-convergence.svg")
		chartFile, err := os.Create(chartPath)
		if err != nil {
			return fmt.Errorf("creating chart file: %w", err)
		}
		defer chartFile.Close()
		if err := chart.RenderSVG(chartFile); err != nil {
			return fmt.Errorf("rendering chart: %w", err)
		}
	}
	return nil
}

// RunHTTP registers the clouds in the background while serving a status
// endpoint reporting the controller's progress, until interrupted. Starts
// its registration goroutine and HTTP server, then blocks on a signal
// channel for graceful shutdown.
func (a *App) RunHTTP(ctx context.Context) error {
	if err := a.loadClouds(ctx); err != nil {
		return err
	}

	srv := &http.Server{
		Addr:    fmt.Sprintf("0.0.0.0:%d", a.HTTPPort),
		Handler: newHTTPServer(a),
	}

	go func() {
		log.Printf("[HTTP] starting server on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("[HTTP] server error: %v", err)
		}
	}()

	runCtx, cancelRun := context.WithCancel(ctx)
	runErr := make(chan error, 1)
	go func() {
		_, _, _, err := a.runToConvergence(runCtx, false)
		if err == nil {
			a.finish()
		}
		runErr <- err
	}()

	fmt.Printf("\nHTTP endpoints (port %d):\n", a.HTTPPort)
	fmt.Println("  GET /health - registration status (state, iteration, last transform)")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-runErr:
		if err != nil {
			log.Printf("registration failed: %v", err)
		}
		<-sigChan
		fmt.Println("\nshutting down service...")
	case <-sigChan:
		fmt.Println("\nshutting down service...")
		cancelRun()
		<-runErr
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
