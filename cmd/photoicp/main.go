// Command photoicp registers a pair of recorded photogeometric point clouds
// and reports the recovered similarity transform.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"
)

// Version is set at build time via -ldflags.
var Version = "dev"

var (
	configFile  = flag.String("config", "", "Path to icp.yaml configuration file (defaults applied if omitted)")
	fixedFile   = flag.String("fixed", "", "Path to the recorded fixed cloud")
	movingFile  = flag.String("moving", "", "Path to the recorded moving cloud")
	outputDir   = flag.String("output-dir", ".", "Directory to write the aligned cloud, trajectory GeoJSON and convergence chart")
	mqttBroker  = flag.String("mqtt-broker", "", "MQTT broker URL for live telemetry (disabled if empty)")
	sessionName = flag.String("session", "session", "Identifier used for telemetry topics and output filenames")
	renderChart = flag.Bool("chart", true, "Render a convergence chart (SVG) alongside the registration result")

	registerMode  = flag.Bool("register", false, "Register the two clouds and print the resulting transform")
	stepTraceMode = flag.Bool("step-trace", false, "Register the two clouds, logging per-iteration convergence telemetry")
	renderSVGMode = flag.Bool("render-svg", false, "Register the clouds and write the aligned cloud, trajectory GeoJSON and SVG chart")
	httpMode      = flag.Bool("http", false, "Serve a status endpoint while registering the clouds in the background")
	httpPort      = flag.Int("http-port", 8080, "HTTP server port for -http mode")
)

func main() {
	flag.Parse()
	fmt.Printf("photoicp version: %s\n", Version)

	if *fixedFile == "" || *movingFile == "" {
		log.Fatal("both -fixed and -moving recorded cloud paths are required")
	}

	app := NewApp()
	opts := AppOptions{
		ConfigFile:  *configFile,
		FixedFile:   *fixedFile,
		MovingFile:  *movingFile,
		OutputDir:   *outputDir,
		MQTTBroker:  *mqttBroker,
		SessionName: *sessionName,
		RenderChart: *renderChart,
		HTTPPort:    *httpPort,
	}
	if err := app.ApplyOptions(opts); err != nil {
		log.Fatalf("applying options: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), deadlineFor())
	defer cancel()

	var err error
	switch {
	case *httpMode:
		err = app.RunHTTP(ctx)
	case *stepTraceMode:
		err = app.RunStepTrace(ctx)
	case *renderSVGMode:
		err = app.RunRenderSVG(ctx)
	case *registerMode:
		err = app.RunRegister(ctx)
	default:
		// Default mode matches -render-svg: register and emit every
		// diagnostic artifact, since that's the most useful batch behaviour.
		err = app.RunRenderSVG(ctx)
	}
	if err != nil {
		log.Fatalf("registration failed: %v", err)
	}
}

// deadlineFor returns the context budget for a run: 24 hours for -http
// (it blocks on a signal, not a timeout), 60s otherwise.
func deadlineFor() time.Duration {
	if *httpMode {
		return 24 * time.Hour
	}
	return 60 * time.Second
}
