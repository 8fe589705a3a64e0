// linetrace drives a line-following vehicle: it reads the camera, steers
// toward the line over a serial link and serves the annotated video.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/teslashibe/go-linetrace/internal/config"
	"github.com/teslashibe/go-linetrace/internal/log"
	"github.com/teslashibe/go-linetrace/pkg/actuator"
	"github.com/teslashibe/go-linetrace/pkg/camera"
	"github.com/teslashibe/go-linetrace/pkg/debug"
	"github.com/teslashibe/go-linetrace/pkg/tracking"
	"github.com/teslashibe/go-linetrace/pkg/web"
)

type flags struct {
	configPath string
	profile    string
	port       int
	cameraDev  string
	serial     string
	noSerial   bool
	debug      bool
	debugCycle bool
}

func main() {
	f := parseFlags()

	cfg, err := loadConfig(f)
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ Configuration error: %v\n", err)
		os.Exit(2)
	}

	level := cfg.LogLevel
	if f.debug {
		level = "debug"
	}
	log.Init(level)
	debug.Enabled, debug.Cycle = f.debug, f.debugCycle

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfg, f.noSerial); err != nil {
		log.Error("❌ Runtime error", "error", err)
		os.Exit(1)
	}
	log.Info("👋 Stopped")
}

// parseFlags parses command line flags.
func parseFlags() flags {
	var f flags
	flag.StringVar(&f.configPath, "config", "", "YAML config file")
	flag.StringVar(&f.profile, "profile", "", "Tracking profile: weighted or pid (overrides LINETRACE_PROFILE)")
	flag.IntVar(&f.port, "port", 0, "HTTP port (overrides PORT)")
	flag.StringVar(&f.cameraDev, "camera", "", "Camera index, device path or video file")
	flag.StringVar(&f.serial, "serial", "", "Glob for actuator serial devices")
	flag.BoolVar(&f.noSerial, "no-serial", false, "Run without an actuator (stream only)")
	flag.BoolVar(&f.debug, "debug", false, "Enable verbose debug logging")
	flag.BoolVar(&f.debugCycle, "debug-cycle", false, "Log every frame cycle")
	flag.Parse()
	return f
}

func loadConfig(f flags) (config.Config, error) {
	cfg, err := config.LoadProfile(f.configPath, f.profile)
	if err != nil {
		return cfg, err
	}
	if f.port != 0 {
		cfg.Server.Port = f.port
	}
	if f.cameraDev != "" {
		cfg.Camera.Device = f.cameraDev
	}
	if f.serial != "" {
		cfg.Actuator.Pattern = f.serial
	}
	return cfg, cfg.Validate()
}

func run(ctx context.Context, cfg config.Config, noSerial bool) error {
	log.Info("🚗 Line tracer starting",
		"profile", cfg.Profile,
		"law", cfg.Tracking.Law,
		"camera", cfg.Camera.Device,
		"addr", fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
	)

	// The actuator comes first; without it there is nothing to drive.
	var link tracking.Actuator
	var status web.LinkStatus
	if !noSerial {
		l, err := actuator.New(cfg.Actuator)
		if err != nil {
			return err
		}
		defer l.Close()
		if err := l.Connect(ctx); err != nil {
			return err
		}
		link, status = l, l
	} else {
		log.Warn("⚠️  Actuator disabled, streaming only")
	}

	capture, err := camera.Open(cfg.Camera)
	if err != nil {
		return err
	}
	defer capture.Close()

	tracker, err := tracking.New(cfg.Tracking, capture, link)
	if err != nil {
		return err
	}
	defer tracker.Close()

	server := web.NewServer(cfg.Server)
	server.SetTracker(tracker)
	if status != nil {
		server.SetLink(status)
	}
	tracker.SetFrameSink(server.CameraHub())
	tracker.SetTelemetrySink(server.TelemetryHub())

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	serverErr := make(chan error, 1)
	go func() {
		err := server.Start(ctx)
		if err != nil {
			// A server that cannot listen stops the vehicle too
			cancel()
		}
		serverErr <- err
	}()

	runErr := tracker.Run(ctx)
	cancel()

	if err := <-serverErr; err != nil && runErr == nil {
		runErr = fmt.Errorf("web server: %w", err)
	}
	return runErr
}
