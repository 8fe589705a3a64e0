// Package web serves the live MJPEG stream, telemetry websockets and the
// status and tuning API.
package web

import (
	"context"
	"net"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/websocket/v2"

	"github.com/teslashibe/go-linetrace/internal/log"
	"github.com/teslashibe/go-linetrace/pkg/actuator"
	"github.com/teslashibe/go-linetrace/pkg/hub"
	"github.com/teslashibe/go-linetrace/pkg/tracking"
)

// Tracker is the part of the control loop the server exposes
type Tracker interface {
	Last() tracking.Telemetry
	IsRunning() bool
	RunID() string
	GetTuningParams() tracking.TuningParams
	SetTuningParams(tracking.TuningParams) error
	Reset()
}

// LinkStatus reports the actuator connection
type LinkStatus interface {
	State() actuator.State
	Device() string
}

// Config holds the listen address
type Config struct {
	Host string `yaml:"host" json:"host"`
	Port int    `yaml:"port" json:"port"`
}

// DefaultConfig listens on all interfaces, port 5000.
func DefaultConfig() Config {
	return Config{Host: "0.0.0.0", Port: 5000}
}

// Server is the video and telemetry server
type Server struct {
	app  *fiber.App
	addr string

	tracker Tracker
	link    LinkStatus

	// Hubs for fan-out to stream and websocket consumers
	cameraHub    *hub.Hub
	telemetryHub *hub.Hub
}

// NewServer creates the server. tracker and link may be nil until SetTracker
// and SetLink are called.
func NewServer(cfg Config) *Server {
	s := &Server{
		addr:         net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		cameraHub:    hub.New("camera"),
		telemetryHub: hub.New("telemetry"),
	}

	app := fiber.New(fiber.Config{
		AppName:               "linetrace",
		DisableStartupMessage: true,
	})

	app.Use(cors.New())

	app.Get("/", s.handleIndex)
	app.Get("/video_feed", s.handleVideoFeed)

	// API routes
	api := app.Group("/api")
	api.Get("/status", s.handleStatus)
	api.Get("/tuning", s.handleGetTuning)
	api.Post("/tuning", s.handleSetTuning)
	api.Post("/reset", s.handleReset)

	// WebSocket upgrade middleware
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	app.Get("/ws/telemetry", websocket.New(s.handleHubWS(s.telemetryHub)))
	app.Get("/ws/camera", websocket.New(s.handleHubWS(s.cameraHub)))

	s.app = app
	return s
}

// SetTracker attaches the control loop
func (s *Server) SetTracker(t Tracker) {
	s.tracker = t
}

// SetLink attaches the actuator link for status reporting
func (s *Server) SetLink(l LinkStatus) {
	s.link = l
}

// CameraHub receives annotated JPEG frames
func (s *Server) CameraHub() *hub.Hub {
	return s.cameraHub
}

// TelemetryHub receives per-cycle telemetry
func (s *Server) TelemetryHub() *hub.Hub {
	return s.telemetryHub
}

// App returns the underlying fiber app (for tests)
func (s *Server) App() *fiber.App {
	return s.app
}

// RunHubs runs the fan-out hubs until ctx is cancelled
func (s *Server) RunHubs(ctx context.Context) {
	go s.cameraHub.Run(ctx)
	go s.telemetryHub.Run(ctx)
}

// Start runs the hubs and serves until ctx is cancelled
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve runs the hubs and serves on ln until ctx is cancelled
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.RunHubs(ctx)

	go func() {
		<-ctx.Done()
		if err := s.app.ShutdownWithTimeout(5 * time.Second); err != nil {
			log.Warn("web server shutdown", "error", err)
		}
	}()

	log.Info("web server listening", "addr", ln.Addr().String(), "stream", "/video_feed")
	return s.app.Listener(ln)
}
