package web

import (
	"bufio"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/teslashibe/go-linetrace/internal/log"
	"github.com/teslashibe/go-linetrace/pkg/hub"
	"github.com/teslashibe/go-linetrace/pkg/tracking"
)

// streamBuffer is how many frames a stream viewer may lag before it is dropped
const streamBuffer = 4

// Status is the /api/status payload
type Status struct {
	Running   bool               `json:"running"`
	RunID     string             `json:"run_id"`
	Link      string             `json:"link"`
	Device    string             `json:"device,omitempty"`
	Consumers map[string]int     `json:"consumers"`
	Telemetry tracking.Telemetry `json:"telemetry"`
}

func (s *Server) handleIndex(c *fiber.Ctx) error {
	return c.SendString("line tracer running")
}

// handleVideoFeed streams annotated frames as multipart MJPEG
func (s *Server) handleVideoFeed(c *fiber.Ctx) error {
	sub := s.cameraHub.Subscribe(streamBuffer)
	if sub == nil {
		return fiber.ErrServiceUnavailable
	}

	c.Set(fiber.HeaderContentType, MJPEGContentType)
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")

	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		defer s.cameraHub.Unsubscribe(sub)
		for msg := range sub.C {
			if err := WriteMJPEGPart(w, msg.Data); err != nil {
				return
			}
			// Flush fails once the viewer goes away
			if err := w.Flush(); err != nil {
				log.Debug("stream viewer left", "id", sub.ID)
				return
			}
		}
	})
	return nil
}

// handleStatus returns the latest telemetry and link state
func (s *Server) handleStatus(c *fiber.Ctx) error {
	st := Status{
		Link: tracking.LinkNone,
		Consumers: map[string]int{
			"camera":    s.cameraHub.ClientCount(),
			"telemetry": s.telemetryHub.ClientCount(),
		},
	}
	if s.tracker != nil {
		st.Running = s.tracker.IsRunning()
		st.RunID = s.tracker.RunID()
		st.Telemetry = s.tracker.Last()
	}
	if s.link != nil {
		st.Link = s.link.State().String()
		st.Device = s.link.Device()
	}
	return c.JSON(st)
}

// handleGetTuning returns the runtime tuning parameters
func (s *Server) handleGetTuning(c *fiber.Ctx) error {
	if s.tracker == nil {
		return fiber.ErrServiceUnavailable
	}
	return c.JSON(s.tracker.GetTuningParams())
}

// handleSetTuning applies runtime tuning parameters
func (s *Server) handleSetTuning(c *fiber.Ctx) error {
	if s.tracker == nil {
		return fiber.ErrServiceUnavailable
	}

	var params tracking.TuningParams
	if err := c.BodyParser(&params); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid body: " + err.Error()})
	}
	if err := s.tracker.SetTuningParams(params); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	log.Info("tuning updated", "params", params)
	return c.JSON(s.tracker.GetTuningParams())
}

// handleReset recenters the tracker
func (s *Server) handleReset(c *fiber.Ctx) error {
	if s.tracker == nil {
		return fiber.ErrServiceUnavailable
	}
	s.tracker.Reset()
	return c.JSON(fiber.Map{"status": "reset"})
}

// handleHubWS subscribes a websocket connection to h
func (s *Server) handleHubWS(h *hub.Hub) func(*websocket.Conn) {
	return func(conn *websocket.Conn) {
		client := hub.NewClient(h, conn)
		if client == nil {
			conn.Close()
			return
		}
		client.Run()
	}
}
