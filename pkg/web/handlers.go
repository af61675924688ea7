package web

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/safepath/buddy/pkg/geo"
	"github.com/safepath/buddy/pkg/hub"
)

// StartNavigationRequest is the body for POST /api/navigation/start.
type StartNavigationRequest struct {
	Mode string `json:"mode"` // simulated or live, defaults to simulated
}

// PlanRouteRequest is the body for POST /api/route.
type PlanRouteRequest struct {
	Start geo.Point `json:"start"`
	End   geo.Point `json:"end"`
	Mode  string    `json:"mode"` // walking, driving or biking
}

// handleState returns the combined navigation and call snapshot.
func (s *Server) handleState(c *fiber.Ctx) error {
	if s.controls.Snapshot == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "state not available",
		})
	}
	return c.JSON(s.controls.Snapshot())
}

// handleInstructions returns the turn list for the loaded route.
func (s *Server) handleInstructions(c *fiber.Ctx) error {
	if s.controls.Instructions == nil {
		return c.JSON([]InstructionView{})
	}
	list := s.controls.Instructions()
	if list == nil {
		list = []InstructionView{}
	}
	return c.JSON(list)
}

// handleContext returns the navigation context sent along with chat requests.
func (s *Server) handleContext(c *fiber.Ctx) error {
	if s.controls.Context == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "context not available",
		})
	}
	return c.JSON(s.controls.Context())
}

// handlePlanRoute fetches a route between two points and loads it into the
// navigator.
func (s *Server) handlePlanRoute(c *fiber.Ctx) error {
	if s.controls.PlanRoute == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "routing not configured",
		})
	}

	var req PlanRouteRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "malformed route request",
		})
	}
	if req.Start == req.End {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "start and end must differ",
		})
	}
	if req.Mode == "" {
		req.Mode = "walking"
	}

	if err := s.controls.PlanRoute(req.Start, req.End, req.Mode); err != nil {
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	return c.JSON(fiber.Map{"status": "loaded", "mode": req.Mode})
}

// handleStartNavigation begins traversing the loaded route.
func (s *Server) handleStartNavigation(c *fiber.Ctx) error {
	if s.controls.StartNavigation == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "navigation not configured",
		})
	}

	var req StartNavigationRequest
	if err := c.BodyParser(&req); err != nil {
		req.Mode = ""
	}
	if req.Mode == "" {
		req.Mode = "simulated"
	}

	if err := s.controls.StartNavigation(req.Mode); err != nil {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	return c.JSON(fiber.Map{"status": "navigating", "mode": req.Mode})
}

// handleStopNavigation halts the active traversal.
func (s *Server) handleStopNavigation(c *fiber.Ctx) error {
	if s.controls.StopNavigation != nil {
		s.controls.StopNavigation()
	}
	return c.JSON(fiber.Map{"status": "stopped"})
}

// handleStartCall starts a voice call session.
func (s *Server) handleStartCall(c *fiber.Ctx) error {
	if s.controls.StartCall == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "call not configured",
		})
	}
	if err := s.controls.StartCall(); err != nil {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	return c.JSON(fiber.Map{"status": "active"})
}

// handleEndCall ends the active call session.
func (s *Server) handleEndCall(c *fiber.Ctx) error {
	if s.controls.EndCall == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "call not configured",
		})
	}
	if err := s.controls.EndCall(); err != nil {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	return c.JSON(fiber.Map{"status": "ended"})
}

// handleInterrupt cuts off any speech currently playing.
func (s *Server) handleInterrupt(c *fiber.Ctx) error {
	if s.controls.Interrupt != nil {
		s.controls.Interrupt()
	}
	return c.JSON(fiber.Map{"status": "interrupted"})
}

// handleStateWS streams state snapshots to a websocket client.
func (s *Server) handleStateWS(c *websocket.Conn) {
	// Send the current snapshot so new clients render immediately
	if s.controls.Snapshot != nil {
		c.WriteJSON(s.controls.Snapshot())
	}

	client := hub.NewClient(s.stateHub, c)
	client.Run()
}

// handlePositionWS streams raw position samples to a websocket client.
func (s *Server) handlePositionWS(c *websocket.Conn) {
	client := hub.NewClient(s.positionHub, c)
	client.Run()
}
