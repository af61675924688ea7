// Package web exposes the navigation and call state over HTTP and
// websockets for a companion app or dashboard.
package web

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/websocket/v2"

	"github.com/safepath/buddy/internal/log"
	"github.com/safepath/buddy/pkg/geo"
	"github.com/safepath/buddy/pkg/hub"
	"github.com/safepath/buddy/pkg/nav"
	"github.com/safepath/buddy/pkg/position"
	"github.com/safepath/buddy/pkg/tracker"
)

// Snapshot is the combined navigation and call state pushed to clients.
type Snapshot struct {
	Nav        tracker.NavigationState `json:"nav"`
	CallState  string                  `json:"call_state"`
	CallActive bool                    `json:"call_active"`
	SessionID  string                  `json:"session_id,omitempty"`
}

// Controls wires the server to the rest of the application. All callbacks
// must be safe for concurrent use.
type Controls struct {
	Snapshot        func() Snapshot
	Instructions    func() []InstructionView
	Context         func() nav.Context
	PlanRoute       func(start, end geo.Point, mode string) error
	StartNavigation func(mode string) error
	StopNavigation  func()
	StartCall       func() error
	EndCall         func() error
	Interrupt       func()
}

// InstructionView is a turn instruction rendered for the API.
type InstructionView struct {
	Index    int     `json:"index"`
	Text     string  `json:"text"`
	Maneuver string  `json:"maneuver"`
	Distance float64 `json:"distance"` // meters to the maneuver point
	Lat      float64 `json:"lat"`
	Lng      float64 `json:"lng"`
}

// Server is the HTTP and websocket front for the navigation core.
type Server struct {
	app      *fiber.App
	port     string
	controls Controls

	stateHub    *hub.Hub
	positionHub *hub.Hub
}

// NewServer creates a server listening on the given port.
func NewServer(port string, controls Controls) *Server {
	s := &Server{
		port:        port,
		controls:    controls,
		stateHub:    hub.New("state"),
		positionHub: hub.New("position"),
	}

	app := fiber.New(fiber.Config{
		AppName:               "SafePath Buddy",
		DisableStartupMessage: true,
	})

	// CORS for local development
	app.Use(cors.New())

	// API routes
	api := app.Group("/api")
	api.Get("/state", s.handleState)
	api.Get("/instructions", s.handleInstructions)
	api.Get("/context", s.handleContext)
	api.Post("/route", s.handlePlanRoute)
	api.Post("/navigation/start", s.handleStartNavigation)
	api.Post("/navigation/stop", s.handleStopNavigation)
	api.Post("/call/start", s.handleStartCall)
	api.Post("/call/end", s.handleEndCall)
	api.Post("/call/interrupt", s.handleInterrupt)

	// WebSocket upgrade middleware
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	// WebSocket routes
	app.Get("/ws/state", websocket.New(s.handleStateWS))
	app.Get("/ws/position", websocket.New(s.handlePositionWS))

	s.app = app
	return s
}

// Start runs the hubs and blocks serving HTTP.
func (s *Server) Start() error {
	log.Info("web server listening", "addr", "http://localhost:"+s.port)

	go s.stateHub.Run()
	go s.positionHub.Run()

	return s.app.Listen(":" + s.port)
}

// StartAsync starts the server in a goroutine.
func (s *Server) StartAsync() {
	go func() {
		if err := s.Start(); err != nil {
			log.Error("web server stopped", "error", err)
		}
	}()
}

// PublishState broadcasts a state snapshot to /ws/state clients.
func (s *Server) PublishState(snap Snapshot) {
	if err := s.stateHub.BroadcastJSON(snap); err != nil {
		log.Debug("state broadcast failed", "error", err)
	}
}

// PublishPosition broadcasts a raw position sample to /ws/position clients.
func (s *Server) PublishPosition(sample position.Sample) {
	if err := s.positionHub.BroadcastJSON(sample); err != nil {
		log.Debug("position broadcast failed", "error", err)
	}
}

// Shutdown stops the server and both hubs.
func (s *Server) Shutdown() error {
	s.stateHub.Stop()
	s.positionHub.Stop()
	return s.app.Shutdown()
}
