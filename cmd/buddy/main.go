// SafePath Buddy: a voice companion for pedestrian navigation. It loads
// routes from the risk-aware routing backend, tracks walking progress,
// schedules turn alerts, and runs a hands-free voice call loop.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/safepath/buddy/internal/config"
	"github.com/safepath/buddy/internal/log"
	"github.com/safepath/buddy/pkg/alerts"
	"github.com/safepath/buddy/pkg/audio"
	"github.com/safepath/buddy/pkg/call"
	"github.com/safepath/buddy/pkg/convo"
	"github.com/safepath/buddy/pkg/geo"
	"github.com/safepath/buddy/pkg/guidance"
	"github.com/safepath/buddy/pkg/nav"
	"github.com/safepath/buddy/pkg/position"
	"github.com/safepath/buddy/pkg/routing"
	"github.com/safepath/buddy/pkg/stt"
	"github.com/safepath/buddy/pkg/tracker"
	"github.com/safepath/buddy/pkg/tts"
	"github.com/safepath/buddy/pkg/web"
)

func main() {
	configPath := flag.String("config", "buddy.yaml", "path to the YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "buddy: %v\n", err)
		os.Exit(1)
	}

	log.Init(cfg.LogLevel)

	if err := run(cfg); err != nil {
		log.Error("buddy exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Navigation core
	var geocoder guidance.Geocoder
	if cfg.Backend.GeocodeURL != "" {
		geocoder = guidance.NewHTTPGeocoder(cfg.Backend.GeocodeURL, cfg.Backend.Timeout)
	}
	navigator := nav.New(nav.Options{
		WalkSpeed:    cfg.Navigation.WalkSpeed,
		TickInterval: cfg.Navigation.TickInterval,
		Geocoder:     geocoder,
		Tracker: tracker.Options{
			StepRadius:    cfg.Navigation.StepRadius,
			OffRouteEnter: cfg.Navigation.OffRouteEnter,
			OffRouteExit:  cfg.Navigation.OffRouteExit,
			ArrivalRadius: cfg.Navigation.ArrivalRadius,
		},
	})

	// Conversational and routing backends
	var chat convo.Client
	var router routing.Client
	if cfg.Backend.BaseURL != "" {
		httpChat, err := convo.NewHTTPClient(cfg.Backend.BaseURL, cfg.Backend.Timeout)
		if err != nil {
			return fmt.Errorf("chat client: %w", err)
		}
		chat = httpChat

		httpRouter, err := routing.NewHTTPClient(cfg.Backend.BaseURL, cfg.Backend.Timeout)
		if err != nil {
			return fmt.Errorf("routing client: %w", err)
		}
		router = httpRouter
	} else {
		log.Warn("no backend configured, chat replies are canned")
		chat = convo.NewMock()
	}

	// Speech synthesis: backend first, silent mock as last resort so
	// alerts still drive the call loop when the backend is down.
	var synth tts.Provider
	if cfg.Backend.BaseURL != "" {
		backend, err := tts.NewBackend(
			tts.WithBaseURL(cfg.Backend.BaseURL),
			tts.WithVoice(cfg.Backend.Voice),
			tts.WithLogger(log.L()),
		)
		if err != nil {
			return fmt.Errorf("tts backend: %w", err)
		}
		synth = tts.NewChain(backend, tts.NewMock())
	} else {
		synth = tts.NewMock()
	}

	// Speech recognition is optional; without it calls cannot start.
	var recognizer stt.Recognizer
	if cfg.Backend.SpeechURL != "" {
		ws := stt.NewWSRecognizer(cfg.Backend.SpeechURL)
		ws.Timeout = cfg.Call.ListenTimeout
		recognizer = ws
		defer ws.Close()
	}

	output := audio.NewOutput(audio.NewSpeaker())
	output.SetSafetyTimeout(cfg.Call.PlaybackTimeout)
	defer output.Close()

	// Alerts poll the navigator while a call is active.
	var manager *call.Manager
	scheduler := alerts.NewScheduler(navigator, cfg.Call.AlertInterval, func() bool {
		return manager != nil && manager.Active()
	})

	manager = call.New(recognizer, synth, output, chat, navigator, scheduler, call.Options{
		PauseInterval: cfg.Call.PauseInterval,
		Greeting:      "Hi, this is Buddy. Where are we headed?",
	})

	server := web.NewServer(cfg.Server.Port, web.Controls{
		Snapshot: func() web.Snapshot {
			return web.Snapshot{
				Nav:        navigator.State(),
				CallState:  string(manager.State()),
				CallActive: manager.Active(),
				SessionID:  manager.SessionID(),
			}
		},
		Instructions: func() []web.InstructionView {
			steps := navigator.Instructions()
			views := make([]web.InstructionView, 0, len(steps))
			for _, step := range steps {
				views = append(views, web.InstructionView{
					Index:    step.Index,
					Text:     step.Label,
					Maneuver: string(step.Maneuver),
					Distance: step.DistanceFromPrevious,
					Lat:      step.Coordinate.Lat,
					Lng:      step.Coordinate.Lng,
				})
			}
			return views
		},
		Context: navigator.Context,
		PlanRoute: func(start, end geo.Point, mode string) error {
			if router == nil {
				return errors.New("routing backend not configured")
			}
			now := time.Now()
			wd := now.Weekday()
			route, err := router.GetRoute(ctx, routing.Request{
				Start:      start,
				End:        end,
				Hour:       now.Hour(),
				IsWeekend:  wd == time.Saturday || wd == time.Sunday,
				TravelMode: mode,
			})
			if err != nil {
				return err
			}
			return navigator.Load(route)
		},
		StartNavigation: func(mode string) error {
			if mode == "live" && cfg.Backend.PositionURL != "" {
				return navigator.StartLive(ctx, position.NewWSWatcher(cfg.Backend.PositionURL))
			}
			return navigator.StartSimulated(ctx)
		},
		StopNavigation: navigator.Stop,
		StartCall:      func() error { return manager.StartCall(ctx) },
		EndCall:        manager.EndCall,
		Interrupt:      manager.Interrupt,
	})

	// Push state and position updates to websocket clients.
	navigator.OnState(func(state tracker.NavigationState) {
		server.PublishState(web.Snapshot{
			Nav:        state,
			CallState:  string(manager.State()),
			CallActive: manager.Active(),
			SessionID:  manager.SessionID(),
		})
	})
	navigator.OnPosition(server.PublishPosition)

	go scheduler.Run()
	server.StartAsync()

	log.Info("buddy ready",
		"port", cfg.Server.Port,
		"backend", cfg.Backend.BaseURL,
		"voice", recognizer != nil)

	<-ctx.Done()
	log.Info("shutting down")

	if manager.Active() {
		manager.EndCall()
	}
	scheduler.Stop()
	navigator.Stop()
	return server.Shutdown()
}
