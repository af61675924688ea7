// Package nav glues a route to a live session: it generates instructions,
// owns the tracker and the position source, and exposes read-only snapshots
// to the voice loop, the alert scheduler, and the UI.
package nav

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/safepath/buddy/internal/log"
	"github.com/safepath/buddy/pkg/convo"
	"github.com/safepath/buddy/pkg/geo"
	"github.com/safepath/buddy/pkg/guidance"
	"github.com/safepath/buddy/pkg/position"
	"github.com/safepath/buddy/pkg/routing"
	"github.com/safepath/buddy/pkg/tracker"
)

// Common errors.
var (
	ErrNoRoute    = errors.New("nav: no route loaded")
	ErrNavigating = errors.New("nav: navigation already in progress")
)

// Options tunes the navigator.
type Options struct {
	// WalkSpeed is the simulated walking pace in m/s.
	WalkSpeed float64

	// TickInterval is the simulator's sample cadence.
	TickInterval time.Duration

	// Tracker carries the threshold overrides.
	Tracker tracker.Options

	// Geocoder, when set, fills in street names on loaded instructions
	// in the background.
	Geocoder guidance.Geocoder
}

func (o *Options) fillDefaults() {
	if o.WalkSpeed <= 0 {
		o.WalkSpeed = 1.4
	}
	if o.TickInterval <= 0 {
		o.TickInterval = time.Second
	}
}

// Context is the read-only snapshot handed to the conversational
// collaborator and the UI.
type Context struct {
	Instructions    []guidance.Instruction `json:"instructions"`
	CurrentStep     int                    `json:"current_step"`
	CurrentPosition geo.Point              `json:"current_position"`
	IsNavigating    bool                   `json:"is_navigating"`
	Path            []geo.Point            `json:"path"`
	TravelMode      string                 `json:"travel_mode"`
}

// Navigator owns one navigation session at a time. Load a route, then start
// it simulated or live; Stop cancels the position source synchronously.
type Navigator struct {
	opts Options

	mu           sync.Mutex
	route        *routing.Route
	instructions []guidance.Instruction
	trk          *tracker.Tracker
	source       position.Source
	pumpDone     chan struct{}
	running      bool

	onState    func(tracker.NavigationState)
	onPosition func(position.Sample)
}

// New creates a navigator with no route loaded.
func New(opts Options) *Navigator {
	opts.fillDefaults()
	return &Navigator{opts: opts}
}

// OnState sets the state snapshot callback. Call before Start.
func (n *Navigator) OnState(fn func(tracker.NavigationState)) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.onState = fn
}

// OnPosition sets the raw position callback. Call before Start.
func (n *Navigator) OnPosition(fn func(position.Sample)) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.onPosition = fn
}

// Load installs a route, replacing any previous one. Fails while a session
// is running.
func (n *Navigator) Load(route *routing.Route) error {
	if route == nil || len(route.Path) < 2 {
		return ErrNoRoute
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	if n.running {
		return ErrNavigating
	}

	n.route = route
	n.instructions = guidance.Generate(route.Path)
	n.trk = nil

	// Street names arrive whenever the lookups finish; instructions read
	// before then just omit them. The enriched copy is swapped in whole
	// so readers never see a half-filled slice.
	if n.opts.Geocoder != nil {
		enriched := make([]guidance.Instruction, len(n.instructions))
		copy(enriched, n.instructions)
		done := guidance.EnrichStreetNames(context.Background(), enriched, n.opts.Geocoder)
		go func() {
			<-done
			n.mu.Lock()
			if n.route == route {
				n.instructions = enriched
			}
			n.mu.Unlock()
		}()
	}

	log.Info("route loaded",
		"points", len(route.Path),
		"instructions", len(n.instructions),
		"distance_m", route.Distance,
		"mode", route.TravelMode,
	)
	return nil
}

// StartSimulated walks the loaded route with synthetic positions.
func (n *Navigator) StartSimulated(ctx context.Context) error {
	n.mu.Lock()
	if n.route == nil {
		n.mu.Unlock()
		return ErrNoRoute
	}
	path := n.route.Path
	speed := n.opts.WalkSpeed
	interval := n.opts.TickInterval
	n.mu.Unlock()

	sim, err := position.NewSimulator(path, speed, interval)
	if err != nil {
		return err
	}
	return n.start(ctx, sim, tracker.ModeSimulated)
}

// StartLive follows the device's position stream. When the stream cannot be
// opened the navigator falls back to simulated mode instead of failing the
// session.
func (n *Navigator) StartLive(ctx context.Context, watcher position.Watcher) error {
	n.mu.Lock()
	if n.route == nil {
		n.mu.Unlock()
		return ErrNoRoute
	}
	n.mu.Unlock()

	live := position.NewLive(watcher)
	if err := n.start(ctx, live, tracker.ModeLive); err != nil {
		log.Warn("live position source unavailable, falling back to simulation", "error", err)
		return n.StartSimulated(ctx)
	}
	return nil
}

func (n *Navigator) start(ctx context.Context, src position.Source, mode tracker.Mode) error {
	n.mu.Lock()
	if n.running {
		n.mu.Unlock()
		src.Stop()
		return ErrNavigating
	}

	trkOpts := n.opts.Tracker
	trkOpts.Mode = mode
	trkOpts.EstimatedDuration = n.route.EstimatedDuration
	trk := tracker.New(n.route.Path, n.instructions, trkOpts)

	n.trk = trk
	n.source = src
	n.pumpDone = make(chan struct{})
	n.running = true
	done := n.pumpDone
	n.mu.Unlock()

	if err := src.Start(ctx); err != nil {
		n.mu.Lock()
		n.running = false
		n.source = nil
		n.mu.Unlock()
		close(done)
		return err
	}

	trk.Start()
	go n.pump(src, trk, done)

	log.Info("navigation started", "mode", mode)
	return nil
}

// pump forwards samples into the tracker until the source closes.
func (n *Navigator) pump(src position.Source, trk *tracker.Tracker, done chan struct{}) {
	defer close(done)

	for s := range src.Samples() {
		state := trk.OnPosition(s)

		n.mu.Lock()
		onState := n.onState
		onPosition := n.onPosition
		n.mu.Unlock()

		if onPosition != nil {
			onPosition(s)
		}
		if onState != nil {
			onState(state)
		}
	}
}

// Stop cancels the position source and waits for the pump to drain, so no
// state mutation happens after it returns. The route stays loaded.
func (n *Navigator) Stop() {
	n.mu.Lock()
	src := n.source
	done := n.pumpDone
	trk := n.trk
	n.source = nil
	n.running = false
	n.mu.Unlock()

	if src == nil {
		return
	}
	src.Stop()
	if done != nil {
		<-done
	}
	if trk != nil {
		trk.Stop()
	}
	log.Info("navigation stopped")
}

// Navigating reports whether a session is currently running.
func (n *Navigator) Navigating() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.running
}

// HasRoute reports whether a route is loaded.
func (n *Navigator) HasRoute() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.route != nil
}

// State returns the current navigation snapshot.
func (n *Navigator) State() tracker.NavigationState {
	n.mu.Lock()
	trk := n.trk
	n.mu.Unlock()
	if trk == nil {
		return tracker.NavigationState{}
	}
	return trk.State()
}

// Instructions returns the loaded instruction list.
func (n *Navigator) Instructions() []guidance.Instruction {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.instructions
}

// NextManeuver returns the upcoming instruction and the distance to it.
func (n *Navigator) NextManeuver() (guidance.Instruction, float64, bool) {
	n.mu.Lock()
	trk := n.trk
	n.mu.Unlock()
	if trk == nil {
		return guidance.Instruction{}, 0, false
	}
	return trk.NextManeuver()
}

// TravelMode returns the loaded route's mode, or empty.
func (n *Navigator) TravelMode() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.route == nil {
		return ""
	}
	return n.route.TravelMode
}

// Context assembles the collaborator snapshot.
func (n *Navigator) Context() Context {
	state := n.State()

	n.mu.Lock()
	defer n.mu.Unlock()

	ctx := Context{
		Instructions:    n.instructions,
		CurrentStep:     state.CurrentStepIndex,
		CurrentPosition: state.Position,
		IsNavigating:    state.IsNavigating,
		TravelMode:      "",
	}
	if n.route != nil {
		ctx.Path = n.route.Path
		ctx.TravelMode = n.route.TravelMode
	}
	return ctx
}

// NavState builds the chat collaborator's compact snapshot, or nil when
// nothing is in progress.
func (n *Navigator) NavState() *convo.NavState {
	state := n.State()
	if !state.IsNavigating {
		return nil
	}

	ns := &convo.NavState{
		IsNavigating:      true,
		CurrentStep:       state.CurrentStepIndex,
		DistanceRemaining: state.DistanceRemaining,
		TimeRemaining:     state.TimeRemaining,
		ProgressPercent:   state.ProgressPercent,
		OffRoute:          state.OffRoute,
		TravelMode:        n.TravelMode(),
	}
	if in, dist, ok := n.NextManeuver(); ok {
		ns.NextInstruction = guidance.SpokenText(in, dist)
	}
	return ns
}
