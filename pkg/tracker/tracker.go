// Package tracker owns the authoritative navigation state. Every position
// sample flows through OnPosition, which maps it to the current maneuver
// step (forward-only), recomputes remaining distance and time, progress,
// speed, and the off-route flag, and commits the update atomically before
// returning. All other components read snapshots.
package tracker

import (
	"math"
	"sync"
	"time"

	"github.com/safepath/buddy/pkg/geo"
	"github.com/safepath/buddy/pkg/guidance"
	"github.com/safepath/buddy/pkg/position"
)

// Mode selects how position samples are produced and interpreted.
type Mode string

const (
	ModeSimulated Mode = "simulated"
	ModeLive      Mode = "live"
)

// NavigationState is the single source of truth for the session. It is
// mutated only by Tracker.OnPosition and read everywhere else via State().
type NavigationState struct {
	Mode              Mode      `json:"mode"`
	CurrentStepIndex  int       `json:"current_step_index"`
	DistanceRemaining float64   `json:"distance_remaining"` // meters
	TimeRemaining     float64   `json:"time_remaining"`     // seconds
	ProgressPercent   float64   `json:"progress_percent"`   // [0,100]
	Speed             float64   `json:"speed"`              // m/s
	OffRoute          bool      `json:"off_route"`
	IsNavigating      bool      `json:"is_navigating"`
	Arrived           bool      `json:"arrived"`
	Position          geo.Point `json:"position"`
}

// Options tunes the tracker thresholds. Zero values use the defaults below.
type Options struct {
	Mode              Mode
	EstimatedDuration time.Duration // total traversal time from the router
	StepRadius        float64       // maneuver match radius, meters
	OffRouteEnter     float64       // off-route latch threshold, meters
	OffRouteExit      float64       // off-route clear threshold, meters
	ArrivalRadius     float64       // live-mode arrival threshold, meters
}

// Default thresholds.
const (
	DefaultStepRadius    = 35.0
	DefaultOffRouteEnter = 100.0
	DefaultOffRouteExit  = 40.0
	DefaultArrivalRadius = 20.0

	// minSpeedSample is the minimum elapsed time between samples for a
	// speed estimate; closer samples make displacement/time blow up.
	minSpeedSample = 500 * time.Millisecond

	// speedFloor clamps GPS-jitter crawl to zero.
	speedFloor = 0.3
)

func (o *Options) fillDefaults() {
	if o.Mode == "" {
		o.Mode = ModeSimulated
	}
	if o.StepRadius == 0 {
		o.StepRadius = DefaultStepRadius
	}
	if o.OffRouteEnter == 0 {
		o.OffRouteEnter = DefaultOffRouteEnter
	}
	if o.OffRouteExit == 0 {
		o.OffRouteExit = DefaultOffRouteExit
	}
	if o.ArrivalRadius == 0 {
		o.ArrivalRadius = DefaultArrivalRadius
	}
}

// Tracker converts position samples into NavigationState updates.
type Tracker struct {
	mu sync.Mutex

	path         []geo.Point
	instructions []guidance.Instruction
	opts         Options

	segments []float64 // segment lengths
	suffix   []float64 // suffix[i] = along-path distance from vertex i to the end
	total    float64   // full path length
	baseline float64   // steady-state speed estimate, m/s

	state NavigationState

	// speed anchor: last sample used for a speed estimate (live mode)
	anchor   position.Sample
	anchored bool
}

// New creates a tracker for the given path and its instruction list.
func New(path []geo.Point, instructions []guidance.Instruction, opts Options) *Tracker {
	opts.fillDefaults()

	segments := make([]float64, 0, len(path))
	for i := 1; i < len(path); i++ {
		segments = append(segments, geo.Distance(path[i-1], path[i]))
	}
	suffix := make([]float64, len(path))
	for i := len(path) - 2; i >= 0; i-- {
		suffix[i] = suffix[i+1] + segments[i]
	}
	total := 0.0
	if len(suffix) > 0 {
		total = suffix[0]
	}

	baseline := 1.4 // walking pace fallback
	if opts.EstimatedDuration > 0 && total > 0 {
		baseline = total / opts.EstimatedDuration.Seconds()
	}

	return &Tracker{
		path:         path,
		instructions: instructions,
		opts:         opts,
		segments:     segments,
		suffix:       suffix,
		total:        total,
		baseline:     baseline,
		state:        NavigationState{Mode: opts.Mode},
	}
}

// Start resets the state to the beginning of the session.
func (t *Tracker) Start() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state = NavigationState{
		Mode:              t.opts.Mode,
		IsNavigating:      true,
		DistanceRemaining: t.total,
		TimeRemaining:     t.total / t.baseline,
		Speed:             t.simSpeed(),
	}
	if len(t.path) > 0 {
		t.state.Position = t.path[0]
	}
	t.anchored = false
}

// Stop ends the session and resets the state.
func (t *Tracker) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state = NavigationState{Mode: t.opts.Mode}
	t.anchored = false
}

// State returns a snapshot of the current navigation state.
func (t *Tracker) State() NavigationState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Instructions returns the instruction list backing this session.
func (t *Tracker) Instructions() []guidance.Instruction {
	return t.instructions
}

// Path returns the path backing this session.
func (t *Tracker) Path() []geo.Point {
	return t.path
}

// NextManeuver returns the upcoming instruction and the straight-line
// distance from the current position to it. ok is false when the current
// step is already the final instruction.
func (t *Tracker) NextManeuver() (guidance.Instruction, float64, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	next := t.state.CurrentStepIndex + 1
	if next >= len(t.instructions) {
		return guidance.Instruction{}, 0, false
	}
	in := t.instructions[next]
	return in, geo.Distance(t.state.Position, in.Coordinate), true
}

// OnPosition folds a position sample into the navigation state and returns
// the new snapshot. The whole update happens under one lock acquisition, so
// no reader ever observes a half-applied sample.
func (t *Tracker) OnPosition(s position.Sample) NavigationState {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.state.IsNavigating || t.state.Arrived {
		return t.state
	}

	t.state.Position = s.Point

	if t.opts.Mode == ModeLive {
		t.updateSpeed(s)
	}

	t.matchStep(s.Point)

	nearest, nearestDist := geo.NearestVertex(t.path, s.Point)
	t.updateOffRoute(nearestDist)

	var remaining float64
	if s.Simulated {
		remaining = t.simRemaining(s)
	} else {
		// Along-path remaining from the nearest vertex forward. Straying
		// off a straight segment therefore never inflates the estimate.
		// Known edge case: on a self-crossing path the nearest vertex can
		// skip backward, producing a discontinuous jump.
		if nearest >= 0 {
			remaining = t.suffix[nearest]
		} else {
			remaining = t.total
		}
	}

	if t.isArrival(s, remaining) {
		t.arrive()
		return t.state
	}

	t.state.DistanceRemaining = remaining
	t.state.ProgressPercent = t.progress(remaining)
	t.state.TimeRemaining = remaining / t.effectiveSpeed()
	return t.state
}

// matchStep advances the current step index, forward only. Scanning starts
// at the step after the current one and stops at the first instruction whose
// proximity radius contains the sample; the index never moves backward, even
// if a later sample is geometrically closer to an earlier step.
func (t *Tracker) matchStep(p geo.Point) {
	for i := t.state.CurrentStepIndex + 1; i < len(t.instructions); i++ {
		if geo.Distance(p, t.instructions[i].Coordinate) <= t.opts.StepRadius {
			t.state.CurrentStepIndex = i
			return
		}
	}
}

// updateOffRoute applies the asymmetric hysteresis band: the flag latches
// above OffRouteEnter and clears only below OffRouteExit.
func (t *Tracker) updateOffRoute(nearestDist float64) {
	if !t.state.OffRoute && nearestDist > t.opts.OffRouteEnter {
		t.state.OffRoute = true
	} else if t.state.OffRoute && nearestDist < t.opts.OffRouteExit {
		t.state.OffRoute = false
	}
}

// simRemaining computes remaining distance for a simulated sample: the
// unfinished part of the current segment plus all subsequent segments.
func (t *Tracker) simRemaining(s position.Sample) float64 {
	if s.Segment < 0 || s.Segment >= len(t.segments) {
		return 0
	}
	partial := (1 - s.Fraction) * t.segments[s.Segment]
	return partial + t.suffix[s.Segment+1]
}

// isArrival reports whether the sample terminates the session: exact path
// end in simulation, proximity to the destination in live mode.
func (t *Tracker) isArrival(s position.Sample, remaining float64) bool {
	if s.Simulated {
		return s.Done || remaining <= 0
	}
	return geo.Distance(s.Point, t.path[len(t.path)-1]) < t.opts.ArrivalRadius
}

// arrive pins the state to the destination.
func (t *Tracker) arrive() {
	t.state.CurrentStepIndex = len(t.instructions) - 1
	t.state.DistanceRemaining = 0
	t.state.TimeRemaining = 0
	t.state.ProgressPercent = 100
	t.state.Arrived = true
}

// updateSpeed estimates speed from displacement over elapsed time between
// the anchor sample and this one. The anchor only moves when at least
// minSpeedSample has elapsed, so back-to-back callbacks cannot blow up the
// division; speeds below the jitter floor clamp to zero.
func (t *Tracker) updateSpeed(s position.Sample) {
	if !t.anchored {
		t.anchor = s
		t.anchored = true
		return
	}
	elapsed := s.Time.Sub(t.anchor.Time)
	if elapsed <= minSpeedSample {
		return
	}
	v := geo.Distance(t.anchor.Point, s.Point) / elapsed.Seconds()
	if v < speedFloor {
		v = 0
	}
	t.state.Speed = v
	t.anchor = s
}

func (t *Tracker) progress(remaining float64) float64 {
	if t.total <= 0 {
		return 100
	}
	p := 100 * (1 - remaining/t.total)
	return math.Max(0, math.Min(100, p))
}

// effectiveSpeed prefers the measured speed and falls back to the baseline
// derived from the router's traversal estimate.
func (t *Tracker) effectiveSpeed() float64 {
	if t.state.Speed > speedFloor {
		return t.state.Speed
	}
	return t.baseline
}

// simSpeed is the steady speed reported in simulated mode.
func (t *Tracker) simSpeed() float64 {
	if t.opts.Mode == ModeSimulated {
		return t.baseline
	}
	return 0
}
