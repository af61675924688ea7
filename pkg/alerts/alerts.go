// Package alerts decides when a spoken navigation alert is due. A Scheduler
// polls the tracker on a fixed cadence while both navigation and the voice
// call are active, fires turn warnings at two speed-proportional lead-time
// tiers, and holds at most one pending alert for the call loop to drain.
package alerts

import (
	"fmt"
	"sync"
	"time"

	"github.com/safepath/buddy/internal/log"
	"github.com/safepath/buddy/pkg/guidance"
	"github.com/safepath/buddy/pkg/tracker"
)

// Alert is one pending spoken notification. Urgent alerts preempt in-flight
// non-urgent speech; non-urgent ones wait for the next loop iteration.
type Alert struct {
	Text   string
	Urgent bool
}

// Lead-time tiers: an alert fires when the distance to the next maneuver
// drops below speed multiplied by the tier's lead time.
const (
	FarLeadTime   = 20 * time.Second
	CloseLeadTime = 10 * time.Second

	// DefaultInterval is the polling cadence.
	DefaultInterval = 500 * time.Millisecond

	// fallbackSpeed stands in when the tracker reports zero speed, so
	// tiers still fire for a stationary-looking GPS track.
	fallbackSpeed = 1.4 // m/s
)

// Session is the tracker surface the scheduler reads. *tracker.Tracker
// satisfies it.
type Session interface {
	State() tracker.NavigationState
	NextManeuver() (guidance.Instruction, float64, bool)
}

// Scheduler owns the single pending-alert slot and the per-step one-shot
// markers. It is safe for concurrent use by its ticker goroutine and the
// call loop.
type Scheduler struct {
	session  Session
	interval time.Duration

	// callActive gates the monitor: alerts are only produced while a
	// voice call is running alongside navigation.
	callActive func() bool

	mu         sync.Mutex
	pending    *Alert
	farFired   map[int]bool
	closeFired map[int]bool
	arrival    bool
	offRoute   bool
	wasActive  bool

	// onUrgent is invoked after an urgent alert lands in the pending
	// slot, so the call loop can cut short non-urgent speech instead of
	// waiting out the clip.
	onUrgent func()

	stop     chan struct{}
	stopOnce sync.Once
}

// NewScheduler creates a scheduler polling the session every interval.
// callActive reports whether a voice call is currently running.
func NewScheduler(session Session, interval time.Duration, callActive func() bool) *Scheduler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if callActive == nil {
		callActive = func() bool { return true }
	}
	return &Scheduler{
		session:    session,
		interval:   interval,
		callActive: callActive,
		farFired:   make(map[int]bool),
		closeFired: make(map[int]bool),
		stop:       make(chan struct{}),
	}
}

// Run starts the polling loop. Blocks until Stop is called.
func (s *Scheduler) Run() {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.Tick()
		}
	}
}

// Stop halts the polling loop. Idempotent.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		close(s.stop)
	})
}

// SetOnUrgent registers the urgent-alert hook. The hook runs on the
// scheduler's goroutine and must not block.
func (s *Scheduler) SetOnUrgent(fn func()) {
	s.mu.Lock()
	s.onUrgent = fn
	s.mu.Unlock()
}

func (s *Scheduler) fireUrgent() {
	s.mu.Lock()
	fn := s.onUrgent
	s.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// Tick evaluates the tracker state once. Exposed for tests and for callers
// driving the cadence themselves.
func (s *Scheduler) Tick() {
	state := s.session.State()
	active := state.IsNavigating && s.callActive()

	s.mu.Lock()
	if !active {
		// A later call session starts with clean markers.
		if s.wasActive {
			s.resetLocked()
		}
		s.mu.Unlock()
		return
	}
	s.wasActive = true
	s.mu.Unlock()

	s.checkArrival(state)
	s.checkOffRoute(state)
	s.checkTurnTiers(state)
}

func (s *Scheduler) checkArrival(state tracker.NavigationState) {
	if !state.Arrived {
		return
	}
	s.mu.Lock()
	fired := s.arrival
	s.arrival = true
	s.mu.Unlock()
	if !fired {
		s.Offer(Alert{Text: "You have arrived at your destination.", Urgent: true})
	}
}

func (s *Scheduler) checkOffRoute(state tracker.NavigationState) {
	s.mu.Lock()
	fired := false
	if state.OffRoute && !s.offRoute {
		s.offRoute = true
		fired = s.offerLocked(Alert{
			Text:   "Heads up, you've wandered off the route. Let's get you back on track.",
			Urgent: true,
		})
	} else if !state.OffRoute && s.offRoute {
		// Tracker hysteresis cleared the flag; re-arm so a later
		// excursion announces again.
		s.offRoute = false
	}
	s.mu.Unlock()
	if fired {
		s.fireUrgent()
	}
}

func (s *Scheduler) checkTurnTiers(state tracker.NavigationState) {
	next, dist, ok := s.session.NextManeuver()
	if !ok || next.Maneuver == guidance.ManeuverArrive {
		return
	}

	speed := state.Speed
	if speed <= 0 {
		speed = fallbackSpeed
	}
	closeThreshold := speed * CloseLeadTime.Seconds()
	farThreshold := speed * FarLeadTime.Seconds()

	s.mu.Lock()
	urgent := false
	switch {
	case dist < closeThreshold && !s.closeFired[next.Index]:
		s.closeFired[next.Index] = true
		urgent = s.offerLocked(Alert{Text: guidance.SpokenText(next, dist), Urgent: true})
	case dist < farThreshold && dist >= closeThreshold && !s.farFired[next.Index] && !s.closeFired[next.Index]:
		s.farFired[next.Index] = true
		s.offerLocked(Alert{
			Text: fmt.Sprintf("Coming up: %s", guidance.SpokenText(next, dist)),
		})
	}
	s.mu.Unlock()
	if urgent {
		s.fireUrgent()
	}
}

// Offer places an alert in the pending slot. A new alert only replaces the
// pending one when its priority is equal or higher: urgent beats non-urgent,
// and a later alert of the same priority supersedes an earlier unspoken one.
func (s *Scheduler) Offer(a Alert) {
	s.mu.Lock()
	accepted := s.offerLocked(a)
	s.mu.Unlock()
	if accepted && a.Urgent {
		s.fireUrgent()
	}
}

func (s *Scheduler) offerLocked(a Alert) bool {
	if s.pending != nil && s.pending.Urgent && !a.Urgent {
		log.Debug("alert dropped, lower priority than pending", "text", a.Text)
		return false
	}
	s.pending = &a
	return true
}

// Drain removes and returns the pending alert, or nil when none is queued.
func (s *Scheduler) Drain() *Alert {
	s.mu.Lock()
	defer s.mu.Unlock()
	a := s.pending
	s.pending = nil
	return a
}

// Reset clears the pending slot and all one-shot markers.
func (s *Scheduler) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resetLocked()
}

func (s *Scheduler) resetLocked() {
	s.pending = nil
	s.farFired = make(map[int]bool)
	s.closeFired = make(map[int]bool)
	s.arrival = false
	s.offRoute = false
	s.wasActive = false
}
