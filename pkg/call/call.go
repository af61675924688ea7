// Package call runs the voice call: a single loop per call that speaks
// pending alerts, listens for one utterance, classifies it, and speaks the
// response. The loop is guarded by a generation token so a rapid stop and
// restart can never leave two loops alive; every continuation checks the
// token and exits silently when it has gone stale.
package call

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/safepath/buddy/internal/log"
	"github.com/safepath/buddy/pkg/alerts"
	"github.com/safepath/buddy/pkg/audio"
	"github.com/safepath/buddy/pkg/convo"
	"github.com/safepath/buddy/pkg/nav"
	"github.com/safepath/buddy/pkg/stt"
	"github.com/safepath/buddy/pkg/tts"
)

// State is the call's user-visible phase.
type State string

const (
	StateIdle       State = "idle"
	StateListening  State = "listening"
	StateProcessing State = "processing"
	StateSpeaking   State = "speaking"
)

// Common errors.
var (
	ErrVoiceUnavailable = errors.New("call: voice features unavailable")
	ErrNotActive        = errors.New("call: no active call")
)

// Options tunes the call loop.
type Options struct {
	// PauseInterval is the backoff after an empty utterance.
	PauseInterval time.Duration

	// Greeting is spoken when the call starts. Empty skips it.
	Greeting string

	// StartNavigation launches the loaded route when the user asks for
	// it. Nil defaults to the navigator's simulated mode.
	StartNavigation func(ctx context.Context) error
}

func (o *Options) fillDefaults() {
	if o.PauseInterval <= 0 {
		o.PauseInterval = 500 * time.Millisecond
	}
}

// Manager owns the call lifecycle and the loop's collaborators.
type Manager struct {
	recognizer stt.Recognizer
	synth      tts.Provider
	output     *audio.Output
	chat       convo.Client
	navigator  *nav.Navigator
	alerts     *alerts.Scheduler
	opts       Options

	mu             sync.Mutex
	state          State
	active         bool
	generation     uint64
	sessionID      string
	pending        *convo.ParsedRoute
	cancel         context.CancelFunc
	speakingUrgent bool
}

// New creates a manager. The recognizer may be nil on platforms without
// voice input; StartCall then fails with ErrVoiceUnavailable.
func New(recognizer stt.Recognizer, synth tts.Provider, output *audio.Output,
	chat convo.Client, navigator *nav.Navigator, sched *alerts.Scheduler, opts Options) *Manager {
	opts.fillDefaults()
	m := &Manager{
		recognizer: recognizer,
		synth:      synth,
		output:     output,
		chat:       chat,
		navigator:  navigator,
		alerts:     sched,
		opts:       opts,
		state:      StateIdle,
	}
	if sched != nil {
		sched.SetOnUrgent(m.preemptForUrgent)
	}
	return m
}

// StartCall allocates a new generation and launches its loop. A call that
// is already running is abandoned: its generation goes stale and its
// in-flight listen or playback is stopped so the old loop exits at its next
// checkpoint.
func (m *Manager) StartCall(ctx context.Context) error {
	if m.recognizer == nil || !m.recognizer.Available() {
		return ErrVoiceUnavailable
	}

	m.mu.Lock()
	wasActive := m.active
	oldCancel := m.cancel

	m.generation++
	gen := m.generation
	m.active = true
	// The call opens its mouth first: greeting, then listen.
	m.state = StateSpeaking
	m.sessionID = uuid.NewString()
	m.pending = nil

	loopCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	session := m.sessionID
	m.mu.Unlock()

	if wasActive {
		// Unblock the abandoned loop's pending operations.
		if oldCancel != nil {
			oldCancel()
		}
		m.recognizer.Stop()
		m.output.Stop()
	}
	if m.alerts != nil {
		m.alerts.Reset()
	}

	log.Info("call started", "session", session, "generation", gen)
	go m.loop(loopCtx, gen)
	return nil
}

// EndCall marks the call inactive without bumping the generation; the
// current loop simply finds itself stale and exits. In-flight recognition
// and playback are stopped explicitly since they hold real resources.
func (m *Manager) EndCall() error {
	m.mu.Lock()
	if !m.active {
		m.mu.Unlock()
		return ErrNotActive
	}
	m.active = false
	m.state = StateIdle
	m.pending = nil
	cancel := m.cancel
	m.cancel = nil
	session := m.sessionID
	m.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	m.recognizer.Stop()
	m.output.Stop()

	log.Info("call ended", "session", session)
	return nil
}

// preemptForUrgent cuts short non-urgent playback so a just-offered urgent
// alert is spoken at the next drain point instead of after the full clip.
// Urgent speech already in flight is left alone.
func (m *Manager) preemptForUrgent() {
	m.mu.Lock()
	cut := m.active && m.state == StateSpeaking && !m.speakingUrgent
	m.mu.Unlock()
	if cut {
		m.output.Stop()
	}
}

// Interrupt stops the current utterance. Honored only while speaking.
func (m *Manager) Interrupt() {
	m.mu.Lock()
	speaking := m.active && m.state == StateSpeaking
	m.mu.Unlock()
	if speaking {
		m.output.Stop()
	}
}

// State returns the current call phase.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Active reports whether a call is in progress. The alert scheduler uses
// this as its gate.
func (m *Manager) Active() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active
}

// SessionID returns the current call's ID, or empty when idle.
func (m *Manager) SessionID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.active {
		return ""
	}
	return m.sessionID
}

// alive reports whether gen is still the active generation.
func (m *Manager) alive(gen uint64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active && m.generation == gen
}

// setState applies a phase transition only while gen is live.
func (m *Manager) setState(gen uint64, s State) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.active || m.generation != gen {
		return false
	}
	m.state = s
	return true
}

// setSpeaking enters the speaking phase and records whether the utterance
// is urgent, which decides whether a new urgent alert may preempt it.
func (m *Manager) setSpeaking(gen uint64, urgent bool) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.active || m.generation != gen {
		return false
	}
	m.state = StateSpeaking
	m.speakingUrgent = urgent
	return true
}

func (m *Manager) takePending() *convo.ParsedRoute {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := m.pending
	m.pending = nil
	return p
}

func (m *Manager) setPending(gen uint64, p *convo.ParsedRoute) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active && m.generation == gen {
		m.pending = p
	}
}
