package call

import (
	"context"
	"time"

	"github.com/safepath/buddy/internal/log"
	"github.com/safepath/buddy/pkg/audio"
)

// loop is one generation's speak/listen/process cycle. Each blocking step
// is bracketed by liveness checks; a stale generation returns without
// touching the call state.
func (m *Manager) loop(ctx context.Context, gen uint64) {
	if m.opts.Greeting != "" {
		m.speak(ctx, gen, m.opts.Greeting, nil, false)
	}

	for m.alive(gen) {
		// Alerts always beat waiting to listen.
		m.drainAlerts(ctx, gen)

		if !m.setState(gen, StateListening) {
			return
		}
		text, err := m.recognizer.Listen(ctx)
		if !m.alive(gen) {
			return
		}
		if err != nil {
			// A failed listen is an empty utterance, never a
			// dead call.
			log.Debug("listen failed", "error", err)
			text = ""
		}

		// One may have arrived while listening.
		m.drainAlerts(ctx, gen)

		if text == "" {
			select {
			case <-time.After(m.opts.PauseInterval):
			case <-ctx.Done():
				return
			}
			continue
		}

		if !m.setState(gen, StateProcessing) {
			return
		}
		reply := m.handle(ctx, gen, text)
		if !m.alive(gen) {
			return
		}

		if reply.text != "" || reply.clip != nil {
			m.speak(ctx, gen, reply.text, reply.clip, false)
		}
		m.drainAlerts(ctx, gen)

		if reply.endCall {
			m.EndCall()
			return
		}
	}
}

// drainAlerts speaks pending alerts until the slot is empty. An urgent
// alert offered while a non-urgent one plays stops that playback, so the
// next pass of this drain picks it up right away.
func (m *Manager) drainAlerts(ctx context.Context, gen uint64) {
	if m.alerts == nil {
		return
	}
	for m.alive(gen) {
		a := m.alerts.Drain()
		if a == nil {
			return
		}
		m.speak(ctx, gen, a.Text, nil, a.Urgent)
	}
}

// speak synthesizes text (or plays a pre-rendered clip) and blocks until
// the audio finishes. Synthesis failures are logged and swallowed so one
// bad request never ends the call.
func (m *Manager) speak(ctx context.Context, gen uint64, text string, clip *audio.Clip, urgent bool) {
	if !m.setSpeaking(gen, urgent) {
		return
	}

	if clip == nil {
		result, err := m.synth.Synthesize(ctx, text)
		if err != nil {
			log.Warn("synthesis failed", "error", err, "text", text)
			return
		}
		clip = &audio.Clip{
			Data:     result.Audio,
			MIME:     "audio/" + string(result.Format.Encoding),
			Duration: result.Duration,
		}
	}

	if err := m.output.Play(ctx, *clip); err != nil && err != context.Canceled {
		log.Debug("playback ended early", "error", err)
	}
}
