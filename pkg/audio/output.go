package audio

import (
	"context"
	"sync"
	"time"

	"github.com/safepath/buddy/internal/log"
)

// Output serializes playback onto a sink. Play blocks the caller until the
// clip finishes, is stopped, or hits the safety timeout, so the call loop
// never talks over itself. Any new Play silences the previous clip first.
type Output struct {
	sink   Sink
	safety time.Duration

	// Callbacks
	OnPlaybackStart func()
	OnPlaybackEnd   func()

	mu       sync.Mutex
	current  Playback
	speaking bool
	closed   bool
}

// NewOutput wraps a sink with the single-playback discipline.
func NewOutput(sink Sink) *Output {
	return &Output{
		sink:   sink,
		safety: DefaultSafetyTimeout,
	}
}

// SetSafetyTimeout overrides the playback cap. Zero restores the default.
func (o *Output) SetSafetyTimeout(d time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if d <= 0 {
		d = DefaultSafetyTimeout
	}
	o.safety = d
}

// Play starts the clip and blocks until it completes, Stop is called, ctx
// is cancelled, or the safety timeout fires. A clip already playing is
// stopped before the new one starts.
func (o *Output) Play(ctx context.Context, clip Clip) error {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return ErrClosed
	}
	if o.current != nil {
		o.current.Stop()
		o.current = nil
	}

	pb, err := o.sink.Begin(clip)
	if err != nil {
		o.mu.Unlock()
		return err
	}
	o.current = pb
	o.speaking = true
	safety := o.safety
	if clip.Duration > 0 && clip.Duration+2*time.Second > safety {
		safety = clip.Duration + 2*time.Second
	}
	start := o.OnPlaybackStart
	o.mu.Unlock()

	if start != nil {
		start()
	}

	timer := time.NewTimer(safety)
	defer timer.Stop()

	var playErr error
	select {
	case <-pb.Done():
	case <-ctx.Done():
		pb.Stop()
		playErr = ctx.Err()
	case <-timer.C:
		log.Warn("playback hit safety timeout", "timeout", safety)
		pb.Stop()
	}

	o.mu.Lock()
	if o.current == pb {
		o.current = nil
		o.speaking = false
	}
	end := o.OnPlaybackEnd
	o.mu.Unlock()

	if end != nil {
		end()
	}
	return playErr
}

// Stop silences the current clip, resolving the blocked Play immediately.
// No-op when nothing is playing.
func (o *Output) Stop() {
	o.mu.Lock()
	pb := o.current
	o.mu.Unlock()
	if pb != nil {
		pb.Stop()
	}
}

// Speaking reports whether a clip is currently playing.
func (o *Output) Speaking() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.speaking
}

// Close stops playback and releases the sink.
func (o *Output) Close() error {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return nil
	}
	o.closed = true
	pb := o.current
	o.mu.Unlock()

	if pb != nil {
		pb.Stop()
	}
	return o.sink.Close()
}
