// Package audio enforces the single-output playback discipline: at most one
// clip is audible at any moment, and starting a new clip silences whatever
// is currently playing. Output is the process-wide gatekeeper; Sink is the
// device behind it.
package audio

import (
	"errors"
	"time"
)

// Common errors returned by outputs and sinks.
var (
	ErrClosed   = errors.New("audio: output closed")
	ErrNoDevice = errors.New("audio: no playback device")
)

// DefaultSafetyTimeout caps a single playback so a wedged device can never
// hold the call loop forever.
const DefaultSafetyTimeout = 30 * time.Second

// Clip is one complete audio buffer ready for playback.
type Clip struct {
	// Data holds the encoded audio bytes.
	Data []byte

	// MIME identifies the container, e.g. audio/wav.
	MIME string

	// Duration is the known playback length, or zero when unknown.
	Duration time.Duration
}

// Playback is one in-flight clip on a device.
type Playback interface {
	// Done is closed when the clip finishes or is stopped.
	Done() <-chan struct{}

	// Stop halts the clip immediately. Idempotent.
	Stop() error
}

// Sink starts clips on a physical or virtual output device.
type Sink interface {
	// Begin starts playing the clip and returns its playback handle.
	Begin(clip Clip) (Playback, error)

	// Close releases the device.
	Close() error
}
