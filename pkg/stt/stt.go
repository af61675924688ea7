// Package stt defines the speech recognition surface used by the call loop.
// A Recognizer resolves at most one utterance per Listen call; a listen that
// hits its timeout resolves to empty text rather than an error, so the loop
// treats silence the same as an empty reply.
package stt

import (
	"context"
	"errors"
	"time"
)

// Common errors returned by recognizers.
var (
	ErrNotConnected = errors.New("stt: recognizer not connected")
	ErrBusy         = errors.New("stt: listen already in progress")
	ErrClosed       = errors.New("stt: recognizer closed")
)

// DefaultListenTimeout caps a single listen before it resolves empty.
const DefaultListenTimeout = 30 * time.Second

// Recognizer captures one utterance of user speech.
type Recognizer interface {
	// Listen blocks until a final transcript arrives, the timeout
	// elapses (empty text, nil error), or ctx is cancelled.
	Listen(ctx context.Context) (string, error)

	// Stop aborts an in-flight Listen, resolving it with empty text.
	Stop()

	// Available reports whether the recognizer is usable on this
	// platform and not closed. It stays true while a Listen is in
	// flight; overlapping Listens fail with ErrBusy instead.
	Available() bool

	// Close releases the recognizer. Subsequent Listens fail.
	Close() error
}
