package stt

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/safepath/buddy/internal/log"
)

// transcriptMsg is one message from the transcription stream.
type transcriptMsg struct {
	Text  string `json:"text"`
	Final bool   `json:"final"`
}

// WSRecognizer streams interim transcripts from a transcription websocket
// and resolves Listen on the first final one. The connection is dialed
// lazily on the first Listen and reused across calls.
type WSRecognizer struct {
	URL     string
	Dialer  *websocket.Dialer
	Timeout time.Duration

	mu     sync.Mutex
	conn   *websocket.Conn
	busy   bool
	abort  chan struct{}
	closed bool
}

var _ Recognizer = (*WSRecognizer)(nil)

// NewWSRecognizer creates a recognizer for the given transcription endpoint.
func NewWSRecognizer(url string) *WSRecognizer {
	return &WSRecognizer{
		URL:     url,
		Dialer:  websocket.DefaultDialer,
		Timeout: DefaultListenTimeout,
	}
}

// Listen blocks until a final transcript, the listen timeout, Stop, or ctx.
func (r *WSRecognizer) Listen(ctx context.Context) (string, error) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return "", ErrClosed
	}
	if r.busy {
		r.mu.Unlock()
		return "", ErrBusy
	}
	if r.conn == nil {
		conn, _, err := r.Dialer.DialContext(ctx, r.URL, nil)
		if err != nil {
			r.mu.Unlock()
			return "", err
		}
		r.conn = conn
	}
	conn := r.conn
	abort := make(chan struct{})
	r.abort = abort
	r.busy = true
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		r.busy = false
		r.abort = nil
		r.mu.Unlock()
	}()

	results := make(chan string, 1)
	readErr := make(chan error, 1)
	go func() {
		for {
			var msg transcriptMsg
			if err := conn.ReadJSON(&msg); err != nil {
				readErr <- err
				return
			}
			if msg.Final {
				results <- msg.Text
				return
			}
			log.Debug("interim transcript", "text", msg.Text)
		}
	}()

	timer := time.NewTimer(r.Timeout)
	defer timer.Stop()

	select {
	case text := <-results:
		return text, nil
	case err := <-readErr:
		r.dropConn()
		return "", err
	case <-timer.C:
		// Dropping the connection unblocks the reader goroutine.
		log.Debug("listen timed out, resolving empty")
		r.dropConn()
		return "", nil
	case <-abort:
		r.dropConn()
		return "", nil
	case <-ctx.Done():
		r.dropConn()
		return "", ctx.Err()
	}
}

// Stop aborts an in-flight Listen with empty text.
func (r *WSRecognizer) Stop() {
	r.mu.Lock()
	abort := r.abort
	r.abort = nil
	r.mu.Unlock()
	if abort != nil {
		close(abort)
	}
}

// Available reports whether the recognizer is usable at all. A Listen in
// flight does not make it unavailable; concurrent Listens get ErrBusy.
func (r *WSRecognizer) Available() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return !r.closed
}

// Close shuts the connection down. Idempotent.
func (r *WSRecognizer) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true
	if r.conn != nil {
		err := r.conn.Close()
		r.conn = nil
		return err
	}
	return nil
}

func (r *WSRecognizer) dropConn() {
	r.mu.Lock()
	if r.conn != nil {
		r.conn.Close()
		r.conn = nil
	}
	r.mu.Unlock()
}
