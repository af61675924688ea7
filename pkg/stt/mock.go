package stt

import (
	"context"
	"sync"
)

// Mock is a scripted recognizer for tests. Each Listen consumes the next
// utterance from the script; an exhausted script resolves empty, like a
// timed-out listen.
type Mock struct {
	mu      sync.Mutex
	script  []string
	errs    []error
	calls   int
	stopped bool
	closed  bool

	// Block, when set, makes Listen wait for Stop or ctx instead of
	// resolving from the script.
	Block bool
	abort chan struct{}
}

var _ Recognizer = (*Mock)(nil)

// NewMock creates a recognizer that replays utterances in order.
func NewMock(utterances ...string) *Mock {
	return &Mock{script: utterances}
}

// FailWith queues an error for the next Listen call.
func (m *Mock) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errs = append(m.errs, err)
}

func (m *Mock) Listen(ctx context.Context) (string, error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return "", ErrClosed
	}
	m.calls++
	if len(m.errs) > 0 {
		err := m.errs[0]
		m.errs = m.errs[1:]
		m.mu.Unlock()
		return "", err
	}
	if m.Block {
		abort := make(chan struct{})
		m.abort = abort
		m.mu.Unlock()
		select {
		case <-abort:
			return "", nil
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if len(m.script) == 0 {
		m.mu.Unlock()
		return "", nil
	}
	text := m.script[0]
	m.script = m.script[1:]
	m.mu.Unlock()
	return text, nil
}

func (m *Mock) Stop() {
	m.mu.Lock()
	m.stopped = true
	abort := m.abort
	m.abort = nil
	m.mu.Unlock()
	if abort != nil {
		close(abort)
	}
}

func (m *Mock) Available() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return !m.closed
}

func (m *Mock) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Calls reports how many Listens have been made.
func (m *Mock) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Stopped reports whether Stop has been called.
func (m *Mock) Stopped() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stopped
}
