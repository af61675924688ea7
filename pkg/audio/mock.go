package audio

import (
	"sync"
	"time"
)

// MockSink records every clip and simulates playback by timer. Clips with
// zero duration play for PlayFor (default: until stopped).
type MockSink struct {
	// PlayFor substitutes for a clip's duration when it has none set.
	// Zero means the playback only ends via Stop.
	PlayFor time.Duration

	// BeginErr, when set, makes Begin fail.
	BeginErr error

	mu     sync.Mutex
	clips  []Clip
	active []*mockPlayback
	closed bool
}

var _ Sink = (*MockSink)(nil)

// NewMockSink creates a recording sink.
func NewMockSink() *MockSink {
	return &MockSink{}
}

func (m *MockSink) Begin(clip Clip) (Playback, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, ErrClosed
	}
	if m.BeginErr != nil {
		return nil, m.BeginErr
	}
	m.clips = append(m.clips, clip)

	pb := &mockPlayback{done: make(chan struct{})}
	m.active = append(m.active, pb)

	d := clip.Duration
	if d == 0 {
		d = m.PlayFor
	}
	if d > 0 {
		pb.timer = time.AfterFunc(d, pb.finish)
	}
	return pb, nil
}

func (m *MockSink) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Clips returns a copy of every clip that was started.
func (m *MockSink) Clips() []Clip {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Clip, len(m.clips))
	copy(out, m.clips)
	return out
}

// Stopped reports how many playbacks were stopped before finishing.
func (m *MockSink) Stopped() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, pb := range m.active {
		if pb.wasStopped() {
			n++
		}
	}
	return n
}

type mockPlayback struct {
	done    chan struct{}
	once    sync.Once
	timer   *time.Timer
	mu      sync.Mutex
	stopped bool
}

func (p *mockPlayback) Done() <-chan struct{} { return p.done }

func (p *mockPlayback) Stop() error {
	p.mu.Lock()
	p.stopped = true
	p.mu.Unlock()
	if p.timer != nil {
		p.timer.Stop()
	}
	p.finish()
	return nil
}

func (p *mockPlayback) wasStopped() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stopped
}

func (p *mockPlayback) finish() {
	p.once.Do(func() {
		close(p.done)
	})
}
