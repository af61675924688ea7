package position

import (
	"context"
	"sync"

	"github.com/safepath/buddy/internal/log"
)

// Watcher is the device-side location subscription. Watch delivers fixes to
// fn until the returned cancel function is called; transient failures are
// reported as a non-nil error with a zero Sample and must not end the
// subscription.
type Watcher interface {
	Watch(ctx context.Context, fn func(Sample, error)) (cancel func(), err error)
}

// Live adapts a Watcher into a Source. Transient watcher errors are logged
// and skipped; the stream only ends when Stop is called or the watcher's
// context is cancelled.
type Live struct {
	watcher Watcher
	out     chan Sample

	mu       sync.Mutex
	started  bool
	closed   bool
	cancel   func()
	stop     chan struct{}
	stopOnce sync.Once
}

// NewLive creates a live source backed by the given watcher.
func NewLive(w Watcher) *Live {
	return &Live{
		watcher: w,
		out:     make(chan Sample, 16),
		stop:    make(chan struct{}),
	}
}

// Samples returns the sample channel. It closes after Stop.
func (l *Live) Samples() <-chan Sample {
	return l.out
}

// Start subscribes to the watcher. A subscription failure here is permanent
// (permission denied, no provider); callers fall back to simulated mode.
func (l *Live) Start(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.started {
		return ErrAlreadyStarted
	}

	cancel, err := l.watcher.Watch(ctx, func(s Sample, err error) {
		if err != nil {
			// Transient sensor error: keep the stream alive.
			log.Warn("position fix error", "error", err)
			return
		}
		l.deliver(s)
	})
	if err != nil {
		return err
	}

	l.started = true
	l.cancel = cancel

	go func() {
		<-l.stop
		l.mu.Lock()
		c := l.cancel
		l.cancel = nil
		l.mu.Unlock()
		if c != nil {
			c()
		}
		// The watcher's cancel does not wait for an in-flight delivery;
		// flip closed under the same lock deliver holds so a late fix
		// cannot hit the closed channel.
		l.mu.Lock()
		l.closed = true
		close(l.out)
		l.mu.Unlock()
	}()
	return nil
}

// deliver forwards a fix to the consumer unless the source has been
// stopped. A full buffer drops the fix, a fresher one follows.
func (l *Live) deliver(s Sample) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return
	}
	select {
	case l.out <- s:
	default:
	}
}

// Stop unsubscribes from the watcher exactly once.
func (l *Live) Stop() {
	l.stopOnce.Do(func() {
		close(l.stop)
	})
}

var _ Source = (*Live)(nil)
