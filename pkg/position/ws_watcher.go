package position

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/safepath/buddy/pkg/geo"
)

// wsFix is the wire format of a device location fix.
type wsFix struct {
	Lat       float64 `json:"lat"`
	Lng       float64 `json:"lng"`
	Accuracy  float64 `json:"accuracy"`
	Timestamp int64   `json:"timestamp"` // unix millis; 0 means "now"
}

// WSWatcher subscribes to a websocket endpoint that streams device location
// fixes as JSON. Read errors are surfaced to the callback as transient and
// the connection is re-dialed with backoff until cancelled.
type WSWatcher struct {
	URL    string
	Dialer *websocket.Dialer

	// ReconnectDelay is the pause before re-dialing after a dropped
	// connection. Defaults to 2s.
	ReconnectDelay time.Duration
}

// NewWSWatcher creates a watcher for the given websocket URL.
func NewWSWatcher(url string) *WSWatcher {
	return &WSWatcher{
		URL:            url,
		Dialer:         websocket.DefaultDialer,
		ReconnectDelay: 2 * time.Second,
	}
}

// wsSession tracks the current connection so cancel always closes the live
// one, including connections established by a redial.
type wsSession struct {
	mu   sync.Mutex
	conn *websocket.Conn
	done chan struct{}
	once sync.Once
}

func (s *wsSession) setConn(c *websocket.Conn) {
	s.mu.Lock()
	s.conn = c
	s.mu.Unlock()
}

func (s *wsSession) cancel() {
	s.once.Do(func() {
		close(s.done)
		s.mu.Lock()
		if s.conn != nil {
			s.conn.Close()
		}
		s.mu.Unlock()
	})
}

func (s *wsSession) cancelled() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

// Watch dials the endpoint and delivers fixes to fn until cancelled. The
// initial dial must succeed; later drops reconnect in the background.
func (w *WSWatcher) Watch(ctx context.Context, fn func(Sample, error)) (func(), error) {
	conn, _, err := w.Dialer.DialContext(ctx, w.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("position: dial %s: %w", w.URL, err)
	}

	sess := &wsSession{conn: conn, done: make(chan struct{})}
	go w.readLoop(ctx, sess, fn)
	return sess.cancel, nil
}

func (w *WSWatcher) readLoop(ctx context.Context, sess *wsSession, fn func(Sample, error)) {
	for {
		sess.mu.Lock()
		conn := sess.conn
		sess.mu.Unlock()

		_, data, err := conn.ReadMessage()
		if err != nil {
			conn.Close()
			if sess.cancelled() || ctx.Err() != nil {
				return
			}

			// Transient drop: report and re-dial.
			fn(Sample{}, fmt.Errorf("position: stream read: %w", err))
			next, ok := w.redial(ctx, sess)
			if !ok {
				return
			}
			sess.setConn(next)
			continue
		}

		var fix wsFix
		if err := json.Unmarshal(data, &fix); err != nil {
			fn(Sample{}, fmt.Errorf("position: bad fix payload: %w", err))
			continue
		}

		at := time.Now()
		if fix.Timestamp > 0 {
			at = time.UnixMilli(fix.Timestamp)
		}
		fn(Sample{
			Point:    geo.Point{Lat: fix.Lat, Lng: fix.Lng},
			Time:     at,
			Accuracy: fix.Accuracy,
		}, nil)
	}
}

// redial attempts to re-establish the connection until cancelled.
func (w *WSWatcher) redial(ctx context.Context, sess *wsSession) (*websocket.Conn, bool) {
	delay := w.ReconnectDelay
	if delay == 0 {
		delay = 2 * time.Second
	}
	for {
		select {
		case <-sess.done:
			return nil, false
		case <-ctx.Done():
			return nil, false
		case <-time.After(delay):
		}
		conn, _, err := w.Dialer.DialContext(ctx, w.URL, nil)
		if err == nil {
			return conn, true
		}
	}
}
