package hub

import (
	"encoding/json"
	"testing"
	"time"
)

// fakeClient builds a client without a websocket connection so the run
// loop can be exercised directly.
func fakeClient(h *Hub, buffer int) *Client {
	return &Client{
		ID:   "test-client",
		hub:  h,
		send: make(chan []byte, buffer),
	}
}

func waitForCount(t *testing.T, h *Hub, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if h.ClientCount() == want {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("client count = %d, want %d", h.ClientCount(), want)
}

func TestBroadcastReachesClients(t *testing.T) {
	h := New("test")
	go h.Run()
	defer h.Stop()

	a := fakeClient(h, 4)
	b := fakeClient(h, 4)
	h.register <- a
	h.register <- b
	waitForCount(t, h, 2)

	h.Broadcast([]byte("hello"))

	for _, c := range []*Client{a, b} {
		select {
		case msg := <-c.send:
			if string(msg) != "hello" {
				t.Errorf("got %q, want hello", msg)
			}
		case <-time.After(time.Second):
			t.Fatal("client never received broadcast")
		}
	}
}

func TestBroadcastJSON(t *testing.T) {
	h := New("test")
	go h.Run()
	defer h.Stop()

	c := fakeClient(h, 4)
	h.register <- c
	waitForCount(t, h, 1)

	if err := h.BroadcastJSON(map[string]int{"step": 3}); err != nil {
		t.Fatalf("BroadcastJSON() error = %v", err)
	}

	select {
	case msg := <-c.send:
		var got map[string]int
		if err := json.Unmarshal(msg, &got); err != nil {
			t.Fatalf("payload not JSON: %v", err)
		}
		if got["step"] != 3 {
			t.Errorf("step = %d, want 3", got["step"])
		}
	case <-time.After(time.Second):
		t.Fatal("client never received broadcast")
	}
}

func TestSlowClientIsDropped(t *testing.T) {
	h := New("test")
	go h.Run()
	defer h.Stop()

	slow := fakeClient(h, 1)
	h.register <- slow
	waitForCount(t, h, 1)

	// First message fills the buffer, second one finds it full.
	h.Broadcast([]byte("one"))
	h.Broadcast([]byte("two"))

	waitForCount(t, h, 0)
}

func TestUnregisterClosesSend(t *testing.T) {
	h := New("test")
	go h.Run()
	defer h.Stop()

	c := fakeClient(h, 4)
	h.register <- c
	waitForCount(t, h, 1)

	h.unregister <- c
	waitForCount(t, h, 0)

	select {
	case _, ok := <-c.send:
		if ok {
			t.Error("expected send channel to be closed")
		}
	case <-time.After(time.Second):
		t.Fatal("send channel not closed")
	}
}

func TestStopDisconnectsEveryone(t *testing.T) {
	h := New("test")
	go h.Run()

	c := fakeClient(h, 4)
	h.register <- c
	waitForCount(t, h, 1)

	h.Stop()
	h.Stop() // idempotent

	waitForCount(t, h, 0)

	// Broadcast after stop must not block.
	done := make(chan struct{})
	go func() {
		h.Broadcast([]byte("late"))
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Broadcast blocked after Stop")
	}
}
