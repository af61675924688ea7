package stt

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// transcriptServer upgrades connections and replays scripted messages.
func transcriptServer(t *testing.T, msgs []transcriptMsg) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer conn.Close()
		for _, m := range msgs {
			if err := conn.WriteJSON(m); err != nil {
				return
			}
		}
		// Hold the connection open so the client decides when to stop.
		conn.ReadMessage()
	}))
}

func wsURL(s *httptest.Server) string {
	return "ws" + strings.TrimPrefix(s.URL, "http")
}

func TestWSRecognizer_ResolvesOnFinal(t *testing.T) {
	srv := transcriptServer(t, []transcriptMsg{
		{Text: "take", Final: false},
		{Text: "take me", Final: false},
		{Text: "take me home", Final: true},
	})
	defer srv.Close()

	r := NewWSRecognizer(wsURL(srv))
	defer r.Close()

	text, err := r.Listen(context.Background())
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	if text != "take me home" {
		t.Errorf("got %q, want final transcript", text)
	}
}

func TestWSRecognizer_TimeoutResolvesEmpty(t *testing.T) {
	srv := transcriptServer(t, nil)
	defer srv.Close()

	r := NewWSRecognizer(wsURL(srv))
	r.Timeout = 50 * time.Millisecond
	defer r.Close()

	start := time.Now()
	text, err := r.Listen(context.Background())
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	if text != "" {
		t.Errorf("timed-out listen returned %q, want empty", text)
	}
	if time.Since(start) > time.Second {
		t.Error("timeout took far longer than configured")
	}
}

func TestWSRecognizer_StopAborts(t *testing.T) {
	srv := transcriptServer(t, nil)
	defer srv.Close()

	r := NewWSRecognizer(wsURL(srv))
	defer r.Close()

	done := make(chan string, 1)
	go func() {
		text, _ := r.Listen(context.Background())
		done <- text
	}()

	// Give the listen a moment to begin before aborting it.
	time.Sleep(50 * time.Millisecond)
	r.Stop()

	select {
	case text := <-done:
		if text != "" {
			t.Errorf("aborted listen returned %q, want empty", text)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("stop did not resolve the listen")
	}
}

func TestWSRecognizer_ContextCancel(t *testing.T) {
	srv := transcriptServer(t, nil)
	defer srv.Close()

	r := NewWSRecognizer(wsURL(srv))
	defer r.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := r.Listen(ctx)
		done <- err
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != context.Canceled {
			t.Errorf("got %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("cancel did not resolve the listen")
	}
}

func TestWSRecognizer_BusyAndClosed(t *testing.T) {
	srv := transcriptServer(t, nil)
	defer srv.Close()

	r := NewWSRecognizer(wsURL(srv))

	go r.Listen(context.Background())
	time.Sleep(50 * time.Millisecond)

	// An in-flight listen must not flip availability; a fresh call can
	// still decide to abandon this one and start over.
	if !r.Available() {
		t.Error("recognizer reported unavailable mid-listen")
	}
	if _, err := r.Listen(context.Background()); err != ErrBusy {
		t.Errorf("concurrent listen: got %v, want ErrBusy", err)
	}

	r.Stop()
	if err := r.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := r.Close(); err != nil {
		t.Errorf("second close: %v", err)
	}
	if r.Available() {
		t.Error("recognizer reported available after close")
	}
	if _, err := r.Listen(context.Background()); err != ErrClosed {
		t.Errorf("listen after close: got %v, want ErrClosed", err)
	}
}

func TestMock_ScriptAndExhaustion(t *testing.T) {
	m := NewMock("hello", "end call")

	for _, want := range []string{"hello", "end call", ""} {
		got, err := m.Listen(context.Background())
		if err != nil {
			t.Fatalf("listen: %v", err)
		}
		if got != want {
			t.Errorf("got %q, want %q", got, want)
		}
	}
	if m.Calls() != 3 {
		t.Errorf("calls = %d, want 3", m.Calls())
	}
}
