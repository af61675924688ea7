package tts

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func ttsServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	return httptest.NewServer(handler)
}

func TestBackend_Synthesize(t *testing.T) {
	wav := []byte("RIFFfakewavdata")
	srv := ttsServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/tts" {
			t.Errorf("path = %q, want /tts", r.URL.Path)
		}
		var req map[string]string
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req["text"] != "turn right" {
			t.Errorf("text = %q", req["text"])
		}
		w.Header().Set("Content-Type", "audio/wav")
		w.Write(wav)
	})
	defer srv.Close()

	p, err := NewBackend(WithBaseURL(srv.URL))
	if err != nil {
		t.Fatalf("new backend: %v", err)
	}
	defer p.Close()

	result, err := p.Synthesize(context.Background(), "turn right")
	if err != nil {
		t.Fatalf("synthesize: %v", err)
	}
	if string(result.Audio) != string(wav) {
		t.Error("audio bytes do not match response body")
	}
	if result.Format.Encoding != EncodingWAV {
		t.Errorf("encoding = %q, want wav", result.Format.Encoding)
	}
	if result.CharCount != len("turn right") {
		t.Errorf("char count = %d", result.CharCount)
	}
}

func TestBackend_EmptyText(t *testing.T) {
	p, err := NewBackend(WithBaseURL("http://localhost:1"))
	if err != nil {
		t.Fatalf("new backend: %v", err)
	}
	if _, err := p.Synthesize(context.Background(), "   "); err != ErrEmptyText {
		t.Errorf("got %v, want ErrEmptyText", err)
	}
}

func TestBackend_RequiresBaseURL(t *testing.T) {
	if _, err := NewBackend(); err != ErrNoBaseURL {
		t.Errorf("got %v, want ErrNoBaseURL", err)
	}
}

func TestBackend_APIError(t *testing.T) {
	srv := ttsServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{"error": "No text provided"})
	})
	defer srv.Close()

	p, _ := NewBackend(WithBaseURL(srv.URL))
	_, err := p.Synthesize(context.Background(), "hello")

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("got %T, want *APIError", err)
	}
	if apiErr.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d", apiErr.StatusCode)
	}
	if apiErr.Message != "No text provided" {
		t.Errorf("message = %q", apiErr.Message)
	}
	if apiErr.IsRetryable() {
		t.Error("400 must not be retryable")
	}
}

func TestBackend_RetriesServerErrors(t *testing.T) {
	var hits atomic.Int32
	srv := ttsServer(t, func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "audio/wav")
		w.Write([]byte("audio"))
	})
	defer srv.Close()

	p, _ := NewBackend(WithBaseURL(srv.URL), WithRetries(2, 10*time.Millisecond))
	result, err := p.Synthesize(context.Background(), "hello")
	if err != nil {
		t.Fatalf("synthesize after retry: %v", err)
	}
	if string(result.Audio) != "audio" {
		t.Error("unexpected audio after retry")
	}
	if hits.Load() != 2 {
		t.Errorf("hits = %d, want 2", hits.Load())
	}
}

func TestChain_FallsBack(t *testing.T) {
	failing := NewMock()
	failing.SynthesizeFunc = func(ctx context.Context, text string) (*AudioResult, error) {
		return nil, &APIError{StatusCode: 503, Message: "down", Provider: "backend"}
	}
	healthy := NewMock()

	chain := NewChain(failing, healthy)
	result, err := chain.Synthesize(context.Background(), "hello")
	if err != nil {
		t.Fatalf("chain: %v", err)
	}
	if result == nil || len(result.Audio) == 0 {
		t.Error("fallback produced no audio")
	}
	if got := healthy.SynthesizedTexts(); len(got) != 1 || got[0] != "hello" {
		t.Errorf("fallback calls = %v", got)
	}
}

func TestChain_StopsOnNonRetryable(t *testing.T) {
	failing := NewMock()
	failing.SynthesizeFunc = func(ctx context.Context, text string) (*AudioResult, error) {
		return nil, &APIError{StatusCode: 400, Message: "bad input", Provider: "backend"}
	}
	second := NewMock()

	chain := NewChain(failing, second)
	if _, err := chain.Synthesize(context.Background(), "hello"); err == nil {
		t.Fatal("expected error")
	}
	if len(second.SynthesizedTexts()) != 0 {
		t.Error("chain fell through on a non-retryable error")
	}
}

func TestEstimateDuration(t *testing.T) {
	format := AudioFormat{Encoding: EncodingPCM24, SampleRate: 24000}
	// One second of 24kHz PCM16 is 48000 bytes.
	d := estimateDuration(48000, format)
	if d != time.Second {
		t.Errorf("duration = %v, want 1s", d)
	}
}
