package convo

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func chatServer(t *testing.T, reply any) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat" {
			t.Errorf("path = %q, want /chat", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(reply)
	}))
}

func TestChat_RoutedTrip(t *testing.T) {
	srv := chatServer(t, map[string]any{
		"status": "success",
		"parsed": map[string]any{
			"start_name":   "Union Station",
			"end_name":     "Millennium Park",
			"travel_mode":  "walking",
			"start_coords": []float64{41.8786, -87.6403},
			"end_coords":   []float64{41.8826, -87.6226},
		},
		"route_data": map[string]any{
			"fastest_route": [][]float64{{41.8786, -87.6403}, {41.8826, -87.6226}},
			"safest_route":  [][]float64{{41.8786, -87.6403}, {41.8800, -87.6300}, {41.8826, -87.6226}},
			"metrics": map[string]any{
				"total_time":            900.0,
				"total_risk":            3.2,
				"reduction_in_risk_pct": 18.5,
				"extra_time_seconds":    120.0,
			},
		},
		"ai_summary": "The safest way adds two minutes.",
	})
	defer srv.Close()

	c, err := NewHTTPClient(srv.URL, 5*time.Second)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	reply, err := c.Chat(context.Background(), &ChatRequest{Message: "take me to millennium park"})
	if err != nil {
		t.Fatalf("chat: %v", err)
	}
	if reply.Status != StatusSuccess {
		t.Fatalf("status = %q", reply.Status)
	}
	if reply.RouteData == nil || len(reply.RouteData.SafestRoute) != 3 {
		t.Fatal("route data missing or wrong shape")
	}
	if reply.RouteData.Metrics.ExtraTimeSeconds != 120 {
		t.Errorf("extra time = %v", reply.RouteData.Metrics.ExtraTimeSeconds)
	}
	if reply.SpokenText() != "The safest way adds two minutes." {
		t.Errorf("spoken = %q", reply.SpokenText())
	}
}

func TestChat_NeedTravelMode(t *testing.T) {
	srv := chatServer(t, map[string]any{
		"status":  "need_travel_mode",
		"message": "Are you walking, driving, or biking?",
		"pending_parsed": map[string]any{
			"start_name": "here",
			"end_name":   "the lake",
		},
	})
	defer srv.Close()

	c, _ := NewHTTPClient(srv.URL, 5*time.Second)
	reply, err := c.Chat(context.Background(), &ChatRequest{Message: "get me to the lake"})
	if err != nil {
		t.Fatalf("chat: %v", err)
	}
	if reply.Status != StatusNeedTravelMode {
		t.Fatalf("status = %q", reply.Status)
	}
	if reply.PendingParsed == nil || reply.PendingParsed.EndName != "the lake" {
		t.Error("pending parse not carried through")
	}
}

func TestChat_ErrorStatusIsSpeakable(t *testing.T) {
	srv := chatServer(t, map[string]any{
		"status":     "error",
		"error_type": "geocode_failed",
		"message":    "I couldn't find that place.",
	})
	defer srv.Close()

	c, _ := NewHTTPClient(srv.URL, 5*time.Second)
	reply, err := c.Chat(context.Background(), &ChatRequest{Message: "go to xyzzy"})
	if err != nil {
		t.Fatalf("error status must not be a transport error: %v", err)
	}
	if reply.Status != StatusError || reply.SpokenText() == "" {
		t.Errorf("reply = %+v", reply)
	}
}

func TestChat_BundledAudio(t *testing.T) {
	audio := []byte("RIFFwavbytes")
	srv := chatServer(t, map[string]any{
		"status":     "chat",
		"message":    "Hello there!",
		"audio":      base64.StdEncoding.EncodeToString(audio),
		"audio_mime": "audio/wav",
	})
	defer srv.Close()

	c, _ := NewHTTPClient(srv.URL, 5*time.Second)
	reply, err := c.Chat(context.Background(), &ChatRequest{Message: "hi", Voice: true})
	if err != nil {
		t.Fatalf("chat: %v", err)
	}
	if !reply.HasAudio() {
		t.Fatal("audio not detected")
	}
	data, mime, err := reply.DecodeAudio()
	if err != nil {
		t.Fatalf("decode audio: %v", err)
	}
	if string(data) != string(audio) || mime != "audio/wav" {
		t.Errorf("decoded %q (%s)", data, mime)
	}
}

func TestChat_TravelModeFollowUp(t *testing.T) {
	var got ChatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&got)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"status": "success"})
	}))
	defer srv.Close()

	c, _ := NewHTTPClient(srv.URL, 5*time.Second)
	_, err := c.Chat(context.Background(), &ChatRequest{
		PendingParsed:      &ParsedRoute{StartName: "here", EndName: "the lake"},
		SelectedTravelMode: ModeWalking,
	})
	if err != nil {
		t.Fatalf("follow-up: %v", err)
	}
	if got.SelectedTravelMode != ModeWalking || got.PendingParsed == nil {
		t.Errorf("request = %+v", got)
	}
}

func TestChat_RejectsEmpty(t *testing.T) {
	c, _ := NewHTTPClient("http://localhost:1", time.Second)
	if _, err := c.Chat(context.Background(), &ChatRequest{Message: "  "}); err != ErrEmptyMsg {
		t.Errorf("got %v, want ErrEmptyMsg", err)
	}
	if _, err := c.Chat(context.Background(), nil); err != ErrEmptyMsg {
		t.Errorf("nil request: got %v, want ErrEmptyMsg", err)
	}
}

func TestMock_ScriptOrder(t *testing.T) {
	m := NewMock(
		&ChatResponse{Status: StatusNeedTravelMode, Message: "How are you traveling?"},
		&ChatResponse{Status: StatusSuccess},
	)

	first, _ := m.Chat(context.Background(), &ChatRequest{Message: "route me"})
	second, _ := m.Chat(context.Background(), &ChatRequest{Message: "walking"})
	third, _ := m.Chat(context.Background(), &ChatRequest{Message: "thanks"})

	if first.Status != StatusNeedTravelMode || second.Status != StatusSuccess {
		t.Errorf("script order broken: %v then %v", first.Status, second.Status)
	}
	if third.Status != StatusChat {
		t.Errorf("exhausted script status = %q", third.Status)
	}
	if len(m.Requests()) != 3 {
		t.Errorf("requests = %d", len(m.Requests()))
	}
}
