// Package convo talks to the buddy backend's conversational endpoint. One
// user utterance goes in with a snapshot of the navigation context; the
// reply is either small talk, a routed trip, a follow-up question about the
// travel mode, or an error message the assistant can speak as-is.
package convo

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
)

// Common errors.
var (
	ErrNoBaseURL = errors.New("convo: base URL required")
	ErrEmptyMsg  = errors.New("convo: empty message")
)

// Status classifies a chat reply.
type Status string

const (
	// StatusSuccess carries a fully routed trip.
	StatusSuccess Status = "success"

	// StatusChat is a conversational reply with no route.
	StatusChat Status = "chat"

	// StatusNeedTravelMode asks the user how they are traveling before
	// the route can be computed.
	StatusNeedTravelMode Status = "need_travel_mode"

	// StatusError carries a speakable error message.
	StatusError Status = "error"
)

// Travel modes accepted by the backend.
const (
	ModeWalking = "walking"
	ModeDriving = "driving"
	ModeCycling = "cycling"
)

// NavState is the navigation snapshot sent with each message so the
// assistant can answer questions about the trip in progress.
type NavState struct {
	IsNavigating      bool    `json:"is_navigating"`
	CurrentStep       int     `json:"current_step"`
	DistanceRemaining float64 `json:"distance_remaining"`
	TimeRemaining     float64 `json:"time_remaining"`
	ProgressPercent   float64 `json:"progress_percent"`
	OffRoute          bool    `json:"off_route"`
	TravelMode        string  `json:"travel_mode,omitempty"`
	NextInstruction   string  `json:"next_instruction,omitempty"`
}

// ChatRequest is the payload for one user utterance.
type ChatRequest struct {
	Message string `json:"message"`

	// UserHour is the local hour 0-23, used for time-dependent risk.
	UserHour *int `json:"user_hour,omitempty"`

	// NavState carries the in-progress trip, if any.
	NavState *NavState `json:"nav_state,omitempty"`

	// UserCoords is [lat, lng] of the device, for "from here" requests.
	UserCoords []float64 `json:"user_coords,omitempty"`

	// Voice asks the backend to bundle synthesized speech in the reply.
	Voice bool `json:"voice,omitempty"`

	// PendingParsed and SelectedTravelMode resume a need_travel_mode
	// exchange: the parsed request from the earlier reply plus the
	// mode the user chose.
	PendingParsed      *ParsedRoute `json:"pending_parsed,omitempty"`
	SelectedTravelMode string       `json:"selected_travel_mode,omitempty"`
}

// ParsedRoute is the backend's structured reading of a route request.
type ParsedRoute struct {
	StartName          string    `json:"start_name"`
	EndName            string    `json:"end_name"`
	TravelMode         string    `json:"travel_mode,omitempty"`
	TravelModeExplicit bool      `json:"travel_mode_explicit"`
	Beta               float64   `json:"beta,omitempty"`
	Hour               int       `json:"hour,omitempty"`
	IsWeekend          bool      `json:"is_weekend,omitempty"`
	StartCoords        []float64 `json:"start_coords,omitempty"`
	EndCoords          []float64 `json:"end_coords,omitempty"`
}

// RouteMetrics compares the fastest and safest route options.
type RouteMetrics struct {
	TotalTime          float64 `json:"total_time"`
	TotalRisk          float64 `json:"total_risk"`
	ReductionInRiskPct float64 `json:"reduction_in_risk_pct"`
	ExtraTimeSeconds   float64 `json:"extra_time_seconds"`
}

// RouteData holds both route geometries plus the comparison metrics.
// Coordinates are [lat, lng] pairs.
type RouteData struct {
	FastestRoute [][]float64  `json:"fastest_route"`
	SafestRoute  [][]float64  `json:"safest_route"`
	Metrics      RouteMetrics `json:"metrics"`
}

// ChatResponse is the backend's reply to one utterance.
type ChatResponse struct {
	Status    Status `json:"status"`
	Message   string `json:"message,omitempty"`
	ErrorType string `json:"error_type,omitempty"`

	Parsed        *ParsedRoute `json:"parsed,omitempty"`
	PendingParsed *ParsedRoute `json:"pending_parsed,omitempty"`

	RouteData      *RouteData `json:"route_data,omitempty"`
	SafetyBriefing string     `json:"safety_briefing,omitempty"`
	AISummary      string     `json:"ai_summary,omitempty"`

	// Audio is base64 speech for Message, present when the request set
	// Voice and synthesis succeeded.
	Audio     string `json:"audio,omitempty"`
	AudioMIME string `json:"audio_mime,omitempty"`
}

// HasAudio reports whether the reply bundles synthesized speech.
func (r *ChatResponse) HasAudio() bool {
	return r.Audio != ""
}

// DecodeAudio returns the bundled speech bytes and their MIME type.
func (r *ChatResponse) DecodeAudio() ([]byte, string, error) {
	if r.Audio == "" {
		return nil, "", nil
	}
	data, err := base64.StdEncoding.DecodeString(r.Audio)
	if err != nil {
		return nil, "", fmt.Errorf("convo: decode audio: %w", err)
	}
	return data, r.AudioMIME, nil
}

// SpokenText picks the sentence the assistant should say for this reply.
func (r *ChatResponse) SpokenText() string {
	switch r.Status {
	case StatusSuccess:
		if r.AISummary != "" {
			return r.AISummary
		}
		return r.Message
	default:
		return r.Message
	}
}

// Client sends utterances to the conversational backend.
type Client interface {
	Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error)
}
