package call

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/safepath/buddy/internal/log"
	"github.com/safepath/buddy/pkg/audio"
	"github.com/safepath/buddy/pkg/convo"
	"github.com/safepath/buddy/pkg/geo"
	"github.com/safepath/buddy/pkg/guidance"
	"github.com/safepath/buddy/pkg/routing"
)

// apology is spoken when the conversational backend is unreachable.
const apology = "Sorry, my brain glitched for a second there. Mind saying that again?"

// reply is what one handled utterance produces.
type reply struct {
	text    string
	clip    *audio.Clip
	endCall bool
}

var endCallPhrases = []string{
	"end call", "end the call", "hang up", "goodbye", "good bye", "bye buddy", "stop talking",
}

var startNavPhrases = []string{
	"start navigation", "start the trip", "start walking", "let's go", "lets go", "start the route",
}

// handle classifies one utterance: end-call keyword, start-navigation
// keyword, a travel-mode answer to a pending clarification, a local
// navigation question, or a general utterance for the backend.
func (m *Manager) handle(ctx context.Context, gen uint64, text string) reply {
	norm := strings.ToLower(strings.TrimSpace(text))

	if matchesAny(norm, endCallPhrases) {
		return reply{text: "Take care! Ending the call now.", endCall: true}
	}

	if pending := m.takePending(); pending != nil {
		if mode := parseTravelMode(norm); mode != "" {
			return m.forward(ctx, gen, &convo.ChatRequest{
				Message:            text,
				PendingParsed:      pending,
				SelectedTravelMode: mode,
				NavState:           m.navigator.NavState(),
				Voice:              true,
			})
		}
		// Not a mode answer; keep the clarification pending and
		// treat the utterance normally.
		m.setPending(gen, pending)
	}

	if matchesAny(norm, startNavPhrases) {
		return m.startNavigation(ctx)
	}

	if answer, ok := m.localAnswer(norm); ok {
		return reply{text: answer}
	}

	return m.forward(ctx, gen, &convo.ChatRequest{
		Message:  text,
		NavState: m.navigator.NavState(),
		Voice:    true,
	})
}

func (m *Manager) startNavigation(ctx context.Context) reply {
	if m.navigator.Navigating() {
		return reply{text: "You're already on your way. I'm watching the route."}
	}
	if !m.navigator.HasRoute() {
		return reply{text: "I don't have a route yet. Tell me where you want to go first."}
	}
	start := m.opts.StartNavigation
	if start == nil {
		start = m.navigator.StartSimulated
	}
	if err := start(ctx); err != nil {
		log.Warn("start navigation failed", "error", err)
		return reply{text: "I had trouble starting navigation. Give it another try in a moment."}
	}
	return reply{text: "Starting navigation. I'll call out the turns as they come up."}
}

// localAnswer answers simple trip questions straight from the navigation
// state, with no network round trip.
func (m *Manager) localAnswer(norm string) (string, bool) {
	state := m.navigator.State()
	if !state.IsNavigating {
		return "", false
	}

	switch {
	case strings.Contains(norm, "how far") ||
		(strings.Contains(norm, "distance") && containsAny(norm, "left", "remaining", "to go")):
		if state.Arrived {
			return "You're there! No distance left.", true
		}
		return fmt.Sprintf("You have about %s to go.", speakDistance(state.DistanceRemaining)), true

	case strings.Contains(norm, "how long") ||
		strings.Contains(norm, "how much time") ||
		strings.Contains(norm, "time left"):
		if state.Arrived {
			return "You've already arrived.", true
		}
		return fmt.Sprintf("About %s left at your pace.", speakMinutes(state.TimeRemaining)), true

	case containsAny(norm, "what's next", "whats next", "next turn", "where do i turn", "next instruction"):
		if in, dist, ok := m.navigator.NextManeuver(); ok {
			return guidance.SpokenText(in, dist), true
		}
		return "Just keep heading to your destination, no more turns.", true

	case containsAny(norm, "am i on the right", "am i on route", "am i on track", "off route", "off track"):
		if state.OffRoute {
			return "You've drifted off the route. Head back the way you came and I'll pick it up.", true
		}
		return "Yep, you're right on track.", true

	case strings.Contains(norm, "where am i"):
		return fmt.Sprintf("You're about %.0f percent of the way there, %s left.",
			state.ProgressPercent, speakDistance(state.DistanceRemaining)), true
	}
	return "", false
}

// forward sends the utterance to the conversational backend and turns the
// response into speech. Transport failures become a spoken apology; the
// call always continues.
func (m *Manager) forward(ctx context.Context, gen uint64, req *convo.ChatRequest) reply {
	resp, err := m.chat.Chat(ctx, req)
	if err != nil {
		if ctx.Err() != nil {
			return reply{}
		}
		log.Warn("chat backend unreachable", "error", err)
		return reply{text: apology}
	}

	r := reply{text: resp.SpokenText()}
	if data, mime, err := resp.DecodeAudio(); err == nil && len(data) > 0 {
		r.clip = &audio.Clip{Data: data, MIME: mime}
	}

	switch resp.Status {
	case convo.StatusSuccess:
		if route := routeFromResponse(resp); route != nil {
			if err := m.navigator.Load(route); err != nil {
				log.Warn("route load failed", "error", err)
			} else if r.text != "" {
				r.text += " Say start navigation when you're ready."
			}
		}
	case convo.StatusNeedTravelMode:
		m.setPending(gen, resp.PendingParsed)
	}

	if r.text == "" && r.clip == nil {
		r.text = apology
	}
	return r
}

// routeFromResponse builds the navigable route from a successful chat
// reply, preferring the safest geometry.
func routeFromResponse(resp *convo.ChatResponse) *routing.Route {
	if resp.RouteData == nil {
		return nil
	}
	coords := resp.RouteData.SafestRoute
	duration := resp.RouteData.Metrics.TotalTime + resp.RouteData.Metrics.ExtraTimeSeconds
	if len(coords) < 2 {
		coords = resp.RouteData.FastestRoute
		duration = resp.RouteData.Metrics.TotalTime
	}
	if len(coords) < 2 {
		return nil
	}

	path := make([]geo.Point, 0, len(coords))
	for _, c := range coords {
		if len(c) != 2 {
			return nil
		}
		path = append(path, geo.Point{Lat: c[0], Lng: c[1]})
	}

	mode := convo.ModeWalking
	if resp.Parsed != nil && resp.Parsed.TravelMode != "" {
		mode = resp.Parsed.TravelMode
	}
	return &routing.Route{
		Path:              path,
		TravelMode:        mode,
		Distance:          geo.PathLength(path),
		EstimatedDuration: time.Duration(duration * float64(time.Second)),
	}
}

// parseTravelMode extracts a travel mode from a clarification answer.
func parseTravelMode(norm string) string {
	switch {
	case containsAny(norm, "walk", "foot"):
		return convo.ModeWalking
	case containsAny(norm, "driv", "car"):
		return convo.ModeDriving
	case containsAny(norm, "bik", "cycl"):
		return convo.ModeCycling
	}
	return ""
}

func matchesAny(norm string, phrases []string) bool {
	for _, p := range phrases {
		if strings.Contains(norm, p) {
			return true
		}
	}
	return false
}

func containsAny(norm string, subs ...string) bool {
	for _, s := range subs {
		if strings.Contains(norm, s) {
			return true
		}
	}
	return false
}

func speakDistance(meters float64) string {
	if meters < 1000 {
		rounded := math.Round(meters/10) * 10
		return fmt.Sprintf("%.0f meters", rounded)
	}
	return fmt.Sprintf("%.1f kilometers", meters/1000)
}

func speakMinutes(seconds float64) string {
	minutes := int(math.Round(seconds / 60))
	if minutes < 1 {
		return "less than a minute"
	}
	if minutes == 1 {
		return "a minute"
	}
	return fmt.Sprintf("%d minutes", minutes)
}
