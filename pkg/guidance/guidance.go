// Package guidance turns a routed path into an ordered list of maneuver
// instructions by walking the path and classifying bearing changes.
package guidance

import (
	"context"
	"fmt"
	"sync"

	"github.com/safepath/buddy/internal/log"
	"github.com/safepath/buddy/pkg/geo"
)

// Maneuver identifies the type of a guidance instruction.
type Maneuver string

const (
	ManeuverStart       Maneuver = "start"
	ManeuverStraight    Maneuver = "straight"
	ManeuverSlightLeft  Maneuver = "slight-left"
	ManeuverSlightRight Maneuver = "slight-right"
	ManeuverLeft        Maneuver = "left"
	ManeuverRight       Maneuver = "right"
	ManeuverSharpLeft   Maneuver = "sharp-left"
	ManeuverSharpRight  Maneuver = "sharp-right"
	ManeuverArrive      Maneuver = "arrive"
)

// Instruction is a single maneuver point along the path.
type Instruction struct {
	// Index is the position in the instruction sequence; 0 is always start
	// and the last index is always arrive.
	Index int `json:"index"`

	Maneuver Maneuver `json:"maneuver"`

	// Label is a human-readable phrase for the maneuver ("Turn right").
	Label string `json:"label"`

	// Coordinate is the location where the maneuver happens.
	Coordinate geo.Point `json:"coordinate"`

	// DistanceFromPrevious is the length in meters of the path segment
	// immediately preceding this maneuver point, not cumulative distance.
	DistanceFromPrevious float64 `json:"distance_from_previous"`

	// StreetName is optionally filled in asynchronously after generation.
	StreetName string `json:"street_name,omitempty"`
}

// maneuverForTurn maps a turn class to a maneuver type.
func maneuverForTurn(t geo.Turn) Maneuver {
	switch t {
	case geo.TurnSlightLeft:
		return ManeuverSlightLeft
	case geo.TurnSlightRight:
		return ManeuverSlightRight
	case geo.TurnLeft:
		return ManeuverLeft
	case geo.TurnRight:
		return ManeuverRight
	case geo.TurnSharpLeft:
		return ManeuverSharpLeft
	case geo.TurnSharpRight:
		return ManeuverSharpRight
	default:
		return ManeuverStraight
	}
}

// labelFor returns the spoken phrase for a maneuver.
func labelFor(m Maneuver) string {
	switch m {
	case ManeuverStart:
		return "Head out"
	case ManeuverStraight:
		return "Continue straight"
	case ManeuverSlightLeft:
		return "Bear left"
	case ManeuverSlightRight:
		return "Bear right"
	case ManeuverLeft:
		return "Turn left"
	case ManeuverRight:
		return "Turn right"
	case ManeuverSharpLeft:
		return "Make a sharp left"
	case ManeuverSharpRight:
		return "Make a sharp right"
	case ManeuverArrive:
		return "You have arrived"
	default:
		return string(m)
	}
}

// Generate walks the path and emits an instruction at every non-straight
// bearing change. The first interior point is always emitted regardless of
// classification, so any multi-segment path has at least one guidance point
// between start and arrive. Paths shorter than two points yield nil.
func Generate(path []geo.Point) []Instruction {
	if len(path) < 2 {
		return nil
	}

	instructions := []Instruction{{
		Index:      0,
		Maneuver:   ManeuverStart,
		Label:      labelFor(ManeuverStart),
		Coordinate: path[0],
	}}

	for i := 1; i < len(path)-1; i++ {
		in := geo.Bearing(path[i-1], path[i])
		out := geo.Bearing(path[i], path[i+1])
		turn := geo.ClassifyTurn(geo.BearingDelta(in, out))

		if turn == geo.TurnStraight && i != 1 {
			continue
		}

		m := maneuverForTurn(turn)
		instructions = append(instructions, Instruction{
			Index:                len(instructions),
			Maneuver:             m,
			Label:                labelFor(m),
			Coordinate:           path[i],
			DistanceFromPrevious: geo.Distance(path[i-1], path[i]),
		})
	}

	last := len(path) - 1
	instructions = append(instructions, Instruction{
		Index:                len(instructions),
		Maneuver:             ManeuverArrive,
		Label:                labelFor(ManeuverArrive),
		Coordinate:           path[last],
		DistanceFromPrevious: geo.Distance(path[last-1], path[last]),
	})

	return instructions
}

// Geocoder resolves a coordinate to a street name.
type Geocoder interface {
	StreetName(ctx context.Context, p geo.Point) (string, error)
}

// EnrichStreetNames fills in StreetName on each instruction using the
// geocoder. It runs the lookups concurrently and mutates the slice in place
// without changing order or count; lookup failures leave the name empty.
// It returns a channel that is closed when enrichment finishes.
func EnrichStreetNames(ctx context.Context, instructions []Instruction, gc Geocoder) <-chan struct{} {
	done := make(chan struct{})
	if gc == nil || len(instructions) == 0 {
		close(done)
		return done
	}

	go func() {
		defer close(done)
		var wg sync.WaitGroup
		for i := range instructions {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				name, err := gc.StreetName(ctx, instructions[i].Coordinate)
				if err != nil {
					log.Debug("street name lookup failed",
						"index", i, "error", err)
					return
				}
				instructions[i].StreetName = name
			}(i)
		}
		wg.Wait()
	}()
	return done
}

// SpokenText renders an instruction as a full spoken sentence, including the
// street name when known and the approach distance when positive.
func SpokenText(in Instruction, distance float64) string {
	text := in.Label
	if in.StreetName != "" && in.Maneuver != ManeuverStart && in.Maneuver != ManeuverArrive {
		text = fmt.Sprintf("%s onto %s", text, in.StreetName)
	}
	if distance > 0 {
		return fmt.Sprintf("In %.0f meters, %s.", distance, lowerFirst(text))
	}
	return text + "."
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	if r[0] >= 'A' && r[0] <= 'Z' {
		r[0] += 'a' - 'A'
	}
	return string(r)
}
