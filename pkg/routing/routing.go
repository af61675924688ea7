// Package routing fetches risk-aware routes from the buddy backend. The
// backend computes two options per trip, the fastest path and the safest
// one, over a crime-risk-weighted street graph.
package routing

import (
	"context"
	"errors"
	"time"

	"github.com/safepath/buddy/pkg/geo"
)

// Common errors.
var (
	ErrNoBaseURL  = errors.New("routing: base URL required")
	ErrEmptyRoute = errors.New("routing: backend returned an empty route")
)

// Nominal speeds per travel mode, used to estimate trip duration when the
// backend gives only geometry.
var modeSpeeds = map[string]float64{
	"walking": 1.4,  // m/s
	"cycling": 4.2,  // m/s
	"driving": 11.0, // m/s, city traffic
}

// Request describes one route query.
type Request struct {
	Start      geo.Point `json:"-"`
	End        geo.Point `json:"-"`
	Beta       float64   `json:"beta,omitempty"`
	Hour       int       `json:"hour,omitempty"`
	IsWeekend  bool      `json:"is_weekend,omitempty"`
	TravelMode string    `json:"travel_mode,omitempty"`
}

// Route is one computed path plus its estimated duration.
type Route struct {
	Path              []geo.Point
	TravelMode        string
	Distance          float64
	EstimatedDuration time.Duration
}

// Comparison holds the fastest and safest options for one trip.
type Comparison struct {
	Fastest Route
	Safest  Route
	Metrics Metrics
}

// Metrics quantifies the fastest-versus-safest tradeoff.
type Metrics struct {
	TotalTime          float64 `json:"total_time"`
	TotalRisk          float64 `json:"total_risk"`
	ReductionInRiskPct float64 `json:"reduction_in_risk_pct"`
	ExtraTimeSeconds   float64 `json:"extra_time_seconds"`
}

// Client computes routes.
type Client interface {
	// GetRoute returns a single route for the request's risk tradeoff.
	GetRoute(ctx context.Context, req Request) (*Route, error)

	// CompareRoutes returns the fastest and safest options side by side.
	CompareRoutes(ctx context.Context, req Request) (*Comparison, error)
}

// buildRoute assembles a Route from raw [lat, lng] pairs.
func buildRoute(coords [][]float64, mode string) (*Route, error) {
	if len(coords) < 2 {
		return nil, ErrEmptyRoute
	}
	path := make([]geo.Point, 0, len(coords))
	for _, c := range coords {
		if len(c) != 2 {
			return nil, ErrEmptyRoute
		}
		path = append(path, geo.Point{Lat: c[0], Lng: c[1]})
	}

	dist := geo.PathLength(path)
	speed, ok := modeSpeeds[mode]
	if !ok {
		speed = modeSpeeds["walking"]
	}
	return &Route{
		Path:              path,
		TravelMode:        mode,
		Distance:          dist,
		EstimatedDuration: time.Duration(dist / speed * float64(time.Second)),
	}, nil
}
