package geo

import (
	"math"
	"testing"
)

const floatTolerance = 1e-9

func floatEquals(a, b float64) bool {
	return math.Abs(a-b) < floatTolerance
}

func TestInterpolate_Endpoints(t *testing.T) {
	a := Point{Lat: 40.750, Lng: -73.990}
	b := Point{Lat: 40.755, Lng: -73.980}

	if got := Interpolate(a, b, 0); got != a {
		t.Errorf("Interpolate(a, b, 0) = %v, want %v", got, a)
	}
	if got := Interpolate(a, b, 1); got != b {
		t.Errorf("Interpolate(a, b, 1) = %v, want %v", got, b)
	}
}

func TestInterpolate_Linear(t *testing.T) {
	a := Point{Lat: 10, Lng: 20}
	b := Point{Lat: 20, Lng: 40}

	mid := Interpolate(a, b, 0.5)
	if !floatEquals(mid.Lat, 15) || !floatEquals(mid.Lng, 30) {
		t.Errorf("midpoint = %v, want {15 30}", mid)
	}

	// Linearity: interpolating twice by halves lands at the quarter point.
	q := Interpolate(a, mid, 0.5)
	want := Interpolate(a, b, 0.25)
	if !floatEquals(q.Lat, want.Lat) || !floatEquals(q.Lng, want.Lng) {
		t.Errorf("quarter point = %v, want %v", q, want)
	}
}

func TestDistance(t *testing.T) {
	// ~555 m per 0.005 degrees of latitude.
	a := Point{Lat: 40.750, Lng: -73.990}
	b := Point{Lat: 40.755, Lng: -73.990}

	d := Distance(a, b)
	if d < 540 || d > 570 {
		t.Errorf("Distance = %.1f m, want ~556 m", d)
	}

	if Distance(a, a) != 0 {
		t.Errorf("Distance(a, a) = %v, want 0", Distance(a, a))
	}
}

func TestBearing_Cardinals(t *testing.T) {
	origin := Point{Lat: 40.750, Lng: -73.990}
	tests := []struct {
		name string
		to   Point
		want float64
	}{
		{"north", Point{Lat: 40.755, Lng: -73.990}, 0},
		{"south", Point{Lat: 40.745, Lng: -73.990}, 180},
		{"east", Point{Lat: 40.750, Lng: -73.980}, 90},
		{"west", Point{Lat: 40.750, Lng: -74.000}, 270},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Bearing(origin, tt.to)
			if math.Abs(got-tt.want) > 1 {
				t.Errorf("Bearing = %.2f, want %.2f", got, tt.want)
			}
		})
	}
}

func TestBearingDelta(t *testing.T) {
	tests := []struct {
		from, to, want float64
	}{
		{0, 90, 90},
		{90, 0, -90},
		{350, 10, 20},
		{10, 350, -20},
		{0, 180, 180},
	}

	for _, tt := range tests {
		if got := BearingDelta(tt.from, tt.to); !floatEquals(got, tt.want) {
			t.Errorf("BearingDelta(%v, %v) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestClassifyTurn(t *testing.T) {
	tests := []struct {
		delta float64
		want  Turn
	}{
		{0, TurnStraight},
		{19.9, TurnStraight},
		{-19.9, TurnStraight},
		{20, TurnSlightRight},
		{-20, TurnSlightLeft},
		{69.9, TurnSlightRight},
		{70, TurnRight},
		{-70, TurnLeft},
		{129.9, TurnRight},
		{130, TurnSharpRight},
		{-130, TurnSharpLeft},
		{180, TurnSharpRight},
	}

	for _, tt := range tests {
		if got := ClassifyTurn(tt.delta); got != tt.want {
			t.Errorf("ClassifyTurn(%v) = %v, want %v", tt.delta, got, tt.want)
		}
	}
}

func TestPathLength(t *testing.T) {
	path := []Point{
		{Lat: 40.750, Lng: -73.990},
		{Lat: 40.755, Lng: -73.990},
		{Lat: 40.755, Lng: -73.980},
	}

	got := PathLength(path)
	want := Distance(path[0], path[1]) + Distance(path[1], path[2])
	if !floatEquals(got, want) {
		t.Errorf("PathLength = %v, want %v", got, want)
	}

	if PathLength(path[:1]) != 0 {
		t.Error("single-point path should have zero length")
	}
}

func TestNearestVertex(t *testing.T) {
	path := []Point{
		{Lat: 40.750, Lng: -73.990},
		{Lat: 40.755, Lng: -73.990},
		{Lat: 40.755, Lng: -73.980},
	}

	idx, dist := NearestVertex(path, Point{Lat: 40.7551, Lng: -73.990})
	if idx != 1 {
		t.Errorf("NearestVertex idx = %d, want 1", idx)
	}
	if dist > 20 {
		t.Errorf("NearestVertex dist = %.1f, want < 20", dist)
	}

	idx, dist = NearestVertex(nil, Point{})
	if idx != -1 || !math.IsInf(dist, 1) {
		t.Errorf("empty path: got (%d, %v), want (-1, +Inf)", idx, dist)
	}
}
