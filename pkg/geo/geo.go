// Package geo provides the geometry primitives used by the navigation core:
// great-circle distance, bearing, turn classification, and linear
// interpolation between coordinates. All functions are pure.
package geo

import "math"

// EarthRadius is the mean earth radius in meters.
const EarthRadius = 6371000.0

// Point is a geographic coordinate.
type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Distance returns the great-circle distance between a and b in meters
// using the haversine formula.
func Distance(a, b Point) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLng := (b.Lng - a.Lng) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * EarthRadius * math.Asin(math.Sqrt(h))
}

// Bearing returns the initial bearing from a to b in degrees [0, 360).
func Bearing(a, b Point) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLng := (b.Lng - a.Lng) * math.Pi / 180

	y := math.Sin(dLng) * math.Cos(lat2)
	x := math.Cos(lat1)*math.Sin(lat2) - math.Sin(lat1)*math.Cos(lat2)*math.Cos(dLng)
	deg := math.Atan2(y, x) * 180 / math.Pi
	return math.Mod(deg+360, 360)
}

// BearingDelta returns the signed change from bearing `from` to bearing `to`,
// normalized to (-180, 180]. Positive means a right turn.
func BearingDelta(from, to float64) float64 {
	d := math.Mod(to-from+540, 360) - 180
	if d == -180 {
		return 180
	}
	return d
}

// Interpolate returns the point at fraction t along the straight segment
// from a to b. Interpolate(a, b, 0) == a and Interpolate(a, b, 1) == b.
// Linear interpolation in lat/lng space is accurate enough at the segment
// lengths produced by a street-network path.
func Interpolate(a, b Point, t float64) Point {
	return Point{
		Lat: a.Lat + (b.Lat-a.Lat)*t,
		Lng: a.Lng + (b.Lng-a.Lng)*t,
	}
}

// PathLength returns the sum of segment lengths of the path in meters.
func PathLength(path []Point) float64 {
	var total float64
	for i := 1; i < len(path); i++ {
		total += Distance(path[i-1], path[i])
	}
	return total
}

// NearestVertex returns the index of the path vertex closest to p and its
// distance in meters. Brute-force scan; paths are at most a few thousand
// vertices. Returns (-1, +Inf) for an empty path.
func NearestVertex(path []Point, p Point) (int, float64) {
	best := -1
	bestDist := math.Inf(1)
	for i, v := range path {
		if d := Distance(v, p); d < bestDist {
			best = i
			bestDist = d
		}
	}
	return best, bestDist
}

// Turn classifies the change of direction at a path vertex.
type Turn int

const (
	TurnStraight Turn = iota
	TurnSlightLeft
	TurnSlightRight
	TurnLeft
	TurnRight
	TurnSharpLeft
	TurnSharpRight
)

// Turn classification thresholds in degrees.
const (
	slightTurnMin = 20
	turnMin       = 70
	sharpTurnMin  = 130
)

// ClassifyTurn buckets a signed bearing delta (degrees, positive = right)
// into one of seven turn classes:
//
//	|d| <  20   straight
//	|d| <  70   slight turn
//	|d| < 130   turn
//	|d| >= 130  sharp turn
func ClassifyTurn(delta float64) Turn {
	abs := math.Abs(delta)
	right := delta > 0
	switch {
	case abs < slightTurnMin:
		return TurnStraight
	case abs < turnMin:
		if right {
			return TurnSlightRight
		}
		return TurnSlightLeft
	case abs < sharpTurnMin:
		if right {
			return TurnRight
		}
		return TurnLeft
	default:
		if right {
			return TurnSharpRight
		}
		return TurnSharpLeft
	}
}

// String returns a human-readable turn name.
func (t Turn) String() string {
	switch t {
	case TurnStraight:
		return "straight"
	case TurnSlightLeft:
		return "slight-left"
	case TurnSlightRight:
		return "slight-right"
	case TurnLeft:
		return "left"
	case TurnRight:
		return "right"
	case TurnSharpLeft:
		return "sharp-left"
	case TurnSharpRight:
		return "sharp-right"
	default:
		return "unknown"
	}
}
