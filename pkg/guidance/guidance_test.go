package guidance

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/safepath/buddy/pkg/geo"
)

func TestGenerate_TooShort(t *testing.T) {
	if got := Generate(nil); got != nil {
		t.Errorf("Generate(nil) = %v, want nil", got)
	}
	if got := Generate([]geo.Point{{Lat: 1, Lng: 1}}); got != nil {
		t.Errorf("Generate(1 point) = %v, want nil", got)
	}
}

func TestGenerate_TwoPointPath(t *testing.T) {
	path := []geo.Point{
		{Lat: 40.750, Lng: -73.990},
		{Lat: 40.755, Lng: -73.990},
	}

	got := Generate(path)
	if len(got) != 2 {
		t.Fatalf("got %d instructions, want 2", len(got))
	}
	if got[0].Maneuver != ManeuverStart {
		t.Errorf("first maneuver = %s, want start", got[0].Maneuver)
	}
	if got[1].Maneuver != ManeuverArrive {
		t.Errorf("last maneuver = %s, want arrive", got[1].Maneuver)
	}
	if got[0].DistanceFromPrevious != 0 {
		t.Errorf("start distance = %v, want 0", got[0].DistanceFromPrevious)
	}
	want := geo.Distance(path[0], path[1])
	if got[1].DistanceFromPrevious != want {
		t.Errorf("arrive distance = %v, want %v", got[1].DistanceFromPrevious, want)
	}
}

func TestGenerate_NorthThenEast(t *testing.T) {
	// North then east: one right turn between start and arrive.
	path := []geo.Point{
		{Lat: 40.750, Lng: -73.990},
		{Lat: 40.755, Lng: -73.990},
		{Lat: 40.755, Lng: -73.980},
	}

	got := Generate(path)
	if len(got) != 3 {
		t.Fatalf("got %d instructions, want 3", len(got))
	}
	if got[0].Maneuver != ManeuverStart {
		t.Errorf("instruction 0 = %s, want start", got[0].Maneuver)
	}
	if got[1].Maneuver != ManeuverRight {
		t.Errorf("instruction 1 = %s, want right", got[1].Maneuver)
	}
	if got[2].Maneuver != ManeuverArrive {
		t.Errorf("instruction 2 = %s, want arrive", got[2].Maneuver)
	}

	// Turn distance is the length of the preceding segment.
	want := geo.Distance(path[0], path[1])
	if got[1].DistanceFromPrevious != want {
		t.Errorf("turn distance = %v, want %v", got[1].DistanceFromPrevious, want)
	}
}

func TestGenerate_FirstInteriorAlwaysEmitted(t *testing.T) {
	// Straight line through three points: the interior point classifies as
	// straight but must be emitted anyway.
	path := []geo.Point{
		{Lat: 40.750, Lng: -73.990},
		{Lat: 40.755, Lng: -73.990},
		{Lat: 40.760, Lng: -73.990},
	}

	got := Generate(path)
	if len(got) != 3 {
		t.Fatalf("got %d instructions, want 3 (start, straight, arrive)", len(got))
	}
	if got[1].Maneuver != ManeuverStraight {
		t.Errorf("interior maneuver = %s, want straight", got[1].Maneuver)
	}
}

func TestGenerate_SkipsLaterStraightPoints(t *testing.T) {
	// Four collinear points: only the first interior point survives.
	path := []geo.Point{
		{Lat: 40.750, Lng: -73.990},
		{Lat: 40.752, Lng: -73.990},
		{Lat: 40.754, Lng: -73.990},
		{Lat: 40.756, Lng: -73.990},
	}

	got := Generate(path)
	if len(got) != 3 {
		t.Fatalf("got %d instructions, want 3", len(got))
	}
}

func TestGenerate_IndexesAreSequential(t *testing.T) {
	path := []geo.Point{
		{Lat: 40.750, Lng: -73.990},
		{Lat: 40.755, Lng: -73.990},
		{Lat: 40.755, Lng: -73.980},
		{Lat: 40.760, Lng: -73.980},
	}

	got := Generate(path)
	for i, in := range got {
		if in.Index != i {
			t.Errorf("instruction %d has index %d", i, in.Index)
		}
	}
}

type fakeGeocoder struct {
	names map[geo.Point]string
}

func (f *fakeGeocoder) StreetName(_ context.Context, p geo.Point) (string, error) {
	return f.names[p], nil
}

func TestEnrichStreetNames(t *testing.T) {
	path := []geo.Point{
		{Lat: 40.750, Lng: -73.990},
		{Lat: 40.755, Lng: -73.990},
		{Lat: 40.755, Lng: -73.980},
	}
	instructions := Generate(path)

	gc := &fakeGeocoder{names: map[geo.Point]string{
		path[1]: "W 34th St",
	}}

	select {
	case <-EnrichStreetNames(context.Background(), instructions, gc):
	case <-time.After(time.Second):
		t.Fatal("enrichment did not finish")
	}

	if len(instructions) != 3 {
		t.Fatalf("enrichment changed instruction count: %d", len(instructions))
	}
	if instructions[1].StreetName != "W 34th St" {
		t.Errorf("street name = %q, want W 34th St", instructions[1].StreetName)
	}
}

func TestSpokenText(t *testing.T) {
	in := Instruction{Maneuver: ManeuverRight, Label: "Turn right", StreetName: "State St"}

	got := SpokenText(in, 120)
	if !strings.Contains(got, "120 meters") || !strings.Contains(got, "turn right onto State St") {
		t.Errorf("unexpected spoken text: %q", got)
	}

	got = SpokenText(Instruction{Maneuver: ManeuverArrive, Label: "You have arrived"}, 0)
	if got != "You have arrived." {
		t.Errorf("arrival text = %q", got)
	}
}
