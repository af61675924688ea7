package position

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/safepath/buddy/pkg/geo"
)

var twoSegmentPath = []geo.Point{
	{Lat: 40.750, Lng: -73.990},
	{Lat: 40.755, Lng: -73.990},
	{Lat: 40.755, Lng: -73.980},
}

func TestSimulator_RejectsShortPath(t *testing.T) {
	if _, err := NewSimulator(twoSegmentPath[:1], 1.4, time.Millisecond); !errors.Is(err, ErrNoPath) {
		t.Errorf("err = %v, want ErrNoPath", err)
	}
}

func TestSimulator_ReachesPathEnd(t *testing.T) {
	// Fast enough to cross the ~1.4 km path well inside the timeout.
	sim, err := NewSimulator(twoSegmentPath, 2000, time.Millisecond)
	if err != nil {
		t.Fatal(err)
	}
	if err := sim.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer sim.Stop()

	var last Sample
	var count int
	timeout := time.After(5 * time.Second)
	for {
		select {
		case s, ok := <-sim.Samples():
			if !ok {
				if !last.Done {
					t.Fatal("channel closed before final Done sample")
				}
				if last.Point != twoSegmentPath[2] {
					t.Errorf("final point = %v, want exact path end %v", last.Point, twoSegmentPath[2])
				}
				if count < 2 {
					t.Errorf("expected multiple samples, got %d", count)
				}
				return
			}
			if !s.Simulated {
				t.Error("simulator sample without Simulated flag")
			}
			last = s
			count++
		case <-timeout:
			t.Fatal("simulator never finished")
		}
	}
}

func TestSimulator_SamplesAdvanceMonotonically(t *testing.T) {
	sim, err := NewSimulator(twoSegmentPath, 2000, time.Millisecond)
	if err != nil {
		t.Fatal(err)
	}
	if err := sim.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer sim.Stop()

	prevSeg, prevFrac := 0, -1.0
	for s := range sim.Samples() {
		if s.Segment < prevSeg {
			t.Fatalf("segment went backward: %d -> %d", prevSeg, s.Segment)
		}
		if s.Segment == prevSeg && s.Fraction < prevFrac {
			t.Fatalf("fraction went backward within segment %d: %v -> %v", s.Segment, prevFrac, s.Fraction)
		}
		prevSeg, prevFrac = s.Segment, s.Fraction
	}
}

func TestSimulator_StopIsIdempotent(t *testing.T) {
	sim, err := NewSimulator(twoSegmentPath, 1, time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	if err := sim.Start(context.Background()); err != nil {
		t.Fatal(err)
	}

	sim.Stop()
	sim.Stop() // must not panic

	select {
	case _, ok := <-sim.Samples():
		if ok {
			t.Error("got sample after stop")
		}
	case <-time.After(time.Second):
		t.Error("channel not closed after stop")
	}
}

func TestSimulator_DoubleStart(t *testing.T) {
	sim, err := NewSimulator(twoSegmentPath, 1, time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	defer sim.Stop()

	if err := sim.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := sim.Start(context.Background()); !errors.Is(err, ErrAlreadyStarted) {
		t.Errorf("second Start: err = %v, want ErrAlreadyStarted", err)
	}
}

// scriptedWatcher feeds a fixed sequence of fixes and errors.
type scriptedWatcher struct {
	events []struct {
		sample Sample
		err    error
	}
	cancelCalls int
}

func (w *scriptedWatcher) Watch(_ context.Context, fn func(Sample, error)) (func(), error) {
	go func() {
		for _, e := range w.events {
			fn(e.sample, e.err)
		}
	}()
	return func() { w.cancelCalls++ }, nil
}

func TestLive_SkipsTransientErrors(t *testing.T) {
	w := &scriptedWatcher{}
	good := Sample{Point: geo.Point{Lat: 40.75, Lng: -73.99}, Time: time.Now()}
	w.events = []struct {
		sample Sample
		err    error
	}{
		{err: errors.New("position unavailable")},
		{sample: good},
		{err: errors.New("timeout")},
		{sample: good},
	}

	live := NewLive(w)
	if err := live.Start(context.Background()); err != nil {
		t.Fatal(err)
	}

	var got int
	deadline := time.After(2 * time.Second)
	for got < 2 {
		select {
		case s := <-live.Samples():
			if s.Point != good.Point {
				t.Errorf("sample point = %v, want %v", s.Point, good.Point)
			}
			got++
		case <-deadline:
			t.Fatalf("received %d samples, want 2", got)
		}
	}

	live.Stop()
	live.Stop() // idempotent
	time.Sleep(20 * time.Millisecond)
	if w.cancelCalls != 1 {
		t.Errorf("cancel called %d times, want exactly 1", w.cancelCalls)
	}
}

// capturedWatcher hands the delivery callback to the test so fixes can be
// injected at awkward moments.
type capturedWatcher struct {
	fn func(Sample, error)
}

func (w *capturedWatcher) Watch(_ context.Context, fn func(Sample, error)) (func(), error) {
	w.fn = fn
	return func() {}, nil
}

func TestLive_LateDeliveryAfterStop(t *testing.T) {
	w := &capturedWatcher{}
	live := NewLive(w)
	if err := live.Start(context.Background()); err != nil {
		t.Fatal(err)
	}

	live.Stop()
	for range live.Samples() {
		// drain until closed
	}

	// Cancelling the watcher does not wait for a fix already being
	// delivered; a late one must be dropped, not crash the stream.
	w.fn(Sample{Point: geo.Point{Lat: 40.75, Lng: -73.99}, Time: time.Now()}, nil)
}

type failingWatcher struct{}

func (failingWatcher) Watch(context.Context, func(Sample, error)) (func(), error) {
	return nil, errors.New("permission denied")
}

func TestLive_StartFailurePropagates(t *testing.T) {
	live := NewLive(failingWatcher{})
	if err := live.Start(context.Background()); err == nil {
		t.Error("expected error from failed subscription")
	}
}
