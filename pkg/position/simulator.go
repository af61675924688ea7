package position

import (
	"context"
	"sync"
	"time"

	"github.com/safepath/buddy/pkg/geo"
)

// Simulator advances a fractional cursor along the path segments at a fixed
// tick rate, emitting an interpolated position per tick. The final position
// is emitted exactly at the path end with Done set, then the sample channel
// closes.
type Simulator struct {
	path     []geo.Point
	segments []float64 // precomputed segment lengths in meters
	speed    float64   // m/s
	interval time.Duration

	out chan Sample

	mu       sync.Mutex
	started  bool
	stop     chan struct{}
	stopOnce sync.Once
}

// NewSimulator creates a simulator that walks the path at speed m/s, one
// sample per interval.
func NewSimulator(path []geo.Point, speed float64, interval time.Duration) (*Simulator, error) {
	if len(path) < 2 {
		return nil, ErrNoPath
	}
	segments := make([]float64, len(path)-1)
	for i := range segments {
		segments[i] = geo.Distance(path[i], path[i+1])
	}
	return &Simulator{
		path:     path,
		segments: segments,
		speed:    speed,
		interval: interval,
		out:      make(chan Sample, 16),
		stop:     make(chan struct{}),
	}, nil
}

// Samples returns the sample channel. It closes when the cursor reaches the
// path end or the simulator is stopped.
func (s *Simulator) Samples() <-chan Sample {
	return s.out
}

// Start begins ticking. It returns immediately; samples arrive on Samples().
func (s *Simulator) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return ErrAlreadyStarted
	}
	s.started = true
	s.mu.Unlock()

	go s.run(ctx)
	return nil
}

func (s *Simulator) run(ctx context.Context) {
	defer close(s.out)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	seg := 0
	offset := 0.0 // meters into the current segment
	step := s.speed * s.interval.Seconds()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stop:
			return
		case <-ticker.C:
		}

		offset += step
		for seg < len(s.segments) && offset >= s.segments[seg] {
			offset -= s.segments[seg]
			seg++
		}

		if seg >= len(s.segments) {
			// Cursor reached the path end: emit the exact final vertex.
			final := Sample{
				Point:     s.path[len(s.path)-1],
				Time:      time.Now(),
				Simulated: true,
				Segment:   len(s.segments) - 1,
				Fraction:  1,
				Done:      true,
			}
			select {
			case s.out <- final:
			case <-s.stop:
			case <-ctx.Done():
			}
			return
		}

		fraction := 0.0
		if s.segments[seg] > 0 {
			fraction = offset / s.segments[seg]
		}
		sample := Sample{
			Point:     geo.Interpolate(s.path[seg], s.path[seg+1], fraction),
			Time:      time.Now(),
			Simulated: true,
			Segment:   seg,
			Fraction:  fraction,
		}

		select {
		case s.out <- sample:
		case <-s.stop:
			return
		case <-ctx.Done():
			return
		}
	}
}

// Stop halts the simulator and releases its ticker. Idempotent.
func (s *Simulator) Stop() {
	s.stopOnce.Do(func() {
		close(s.stop)
	})
}

var _ Source = (*Simulator)(nil)
