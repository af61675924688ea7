// Package position abstracts the two producers of position samples: a
// fixed-rate simulator that advances along the path, and a live device
// location stream. Both implement Source and support an idempotent Stop.
package position

import (
	"context"
	"errors"
	"time"

	"github.com/safepath/buddy/pkg/geo"
)

// Common errors.
var (
	ErrAlreadyStarted = errors.New("position: source already started")
	ErrNoPath         = errors.New("position: path must have at least 2 points")
)

// Sample is a single position fix.
type Sample struct {
	Point geo.Point `json:"point"`
	Time  time.Time `json:"time"`

	// Accuracy is the reported fix accuracy in meters (live mode only).
	Accuracy float64 `json:"accuracy,omitempty"`

	// Simulated is true for samples produced by the Simulator. When set,
	// Segment and Fraction locate the sample exactly on the path: the
	// sample sits at Fraction of the way along segment Segment.
	Simulated bool    `json:"simulated,omitempty"`
	Segment   int     `json:"segment,omitempty"`
	Fraction  float64 `json:"fraction,omitempty"`

	// Done is true on the final simulated sample at the path end.
	Done bool `json:"done,omitempty"`
}

// Source produces position samples asynchronously. Samples() is closed when
// the source terminates. Stop releases the underlying timer or subscription
// exactly once; calling it repeatedly is safe.
type Source interface {
	Start(ctx context.Context) error
	Samples() <-chan Sample
	Stop()
}
