package sim

import (
	"context"
	"fmt"
	"image"
	"io"
	"time"

	"github.com/san-kum/gravsnap/internal/classify"
	"github.com/san-kum/gravsnap/internal/dynamo"
	"github.com/san-kum/gravsnap/internal/metrics"
	"github.com/san-kum/gravsnap/internal/physics"
)

// State is the driver's lifecycle position.
type State int

const (
	Initializing State = iota
	Rendering
	Done
	Aborted
)

func (s State) String() string {
	switch s {
	case Initializing:
		return "initializing"
	case Rendering:
		return "rendering"
	case Done:
		return "done"
	case Aborted:
		return "aborted"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Options configures a progressive run.
type Options struct {
	Width, Height int
	Layout        physics.MassConfig
	// Seed feeds the generator handed to random layouts.
	Seed       int64
	Params     dynamo.Params
	Classifier classify.Classifier
	// InitialSteps is applied before frame 0, StepIncrement before every
	// later frame.
	InitialSteps  int
	StepIncrement int
	// Frames counts emitted frames including frame 0. Zero runs until a
	// sink closes or the context ends.
	Frames  int
	Workers int
}

func DefaultOptions() Options {
	return Options{
		Width:         500,
		Height:        500,
		Layout:        physics.MassConfig{Kind: physics.Triangle, ShapeHeight: 200},
		Params:        dynamo.DefaultParams(),
		InitialSteps:  100,
		StepIncrement: 10,
		Frames:        1,
	}
}

func (o Options) Validate() error {
	if o.Width <= 0 || o.Height <= 0 {
		return fmt.Errorf("%w: %dx%d", dynamo.ErrInvalidDimensions, o.Width, o.Height)
	}
	if o.InitialSteps < 0 || o.StepIncrement < 0 {
		return fmt.Errorf("%w: initial %d, step %d", dynamo.ErrInvalidSteps, o.InitialSteps, o.StepIncrement)
	}
	if o.Frames < 0 {
		return fmt.Errorf("frame count must not be negative, got %d", o.Frames)
	}
	return o.Params.Validate()
}

// Frame is one finished picture. Image is reused by the driver for the next
// frame; sinks that keep pixels past Emit must copy them.
type Frame struct {
	Index  int
	Steps  int
	Image  *image.RGBA
	Masses []dynamo.Mass
	Stats  metrics.Stats
}

// Sink receives every finished frame in order. Returning
// dynamo.ErrSinkClosed ends the run quietly; any other error aborts it.
type Sink interface {
	Emit(ctx context.Context, f Frame) error
}

// Closer is implemented by sinks backed by a surface the user can close.
// The driver polls it between frames.
type Closer interface {
	Closed() bool
}

type SinkFunc func(ctx context.Context, f Frame) error

func (fn SinkFunc) Emit(ctx context.Context, f Frame) error { return fn(ctx, f) }

// MultiSink fans frames out to several sinks in order.
type MultiSink []Sink

func (m MultiSink) Emit(ctx context.Context, f Frame) error {
	for _, s := range m {
		if err := s.Emit(ctx, f); err != nil {
			return err
		}
	}
	return nil
}

func (m MultiSink) Closed() bool {
	for _, s := range m {
		if c, ok := s.(Closer); ok && c.Closed() {
			return true
		}
	}
	return false
}

// Close closes every sink that holds resources and returns the first error.
func (m MultiSink) Close() error {
	var first error
	for _, s := range m {
		if c, ok := s.(io.Closer); ok {
			if err := c.Close(); err != nil && first == nil {
				first = err
			}
		}
	}
	return first
}

type Result struct {
	State   State
	Frames  int
	Steps   int
	Masses  []dynamo.Mass
	Elapsed time.Duration
}
