package dynamo

import (
	"errors"
	"fmt"
)

// Domain errors for field simulation.
var (
	// ErrInvalidDimensions indicates a non-positive canvas width or height.
	ErrInvalidDimensions = errors.New("dynamo: width and height must be positive")

	// ErrInvalidLayout indicates an unknown mass layout kind.
	ErrInvalidLayout = errors.New("dynamo: unknown mass layout")

	// ErrNoEntropy indicates a random layout was requested without a generator.
	ErrNoEntropy = errors.New("dynamo: random layout requires an entropy source")

	// ErrNoMasses indicates an empty mass configuration.
	ErrNoMasses = errors.New("dynamo: at least one mass is required")

	// ErrInvalidSteps indicates a negative iteration count.
	ErrInvalidSteps = errors.New("dynamo: iteration count must not be negative")

	// ErrInvalidParams indicates a force or integrator constant out of range.
	ErrInvalidParams = errors.New("dynamo: invalid simulation parameters")

	// ErrBufferSize indicates the pixel buffer does not match the grid.
	ErrBufferSize = errors.New("dynamo: pixel buffer does not match grid dimensions")

	// ErrGridBusy indicates a second render pass tried to use a grid in flight.
	ErrGridBusy = errors.New("dynamo: particle grid is in use by another pass")

	// ErrSinkClosed is returned by a frame sink whose presentation surface
	// was closed. The driver stops without treating it as a failure.
	ErrSinkClosed = errors.New("dynamo: output surface closed")

	// ErrUnknownClassifier indicates an unregistered classifier name.
	ErrUnknownClassifier = errors.New("dynamo: unknown classifier")
)

// FrameError wraps a collaborator failure with the frame it happened on.
type FrameError struct {
	Frame   int
	Steps   int
	Wrapped error
}

func (e *FrameError) Error() string {
	return fmt.Sprintf("frame %d (%d steps): %v", e.Frame, e.Steps, e.Wrapped)
}

func (e *FrameError) Unwrap() error {
	return e.Wrapped
}
