package sim

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/san-kum/gravsnap/internal/classify"
	"github.com/san-kum/gravsnap/internal/dynamo"
	"github.com/san-kum/gravsnap/internal/field"
	"github.com/san-kum/gravsnap/internal/metrics"
)

// Driver renders a sequence of frames over one particle grid, each frame
// continuing from where the previous one stopped.
type Driver struct {
	opts      Options
	sink      MultiSink
	state     State
	grid      *field.Grid
	renderer  *field.Renderer
	collector *metrics.Collector
}

func New(opts Options, sinks ...Sink) (*Driver, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if opts.Classifier == nil {
		opts.Classifier = classify.NewWeighted()
	}
	return &Driver{opts: opts, sink: MultiSink(sinks)}, nil
}

func (d *Driver) State() State { return d.state }

// Grid exposes the particle field. It must not be touched while Run is
// in progress.
func (d *Driver) Grid() *field.Grid { return d.grid }

// init derives the masses and allocates a fresh grid.
func (d *Driver) init() error {
	d.state = Initializing

	rng := rand.New(rand.NewSource(d.opts.Seed))
	masses, err := d.opts.Layout.Masses(d.opts.Width, d.opts.Height, rng)
	if err != nil {
		return err
	}

	grid, err := field.NewGrid(d.opts.Width, d.opts.Height)
	if err != nil {
		return err
	}

	d.grid = grid
	d.renderer = field.NewRenderer(d.opts.Params, masses, d.opts.Classifier, d.opts.Workers)
	d.collector = metrics.NewCollector(d.renderer.Masses, d.opts.Width, d.opts.Height)
	return nil
}

// Run executes the whole sequence. A sink closing its surface, or ctx
// ending, is checked between frames only. A closed surface leaves the
// driver Aborted with a nil error; sink failures and cancellation are
// returned.
func (d *Driver) Run(ctx context.Context) (*Result, error) {
	start := time.Now()
	res := &Result{}
	defer func() {
		res.State = d.state
		res.Elapsed = time.Since(start)
	}()

	if err := d.init(); err != nil {
		d.state = Aborted
		return res, err
	}
	res.Masses = d.renderer.Masses

	buf := field.NewBuffer(d.grid)
	steps := d.opts.InitialSteps

	for i := 0; d.opts.Frames == 0 || i < d.opts.Frames; i++ {
		if i > 0 {
			d.state = Rendering
			steps = d.opts.StepIncrement
		}

		if err := ctx.Err(); err != nil {
			d.state = Aborted
			return res, err
		}
		if d.sink.Closed() {
			d.state = Aborted
			return res, nil
		}

		if err := d.renderer.RenderFrame(ctx, d.grid, steps, buf); err != nil {
			d.state = Aborted
			return res, &dynamo.FrameError{Frame: i, Steps: d.grid.Steps(), Wrapped: err}
		}
		res.Steps = d.grid.Steps()

		f := Frame{
			Index:  i,
			Steps:  d.grid.Steps(),
			Image:  buf,
			Masses: d.renderer.Masses,
			Stats:  d.collector.Collect(d.grid),
		}
		if err := d.sink.Emit(ctx, f); err != nil {
			d.state = Aborted
			if errors.Is(err, dynamo.ErrSinkClosed) {
				return res, nil
			}
			return res, &dynamo.FrameError{Frame: i, Steps: f.Steps, Wrapped: err}
		}
		res.Frames++
	}

	d.state = Done
	return res, nil
}
