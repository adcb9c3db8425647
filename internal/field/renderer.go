package field

import (
	"context"
	"fmt"
	"image"

	"github.com/san-kum/gravsnap/internal/classify"
	"github.com/san-kum/gravsnap/internal/dynamo"
)

// rowsPerChunk keeps tiny canvases on a single goroutine.
const rowsPerChunk = 4

// Renderer advances a grid and paints its classification into a buffer.
type Renderer struct {
	Params     dynamo.Params
	Masses     []dynamo.Mass
	Classifier classify.Classifier
	// Workers caps the goroutines per frame; zero means one per CPU.
	Workers int
}

func NewRenderer(params dynamo.Params, masses []dynamo.Mass, classifier classify.Classifier, workers int) *Renderer {
	m := make([]dynamo.Mass, len(masses))
	copy(m, masses)
	return &Renderer{
		Params:     params,
		Masses:     m,
		Classifier: classifier,
		Workers:    workers,
	}
}

// RenderFrame advances every particle of grid by steps, classifies it and
// writes the colour to the matching pixel of buf. Particle state carries
// over, so successive calls accumulate. The grid's step counter only moves
// once every row has been committed.
func (r *Renderer) RenderFrame(ctx context.Context, grid *Grid, steps int, buf *image.RGBA) error {
	if steps < 0 {
		return fmt.Errorf("%w: %d", dynamo.ErrInvalidSteps, steps)
	}
	if buf == nil {
		return fmt.Errorf("%w: nil buffer", dynamo.ErrBufferSize)
	}
	if b := buf.Bounds(); b.Dx() != grid.width || b.Dy() != grid.height {
		return fmt.Errorf("%w: buffer %dx%d, grid %dx%d", dynamo.ErrBufferSize, b.Dx(), b.Dy(), grid.width, grid.height)
	}
	if err := grid.acquire(); err != nil {
		return err
	}
	defer grid.release()

	origin := buf.Bounds().Min
	err := dynamo.ParallelFor(ctx, grid.height, r.Workers, rowsPerChunk, func(_ context.Context, start, end int) error {
		for y := start; y < end; y++ {
			row := grid.Row(y)
			for x := range row {
				p := &row[x]
				for i := 0; i < steps; i++ {
					p.Advance(r.Params, r.Masses)
				}
				buf.SetRGBA(origin.X+x, origin.Y+y, r.Classifier.Classify(p.X, p.Y, r.Masses))
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	grid.steps += steps
	return nil
}

// NewBuffer allocates a pixel buffer sized for grid.
func NewBuffer(grid *Grid) *image.RGBA {
	return image.NewRGBA(image.Rect(0, 0, grid.width, grid.height))
}
