package field

import (
	"fmt"
	"sync"

	"github.com/san-kum/gravsnap/internal/dynamo"
	"github.com/san-kum/gravsnap/internal/physics"
)

// Grid holds one particle per output pixel in a single row-major slice.
// Its dimensions are fixed; a different canvas needs a new grid.
type Grid struct {
	width, height int
	cells         []physics.Particle
	steps         int
	mu            sync.Mutex
}

// NewGrid allocates a width x height field with every particle at rest on
// its own pixel.
func NewGrid(width, height int) (*Grid, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", dynamo.ErrInvalidDimensions, width, height)
	}
	g := &Grid{
		width:  width,
		height: height,
		cells:  make([]physics.Particle, width*height),
	}
	g.Reset()
	return g, nil
}

func (g *Grid) Width() int  { return g.width }
func (g *Grid) Height() int { return g.height }
func (g *Grid) Len() int    { return len(g.cells) }

// Steps is the number of integration steps every particle has taken.
func (g *Grid) Steps() int { return g.steps }

// At returns the particle for pixel (x, y). It panics outside the grid.
func (g *Grid) At(x, y int) *physics.Particle {
	if x < 0 || x >= g.width || y < 0 || y >= g.height {
		panic(fmt.Sprintf("field: pixel (%d, %d) outside %dx%d grid", x, y, g.width, g.height))
	}
	return &g.cells[y*g.width+x]
}

// Row returns the particles of row y, sharing storage with the grid.
func (g *Grid) Row(y int) []physics.Particle {
	return g.cells[y*g.width : (y+1)*g.width]
}

// Reset puts every particle back at rest on its pixel and zeroes the step
// counter.
func (g *Grid) Reset() {
	for y := 0; y < g.height; y++ {
		row := g.Row(y)
		for x := range row {
			row[x].Reset(float64(x), float64(y))
		}
	}
	g.steps = 0
}

// Snapshot copies the current particle states.
func (g *Grid) Snapshot() []physics.Particle {
	s := make([]physics.Particle, len(g.cells))
	copy(s, g.cells)
	return s
}

// MemorySize estimates the bytes held by the particle storage.
func (g *Grid) MemorySize() int {
	return ParticleBytes * len(g.cells)
}

// ParticleBytes is the in-memory size of one particle.
const ParticleBytes = 6 * 8

func (g *Grid) acquire() error {
	if !g.mu.TryLock() {
		return dynamo.ErrGridBusy
	}
	return nil
}

func (g *Grid) release() { g.mu.Unlock() }
