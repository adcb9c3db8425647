package physics

import (
	"fmt"
	"math"
	"math/rand"
	"strings"

	"github.com/san-kum/gravsnap/internal/dynamo"
)

// Layout selects how the attractors are placed on the canvas.
type Layout int

const (
	Triangle Layout = iota
	Line
	Random
	Ring
	Custom
)

var layoutNames = map[Layout]string{
	Triangle: "triangle",
	Line:     "line",
	Random:   "random",
	Ring:     "ring",
	Custom:   "custom",
}

func (l Layout) String() string {
	if name, ok := layoutNames[l]; ok {
		return name
	}
	return fmt.Sprintf("layout(%d)", int(l))
}

func ParseLayout(name string) (Layout, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for l, n := range layoutNames {
		if n == name {
			return l, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", dynamo.ErrInvalidLayout, name)
}

// LayoutNames lists the accepted layout names in declaration order.
func LayoutNames() []string {
	return []string{"triangle", "line", "random", "ring", "custom"}
}

// Derive places the three reference masses for kind on a width x height
// canvas. shapeHeight controls the spread; values at or beyond the canvas
// size are accepted and simply push masses to or past the edges. rng is only
// consulted for Random and must be non-nil there.
func Derive(kind Layout, width, height int, shapeHeight float64, rng *rand.Rand) ([]dynamo.Mass, error) {
	midW := float64(width) / 2.0
	midH := float64(height) / 2.0
	third := shapeHeight / 3.0
	half := shapeHeight / 2.0

	switch kind {
	case Triangle:
		return []dynamo.Mass{
			{X: midW, Y: midH - 2.0*third},
			{X: midW - half, Y: midH + third},
			{X: midW + half, Y: midH + third},
		}, nil
	case Line:
		return []dynamo.Mass{
			{X: midW, Y: midH},
			{X: midW - half, Y: midH},
			{X: midW + half, Y: midH},
		}, nil
	case Random:
		return randomMasses(3, width, height, rng)
	}
	return nil, fmt.Errorf("%w: %s cannot be derived from dimensions alone", dynamo.ErrInvalidLayout, kind)
}

func randomMasses(n, width, height int, rng *rand.Rand) ([]dynamo.Mass, error) {
	if rng == nil {
		return nil, dynamo.ErrNoEntropy
	}
	if width <= 0 || height <= 0 {
		return nil, dynamo.ErrInvalidDimensions
	}
	masses := make([]dynamo.Mass, n)
	for i := range masses {
		masses[i].X = float64(rng.Intn(width))
	}
	for i := range masses {
		masses[i].Y = float64(rng.Intn(height))
	}
	return masses, nil
}

// MassConfig is the owned description of a run's attractors.
type MassConfig struct {
	Kind        Layout
	ShapeHeight float64
	// Count applies to Random and Ring; zero means three.
	Count  int
	Custom []dynamo.Mass
}

// Masses resolves the configuration against a canvas.
func (c MassConfig) Masses(width, height int, rng *rand.Rand) ([]dynamo.Mass, error) {
	n := c.Count
	if n <= 0 {
		n = 3
	}

	switch c.Kind {
	case Triangle, Line:
		return Derive(c.Kind, width, height, c.ShapeHeight, rng)
	case Random:
		return randomMasses(n, width, height, rng)
	case Ring:
		masses := make([]dynamo.Mass, n)
		r := c.ShapeHeight / 2.0
		for i := range masses {
			// first mass at the top, matching the triangle apex
			a := -math.Pi/2 + float64(i)*2*math.Pi/float64(n)
			masses[i] = dynamo.Mass{
				X: float64(width)/2.0 + r*math.Cos(a),
				Y: float64(height)/2.0 + r*math.Sin(a),
			}
		}
		return masses, nil
	case Custom:
		if len(c.Custom) == 0 {
			return nil, dynamo.ErrNoMasses
		}
		masses := make([]dynamo.Mass, len(c.Custom))
		copy(masses, c.Custom)
		return masses, nil
	}
	return nil, fmt.Errorf("%w: %s", dynamo.ErrInvalidLayout, c.Kind)
}
