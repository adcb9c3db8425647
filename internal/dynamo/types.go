package dynamo

import (
	"fmt"
	"math"
)

// Mass is a fixed attractor. It never moves during a run.
type Mass struct {
	X, Y float64
}

// Dist returns the Euclidean distance from (x, y) to the mass.
func (m Mass) Dist(x, y float64) float64 {
	return math.Hypot(x-m.X, y-m.Y)
}

// Params holds the tunable constants of the force law and the integrator.
// None of them aim at physical accuracy.
type Params struct {
	Gravity   float64
	Softening float64
	Dt        float64
}

func DefaultParams() Params {
	return Params{
		Gravity:   30.0,
		Softening: 5.0,
		Dt:        0.1,
	}
}

func (p Params) Validate() error {
	if p.Dt <= 0 || math.IsNaN(p.Dt) || math.IsInf(p.Dt, 0) {
		return fmt.Errorf("%w: dt must be positive, got %f", ErrInvalidParams, p.Dt)
	}
	if p.Softening <= 0 || math.IsNaN(p.Softening) {
		return fmt.Errorf("%w: softening must be positive, got %f", ErrInvalidParams, p.Softening)
	}
	if math.IsNaN(p.Gravity) || math.IsInf(p.Gravity, 0) {
		return fmt.Errorf("%w: gravity must be finite", ErrInvalidParams)
	}
	return nil
}

// Nearest returns the index of the closest mass and its distance. Ties go to
// the lowest index. It returns -1 when masses is empty.
func Nearest(x, y float64, masses []Mass) (int, float64) {
	c, best := -1, math.Inf(1)
	for i, m := range masses {
		if d := m.Dist(x, y); d < best {
			c, best = i, d
		}
	}
	return c, best
}
