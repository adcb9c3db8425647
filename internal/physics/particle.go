package physics

import "github.com/san-kum/gravsnap/internal/dynamo"

// Particle is a massless test body. It is pulled by every mass but pulls
// on nothing.
type Particle struct {
	X, Y   float64
	VX, VY float64
	AX, AY float64
}

// NewParticle returns a particle at rest at (x, y).
func NewParticle(x, y float64) Particle {
	return Particle{X: x, Y: y}
}

// Reset moves the particle to (x, y) and clears its motion.
func (p *Particle) Reset(x, y float64) {
	*p = Particle{X: x, Y: y}
}

// Advance performs one semi-implicit step. Position moves with the old
// velocity, velocity moves with the old acceleration, and only then is the
// acceleration recomputed at the new position. Changing this order changes
// the picture.
func (p *Particle) Advance(params dynamo.Params, masses []dynamo.Mass) {
	dt := params.Dt
	p.X += p.VX * dt
	p.Y += p.VY * dt
	p.VX += p.AX * dt
	p.VY += p.AY * dt
	p.AX, p.AY = Acceleration(p.X, p.Y, params, masses)
}

// Acceleration sums the softened pull of every mass on a point at (x, y).
func Acceleration(x, y float64, params dynamo.Params, masses []dynamo.Mass) (ax, ay float64) {
	for _, m := range masses {
		dx := m.X - x
		dy := m.Y - y
		f := params.Gravity / (dx*dx + dy*dy + params.Softening)
		ax += dx * f
		ay += dy * f
	}
	return ax, ay
}
