package sim

import (
	"image/color"

	"github.com/san-kum/gravsnap/internal/classify"
	"github.com/san-kum/gravsnap/internal/dynamo"
	"github.com/san-kum/gravsnap/internal/physics"
)

// Probe follows a single particle with the same step and classifier the
// grid uses, for interactive exploration.
type Probe struct {
	params     dynamo.Params
	masses     []dynamo.Mass
	classifier classify.Classifier
	particle   physics.Particle
	steps      int
}

func NewProbe(params dynamo.Params, masses []dynamo.Mass, classifier classify.Classifier) *Probe {
	if classifier == nil {
		classifier = classify.NewWeighted()
	}
	return &Probe{params: params, masses: masses, classifier: classifier}
}

// Reset drops the particle at rest on (x, y).
func (p *Probe) Reset(x, y float64) {
	p.particle.Reset(x, y)
	p.steps = 0
}

// Step advances n times and returns the resulting colour.
func (p *Probe) Step(n int) color.RGBA {
	for i := 0; i < n; i++ {
		p.particle.Advance(p.params, p.masses)
	}
	p.steps += n
	return p.Color()
}

func (p *Probe) Color() color.RGBA {
	return p.classifier.Classify(p.particle.X, p.particle.Y, p.masses)
}

func (p *Probe) Particle() physics.Particle { return p.particle }
func (p *Probe) Masses() []dynamo.Mass      { return p.masses }
func (p *Probe) Steps() int                 { return p.steps }
