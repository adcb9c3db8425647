package metrics

import (
	"fmt"
	"math"

	"github.com/san-kum/gravsnap/internal/dynamo"
	"github.com/san-kum/gravsnap/internal/field"
	"github.com/san-kum/gravsnap/internal/physics"
)

// Metric accumulates one figure over the particles of a frame.
type Metric interface {
	Name() string
	Observe(p *physics.Particle, nearest int)
	Value() float64
	Reset()
}

// Share is the fraction of particles whose nearest mass is Index.
type Share struct {
	Index   int
	hits    int
	samples int
}

func NewShare(index int) *Share { return &Share{Index: index} }

func (s *Share) Name() string { return fmt.Sprintf("basin_%d", s.Index) }

func (s *Share) Observe(_ *physics.Particle, nearest int) {
	if nearest == s.Index {
		s.hits++
	}
	s.samples++
}

func (s *Share) Value() float64 {
	if s.samples == 0 {
		return 0
	}
	return float64(s.hits) / float64(s.samples)
}

func (s *Share) Reset() { s.hits, s.samples = 0, 0 }

// Escaped is the fraction of particles that left the canvas.
type Escaped struct {
	width, height float64
	out, samples  int
}

func NewEscaped(width, height int) *Escaped {
	return &Escaped{width: float64(width), height: float64(height)}
}

func (e *Escaped) Name() string { return "escaped" }

func (e *Escaped) Observe(p *physics.Particle, _ int) {
	if p.X < 0 || p.X >= e.width || p.Y < 0 || p.Y >= e.height || math.IsNaN(p.X) || math.IsNaN(p.Y) {
		e.out++
	}
	e.samples++
}

func (e *Escaped) Value() float64 {
	if e.samples == 0 {
		return 0
	}
	return float64(e.out) / float64(e.samples)
}

func (e *Escaped) Reset() { e.out, e.samples = 0, 0 }

// MeanSpeed is the average particle speed.
type MeanSpeed struct {
	sum     float64
	samples int
}

func NewMeanSpeed() *MeanSpeed { return &MeanSpeed{} }

func (m *MeanSpeed) Name() string { return "mean_speed" }

func (m *MeanSpeed) Observe(p *physics.Particle, _ int) {
	m.sum += math.Hypot(p.VX, p.VY)
	m.samples++
}

func (m *MeanSpeed) Value() float64 {
	if m.samples == 0 {
		return 0
	}
	return m.sum / float64(m.samples)
}

func (m *MeanSpeed) Reset() { m.sum, m.samples = 0, 0 }

// Stats summarises one rendered frame.
type Stats struct {
	Shares    []float64          `json:"shares"`
	Escaped   float64            `json:"escaped"`
	MeanSpeed float64            `json:"mean_speed"`
	Values    map[string]float64 `json:"-"`
}

// Collector runs the default metric set over a grid.
type Collector struct {
	masses  []dynamo.Mass
	shares  []*Share
	metrics []Metric
	escaped *Escaped
	speed   *MeanSpeed
}

func NewCollector(masses []dynamo.Mass, width, height int) *Collector {
	c := &Collector{
		masses:  masses,
		escaped: NewEscaped(width, height),
		speed:   NewMeanSpeed(),
	}
	for i := range masses {
		s := NewShare(i)
		c.shares = append(c.shares, s)
		c.metrics = append(c.metrics, s)
	}
	c.metrics = append(c.metrics, c.escaped, c.speed)
	return c
}

// Collect observes every particle of grid. The grid must not be rendering.
func (c *Collector) Collect(grid *field.Grid) Stats {
	for _, m := range c.metrics {
		m.Reset()
	}

	for y := 0; y < grid.Height(); y++ {
		row := grid.Row(y)
		for x := range row {
			p := &row[x]
			nearest, _ := dynamo.Nearest(p.X, p.Y, c.masses)
			for _, m := range c.metrics {
				m.Observe(p, nearest)
			}
		}
	}

	st := Stats{
		Shares:    make([]float64, len(c.shares)),
		Escaped:   c.escaped.Value(),
		MeanSpeed: c.speed.Value(),
		Values:    make(map[string]float64, len(c.metrics)),
	}
	for i, s := range c.shares {
		st.Shares[i] = s.Value()
	}
	for _, m := range c.metrics {
		st.Values[m.Name()] = m.Value()
	}
	return st
}
