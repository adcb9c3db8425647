package classify

import (
	"image/color"
	"math"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/san-kum/gravsnap/internal/dynamo"
)

var basePalette = []color.RGBA{
	{R: 167, G: 38, B: 8, A: 255},
	{R: 122, G: 179, B: 131, A: 255},
	{R: 118, G: 120, B: 219, A: 255},
}

// Palette paints each pixel flat in the colour of its nearest mass, judged
// by taxicab distance. Masses beyond the base palette get evenly spaced hues.
type Palette struct {
	colors []color.RGBA
}

func NewPalette() *Palette {
	p := &Palette{colors: make([]color.RGBA, len(basePalette))}
	copy(p.colors, basePalette)
	return p
}

func (p *Palette) Name() string { return "palette" }

// Color returns the flat colour assigned to mass i of n.
func (p *Palette) Color(i, n int) color.RGBA {
	if n <= len(p.colors) {
		return p.colors[i]
	}
	r, g, b := colorful.Hsv(360*float64(i)/float64(n), 0.7, 0.8).Clamped().RGB255()
	return color.RGBA{R: r, G: g, B: b, A: 255}
}

func (p *Palette) Classify(x, y float64, masses []dynamo.Mass) color.RGBA {
	if len(masses) == 0 {
		return color.RGBA{A: 255}
	}
	c, best := 0, math.Inf(1)
	for i, m := range masses {
		if d := math.Abs(x-m.X) + math.Abs(y-m.Y); d < best {
			c, best = i, d
		}
	}
	return p.Color(c, len(masses))
}
