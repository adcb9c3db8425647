package classify

import (
	"image/color"
	"math"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/san-kum/gravsnap/internal/dynamo"
)

// Weighted saturates the channel of the nearest mass and shades the other
// channels by how far the particle is from their masses, relative to the
// summed distance to every mass except the nearest. Mass i drives channel i
// (R, G, B). Up to three masses map onto channels directly; larger sets fall
// back to a hue per mass.
type Weighted struct{}

func NewWeighted() *Weighted { return &Weighted{} }

func (w *Weighted) Name() string { return "weighted" }

func (w *Weighted) Classify(x, y float64, masses []dynamo.Mass) color.RGBA {
	n := len(masses)
	if n == 0 {
		return color.RGBA{A: 255}
	}
	if n > 3 {
		return hueBlend(x, y, masses)
	}

	var d [3]float64
	c := 0
	for i, m := range masses {
		d[i] = m.Dist(x, y)
		if d[i] < d[c] {
			c = i
		}
	}

	total := 0.0
	for i := 0; i < n; i++ {
		if i != c {
			total += d[i]
		}
	}

	var ch [3]uint8
	for i := 0; i < n; i++ {
		if i == c {
			ch[i] = 255
			continue
		}
		if total == 0 {
			continue
		}
		ch[i] = clampByte(math.Round(255 * (total - d[i]) / total))
	}

	return color.RGBA{R: ch[0], G: ch[1], B: ch[2], A: 255}
}

// hueBlend gives mass c of n the hue 360*c/n and brightens it the more the
// nearest mass stands out from the mean distance to the rest.
func hueBlend(x, y float64, masses []dynamo.Mass) color.RGBA {
	n := len(masses)
	c, dc := dynamo.Nearest(x, y, masses)

	sum := 0.0
	for i, m := range masses {
		if i != c {
			sum += m.Dist(x, y)
		}
	}
	mean := sum / float64(n-1)

	weight := 0.0
	if mean > 0 {
		weight = math.Max(0, math.Min(1, (mean-dc)/mean))
	}

	col := colorful.Hsv(360*float64(c)/float64(n), 1, 0.5+0.5*weight)
	r, g, b := col.Clamped().RGB255()
	return color.RGBA{R: r, G: g, B: b, A: 255}
}
