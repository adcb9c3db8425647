package export

import (
	"fmt"
	"image/color"
	"strings"

	"github.com/san-kum/gravsnap/internal/classify"
	"github.com/san-kum/gravsnap/internal/dynamo"
)

func hex(c color.RGBA) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// LayoutSVG draws the canvas outline and each mass in the colour its
// basin gets from the classifier.
func LayoutSVG(masses []dynamo.Mass, width, height int, cl classify.Classifier) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="#0a0a0a"/>
`, width, height, width, height))

	r := float64(min(width, height)) / 60
	if r < 2 {
		r = 2
	}
	for i, m := range masses {
		fill := "#ffffff"
		if cl != nil {
			fill = hex(cl.Classify(m.X, m.Y, masses))
		}
		sb.WriteString(fmt.Sprintf(`<circle cx="%.1f" cy="%.1f" r="%.1f" fill="%s" stroke="#ffffff" stroke-width="1"><title>mass %d</title></circle>
`, m.X, m.Y, r, fill, i))
	}

	sb.WriteString("</svg>")
	return sb.String()
}

// SeriesSVG plots one polyline per series over a shared frame axis, with
// values in [0, 1] such as basin shares.
func SeriesSVG(series [][]float64, width, height int, colors []string) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="#0a0a0a"/>
`, width, height, width, height))

	for s, points := range series {
		if len(points) < 2 {
			continue
		}
		stroke := "#00ff00"
		if s < len(colors) {
			stroke = colors[s]
		}

		sb.WriteString(fmt.Sprintf(`<path fill="none" stroke="%s" stroke-width="1.5" d="M`, stroke))
		// 10% padding on both axes
		padX, padY := float64(width)*0.1, float64(height)*0.1
		spanX, spanY := float64(width)-2*padX, float64(height)-2*padY
		for i, v := range points {
			x := padX + float64(i)/float64(len(points)-1)*spanX
			y := float64(height) - padY - clamp01(v)*spanY
			if i == 0 {
				sb.WriteString(fmt.Sprintf("%.1f,%.1f", x, y))
			} else {
				sb.WriteString(fmt.Sprintf(" L%.1f,%.1f", x, y))
			}
		}
		sb.WriteString(`"/>
`)
	}

	sb.WriteString("</svg>")
	return sb.String()
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
