package viz

import (
	"image"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/image/draw"
)

// Thumbnail scales src to fit cols terminal columns by rows lines of half
// blocks, keeping the aspect ratio. The result never aliases src.
func Thumbnail(src *image.RGBA, cols, rows int) *image.RGBA {
	sb := src.Bounds()
	w, h := sb.Dx(), sb.Dy()
	maxW, maxH := cols, rows*2
	if w <= 0 || h <= 0 || maxW <= 0 || maxH <= 0 {
		return image.NewRGBA(image.Rect(0, 0, 0, 0))
	}

	tw, th := maxW, h*maxW/w
	if th > maxH {
		tw, th = w*maxH/h, maxH
	}
	tw, th = max(1, tw), max(1, th)

	dst := image.NewRGBA(image.Rect(0, 0, tw, th))
	draw.NearestNeighbor.Scale(dst, dst.Bounds(), src, sb, draw.Src, nil)
	return dst
}

// HalfBlocks renders img with one "▀" per two vertically stacked pixels,
// the upper pixel as foreground and the lower as background.
func HalfBlocks(img *image.RGBA) string {
	b := img.Bounds()
	var sb strings.Builder
	for y := b.Min.Y; y < b.Max.Y; y += 2 {
		for x := b.Min.X; x < b.Max.X; x++ {
			style := lipgloss.NewStyle().Foreground(rgbColor(img.RGBAAt(x, y)))
			if y+1 < b.Max.Y {
				style = style.Background(rgbColor(img.RGBAAt(x, y+1)))
			}
			sb.WriteString(style.Render("▀"))
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}
