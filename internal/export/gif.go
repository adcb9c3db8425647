package export

import (
	"context"
	"errors"
	"image"
	"image/color/palette"
	"image/gif"
	"os"

	"golang.org/x/image/draw"

	"github.com/san-kum/gravsnap/internal/sim"
)

// maxDelay is the largest delay the GIF format can store.
const maxDelay = 1<<16 - 1

// GIF collects frames into an animation written on Close.
type GIF struct {
	Path string
	// Delay between frames in hundredths of a second.
	Delay int
	// MaxSide bounds the longest edge of the animation; larger frames are
	// scaled down. Zero keeps the original size.
	MaxSide int
	// MaxFrames bounds the frames held in memory. Once exceeded, every other
	// frame is dropped and later frames are sampled at the same stride; a
	// dropped frame's delay goes to the frame before it so playback time is
	// kept. Zero keeps every frame.
	MaxFrames int

	frames []*image.Paletted
	delays []int
	stride int
	seen   int
	closed bool
}

func NewGIF(path string) *GIF {
	return &GIF{Path: path, Delay: 8, MaxSide: 400, MaxFrames: 300}
}

func (g *GIF) Emit(_ context.Context, f sim.Frame) error {
	if g.closed {
		return errors.New("gif: emit after close")
	}
	if g.stride == 0 {
		g.stride = 1
	}
	n := g.seen
	g.seen++
	if n%g.stride != 0 && len(g.delays) > 0 {
		g.delays[len(g.delays)-1] += g.Delay
		return nil
	}

	g.frames = append(g.frames, g.quantize(f.Image))
	g.delays = append(g.delays, g.Delay)
	if g.MaxFrames > 0 && len(g.frames) > g.MaxFrames {
		g.decimate()
	}
	return nil
}

// decimate keeps the even frames and doubles the sampling stride.
func (g *GIF) decimate() {
	kept := 0
	for i := range g.frames {
		if i%2 == 0 {
			g.frames[kept] = g.frames[i]
			g.delays[kept] = g.delays[i]
			kept++
			continue
		}
		g.delays[kept-1] += g.delays[i]
	}
	clear(g.frames[kept:])
	g.frames = g.frames[:kept]
	g.delays = g.delays[:kept]
	g.stride *= 2
}

func (g *GIF) bounds(src image.Rectangle) image.Rectangle {
	w, h := src.Dx(), src.Dy()
	if g.MaxSide <= 0 || (w <= g.MaxSide && h <= g.MaxSide) {
		return image.Rect(0, 0, w, h)
	}
	if w >= h {
		return image.Rect(0, 0, g.MaxSide, max(1, h*g.MaxSide/w))
	}
	return image.Rect(0, 0, max(1, w*g.MaxSide/h), g.MaxSide)
}

func (g *GIF) quantize(src *image.RGBA) *image.Paletted {
	r := g.bounds(src.Bounds())
	var img image.Image = src
	if r.Dx() != src.Bounds().Dx() || r.Dy() != src.Bounds().Dy() {
		scaled := image.NewRGBA(r)
		draw.ApproxBiLinear.Scale(scaled, r, src, src.Bounds(), draw.Src, nil)
		img = scaled
	}

	out := image.NewPaletted(r, palette.Plan9)
	draw.FloydSteinberg.Draw(out, r, img, img.Bounds().Min)
	return out
}

// Close writes the animation. A run that produced no frames writes nothing.
func (g *GIF) Close() error {
	if g.closed {
		return nil
	}
	g.closed = true
	if len(g.frames) == 0 {
		return nil
	}

	anim := gif.GIF{LoopCount: 0}
	for i, frame := range g.frames {
		anim.Image = append(anim.Image, frame)
		anim.Delay = append(anim.Delay, min(g.delays[i], maxDelay))
	}

	f, err := os.Create(g.Path)
	if err != nil {
		return err
	}
	if err := gif.EncodeAll(f, &anim); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
