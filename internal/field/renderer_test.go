package field

import (
	"context"
	"errors"
	"image"
	"testing"

	. "github.com/onsi/gomega"

	"github.com/san-kum/gravsnap/internal/classify"
	"github.com/san-kum/gravsnap/internal/dynamo"
	"github.com/san-kum/gravsnap/internal/physics"
)

func newTestRenderer(t *testing.T, w, h, workers int) (*Renderer, *Grid) {
	t.Helper()
	masses, err := physics.Derive(physics.Triangle, w, h, float64(h)*0.4, nil)
	if err != nil {
		t.Fatalf("derive failed: %v", err)
	}
	grid, err := NewGrid(w, h)
	if err != nil {
		t.Fatalf("grid failed: %v", err)
	}
	return NewRenderer(dynamo.DefaultParams(), masses, classify.NewWeighted(), workers), grid
}

func TestRenderFrameProgressive(t *testing.T) {
	g := NewWithT(t)
	ctx := context.Background()

	r, stepped := newTestRenderer(t, 40, 30, 0)
	_, direct := newTestRenderer(t, 40, 30, 0)

	bufA := NewBuffer(stepped)
	g.Expect(r.RenderFrame(ctx, stepped, 25, bufA)).To(Succeed())
	g.Expect(r.RenderFrame(ctx, stepped, 10, bufA)).To(Succeed())

	bufB := NewBuffer(direct)
	g.Expect(r.RenderFrame(ctx, direct, 35, bufB)).To(Succeed())

	g.Expect(stepped.Steps()).To(Equal(35))
	g.Expect(direct.Steps()).To(Equal(35))
	g.Expect(stepped.Snapshot()).To(Equal(direct.Snapshot()))
	g.Expect(bufA.Pix).To(Equal(bufB.Pix))
}

func TestRenderFrameWorkerIndependent(t *testing.T) {
	g := NewWithT(t)
	ctx := context.Background()

	serial, a := newTestRenderer(t, 33, 47, 1)
	parallel, b := newTestRenderer(t, 33, 47, 8)

	bufA, bufB := NewBuffer(a), NewBuffer(b)
	g.Expect(serial.RenderFrame(ctx, a, 20, bufA)).To(Succeed())
	g.Expect(parallel.RenderFrame(ctx, b, 20, bufB)).To(Succeed())

	g.Expect(a.Snapshot()).To(Equal(b.Snapshot()))
	g.Expect(bufA.Pix).To(Equal(bufB.Pix))
}

func TestRenderFrameZeroSteps(t *testing.T) {
	g := NewWithT(t)

	r, grid := newTestRenderer(t, 10, 10, 0)
	buf := NewBuffer(grid)
	g.Expect(r.RenderFrame(context.Background(), grid, 0, buf)).To(Succeed())

	g.Expect(grid.Snapshot()[0]).To(Equal(physics.NewParticle(0, 0)))
	g.Expect(buf.RGBAAt(0, 0)).To(Equal(r.Classifier.Classify(0, 0, r.Masses)))
}

func TestRenderFrameBufferMismatch(t *testing.T) {
	r, grid := newTestRenderer(t, 10, 10, 0)

	tests := []struct {
		name string
		buf  *image.RGBA
	}{
		{"nil", nil},
		{"too small", image.NewRGBA(image.Rect(0, 0, 9, 10))},
		{"too tall", image.NewRGBA(image.Rect(0, 0, 10, 11))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := r.RenderFrame(context.Background(), grid, 1, tt.buf)
			if !errors.Is(err, dynamo.ErrBufferSize) {
				t.Errorf("expected ErrBufferSize, got %v", err)
			}
		})
	}

	if grid.Steps() != 0 {
		t.Errorf("failed passes must not advance the grid, got %d steps", grid.Steps())
	}
}

func TestRenderFrameOffsetBuffer(t *testing.T) {
	g := NewWithT(t)

	r, grid := newTestRenderer(t, 8, 6, 0)
	buf := image.NewRGBA(image.Rect(10, 20, 18, 26))
	g.Expect(r.RenderFrame(context.Background(), grid, 3, buf)).To(Succeed())

	p := grid.At(7, 5)
	g.Expect(buf.RGBAAt(17, 25)).To(Equal(r.Classifier.Classify(p.X, p.Y, r.Masses)))
}

func TestRenderFrameNegativeSteps(t *testing.T) {
	r, grid := newTestRenderer(t, 4, 4, 0)
	err := r.RenderFrame(context.Background(), grid, -1, NewBuffer(grid))
	if !errors.Is(err, dynamo.ErrInvalidSteps) {
		t.Errorf("expected ErrInvalidSteps, got %v", err)
	}
}

func TestRenderFrameGridBusy(t *testing.T) {
	r, grid := newTestRenderer(t, 4, 4, 0)
	if err := grid.acquire(); err != nil {
		t.Fatalf("acquire failed: %v", err)
	}
	defer grid.release()

	err := r.RenderFrame(context.Background(), grid, 1, NewBuffer(grid))
	if !errors.Is(err, dynamo.ErrGridBusy) {
		t.Errorf("expected ErrGridBusy, got %v", err)
	}
}

func TestRenderFrameNearestMassPixel(t *testing.T) {
	g := NewWithT(t)

	grid, _ := NewGrid(500, 500)
	masses, _ := physics.Derive(physics.Triangle, 500, 500, 200, nil)
	r := NewRenderer(dynamo.Params{Gravity: 30, Softening: 5, Dt: 0.1}, masses, classify.NewWeighted(), 0)

	buf := NewBuffer(grid)
	g.Expect(r.RenderFrame(context.Background(), grid, 100, buf)).To(Succeed())

	for i, m := range masses {
		x, y := int(m.X+0.5), int(m.Y+0.5)
		p := grid.At(x, y)
		c, _ := dynamo.Nearest(p.X, p.Y, masses)
		g.Expect(c).To(Equal(i), "particle starting on mass %d drifted away", i)
		px := buf.RGBAAt(x, y)
		g.Expect([3]uint8{px.R, px.G, px.B}[c]).To(Equal(uint8(255)), "mass %d pixel", i)
	}
}

func BenchmarkRenderFrame(b *testing.B) {
	masses, _ := physics.Derive(physics.Triangle, 200, 200, 80, nil)
	grid, _ := NewGrid(200, 200)
	r := NewRenderer(dynamo.DefaultParams(), masses, classify.NewWeighted(), 0)
	buf := NewBuffer(grid)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = r.RenderFrame(context.Background(), grid, 10, buf)
	}
}
