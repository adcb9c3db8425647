package sim_test

import (
	"context"
	"errors"
	"image"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/gravsnap/internal/classify"
	"github.com/san-kum/gravsnap/internal/dynamo"
	"github.com/san-kum/gravsnap/internal/field"
	"github.com/san-kum/gravsnap/internal/physics"
	"github.com/san-kum/gravsnap/internal/sim"
)

// recordingSink keeps a copy of every frame and can close itself after a
// given number of frames, like a window the user shuts.
type recordingSink struct {
	frames     []sim.Frame
	closeAfter int
	closed     bool
	err        error
}

func (s *recordingSink) Emit(_ context.Context, f sim.Frame) error {
	if s.err != nil {
		return s.err
	}
	img := image.NewRGBA(f.Image.Bounds())
	copy(img.Pix, f.Image.Pix)
	f.Image = img
	s.frames = append(s.frames, f)
	if s.closeAfter > 0 && len(s.frames) >= s.closeAfter {
		s.closed = true
	}
	return nil
}

func (s *recordingSink) Closed() bool { return s.closed }

func smallOptions() sim.Options {
	opts := sim.DefaultOptions()
	opts.Width, opts.Height = 48, 36
	opts.Layout.ShapeHeight = 20
	return opts
}

var _ = Describe("Driver", func() {
	var (
		ctx  context.Context
		opts sim.Options
		sink *recordingSink
	)

	BeforeEach(func() {
		ctx = context.Background()
		opts = smallOptions()
		sink = &recordingSink{}
	})

	Describe("bounded runs", func() {
		It("emits every frame with cumulative step counts", func() {
			opts.Frames, opts.InitialSteps, opts.StepIncrement = 3, 100, 10

			d, err := sim.New(opts, sink)
			Expect(err).NotTo(HaveOccurred())
			Expect(d.State()).To(Equal(sim.Initializing))

			res, err := d.Run(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.State).To(Equal(sim.Done))
			Expect(d.State()).To(Equal(sim.Done))
			Expect(res.Frames).To(Equal(3))
			Expect(res.Steps).To(Equal(120))

			Expect(sink.frames).To(HaveLen(3))
			for i, want := range []int{100, 110, 120} {
				Expect(sink.frames[i].Index).To(Equal(i))
				Expect(sink.frames[i].Steps).To(Equal(want))
			}
		})

		It("matches a single render with the same total steps", func() {
			opts.Frames, opts.InitialSteps, opts.StepIncrement = 2, 30, 15

			d, err := sim.New(opts, sink)
			Expect(err).NotTo(HaveOccurred())
			_, err = d.Run(ctx)
			Expect(err).NotTo(HaveOccurred())

			masses, err := opts.Layout.Masses(opts.Width, opts.Height, nil)
			Expect(err).NotTo(HaveOccurred())
			grid, err := field.NewGrid(opts.Width, opts.Height)
			Expect(err).NotTo(HaveOccurred())
			buf := field.NewBuffer(grid)
			r := field.NewRenderer(opts.Params, masses, classify.NewWeighted(), 0)
			Expect(r.RenderFrame(ctx, grid, 45, buf)).To(Succeed())

			Expect(d.Grid().Snapshot()).To(Equal(grid.Snapshot()))
			Expect(sink.frames[1].Image.Pix).To(Equal(buf.Pix))
		})

		It("attaches basin statistics to every frame", func() {
			opts.Frames = 1

			d, _ := sim.New(opts, sink)
			_, err := d.Run(ctx)
			Expect(err).NotTo(HaveOccurred())

			st := sink.frames[0].Stats
			Expect(st.Shares).To(HaveLen(3))
			total := 0.0
			for _, s := range st.Shares {
				total += s
			}
			Expect(total).To(BeNumerically("~", 1.0, 1e-9))
		})

		It("reproduces random layouts from the seed", func() {
			opts.Layout = physics.MassConfig{Kind: physics.Random}
			opts.Seed = 42
			opts.Frames = 1

			a, _ := sim.New(opts, &recordingSink{})
			resA, err := a.Run(ctx)
			Expect(err).NotTo(HaveOccurred())

			b, _ := sim.New(opts, &recordingSink{})
			resB, err := b.Run(ctx)
			Expect(err).NotTo(HaveOccurred())

			Expect(resA.Masses).To(Equal(resB.Masses))
		})
	})

	Describe("aborting", func() {
		It("stops at the next frame boundary once the surface closes", func() {
			opts.Frames = 5
			sink.closeAfter = 1

			d, _ := sim.New(opts, sink)
			res, err := d.Run(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.State).To(Equal(sim.Aborted))
			Expect(res.Frames).To(Equal(1))
			Expect(sink.frames).To(HaveLen(1))
			Expect(res.Steps).To(Equal(opts.InitialSteps))
		})

		It("treats ErrSinkClosed as a quiet stop", func() {
			opts.Frames = 4
			sink.err = dynamo.ErrSinkClosed

			d, _ := sim.New(opts, sink)
			res, err := d.Run(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.State).To(Equal(sim.Aborted))
			Expect(res.Frames).To(BeZero())
		})

		It("returns sink failures wrapped with the frame", func() {
			opts.Frames = 4
			failure := errors.New("disk full")
			calls := 0
			failing := sim.SinkFunc(func(context.Context, sim.Frame) error {
				calls++
				if calls == 2 {
					return failure
				}
				return nil
			})

			d, _ := sim.New(opts, failing)
			res, err := d.Run(ctx)
			Expect(err).To(MatchError(failure))

			var fe *dynamo.FrameError
			Expect(errors.As(err, &fe)).To(BeTrue())
			Expect(fe.Frame).To(Equal(1))
			Expect(res.State).To(Equal(sim.Aborted))
			Expect(res.Frames).To(Equal(1))
			Expect(calls).To(Equal(2))
		})

		It("runs unbounded until the context ends", func() {
			opts.Frames = 0
			cctx, cancel := context.WithCancel(ctx)
			counting := sim.SinkFunc(func(_ context.Context, f sim.Frame) error {
				if f.Index == 6 {
					cancel()
				}
				return nil
			})

			d, _ := sim.New(opts, counting)
			res, err := d.Run(cctx)
			Expect(err).To(MatchError(context.Canceled))
			Expect(res.State).To(Equal(sim.Aborted))
			Expect(res.Frames).To(Equal(7))
		})
	})

	Describe("configuration", func() {
		DescribeTable("rejects invalid options",
			func(mutate func(*sim.Options), target error) {
				o := smallOptions()
				mutate(&o)
				_, err := sim.New(o)
				Expect(err).To(HaveOccurred())
				if target != nil {
					Expect(errors.Is(err, target)).To(BeTrue())
				}
			},
			Entry("zero width", func(o *sim.Options) { o.Width = 0 }, dynamo.ErrInvalidDimensions),
			Entry("negative steps", func(o *sim.Options) { o.StepIncrement = -1 }, dynamo.ErrInvalidSteps),
			Entry("negative frames", func(o *sim.Options) { o.Frames = -2 }, nil),
			Entry("zero dt", func(o *sim.Options) { o.Params.Dt = 0 }, dynamo.ErrInvalidParams),
		)

		It("fails in initialization for an empty custom layout", func() {
			opts.Layout = physics.MassConfig{Kind: physics.Custom}
			d, err := sim.New(opts, sink)
			Expect(err).NotTo(HaveOccurred())

			res, err := d.Run(ctx)
			Expect(err).To(MatchError(dynamo.ErrNoMasses))
			Expect(res.State).To(Equal(sim.Aborted))
			Expect(sink.frames).To(BeEmpty())
		})
	})

	Describe("end to end", func() {
		It("saturates the channel of each mass at its own pixel", func() {
			opts = sim.DefaultOptions()
			opts.Params = dynamo.Params{Gravity: 30, Softening: 5, Dt: 0.1}

			d, _ := sim.New(opts, sink)
			res, err := d.Run(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(sink.frames).To(HaveLen(1))

			img := sink.frames[0].Image
			for i, m := range res.Masses {
				px := img.RGBAAt(int(m.X+0.5), int(m.Y+0.5))
				Expect([3]uint8{px.R, px.G, px.B}[i]).To(Equal(uint8(255)))
			}
		})
	})
})
