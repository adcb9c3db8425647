package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"

	"github.com/san-kum/gravsnap/internal/classify"
	"github.com/san-kum/gravsnap/internal/config"
	"github.com/san-kum/gravsnap/internal/dynamo"
	"github.com/san-kum/gravsnap/internal/export"
	"github.com/san-kum/gravsnap/internal/field"
	"github.com/san-kum/gravsnap/internal/physics"
	"github.com/san-kum/gravsnap/internal/sim"
	"github.com/san-kum/gravsnap/internal/storage"
	"github.com/san-kum/gravsnap/internal/viz"
)

var (
	width       int
	height      int
	frames      string
	shape       string
	shapeHeight float64
	count       int
	dt          float64
	gravity     float64
	softening   float64
	iterations  int
	step        int
	seed        int64
	classifier  string
	workers     int
	// Output
	noSave       bool
	name         string
	saveIn       string
	timestampDir bool
	format       string
	gifPath      string
	preview      bool
	// Config file
	configFile string
	// Preset name
	preset string
	// Run directory for list/show
	dataDir       string
	svgPath       string
	layoutSVGPath string
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "gravsnap",
		Short:        "render basins of attraction of a softened gravity field",
		SilenceUsage: true,
		RunE:         runRender,
	}
	addFieldFlags(rootCmd)
	addOutputFlags(rootCmd)

	renderCmd := &cobra.Command{
		Use:   "render",
		Short: "render snapshot frames (same as the bare command)",
		RunE:  runRender,
	}
	addFieldFlags(renderCmd)
	addOutputFlags(renderCmd)

	probeCmd := &cobra.Command{
		Use:   "probe",
		Short: "follow single particles dropped with the mouse",
		RunE:  runProbe,
	}
	addFieldFlags(probeCmd)

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list available presets",
		RunE:  listPresets,
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list saved runs",
		RunE:  listRuns,
	}
	listCmd.Flags().StringVar(&dataDir, "data", ".", "directory holding runs")

	showCmd := &cobra.Command{
		Use:   "show [run_id]",
		Short: "show a saved run and its basin shares",
		Args:  cobra.ExactArgs(1),
		RunE:  showRun,
	}
	showCmd.Flags().StringVar(&dataDir, "data", ".", "directory holding runs")
	showCmd.Flags().StringVar(&svgPath, "svg", "", "also write the share chart as SVG")
	showCmd.Flags().StringVar(&layoutSVGPath, "layout-svg", "", "also write the mass layout as SVG")

	benchCmd := &cobra.Command{
		Use:   "bench",
		Short: "benchmark frame rendering across worker counts",
		RunE:  benchRender,
	}
	addFieldFlags(benchCmd)

	rootCmd.AddCommand(renderCmd, probeCmd, presetsCmd, listCmd, showCmd, benchCmd)
	return rootCmd
}

func addFieldFlags(cmd *cobra.Command) {
	def := config.DefaultConfig()
	f := cmd.Flags()
	f.IntVar(&width, "width", def.Width, "frame width in pixels")
	f.IntVar(&height, "height", def.Height, "frame height in pixels")
	f.StringVar(&frames, "frames", config.FormatFrames(def.Frames), "number of frames to render, or \"inf\"")
	f.StringVar(&shape, "shape", def.Layout, "mass layout: "+strings.Join(physics.LayoutNames(), ", "))
	f.Float64Var(&shapeHeight, "shapeheight", def.ShapeHeight, "height of the mass shape")
	f.IntVar(&count, "count", 0, "number of masses for random and ring layouts")
	f.Float64Var(&dt, "dt", def.Dt, "time step per iteration")
	f.Float64Var(&gravity, "gravity", def.Gravity, "force of gravity")
	f.Float64Var(&softening, "softening", def.Softening, "softening added to squared distances")
	f.IntVarP(&iterations, "iterations", "i", def.Iterations, "iterations before the first frame")
	f.IntVar(&step, "step", def.Step, "iterations added per later frame")
	f.Int64Var(&seed, "seed", 0, "random seed (0 picks one from the clock)")
	f.StringVar(&classifier, "classifier", def.Classifier, "colouring: "+strings.Join(classify.Names(), ", "))
	f.IntVar(&workers, "workers", 0, "render workers (0 uses every CPU)")
	f.StringVar(&configFile, "config", "", "config file path (yaml)")
	f.StringVar(&preset, "preset", "", "use preset configuration")
}

func addOutputFlags(cmd *cobra.Command) {
	def := config.DefaultConfig()
	f := cmd.Flags()
	f.BoolVar(&noSave, "no-save", false, "don't save the frames")
	f.StringVar(&name, "name", def.Output.Name, "base file name")
	f.StringVar(&saveIn, "save-in", def.Output.Dir, "save directory (must exist)")
	f.BoolVarP(&timestampDir, "timestamp-dir", "g", false, "save into a new directory named after the current time")
	f.StringVar(&format, "format", def.Output.Format, "frame format: "+strings.Join(config.Formats, ", "))
	f.StringVar(&gifPath, "gif", "", "also write an animated GIF")
	f.BoolVar(&preview, "preview", false, "show frames in the terminal while rendering")
}

// loadConfig resolves defaults, then a preset, then a config file, then
// any flags set on the command line.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.DefaultConfig()

	if preset != "" {
		cfg = config.GetPreset(preset)
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets())
		}
	}

	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}

	f := cmd.Flags()
	if f.Changed("width") {
		cfg.Width = width
	}
	if f.Changed("height") {
		cfg.Height = height
	}
	if f.Changed("frames") {
		n, err := config.ParseFrames(frames)
		if err != nil {
			return nil, err
		}
		cfg.Frames = n
	}
	if f.Changed("shape") {
		cfg.Layout = shape
	}
	if f.Changed("shapeheight") {
		cfg.ShapeHeight = shapeHeight
	}
	if f.Changed("count") {
		cfg.Count = count
	}
	if f.Changed("dt") {
		cfg.Dt = dt
	}
	if f.Changed("gravity") {
		cfg.Gravity = gravity
	}
	if f.Changed("softening") {
		cfg.Softening = softening
	}
	if f.Changed("iterations") {
		cfg.Iterations = iterations
	}
	if f.Changed("step") {
		cfg.Step = step
	}
	if f.Changed("seed") {
		cfg.Seed = seed
	}
	if f.Changed("classifier") {
		cfg.Classifier = classifier
	}
	if f.Changed("workers") {
		cfg.Workers = workers
	}

	// output flags exist on render commands only
	if f.Lookup("no-save") != nil {
		if f.Changed("no-save") {
			cfg.Output.Save = !noSave
		}
		if f.Changed("name") {
			cfg.Output.Name = name
		}
		if f.Changed("save-in") {
			cfg.Output.Dir = saveIn
		}
		if f.Changed("timestamp-dir") {
			cfg.Output.TimestampDir = timestampDir
		}
		if f.Changed("format") {
			cfg.Output.Format = strings.ToLower(format)
		}
		if f.Changed("gif") {
			cfg.Output.GIF = gifPath
		}
	}

	if cfg.Seed == 0 {
		cfg.Seed = time.Now().UnixNano()
	}
	return cfg, cfg.Validate()
}

func runRender(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	opts, err := cfg.ToOptions()
	if err != nil {
		return err
	}

	printSummary(cfg, cmd.Flags().Changed("save-in"))

	var (
		sinks  sim.MultiSink
		writer *storage.FrameWriter
	)
	if cfg.Output.Save {
		dir, err := storage.New(cfg.Output.Dir).RunDir(cfg.Output.TimestampDir, time.Now())
		if err != nil {
			return err
		}
		writer, err = storage.NewFrameWriter(dir, cfg.Output.Name, cfg.Output.Format, storage.RunMetadata{
			Timestamp:  time.Now(),
			Width:      cfg.Width,
			Height:     cfg.Height,
			Layout:     cfg.Layout,
			Classifier: cfg.Classifier,
			Seed:       cfg.Seed,
			Params:     cfg.Params(),
			Iterations: cfg.Iterations,
			Step:       cfg.Step,
			Frames:     cfg.Frames,
		})
		if err != nil {
			return err
		}
		sinks = append(sinks, writer)
		fmt.Printf("Saving to: %s\n", dir)
	}
	if cfg.Output.GIF != "" {
		sinks = append(sinks, export.NewGIF(cfg.Output.GIF))
	}
	if preview {
		sinks = append(sinks, viz.NewPreview("GRAVITY SNAPSHOT", cfg.Frames, true, tea.WithAltScreen()))
	} else {
		sinks = append(sinks, &progressSink{frames: cfg.Frames, start: time.Now()})
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	res, err := renderRun(ctx, opts, sinks, writer)
	switch {
	case err != nil:
		return err
	case res.State == sim.Aborted:
		fmt.Println("Window Closed")
		return errors.New("rendering aborted")
	}
	fmt.Printf("Frame Rendering Complete (%d frames, %d iterations, %v)\n", res.Frames, res.Steps, res.Elapsed.Round(time.Millisecond))
	return nil
}

// renderRun drives one run and always closes the sinks, so a saved run
// keeps its metadata even when the driver cannot start.
func renderRun(ctx context.Context, opts sim.Options, sinks sim.MultiSink, writer *storage.FrameWriter) (res *sim.Result, err error) {
	defer func() {
		if writer != nil {
			if res == nil {
				writer.Finish(&sim.Result{State: sim.Aborted})
			} else {
				writer.Finish(res)
			}
		}
		if closeErr := sinks.Close(); err == nil {
			err = closeErr
		}
	}()

	d, err := sim.New(opts, sinks...)
	if err != nil {
		return nil, err
	}
	return d.Run(ctx)
}

func printSummary(cfg *config.Config, dirSet bool) {
	fmt.Printf("Layout: %s\n", cfg.Layout)
	fmt.Printf("Shape height: %g\n", cfg.ShapeHeight)
	fmt.Printf("Frames: %s\n", config.FormatFrames(cfg.Frames))
	fmt.Printf("Base iterations per frame: %d\n", cfg.Iterations)
	fmt.Printf("Iteration increase step per frame: %d\n", cfg.Step)
	fmt.Printf("dt: %f\n", cfg.Dt)
	if !cfg.Output.Save {
		fmt.Println("Not Saving")
		if dirSet {
			fmt.Println(viz.Warning.Render("WARNING: save directory is set, but so is the no-save flag.\n         Output will not be saved!"))
		}
	}
	fmt.Printf("Total size required: %s bytes\n", groupThousands(cfg.Width*cfg.Height*field.ParticleBytes))
}

// groupThousands formats n with comma separators.
func groupThousands(n int) string {
	s := strconv.Itoa(n)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	for i := len(s) - 3; i > 0; i -= 3 {
		s = s[:i] + "," + s[i:]
	}
	if neg {
		return "-" + s
	}
	return s
}

// progressSink prints one line per finished frame.
type progressSink struct {
	frames int
	start  time.Time
}

func (p *progressSink) Emit(_ context.Context, f sim.Frame) error {
	total := "inf"
	if p.frames > 0 {
		total = strconv.Itoa(p.frames)
	}
	shares := make([]string, len(f.Stats.Shares))
	for i, s := range f.Stats.Shares {
		shares[i] = fmt.Sprintf("%.1f%%", 100*s)
	}
	fmt.Printf("frame %d/%s  iterations %d  basins [%s]  %v\n",
		f.Index+1, total, f.Steps, strings.Join(shares, " "), time.Since(p.start).Round(time.Millisecond))
	return nil
}

func runProbe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	mc, err := cfg.MassConfig()
	if err != nil {
		return err
	}
	masses, err := mc.Masses(cfg.Width, cfg.Height, rand.New(rand.NewSource(cfg.Seed)))
	if err != nil {
		return err
	}
	cl, err := classify.New(cfg.Classifier)
	if err != nil {
		return err
	}
	probe := sim.NewProbe(cfg.Params(), masses, cl)
	return viz.RunProbe(probe, float64(cfg.Width), float64(cfg.Height))
}

func listPresets(cmd *cobra.Command, args []string) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tLAYOUT\tSIZE\tSHAPE\tFRAMES\tCLASSIFIER")
	for _, n := range config.ListPresets() {
		p := config.GetPreset(n)
		fmt.Fprintf(w, "%s\t%s\t%dx%d\t%g\t%s\t%s\n",
			n, p.Layout, p.Width, p.Height, p.ShapeHeight, config.FormatFrames(p.Frames), p.Classifier)
	}
	return w.Flush()
}

func listRuns(cmd *cobra.Command, args []string) error {
	runs, err := storage.New(dataDir).List()
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTIME\tSIZE\tLAYOUT\tFRAMES\tITERATIONS\tSTATE")
	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%dx%d\t%s\t%d\t%d\t%s\n",
			run.ID,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Width, run.Height,
			run.Layout,
			run.Rendered,
			run.Steps,
			run.State,
		)
	}
	return w.Flush()
}

func showRun(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}
	stats, err := st.LoadStats(runID)
	if err != nil {
		return err
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("layout: %s  %dx%d  seed %d\n", meta.Layout, meta.Width, meta.Height, meta.Seed)
	fmt.Printf("frames: %d  iterations: %d  state: %s\n", meta.Rendered, meta.Steps, meta.State)
	for i, m := range meta.Masses {
		fmt.Printf("mass %d: (%.1f, %.1f)\n", i, m.X, m.Y)
	}
	fmt.Println()

	if len(stats) == 0 {
		return fmt.Errorf("no data to plot")
	}

	series := make([][]float64, len(stats[0].Shares))
	escaped := make([]float64, len(stats))
	for i, r := range stats {
		for j := range series {
			if j < len(r.Shares) {
				series[j] = append(series[j], r.Shares[j])
			}
		}
		escaped[i] = r.Escaped
	}

	if len(stats) > 1 {
		graph := asciigraph.PlotMany(series,
			asciigraph.Height(10),
			asciigraph.Width(80),
			asciigraph.LowerBound(0),
			asciigraph.UpperBound(1),
			asciigraph.Caption("basin share per frame"),
		)
		fmt.Println(graph)
		fmt.Println()
		fmt.Println(viz.Metric("escaped", viz.SparklineChart(escaped, 60)))
	} else {
		for j, s := range series {
			fmt.Println(viz.Metric(fmt.Sprintf("basin %d", j), fmt.Sprintf("%.2f%%", 100*s[0])))
		}
	}

	if svgPath != "" {
		colors := []string{"#ff0000", "#00ff00", "#0000ff"}
		if err := os.WriteFile(svgPath, []byte(export.SeriesSVG(series, 640, 320, colors)), 0644); err != nil {
			return err
		}
		fmt.Printf("wrote %s\n", svgPath)
	}
	if layoutSVGPath != "" {
		cl, err := classify.New(meta.Classifier)
		if err != nil {
			return err
		}
		svg := export.LayoutSVG(meta.Masses, meta.Width, meta.Height, cl)
		if err := os.WriteFile(layoutSVGPath, []byte(svg), 0644); err != nil {
			return err
		}
		fmt.Printf("wrote %s\n", layoutSVGPath)
	}
	return nil
}

func benchRender(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	opts, err := cfg.ToOptions()
	if err != nil {
		return err
	}
	masses, err := opts.Layout.Masses(opts.Width, opts.Height, rand.New(rand.NewSource(opts.Seed)))
	if err != nil {
		return err
	}

	counts := []int{1, 2, 4, dynamo.DefaultWorkers()}
	fmt.Printf("benchmarking %dx%d, %d iterations\n\n", cfg.Width, cfg.Height, cfg.Iterations)
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "WORKERS\tTIME\tPARTICLE STEPS/SEC\tGRID BYTES")

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	for _, n := range counts {
		grid, err := field.NewGrid(cfg.Width, cfg.Height)
		if err != nil {
			return err
		}
		r := field.NewRenderer(opts.Params, masses, opts.Classifier, n)
		buf := field.NewBuffer(grid)

		start := time.Now()
		if err := r.RenderFrame(ctx, grid, cfg.Iterations, buf); err != nil {
			return err
		}
		elapsed := time.Since(start)

		rate := float64(grid.Len()*cfg.Iterations) / elapsed.Seconds()
		fmt.Fprintf(w, "%d\t%v\t%s\t%s\n", n, elapsed.Round(time.Microsecond), groupThousands(int(rate)), groupThousands(grid.MemorySize()))
	}
	return w.Flush()
}
