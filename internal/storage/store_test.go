package storage

import (
	"context"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"
	"time"

	"golang.org/x/image/bmp"

	"github.com/san-kum/gravsnap/internal/dynamo"
	"github.com/san-kum/gravsnap/internal/metrics"
	"github.com/san-kum/gravsnap/internal/sim"
)

func testFrame(index, steps int) sim.Frame {
	img := image.NewRGBA(image.Rect(0, 0, 4, 3))
	img.SetRGBA(1, 2, color.RGBA{R: 255, G: 10, B: 20, A: 255})
	return sim.Frame{
		Index:  index,
		Steps:  steps,
		Image:  img,
		Masses: []dynamo.Mass{{X: 1, Y: 1}, {X: 2, Y: 2}},
		Stats: metrics.Stats{
			Shares:    []float64{0.25, 0.75},
			Escaped:   0.5,
			MeanSpeed: 1.5,
			Values:    map[string]float64{"basin_0": 0.25},
		},
	}
}

func TestFrameName(t *testing.T) {
	tests := []struct {
		index, frames int
		want          string
	}{
		{0, 1, "gravity-snapshot0.bmp"},
		{3, 9, "gravity-snapshot3.bmp"},
		{3, 10, "gravity-snapshot03.bmp"},
		{42, 250, "gravity-snapshot042.bmp"},
		{7, 0, "gravity-snapshot000007.bmp"},
	}

	for _, tt := range tests {
		got := FrameName("gravity-snapshot", tt.index, tt.frames, "bmp")
		if got != tt.want {
			t.Errorf("FrameName(%d, %d) = %s, want %s", tt.index, tt.frames, got, tt.want)
		}
	}
}

func TestRunDir(t *testing.T) {
	base := t.TempDir()
	st := New(base)

	dir, err := st.RunDir(false, time.Now())
	if err != nil || dir != base {
		t.Fatalf("expected base dir, got %s (%v)", dir, err)
	}

	now := time.Date(2024, 3, 9, 14, 5, 7, 0, time.UTC)
	dir, err = st.RunDir(true, now)
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Base(dir) != "2024-03-09 14-05-07" {
		t.Errorf("unexpected timestamp dir %s", dir)
	}
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		t.Errorf("timestamp dir not created: %v", err)
	}
}

func TestRunDirSameSecond(t *testing.T) {
	st := New(t.TempDir())
	now := time.Date(2024, 3, 9, 14, 5, 7, 0, time.UTC)

	want := []string{"2024-03-09 14-05-07", "2024-03-09 14-05-07 (2)", "2024-03-09 14-05-07 (3)"}
	for _, name := range want {
		dir, err := st.RunDir(true, now)
		if err != nil {
			t.Fatalf("run dir %s: %v", name, err)
		}
		if filepath.Base(dir) != name {
			t.Errorf("expected %s, got %s", name, filepath.Base(dir))
		}
	}
}

func TestRunDirRejectsMissingOrFile(t *testing.T) {
	base := t.TempDir()
	if _, err := New(filepath.Join(base, "missing")).RunDir(false, time.Now()); err == nil {
		t.Error("expected error for missing dir")
	}

	file := filepath.Join(base, "file")
	if err := os.WriteFile(file, nil, 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := New(file).RunDir(true, time.Now()); err == nil {
		t.Error("expected error for a regular file")
	}
}

func TestFrameWriterSaveLoad(t *testing.T) {
	dir := t.TempDir()
	meta := RunMetadata{Width: 4, Height: 3, Layout: "line", Seed: 42, Frames: 12}

	w, err := NewFrameWriter(dir, "snap", "bmp", meta)
	if err != nil {
		t.Fatalf("new writer failed: %v", err)
	}
	for i := 0; i < 2; i++ {
		if err := w.Emit(context.Background(), testFrame(i, 100+10*i)); err != nil {
			t.Fatalf("emit %d failed: %v", i, err)
		}
	}
	w.Finish(&sim.Result{State: sim.Aborted, Frames: 2, Steps: 110})
	if err := w.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}

	f, err := os.Open(filepath.Join(dir, "snap01.bmp"))
	if err != nil {
		t.Fatalf("frame file missing: %v", err)
	}
	defer f.Close()
	img, err := bmp.Decode(f)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	r, g, b, _ := img.At(1, 2).RGBA()
	if r>>8 != 255 || g>>8 != 10 || b>>8 != 20 {
		t.Errorf("pixel mismatch: %d %d %d", r>>8, g>>8, b>>8)
	}

	st := New(dir)
	loaded, err := st.Load(".")
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if loaded.Seed != 42 || loaded.State != "aborted" || loaded.Rendered != 2 {
		t.Errorf("unexpected metadata: %+v", loaded)
	}
	if len(loaded.Files) != 2 || loaded.Files[0] != "snap00.bmp" {
		t.Errorf("unexpected files: %v", loaded.Files)
	}
	if len(loaded.Masses) != 2 {
		t.Errorf("expected masses recorded, got %v", loaded.Masses)
	}

	stats, err := st.LoadStats(".")
	if err != nil {
		t.Fatalf("load stats failed: %v", err)
	}
	if len(stats) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(stats))
	}
	if stats[1].Steps != 110 || stats[1].Shares[1] != 0.75 || stats[1].MeanSpeed != 1.5 {
		t.Errorf("unexpected row: %+v", stats[1])
	}
}

func TestFrameWriterPNG(t *testing.T) {
	dir := t.TempDir()
	w, err := NewFrameWriter(dir, "p", "png", RunMetadata{Frames: 1})
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Emit(context.Background(), testFrame(0, 5)); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(dir, "p0.png")); err != nil {
		t.Errorf("png frame missing: %v", err)
	}
	if err := w.Emit(context.Background(), testFrame(1, 6)); err == nil {
		t.Error("emit after close should fail")
	}
}

func TestUnknownFormat(t *testing.T) {
	if _, err := NewFrameWriter(t.TempDir(), "x", "tiff", RunMetadata{}); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestList(t *testing.T) {
	base := t.TempDir()
	st := New(base)

	older := &RunMetadata{Timestamp: time.Unix(100, 0), Layout: "triangle"}
	newer := &RunMetadata{Timestamp: time.Unix(200, 0), Layout: "ring"}
	for name, meta := range map[string]*RunMetadata{"a": newer, "b": older} {
		dir := filepath.Join(base, name)
		if err := os.Mkdir(dir, 0755); err != nil {
			t.Fatal(err)
		}
		if err := WriteMetadata(dir, meta); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.Mkdir(filepath.Join(base, "empty"), 0755); err != nil {
		t.Fatal(err)
	}

	runs, err := st.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(runs))
	}
	if runs[0].ID != "b" || runs[1].ID != "a" {
		t.Errorf("runs not sorted by time: %s, %s", runs[0].ID, runs[1].ID)
	}

	missing, err := New(filepath.Join(base, "nope")).List()
	if err != nil || len(missing) != 0 {
		t.Errorf("expected empty list for missing dir, got %v %v", missing, err)
	}
}

func TestFrameWriterKeepsFramesSavedBeforeAbort(t *testing.T) {
	dir := t.TempDir()
	opts := sim.DefaultOptions()
	opts.Width, opts.Height = 12, 8
	opts.Layout.ShapeHeight = 6
	opts.Frames = 5

	w, err := NewFrameWriter(dir, "f", "png", RunMetadata{Frames: opts.Frames})
	if err != nil {
		t.Fatal(err)
	}
	stopAtSecond := sim.SinkFunc(func(_ context.Context, f sim.Frame) error {
		if f.Index == 1 {
			return dynamo.ErrSinkClosed
		}
		return nil
	})

	d, err := sim.New(opts, w, stopAtSecond)
	if err != nil {
		t.Fatal(err)
	}
	res, err := d.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if res.Frames != 1 {
		t.Fatalf("expected the driver to count 1 frame, got %d", res.Frames)
	}

	w.Finish(res)
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}

	meta, err := New(dir).Load(".")
	if err != nil {
		t.Fatal(err)
	}
	if meta.State != "aborted" {
		t.Errorf("expected aborted, got %s", meta.State)
	}
	if len(meta.Files) != 2 || meta.Rendered != len(meta.Files) {
		t.Errorf("rendered %d does not match files %v", meta.Rendered, meta.Files)
	}
	if meta.Steps != opts.InitialSteps+opts.StepIncrement {
		t.Errorf("expected %d steps, got %d", opts.InitialSteps+opts.StepIncrement, meta.Steps)
	}
	for _, f := range meta.Files {
		if _, err := os.Stat(filepath.Join(dir, f)); err != nil {
			t.Errorf("listed file missing: %v", err)
		}
	}
}
