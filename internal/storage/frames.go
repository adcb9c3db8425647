package storage

import (
	"bufio"
	"context"
	"encoding/csv"
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"golang.org/x/image/bmp"

	"github.com/san-kum/gravsnap/internal/sim"
)

// unboundedPad is the index width used when the frame count is unknown.
const unboundedPad = 6

// PadWidth returns the zero-padded index width for a run of frames.
func PadWidth(frames int) int {
	if frames <= 0 {
		return unboundedPad
	}
	return len(strconv.Itoa(frames))
}

// FrameName builds "<base><index>.<ext>" with the index padded for frames.
func FrameName(base string, index, frames int, ext string) string {
	return fmt.Sprintf("%s%0*d.%s", base, PadWidth(frames), index, ext)
}

type encodeFunc func(io.Writer, image.Image) error

func encoder(format string) (encodeFunc, error) {
	switch format {
	case "bmp":
		return bmp.Encode, nil
	case "png":
		return png.Encode, nil
	}
	return nil, fmt.Errorf("unknown image format %q", format)
}

// FrameWriter saves every frame as an image file and appends its
// statistics to the run's CSV. Close writes the run metadata.
type FrameWriter struct {
	dir    string
	name   string
	format string
	frames int
	encode encodeFunc

	meta   RunMetadata
	stats  *os.File
	csv    *csv.Writer
	header bool
}

func NewFrameWriter(dir, name, format string, meta RunMetadata) (*FrameWriter, error) {
	enc, err := encoder(format)
	if err != nil {
		return nil, err
	}

	f, err := os.Create(filepath.Join(dir, StatsFile))
	if err != nil {
		return nil, err
	}

	if meta.Timestamp.IsZero() {
		meta.Timestamp = time.Now()
	}
	return &FrameWriter{
		dir:    dir,
		name:   name,
		format: format,
		frames: meta.Frames,
		encode: enc,
		meta:   meta,
		stats:  f,
		csv:    csv.NewWriter(f),
	}, nil
}

func (w *FrameWriter) Emit(_ context.Context, f sim.Frame) error {
	if w.stats == nil {
		return os.ErrClosed
	}

	file := FrameName(w.name, f.Index, w.frames, w.format)
	if err := w.writeImage(filepath.Join(w.dir, file), f.Image); err != nil {
		return fmt.Errorf("write %s: %w", file, err)
	}
	w.meta.Files = append(w.meta.Files, file)

	if len(w.meta.Masses) == 0 {
		w.meta.Masses = f.Masses
	}
	w.meta.Rendered = f.Index + 1
	w.meta.Steps = f.Steps
	w.meta.Metrics = f.Stats.Values

	if !w.header {
		if err := w.csv.Write(statsHeader(len(f.Stats.Shares))); err != nil {
			return err
		}
		w.header = true
	}
	if err := w.csv.Write(statsRow(FrameRecord{
		Index:     f.Index,
		Steps:     f.Steps,
		Shares:    f.Stats.Shares,
		Escaped:   f.Stats.Escaped,
		MeanSpeed: f.Stats.MeanSpeed,
	})); err != nil {
		return err
	}
	w.csv.Flush()
	return w.csv.Error()
}

func (w *FrameWriter) writeImage(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}

	bw := bufio.NewWriter(f)
	if err := w.encode(bw, img); err != nil {
		f.Close()
		return err
	}
	if err := bw.Flush(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Finish records the final run outcome in the metadata written by Close.
// Frame and step counts never drop below what this writer saved: a later
// sink may stop the run after the file for a frame is already on disk.
func (w *FrameWriter) Finish(res *sim.Result) {
	if res == nil {
		return
	}
	w.meta.State = res.State.String()
	w.meta.Rendered = max(w.meta.Rendered, res.Frames)
	w.meta.Steps = max(w.meta.Steps, res.Steps)
	w.meta.Elapsed = res.Elapsed
	if len(res.Masses) > 0 {
		w.meta.Masses = res.Masses
	}
}

func (w *FrameWriter) Close() error {
	if w.stats == nil {
		return nil
	}
	w.csv.Flush()
	err := w.csv.Error()
	if cerr := w.stats.Close(); err == nil {
		err = cerr
	}
	w.stats = nil

	if merr := WriteMetadata(w.dir, &w.meta); err == nil {
		err = merr
	}
	return err
}
