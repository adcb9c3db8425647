package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/gravsnap/internal/classify"
	"github.com/san-kum/gravsnap/internal/dynamo"
	"github.com/san-kum/gravsnap/internal/physics"
	"github.com/san-kum/gravsnap/internal/sim"
)

const (
	DefaultWidth       = 500
	DefaultHeight      = 500
	DefaultShapeHeight = 200.0
	DefaultIterations  = 100
	DefaultStep        = 10
	DefaultFrames      = 1
	DefaultName        = "gravity-snapshot"
	DefaultFormat      = "bmp"
)

// Formats lists the supported frame file encodings.
var Formats = []string{"bmp", "png"}

type Config struct {
	Width       int         `yaml:"width"`
	Height      int         `yaml:"height"`
	Layout      string      `yaml:"layout"`
	ShapeHeight float64     `yaml:"shape_height"`
	Count       int         `yaml:"count,omitempty"`
	Masses      []MassPoint `yaml:"masses,omitempty"`
	Gravity     float64     `yaml:"gravity"`
	Softening   float64     `yaml:"softening"`
	Dt          float64     `yaml:"dt"`
	Iterations  int         `yaml:"iterations"`
	Step        int         `yaml:"step"`
	// Frames of zero renders until interrupted.
	Frames     int          `yaml:"frames"`
	Seed       int64        `yaml:"seed"`
	Classifier string       `yaml:"classifier"`
	Workers    int          `yaml:"workers,omitempty"`
	Output     OutputConfig `yaml:"output"`
}

type MassPoint struct {
	X float64 `yaml:"x"`
	Y float64 `yaml:"y"`
}

type OutputConfig struct {
	Save         bool   `yaml:"save"`
	Dir          string `yaml:"dir"`
	Name         string `yaml:"name"`
	Format       string `yaml:"format"`
	TimestampDir bool   `yaml:"timestamp_dir"`
	GIF          string `yaml:"gif,omitempty"`
}

func DefaultConfig() *Config {
	p := dynamo.DefaultParams()
	return &Config{
		Width:       DefaultWidth,
		Height:      DefaultHeight,
		Layout:      physics.Triangle.String(),
		ShapeHeight: DefaultShapeHeight,
		Gravity:     p.Gravity,
		Softening:   p.Softening,
		Dt:          p.Dt,
		Iterations:  DefaultIterations,
		Step:        DefaultStep,
		Frames:      DefaultFrames,
		Classifier:  "weighted",
		Output: OutputConfig{
			Save:   true,
			Dir:    ".",
			Name:   DefaultName,
			Format: DefaultFormat,
		},
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Validate rejects a configuration before any rendering happens.
func (c *Config) Validate() error {
	if c.Width <= 0 || c.Height <= 0 {
		return fmt.Errorf("%w: %dx%d", dynamo.ErrInvalidDimensions, c.Width, c.Height)
	}
	kind, err := physics.ParseLayout(c.Layout)
	if err != nil {
		return err
	}
	if kind == physics.Custom && len(c.Masses) == 0 {
		return dynamo.ErrNoMasses
	}
	if _, err := classify.New(c.Classifier); err != nil {
		return err
	}
	if err := c.Params().Validate(); err != nil {
		return err
	}
	if c.Iterations < 0 || c.Step < 0 {
		return fmt.Errorf("%w: iterations %d, step %d", dynamo.ErrInvalidSteps, c.Iterations, c.Step)
	}
	if c.Frames < 0 {
		return fmt.Errorf("frame count must not be negative, got %d", c.Frames)
	}
	if c.Output.Save {
		if !knownFormat(c.Output.Format) {
			return fmt.Errorf("unknown output format %q (want one of %s)", c.Output.Format, strings.Join(Formats, ", "))
		}
		if c.Output.Name == "" {
			return fmt.Errorf("output name must not be empty")
		}
		info, err := os.Stat(c.Output.Dir)
		if err != nil {
			return fmt.Errorf("save directory %q: %w", c.Output.Dir, err)
		}
		if !info.IsDir() {
			return fmt.Errorf("save directory %q is not a directory", c.Output.Dir)
		}
	}
	return nil
}

func knownFormat(f string) bool {
	for _, k := range Formats {
		if k == f {
			return true
		}
	}
	return false
}

func (c *Config) Params() dynamo.Params {
	return dynamo.Params{Gravity: c.Gravity, Softening: c.Softening, Dt: c.Dt}
}

func (c *Config) MassConfig() (physics.MassConfig, error) {
	kind, err := physics.ParseLayout(c.Layout)
	if err != nil {
		return physics.MassConfig{}, err
	}
	mc := physics.MassConfig{Kind: kind, ShapeHeight: c.ShapeHeight, Count: c.Count}
	for _, m := range c.Masses {
		mc.Custom = append(mc.Custom, dynamo.Mass{X: m.X, Y: m.Y})
	}
	return mc, nil
}

// ToOptions builds driver options. The classifier is instantiated fresh.
func (c *Config) ToOptions() (sim.Options, error) {
	mc, err := c.MassConfig()
	if err != nil {
		return sim.Options{}, err
	}
	cl, err := classify.New(c.Classifier)
	if err != nil {
		return sim.Options{}, err
	}
	return sim.Options{
		Width:         c.Width,
		Height:        c.Height,
		Layout:        mc,
		Seed:          c.Seed,
		Params:        c.Params(),
		Classifier:    cl,
		InitialSteps:  c.Iterations,
		StepIncrement: c.Step,
		Frames:        c.Frames,
		Workers:       c.Workers,
	}, nil
}

// ParseFrames accepts a non-negative count or "inf" for an unbounded run.
func ParseFrames(s string) (int, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "inf" || s == "infinite" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid frame count %q: want a number or \"inf\"", s)
	}
	if n < 1 {
		return 0, fmt.Errorf("frame count must be at least 1, got %d", n)
	}
	return n, nil
}

// FormatFrames is the inverse of ParseFrames.
func FormatFrames(n int) string {
	if n == 0 {
		return "inf"
	}
	return strconv.Itoa(n)
}
