package config

import "sort"

var Presets = map[string]*Config{
	"classic": preset(func(c *Config) {}),
	"line": preset(func(c *Config) {
		c.Layout = "line"
		c.ShapeHeight = 240
	}),
	"random": preset(func(c *Config) {
		c.Layout = "random"
		c.Seed = 1
	}),
	"ring": preset(func(c *Config) {
		c.Layout = "ring"
		c.Count = 5
		c.ShapeHeight = 260
	}),
	"wide": preset(func(c *Config) {
		c.Width, c.Height = 960, 540
		c.ShapeHeight = 300
	}),
	"tight": preset(func(c *Config) {
		c.ShapeHeight = 80
		c.Softening = 2
	}),
	"evolve": preset(func(c *Config) {
		c.Iterations = 0
		c.Step = 5
		c.Frames = 60
	}),
	"palette": preset(func(c *Config) {
		c.Classifier = "palette"
	}),
}

func preset(edit func(*Config)) *Config {
	c := DefaultConfig()
	edit(c)
	return c
}

// GetPreset returns a copy of the named preset, or nil.
func GetPreset(name string) *Config {
	p, ok := Presets[name]
	if !ok {
		return nil
	}
	c := *p
	c.Masses = append([]MassPoint(nil), p.Masses...)
	return &c
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
