// Package classify turns a particle position into a pixel colour according
// to how close it sits to each attracting mass.
package classify

import (
	"fmt"
	"image/color"
	"sort"

	"github.com/san-kum/gravsnap/internal/dynamo"
)

// Classifier maps a position relative to the masses to an opaque colour.
// Implementations must be safe for concurrent use; the renderer calls
// Classify from every worker.
type Classifier interface {
	Name() string
	Classify(x, y float64, masses []dynamo.Mass) color.RGBA
}

var registry = map[string]func() Classifier{
	"weighted": func() Classifier { return NewWeighted() },
	"palette":  func() Classifier { return NewPalette() },
}

// New returns the classifier registered under name.
func New(name string) (Classifier, error) {
	fn, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s (available: %v)", dynamo.ErrUnknownClassifier, name, Names())
	}
	return fn(), nil
}

func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func clampByte(v float64) uint8 {
	switch {
	case v != v || v <= 0:
		return 0
	case v >= 255:
		return 255
	}
	return uint8(v)
}
