// Package palette defines the closed set of highlight categories shared
// between the annotation editor and the export compositor. Category keys are
// part of the wire format — both sides must agree on them, so the set is
// versionable but closed: unknown keys are rejected at the boundary.
package palette

import (
	"fmt"
	"image/color"
	"math"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// Category is a highlight category key.
type Category string

const (
	CategoryArgument     Category = "argument"     // Argumentação
	CategoryGrammar      Category = "grammar"      // Ortografia/Gramática
	CategoryCohesion     Category = "cohesion"     // Coesão/Coerência
	CategoryPresentation Category = "presentation" // Apresentação
	CategoryGeneral      Category = "general"      // Comentários gerais
)

// Highlight rendering opacities, shared by the live overlay and the print
// compositor so exports look like what the grader saw on screen.
const (
	FillAlpha   = 0.28
	BorderAlpha = 0.80
)

// Entry describes one category: its display label and fixed color.
type Entry struct {
	Key   Category `yaml:"key" json:"key"`
	Label string   `yaml:"label" json:"label"`
	Color string   `yaml:"color" json:"color"` // #RRGGBB
}

// Palette maps every known category to its display entry.
type Palette struct {
	entries map[Category]Entry
}

// Default returns the built-in palette. Colors match the category bands used
// on the printed correction sheet.
func Default() *Palette {
	return &Palette{entries: map[Category]Entry{
		CategoryArgument:     {Key: CategoryArgument, Label: "Argumentação", Color: "#FFE6A6"},
		CategoryGrammar:      {Key: CategoryGrammar, Label: "Ortografia/Gramática", Color: "#D6F5D6"},
		CategoryCohesion:     {Key: CategoryCohesion, Label: "Coesão/Coerência", Color: "#D6E9FF"},
		CategoryPresentation: {Key: CategoryPresentation, Label: "Apresentação", Color: "#FFE0C2"},
		CategoryGeneral:      {Key: CategoryGeneral, Label: "Comentários gerais", Color: "#FFD6D6"},
	}}
}

// LoadFile reads a YAML palette override. The file may relabel or recolor
// the known categories but cannot introduce new keys — the enumeration is
// closed, and the export compositor would not know how to draw a stranger.
func LoadFile(path string) (*Palette, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read palette file: %w", err)
	}

	var entries []Entry
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse palette file: %w", err)
	}

	p := Default()
	for _, e := range entries {
		if _, ok := p.entries[e.Key]; !ok {
			return nil, fmt.Errorf("unknown highlight category %q in %s", e.Key, path)
		}
		current := p.entries[e.Key]
		if e.Label != "" {
			current.Label = e.Label
		}
		if e.Color != "" {
			if _, err := ParseHex(e.Color); err != nil {
				return nil, fmt.Errorf("category %q: %w", e.Key, err)
			}
			current.Color = e.Color
		}
		p.entries[e.Key] = current
	}
	return p, nil
}

// Valid reports whether c is a known category.
func (p *Palette) Valid(c Category) bool {
	_, ok := p.entries[c]
	return ok
}

// Entry returns the display entry for a category. Unknown categories fall
// back to the general entry rather than panicking — persisted records from
// older versions must keep rendering.
func (p *Palette) Entry(c Category) Entry {
	if e, ok := p.entries[c]; ok {
		return e
	}
	return p.entries[CategoryGeneral]
}

// Entries returns all categories in a stable order (by key).
func (p *Palette) Entries() []Entry {
	out := make([]Entry, 0, len(p.entries))
	for _, e := range p.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// Fill returns the category's overlay fill color with the shared alpha
// already applied, ready for compositing.
func (p *Palette) Fill(c Category) color.NRGBA {
	rgb, _ := ParseHex(p.Entry(c).Color)
	rgb.A = AlphaByte(FillAlpha)
	return rgb
}

// Border returns the category's overlay border color.
func (p *Palette) Border(c Category) color.NRGBA {
	rgb, _ := ParseHex(p.Entry(c).Color)
	rgb.A = AlphaByte(BorderAlpha)
	return rgb
}

// AlphaByte converts a 0..1 alpha fraction to its 8-bit channel value.
func AlphaByte(a float64) uint8 {
	return uint8(math.Round(a * 255))
}

// ParseHex parses a #RRGGBB or #RGB color into an opaque NRGBA.
func ParseHex(s string) (color.NRGBA, error) {
	if len(s) > 0 && s[0] == '#' {
		s = s[1:]
	}
	if len(s) == 3 {
		s = string([]byte{s[0], s[0], s[1], s[1], s[2], s[2]})
	}
	if len(s) != 6 {
		return color.NRGBA{}, fmt.Errorf("invalid hex color %q", s)
	}
	var rgb [3]uint8
	for i := 0; i < 3; i++ {
		hi, ok1 := hexDigit(s[i*2])
		lo, ok2 := hexDigit(s[i*2+1])
		if !ok1 || !ok2 {
			return color.NRGBA{}, fmt.Errorf("invalid hex color %q", s)
		}
		rgb[i] = hi<<4 | lo
	}
	return color.NRGBA{R: rgb[0], G: rgb[1], B: rgb[2], A: 255}, nil
}

func hexDigit(b byte) (uint8, bool) {
	switch {
	case b >= '0' && b <= '9':
		return b - '0', true
	case b >= 'a' && b <= 'f':
		return b - 'a' + 10, true
	case b >= 'A' && b <= 'F':
		return b - 'A' + 10, true
	}
	return 0, false
}
