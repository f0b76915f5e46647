package location

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed layout_default.yaml
var defaultLayout []byte

// Layout is the static spot topology of every warehouse.
type Layout struct {
	Locations []LayoutLocation `yaml:"locations"`
}

type LayoutLocation struct {
	Number   int64           `yaml:"number"`
	Name     string          `yaml:"name"`
	Sections []LayoutSection `yaml:"sections"`
}

// LayoutSection is a block of spots of one category laid out row-major in
// Columns columns.
type LayoutSection struct {
	Category Category     `yaml:"category"`
	Columns  int          `yaml:"columns"`
	Spots    []LayoutSpot `yaml:"spots"`
}

// LayoutSpot is written either as a bare code or as {code, name}.
type LayoutSpot struct {
	Code string `yaml:"code"`
	Name string `yaml:"name"`
}

func (s *LayoutSpot) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		s.Code = value.Value
		return nil
	}
	type plain LayoutSpot
	return value.Decode((*plain)(s))
}

// DefaultLayout returns the built-in layout.
func DefaultLayout() (*Layout, error) {
	return ParseLayout(defaultLayout)
}

// LoadLayout reads a layout file, or the built-in layout when path is empty.
func LoadLayout(path string) (*Layout, error) {
	if path == "" {
		return DefaultLayout()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read layout file: %w", err)
	}
	return ParseLayout(data)
}

// ParseLayout decodes and validates a YAML layout.
func ParseLayout(data []byte) (*Layout, error) {
	var layout Layout
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&layout); err != nil {
		return nil, fmt.Errorf("failed to parse layout: %w", err)
	}
	if err := layout.validate(); err != nil {
		return nil, fmt.Errorf("invalid layout: %w", err)
	}
	return &layout, nil
}

func (l *Layout) validate() error {
	if len(l.Locations) == 0 {
		return fmt.Errorf("no locations defined")
	}
	numbers := map[int64]bool{}
	for _, loc := range l.Locations {
		if loc.Name == "" {
			return fmt.Errorf("location %d has no name", loc.Number)
		}
		if numbers[loc.Number] {
			return fmt.Errorf("location %d defined twice", loc.Number)
		}
		numbers[loc.Number] = true

		codes := map[string]bool{}
		for _, sec := range loc.Sections {
			if !sec.Category.Valid() {
				return fmt.Errorf("location %s: unknown category %q", loc.Name, sec.Category)
			}
			if sec.Columns <= 0 {
				return fmt.Errorf("location %s: section %s needs a positive column count", loc.Name, sec.Category)
			}
			for _, sp := range sec.Spots {
				if sp.Code == "" {
					return fmt.Errorf("location %s: spot without code in %s", loc.Name, sec.Category)
				}
				if codes[sp.Code] {
					return fmt.Errorf("location %s: duplicate spot code %s", loc.Name, sp.Code)
				}
				codes[sp.Code] = true
			}
		}
	}
	return nil
}

// Spots expands a location's sections into spots with grid positions.
// LocationID is left for the caller to fill in.
func (l LayoutLocation) Spots() []*Spot {
	var spots []*Spot
	for _, sec := range l.Sections {
		for i, sp := range sec.Spots {
			name := sp.Name
			if name == "" {
				name = sp.Code
			}
			spots = append(spots, &Spot{
				Code:     sp.Code,
				Name:     name,
				Category: sec.Category,
				GridRow:  i / sec.Columns,
				GridCol:  i % sec.Columns,
				Active:   true,
			})
		}
	}
	return spots
}
