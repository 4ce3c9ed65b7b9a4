package regions

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Box is a named inclusive geographic bounding box
type Box struct {
	Name   string  `yaml:"name"`
	LatMin float64 `yaml:"lat_min"`
	LatMax float64 `yaml:"lat_max"`
	LonMin float64 `yaml:"lon_min"`
	LonMax float64 `yaml:"lon_max"`
}

// Contains reports whether the coordinates fall inside the box
func (b *Box) Contains(lat, lon float64) bool {
	return lat >= b.LatMin && lat <= b.LatMax && lon >= b.LonMin && lon <= b.LonMax
}

// Map classifies coordinates into named ocean regions. Boxes are checked
// in file order; the first match wins.
type Map struct {
	Regions []Box  `yaml:"regions"`
	Default string `yaml:"default"`
}

// Load loads regions.yaml
func Load(path string) (*Map, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read region map: %w", err)
	}

	var m Map
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse region map: %w", err)
	}

	if m.Default == "" {
		m.Default = "Open Ocean"
	}

	return &m, nil
}

// Empty returns a map with no named regions and the given default label
func Empty(defaultName string) *Map {
	return &Map{Default: defaultName}
}

// Classify returns the name of the first region containing the
// coordinates, or the default label when none match.
func (m *Map) Classify(lat, lon float64) string {
	for i := range m.Regions {
		if m.Regions[i].Contains(lat, lon) {
			return m.Regions[i].Name
		}
	}
	return m.Default
}
