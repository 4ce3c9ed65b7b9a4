package regions

import (
	"os"
	"path/filepath"
	"testing"
)

func TestClassify(t *testing.T) {
	m := &Map{
		Regions: []Box{
			{Name: "Arabian Sea", LatMin: 5, LatMax: 25, LonMin: 50, LonMax: 75},
			{Name: "Bay of Bengal", LatMin: 5, LatMax: 25, LonMin: 75, LonMax: 95},
		},
		Default: "Indian Ocean",
	}

	tests := []struct {
		name     string
		lat, lon float64
		want     string
	}{
		{"arabian sea", 15, 65, "Arabian Sea"},
		{"bay of bengal", 15, 85, "Bay of Bengal"},
		{"shared boundary goes to first match", 15, 75, "Arabian Sea"},
		{"outside all boxes", -30, 60, "Indian Ocean"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := m.Classify(tt.lat, tt.lon); got != tt.want {
				t.Errorf("Classify(%v, %v) = %q, want %q", tt.lat, tt.lon, got, tt.want)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "regions.yaml")
	content := `default: Indian Ocean
regions:
  - name: Arabian Sea
    lat_min: 5
    lat_max: 25
    lon_min: 50
    lon_max: 75
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	m, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(m.Regions) != 1 || m.Regions[0].Name != "Arabian Sea" {
		t.Errorf("unexpected regions %+v", m.Regions)
	}
	if m.Default != "Indian Ocean" {
		t.Errorf("unexpected default %q", m.Default)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestLoad_DefaultFallback(t *testing.T) {
	path := filepath.Join(t.TempDir(), "regions.yaml")
	if err := os.WriteFile(path, []byte("regions: []\n"), 0644); err != nil {
		t.Fatal(err)
	}
	m, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if m.Default != "Open Ocean" {
		t.Errorf("expected Open Ocean fallback, got %q", m.Default)
	}
}

func TestEmpty(t *testing.T) {
	m := Empty("Somewhere")
	if got := m.Classify(0, 0); got != "Somewhere" {
		t.Errorf("Classify() = %q, want Somewhere", got)
	}
}
