package extract

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/Ayushi40804/visualize-ocean/internal/domain"
	"github.com/Ayushi40804/visualize-ocean/internal/regions"
)

// profileFile builds a single-profile file with 4 pressure levels:
//
//	level 0: all good, flags '1'
//	level 1: TEMP flagged '4' (bad)
//	level 2: PRES is the fill value
//	level 3: PSAL flagged '2' (probably good)
func profileFile() []byte {
	tf := &testFile{
		dims: []Dimension{
			{Name: "N_PROF", Length: 1},
			{Name: "N_LEVELS", Length: 4},
			{Name: "STRING8", Length: 8},
		},
	}
	prof := []int{0}
	levels := []int{0, 1}

	tf.addDoubles("JULD", prof, 999999.0, 20.5)
	tf.addDoubles("LATITUDE", prof, 99999.0, 15.25)
	tf.addDoubles("LONGITUDE", prof, 99999.0, 70.5)
	tf.addChars("PLATFORM_NUMBER", []int{0, 2}, "13857   ")
	tf.addDoubles("PRES", levels, 99999.0, 5.0, 10.0, 99999.0, 20.0)
	tf.addChars("PRES_QC", levels, "1111")
	tf.addDoubles("TEMP", levels, 99999.0, 25.0, 24.5, 24.0, 23.5)
	tf.addChars("TEMP_QC", levels, "1411")
	tf.addDoubles("PSAL", levels, 99999.0, 35.1, 35.2, 35.3, 35.4)
	tf.addChars("PSAL_QC", levels, "1112")

	return tf.build()
}

func TestExtract(t *testing.T) {
	ex := NewExtractor(nil)
	raw := &domain.RawProfileFile{FileRef: "dac/a/p1.nc", Data: profileFile()}

	measurements, dropped, err := ex.Extract(raw)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}

	if len(measurements) != 2 {
		t.Fatalf("expected 2 measurements, got %d", len(measurements))
	}
	if dropped != 2 {
		t.Errorf("expected 2 dropped levels, got %d", dropped)
	}

	m := measurements[0]
	if m.FloatID != "13857" {
		t.Errorf("expected FloatID 13857, got %q", m.FloatID)
	}
	// JULD 20.5 days after the 1950 epoch.
	want := time.Date(1950, 1, 21, 12, 0, 0, 0, time.UTC)
	if !m.Timestamp.Equal(want) {
		t.Errorf("expected timestamp %v, got %v", want, m.Timestamp)
	}
	if m.Latitude != 15.25 || m.Longitude != 70.5 {
		t.Errorf("unexpected position %v, %v", m.Latitude, m.Longitude)
	}
	if m.Pressure != 5.0 || m.Depth != 5.0 {
		t.Errorf("unexpected pressure %v depth %v", m.Pressure, m.Depth)
	}
	if m.Temperature != 25.0 || m.Salinity != 35.1 {
		t.Errorf("unexpected temp %v psal %v", m.Temperature, m.Salinity)
	}
	if m.QCFlag != domain.QCGood {
		t.Errorf("expected flag '1', got %q", m.QCFlag)
	}
	if m.DissolvedOxygen != nil || m.Ph != nil {
		t.Error("optional variables should be nil when absent from the file")
	}

	// Level 3 survives with the pessimistic flag from PSAL_QC.
	m = measurements[1]
	if m.Pressure != 20.0 {
		t.Errorf("expected pressure 20, got %v", m.Pressure)
	}
	if m.QCFlag != domain.QCProbablyGood {
		t.Errorf("expected flag '2', got %q", m.QCFlag)
	}
}

func TestExtract_RegionLabel(t *testing.T) {
	rm := &regions.Map{
		Regions: []regions.Box{
			{Name: "Arabian Sea", LatMin: 5, LatMax: 25, LonMin: 50, LonMax: 75},
		},
		Default: "Indian Ocean",
	}
	ex := NewExtractor(rm)

	measurements, _, err := ex.Extract(&domain.RawProfileFile{FileRef: "dac/a/p1.nc", Data: profileFile()})
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if len(measurements) == 0 {
		t.Fatal("expected measurements")
	}
	if measurements[0].Region != "Arabian Sea" {
		t.Errorf("expected region Arabian Sea, got %q", measurements[0].Region)
	}
}

func TestExtract_MissingSalinityDropsLevels(t *testing.T) {
	tf := &testFile{
		dims: []Dimension{
			{Name: "N_PROF", Length: 1},
			{Name: "N_LEVELS", Length: 2},
		},
	}
	prof := []int{0}
	levels := []int{0, 1}
	tf.addDoubles("JULD", prof, 999999.0, 20.5)
	tf.addDoubles("LATITUDE", prof, 99999.0, 15.0)
	tf.addDoubles("LONGITUDE", prof, 99999.0, 70.0)
	tf.addDoubles("PRES", levels, 99999.0, 5.0, 10.0)
	tf.addDoubles("TEMP", levels, 99999.0, 25.0, 24.5)
	// No PSAL at all: every level lacks a required variable.

	ex := NewExtractor(nil)
	measurements, dropped, err := ex.Extract(&domain.RawProfileFile{FileRef: "dac/a/p2.nc", Data: tf.build()})
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if len(measurements) != 0 {
		t.Errorf("expected 0 measurements, got %d", len(measurements))
	}
	if dropped != 2 {
		t.Errorf("expected 2 dropped, got %d", dropped)
	}
}

func TestExtract_MissingQCCompanionAccepted(t *testing.T) {
	tf := &testFile{
		dims: []Dimension{
			{Name: "N_PROF", Length: 1},
			{Name: "N_LEVELS", Length: 1},
		},
	}
	prof := []int{0}
	levels := []int{0, 1}
	tf.addDoubles("JULD", prof, 999999.0, 100.0)
	tf.addDoubles("LATITUDE", prof, 99999.0, 12.0)
	tf.addDoubles("LONGITUDE", prof, 99999.0, 80.0)
	tf.addDoubles("PRES", levels, 99999.0, 3.0)
	tf.addDoubles("TEMP", levels, 99999.0, 28.0)
	tf.addDoubles("PSAL", levels, 99999.0, 34.9)

	ex := NewExtractor(nil)
	measurements, _, err := ex.Extract(&domain.RawProfileFile{FileRef: "dac/a/p3.nc", Data: tf.build()})
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if len(measurements) != 1 {
		t.Fatalf("expected 1 measurement, got %d", len(measurements))
	}
	if measurements[0].QCFlag != domain.QCGood {
		t.Errorf("levels without QC flags should pass as '1', got %q", measurements[0].QCFlag)
	}
}

func TestExtract_NotNetCDF(t *testing.T) {
	ex := NewExtractor(nil)
	_, _, err := ex.Extract(&domain.RawProfileFile{FileRef: "dac/a/garbage.nc", Data: []byte("not a profile")})

	var perr *domain.ParseError
	if !errors.As(err, &perr) {
		t.Fatalf("expected *domain.ParseError, got %v", err)
	}
	if perr.FileRef != "dac/a/garbage.nc" {
		t.Errorf("unexpected FileRef %q", perr.FileRef)
	}
}

func TestValidValue(t *testing.T) {
	tests := []struct {
		name string
		v    float64
		fill float64
		want bool
	}{
		{"ordinary value", 12.5, 99999.0, true},
		{"fill value", 99999.0, 99999.0, false},
		{"NaN", math.NaN(), 99999.0, false},
		{"zero is valid", 0, 99999.0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := validValue(tt.v, tt.fill); got != tt.want {
				t.Errorf("validValue(%v) = %v, want %v", tt.v, got, tt.want)
			}
		})
	}
}
