package store

import (
	"testing"
	"time"

	"github.com/Ayushi40804/visualize-ocean/internal/domain"
)

func mkMeasurement(floatID string, ts time.Time, depth float64) domain.Measurement {
	return domain.Measurement{
		FloatID:   floatID,
		Timestamp: ts,
		Depth:     depth,
		Pressure:  depth,
	}
}

func TestDedupeBatch(t *testing.T) {
	ts := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name        string
		batch       []domain.Measurement
		wantUnique  int
		wantSkipped int
	}{
		{
			name:        "empty batch",
			batch:       nil,
			wantUnique:  0,
			wantSkipped: 0,
		},
		{
			name: "no duplicates",
			batch: []domain.Measurement{
				mkMeasurement("13857", ts, 5),
				mkMeasurement("13857", ts, 10),
				mkMeasurement("6903240", ts, 5),
			},
			wantUnique:  3,
			wantSkipped: 0,
		},
		{
			name: "exact duplicate skipped",
			batch: []domain.Measurement{
				mkMeasurement("13857", ts, 5),
				mkMeasurement("13857", ts, 5),
			},
			wantUnique:  1,
			wantSkipped: 1,
		},
		{
			name: "same key different timestamps kept",
			batch: []domain.Measurement{
				mkMeasurement("13857", ts, 5),
				mkMeasurement("13857", ts.Add(time.Hour), 5),
			},
			wantUnique:  2,
			wantSkipped: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			unique, skipped := dedupeBatch(tt.batch)
			if len(unique) != tt.wantUnique {
				t.Errorf("unique = %d, want %d", len(unique), tt.wantUnique)
			}
			if skipped != tt.wantSkipped {
				t.Errorf("skipped = %d, want %d", skipped, tt.wantSkipped)
			}
		})
	}
}

func TestDedupeBatch_KeepsFirstOccurrence(t *testing.T) {
	ts := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	first := mkMeasurement("13857", ts, 5)
	first.Temperature = 25.0
	second := mkMeasurement("13857", ts, 5)
	second.Temperature = 99.0

	unique, _ := dedupeBatch([]domain.Measurement{first, second})
	if len(unique) != 1 {
		t.Fatalf("expected 1 unique row, got %d", len(unique))
	}
	if unique[0].Temperature != 25.0 {
		t.Errorf("expected first occurrence to win, got temperature %v", unique[0].Temperature)
	}
}

func TestKeyString(t *testing.T) {
	ts := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	// Same instant in another zone must produce the same key.
	local := ts.In(time.FixedZone("IST", 5*3600+1800))
	if keyString("13857", ts, 5) != keyString("13857", local, 5) {
		t.Error("key must be timezone independent")
	}

	// Sub-millimeter depth noise collapses onto one key.
	if keyString("13857", ts, 5.0001) != keyString("13857", ts, 5.0004) {
		t.Error("depths within rounding precision should share a key")
	}
	if keyString("13857", ts, 5.0) == keyString("13857", ts, 5.01) {
		t.Error("distinct depths must produce distinct keys")
	}
	if keyString("13857", ts, 5) == keyString("6903240", ts, 5) {
		t.Error("distinct floats must produce distinct keys")
	}
}
