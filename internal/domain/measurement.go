package domain

import "time"

// QC flag codes from the ARGO quality-control scheme.
// Only "good" and "probably good" readings are ever persisted.
const (
	QCGood         = '1'
	QCProbablyGood = '2'
)

// AcceptedQC reports whether a per-level quality flag allows the reading
// to be persisted.
func AcceptedQC(flag byte) bool {
	return flag == QCGood || flag == QCProbablyGood
}

// Measurement is one depth-resolved reading extracted from a profile file.
// DissolvedOxygen and Ph are nil when the file does not carry the variable
// or the value is a fill value.
type Measurement struct {
	FloatID         string
	Latitude        float64
	Longitude       float64
	Timestamp       time.Time
	Pressure        float64
	Depth           float64
	Temperature     float64
	Salinity        float64
	DissolvedOxygen *float64
	Ph              *float64
	QCFlag          byte
	Region          string
}

// MeasurementKey is the uniqueness key for stored measurements.
// Re-ingesting the same file maps to the same keys, which is what makes
// the pipeline idempotent.
type MeasurementKey struct {
	FloatID   string
	Timestamp time.Time
	Depth     float64
}

// Key returns the composite store key of the measurement.
func (m *Measurement) Key() MeasurementKey {
	return MeasurementKey{
		FloatID:   m.FloatID,
		Timestamp: m.Timestamp.UTC(),
		Depth:     m.Depth,
	}
}

// RawProfileFile is a downloaded profile file handed from the fetcher to
// the extractor. Path points at the on-disk copy inside the download
// directory; Data holds the raw bytes.
type RawProfileFile struct {
	FileRef string
	Path    string
	Data    []byte
}

// UpsertSummary reports what a store upsert did with a batch.
// Updated rows are identical re-ingests: a no-op in effect, but counted so
// overlapping index windows remain observable.
type UpsertSummary struct {
	Inserted int `json:"inserted"`
	Updated  int `json:"updated"`
	Skipped  int `json:"skipped"`
}

// Add accumulates another summary into s.
func (s *UpsertSummary) Add(other UpsertSummary) {
	s.Inserted += other.Inserted
	s.Updated += other.Updated
	s.Skipped += other.Skipped
}

// Freshness answers the "real vs. sample data" indicator without exposing
// SQL to callers.
type Freshness struct {
	TotalMeasurements uint64    `json:"total_measurements"`
	TotalProfiles     uint64    `json:"total_profiles"`
	NewestTimestamp   time.Time `json:"newest_timestamp"`
}
