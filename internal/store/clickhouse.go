package store

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Ayushi40804/visualize-ocean/internal/clickhouse"
	"github.com/Ayushi40804/visualize-ocean/internal/domain"
)

// insertChunk bounds one INSERT batch so a failing chunk loses at most
// this many rows while earlier chunks stay persisted.
const insertChunk = 1000

const measurementsDDL = `
CREATE TABLE IF NOT EXISTS measurements (
	float_id         LowCardinality(String),
	timestamp        DateTime64(6, 'UTC'),
	depth            Float64,
	latitude         Float64,
	longitude        Float64,
	pressure         Float64,
	temperature      Float64,
	salinity         Float64,
	dissolved_oxygen Nullable(Float64),
	ph               Nullable(Float64),
	qc_flag          FixedString(1),
	region           LowCardinality(String),
	ingested_at      DateTime DEFAULT now()
) ENGINE = ReplacingMergeTree(ingested_at)
ORDER BY (float_id, timestamp, depth)
`

// ClickHouseStore implements MeasurementStore on ClickHouse
type ClickHouseStore struct {
	client *clickhouse.Client
}

// NewClickHouseStore creates the store and ensures the schema exists
func NewClickHouseStore(ctx context.Context, client *clickhouse.Client) (*ClickHouseStore, error) {
	s := &ClickHouseStore{client: client}
	if err := client.Exec(ctx, measurementsDDL); err != nil {
		return nil, fmt.Errorf("failed to create measurements table: %w", err)
	}
	return s, nil
}

// Upsert writes measurements in chunks. For each chunk the existing keys
// are looked up first; only new keys are inserted, which keeps re-runs
// over overlapping index windows idempotent.
func (s *ClickHouseStore) Upsert(ctx context.Context, measurements []domain.Measurement) (domain.UpsertSummary, error) {
	var summary domain.UpsertSummary
	if len(measurements) == 0 {
		return summary, nil
	}

	unique, skipped := dedupeBatch(measurements)
	summary.Skipped = skipped

	for start := 0; start < len(unique); start += insertChunk {
		end := start + insertChunk
		if end > len(unique) {
			end = len(unique)
		}
		chunk := unique[start:end]

		existing, err := s.existingKeys(ctx, chunk)
		if err != nil {
			return summary, &domain.StoreWriteError{Err: err}
		}

		toInsert := make([]domain.Measurement, 0, len(chunk))
		for i := range chunk {
			if _, ok := existing[rowKey(&chunk[i])]; ok {
				summary.Updated++
				continue
			}
			toInsert = append(toInsert, chunk[i])
		}

		if err := s.insert(ctx, toInsert); err != nil {
			return summary, &domain.StoreWriteError{Err: err}
		}
		summary.Inserted += len(toInsert)
	}

	log.Info().
		Int("inserted", summary.Inserted).
		Int("updated", summary.Updated).
		Int("skipped", summary.Skipped).
		Msg("Upserted measurements")

	return summary, nil
}

func (s *ClickHouseStore) insert(ctx context.Context, measurements []domain.Measurement) error {
	if len(measurements) == 0 {
		return nil
	}

	batch, err := s.client.Conn().PrepareBatch(ctx, "INSERT INTO measurements")
	if err != nil {
		return fmt.Errorf("failed to prepare batch: %w", err)
	}

	for i := range measurements {
		m := &measurements[i]
		err := batch.Append(
			m.FloatID,
			m.Timestamp.UTC(),
			m.Depth,
			m.Latitude,
			m.Longitude,
			m.Pressure,
			m.Temperature,
			m.Salinity,
			m.DissolvedOxygen,
			m.Ph,
			string(m.QCFlag),
			m.Region,
			time.Now().UTC(),
		)
		if err != nil {
			return fmt.Errorf("failed to append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("failed to send batch: %w", err)
	}
	return nil
}

// existingKeys finds which of the chunk's composite keys are already
// stored. The lookup is narrowed by float id and time range, then matched
// exactly in memory.
func (s *ClickHouseStore) existingKeys(ctx context.Context, chunk []domain.Measurement) (map[string]struct{}, error) {
	floatIDs := make([]string, 0, 8)
	seen := make(map[string]struct{}, 8)
	minTS, maxTS := chunk[0].Timestamp, chunk[0].Timestamp
	for i := range chunk {
		if _, ok := seen[chunk[i].FloatID]; !ok {
			seen[chunk[i].FloatID] = struct{}{}
			floatIDs = append(floatIDs, chunk[i].FloatID)
		}
		if chunk[i].Timestamp.Before(minTS) {
			minTS = chunk[i].Timestamp
		}
		if chunk[i].Timestamp.After(maxTS) {
			maxTS = chunk[i].Timestamp
		}
	}

	rows, err := s.client.Query(ctx,
		`SELECT float_id, timestamp, depth FROM measurements
		 WHERE float_id IN (?) AND timestamp >= ? AND timestamp <= ?`,
		floatIDs, minTS.UTC(), maxTS.UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to query existing keys: %w", err)
	}
	defer rows.Close()

	existing := make(map[string]struct{})
	for rows.Next() {
		var (
			floatID string
			ts      time.Time
			depth   float64
		)
		if err := rows.Scan(&floatID, &ts, &depth); err != nil {
			return nil, fmt.Errorf("failed to scan existing key: %w", err)
		}
		existing[keyString(floatID, ts, depth)] = struct{}{}
	}
	return existing, rows.Err()
}

// QueryFreshness reports store totals for the data-freshness indicator
func (s *ClickHouseStore) QueryFreshness(ctx context.Context) (domain.Freshness, error) {
	var f domain.Freshness

	row := s.client.QueryRow(ctx,
		`SELECT count(), uniqExact((float_id, timestamp)), max(timestamp) FROM measurements`)

	var newest time.Time
	if err := row.Scan(&f.TotalMeasurements, &f.TotalProfiles, &newest); err != nil {
		return f, fmt.Errorf("failed to query freshness: %w", err)
	}
	if f.TotalMeasurements > 0 {
		f.NewestTimestamp = newest.UTC()
	}
	return f, nil
}

// Clear truncates the measurements table
func (s *ClickHouseStore) Clear(ctx context.Context) error {
	if err := s.client.Exec(ctx, "TRUNCATE TABLE measurements"); err != nil {
		return fmt.Errorf("failed to clear measurements: %w", err)
	}
	log.Warn().Msg("Measurement store cleared")
	return nil
}

// Close closes the underlying connection
func (s *ClickHouseStore) Close() error {
	return s.client.Close()
}

// dedupeBatch drops rows whose composite key repeats within the batch,
// keeping the first occurrence. Returns the unique rows in input order
// and the number skipped.
func dedupeBatch(measurements []domain.Measurement) ([]domain.Measurement, int) {
	unique := make([]domain.Measurement, 0, len(measurements))
	seen := make(map[string]struct{}, len(measurements))
	skipped := 0
	for i := range measurements {
		k := rowKey(&measurements[i])
		if _, ok := seen[k]; ok {
			skipped++
			continue
		}
		seen[k] = struct{}{}
		unique = append(unique, measurements[i])
	}
	return unique, skipped
}

func rowKey(m *domain.Measurement) string {
	return keyString(m.FloatID, m.Timestamp, m.Depth)
}

// keyString normalizes the composite key so a value that round-tripped
// through the store compares equal: timestamps at microsecond precision,
// depth at millimeter precision.
func keyString(floatID string, ts time.Time, depth float64) string {
	var b strings.Builder
	b.WriteString(floatID)
	b.WriteByte('|')
	b.WriteString(strconv.FormatInt(ts.UTC().UnixMicro(), 10))
	b.WriteByte('|')
	b.WriteString(strconv.FormatFloat(depth, 'f', 3, 64))
	return b.String()
}
