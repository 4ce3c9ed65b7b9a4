package store

import (
	"context"

	"github.com/Ayushi40804/visualize-ocean/internal/domain"
)

// MeasurementStore persists quality-controlled measurements keyed by
// (float_id, timestamp, depth) and answers freshness queries.
type MeasurementStore interface {
	// Upsert writes a batch. Rows whose key already exists are a no-op in
	// effect, counted as updated; duplicate keys within the batch are
	// counted as skipped. On a write failure the summary reflects what
	// landed before the error.
	Upsert(ctx context.Context, measurements []domain.Measurement) (domain.UpsertSummary, error)

	// QueryFreshness reports totals and the newest timestamp in the store
	QueryFreshness(ctx context.Context) (domain.Freshness, error)

	// Clear resets the store to an empty, schema-valid state. Explicit
	// reset flows only.
	Clear(ctx context.Context) error

	// Close releases the underlying connection
	Close() error
}
