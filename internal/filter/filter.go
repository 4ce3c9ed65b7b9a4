// Package filter selects index entries matching a geographic box and a
// date range. Selection is pure and order-preserving: truncation by
// MaxProfiles keeps the first N matches in input index order, which keeps
// downstream accounting deterministic.
package filter

import (
	"fmt"

	"github.com/Ayushi40804/visualize-ocean/internal/domain"
)

// Select returns the entries satisfying the criteria, in input order.
// An empty result is a valid outcome, never an error; the only error
// source is invalid criteria, checked before any entry is inspected.
func Select(entries []domain.IndexEntry, criteria domain.FilterCriteria) ([]domain.IndexEntry, error) {
	if err := criteria.Validate(); err != nil {
		return nil, fmt.Errorf("invalid filter criteria: %w", err)
	}

	matched := make([]domain.IndexEntry, 0)
	for i := range entries {
		if !criteria.Contains(&entries[i]) {
			continue
		}
		matched = append(matched, entries[i])
		if criteria.MaxProfiles > 0 && len(matched) >= criteria.MaxProfiles {
			break
		}
	}
	return matched, nil
}
