package domain

import "time"

// IndexEntry is one row of the global profile index: a file locator plus
// coarse metadata used for filtering. Immutable once parsed.
type IndexEntry struct {
	FileRef   string
	FloatID   string
	Latitude  float64
	Longitude float64
	Date      time.Time
}
