package domain

import (
	"fmt"
	"time"
)

// FilterCriteria selects index entries by an inclusive geographic box and
// date range. MaxProfiles of 0 means unlimited. Wraparound must be set
// explicitly when the longitude box crosses the antimeridian; otherwise
// lonMin > lonMax is a validation error.
type FilterCriteria struct {
	LatMin      float64
	LatMax      float64
	LonMin      float64
	LonMax      float64
	Wraparound  bool
	StartDate   time.Time
	EndDate     time.Time
	MaxProfiles int
}

// Validate checks the criteria before any I/O happens.
func (c *FilterCriteria) Validate() error {
	if c.LatMin < -90 || c.LatMax > 90 {
		return fmt.Errorf("latitude bounds must be within [-90, 90], got [%v, %v]", c.LatMin, c.LatMax)
	}
	if c.LatMin > c.LatMax {
		return fmt.Errorf("latMin %v is greater than latMax %v", c.LatMin, c.LatMax)
	}
	if c.LonMin < -180 || c.LonMax > 360 {
		return fmt.Errorf("longitude bounds must be within [-180, 360], got [%v, %v]", c.LonMin, c.LonMax)
	}
	if c.LonMin > c.LonMax && !c.Wraparound {
		return fmt.Errorf("lonMin %v is greater than lonMax %v without wraparound", c.LonMin, c.LonMax)
	}
	if c.StartDate.After(c.EndDate) {
		return fmt.Errorf("startDate %s is after endDate %s",
			c.StartDate.Format(time.RFC3339), c.EndDate.Format(time.RFC3339))
	}
	if c.MaxProfiles < 0 {
		return fmt.Errorf("maxProfiles must be >= 0, got %d", c.MaxProfiles)
	}
	return nil
}

// Contains reports whether an entry falls inside the box and date range.
// All bounds are inclusive.
func (c *FilterCriteria) Contains(e *IndexEntry) bool {
	if e.Latitude < c.LatMin || e.Latitude > c.LatMax {
		return false
	}
	if c.LonMin > c.LonMax {
		// Antimeridian wraparound: the box covers [lonMin, 180] and [-180, lonMax].
		if e.Longitude < c.LonMin && e.Longitude > c.LonMax {
			return false
		}
	} else if e.Longitude < c.LonMin || e.Longitude > c.LonMax {
		return false
	}
	if e.Date.Before(c.StartDate) || e.Date.After(c.EndDate) {
		return false
	}
	return true
}
