// Package refresh orchestrates one full ingestion pass: index download,
// filtering, profile fetch, extraction, and the store write. At most one
// run is in flight per process; concurrent triggers are rejected, never
// queued.
package refresh

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/Ayushi40804/visualize-ocean/internal/domain"
	"github.com/Ayushi40804/visualize-ocean/internal/fetcher"
	"github.com/Ayushi40804/visualize-ocean/internal/filter"
	"github.com/Ayushi40804/visualize-ocean/internal/observability"
	"github.com/Ayushi40804/visualize-ocean/internal/store"
)

// IndexSource produces a fresh snapshot of the global profile index.
type IndexSource interface {
	FetchIndex(ctx context.Context) ([]domain.IndexEntry, error)
}

// ProfileFetcher downloads profile files and manages the local cache.
type ProfileFetcher interface {
	FetchAll(ctx context.Context, entries []domain.IndexEntry, batchSize, maxWorkers int) []fetcher.Result
	CleanupOldFiles(retention time.Duration) (int, error)
}

// Extractor decodes one raw profile file into measurements.
type Extractor interface {
	Extract(raw *domain.RawProfileFile) ([]domain.Measurement, int, error)
}

// StatusStore persists the refresh record across restarts.
type StatusStore interface {
	Load() (domain.RefreshStatus, error)
	Save(status domain.RefreshStatus) error
}

// Options carries the per-run tunables the coordinator applies.
type Options struct {
	// Criteria is evaluated at the start of each run so rolling date
	// windows move with the clock.
	Criteria func(now time.Time) (domain.FilterCriteria, error)

	BatchSize  int
	MaxWorkers int
}

// RunResult summarizes one completed refresh run.
type RunResult struct {
	RunID             string               `json:"run_id"`
	MatchedProfiles   int                  `json:"matched_profiles"`
	FetchedProfiles   int                  `json:"fetched_profiles"`
	ExtractedProfiles int                  `json:"extracted_profiles"`
	Measurements      domain.UpsertSummary `json:"measurements"`
	DroppedReadings   int                  `json:"dropped_readings"`
	FetchFailures     []string             `json:"fetch_failures,omitempty"`
	ParseFailures     []string             `json:"parse_failures,omitempty"`
	Duration          time.Duration        `json:"-"`
	DurationSeconds   float64              `json:"duration_seconds"`
}

// Coordinator runs refresh passes and owns the process-wide status.
type Coordinator struct {
	index     IndexSource
	fetcher   ProfileFetcher
	extractor Extractor
	store     store.MeasurementStore
	statusDB  StatusStore
	metrics   *observability.Metrics
	opts      Options

	runMu    sync.Mutex // held for the whole run; TryLock gives single-flight
	statusMu sync.RWMutex
	status   domain.RefreshStatus
}

// NewCoordinator wires a coordinator and restores the persisted status.
func NewCoordinator(
	index IndexSource,
	pf ProfileFetcher,
	ex Extractor,
	st store.MeasurementStore,
	statusDB StatusStore,
	metrics *observability.Metrics,
	opts Options,
) (*Coordinator, error) {
	persisted, err := statusDB.Load()
	if err != nil {
		return nil, err
	}
	return &Coordinator{
		index:     index,
		fetcher:   pf,
		extractor: ex,
		store:     st,
		statusDB:  statusDB,
		metrics:   metrics,
		opts:      opts,
		status:    persisted,
	}, nil
}

// Status returns a snapshot of the refresh record. Never blocks on a
// running refresh.
func (c *Coordinator) Status() domain.RefreshStatus {
	c.statusMu.RLock()
	defer c.statusMu.RUnlock()
	return c.status
}

// Refresh executes one full run. A second caller while a run is in
// flight gets domain.ErrAlreadyRunning immediately.
func (c *Coordinator) Refresh(ctx context.Context) (*RunResult, error) {
	if !c.runMu.TryLock() {
		c.metrics.RefreshRuns.WithLabelValues("rejected").Inc()
		return nil, domain.ErrAlreadyRunning
	}
	defer c.runMu.Unlock()

	runID := uuid.New().String()
	started := time.Now()

	tracer := otel.Tracer("refresh")
	ctx, span := tracer.Start(ctx, "refresh.run",
		trace.WithAttributes(attribute.String("run_id", runID)))
	defer span.End()

	c.setRunning(runID, started)
	c.metrics.RefreshRunning.Set(1)
	defer c.metrics.RefreshRunning.Set(0)

	log.Info().Str("run_id", runID).Msg("Refresh run started")

	result, err := c.run(ctx, tracer, runID)
	result.Duration = time.Since(started)
	result.DurationSeconds = result.Duration.Seconds()
	c.metrics.RefreshDuration.Observe(result.DurationSeconds)

	if err != nil {
		span.RecordError(err)
		c.metrics.RefreshRuns.WithLabelValues("failed").Inc()
		c.setFinished(domain.StateFailed, err.Error(), result)
		log.Error().
			Err(err).
			Str("run_id", runID).
			Dur("duration", result.Duration).
			Msg("Refresh run failed")
		return result, err
	}

	c.metrics.RefreshRuns.WithLabelValues("succeeded").Inc()
	c.setFinished(domain.StateSucceeded, "", result)
	log.Info().
		Str("run_id", runID).
		Int("profiles", result.ExtractedProfiles).
		Int("inserted", result.Measurements.Inserted).
		Int("updated", result.Measurements.Updated).
		Int("dropped", result.DroppedReadings).
		Dur("duration", result.Duration).
		Msg("Refresh run finished")
	return result, nil
}

// run is the pipeline body. Per-file fetch and parse failures are
// recorded in the result but only index or store failures fail the run.
func (c *Coordinator) run(ctx context.Context, tracer trace.Tracer, runID string) (*RunResult, error) {
	result := &RunResult{RunID: runID}

	ctx, idxSpan := tracer.Start(ctx, "refresh.index")
	entries, err := c.index.FetchIndex(ctx)
	idxSpan.End()
	if err != nil {
		return result, err
	}

	criteria, err := c.opts.Criteria(time.Now())
	if err != nil {
		return result, err
	}
	matched, err := filter.Select(entries, criteria)
	if err != nil {
		return result, err
	}
	result.MatchedProfiles = len(matched)
	if len(matched) == 0 {
		// Nothing in the window is a valid outcome, not a failure.
		log.Info().Str("run_id", runID).Msg("No profiles matched the filter window")
		return result, nil
	}

	ctx, fetchSpan := tracer.Start(ctx, "refresh.fetch",
		trace.WithAttributes(attribute.Int("profiles", len(matched))))
	fetched := c.fetcher.FetchAll(ctx, matched, c.opts.BatchSize, c.opts.MaxWorkers)
	fetchSpan.End()

	var all []domain.Measurement
	_, extractSpan := tracer.Start(ctx, "refresh.extract")
	for i := range fetched {
		if fetched[i].Err != nil {
			c.metrics.FetchErrors.Inc()
			result.FetchFailures = append(result.FetchFailures, fetched[i].Err.FileRef)
			continue
		}
		result.FetchedProfiles++
		c.metrics.ProfilesFetched.Inc()

		measurements, dropped, err := c.extractor.Extract(fetched[i].File)
		result.DroppedReadings += dropped
		if err != nil {
			c.metrics.ParseErrors.Inc()
			result.ParseFailures = append(result.ParseFailures, fetched[i].File.FileRef)
			var perr *domain.ParseError
			if errors.As(err, &perr) {
				log.Warn().Err(perr.Err).Str("file_ref", perr.FileRef).Msg("Profile file could not be decoded")
			} else {
				log.Warn().Err(err).Str("file_ref", fetched[i].File.FileRef).Msg("Profile file could not be decoded")
			}
			continue
		}
		result.ExtractedProfiles++
		all = append(all, measurements...)
	}
	extractSpan.End()
	c.metrics.MeasurementsDropped.Add(float64(result.DroppedReadings))

	ctx, storeSpan := tracer.Start(ctx, "refresh.store",
		trace.WithAttributes(attribute.Int("measurements", len(all))))
	summary, err := c.store.Upsert(ctx, all)
	storeSpan.End()
	result.Measurements = summary
	c.metrics.MeasurementsIngested.Add(float64(summary.Inserted))
	if err != nil {
		return result, err
	}

	return result, nil
}

// Cleanup removes downloaded files older than retention and reports how
// many were removed.
func (c *Coordinator) Cleanup(retention time.Duration) (int, error) {
	removed, err := c.fetcher.CleanupOldFiles(retention)
	if err != nil {
		return 0, err
	}
	c.metrics.FilesCleaned.Add(float64(removed))
	return removed, nil
}

func (c *Coordinator) setRunning(runID string, started time.Time) {
	c.statusMu.Lock()
	defer c.statusMu.Unlock()
	c.status.State = domain.StateRunning
	c.status.RunID = runID
	t := started.UTC()
	c.status.LastAttemptAt = &t
	c.status.LastError = ""
	c.persistLocked()
}

func (c *Coordinator) setFinished(state domain.RunState, errMsg string, result *RunResult) {
	c.statusMu.Lock()
	defer c.statusMu.Unlock()
	c.status.State = state
	c.status.LastError = errMsg
	c.status.RefreshCount++
	// The ingest counts always describe the run that just finished, so a
	// failed attempt does not keep reporting the previous run's numbers.
	c.status.ProfilesIngested = result.ExtractedProfiles
	c.status.MeasurementsIngested = result.Measurements.Inserted + result.Measurements.Updated
	if state == domain.StateSucceeded {
		now := time.Now().UTC()
		c.status.LastSuccessAt = &now
	} else {
		c.status.ErrorCount++
	}
	c.persistLocked()
}

func (c *Coordinator) persistLocked() {
	if err := c.statusDB.Save(c.status); err != nil {
		log.Error().Err(err).Msg("Failed to persist refresh status")
	}
}
