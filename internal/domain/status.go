package domain

import "time"

// RunState is the lifecycle state of the refresh pipeline.
type RunState string

const (
	StateIdle      RunState = "idle"
	StateRunning   RunState = "running"
	StateSucceeded RunState = "succeeded"
	StateFailed    RunState = "failed"
)

// RefreshStatus is the process-wide refresh record. It is mutated only by
// the coordinator at the start and end of each run, persisted across
// restarts, and read freely by anyone.
type RefreshStatus struct {
	State               RunState   `json:"state"`
	RunID               string     `json:"run_id,omitempty"`
	LastAttemptAt       *time.Time `json:"last_attempt_at,omitempty"`
	LastSuccessAt       *time.Time `json:"last_success_at,omitempty"`
	LastError           string     `json:"last_error,omitempty"`
	ProfilesIngested    int        `json:"profiles_ingested"`
	MeasurementsIngested int       `json:"measurements_ingested"`
	RefreshCount        int        `json:"refresh_count"`
	ErrorCount          int        `json:"error_count"`
}
