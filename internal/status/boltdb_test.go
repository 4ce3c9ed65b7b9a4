package status

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/Ayushi40804/visualize-ocean/internal/domain"
)

func openStore(t *testing.T, path string) *BoltDBStore {
	t.Helper()
	s, err := NewBoltDBStore(path)
	if err != nil {
		t.Fatalf("NewBoltDBStore() error = %v", err)
	}
	return s
}

func TestLoad_FreshDatabase(t *testing.T) {
	s := openStore(t, filepath.Join(t.TempDir(), "status.db"))
	defer s.Close()

	got, err := s.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got.State != domain.StateIdle {
		t.Errorf("expected idle state, got %s", got.State)
	}
	if got.RefreshCount != 0 || got.LastSuccessAt != nil {
		t.Error("fresh database should hold the zero record")
	}
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "status.db")
	s := openStore(t, path)

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	want := domain.RefreshStatus{
		State:                domain.StateSucceeded,
		RunID:                "run-1",
		LastAttemptAt:        &now,
		LastSuccessAt:        &now,
		ProfilesIngested:     12,
		MeasurementsIngested: 340,
		RefreshCount:         3,
		ErrorCount:           1,
	}
	if err := s.Save(want); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	s.Close()

	// Reopen to prove the record survives the process.
	s = openStore(t, path)
	defer s.Close()

	got, err := s.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got.State != want.State || got.RunID != want.RunID {
		t.Errorf("got %+v, want %+v", got, want)
	}
	if got.LastSuccessAt == nil || !got.LastSuccessAt.Equal(now) {
		t.Errorf("LastSuccessAt = %v, want %v", got.LastSuccessAt, now)
	}
	if got.ProfilesIngested != 12 || got.MeasurementsIngested != 340 {
		t.Errorf("counters not restored: %+v", got)
	}
}

func TestLoad_InterruptedRunReportsFailed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "status.db")
	s := openStore(t, path)

	if err := s.Save(domain.RefreshStatus{State: domain.StateRunning, RunID: "run-2"}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	s.Close()

	s = openStore(t, path)
	defer s.Close()

	got, err := s.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got.State != domain.StateFailed {
		t.Errorf("expected failed after interrupted run, got %s", got.State)
	}
	if got.LastError == "" {
		t.Error("expected an explanatory LastError")
	}
}
