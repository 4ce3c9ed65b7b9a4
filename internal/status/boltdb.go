// Package status persists the refresh record across process restarts so
// a resumed scheduler can anchor its next tick on the last success.
package status

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"go.etcd.io/bbolt"

	"github.com/Ayushi40804/visualize-ocean/internal/domain"
)

const (
	bucketName = "refresh"
	recordKey  = "status"
)

// BoltDBStore persists RefreshStatus in a local BoltDB file.
type BoltDBStore struct {
	db *bbolt.DB
}

// NewBoltDBStore opens (or creates) the status database.
func NewBoltDBStore(dbPath string) (*BoltDBStore, error) {
	// Short timeout so a stale lock from a killed process fails fast
	// instead of hanging startup.
	db, err := bbolt.Open(dbPath, 0600, &bbolt.Options{
		Timeout: 1 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open boltdb (file may be locked by another process): %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketName))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create bucket: %w", err)
	}

	log.Info().
		Str("db_path", dbPath).
		Msg("BoltDB status store initialized")

	return &BoltDBStore{db: db}, nil
}

// Load returns the persisted status. A fresh database yields the idle
// zero record, not an error.
func (s *BoltDBStore) Load() (domain.RefreshStatus, error) {
	status := domain.RefreshStatus{State: domain.StateIdle}

	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))
		if b == nil {
			return fmt.Errorf("bucket not found")
		}
		val := b.Get([]byte(recordKey))
		if val == nil {
			return nil
		}
		return json.Unmarshal(val, &status)
	})
	if err != nil {
		return status, fmt.Errorf("failed to load refresh status: %w", err)
	}

	// A run that was in flight when the process died never finished;
	// report it as failed rather than running forever.
	if status.State == domain.StateRunning {
		status.State = domain.StateFailed
		status.LastError = "interrupted by restart"
	}

	return status, nil
}

// Save overwrites the persisted status record.
func (s *BoltDBStore) Save(status domain.RefreshStatus) error {
	val, err := json.Marshal(status)
	if err != nil {
		return fmt.Errorf("failed to marshal refresh status: %w", err)
	}

	err = s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))
		if b == nil {
			return fmt.Errorf("bucket not found")
		}
		return b.Put([]byte(recordKey), val)
	})
	if err != nil {
		return fmt.Errorf("failed to save refresh status: %w", err)
	}

	log.Debug().
		Str("state", string(status.State)).
		Str("run_id", status.RunID).
		Msg("Refresh status persisted")

	return nil
}

// Close closes the status database.
func (s *BoltDBStore) Close() error {
	log.Info().Msg("Closing BoltDB status store")
	return s.db.Close()
}
