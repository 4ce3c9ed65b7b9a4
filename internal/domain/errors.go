package domain

import (
	"errors"
	"fmt"
)

// Run-fatal catalog errors. IndexUnavailable means the archive could not
// be reached after retries; IndexEmpty means the resource was retrieved
// but zero entries parsed, which signals format drift rather than an
// outage.
var (
	ErrIndexUnavailable = errors.New("profile index unavailable")
	ErrIndexEmpty       = errors.New("profile index parsed to zero entries")
)

// ErrAlreadyRunning rejects a refresh trigger while another run holds the
// single-flight slot. It is not a pipeline failure.
var ErrAlreadyRunning = errors.New("a refresh run is already in progress")

// FetchError records one failed profile download. Non-fatal: accumulated
// per run, never aborts the batch.
type FetchError struct {
	FileRef string
	Reason  string
	Err     error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %s", e.FileRef, e.Reason)
}

func (e *FetchError) Unwrap() error { return e.Err }

// ParseError records one profile file that could not be decoded at all.
// Non-fatal: sibling files continue to be extracted.
type ParseError struct {
	FileRef string
	Err     error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: %v", e.FileRef, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// StoreWriteError aborts the remaining upsert batch. Chunks already sent
// stay persisted; the summary reflects what landed.
type StoreWriteError struct {
	Err error
}

func (e *StoreWriteError) Error() string {
	return fmt.Sprintf("store write failed: %v", e.Err)
}

func (e *StoreWriteError) Unwrap() error { return e.Err }
