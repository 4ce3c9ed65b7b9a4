// Package fetcher downloads the profile files referenced by index
// entries. Entries are processed in sequential batches; within a batch up
// to maxWorkers downloads run concurrently, which bounds peak network and
// memory use. Partial failure is the normal case: each failed file yields
// a FetchError in its slot and never aborts the batch.
package fetcher

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Ayushi40804/visualize-ocean/internal/domain"
	"github.com/Ayushi40804/visualize-ocean/internal/retry"
)

// Result is the outcome for one index entry. Exactly one of File and Err
// is set. Results keep the entry order of the input regardless of which
// worker finished first.
type Result struct {
	Entry domain.IndexEntry
	File  *domain.RawProfileFile
	Err   *domain.FetchError
}

// Fetcher retrieves profile files into a local download directory.
type Fetcher struct {
	resolveURL  func(fileRef string) string
	downloadDir string
	httpClient  *http.Client
	retryCfg    retry.Config
}

// New creates a fetcher. resolveURL maps a file locator from the index to
// a full archive URL.
func New(resolveURL func(string) string, downloadDir string, timeout time.Duration) *Fetcher {
	return &Fetcher{
		resolveURL:  resolveURL,
		downloadDir: downloadDir,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		retryCfg: retry.DefaultConfig(),
	}
}

// FetchAll downloads all entries in batches of batchSize with up to
// maxWorkers concurrent downloads per batch. A cancellation mid-run lets
// the in-flight batch finish, then marks the remaining entries as failed
// without starting new downloads.
func (f *Fetcher) FetchAll(ctx context.Context, entries []domain.IndexEntry, batchSize, maxWorkers int) []Result {
	if batchSize < 1 {
		batchSize = 1
	}
	if maxWorkers < 1 {
		maxWorkers = 1
	}

	if err := os.MkdirAll(f.downloadDir, 0755); err != nil {
		results := make([]Result, len(entries))
		for i := range entries {
			results[i] = Result{Entry: entries[i], Err: &domain.FetchError{
				FileRef: entries[i].FileRef,
				Reason:  "download directory unavailable",
				Err:     err,
			}}
		}
		return results
	}

	results := make([]Result, len(entries))
	numBatches := (len(entries) + batchSize - 1) / batchSize

	for b := 0; b*batchSize < len(entries); b++ {
		start := b * batchSize
		end := start + batchSize
		if end > len(entries) {
			end = len(entries)
		}

		if ctx.Err() != nil {
			// Stop launching new batches; everything not yet attempted is
			// recorded as failed so accounting stays complete.
			for i := start; i < len(entries); i++ {
				results[i] = Result{Entry: entries[i], Err: &domain.FetchError{
					FileRef: entries[i].FileRef,
					Reason:  "refresh cancelled",
					Err:     ctx.Err(),
				}}
			}
			break
		}

		log.Debug().
			Int("batch", b+1).
			Int("batches", numBatches).
			Int("files", end-start).
			Msg("Fetching profile batch")

		var wg sync.WaitGroup
		sem := make(chan struct{}, maxWorkers)
		for i := start; i < end; i++ {
			wg.Add(1)
			sem <- struct{}{}
			go func(idx int) {
				defer wg.Done()
				defer func() { <-sem }()
				results[idx] = f.fetchOne(ctx, entries[idx])
			}(i)
		}
		wg.Wait()
	}

	return results
}

// fetchOne retrieves a single profile file, reusing an existing local
// copy when present.
func (f *Fetcher) fetchOne(ctx context.Context, entry domain.IndexEntry) Result {
	dest := filepath.Join(f.downloadDir, filepath.Base(entry.FileRef))

	if data, err := os.ReadFile(dest); err == nil && len(data) > 0 {
		log.Debug().Str("file", dest).Msg("Reusing downloaded profile file")
		return Result{Entry: entry, File: &domain.RawProfileFile{
			FileRef: entry.FileRef,
			Path:    dest,
			Data:    data,
		}}
	}

	fileURL := f.resolveURL(entry.FileRef)
	data, err := retry.DoWithResult(ctx, f.retryCfg, func() ([]byte, error) {
		return f.download(ctx, fileURL)
	})
	if err != nil {
		log.Warn().
			Err(err).
			Str("file_ref", entry.FileRef).
			Msg("Profile download failed permanently")
		return Result{Entry: entry, Err: &domain.FetchError{
			FileRef: entry.FileRef,
			Reason:  err.Error(),
			Err:     err,
		}}
	}

	// Write via a temp file so a crash never leaves a truncated .nc that
	// a later run would happily reuse.
	tmp := dest + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err == nil {
		if err := os.Rename(tmp, dest); err != nil {
			os.Remove(tmp)
		}
	}

	return Result{Entry: entry, File: &domain.RawProfileFile{
		FileRef: entry.FileRef,
		Path:    dest,
		Data:    data,
	}}
}

func (f *Fetcher) download(ctx context.Context, fileURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fileURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("profile request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("profile request: status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read profile body: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("profile request: empty body")
	}
	return data, nil
}

// CleanupOldFiles removes downloaded profile files older than the
// retention window. Idempotent: a second pass with nothing to remove
// returns zero and no error.
func (f *Fetcher) CleanupOldFiles(retention time.Duration) (int, error) {
	entries, err := os.ReadDir(f.downloadDir)
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read download dir: %w", err)
	}

	cutoff := time.Now().Add(-retention)
	removed := 0
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".nc" {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			if err := os.Remove(filepath.Join(f.downloadDir, e.Name())); err == nil {
				removed++
			}
		}
	}

	if removed > 0 {
		log.Info().
			Int("removed", removed).
			Dur("retention", retention).
			Msg("Cleaned up old profile files")
	}
	return removed, nil
}
