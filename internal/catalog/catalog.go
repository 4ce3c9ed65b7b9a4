package catalog

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/rs/zerolog/log"

	"github.com/Ayushi40804/visualize-ocean/internal/domain"
	"github.com/Ayushi40804/visualize-ocean/internal/retry"
)

// Index dates look like 19970729200300 (UTC).
const indexDateLayout = "20060102150405"

// Catalog fetches and parses the compressed global profile index.
// Every FetchIndex call produces a fresh snapshot; nothing is cached here.
type Catalog struct {
	baseURL    string
	indexPath  string
	httpClient *http.Client
	retryCfg   retry.Config
}

// New creates a catalog reading from baseURL/indexPath
func New(baseURL, indexPath string, timeout time.Duration) *Catalog {
	return &Catalog{
		baseURL:   strings.TrimSuffix(baseURL, "/"),
		indexPath: indexPath,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		retryCfg: retry.DefaultConfig(),
	}
}

// IndexURL returns the full URL of the index resource
func (c *Catalog) IndexURL() string {
	return c.baseURL + "/" + strings.TrimPrefix(c.indexPath, "/")
}

// FetchIndex downloads, decompresses and parses the global index.
// Malformed lines are skipped and counted, never fatal. Returns
// domain.ErrIndexUnavailable when the resource cannot be retrieved after
// retries and domain.ErrIndexEmpty when zero entries parse.
func (c *Catalog) FetchIndex(ctx context.Context) ([]domain.IndexEntry, error) {
	indexURL := c.IndexURL()
	log.Info().Str("url", indexURL).Msg("Fetching global profile index")

	body, err := retry.DoWithResult(ctx, c.retryCfg, func() ([]byte, error) {
		return c.download(ctx, indexURL)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrIndexUnavailable, err)
	}

	entries, skipped, err := parseIndex(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrIndexUnavailable, err)
	}
	if len(entries) == 0 {
		return nil, domain.ErrIndexEmpty
	}

	log.Info().
		Int("entries", len(entries)).
		Int("skipped_lines", skipped).
		Msg("Parsed global profile index")

	return entries, nil
}

func (c *Catalog) download(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("index request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("index request: status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read index body: %w", err)
	}
	return data, nil
}

// parseIndex decompresses the index and parses its newline-delimited
// records. The stream starts with '#' comment lines followed by a CSV
// header row; both are skipped.
func parseIndex(compressed []byte) ([]domain.IndexEntry, int, error) {
	gz, err := gzip.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, 0, fmt.Errorf("decompress index: %w", err)
	}
	defer gz.Close()

	var (
		entries    []domain.IndexEntry
		skipped    int
		headerSeen bool
	)

	scanner := bufio.NewScanner(gz)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if !headerSeen {
			// First non-comment line is the column header.
			headerSeen = true
			continue
		}

		entry, ok := parseIndexLine(line)
		if !ok {
			skipped++
			continue
		}
		entries = append(entries, entry)
	}
	if err := scanner.Err(); err != nil {
		return nil, skipped, fmt.Errorf("read index: %w", err)
	}

	return entries, skipped, nil
}

// parseIndexLine parses one index record:
// file,date,latitude,longitude,ocean,profiler_type,institution,date_update
func parseIndexLine(line string) (domain.IndexEntry, bool) {
	fields := strings.Split(line, ",")
	if len(fields) < 4 {
		return domain.IndexEntry{}, false
	}

	fileRef := strings.TrimSpace(fields[0])
	if fileRef == "" {
		return domain.IndexEntry{}, false
	}

	date, err := time.Parse(indexDateLayout, strings.TrimSpace(fields[1]))
	if err != nil {
		return domain.IndexEntry{}, false
	}

	lat, err := strconv.ParseFloat(strings.TrimSpace(fields[2]), 64)
	if err != nil {
		return domain.IndexEntry{}, false
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(fields[3]), 64)
	if err != nil {
		return domain.IndexEntry{}, false
	}

	return domain.IndexEntry{
		FileRef:   fileRef,
		FloatID:   FloatIDFromRef(fileRef),
		Latitude:  lat,
		Longitude: lon,
		Date:      date.UTC(),
	}, true
}

// FloatIDFromRef derives the platform identifier from a file locator,
// e.g. "aoml/13857/profiles/R13857_001.nc" -> "13857".
func FloatIDFromRef(fileRef string) string {
	parts := strings.Split(fileRef, "/")
	if len(parts) >= 2 {
		return parts[1]
	}
	// Fall back to the file name without prefix letter and extension.
	name := parts[len(parts)-1]
	name = strings.TrimSuffix(name, ".nc")
	if i := strings.IndexByte(name, '_'); i > 1 {
		return name[1:i]
	}
	return name
}

// ProfileURL resolves a file locator against the archive layout. Profile
// files live under dac/ on the GDAC mirrors.
func (c *Catalog) ProfileURL(fileRef string) string {
	ref := strings.TrimPrefix(fileRef, "/")
	u, err := url.JoinPath(c.baseURL, "dac", ref)
	if err != nil {
		return c.baseURL + "/dac/" + ref
	}
	return u
}
