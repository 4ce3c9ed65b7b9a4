package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/Ayushi40804/visualize-ocean/internal/domain"
)

const dateLayout = "2006-01-02"

// Config holds all configuration for the ingestion service
type Config struct {
	// ClickHouse configuration
	ClickHouseHost     string
	ClickHousePort     int
	ClickHouseDB       string
	ClickHouseUser     string
	ClickHousePassword string

	// Remote archive
	ArchiveBaseURL string // e.g. https://data-argo.ifremer.fr
	IndexPath      string // path of the compressed global index under the base URL
	HTTPTimeoutSec int    // per-request timeout for index and profile downloads

	// Selection window
	LatMin        float64
	LatMax        float64
	LonMin        float64
	LonMax        float64
	LonWraparound bool
	StartDate     string // YYYY-MM-DD, empty means rolling lookback
	EndDate       string // YYYY-MM-DD, empty means rolling lookback
	LookbackDays  int    // rolling window when no explicit dates are set
	MaxProfiles   int    // 0 means unlimited

	// Download settings
	DownloadDir string
	BatchSize   int
	MaxWorkers  int

	// Scheduling
	RefreshIntervalHours int
	RetentionDays        int

	// Local state
	StatusDBPath  string
	RegionMapPath string

	// Control API
	ControlAddr string

	// Observability
	LogLevel       string
	LogFile        string
	TracingEnabled bool
	OTLPEndpoint   string
	OTLPProtocol   string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		ClickHouseHost:     getEnv("CLICKHOUSE_HOST", "localhost"),
		ClickHousePort:     getEnvInt("CLICKHOUSE_PORT", 9000),
		ClickHouseDB:       getEnv("CLICKHOUSE_DB", "argo"),
		ClickHouseUser:     getEnv("CLICKHOUSE_USER", "default"),
		ClickHousePassword: getEnv("CLICKHOUSE_PASSWORD", ""),

		ArchiveBaseURL: getEnv("ARCHIVE_BASE_URL", "https://data-argo.ifremer.fr"),
		IndexPath:      getEnv("INDEX_PATH", "ar_index_global_prof.txt.gz"),
		HTTPTimeoutSec: getEnvInt("HTTP_TIMEOUT_SEC", 120),

		LatMin:        getEnvFloat("LAT_MIN", 10.0),
		LatMax:        getEnvFloat("LAT_MAX", 25.0),
		LonMin:        getEnvFloat("LON_MIN", 65.0),
		LonMax:        getEnvFloat("LON_MAX", 85.0),
		LonWraparound: getEnvBool("LON_WRAPAROUND", false),
		StartDate:     getEnv("START_DATE", ""),
		EndDate:       getEnv("END_DATE", ""),
		LookbackDays:  getEnvInt("LOOKBACK_DAYS", 60),
		MaxProfiles:   getEnvInt("MAX_PROFILES", 50),

		DownloadDir: getEnv("DOWNLOAD_DIR", "argo_data_downloads"),
		BatchSize:   getEnvInt("BATCH_SIZE", 5),
		MaxWorkers:  getEnvInt("MAX_WORKERS", 2),

		RefreshIntervalHours: getEnvInt("REFRESH_INTERVAL_HOURS", 24),
		RetentionDays:        getEnvInt("RETENTION_DAYS", 7),

		StatusDBPath:  getEnv("STATUS_DB_PATH", "refresh_status.db"),
		RegionMapPath: getEnv("REGION_MAP_PATH", "configs/regions.yaml"),

		ControlAddr: getEnv("CONTROL_ADDR", ":8080"),

		LogLevel:       getEnv("LOG_LEVEL", "info"),
		LogFile:        getEnv("LOG_FILE", ""),
		TracingEnabled: getEnvBool("TRACING_ENABLED", false),
		OTLPEndpoint:   getEnv("OTLP_ENDPOINT", ""),
		OTLPProtocol:   getEnv("OTLP_PROTOCOL", "grpc"),
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.ClickHouseHost == "" {
		return fmt.Errorf("CLICKHOUSE_HOST is required")
	}
	if c.ClickHousePort <= 0 || c.ClickHousePort > 65535 {
		return fmt.Errorf("CLICKHOUSE_PORT must be between 1 and 65535")
	}
	if c.ClickHouseDB == "" {
		return fmt.Errorf("CLICKHOUSE_DB is required")
	}
	if c.ArchiveBaseURL == "" {
		return fmt.Errorf("ARCHIVE_BASE_URL is required")
	}
	if c.IndexPath == "" {
		return fmt.Errorf("INDEX_PATH is required")
	}
	if c.HTTPTimeoutSec < 1 {
		return fmt.Errorf("HTTP_TIMEOUT_SEC must be at least 1")
	}
	if c.DownloadDir == "" {
		return fmt.Errorf("DOWNLOAD_DIR is required")
	}
	if c.BatchSize < 1 {
		return fmt.Errorf("BATCH_SIZE must be at least 1")
	}
	if c.MaxWorkers < 1 {
		return fmt.Errorf("MAX_WORKERS must be at least 1")
	}
	if c.MaxProfiles < 0 {
		return fmt.Errorf("MAX_PROFILES must be >= 0")
	}
	if c.LookbackDays < 1 {
		return fmt.Errorf("LOOKBACK_DAYS must be at least 1")
	}
	if c.RefreshIntervalHours < 1 {
		return fmt.Errorf("REFRESH_INTERVAL_HOURS must be at least 1")
	}
	if c.RetentionDays < 1 {
		return fmt.Errorf("RETENTION_DAYS must be at least 1")
	}
	if (c.StartDate == "") != (c.EndDate == "") {
		return fmt.Errorf("START_DATE and END_DATE must be set together")
	}

	// The full criteria check (bounds ordering, date parsing) runs here so
	// bad settings fail at startup, not mid-run.
	if _, err := c.Criteria(time.Now()); err != nil {
		return err
	}

	return nil
}

// Criteria builds the filter criteria for a run starting at now. When no
// explicit dates are configured the window is the rolling lookback ending
// at now, mirroring how scheduled refreshes keep data fresh.
func (c *Config) Criteria(now time.Time) (domain.FilterCriteria, error) {
	crit := domain.FilterCriteria{
		LatMin:      c.LatMin,
		LatMax:      c.LatMax,
		LonMin:      c.LonMin,
		LonMax:      c.LonMax,
		Wraparound:  c.LonWraparound,
		MaxProfiles: c.MaxProfiles,
	}

	if c.StartDate != "" {
		start, err := time.Parse(dateLayout, c.StartDate)
		if err != nil {
			return crit, fmt.Errorf("invalid START_DATE %q: %w", c.StartDate, err)
		}
		end, err := time.Parse(dateLayout, c.EndDate)
		if err != nil {
			return crit, fmt.Errorf("invalid END_DATE %q: %w", c.EndDate, err)
		}
		crit.StartDate = start
		// Inclusive end of day.
		crit.EndDate = end.Add(24*time.Hour - time.Nanosecond)
	} else {
		crit.EndDate = now.UTC()
		crit.StartDate = crit.EndDate.AddDate(0, 0, -c.LookbackDays)
	}

	if err := crit.Validate(); err != nil {
		return crit, err
	}
	return crit, nil
}

// RefreshInterval returns the scheduling period as a duration
func (c *Config) RefreshInterval() time.Duration {
	return time.Duration(c.RefreshIntervalHours) * time.Hour
}

// RetentionWindow returns the downloaded-file retention as a duration
func (c *Config) RetentionWindow() time.Duration {
	return time.Duration(c.RetentionDays) * 24 * time.Hour
}

// HTTPTimeout returns the per-request download timeout as a duration
func (c *Config) HTTPTimeout() time.Duration {
	return time.Duration(c.HTTPTimeoutSec) * time.Second
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt gets an integer environment variable or returns a default value
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvFloat gets a float environment variable or returns a default value
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

// getEnvBool gets a boolean environment variable or returns a default value
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
