package clickhouse

import (
	"context"
	"fmt"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/rs/zerolog/log"

	"github.com/Ayushi40804/visualize-ocean/internal/retry"
)

// Options configure the ClickHouse connection
type Options struct {
	Host     string
	Port     int
	Database string
	Username string
	Password string
}

// Client wraps a ClickHouse connection with retrying query helpers
type Client struct {
	conn     clickhouse.Conn
	retryCfg retry.Config
}

// NewClient creates a new ClickHouse client with default retry config
func NewClient(opts Options) (*Client, error) {
	return NewClientWithRetry(opts, retry.DefaultConfig())
}

// NewClientWithRetry creates a new ClickHouse client with custom retry configuration
func NewClientWithRetry(opts Options, retryCfg retry.Config) (*Client, error) {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{fmt.Sprintf("%s:%d", opts.Host, opts.Port)},
		Auth: clickhouse.Auth{
			Database: opts.Database,
			Username: opts.Username,
			Password: opts.Password,
		},
		Settings: clickhouse.Settings{
			"max_execution_time": 60,
		},
		Compression: &clickhouse.Compression{
			Method: clickhouse.CompressionLZ4,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to clickhouse: %w", err)
	}

	// Test connection with retry
	ctx := context.Background()
	if err := retry.Do(ctx, retryCfg, func() error {
		return conn.Ping(ctx)
	}); err != nil {
		return nil, fmt.Errorf("failed to ping clickhouse: %w", err)
	}

	log.Info().
		Str("host", opts.Host).
		Int("port", opts.Port).
		Str("database", opts.Database).
		Msg("Connected to ClickHouse")

	return &Client{
		conn:     conn,
		retryCfg: retryCfg,
	}, nil
}

// Conn returns the underlying ClickHouse connection
func (c *Client) Conn() clickhouse.Conn {
	return c.conn
}

// Close closes the connection
func (c *Client) Close() error {
	log.Info().Msg("Closing ClickHouse connection")
	return c.conn.Close()
}

// Query executes a SELECT query and returns rows with retry logic
func (c *Client) Query(ctx context.Context, query string, args ...interface{}) (driver.Rows, error) {
	return retry.DoWithResult(ctx, c.retryCfg, func() (driver.Rows, error) {
		return c.conn.Query(ctx, query, args...)
	})
}

// QueryRow executes a single-row SELECT with retry logic
func (c *Client) QueryRow(ctx context.Context, query string, args ...interface{}) driver.Row {
	return c.conn.QueryRow(ctx, query, args...)
}

// Exec executes a non-SELECT query with retry logic
func (c *Client) Exec(ctx context.Context, query string, args ...interface{}) error {
	return retry.Do(ctx, c.retryCfg, func() error {
		return c.conn.Exec(ctx, query, args...)
	})
}
