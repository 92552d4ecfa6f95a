package influxdb

import (
	"context"
	"fmt"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"

	"github.com/aerolab/tunnelcore/internal/infrastructure/config"
)

// Logger is the minimal logging interface the mirror needs.
type Logger interface {
	Warn(msg string, args ...any)
}

// Client wraps the InfluxDB 2.x client with a non-blocking write API.
//
// Points are buffered and flushed in batches; WriteForceSample and
// WriteTestSample never block a session on network I/O.
type Client struct {
	client   influxdb2.Client
	writeAPI api.WriteAPI
	cfg      config.InfluxDBConfig
}

// New creates a client for the configured bucket and starts draining the
// async error channel into logger.
func New(cfg config.InfluxDBConfig, logger Logger) (*Client, error) {
	if cfg.URL == "" || cfg.Token == "" || cfg.Org == "" || cfg.Bucket == "" {
		return nil, fmt.Errorf("%w: url, token, org and bucket are required", ErrInvalidConfig)
	}

	opts := influxdb2.DefaultOptions()
	if cfg.BatchSize > 0 {
		opts.SetBatchSize(uint(cfg.BatchSize))
	}
	if cfg.FlushInterval > 0 {
		opts.SetFlushInterval(uint(cfg.FlushInterval))
	}

	client := influxdb2.NewClientWithOptions(cfg.URL, cfg.Token, opts)
	writeAPI := client.WriteAPI(cfg.Org, cfg.Bucket)

	c := &Client{client: client, writeAPI: writeAPI, cfg: cfg}

	if logger != nil {
		go func() {
			for err := range writeAPI.Errors() {
				logger.Warn("influxdb write failed", "error", err)
			}
		}()
	}

	return c, nil
}

// HealthCheck verifies the InfluxDB server is reachable and ready.
func (c *Client) HealthCheck(ctx context.Context) error {
	health, err := c.client.Health(ctx)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrNotConnected, err)
	}
	if health.Status != "pass" {
		return fmt.Errorf("%w: status %s", ErrNotConnected, health.Status)
	}
	return nil
}

// Close flushes buffered points and releases the underlying client.
func (c *Client) Close() {
	c.writeAPI.Flush()
	c.client.Close()
}
