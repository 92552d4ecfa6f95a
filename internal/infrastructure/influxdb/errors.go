package influxdb

import "errors"

var (
	// ErrNotConnected is returned when the InfluxDB server fails its health check.
	ErrNotConnected = errors.New("influxdb: server not reachable")

	// ErrInvalidConfig is returned when required connection settings are missing.
	ErrInvalidConfig = errors.New("influxdb: invalid configuration")
)
