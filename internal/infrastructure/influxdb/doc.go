// Package influxdb mirrors telemetry into an InfluxDB 2.x bucket.
//
// The mirror is optional and strictly best effort: writes go through the
// non-blocking batch API, and write errors are logged, never surfaced to the
// session that produced the sample. SQLite remains the system of record for
// completed test samples; InfluxDB exists for dashboards over the raw
// 20Hz force stream.
package influxdb
