// Package recorder runs the background sampling loop that turns live
// telemetry into persisted test samples.
//
// The loop only writes while a run is actually in progress: device on, at
// least one client connected, a model and user selected, and telemetry
// arriving within the recency window. Samples with both forces at zero are
// skipped so an idle rig does not fill the database with noise. SQLite is
// the system of record; an optional mirror fans each sample out to InfluxDB.
package recorder
