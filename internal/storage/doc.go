// Package storage contains the SQLite repositories behind the hub's narrow
// persistence interfaces: the user directory (identity lookup for client
// authentication), the car model catalogue (selection validation and
// auto-switching), and the test sample log written by the persistence loop.
//
// Repositories are defined as interfaces with SQLite implementations so
// protocol and recorder tests can substitute in-memory fakes.
package storage
