// Package database manages the SQLite connection for the tunnel hub.
//
// It owns connection configuration (WAL mode, busy timeout, single-writer
// pool), embedded schema migrations, and health checks. Repositories in
// internal/storage build on the *sql.DB it exposes.
package database
