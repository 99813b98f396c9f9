// Package sqliteexternal registers the CGO SQLite driver for the import
// journal.
//
// The default build uses the pure Go driver from core/sqlite. Build with
//
//	CGO_ENABLED=1 go build -tags cgo_sqlite ./cmd/pkdex
//
// to route the journal through github.com/mattn/go-sqlite3 instead.
package sqliteexternal
