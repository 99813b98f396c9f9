//go:build cgo_sqlite

// CGO SQLite driver using mattn/go-sqlite3.
// Build with: go build -tags cgo_sqlite (requires CGO_ENABLED=1)
package sqlite

import (
	_ "github.com/FocuswithJustin/pkdex/contrib/sqlite-external" // CGO SQLite driver
)

const (
	driverName    = "sqlite3"
	driverType    = "cgo"
	driverPackage = "github.com/mattn/go-sqlite3 (via contrib/sqlite-external)"
)
