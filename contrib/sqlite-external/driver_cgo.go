//go:build cgo_sqlite

package sqliteexternal

import (
	_ "github.com/mattn/go-sqlite3"
)

const (
	// DriverName is the database/sql name registered by mattn/go-sqlite3.
	DriverName = "sqlite3"

	// DriverType identifies the CGO implementation.
	DriverType = "cgo"

	// DriverPackage is the import path of the underlying driver.
	DriverPackage = "github.com/mattn/go-sqlite3"
)
