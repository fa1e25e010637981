//go:build sqlite3driver

package store

// Building with -tags sqlite3driver registers the CGO-backed "sqlite3"
// driver (github.com/mattn/go-sqlite3) as an alternative to the default
// pure-Go modernc.org/sqlite driver, selected via Config.Driver = "sqlite3".
import (
	_ "github.com/mattn/go-sqlite3"
)
