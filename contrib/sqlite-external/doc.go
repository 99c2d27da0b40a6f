// Package sqliteexternal provides optional external SQLite drivers.
//
// To use the CGO driver (github.com/mattn/go-sqlite3) for the graph
// database, build with:
//
//	CGO_ENABLED=1 go build -tags cgo_sqlite ./cmd/taxonomist
//
// By default taxonomist uses the pure Go modernc.org/sqlite driver, which
// requires no CGO. See github.com/FocuswithJustin/taxonomist/core/sqlite.
package sqliteexternal
