package migrations

import "embed"

// FS contains embedded SQLite migrations for the simulated chain store.
//
//go:embed *.sql
var FS embed.FS
