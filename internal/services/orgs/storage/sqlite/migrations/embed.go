package migrations

import "embed"

// FS contains embedded SQLite migrations for orgs storage.
//
//go:embed *.sql
var FS embed.FS
