// Package migrations embeds SQL migration files for use at runtime.
// Migrations are embedded so they work regardless of working directory.
package migrations

import "embed"

// FS is the embedded migrations filesystem (001_initial.sql onwards).
//
//go:embed *.sql
var FS embed.FS
