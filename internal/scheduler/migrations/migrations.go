// Package migrations embeds the scheduler job store schema.
package migrations

import "embed"

// FS holds the SQL migrations for the scheduler store.
//
//go:embed *.sql
var FS embed.FS
