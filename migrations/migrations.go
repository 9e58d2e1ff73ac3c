// Package migrations embeds the SQL schema for the sync attempt audit log.
package migrations

import "embed"

// FS holds the numbered up/down migration files.
//
//go:embed *.sql
var FS embed.FS
