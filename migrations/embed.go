// Package migrations embeds the SQL schema files so the migration runner
// works regardless of the process working directory.
package migrations

import "embed"

// FS holds every .sql file in this directory, applied in lexical order.
//
//go:embed *.sql
var FS embed.FS
