// Package migrations embeds the SQL schema of the postgres order store.
package migrations

import "embed"

// FS holds the golang-migrate scripts, named <version>_<title>.{up,down}.sql.
//
//go:embed *.sql
var FS embed.FS
