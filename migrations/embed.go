// Package migrations embeds the SQL schema.
package migrations

import "embed"

// FS holds the up migrations, applied in lexical order.
//
//go:embed *.up.sql
var FS embed.FS
