// Package migrations bundles the SQL schema applied at startup.
package migrations

import "embed"

// Files holds every migration, applied in lexical order.
//
//go:embed *.sql
var Files embed.FS
