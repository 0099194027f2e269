package migrations

import "embed"

// FS contains the embedded postgres migrations.
//
//go:embed *.sql
var FS embed.FS
