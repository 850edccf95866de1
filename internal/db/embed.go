package db

import "embed"

// EmbedMigrations carries the metadata-store schema migrations inside the
// binary so server and shieldctl migrate without external files.
//
//go:embed migrations/*.sql
var EmbedMigrations embed.FS
