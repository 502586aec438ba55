package db

import "embed"

// MigrationFS embeds SQL migration files from internal/platform/db/migrations.
// Used by the migrate runner to apply migrations at API start.
//
//go:embed migrations/*.sql
var MigrationFS embed.FS
