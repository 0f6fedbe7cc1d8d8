package db

import "embed"

// MigrationFS embeds the SQL migrations under internal/db/migrations.
// cmd/migrate and authctl apply them through internal/db/migrate.
//
//go:embed migrations/*.sql
var MigrationFS embed.FS
