package migrations

import "github.com/uptrace/bun/migrate"

// Migrations collects every schema change; each file registers itself and bun names it after
// the file.
var Migrations = migrate.NewMigrations()
