// Package migration carries the database schema and applies it.
package migration

import (
	"database/sql"
	"embed"

	migrate "github.com/rubenv/sql-migrate"
)

//go:embed *.sql
var files embed.FS

// Source returns the embedded migration files.
func Source() migrate.MigrationSource {
	return &migrate.EmbedFileSystemMigrationSource{
		FileSystem: files,
		Root:       ".",
	}
}

// Up applies all pending migrations and returns how many were applied.
func Up(db *sql.DB, driver string) (int, error) {
	return migrate.Exec(db, driver, Source(), migrate.Up)
}

// Down rolls back at most steps migrations, or all of them when steps is 0.
func Down(db *sql.DB, driver string, steps int) (int, error) {
	return migrate.ExecMax(db, driver, Source(), migrate.Down, steps)
}
