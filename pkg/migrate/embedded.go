package migrate

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"

	"github.com/pressly/goose/v3"
)

//go:embed migrations/postgres/*.sql migrations/sqlite/*.sql
var embedded embed.FS

// Embedded returns the compiled-in migration set for a dialect.
func Embedded(dialect goose.Dialect) (fs.FS, error) {
	dir := "migrations/postgres"
	if dialect == goose.DialectSQLite3 {
		dir = "migrations/sqlite"
	}
	return fs.Sub(embedded, dir)
}

// Up applies every pending embedded migration and returns the resulting version.
func Up(ctx context.Context, db *sql.DB, dialect goose.Dialect) (int64, error) {
	if db == nil {
		return 0, fmt.Errorf("db is required")
	}
	fsys, err := Embedded(dialect)
	if err != nil {
		return 0, fmt.Errorf("open embedded migrations: %w", err)
	}
	provider, err := goose.NewProvider(dialect, db, fsys)
	if err != nil {
		return 0, fmt.Errorf("build goose provider: %w", err)
	}
	if _, err := provider.Up(ctx); err != nil {
		return 0, fmt.Errorf("goose up: %w", err)
	}
	version, err := provider.GetDBVersion(ctx)
	if err != nil {
		return 0, fmt.Errorf("get db version: %w", err)
	}
	return version, nil
}
