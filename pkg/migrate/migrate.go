package migrate

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"github.com/pressly/goose/v3"

	"github.com/angelmondragon/storefront-backend/pkg/config"
)

const (
	DefaultDir = "pkg/migrate/migrations/postgres"
	SQLiteDir  = "pkg/migrate/migrations/sqlite"
)

// DialectFor returns the goose dialect matching the configured driver.
func DialectFor(cfg config.DBConfig) goose.Dialect {
	if cfg.IsSQLite() {
		return goose.DialectSQLite3
	}
	return goose.DialectPostgres
}

// DirFor returns the on-disk migration directory for the configured driver.
func DirFor(cfg config.DBConfig) string {
	if cfg.IsSQLite() {
		return SQLiteDir
	}
	return DefaultDir
}

// Target is a database plus the on-disk migration set that applies to it.
type Target struct {
	DB      *sql.DB
	Dialect goose.Dialect
	Dir     string
}

// NewTarget picks the dialect from cfg. An empty dir means the driver default.
func NewTarget(db *sql.DB, cfg config.DBConfig, dir string) Target {
	if dir == "" {
		dir = DirFor(cfg)
	}
	return Target{DB: db, Dialect: DialectFor(cfg), Dir: dir}
}

func (t Target) prepare() error {
	switch {
	case t.DB == nil:
		return errors.New("db is required")
	case t.Dir == "":
		return errors.New("dir is required")
	}
	if err := goose.SetDialect(string(t.Dialect)); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}
	return nil
}

// Run executes a goose command (up, down, status, ...). goose prints its own
// status output to stdout.
func (t Target) Run(ctx context.Context, command string, args ...string) error {
	if err := t.prepare(); err != nil {
		return err
	}
	if err := goose.RunContext(ctx, command, t.DB, t.Dir, args...); err != nil {
		return fmt.Errorf("goose %s: %w", command, err)
	}
	return nil
}

// ToVersion moves the schema up or down until it sits at version.
func (t Target) ToVersion(ctx context.Context, version string) error {
	if version == "" {
		return errors.New("version is required")
	}
	target, err := strconv.ParseInt(version, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid version %q (expected YYYYMMDDHHMMSS): %w", version, err)
	}
	if err := t.prepare(); err != nil {
		return err
	}

	current, err := goose.GetDBVersionContext(ctx, t.DB)
	if err != nil {
		return fmt.Errorf("get db version: %w", err)
	}

	switch {
	case current < target:
		err = goose.UpToContext(ctx, t.DB, t.Dir, target)
	case current > target:
		err = goose.DownToContext(ctx, t.DB, t.Dir, target)
	default:
		return nil
	}
	if err != nil {
		return fmt.Errorf("goose migrate %d -> %d: %w", current, target, err)
	}
	return nil
}
