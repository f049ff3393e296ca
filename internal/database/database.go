package database

import (
	"context"
	"database/sql"
	"embed"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/pressly/goose/v3"
	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/rrebane/market-data-loader/internal/apperrors"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Open opens a connection to the configured database.
// driver is "sqlite" (modernc) or "postgres" (lib/pq).
func Open(driver, dsn string) (*sqlx.DB, error) {
	var db *sql.DB
	var err error

	switch driver {
	case "sqlite":
		db, err = openSQLite(dsn)
	case "postgres":
		db, err = sql.Open("postgres", dsn)
	default:
		return nil, fmt.Errorf("%w: %s", apperrors.ErrUnsupportedDriver, driver)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return sqlx.NewDb(db, driver), nil
}

func openSQLite(dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}

	// Set timezone to UTC
	if _, err := db.Exec("PRAGMA timezone = 'UTC'"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set timezone: %w", err)
	}

	// A single writer avoids SQLITE_BUSY between the per-page transactions
	// and keeps ":memory:" databases on one connection.
	db.SetMaxOpenConns(1)

	return db, nil
}

func setupGoose(db *sqlx.DB) error {
	dialect := "sqlite3"
	if db.DriverName() == "postgres" {
		dialect = "postgres"
	}

	goose.SetBaseFS(migrations)
	if err := goose.SetDialect(dialect); err != nil {
		return fmt.Errorf("failed to set migration dialect: %w", err)
	}
	return nil
}

// Migrate applies the embedded schema migrations.
func Migrate(db *sqlx.DB, log logrus.FieldLogger) error {
	if err := setupGoose(db); err != nil {
		return err
	}
	goose.SetLogger(log)

	if err := goose.Up(db.DB, "migrations"); err != nil {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	return nil
}

// SchemaVersion returns the applied schema version and the newest embedded one.
func SchemaVersion(db *sqlx.DB) (current, latest int64, err error) {
	if err := setupGoose(db); err != nil {
		return 0, 0, err
	}

	current, err = goose.GetDBVersion(db.DB)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to read schema version: %w", err)
	}

	collected, err := goose.CollectMigrations("migrations", 0, goose.MaxVersion)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to collect migrations: %w", err)
	}
	if last, err := collected.Last(); err == nil {
		latest = last.Version
	}
	return current, latest, nil
}

// HealthCheck performs a simple health check on the database
func HealthCheck(ctx context.Context, db *sqlx.DB) error {
	return db.PingContext(ctx)
}
