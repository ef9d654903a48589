package db

import (
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	migratepgx "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations
var migrationsFS embed.FS

// Migrate applies pending schema migrations for the client's driver.
func Migrate(c *Client) error {
	src, err := iofs.New(migrationsFS, "migrations/"+c.driver)
	if err != nil {
		return fmt.Errorf("load migrations: %w", err)
	}
	defer src.Close()

	var m *migrate.Migrate
	switch c.driver {
	case "postgres":
		drv, err := migratepgx.WithInstance(c.sqlDB, &migratepgx.Config{})
		if err != nil {
			return fmt.Errorf("migrate driver: %w", err)
		}
		m, err = migrate.NewWithInstance("iofs", src, "pgx5", drv)
		if err != nil {
			return fmt.Errorf("migrate init: %w", err)
		}
	default:
		drv, err := migratesqlite.WithInstance(c.sqlDB, &migratesqlite.Config{})
		if err != nil {
			return fmt.Errorf("migrate driver: %w", err)
		}
		m, err = migrate.NewWithInstance("iofs", src, "sqlite3", drv)
		if err != nil {
			return fmt.Errorf("migrate init: %w", err)
		}
	}
	// m.Close would also close the shared *sql.DB, so only the source is closed.
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate up: %w", err)
	}
	return nil
}
