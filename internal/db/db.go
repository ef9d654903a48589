package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/HodayaSing/ai-pos/internal/obs"
)

// Options selects and configures the database.
type Options struct {
	Driver      string
	DatabaseURL string
	SQLitePath  string
	// SQLiteDSN overrides SQLitePath, e.g. for in-memory databases in tests.
	SQLiteDSN       string
	ApplicationName string
	Logger          zerolog.Logger
}

// Client wraps the shared GORM connection and the pool beneath it.
type Client struct {
	driver string
	conn   *gorm.DB
	sqlDB  *sql.DB
	pool   *pgxpool.Pool
}

// Open connects to SQLite or PostgreSQL. Postgres goes through a pgx pool so
// queries carry the pgx tracer.
func Open(ctx context.Context, opts Options) (*Client, error) {
	gormCfg := &gorm.Config{
		Logger:                 NewGormLogger(opts.Logger),
		SkipDefaultTransaction: true,
		TranslateError:         true,
	}

	switch strings.ToLower(opts.Driver) {
	case "", "sqlite":
		dsn := opts.SQLiteDSN
		if dsn == "" {
			path := opts.SQLitePath
			if path == "" {
				path = "data/products.sqlite"
			}
			if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
				return nil, fmt.Errorf("create sqlite directory: %w", err)
			}
			dsn = "file:" + path + "?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000"
		}
		conn, err := gorm.Open(sqlite.Open(dsn), gormCfg)
		if err != nil {
			return nil, fmt.Errorf("opening sqlite: %w", err)
		}
		sqlDB, err := conn.DB()
		if err != nil {
			return nil, fmt.Errorf("getting sql db handle: %w", err)
		}
		// SQLite allows one writer; a single connection avoids SQLITE_BUSY under load.
		sqlDB.SetMaxOpenConns(1)
		return &Client{driver: "sqlite", conn: conn, sqlDB: sqlDB}, nil

	case "postgres":
		if opts.DatabaseURL == "" {
			return nil, errors.New("database URL is required")
		}
		poolCfg, err := pgxpool.ParseConfig(opts.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("parse database url: %w", err)
		}
		poolCfg.ConnConfig.Tracer = obs.PGXTracer{}
		if opts.ApplicationName != "" {
			if poolCfg.ConnConfig.RuntimeParams == nil {
				poolCfg.ConnConfig.RuntimeParams = map[string]string{}
			}
			poolCfg.ConnConfig.RuntimeParams["application_name"] = opts.ApplicationName
		}
		pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
		if err != nil {
			return nil, fmt.Errorf("create pgx pool: %w", err)
		}
		sqlDB := stdlib.OpenDBFromPool(pool)
		conn, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), gormCfg)
		if err != nil {
			_ = sqlDB.Close()
			pool.Close()
			return nil, fmt.Errorf("opening postgres: %w", err)
		}
		return &Client{driver: "postgres", conn: conn, sqlDB: sqlDB, pool: pool}, nil

	default:
		return nil, fmt.Errorf("unsupported database driver %q", opts.Driver)
	}
}

// Driver reports "sqlite" or "postgres".
func (c *Client) Driver() string { return c.driver }

// DB returns the underlying GORM connection.
func (c *Client) DB() *gorm.DB { return c.conn }

// Ping verifies the datasource is reachable.
func (c *Client) Ping(ctx context.Context) error {
	if c.pool != nil {
		return c.pool.Ping(ctx)
	}
	return c.sqlDB.PingContext(ctx)
}

// Close shuts down the pooled connections.
func (c *Client) Close() error {
	err := c.sqlDB.Close()
	if c.pool != nil {
		c.pool.Close()
	}
	return err
}

// WithTx executes fn inside a transaction, rolling back on error/panic.
func (c *Client) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return c.conn.WithContext(ctx).Transaction(fn)
}
