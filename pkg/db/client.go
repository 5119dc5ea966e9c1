// Package db owns the shared gorm connection pool.
package db

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/occasionbuddy/occasionbuddy-backend/pkg/config"
	"github.com/occasionbuddy/occasionbuddy-backend/pkg/logger"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Pinger is what readiness probes need from the database.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Client struct {
	conn *gorm.DB
}

// New opens the pool described by cfg. SQLite is for local development only.
func New(ctx context.Context, cfg config.DBConfig, logg *logger.Logger) (*Client, error) {
	if cfg.DSN == "" {
		return nil, errors.New("database DSN is required")
	}
	driver := normalizeDriver(cfg.Driver)

	var dialector gorm.Dialector
	switch driver {
	case DriverPostgres:
		dialector = postgres.New(postgres.Config{DSN: cfg.DSN, PreferSimpleProtocol: true})
	case DriverSQLite:
		dialector = sqlite.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	conn, err := gorm.Open(dialector, &gorm.Config{
		Logger:                 newQueryLogger(logg, cfg.SlowQueryThreshold),
		SkipDefaultTransaction: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	pool, err := conn.DB()
	if err != nil {
		return nil, fmt.Errorf("sql pool: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		pool.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		pool.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	pool.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	pool.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if logg != nil {
		logg.Info(logg.WithField(ctx, "driver", driver), "db.ready")
	}
	return &Client{conn: conn}, nil
}

// NewFromConn wraps a connection opened elsewhere, typically in tests.
func NewFromConn(conn *gorm.DB) *Client {
	return &Client{conn: conn}
}

func normalizeDriver(raw string) string {
	if driver := strings.ToLower(strings.TrimSpace(raw)); driver != "" {
		return driver
	}
	return DriverPostgres
}

func (c *Client) DB() *gorm.DB {
	return c.conn
}

func (c *Client) Ping(ctx context.Context) error {
	pool, err := c.conn.DB()
	if err != nil {
		return err
	}
	return pool.PingContext(ctx)
}

func (c *Client) Close() error {
	pool, err := c.conn.DB()
	if err != nil {
		return err
	}
	return pool.Close()
}

// WithTx commits when fn returns nil and rolls back on error or panic.
func (c *Client) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return c.conn.WithContext(ctx).Transaction(fn)
}
