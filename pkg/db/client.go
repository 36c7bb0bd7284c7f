package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/angelmondragon/tablebite-backend/pkg/config"
	"github.com/angelmondragon/tablebite-backend/pkg/logger"
)

const defaultTxRetries = 3

// Client owns the connection pool and the transaction policy every service
// shares: a per-transaction lock timeout on postgres and bounded retries for
// contention failures.
type Client struct {
	conn        *gorm.DB
	lockTimeout time.Duration
	retries     int
}

// Pinger is what the readiness probe needs.
type Pinger interface {
	Ping(ctx context.Context) error
}

func New(ctx context.Context, cfg config.DBConfig, logg *logger.Logger) (*Client, error) {
	dialector, err := dialectorFor(cfg)
	if err != nil {
		return nil, err
	}
	conn, err := gorm.Open(dialector, &gorm.Config{
		Logger:                 newQueryLogger(logg, slowQueryThreshold),
		SkipDefaultTransaction: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening %s connection: %w", cfg.Driver, err)
	}
	if err := configurePool(conn, cfg); err != nil {
		return nil, err
	}

	if logg != nil {
		logg.Info(logg.WithFields(ctx, map[string]any{
			"driver":         conn.Dialector.Name(),
			"max_open_conns": cfg.MaxOpenConns,
			"lock_timeout":   cfg.LockTimeout.String(),
		}), "db.connected")
	}
	return NewFromGorm(conn, cfg.LockTimeout, cfg.TxRetries), nil
}

func dialectorFor(cfg config.DBConfig) (gorm.Dialector, error) {
	if cfg.DSN == "" {
		return nil, errors.New("database DSN is required")
	}
	switch cfg.Driver {
	case config.DriverSQLite:
		return sqlite.Open(cfg.DSN), nil
	case "", config.DriverPostgres:
		// Simple protocol keeps the pool usable behind pgbouncer.
		return postgres.New(postgres.Config{DSN: cfg.DSN, PreferSimpleProtocol: true}), nil
	}
	return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
}

func configurePool(conn *gorm.DB, cfg config.DBConfig) error {
	pool, err := conn.DB()
	if err != nil {
		return fmt.Errorf("getting sql db handle: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		pool.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		pool.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		pool.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
	if cfg.ConnMaxIdleTime > 0 {
		pool.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
	}
	return nil
}

// NewFromGorm wraps an open connection. Non-positive retries use the default.
func NewFromGorm(conn *gorm.DB, lockTimeout time.Duration, retries int) *Client {
	if retries <= 0 {
		retries = defaultTxRetries
	}
	return &Client{conn: conn, lockTimeout: lockTimeout, retries: retries}
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

// WithTx runs fn in one transaction. An error or panic from fn rolls back.
func (c *Client) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return c.conn.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := c.setLockTimeout(tx); err != nil {
			return err
		}
		return fn(tx)
	})
}

// WithTxRetry re-runs the whole unit of work when it fails on lock
// contention, serialization or a lost insert race. Once attempts run out the
// failure surfaces as CONCURRENCY_CONFLICT.
func (c *Client) WithTxRetry(ctx context.Context, fn func(tx *gorm.DB) error) error {
	var err error
	for attempt := 1; attempt <= c.retries; attempt++ {
		if err = c.WithTx(ctx, fn); err == nil || !IsRetryable(err) {
			return err
		}
		if attempt == c.retries {
			break
		}
		select {
		case <-ctx.Done():
			return concurrencyConflict(err)
		case <-time.After(backoff(attempt)):
		}
	}
	return concurrencyConflict(err)
}

func (c *Client) setLockTimeout(tx *gorm.DB) error {
	if c.lockTimeout <= 0 || tx.Dialector.Name() != config.DriverPostgres {
		return nil
	}
	// SET LOCAL does not take bind parameters.
	stmt := fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", c.lockTimeout.Milliseconds())
	if err := tx.Exec(stmt).Error; err != nil {
		return fmt.Errorf("set lock timeout: %w", err)
	}
	return nil
}

// backoff grows quadratically: 10ms, 40ms, 90ms.
func backoff(attempt int) time.Duration {
	return time.Duration(attempt*attempt) * 10 * time.Millisecond
}
