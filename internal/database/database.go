package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	pgx "github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/membergate/membergate/config"
	"github.com/membergate/membergate/internal/logger"
	"github.com/membergate/membergate/internal/metrics"
)

// ErrNotConfigured is returned when no DATABASE_URL was supplied
var ErrNotConfigured = errors.New("database not configured")

// Row is the single-row scan surface exposed to stores
type Row interface {
	Scan(dest ...any) error
}

// DB represents a database connection
type DB struct {
	pool *pgxpool.Pool
	cfg  config.DatabaseConfig
}

// New creates a new database connection. When no URL is configured the
// returned DB is inert and the caller is expected to fall back to the
// in-memory store.
func New(ctx context.Context, cfg config.DatabaseConfig) (*DB, error) {
	if cfg.URL == "" {
		logger.Info("DATABASE_URL not set; using in-memory account store only")
		return &DB{pool: nil, cfg: cfg}, nil
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse db url: %w", err)
	}

	// Configure connection pool
	poolCfg.MaxConns = int32(cfg.MaxConns)
	poolCfg.MinConns = int32(cfg.MinConns)
	poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	poolCfg.MaxConnIdleTime = cfg.MaxConnIdleTime

	poolCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		logger.Debug("Database connection established")
		return nil
	}

	connectCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(connectCtx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect db: %w", err)
	}

	// Test connection
	if err := pool.Ping(connectCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	db := &DB{pool: pool, cfg: cfg}

	go db.collectMetrics(ctx)

	logger.Info("Database connection established",
		"max_conns", cfg.MaxConns,
		"min_conns", cfg.MinConns,
	)

	return db, nil
}

// collectMetrics periodically reports pool stats until ctx is done
func (d *DB) collectMetrics(ctx context.Context) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if d.pool != nil {
				metrics.SetDBConnectionsActive(float64(d.pool.Stat().AcquiredConns()))
			}
		}
	}
}

// Exec executes a statement and returns the number of affected rows
func (d *DB) Exec(ctx context.Context, sql string, args ...any) (int64, error) {
	if d.pool == nil {
		return 0, ErrNotConfigured
	}

	start := time.Now()
	defer func() {
		logger.Debug("Database exec", "duration_ms", time.Since(start).Milliseconds())
	}()

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	tag, err := d.pool.Exec(ctx, sql, args...)

	status := "success"
	if err != nil {
		status = "error"
		logger.Error("Database exec failed", "error", err)
	}
	metrics.RecordDBQuery("exec", status)

	return tag.RowsAffected(), err
}

// QueryRow executes a query that returns a single row. pgx reads the row
// lazily during Scan, so the timeout must stay alive until then; the returned
// Row releases it once scanned.
func (d *DB) QueryRow(ctx context.Context, sql string, args ...any) Row {
	if d.pool == nil {
		return notConfiguredRow{}
	}

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)

	return timedRow{row: d.pool.QueryRow(ctx, sql, args...), cancel: cancel}
}

// Health checks database connectivity
func (d *DB) Health(ctx context.Context) error {
	if d.pool == nil {
		return ErrNotConfigured
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	return d.pool.Ping(ctx)
}

// IsConfigured returns true if database is configured
func (d *DB) IsConfigured() bool {
	return d.pool != nil
}

// Close closes the connection pool
func (d *DB) Close(ctx context.Context) {
	if d.pool != nil {
		d.pool.Close()
		logger.Info("Database connection closed")
	}
}

// IsNoRows reports whether err is the pgx no-rows sentinel
func IsNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

type notConfiguredRow struct{}

func (notConfiguredRow) Scan(dest ...any) error { return ErrNotConfigured }

// timedRow carries the query timeout across the lazy read in Scan
type timedRow struct {
	row    pgx.Row
	cancel context.CancelFunc
}

func (r timedRow) Scan(dest ...any) error {
	defer r.cancel()
	return r.row.Scan(dest...)
}
