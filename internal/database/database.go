// Package database owns the process-wide store handle: a pgx pool opened on
// first use, exposed to gorm through database/sql.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/theplant/pagequery/internal/config"
)

// OpenFunc opens a gorm DB and returns a function releasing it.
type OpenFunc func(ctx context.Context) (*gorm.DB, func(), error)

// Handle lazily opens the database on first use and reuses it afterwards.
// A failed open is not cached, so the next call tries again.
type Handle struct {
	open   OpenFunc
	logger *zap.Logger

	mu      sync.Mutex
	db      *gorm.DB
	release func()
}

type Option func(*Handle)

// WithOpenFunc replaces how the handle connects.
func WithOpenFunc(open OpenFunc) Option {
	return func(h *Handle) { h.open = open }
}

// New returns a Handle for cfg. Nothing is opened until DB is called.
func New(cfg config.DatabaseConfig, logger *zap.Logger, opts ...Option) *Handle {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &Handle{logger: logger}
	h.open = func(ctx context.Context) (*gorm.DB, func(), error) {
		return Open(ctx, cfg, logger)
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// DB returns the shared gorm DB bound to ctx, opening it if needed.
func (h *Handle) DB(ctx context.Context) (*gorm.DB, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.db == nil {
		db, release, err := h.open(ctx)
		if err != nil {
			h.logger.Warn("open database failed", zap.Error(err))
			return nil, err
		}
		h.db, h.release = db, release
		h.logger.Info("database opened")
	}
	return h.db.WithContext(ctx), nil
}

// Ping opens the database if needed and checks the connection.
func (h *Handle) Ping(ctx context.Context) error {
	db, err := h.DB(ctx)
	if err != nil {
		return err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("sql db: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}
	return nil
}

// Close releases the connection if one was opened. The handle may be
// reopened afterwards.
func (h *Handle) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.release != nil {
		h.release()
	}
	h.db, h.release = nil, nil
}

// Open creates a pgx pool for cfg and wraps it in gorm.
func Open(ctx context.Context, cfg config.DatabaseConfig, logger *zap.Logger) (*gorm.DB, func(), error) {
	level, err := ParseLogLevel(cfg.LogLevel)
	if err != nil {
		return nil, nil, err
	}

	poolConfig, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, nil, fmt.Errorf("parse pool config: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolConfig.MaxConns = cfg.MaxConns
	}
	poolConfig.MinConns = cfg.MinConns
	if cfg.MaxConnLifetime > 0 {
		poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if cfg.MaxConnIdleTime > 0 {
		poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime
	}
	poolConfig.HealthCheckPeriod = time.Minute
	poolConfig.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		_, err := conn.Exec(ctx, "SET timezone = 'UTC'")
		return err
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("ping database: %w", err)
	}

	sqlDB := stdlib.OpenDBFromPool(pool)
	db, err := OpenGorm(sqlDB, NewZapLogger(logger, level, cfg.SlowThreshold))
	if err != nil {
		_ = sqlDB.Close()
		pool.Close()
		return nil, nil, err
	}

	logger.Info("database connection pool created",
		zap.Int32("max_conns", poolConfig.MaxConns),
		zap.Int32("min_conns", poolConfig.MinConns),
	)

	return db, func() {
		_ = sqlDB.Close()
		pool.Close()
	}, nil
}

// OpenGorm wraps an existing connection with the postgres dialector.
func OpenGorm(sqlDB *sql.DB, logger *ZapLogger) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger:                 logger,
		DisableAutomaticPing:   true,
		TranslateError:         true,
		SkipDefaultTransaction: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open gorm: %w", err)
	}
	return db, nil
}
