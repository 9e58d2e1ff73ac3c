// Package persistence stores the reconciliation audit log in PostgreSQL.
package persistence

import (
	"fmt"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/erp/ordersync/internal/infrastructure/config"
	"github.com/erp/ordersync/internal/infrastructure/logger"
)

// Database holds the database connection and provides methods for database operations
type Database struct {
	DB *gorm.DB
}

type options struct {
	logger   *zap.Logger
	logLevel gormlogger.LogLevel
	tracing  bool
	ping     bool
}

// Option configures NewDatabase and Open.
type Option func(*options)

// WithLogger routes GORM statement logs through zap at the given level
// ("silent", "error", "warn", "info").
func WithLogger(l *zap.Logger, level string) Option {
	return func(o *options) {
		o.logger = l
		o.logLevel = logger.MapGormLogLevel(level)
	}
}

// WithTracing registers the otelgorm plugin so every statement becomes a span.
func WithTracing(enabled bool) Option {
	return func(o *options) {
		o.tracing = enabled
	}
}

// WithoutPing skips the connectivity check performed after opening.
func WithoutPing() Option {
	return func(o *options) {
		o.ping = false
	}
}

// NewDatabase opens a PostgreSQL connection with the given configuration
func NewDatabase(cfg *config.DatabaseConfig, opts ...Option) (*Database, error) {
	return Open(postgres.Open(cfg.DSN()), cfg, opts...)
}

// Open creates a Database over an arbitrary dialector and applies the pool
// settings from cfg.
func Open(dialector gorm.Dialector, cfg *config.DatabaseConfig, opts ...Option) (*Database, error) {
	o := &options{logger: zap.NewNop(), logLevel: gormlogger.Silent, ping: true}
	for _, opt := range opts {
		opt(o)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:                 logger.NewGormLogger(o.logger, o.logLevel),
		SkipDefaultTransaction: true,
		DisableAutomaticPing:   true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if o.tracing {
		plugin := otelgorm.NewPlugin(
			otelgorm.WithDBName(cfg.DBName),
			otelgorm.WithoutQueryVariables(),
		)
		if err := db.Use(plugin); err != nil {
			return nil, fmt.Errorf("failed to register tracing plugin: %w", err)
		}
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime) * time.Minute)
	sqlDB.SetConnMaxIdleTime(time.Duration(cfg.ConnMaxIdleTime) * time.Minute)

	if o.ping {
		if err := sqlDB.Ping(); err != nil {
			return nil, fmt.Errorf("failed to ping database: %w", err)
		}
	}

	return &Database{DB: db}, nil
}

// Close closes the database connection
func (d *Database) Close() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	return sqlDB.Close()
}

// Ping checks if the database connection is alive
func (d *Database) Ping() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	return sqlDB.Ping()
}
