package storage

import (
	"context"
	"errors"
	"fmt"
)

// Config holds connection settings for every backend. A backend whose
// Enabled flag is false is not opened.
type Config struct {
	SQLite     SQLiteConfig
	ClickHouse ClickHouseConfig
	Postgres   PostgresConfig
}

// DefaultConfig returns a configuration with default local development settings.
func DefaultConfig() Config {
	return Config{
		SQLite: SQLiteConfig{
			Enabled: true,
			Path:    "emvqr.db",
		},
		ClickHouse: ClickHouseConfig{
			Host:     "localhost",
			Port:     9000,
			Database: "emvqr",
			User:     "default",
			Password: "",
		},
		Postgres: PostgresConfig{
			Host:     "localhost",
			Port:     5432,
			Database: "payments",
			User:     "emvqr",
			Password: "emvqr",
		},
	}
}

// DB wraps the configured backends. Fields for disabled backends are nil.
type DB struct {
	History *HistoryDB    // SQLite for local check history.
	CH      *ClickHouseDB // ClickHouse for findings analytics.
	PG      *PostgresDB   // PostgreSQL payment records and repair audit.
}

// Open opens every enabled backend.
func Open(ctx context.Context, cfg Config) (*DB, error) {
	d := &DB{}

	if cfg.SQLite.Enabled {
		h, err := OpenHistory(cfg.SQLite.Path)
		if err != nil {
			return nil, fmt.Errorf("sqlite: %w", err)
		}
		d.History = h
	}

	if cfg.ClickHouse.Enabled {
		ch, err := OpenClickHouse(ctx, cfg.ClickHouse)
		if err != nil {
			_ = d.Close()
			return nil, fmt.Errorf("clickhouse: %w", err)
		}
		d.CH = ch
	}

	if cfg.Postgres.Enabled {
		pg, err := OpenPostgres(ctx, cfg.Postgres)
		if err != nil {
			_ = d.Close()
			return nil, fmt.Errorf("postgres: %w", err)
		}
		d.PG = pg
	}

	return d, nil
}

// Close closes every open connection.
func (d *DB) Close() error {
	var errs []error
	if d.History != nil {
		if err := d.History.Close(); err != nil {
			errs = append(errs, fmt.Errorf("sqlite: %w", err))
		}
	}
	if d.CH != nil {
		if err := d.CH.Close(); err != nil {
			errs = append(errs, fmt.Errorf("clickhouse: %w", err))
		}
	}
	if d.PG != nil {
		d.PG.Close()
	}
	return errors.Join(errs...)
}

// CreateSchemas creates the schemas in the server-side databases. The SQLite
// schema is created on open.
func (d *DB) CreateSchemas(ctx context.Context) error {
	if d.CH != nil {
		if err := d.CH.CreateSchema(ctx); err != nil {
			return fmt.Errorf("clickhouse schema: %w", err)
		}
	}
	if d.PG != nil {
		if err := d.PG.CreateSchema(ctx); err != nil {
			return fmt.Errorf("postgres schema: %w", err)
		}
	}
	return nil
}
