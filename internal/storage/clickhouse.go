package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
)

// ClickHouseConfig holds ClickHouse connection settings.
type ClickHouseConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Database string
	User     string
	Password string
}

// ClickHouseDB wraps a ClickHouse connection for findings analytics.
type ClickHouseDB struct {
	conn driver.Conn
}

// OpenClickHouse opens a connection to ClickHouse.
func OpenClickHouse(ctx context.Context, cfg ClickHouseConfig) (*ClickHouseDB, error) {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.User,
			Password: cfg.Password,
		},
		Settings: clickhouse.Settings{
			"max_execution_time": 60,
		},
		DialTimeout:     10 * time.Second,
		MaxOpenConns:    10,
		MaxIdleConns:    5,
		ConnMaxLifetime: time.Hour,
	})
	if err != nil {
		return nil, fmt.Errorf("open clickhouse: %w", err)
	}

	// Test the connection.
	if err := conn.Ping(ctx); err != nil {
		return nil, fmt.Errorf("ping clickhouse: %w", err)
	}

	return &ClickHouseDB{conn: conn}, nil
}

// Close closes the ClickHouse connection.
func (d *ClickHouseDB) Close() error {
	return d.conn.Close()
}

// CreateSchema creates the ClickHouse tables.
func (d *ClickHouseDB) CreateSchema(ctx context.Context) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS qr_checks (
			run_id          UUID,
			checked_at      DateTime64(3),
			source          LowCardinality(String),
			payment_id      String,
			payload_length  UInt16,
			changed         Bool,
			rendered        Bool,
			critical        UInt16,
			warnings        UInt16,
			codes           Array(LowCardinality(String))
		)
		ENGINE = MergeTree()
		PARTITION BY toYYYYMM(checked_at)
		ORDER BY (source, checked_at, run_id)`,

		`CREATE TABLE IF NOT EXISTS qr_findings (
			run_id          UUID,
			checked_at      DateTime64(3),
			source          LowCardinality(String),
			payment_id      String,
			severity        LowCardinality(String),
			code            LowCardinality(String),
			field_id        LowCardinality(String),
			subfield_id     LowCardinality(String),
			message         String
		)
		ENGINE = MergeTree()
		PARTITION BY toYYYYMM(checked_at)
		ORDER BY (code, checked_at, run_id)`,
	}

	for _, q := range queries {
		if err := d.conn.Exec(ctx, q); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
	}
	return nil
}

// InsertBatch stores checks and their findings.
func (d *ClickHouseDB) InsertBatch(ctx context.Context, checks []Check) error {
	if len(checks) == 0 {
		return nil
	}

	batch, err := d.conn.PrepareBatch(ctx, `
		INSERT INTO qr_checks (run_id, checked_at, source, payment_id, payload_length, changed, rendered, critical, warnings, codes)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}
	for _, c := range checks {
		var codes []string
		if s := c.Codes(); s != "" {
			codes = strings.Split(s, ",")
		}
		err := batch.Append(c.RunID, checkedAt(c), c.Source, c.PaymentID, uint16(len(c.Payload)),
			c.Changed, c.Rendered, uint16(c.Critical), uint16(c.Warnings), codes)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}
	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	n := 0
	for _, c := range checks {
		n += len(c.Findings)
	}
	if n == 0 {
		return nil
	}

	findings, err := d.conn.PrepareBatch(ctx, `
		INSERT INTO qr_findings (run_id, checked_at, source, payment_id, severity, code, field_id, subfield_id, message)
	`)
	if err != nil {
		return fmt.Errorf("prepare findings batch: %w", err)
	}
	for _, c := range checks {
		for _, f := range c.Findings {
			err := findings.Append(c.RunID, checkedAt(c), c.Source, c.PaymentID,
				string(f.Severity), string(f.Code), f.FieldID, f.SubfieldID, f.Message)
			if err != nil {
				return fmt.Errorf("append finding: %w", err)
			}
		}
	}
	if err := findings.Send(); err != nil {
		return fmt.Errorf("send findings batch: %w", err)
	}

	return nil
}

func checkedAt(c Check) time.Time {
	if c.CheckedAt.IsZero() {
		return time.Now()
	}
	return c.CheckedAt
}

// CodeCount is the number of findings with one code.
type CodeCount struct {
	Code     string `json:"code"`
	Severity string `json:"severity"`
	Count    uint64 `json:"count"`
}

// CountByCode aggregates findings recorded since the given time.
func (d *ClickHouseDB) CountByCode(ctx context.Context, since time.Time) ([]CodeCount, error) {
	rows, err := d.conn.Query(ctx, `
		SELECT code, any(severity), count()
		FROM qr_findings
		WHERE checked_at >= ?
		GROUP BY code
		ORDER BY count() DESC
	`, since)
	if err != nil {
		return nil, fmt.Errorf("query findings: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []CodeCount
	for rows.Next() {
		var c CodeCount
		if err := rows.Scan(&c.Code, &c.Severity, &c.Count); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
