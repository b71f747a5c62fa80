package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresConfig holds PostgreSQL connection settings.
type PostgresConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Database string
	User     string
	Password string
}

// PostgresDB wraps a PostgreSQL pool on the payments database. It reads
// payments and writes only to qr_repairs.
type PostgresDB struct {
	pool *pgxpool.Pool
}

// OpenPostgres opens a connection pool to PostgreSQL.
func OpenPostgres(ctx context.Context, cfg PostgresConfig) (*PostgresDB, error) {
	connStr := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Database)

	poolCfg, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return nil, fmt.Errorf("parse postgres config: %w", err)
	}

	poolCfg.MaxConns = 10
	poolCfg.MinConns = 1
	poolCfg.MaxConnLifetime = time.Hour
	poolCfg.MaxConnIdleTime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	// Test the connection.
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return &PostgresDB{pool: pool}, nil
}

// Close closes the PostgreSQL connection pool.
func (d *PostgresDB) Close() {
	d.pool.Close()
}

// CreateSchema creates the repair audit table. The payments table belongs to
// the payments service and is never created or altered here.
func (d *PostgresDB) CreateSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS qr_repairs (
		id                  BIGSERIAL PRIMARY KEY,
		payment_id          TEXT NOT NULL,
		run_id              UUID NOT NULL,
		source              TEXT NOT NULL,
		original_payload    TEXT NOT NULL,
		corrected_payload   TEXT,
		changed             BOOLEAN NOT NULL DEFAULT FALSE,
		declared_crc        TEXT,
		computed_crc        TEXT,
		rendered            BOOLEAN NOT NULL DEFAULT FALSE,
		render_error        TEXT,
		critical            INTEGER NOT NULL DEFAULT 0,
		warnings            INTEGER NOT NULL DEFAULT 0,
		findings            JSONB,
		checked_at          TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_qr_repairs_payment ON qr_repairs(payment_id, checked_at DESC);
	CREATE INDEX IF NOT EXISTS idx_qr_repairs_run ON qr_repairs(run_id);
	`

	if _, err := d.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Payment is a payment record carrying a QR in its gateway metadata.
type Payment struct {
	ID        string    `json:"id"`
	SaleID    string    `json:"sale_id,omitempty"`
	Amount    string    `json:"amount"`
	Status    string    `json:"status"`
	Gateway   string    `json:"gateway,omitempty"`
	Reference string    `json:"reference,omitempty"` // gateway_metadata.reference
	Payload   string    `json:"qr_payload"`          // gateway_metadata.qr_payload
	QRCode    string    `json:"qr_code,omitempty"`   // gateway_metadata.qr_code, usually a PNG data URL.
	ExpiresAt string    `json:"expires_at,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

const paymentColumns = `
	id::text,
	COALESCE(sale_id::text, ''),
	amount::text,
	status,
	COALESCE(gateway, ''),
	COALESCE(gateway_metadata->>'reference', ''),
	COALESCE(gateway_metadata->>'qr_payload', ''),
	COALESCE(gateway_metadata->>'qr_code', ''),
	COALESCE(gateway_metadata->>'expires_at', ''),
	created_at`

func scanPayment(row pgx.Row) (Payment, error) {
	var p Payment
	err := row.Scan(&p.ID, &p.SaleID, &p.Amount, &p.Status, &p.Gateway,
		&p.Reference, &p.Payload, &p.QRCode, &p.ExpiresAt, &p.CreatedAt)
	return p, err
}

// PendingQRPayments returns pending payments that carry a QR payload, newest first.
func (d *PostgresDB) PendingQRPayments(ctx context.Context, limit int) ([]Payment, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := d.pool.Query(ctx, `
		SELECT `+paymentColumns+`
		FROM payments
		WHERE status = 'pending'
		  AND gateway_metadata ? 'qr_payload'
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query pending payments: %w", err)
	}
	defer rows.Close()

	var payments []Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan payment: %w", err)
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

// GetPayment retrieves a payment by id. It returns nil if there is none.
func (d *PostgresDB) GetPayment(ctx context.Context, id string) (*Payment, error) {
	p, err := scanPayment(d.pool.QueryRow(ctx, `SELECT `+paymentColumns+` FROM payments WHERE id::text = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// RecordRepair appends a check to the audit table.
func (d *PostgresDB) RecordRepair(ctx context.Context, c Check) error {
	findingsJSON, err := json.Marshal(c.Findings)
	if err != nil {
		return fmt.Errorf("marshal findings: %w", err)
	}
	if c.CheckedAt.IsZero() {
		c.CheckedAt = time.Now()
	}

	_, err = d.pool.Exec(ctx, `
		INSERT INTO qr_repairs (payment_id, run_id, source, original_payload, corrected_payload, changed,
			declared_crc, computed_crc, rendered, render_error, critical, warnings, findings, checked_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`, c.PaymentID, c.RunID, c.Source, c.Payload, c.Corrected, c.Changed,
		c.DeclaredCRC, c.ComputedCRC, c.Rendered, c.RenderError, c.Critical, c.Warnings,
		findingsJSON, c.CheckedAt)
	if err != nil {
		return fmt.Errorf("insert repair: %w", err)
	}
	return nil
}

// Repairs returns the audit rows of a payment, newest first.
func (d *PostgresDB) Repairs(ctx context.Context, paymentID string, limit int) ([]Check, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := d.pool.Query(ctx, `
		SELECT id, run_id::text, source, payment_id, original_payload, COALESCE(corrected_payload, ''), changed,
			COALESCE(declared_crc, ''), COALESCE(computed_crc, ''), rendered, COALESCE(render_error, ''),
			critical, warnings, findings, checked_at
		FROM qr_repairs
		WHERE payment_id = $1
		ORDER BY checked_at DESC, id DESC
		LIMIT $2
	`, paymentID, limit)
	if err != nil {
		return nil, fmt.Errorf("query repairs: %w", err)
	}
	defer rows.Close()

	var checks []Check
	for rows.Next() {
		var c Check
		var findingsJSON []byte
		err := rows.Scan(&c.ID, &c.RunID, &c.Source, &c.PaymentID, &c.Payload, &c.Corrected, &c.Changed,
			&c.DeclaredCRC, &c.ComputedCRC, &c.Rendered, &c.RenderError,
			&c.Critical, &c.Warnings, &findingsJSON, &c.CheckedAt)
		if err != nil {
			return nil, fmt.Errorf("scan repair: %w", err)
		}
		if len(findingsJSON) > 0 {
			if err := json.Unmarshal(findingsJSON, &c.Findings); err != nil {
				return nil, fmt.Errorf("unmarshal findings: %w", err)
			}
		}
		checks = append(checks, c)
	}
	return checks, rows.Err()
}
