package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// Fixed width so that text order is time order.
const timeLayout = "2006-01-02T15:04:05.000Z07:00"

// SQLiteConfig holds the local history database settings.
type SQLiteConfig struct {
	Enabled bool
	Path    string
}

// HistoryDB wraps a SQLite database of past checks.
type HistoryDB struct {
	db *sql.DB
}

// OpenHistory opens or creates a SQLite database at the given path.
func OpenHistory(path string) (*HistoryDB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Enable WAL mode for better concurrent access.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable WAL: %w", err)
	}

	if err := createHistorySchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &HistoryDB{db: db}, nil
}

// Close closes the database connection.
func (d *HistoryDB) Close() error {
	return d.db.Close()
}

func createHistorySchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS checks (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		checked_at TEXT NOT NULL,
		source TEXT NOT NULL,
		payment_id TEXT,
		payload TEXT NOT NULL,
		corrected TEXT,
		changed INTEGER NOT NULL DEFAULT 0,
		declared_crc TEXT,
		computed_crc TEXT,
		rendered INTEGER NOT NULL DEFAULT 0,
		render_error TEXT,
		critical INTEGER NOT NULL DEFAULT 0,
		warnings INTEGER NOT NULL DEFAULT 0,
		codes TEXT,
		findings_json TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_checks_checked_at ON checks(checked_at);
	CREATE INDEX IF NOT EXISTS idx_checks_payment ON checks(payment_id);
	CREATE INDEX IF NOT EXISTS idx_checks_codes ON checks(codes);
	`
	_, err := db.Exec(schema)
	return err
}

// Insert stores a check and returns its row id.
func (d *HistoryDB) Insert(c Check) (int64, error) {
	findingsJSON, err := json.Marshal(c.Findings)
	if err != nil {
		return 0, fmt.Errorf("marshal findings: %w", err)
	}
	if c.CheckedAt.IsZero() {
		c.CheckedAt = time.Now()
	}

	result, err := d.db.Exec(`
		INSERT INTO checks (run_id, checked_at, source, payment_id, payload, corrected, changed,
			declared_crc, computed_crc, rendered, render_error, critical, warnings, codes, findings_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, c.RunID, c.CheckedAt.UTC().Format(timeLayout), c.Source, c.PaymentID, c.Payload, c.Corrected,
		boolInt(c.Changed), c.DeclaredCRC, c.ComputedCRC, boolInt(c.Rendered), c.RenderError,
		c.Critical, c.Warnings, c.Codes(), string(findingsJSON))
	if err != nil {
		return 0, fmt.Errorf("insert check: %w", err)
	}

	return result.LastInsertId()
}

// QueryParams contains filtering options for querying checks.
type QueryParams struct {
	ID           int64  // Filter by row id.
	RunID        string // Filter by run id (exact match).
	PaymentID    string // Filter by payment id (exact match).
	Source       string // Filter by source (exact match).
	Code         string // Filter by finding code (LIKE match on the code list).
	OnlyCritical bool   // Only checks with critical findings.
	OnlyChanged  bool   // Only checks whose CRC was repaired.
	Limit        int    // Max results (default 100).
	Offset       int    // Pagination offset.
	OldestFirst  bool   // Sort ascending by check time.
}

// Query retrieves checks matching the given parameters, newest first.
func (d *HistoryDB) Query(p QueryParams) ([]Check, error) {
	var conditions []string
	var args []any

	if p.ID != 0 {
		conditions = append(conditions, "id = ?")
		args = append(args, p.ID)
	}
	if p.RunID != "" {
		conditions = append(conditions, "run_id = ?")
		args = append(args, p.RunID)
	}
	if p.PaymentID != "" {
		conditions = append(conditions, "payment_id = ?")
		args = append(args, p.PaymentID)
	}
	if p.Source != "" {
		conditions = append(conditions, "source = ?")
		args = append(args, p.Source)
	}
	if p.Code != "" {
		conditions = append(conditions, "codes LIKE ?")
		args = append(args, "%"+p.Code+"%")
	}
	if p.OnlyCritical {
		conditions = append(conditions, "critical > 0")
	}
	if p.OnlyChanged {
		conditions = append(conditions, "changed = 1")
	}

	query := `SELECT id, run_id, checked_at, source, payment_id, payload, corrected, changed,
			declared_crc, computed_crc, rendered, render_error, critical, warnings, findings_json
			FROM checks`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}

	direction := "DESC"
	if p.OldestFirst {
		direction = "ASC"
	}
	query += fmt.Sprintf(" ORDER BY checked_at %s, id %s", direction, direction)

	limit := 100
	if p.Limit > 0 {
		limit = p.Limit
	}
	query += fmt.Sprintf(" LIMIT %d OFFSET %d", limit, p.Offset)

	rows, err := d.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query checks: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var checks []Check
	for rows.Next() {
		var c Check
		var ts, findingsJSON string
		var paymentID, corrected, declared, computed, renderErr sql.NullString
		var changed, rendered int

		err := rows.Scan(&c.ID, &c.RunID, &ts, &c.Source, &paymentID, &c.Payload, &corrected, &changed,
			&declared, &computed, &rendered, &renderErr, &c.Critical, &c.Warnings, &findingsJSON)
		if err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}

		c.CheckedAt, _ = time.Parse(timeLayout, ts)
		c.PaymentID = paymentID.String
		c.Corrected = corrected.String
		c.DeclaredCRC = declared.String
		c.ComputedCRC = computed.String
		c.RenderError = renderErr.String
		c.Changed = changed == 1
		c.Rendered = rendered == 1
		if err := json.Unmarshal([]byte(findingsJSON), &c.Findings); err != nil {
			return nil, fmt.Errorf("unmarshal findings of check %d: %w", c.ID, err)
		}

		checks = append(checks, c)
	}

	return checks, rows.Err()
}

// Stats returns aggregate statistics about stored checks.
type Stats struct {
	TotalChecks  int            `json:"total_checks"`
	Repaired     int            `json:"repaired"`
	WithCritical int            `json:"with_critical"`
	BySource     map[string]int `json:"by_source"`
	ByCode       map[string]int `json:"by_code"`
}

// GetStats returns statistics about stored checks.
func (d *HistoryDB) GetStats() (*Stats, error) {
	stats := &Stats{
		BySource: make(map[string]int),
		ByCode:   make(map[string]int),
	}

	err := d.db.QueryRow(`
		SELECT COUNT(*), COALESCE(SUM(changed), 0), COALESCE(SUM(CASE WHEN critical > 0 THEN 1 ELSE 0 END), 0)
		FROM checks
	`).Scan(&stats.TotalChecks, &stats.Repaired, &stats.WithCritical)
	if err != nil {
		return nil, err
	}

	rows, err := d.db.Query("SELECT source, COUNT(*) FROM checks GROUP BY source")
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var source string
		var count int
		if err := rows.Scan(&source, &count); err != nil {
			_ = rows.Close()
			return nil, err
		}
		stats.BySource[source] = count
	}
	_ = rows.Close()

	// Codes are stored comma separated; count them in Go.
	rows, err = d.db.Query("SELECT codes FROM checks WHERE codes != ''")
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		var codes string
		if err := rows.Scan(&codes); err != nil {
			return nil, err
		}
		for _, code := range strings.Split(codes, ",") {
			stats.ByCode[code]++
		}
	}

	return stats, rows.Err()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
