// Package db provides the SQLite report archive: derived trace reports and
// compliance snapshots, not raw metrics.
package db

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"sloscope/internal/report"
	"sloscope/internal/slo"
)

// DB wraps the SQLite database connection
type DB struct {
	*sql.DB
	path string
}

// New creates a new database connection
func New(dbPath string) (*DB, error) {
	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create db directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{
		DB:   db,
		path: dbPath,
	}, nil
}

// Migrate runs database migrations
func (db *DB) Migrate() error {
	migrations := []string{
		// Archived trace analyses
		`CREATE TABLE IF NOT EXISTS trace_reports (
			id TEXT PRIMARY KEY,
			trace_id TEXT NOT NULL,
			span_count INTEGER NOT NULL,
			total_duration_ms REAL NOT NULL,
			report_data TEXT NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		// Compliance evaluations over time
		`CREATE TABLE IF NOT EXISTS compliance_snapshots (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			slo TEXT NOT NULL,
			window TEXT NOT NULL,
			compliance_ratio REAL NOT NULL,
			budget_remaining REAL NOT NULL,
			band TEXT NOT NULL,
			evaluated_at DATETIME NOT NULL
		)`,
		// Indexes
		`CREATE INDEX IF NOT EXISTS idx_trace_reports_trace ON trace_reports(trace_id)`,
		`CREATE INDEX IF NOT EXISTS idx_snapshots_slo ON compliance_snapshots(slo, window)`,
		`CREATE INDEX IF NOT EXISTS idx_snapshots_evaluated ON compliance_snapshots(evaluated_at)`,
	}

	for _, migration := range migrations {
		if _, err := db.Exec(migration); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}

	return nil
}

// SaveTraceReport archives one trace report as JSON.
func (db *DB) SaveTraceReport(r *report.TraceReport) error {
	payload, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}

	_, err = db.Exec(
		`INSERT INTO trace_reports (id, trace_id, span_count, total_duration_ms, report_data) VALUES (?, ?, ?, ?, ?)`,
		r.ID,
		r.Analysis.TraceID,
		r.Analysis.SpanCount,
		float64(r.Analysis.TotalDuration)/float64(time.Millisecond),
		string(payload),
	)
	if err != nil {
		return fmt.Errorf("failed to save trace report: %w", err)
	}
	return nil
}

// GetTraceReport loads an archived report by its ID.
func (db *DB) GetTraceReport(id string) (*report.TraceReport, error) {
	var payload string
	err := db.QueryRow(`SELECT report_data FROM trace_reports WHERE id = ?`, id).Scan(&payload)
	if err != nil {
		return nil, fmt.Errorf("failed to load trace report: %w", err)
	}

	var r report.TraceReport
	if err := json.Unmarshal([]byte(payload), &r); err != nil {
		return nil, fmt.Errorf("failed to unmarshal report: %w", err)
	}
	return &r, nil
}

// SaveComplianceResult records one evaluation outcome.
func (db *DB) SaveComplianceResult(r *slo.ComplianceResult, evaluatedAt time.Time) error {
	_, err := db.Exec(
		`INSERT INTO compliance_snapshots (slo, window, compliance_ratio, budget_remaining, band, evaluated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		r.SLO, r.Window, r.ComplianceRatio, r.BudgetRemaining, string(r.Band), evaluatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save compliance snapshot: %w", err)
	}
	return nil
}

// RecentSnapshots returns the most recent compliance snapshots for an
// objective and window, newest first.
func (db *DB) RecentSnapshots(sloName, window string, limit int) ([]slo.ComplianceResult, error) {
	rows, err := db.Query(
		`SELECT slo, window, compliance_ratio, budget_remaining, band
		 FROM compliance_snapshots WHERE slo = ? AND window = ?
		 ORDER BY evaluated_at DESC LIMIT ?`,
		sloName, window, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshots: %w", err)
	}
	defer rows.Close()

	var results []slo.ComplianceResult
	for rows.Next() {
		var r slo.ComplianceResult
		var band string
		if err := rows.Scan(&r.SLO, &r.Window, &r.ComplianceRatio, &r.BudgetRemaining, &band); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}
		r.Band = slo.HealthBand(band)
		results = append(results, r)
	}
	return results, rows.Err()
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.DB.Close()
}
