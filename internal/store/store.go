// Package store provides SQLite-backed persistence for the report archive
// and the audit trail. Live task state stays in memory; only finished
// reports and audit entries are written here.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/martynov-dm/crypto-agent/internal/models"
)

// Store provides access to the crypto-agent SQLite database.
type Store struct {
	db *sql.DB
}

// New creates a new Store and runs migrations.
func New(dbPath string) (*Store, error) {
	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	// Open with WAL mode for better concurrency
	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	// SQLite only supports one writer at a time
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the database connection is alive.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// migrate runs idempotent schema migrations.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS reports (
		id TEXT PRIMARY KEY,
		kind TEXT NOT NULL,
		title TEXT NOT NULL,
		content TEXT NOT NULL,
		summary TEXT,
		recommendation TEXT,
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS audit (
		id TEXT PRIMARY KEY,
		action TEXT NOT NULL,
		inputs_hash TEXT NOT NULL,
		outcome TEXT NOT NULL,
		task_id TEXT,
		details TEXT,
		timestamp DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_reports_kind ON reports(kind);
	CREATE INDEX IF NOT EXISTS idx_reports_created_at ON reports(created_at);
	CREATE INDEX IF NOT EXISTS idx_audit_task_id ON audit(task_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// --- Report Operations ---

// SaveReport inserts a finished report. A missing id or timestamp is filled
// in.
func (s *Store) SaveReport(report models.Report) error {
	if report.ID == "" {
		report.ID = uuid.New().String()
	}
	if report.CreatedAt.IsZero() {
		report.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.Exec(
		`INSERT INTO reports (id, kind, title, content, summary, recommendation, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		report.ID, report.Kind, report.Title, report.Content, report.Summary, report.Recommendation, report.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert report: %w", err)
	}
	return nil
}

// GetReport retrieves a report by ID. Returns nil when not found.
func (s *Store) GetReport(id string) (*models.Report, error) {
	report := &models.Report{}
	var summary, recommendation sql.NullString

	err := s.db.QueryRow(
		`SELECT id, kind, title, content, summary, recommendation, created_at FROM reports WHERE id = ?`,
		id,
	).Scan(&report.ID, &report.Kind, &report.Title, &report.Content, &summary, &recommendation, &report.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query report: %w", err)
	}
	if summary.Valid {
		report.Summary = summary.String
	}
	if recommendation.Valid {
		report.Recommendation = recommendation.String
	}
	return report, nil
}

// ListReports returns reports newest first, optionally filtered by kind.
func (s *Store) ListReports(kind models.ReportKind, limit int) ([]models.Report, error) {
	query := `SELECT id, kind, title, content, summary, recommendation, created_at FROM reports`
	var args []interface{}

	if kind != "" {
		query += ` WHERE kind = ?`
		args = append(args, kind)
	}
	query += ` ORDER BY created_at DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query reports: %w", err)
	}
	defer rows.Close()

	var reports []models.Report
	for rows.Next() {
		var report models.Report
		var summary, recommendation sql.NullString
		if err := rows.Scan(&report.ID, &report.Kind, &report.Title, &report.Content, &summary, &recommendation, &report.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan report: %w", err)
		}
		if summary.Valid {
			report.Summary = summary.String
		}
		if recommendation.Valid {
			report.Recommendation = recommendation.String
		}
		reports = append(reports, report)
	}
	return reports, rows.Err()
}

// --- Audit Operations ---

// WriteAudit writes an audit entry.
func (s *Store) WriteAudit(action, inputsHash, outcome, taskID, details string) (*models.AuditEntry, error) {
	now := time.Now().UTC()
	entry := &models.AuditEntry{
		ID:         uuid.New().String(),
		Action:     action,
		InputsHash: inputsHash,
		Outcome:    outcome,
		TaskID:     taskID,
		Details:    details,
		Timestamp:  now,
	}

	_, err := s.db.Exec(
		`INSERT INTO audit (id, action, inputs_hash, outcome, task_id, details, timestamp) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.Action, entry.InputsHash, entry.Outcome, entry.TaskID, entry.Details, entry.Timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("insert audit entry: %w", err)
	}
	return entry, nil
}

// ListAudit returns audit entries newest first, optionally filtered by task.
func (s *Store) ListAudit(taskID string, limit int) ([]models.AuditEntry, error) {
	query := `SELECT id, action, inputs_hash, outcome, task_id, details, timestamp FROM audit`
	var args []interface{}

	if taskID != "" {
		query += ` WHERE task_id = ?`
		args = append(args, taskID)
	}
	query += ` ORDER BY timestamp DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query audit: %w", err)
	}
	defer rows.Close()

	var entries []models.AuditEntry
	for rows.Next() {
		var entry models.AuditEntry
		var task, details sql.NullString
		if err := rows.Scan(&entry.ID, &entry.Action, &entry.InputsHash, &entry.Outcome, &task, &details, &entry.Timestamp); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		if task.Valid {
			entry.TaskID = task.String
		}
		if details.Valid {
			entry.Details = details.String
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}
