// Package state provides SQLite-backed durable state: the spend ledger the
// budget guard reads and a history of dispatch outcomes.
package state

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// DB wraps an SQLite database with engine-specific operations.
type DB struct {
	conn *sql.DB
	path string
	mu   sync.RWMutex
}

// DefaultDBPath returns the database path under the XDG data directory.
func DefaultDBPath() string {
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		home, _ := os.UserHomeDir()
		dataDir = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataDir, "crew", "crew.db")
}

// Open opens (creating if needed) an SQLite database at the given path with
// WAL mode enabled.
func Open(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}
	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	db := &DB{conn: conn, path: path}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, err
	}
	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.conn.Close()
}

// Path returns the path to the database file.
func (db *DB) Path() string {
	return db.path
}

func (db *DB) migrate() error {
	db.mu.Lock()
	defer db.mu.Unlock()

	stmts := []string{
		`CREATE TABLE IF NOT EXISTS spend (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			task_id TEXT NOT NULL,
			amount_usd REAL NOT NULL,
			recorded_at DATETIME NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_spend_recorded_at ON spend(recorded_at)`,
		`CREATE TABLE IF NOT EXISTS dispatches (
			task_id TEXT PRIMARY KEY,
			status TEXT NOT NULL,
			reason TEXT,
			completed_at DATETIME NOT NULL
		)`,
	}
	for _, stmt := range stmts {
		if _, err := db.conn.Exec(stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// RecordSpend adds an amount to the ledger, stamped with the current time.
func (db *DB) RecordSpend(taskID string, amountUSD float64) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	_, err := db.conn.Exec(
		`INSERT INTO spend (task_id, amount_usd, recorded_at) VALUES (?, ?, ?)`,
		taskID, amountUSD, time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("record spend: %w", err)
	}
	return nil
}

// MonthToDate sums all spend recorded in the current calendar month (UTC).
func (db *DB) MonthToDate() (float64, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	now := time.Now().UTC()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)

	var total sql.NullFloat64
	err := db.conn.QueryRow(
		`SELECT SUM(amount_usd) FROM spend WHERE recorded_at >= ?`,
		monthStart.Format(time.RFC3339),
	).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("month-to-date spend: %w", err)
	}
	return total.Float64, nil
}

// SpendForTask sums all spend recorded against one task.
func (db *DB) SpendForTask(taskID string) (float64, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	var total sql.NullFloat64
	err := db.conn.QueryRow(
		`SELECT SUM(amount_usd) FROM spend WHERE task_id = ?`, taskID,
	).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("task spend: %w", err)
	}
	return total.Float64, nil
}

// DispatchRecord is one row of dispatch history.
type DispatchRecord struct {
	TaskID      string
	Status      string
	Reason      string
	CompletedAt time.Time
}

// RecordDispatch upserts a task's terminal outcome.
func (db *DB) RecordDispatch(rec DispatchRecord) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	_, err := db.conn.Exec(
		`INSERT INTO dispatches (task_id, status, reason, completed_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(task_id) DO UPDATE SET
			status = excluded.status,
			reason = excluded.reason,
			completed_at = excluded.completed_at`,
		rec.TaskID, rec.Status, rec.Reason, rec.CompletedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("record dispatch: %w", err)
	}
	return nil
}

// RecentDispatches returns up to limit dispatch records, newest first.
func (db *DB) RecentDispatches(limit int) ([]DispatchRecord, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	if limit <= 0 {
		limit = 20
	}
	rows, err := db.conn.Query(
		`SELECT task_id, status, reason, completed_at
		 FROM dispatches ORDER BY completed_at DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("recent dispatches: %w", err)
	}
	defer rows.Close()

	var out []DispatchRecord
	for rows.Next() {
		var rec DispatchRecord
		var completedAt string
		if err := rows.Scan(&rec.TaskID, &rec.Status, &rec.Reason, &completedAt); err != nil {
			return nil, fmt.Errorf("scan dispatch row: %w", err)
		}
		if ts, err := time.Parse(time.RFC3339, completedAt); err == nil {
			rec.CompletedAt = ts
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
