package auditlog

import (
	"database/sql"
	"fmt"
	"time"

	"nathanbeddoewebdev/dnsm/internal/database"
)

// Repository defines the persistence interface for audit entries.
type Repository interface {
	Save(entry *AuditEntry) error
	List(limit int) ([]AuditEntry, error)
	ListByCommand(command string, limit int) ([]AuditEntry, error)
	ListByRecord(recordID string, limit int) ([]AuditEntry, error)
	Prune(olderThan time.Duration) (int64, error)
	CountOlderThan(olderThan time.Duration) (int64, error)
	Close() error
}

// SQLiteRepository implements Repository backed by a local SQLite database.
type SQLiteRepository struct {
	db *sql.DB
}

var _ Repository = (*SQLiteRepository)(nil)

// Open creates or opens the audit repository at the default path.
func Open() (*SQLiteRepository, error) {
	path, err := database.DefaultPath()
	if err != nil {
		return nil, fmt.Errorf("auditlog: %w", err)
	}
	return OpenAt(path)
}

// OpenAt creates or opens a SQLite database at the given path.
func OpenAt(path string) (*SQLiteRepository, error) {
	db, err := database.Open(path)
	if err != nil {
		return nil, fmt.Errorf("auditlog: %w", err)
	}

	r := &SQLiteRepository{db: db}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return r, nil
}

func (r *SQLiteRepository) migrate() error {
	const ddl = `
        CREATE TABLE IF NOT EXISTS audit_log (
            id          INTEGER PRIMARY KEY AUTOINCREMENT,
            timestamp   TEXT    NOT NULL,
            command     TEXT    NOT NULL,
            args        TEXT    NOT NULL DEFAULT '',
            provider    TEXT    NOT NULL DEFAULT '',
            owner       TEXT    NOT NULL DEFAULT '',
            record_type TEXT    NOT NULL DEFAULT '',
            record_id   TEXT    NOT NULL DEFAULT '',
            record_name TEXT    NOT NULL DEFAULT '',
            outcome     TEXT    NOT NULL DEFAULT '',
            failed_side TEXT    NOT NULL DEFAULT '',
            detail      TEXT    NOT NULL DEFAULT '',
            duration_ms INTEGER NOT NULL DEFAULT 0
        );
        CREATE INDEX IF NOT EXISTS idx_audit_log_timestamp ON audit_log(timestamp);
        CREATE INDEX IF NOT EXISTS idx_audit_log_command ON audit_log(command);
        CREATE INDEX IF NOT EXISTS idx_audit_log_record ON audit_log(record_id);
    `
	if _, err := r.db.Exec(ddl); err != nil {
		return fmt.Errorf("auditlog: migration failed: %w", err)
	}
	return nil
}

const entryColumns = `id, timestamp, command, args, provider, owner, record_type, record_id, record_name,
               outcome, failed_side, detail, duration_ms`

// Save inserts a new audit entry.
func (r *SQLiteRepository) Save(entry *AuditEntry) error {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}

	result, err := r.db.Exec(`
        INSERT INTO audit_log (timestamp, command, args, provider, owner, record_type, record_id, record_name, outcome, failed_side, detail, duration_ms)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		database.FormatTime(entry.Timestamp), entry.Command, entry.Args, entry.Provider, entry.Owner,
		entry.RecordType, entry.RecordID, entry.RecordName, entry.Outcome, entry.FailedSide, entry.Detail, entry.DurationMs,
	)
	if err != nil {
		return fmt.Errorf("auditlog: insert failed: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("auditlog: failed to get last insert ID: %w", err)
	}
	entry.ID = id
	return nil
}

// List returns the most recent n audit entries.
func (r *SQLiteRepository) List(limit int) ([]AuditEntry, error) {
	return r.query(`SELECT `+entryColumns+` FROM audit_log ORDER BY timestamp DESC, id DESC LIMIT ?`, limit)
}

// ListByCommand returns the most recent n audit entries for a command.
func (r *SQLiteRepository) ListByCommand(command string, limit int) ([]AuditEntry, error) {
	return r.query(`SELECT `+entryColumns+` FROM audit_log WHERE command = ? ORDER BY timestamp DESC, id DESC LIMIT ?`, command, limit)
}

// ListByRecord returns the most recent n audit entries for a record id.
func (r *SQLiteRepository) ListByRecord(recordID string, limit int) ([]AuditEntry, error) {
	return r.query(`SELECT `+entryColumns+` FROM audit_log WHERE record_id = ? ORDER BY timestamp DESC, id DESC LIMIT ?`, recordID, limit)
}

// Prune deletes entries older than the given duration.
func (r *SQLiteRepository) Prune(olderThan time.Duration) (int64, error) {
	cutoff := database.FormatTime(time.Now().Add(-olderThan))
	result, err := r.db.Exec(`DELETE FROM audit_log WHERE timestamp < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("auditlog: delete failed: %w", err)
	}
	return result.RowsAffected()
}

// CountOlderThan reports how many entries Prune would delete.
func (r *SQLiteRepository) CountOlderThan(olderThan time.Duration) (int64, error) {
	var n int64
	cutoff := database.FormatTime(time.Now().Add(-olderThan))
	if err := r.db.QueryRow(`SELECT COUNT(*) FROM audit_log WHERE timestamp < ?`, cutoff).Scan(&n); err != nil {
		return 0, fmt.Errorf("auditlog: count failed: %w", err)
	}
	return n, nil
}

// Close releases database resources.
func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

func (r *SQLiteRepository) query(query string, args ...any) ([]AuditEntry, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("auditlog: query failed: %w", err)
	}
	defer rows.Close()

	var entries []AuditEntry
	for rows.Next() {
		var entry AuditEntry
		var timestamp string
		err := rows.Scan(
			&entry.ID, &timestamp, &entry.Command, &entry.Args, &entry.Provider, &entry.Owner,
			&entry.RecordType, &entry.RecordID, &entry.RecordName,
			&entry.Outcome, &entry.FailedSide, &entry.Detail, &entry.DurationMs,
		)
		if err != nil {
			return nil, fmt.Errorf("auditlog: scan failed: %w", err)
		}
		entry.Timestamp = database.ParseTime(timestamp)
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}
