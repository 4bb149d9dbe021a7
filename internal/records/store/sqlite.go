// Package store persists record metadata for the reconciler.
//
// The default backend is the local SQLite database shared with the audit
// log (~/.config/dnsm/dnsm.db, or the platform-equivalent path returned by
// os.UserConfigDir). A PostgreSQL backend is available for deployments
// that share one record set between hosts.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"nathanbeddoewebdev/dnsm/internal/database"
	"nathanbeddoewebdev/dnsm/internal/records/domain"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// Compile-time check that SQLiteRepository satisfies domain.RecordStore.
var _ domain.RecordStore = (*SQLiteRepository)(nil)

const recordColumns = `id, owner, type, name, value, description, course, ports,
	status, created_at, updated_at, expires_at`

// SQLiteRepository implements domain.RecordStore backed by SQLite.
type SQLiteRepository struct {
	db  *sql.DB
	now func() time.Time
}

// Option configures a repository.
type Option func(*options)

type options struct {
	now func() time.Time
}

// WithClock sets the clock used for created_at and updated_at.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

func applyOptions(opts []Option) options {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// OpenSQLite creates or opens the record repository at the default path.
func OpenSQLite(opts ...Option) (*SQLiteRepository, error) {
	path, err := database.DefaultPath()
	if err != nil {
		return nil, fmt.Errorf("records: %w", err)
	}
	return OpenSQLiteAt(path, opts...)
}

// OpenSQLiteAt creates or opens a SQLite database at the given path.
func OpenSQLiteAt(path string, opts ...Option) (*SQLiteRepository, error) {
	db, err := database.Open(path)
	if err != nil {
		return nil, fmt.Errorf("records: %w", err)
	}

	o := applyOptions(opts)
	r := &SQLiteRepository{db: db, now: o.now}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return r, nil
}

func (r *SQLiteRepository) migrate() error {
	const ddl = `
		CREATE TABLE IF NOT EXISTS records (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			owner       TEXT    NOT NULL,
			type        TEXT    NOT NULL,
			name        TEXT    NOT NULL,
			value       TEXT    NOT NULL,
			description TEXT    NOT NULL DEFAULT '',
			course      TEXT    NOT NULL DEFAULT '',
			ports       TEXT    NOT NULL DEFAULT '',
			status      TEXT    NOT NULL DEFAULT 'pending',
			created_at  TEXT    NOT NULL,
			updated_at  TEXT    NOT NULL,
			expires_at  TEXT    NOT NULL
		);
		CREATE UNIQUE INDEX IF NOT EXISTS idx_records_triple ON records(name, type, value);
		CREATE INDEX IF NOT EXISTS idx_records_owner ON records(owner);
		CREATE INDEX IF NOT EXISTS idx_records_expires_at ON records(expires_at);
	`
	if _, err := r.db.Exec(ddl); err != nil {
		return fmt.Errorf("records: migration failed: %w", err)
	}
	return nil
}

// Count returns how many records match the (name, type, value) filter.
func (r *SQLiteRepository) Count(ctx context.Context, f domain.Filter) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM records WHERE name = ? AND type = ? AND value = ?`,
		f.Name, string(f.Type), f.Value,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("records: count failed: %w", err)
	}
	return n, nil
}

// Insert writes a new record. created_at and updated_at are identical.
func (r *SQLiteRepository) Insert(ctx context.Context, f domain.Fields) (*domain.PersistedRecord, error) {
	now := database.FormatTime(r.now())
	result, err := r.db.ExecContext(ctx, `
		INSERT INTO records (owner, type, name, value, description, course, ports, status, created_at, updated_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		f.Owner, string(f.Type), f.Name, f.Value,
		deref(f.Description), deref(f.Course), deref(f.Ports),
		string(f.Status), now, now, database.FormatTime(f.ExpiresAt),
	)
	if err != nil {
		return nil, mapSQLiteError("insert", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("records: failed to get last insert ID: %w", err)
	}
	return r.FindByID(ctx, id)
}

// Update rewrites the record with the given id. Nil metadata fields keep
// their stored value and the owner is never changed.
func (r *SQLiteRepository) Update(ctx context.Context, id int64, f domain.Fields) (*domain.PersistedRecord, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE records SET type=?, name=?, value=?,
		       description=COALESCE(?, description),
		       course=COALESCE(?, course),
		       ports=COALESCE(?, ports),
		       status=?, updated_at=?, expires_at=?
		WHERE id=?`,
		string(f.Type), f.Name, f.Value,
		nullable(f.Description), nullable(f.Course), nullable(f.Ports),
		string(f.Status), database.FormatTime(r.now()), database.FormatTime(f.ExpiresAt), id,
	)
	if err != nil {
		return nil, mapSQLiteError("update", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return nil, fmt.Errorf("records: record %d: %w", id, domain.ErrNotFound)
	}
	return r.FindByID(ctx, id)
}

// Delete removes the record with the given id and returns its last state.
func (r *SQLiteRepository) Delete(ctx context.Context, id int64) (*domain.PersistedRecord, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("records: begin failed: %w", err)
	}
	defer tx.Rollback()

	rec, err := scanRow(tx.QueryRowContext(ctx, `SELECT `+recordColumns+` FROM records WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("records: record %d: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("records: query failed: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM records WHERE id = ?`, id); err != nil {
		return nil, fmt.Errorf("records: delete failed: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("records: commit failed: %w", err)
	}
	return rec, nil
}

// FindByID returns the record with the given id, or nil when absent.
func (r *SQLiteRepository) FindByID(ctx context.Context, id int64) (*domain.PersistedRecord, error) {
	rec, err := scanRow(r.db.QueryRowContext(ctx, `SELECT `+recordColumns+` FROM records WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("records: query failed: %w", err)
	}
	return rec, nil
}

// List returns records matching opts, soonest expiry first.
func (r *SQLiteRepository) List(ctx context.Context, opts domain.ListOptions) ([]domain.PersistedRecord, error) {
	var (
		where []string
		args  []any
	)
	if opts.Owner != "" {
		where = append(where, "owner = ?")
		args = append(args, opts.Owner)
	}
	if opts.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(opts.Status))
	}
	if !opts.ExpiresBefore.IsZero() {
		where = append(where, "expires_at < ?")
		args = append(args, database.FormatTime(opts.ExpiresBefore))
	}

	query := `SELECT ` + recordColumns + ` FROM records`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY expires_at ASC, id ASC"
	if opts.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, opts.Limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("records: query failed: %w", err)
	}
	defer rows.Close()
	return scanRows(rows)
}

// SetStatus records the propagation state of a record.
func (r *SQLiteRepository) SetStatus(ctx context.Context, id int64, status domain.Status) error {
	if !status.Valid() {
		return fmt.Errorf("records: %w: unknown status %q", domain.ErrValidation, status)
	}
	result, err := r.db.ExecContext(ctx,
		`UPDATE records SET status = ?, updated_at = ? WHERE id = ?`,
		string(status), database.FormatTime(r.now()), id,
	)
	if err != nil {
		return fmt.Errorf("records: update failed: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return fmt.Errorf("records: record %d: %w", id, domain.ErrNotFound)
	}
	return nil
}

// Close releases database resources.
func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

func mapSQLiteError(op string, err error) error {
	var se *sqlite.Error
	if errors.As(err, &se) && isUniqueViolation(se) {
		return fmt.Errorf("records: %s: record with the same name, type and value exists: %w", op, domain.ErrConflict)
	}
	return fmt.Errorf("records: %s failed: %w", op, err)
}

func isUniqueViolation(se *sqlite.Error) bool {
	if se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE {
		return true
	}
	return se.Code()&0xff == sqlite3.SQLITE_CONSTRAINT && strings.Contains(se.Error(), "UNIQUE")
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRow(row rowScanner) (*domain.PersistedRecord, error) {
	var rec domain.PersistedRecord
	var typ, status string
	var createdStr, updatedStr, expiresStr string
	err := row.Scan(
		&rec.ID, &rec.Owner, &typ, &rec.Name, &rec.Value,
		&rec.Description, &rec.Course, &rec.Ports,
		&status, &createdStr, &updatedStr, &expiresStr,
	)
	if err != nil {
		return nil, err
	}
	rec.Type = domain.RecordType(typ)
	rec.Status = domain.Status(status)
	rec.CreatedAt = database.ParseTime(createdStr)
	rec.UpdatedAt = database.ParseTime(updatedStr)
	rec.ExpiresAt = database.ParseTime(expiresStr)
	return &rec, nil
}

func scanRows(rows *sql.Rows) ([]domain.PersistedRecord, error) {
	var records []domain.PersistedRecord
	for rows.Next() {
		rec, err := scanRow(rows)
		if err != nil {
			return nil, fmt.Errorf("records: scan failed: %w", err)
		}
		records = append(records, *rec)
	}
	return records, rows.Err()
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func nullable(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}
