package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"nathanbeddoewebdev/dnsm/internal/records/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Compile-time check that PostgresRepository satisfies domain.RecordStore.
var _ domain.RecordStore = (*PostgresRepository)(nil)

const (
	// pgUniqueViolation is the SQLSTATE for unique_violation.
	pgUniqueViolation = "23505"

	// sweepLockKey names the advisory lock held while sweeping.
	sweepLockKey int64 = 0x646e736d
)

// PostgresRepository implements domain.RecordStore backed by PostgreSQL.
type PostgresRepository struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

// OpenPostgres connects to dsn and ensures the schema exists.
func OpenPostgres(ctx context.Context, dsn string, opts ...Option) (*PostgresRepository, error) {
	if dsn == "" {
		return nil, fmt.Errorf("records: postgres DSN is required (run 'dnsm config set store-dsn <dsn>')")
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("records: failed to connect: %w", err)
	}

	o := applyOptions(opts)
	r := &PostgresRepository{pool: pool, now: o.now}
	if err := r.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return r, nil
}

func (r *PostgresRepository) migrate(ctx context.Context) error {
	const ddl = `
		CREATE TABLE IF NOT EXISTS records (
			id          BIGSERIAL   PRIMARY KEY,
			owner       TEXT        NOT NULL,
			type        TEXT        NOT NULL,
			name        TEXT        NOT NULL,
			value       TEXT        NOT NULL,
			description TEXT        NOT NULL DEFAULT '',
			course      TEXT        NOT NULL DEFAULT '',
			ports       TEXT        NOT NULL DEFAULT '',
			status      TEXT        NOT NULL DEFAULT 'pending',
			created_at  TIMESTAMPTZ NOT NULL,
			updated_at  TIMESTAMPTZ NOT NULL,
			expires_at  TIMESTAMPTZ NOT NULL
		);
		CREATE UNIQUE INDEX IF NOT EXISTS idx_records_triple ON records(name, type, value);
		CREATE INDEX IF NOT EXISTS idx_records_owner ON records(owner);
		CREATE INDEX IF NOT EXISTS idx_records_expires_at ON records(expires_at);
	`
	if _, err := r.pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("records: migration failed: %w", err)
	}
	return nil
}

// Count returns how many records match the (name, type, value) filter.
func (r *PostgresRepository) Count(ctx context.Context, f domain.Filter) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM records WHERE name = $1 AND type = $2 AND value = $3`,
		f.Name, string(f.Type), f.Value,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("records: count failed: %w", err)
	}
	return n, nil
}

// Insert writes a new record. created_at and updated_at are identical.
func (r *PostgresRepository) Insert(ctx context.Context, f domain.Fields) (*domain.PersistedRecord, error) {
	now := r.now().UTC()
	row := r.pool.QueryRow(ctx, `
		INSERT INTO records (owner, type, name, value, description, course, ports, status, created_at, updated_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9, $10)
		RETURNING `+recordColumns,
		f.Owner, string(f.Type), f.Name, f.Value,
		deref(f.Description), deref(f.Course), deref(f.Ports),
		string(f.Status), now, f.ExpiresAt.UTC(),
	)
	rec, err := scanPgRow(row)
	if err != nil {
		return nil, mapPgError("insert", err)
	}
	return rec, nil
}

// Update rewrites the record with the given id. Nil metadata fields keep
// their stored value and the owner is never changed.
func (r *PostgresRepository) Update(ctx context.Context, id int64, f domain.Fields) (*domain.PersistedRecord, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE records SET type=$1, name=$2, value=$3,
		       description=COALESCE($4, description),
		       course=COALESCE($5, course),
		       ports=COALESCE($6, ports),
		       status=$7, updated_at=$8, expires_at=$9
		WHERE id=$10
		RETURNING `+recordColumns,
		string(f.Type), f.Name, f.Value,
		f.Description, f.Course, f.Ports,
		string(f.Status), r.now().UTC(), f.ExpiresAt.UTC(), id,
	)
	rec, err := scanPgRow(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("records: record %d: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, mapPgError("update", err)
	}
	return rec, nil
}

// Delete removes the record with the given id and returns its last state.
func (r *PostgresRepository) Delete(ctx context.Context, id int64) (*domain.PersistedRecord, error) {
	row := r.pool.QueryRow(ctx, `DELETE FROM records WHERE id = $1 RETURNING `+recordColumns, id)
	rec, err := scanPgRow(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("records: record %d: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("records: delete failed: %w", err)
	}
	return rec, nil
}

// FindByID returns the record with the given id, or nil when absent.
func (r *PostgresRepository) FindByID(ctx context.Context, id int64) (*domain.PersistedRecord, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+recordColumns+` FROM records WHERE id = $1`, id)
	rec, err := scanPgRow(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("records: query failed: %w", err)
	}
	return rec, nil
}

// List returns records matching opts, soonest expiry first.
func (r *PostgresRepository) List(ctx context.Context, opts domain.ListOptions) ([]domain.PersistedRecord, error) {
	var (
		where []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if opts.Owner != "" {
		where = append(where, "owner = "+arg(opts.Owner))
	}
	if opts.Status != "" {
		where = append(where, "status = "+arg(string(opts.Status)))
	}
	if !opts.ExpiresBefore.IsZero() {
		where = append(where, "expires_at < "+arg(opts.ExpiresBefore.UTC()))
	}

	query := `SELECT ` + recordColumns + ` FROM records`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY expires_at ASC, id ASC"
	if opts.Limit > 0 {
		query += " LIMIT " + arg(opts.Limit)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("records: query failed: %w", err)
	}
	defer rows.Close()

	var records []domain.PersistedRecord
	for rows.Next() {
		rec, err := scanPgRow(rows)
		if err != nil {
			return nil, fmt.Errorf("records: scan failed: %w", err)
		}
		records = append(records, *rec)
	}
	return records, rows.Err()
}

// SetStatus records the propagation state of a record.
func (r *PostgresRepository) SetStatus(ctx context.Context, id int64, status domain.Status) error {
	if !status.Valid() {
		return fmt.Errorf("records: %w: unknown status %q", domain.ErrValidation, status)
	}
	tag, err := r.pool.Exec(ctx,
		`UPDATE records SET status = $1, updated_at = $2 WHERE id = $3`,
		string(status), r.now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("records: update failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("records: record %d: %w", id, domain.ErrNotFound)
	}
	return nil
}

// Close releases the connection pool.
func (r *PostgresRepository) Close() error {
	r.pool.Close()
	return nil
}

func mapPgError(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return fmt.Errorf("records: %s: record with the same name, type and value exists: %w", op, domain.ErrConflict)
	}
	return fmt.Errorf("records: %s failed: %w", op, err)
}

func scanPgRow(row pgx.Row) (*domain.PersistedRecord, error) {
	var rec domain.PersistedRecord
	var typ, status string
	err := row.Scan(
		&rec.ID, &rec.Owner, &typ, &rec.Name, &rec.Value,
		&rec.Description, &rec.Course, &rec.Ports,
		&status, &rec.CreatedAt, &rec.UpdatedAt, &rec.ExpiresAt,
	)
	if err != nil {
		return nil, err
	}
	rec.Type = domain.RecordType(typ)
	rec.Status = domain.Status(status)
	rec.CreatedAt = rec.CreatedAt.UTC()
	rec.UpdatedAt = rec.UpdatedAt.UTC()
	rec.ExpiresAt = rec.ExpiresAt.UTC()
	return &rec, nil
}

// TryLockSweep takes the sweep's session-level advisory lock on a
// connection held until release. ok is false when another client, on any
// host, holds it.
func (r *PostgresRepository) TryLockSweep(ctx context.Context) (release func() error, ok bool, err error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("records: acquire failed: %w", err)
	}
	if err := conn.QueryRow(ctx, `SELECT pg_try_advisory_lock($1)`, sweepLockKey).Scan(&ok); err != nil {
		conn.Release()
		return nil, false, fmt.Errorf("records: advisory lock failed: %w", err)
	}
	if !ok {
		conn.Release()
		return nil, false, nil
	}

	release = func() error {
		defer conn.Release()
		if _, err := conn.Exec(context.Background(), `SELECT pg_advisory_unlock($1)`, sweepLockKey); err != nil {
			return fmt.Errorf("records: advisory unlock failed: %w", err)
		}
		return nil
	}
	return release, true, nil
}
