package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"transferdesk/internal/quota"
	"transferdesk/pkg/domain"
	"transferdesk/pkg/platform/sentinel"
	txcontext "transferdesk/pkg/platform/tx"
)

// Postgres persists quotas in the quotas table, keyed by the composite
// (department_id, faculty_id, semester, academic_year).
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

type dbConn interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *Postgres) conn(ctx context.Context) dbConn {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

const quotaColumns = `
	department_id, faculty_id, semester, academic_year, quota, filled_count, updated_at
`

func scanQuota(row interface{ Scan(...any) error }) (*quota.Quota, error) {
	var (
		q       quota.Quota
		deptStr string
		facStr  string
	)
	err := row.Scan(
		&deptStr, &facStr, &q.Key.Semester, &q.Key.AcademicYear,
		&q.Quota, &q.FilledCount, &q.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan quota: %w", err)
	}
	dept, err := uuid.Parse(deptStr)
	if err != nil {
		return nil, fmt.Errorf("parse department id: %w", err)
	}
	q.Key.DepartmentID = domain.DepartmentID(dept)
	fac, err := uuid.Parse(facStr)
	if err != nil {
		return nil, fmt.Errorf("parse faculty id: %w", err)
	}
	q.Key.FacultyID = domain.FacultyID(fac)
	return &q, nil
}

func keyArgs(key quota.Key) []any {
	return []any{
		key.DepartmentID.String(), key.FacultyID.String(),
		key.Semester.String(), key.AcademicYear,
	}
}

func (s *Postgres) Upsert(ctx context.Context, q *quota.Quota) error {
	_, err := s.conn(ctx).ExecContext(ctx, `
		INSERT INTO quotas (`+quotaColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (department_id, faculty_id, semester, academic_year) DO UPDATE SET
			quota = EXCLUDED.quota,
			filled_count = EXCLUDED.filled_count,
			updated_at = EXCLUDED.updated_at
	`, append(keyArgs(q.Key), q.Quota, q.FilledCount, q.UpdatedAt)...)
	if err != nil {
		return fmt.Errorf("upsert quota: %w", err)
	}
	return nil
}

func (s *Postgres) Find(ctx context.Context, key quota.Key) (*quota.Quota, error) {
	row := s.conn(ctx).QueryRowContext(ctx, `
		SELECT `+quotaColumns+` FROM quotas
		WHERE department_id = $1 AND faculty_id = $2 AND semester = $3 AND academic_year = $4
	`, keyArgs(key)...)
	return scanQuota(row)
}

// Execute runs validate-then-mutate with the row locked so concurrent seat
// updates serialize. Joins a context transaction when present.
func (s *Postgres) Execute(ctx context.Context, key quota.Key, validate func(*quota.Quota) error, mutate func(*quota.Quota)) (*quota.Quota, error) {
	run := func(ctx context.Context, conn dbConn) (*quota.Quota, error) {
		row := conn.QueryRowContext(ctx, `
			SELECT `+quotaColumns+` FROM quotas
			WHERE department_id = $1 AND faculty_id = $2 AND semester = $3 AND academic_year = $4
			FOR UPDATE
		`, keyArgs(key)...)
		q, err := scanQuota(row)
		if err != nil {
			return nil, err
		}
		if err := validate(q); err != nil {
			return nil, err
		}
		mutate(q)
		_, err = conn.ExecContext(ctx, `
			UPDATE quotas SET quota = $5, filled_count = $6, updated_at = $7
			WHERE department_id = $1 AND faculty_id = $2 AND semester = $3 AND academic_year = $4
		`, append(keyArgs(key), q.Quota, q.FilledCount, q.UpdatedAt)...)
		if err != nil {
			return nil, fmt.Errorf("update quota: %w", err)
		}
		return q, nil
	}

	if tx, ok := txcontext.From(ctx); ok {
		return run(ctx, tx)
	}
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	q, err := run(ctx, sqlTx)
	if err != nil {
		_ = sqlTx.Rollback()
		return nil, err
	}
	if err := sqlTx.Commit(); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return q, nil
}
