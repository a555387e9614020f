package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"transferdesk/internal/ranking"
	"transferdesk/pkg/domain"
	"transferdesk/pkg/platform/sentinel"
	txcontext "transferdesk/pkg/platform/tx"
)

// Postgres persists ranking entries in the rankings table. Replace and
// publish each run in a single transaction so readers never observe a
// half-written cohort.
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

const rankingColumns = `
	id, application_id, department_id, faculty_id, period,
	rank, score, is_primary, is_waitlisted, is_published, published_at,
	quota_snapshot, generated_at
`

func scanEntry(row interface{ Scan(...any) error }) (*ranking.Entry, error) {
	var (
		e          ranking.Entry
		idStr      string
		appStr     string
		deptStr    string
		facultyStr string
		score      sql.NullFloat64
	)
	err := row.Scan(
		&idStr, &appStr, &deptStr, &facultyStr, &e.Cohort.Period,
		&e.Rank, &score, &e.IsPrimary, &e.IsWaitlisted, &e.IsPublished, &e.PublishedAt,
		&e.QuotaSnapshot, &e.GeneratedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan ranking entry: %w", err)
	}
	id, err := uuid.Parse(idStr)
	if err != nil {
		return nil, fmt.Errorf("parse ranking id: %w", err)
	}
	e.ID = domain.RankingID(id)
	app, err := uuid.Parse(appStr)
	if err != nil {
		return nil, fmt.Errorf("parse application id: %w", err)
	}
	e.ApplicationID = domain.ApplicationID(app)
	dept, err := uuid.Parse(deptStr)
	if err != nil {
		return nil, fmt.Errorf("parse department id: %w", err)
	}
	e.Cohort.DepartmentID = domain.DepartmentID(dept)
	faculty, err := uuid.Parse(facultyStr)
	if err != nil {
		return nil, fmt.Errorf("parse faculty id: %w", err)
	}
	e.Cohort.FacultyID = domain.FacultyID(faculty)
	if score.Valid {
		v := score.Float64
		e.Score = &v
	}
	return &e, nil
}

func cohortArgs(cohort domain.Cohort) []any {
	return []any{
		cohort.DepartmentID.String(), cohort.FacultyID.String(), cohort.Period.String(),
	}
}

// ReplaceCohort swaps the cohort's entries inside one transaction. Published
// cohorts are immutable and return sentinel.ErrAlreadyUsed.
func (s *Postgres) ReplaceCohort(ctx context.Context, cohort domain.Cohort, entries []*ranking.Entry) error {
	run := func(ctx context.Context, conn dbConn) error {
		var published bool
		err := conn.QueryRowContext(ctx, `
			SELECT EXISTS (
				SELECT 1 FROM rankings
				WHERE department_id = $1 AND faculty_id = $2 AND period = $3 AND is_published
			)
		`, cohortArgs(cohort)...).Scan(&published)
		if err != nil {
			return fmt.Errorf("check published cohort: %w", err)
		}
		if published {
			return sentinel.ErrAlreadyUsed
		}
		if _, err := conn.ExecContext(ctx, `
			DELETE FROM rankings
			WHERE department_id = $1 AND faculty_id = $2 AND period = $3
		`, cohortArgs(cohort)...); err != nil {
			return fmt.Errorf("clear cohort rankings: %w", err)
		}
		for _, e := range entries {
			var score any
			if e.Score != nil {
				score = *e.Score
			}
			if _, err := conn.ExecContext(ctx, `
				INSERT INTO rankings (`+rankingColumns+`)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
			`, e.ID.String(), e.ApplicationID.String(),
				e.Cohort.DepartmentID.String(), e.Cohort.FacultyID.String(), e.Cohort.Period.String(),
				e.Rank, score, e.IsPrimary, e.IsWaitlisted, e.IsPublished, e.PublishedAt,
				e.QuotaSnapshot, e.GeneratedAt,
			); err != nil {
				return fmt.Errorf("insert ranking entry: %w", err)
			}
		}
		return nil
	}

	if tx, ok := txcontext.From(ctx); ok {
		return run(ctx, tx)
	}
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := run(ctx, sqlTx); err != nil {
		_ = sqlTx.Rollback()
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// ListByCohort returns the cohort's entries ordered by rank, ineligible
// entries last.
func (s *Postgres) ListByCohort(ctx context.Context, cohort domain.Cohort) ([]*ranking.Entry, error) {
	rows, err := s.conn(ctx).QueryContext(ctx, `
		SELECT `+rankingColumns+` FROM rankings
		WHERE department_id = $1 AND faculty_id = $2 AND period = $3
		ORDER BY CASE WHEN rank = 0 THEN 2147483647 ELSE rank END ASC, application_id ASC
	`, cohortArgs(cohort)...)
	if err != nil {
		return nil, fmt.Errorf("list cohort rankings: %w", err)
	}
	defer rows.Close()
	var out []*ranking.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, sentinel.ErrNotFound
	}
	return out, nil
}

// PublishCohort flips the cohort to published in one transaction and returns
// the published entries.
func (s *Postgres) PublishCohort(ctx context.Context, cohort domain.Cohort, at time.Time) ([]*ranking.Entry, error) {
	run := func(ctx context.Context, conn dbConn) ([]*ranking.Entry, error) {
		// Lock the cohort's rows so a concurrent publish serializes here.
		lockRows, err := conn.QueryContext(ctx, `
			SELECT is_published FROM rankings
			WHERE department_id = $1 AND faculty_id = $2 AND period = $3
			FOR UPDATE
		`, cohortArgs(cohort)...)
		if err != nil {
			return nil, fmt.Errorf("lock cohort rankings: %w", err)
		}
		var total, published int
		for lockRows.Next() {
			var isPublished bool
			if err := lockRows.Scan(&isPublished); err != nil {
				lockRows.Close()
				return nil, fmt.Errorf("scan ranking lock row: %w", err)
			}
			total++
			if isPublished {
				published++
			}
		}
		if err := lockRows.Err(); err != nil {
			lockRows.Close()
			return nil, err
		}
		lockRows.Close()
		if total == 0 {
			return nil, sentinel.ErrNotFound
		}
		if published > 0 {
			return nil, sentinel.ErrAlreadyUsed
		}
		if _, err := conn.ExecContext(ctx, `
			UPDATE rankings SET is_published = TRUE, published_at = $4
			WHERE department_id = $1 AND faculty_id = $2 AND period = $3
		`, append(cohortArgs(cohort), at)...); err != nil {
			return nil, fmt.Errorf("publish cohort rankings: %w", err)
		}
		rows, err := conn.QueryContext(ctx, `
			SELECT `+rankingColumns+` FROM rankings
			WHERE department_id = $1 AND faculty_id = $2 AND period = $3
			ORDER BY CASE WHEN rank = 0 THEN 2147483647 ELSE rank END ASC, application_id ASC
		`, cohortArgs(cohort)...)
		if err != nil {
			return nil, fmt.Errorf("list published rankings: %w", err)
		}
		defer rows.Close()
		var out []*ranking.Entry
		for rows.Next() {
			e, err := scanEntry(rows)
			if err != nil {
				return nil, err
			}
			out = append(out, e)
		}
		return out, rows.Err()
	}

	if tx, ok := txcontext.From(ctx); ok {
		return run(ctx, tx)
	}
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	out, err := run(ctx, sqlTx)
	if err != nil {
		_ = sqlTx.Rollback()
		return nil, err
	}
	if err := sqlTx.Commit(); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return out, nil
}

// IsLocked reports whether the application sits in a published ranking.
func (s *Postgres) IsLocked(ctx context.Context, applicationID domain.ApplicationID) (bool, error) {
	var locked bool
	err := s.conn(ctx).QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM rankings WHERE application_id = $1 AND is_published
		)
	`, applicationID.String()).Scan(&locked)
	if err != nil {
		return false, fmt.Errorf("check ranking lock: %w", err)
	}
	return locked, nil
}
