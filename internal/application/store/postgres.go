package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"transferdesk/internal/application/models"
	"transferdesk/pkg/domain"
	"transferdesk/pkg/platform/sentinel"
	txcontext "transferdesk/pkg/platform/tx"
)

// Postgres persists applications in the applications table. Scalar lifecycle
// fields are columns; documents and transition history ride along as JSONB
// since they are only ever read through the aggregate.
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

const appColumns = `
	id, student_id, number, status, faculty_id, department_id, period,
	declared_gpa, declared_exam_score, declared_exam_rank, exam_year,
	submitted_at, reviewed_at, faculty_routed_at, department_routed_at,
	evaluation_set_at, ranked_at, board_referred_at, decided_at, rejected_at,
	rejection_reason, board_decision, board_notes, documents, history,
	created_at, updated_at
`

func scanApplication(row interface{ Scan(...any) error }) (*models.Application, error) {
	var (
		a             models.Application
		idStr         string
		studentStr    string
		facultyStr    string
		deptStr       string
		number        sql.NullString
		boardDecision sql.NullString
		documents     []byte
		history       []byte
	)
	err := row.Scan(
		&idStr, &studentStr, &number, &a.Status, &facultyStr, &deptStr, &a.Period,
		&a.DeclaredGPA, &a.DeclaredExamScore, &a.DeclaredExamRank, &a.ExamYear,
		&a.SubmittedAt, &a.ReviewedAt, &a.FacultyRoutedAt, &a.DepartmentRoutedAt,
		&a.EvaluationSetAt, &a.RankedAt, &a.BoardReferredAt, &a.DecidedAt, &a.RejectedAt,
		&a.RejectionReason, &boardDecision, &a.BoardNotes, &documents, &history,
		&a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan application: %w", err)
	}
	id, err := uuid.Parse(idStr)
	if err != nil {
		return nil, fmt.Errorf("parse application id: %w", err)
	}
	a.ID = domain.ApplicationID(id)
	student, err := uuid.Parse(studentStr)
	if err != nil {
		return nil, fmt.Errorf("parse student id: %w", err)
	}
	a.StudentID = domain.StudentID(student)
	faculty, err := uuid.Parse(facultyStr)
	if err != nil {
		return nil, fmt.Errorf("parse faculty id: %w", err)
	}
	a.FacultyID = domain.FacultyID(faculty)
	dept, err := uuid.Parse(deptStr)
	if err != nil {
		return nil, fmt.Errorf("parse department id: %w", err)
	}
	a.DepartmentID = domain.DepartmentID(dept)
	a.Number = number.String
	if boardDecision.Valid {
		a.BoardDecision = domain.BoardDecision(boardDecision.String)
	}
	if len(documents) > 0 {
		if err := json.Unmarshal(documents, &a.Documents); err != nil {
			return nil, fmt.Errorf("unmarshal documents: %w", err)
		}
	}
	if len(history) > 0 {
		if err := json.Unmarshal(history, &a.History); err != nil {
			return nil, fmt.Errorf("unmarshal history: %w", err)
		}
	}
	return &a, nil
}

func writeArgs(a *models.Application) ([]any, error) {
	documents, err := json.Marshal(a.Documents)
	if err != nil {
		return nil, fmt.Errorf("marshal documents: %w", err)
	}
	history, err := json.Marshal(a.History)
	if err != nil {
		return nil, fmt.Errorf("marshal history: %w", err)
	}
	var number any
	if a.Number != "" {
		number = a.Number
	}
	var boardDecision any
	if a.BoardDecision != "" {
		boardDecision = string(a.BoardDecision)
	}
	return []any{
		a.ID.String(), a.StudentID.String(), number, a.Status.String(),
		a.FacultyID.String(), a.DepartmentID.String(), a.Period.String(),
		a.DeclaredGPA, a.DeclaredExamScore, a.DeclaredExamRank, a.ExamYear,
		a.SubmittedAt, a.ReviewedAt, a.FacultyRoutedAt, a.DepartmentRoutedAt,
		a.EvaluationSetAt, a.RankedAt, a.BoardReferredAt, a.DecidedAt, a.RejectedAt,
		a.RejectionReason, boardDecision, a.BoardNotes, documents, history,
		a.CreatedAt, a.UpdatedAt,
	}, nil
}

func (s *Postgres) Create(ctx context.Context, app *models.Application) error {
	args, err := writeArgs(app)
	if err != nil {
		return err
	}
	_, err = s.conn(ctx).ExecContext(ctx, `
		INSERT INTO applications (`+appColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
			$15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26, $27)
	`, args...)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert application: %w", err)
	}
	return nil
}

func (s *Postgres) FindByID(ctx context.Context, id domain.ApplicationID) (*models.Application, error) {
	row := s.conn(ctx).QueryRowContext(ctx,
		`SELECT `+appColumns+` FROM applications WHERE id = $1`, id.String())
	return scanApplication(row)
}

// Execute runs validate-then-mutate with the row locked, so concurrent
// transitions on one application serialize. Joins a context transaction when
// present; otherwise opens its own.
func (s *Postgres) Execute(ctx context.Context, id domain.ApplicationID, validate func(*models.Application) error, mutate func(*models.Application)) (*models.Application, error) {
	run := func(ctx context.Context, conn dbConn) (*models.Application, error) {
		row := conn.QueryRowContext(ctx,
			`SELECT `+appColumns+` FROM applications WHERE id = $1 FOR UPDATE`, id.String())
		app, err := scanApplication(row)
		if err != nil {
			return nil, err
		}
		if err := validate(app); err != nil {
			return nil, err
		}
		mutate(app)
		if err := s.update(ctx, conn, app); err != nil {
			return nil, err
		}
		return app, nil
	}

	if tx, ok := txcontext.From(ctx); ok {
		return run(ctx, tx)
	}
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	app, err := run(ctx, sqlTx)
	if err != nil {
		_ = sqlTx.Rollback()
		return nil, err
	}
	if err := sqlTx.Commit(); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return app, nil
}

func (s *Postgres) update(ctx context.Context, conn dbConn, a *models.Application) error {
	args, err := writeArgs(a)
	if err != nil {
		return err
	}
	_, err = conn.ExecContext(ctx, `
		UPDATE applications SET
			student_id = $2, number = $3, status = $4, faculty_id = $5,
			department_id = $6, period = $7, declared_gpa = $8,
			declared_exam_score = $9, declared_exam_rank = $10, exam_year = $11,
			submitted_at = $12, reviewed_at = $13, faculty_routed_at = $14,
			department_routed_at = $15, evaluation_set_at = $16, ranked_at = $17,
			board_referred_at = $18, decided_at = $19, rejected_at = $20,
			rejection_reason = $21, board_decision = $22, board_notes = $23,
			documents = $24, history = $25, created_at = $26, updated_at = $27
		WHERE id = $1
	`, args...)
	if err != nil {
		return fmt.Errorf("update application: %w", err)
	}
	return nil
}

func (s *Postgres) Delete(ctx context.Context, id domain.ApplicationID, validate func(*models.Application) error) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	row := sqlTx.QueryRowContext(ctx,
		`SELECT `+appColumns+` FROM applications WHERE id = $1 FOR UPDATE`, id.String())
	app, err := scanApplication(row)
	if err != nil {
		_ = sqlTx.Rollback()
		return err
	}
	if err := validate(app); err != nil {
		_ = sqlTx.Rollback()
		return err
	}
	if _, err := sqlTx.ExecContext(ctx, `DELETE FROM applications WHERE id = $1`, id.String()); err != nil {
		_ = sqlTx.Rollback()
		return fmt.Errorf("delete application: %w", err)
	}
	return sqlTx.Commit()
}

// AllocateNumber increments and returns the per-period sequence. The upsert
// keeps allocation atomic without a separate setup step per period.
func (s *Postgres) AllocateNumber(ctx context.Context, period domain.Period) (int, error) {
	var seq int
	err := s.conn(ctx).QueryRowContext(ctx, `
		INSERT INTO application_sequences (period, next_value)
		VALUES ($1, 1)
		ON CONFLICT (period) DO UPDATE SET next_value = application_sequences.next_value + 1
		RETURNING next_value
	`, period.String()).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("allocate application number: %w", err)
	}
	return seq, nil
}

func (s *Postgres) ListByStudent(ctx context.Context, studentID domain.StudentID) ([]*models.Application, error) {
	rows, err := s.conn(ctx).QueryContext(ctx,
		`SELECT `+appColumns+` FROM applications WHERE student_id = $1 ORDER BY created_at ASC`,
		studentID.String())
	if err != nil {
		return nil, fmt.Errorf("list applications by student: %w", err)
	}
	return collect(rows)
}

func (s *Postgres) ListByCohortAndStatus(ctx context.Context, cohort domain.Cohort, status domain.ApplicationStatus) ([]*models.Application, error) {
	rows, err := s.conn(ctx).QueryContext(ctx, `
		SELECT `+appColumns+` FROM applications
		WHERE department_id = $1 AND faculty_id = $2 AND period = $3 AND status = $4
		ORDER BY submitted_at ASC
	`, cohort.DepartmentID.String(), cohort.FacultyID.String(), cohort.Period.String(), status.String())
	if err != nil {
		return nil, fmt.Errorf("list applications by cohort: %w", err)
	}
	return collect(rows)
}

func collect(rows *sql.Rows) ([]*models.Application, error) {
	defer rows.Close()
	var out []*models.Application
	for rows.Next() {
		app, err := scanApplication(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, app)
	}
	return out, rows.Err()
}

func (s *Postgres) CountByStatus(ctx context.Context, departmentID domain.DepartmentID, period domain.Period) (map[domain.ApplicationStatus]int, error) {
	rows, err := s.conn(ctx).QueryContext(ctx, `
		SELECT status, COUNT(*) FROM applications
		WHERE department_id = $1 AND period = $2
		GROUP BY status
	`, departmentID.String(), period.String())
	if err != nil {
		return nil, fmt.Errorf("count applications by status: %w", err)
	}
	defer rows.Close()
	counts := make(map[domain.ApplicationStatus]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scan status count: %w", err)
		}
		counts[domain.ApplicationStatus(status)] = n
	}
	return counts, rows.Err()
}
