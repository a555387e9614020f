package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"transferdesk/internal/evaluation"
	"transferdesk/pkg/domain"
	"transferdesk/pkg/platform/sentinel"
	txcontext "transferdesk/pkg/platform/tx"
)

// Postgres persists evaluations in the evaluations table, one row per
// application enforced by a unique constraint on application_id.
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

const evalColumns = `
	id, application_id, department_id, faculty_id, period,
	verified_gpa, verified_exam_score,
	is_gpa_eligible, is_exam_eligible, is_english_eligible,
	custom_rule_satisfied, is_overall_eligible, composite_score, notes,
	is_completed, completed_at, evaluated_by, declared_exam_rank, submitted_at
`

func scanEvaluation(row interface{ Scan(...any) error }) (*evaluation.Evaluation, error) {
	var (
		e           evaluation.Evaluation
		idStr       string
		appStr      string
		deptStr     string
		facultyStr  string
		customRule  sql.NullBool
		composite   sql.NullFloat64
		evaluatedBy string
	)
	err := row.Scan(
		&idStr, &appStr, &deptStr, &facultyStr, &e.Cohort.Period,
		&e.VerifiedGPA, &e.VerifiedExamScore,
		&e.GPAEligible, &e.ExamEligible, &e.EnglishEligible,
		&customRule, &e.OverallEligible, &composite, &e.Notes,
		&e.Completed, &e.CompletedAt, &evaluatedBy, &e.DeclaredExamRank, &e.SubmittedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan evaluation: %w", err)
	}
	id, err := uuid.Parse(idStr)
	if err != nil {
		return nil, fmt.Errorf("parse evaluation id: %w", err)
	}
	e.ID = domain.EvaluationID(id)
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
	actor, err := uuid.Parse(evaluatedBy)
	if err != nil {
		return nil, fmt.Errorf("parse evaluator id: %w", err)
	}
	e.EvaluatedBy = domain.ActorID(actor)
	if customRule.Valid {
		v := customRule.Bool
		e.CustomRuleSatisfied = &v
	}
	if composite.Valid {
		v := composite.Float64
		e.CompositeScore = &v
	}
	return &e, nil
}

func writeArgs(e *evaluation.Evaluation) []any {
	var customRule any
	if e.CustomRuleSatisfied != nil {
		customRule = *e.CustomRuleSatisfied
	}
	var composite any
	if e.CompositeScore != nil {
		composite = *e.CompositeScore
	}
	return []any{
		e.ID.String(), e.ApplicationID.String(),
		e.Cohort.DepartmentID.String(), e.Cohort.FacultyID.String(), e.Cohort.Period.String(),
		e.VerifiedGPA, e.VerifiedExamScore,
		e.GPAEligible, e.ExamEligible, e.EnglishEligible,
		customRule, e.OverallEligible, composite, e.Notes,
		e.Completed, e.CompletedAt, e.EvaluatedBy.String(), e.DeclaredExamRank, e.SubmittedAt,
	}
}

// Upsert replaces the application's active evaluation. The conflict target is
// application_id so a re-run overwrites the previous pass in place.
func (s *Postgres) Upsert(ctx context.Context, eval *evaluation.Evaluation) error {
	_, err := s.conn(ctx).ExecContext(ctx, `
		INSERT INTO evaluations (`+evalColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
			$15, $16, $17, $18, $19)
		ON CONFLICT (application_id) DO UPDATE SET
			verified_gpa = EXCLUDED.verified_gpa,
			verified_exam_score = EXCLUDED.verified_exam_score,
			is_gpa_eligible = EXCLUDED.is_gpa_eligible,
			is_exam_eligible = EXCLUDED.is_exam_eligible,
			is_english_eligible = EXCLUDED.is_english_eligible,
			custom_rule_satisfied = EXCLUDED.custom_rule_satisfied,
			is_overall_eligible = EXCLUDED.is_overall_eligible,
			composite_score = EXCLUDED.composite_score,
			notes = EXCLUDED.notes,
			is_completed = EXCLUDED.is_completed,
			completed_at = EXCLUDED.completed_at,
			evaluated_by = EXCLUDED.evaluated_by,
			declared_exam_rank = EXCLUDED.declared_exam_rank,
			submitted_at = EXCLUDED.submitted_at
	`, writeArgs(eval)...)
	if err != nil {
		return fmt.Errorf("upsert evaluation: %w", err)
	}
	return nil
}

func (s *Postgres) FindByApplication(ctx context.Context, applicationID domain.ApplicationID) (*evaluation.Evaluation, error) {
	row := s.conn(ctx).QueryRowContext(ctx,
		`SELECT `+evalColumns+` FROM evaluations WHERE application_id = $1`,
		applicationID.String())
	return scanEvaluation(row)
}

func (s *Postgres) ListCompletedByCohort(ctx context.Context, cohort domain.Cohort) ([]*evaluation.Evaluation, error) {
	rows, err := s.conn(ctx).QueryContext(ctx, `
		SELECT `+evalColumns+` FROM evaluations
		WHERE department_id = $1 AND faculty_id = $2 AND period = $3 AND is_completed
		ORDER BY application_id ASC
	`, cohort.DepartmentID.String(), cohort.FacultyID.String(), cohort.Period.String())
	if err != nil {
		return nil, fmt.Errorf("list evaluations by cohort: %w", err)
	}
	defer rows.Close()
	var out []*evaluation.Evaluation
	for rows.Next() {
		eval, err := scanEvaluation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, eval)
	}
	return out, rows.Err()
}
