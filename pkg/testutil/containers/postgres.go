//go:build integration

package containers

import (
	"context"
	"database/sql"
	"testing"
	"time"

	_ "github.com/lib/pq"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// PostgresContainer wraps a testcontainers postgres instance with the schema
// applied.
type PostgresContainer struct {
	Container testcontainers.Container
	DSN       string
	DB        *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS applications (
	id UUID PRIMARY KEY,
	student_id UUID NOT NULL,
	number TEXT UNIQUE,
	status TEXT NOT NULL,
	faculty_id UUID NOT NULL,
	department_id UUID NOT NULL,
	period TEXT NOT NULL,
	declared_gpa DOUBLE PRECISION NOT NULL,
	declared_exam_score DOUBLE PRECISION NOT NULL,
	declared_exam_rank INTEGER NOT NULL,
	exam_year INTEGER NOT NULL,
	submitted_at TIMESTAMPTZ,
	reviewed_at TIMESTAMPTZ,
	faculty_routed_at TIMESTAMPTZ,
	department_routed_at TIMESTAMPTZ,
	evaluation_set_at TIMESTAMPTZ,
	ranked_at TIMESTAMPTZ,
	board_referred_at TIMESTAMPTZ,
	decided_at TIMESTAMPTZ,
	rejected_at TIMESTAMPTZ,
	rejection_reason TEXT NOT NULL DEFAULT '',
	board_decision TEXT,
	board_notes TEXT NOT NULL DEFAULT '',
	documents JSONB NOT NULL DEFAULT '[]',
	history JSONB NOT NULL DEFAULT '[]',
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS application_sequences (
	period TEXT PRIMARY KEY,
	next_value INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS evaluations (
	id UUID PRIMARY KEY,
	application_id UUID NOT NULL UNIQUE,
	department_id UUID NOT NULL,
	faculty_id UUID NOT NULL,
	period TEXT NOT NULL,
	verified_gpa DOUBLE PRECISION NOT NULL,
	verified_exam_score DOUBLE PRECISION NOT NULL,
	is_gpa_eligible BOOLEAN NOT NULL,
	is_exam_eligible BOOLEAN NOT NULL,
	is_english_eligible BOOLEAN NOT NULL,
	custom_rule_satisfied BOOLEAN,
	is_overall_eligible BOOLEAN NOT NULL,
	composite_score DOUBLE PRECISION,
	notes TEXT NOT NULL DEFAULT '',
	is_completed BOOLEAN NOT NULL,
	completed_at TIMESTAMPTZ,
	evaluated_by UUID NOT NULL,
	declared_exam_rank INTEGER NOT NULL,
	submitted_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS quotas (
	department_id UUID NOT NULL,
	faculty_id UUID NOT NULL,
	semester TEXT NOT NULL,
	academic_year INTEGER NOT NULL,
	quota INTEGER NOT NULL,
	filled_count INTEGER NOT NULL DEFAULT 0,
	updated_at TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (department_id, faculty_id, semester, academic_year)
);

CREATE TABLE IF NOT EXISTS rankings (
	id UUID PRIMARY KEY,
	application_id UUID NOT NULL,
	department_id UUID NOT NULL,
	faculty_id UUID NOT NULL,
	period TEXT NOT NULL,
	rank INTEGER NOT NULL,
	score DOUBLE PRECISION,
	is_primary BOOLEAN NOT NULL,
	is_waitlisted BOOLEAN NOT NULL,
	is_published BOOLEAN NOT NULL,
	published_at TIMESTAMPTZ,
	quota_snapshot INTEGER NOT NULL,
	generated_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS rankings_cohort_idx ON rankings (department_id, faculty_id, period);
CREATE INDEX IF NOT EXISTS rankings_application_idx ON rankings (application_id);

CREATE TABLE IF NOT EXISTS outbox (
	id UUID PRIMARY KEY,
	aggregate_type TEXT NOT NULL,
	aggregate_id TEXT NOT NULL,
	event_type TEXT NOT NULL,
	payload JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	published_at TIMESTAMPTZ
);
`

// NewPostgresContainer starts a postgres container and applies the schema.
func NewPostgresContainer(t *testing.T) *PostgresContainer {
	t.Helper()

	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("transferdesk_test"),
		tcpostgres.WithUsername("test"),
		tcpostgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("failed to get postgres connection string: %v", err)
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("failed to open postgres connection: %v", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		_ = container.Terminate(ctx)
		t.Fatalf("failed to ping postgres: %v", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		_ = container.Terminate(ctx)
		t.Fatalf("failed to apply schema: %v", err)
	}

	t.Cleanup(func() {
		_ = db.Close()
		_ = container.Terminate(context.Background())
	})

	return &PostgresContainer{
		Container: container,
		DSN:       dsn,
		DB:        db,
	}
}

// Truncate clears every table. Use between tests for isolation.
func (p *PostgresContainer) Truncate(ctx context.Context) error {
	_, err := p.DB.ExecContext(ctx, `
		TRUNCATE applications, application_sequences, evaluations, quotas, rankings, outbox
	`)
	return err
}
