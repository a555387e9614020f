package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"transferdesk/pkg/domain"
	audit "transferdesk/pkg/platform/audit"
	txcontext "transferdesk/pkg/platform/tx"
)

// Store implements audit.Store using the transactional outbox pattern.
// Events are written to the outbox table in the caller's transaction and
// relayed to Kafka by the outbox worker, so an event is emitted iff the
// surrounding mutation committed.
type Store struct {
	db *sql.DB
}

// New creates a PostgreSQL audit store that writes to the outbox.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (s *Store) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

// outboxPayload is the JSON structure relayed to Kafka. Field names match
// audit.Event for deserialization by downstream consumers.
type outboxPayload struct {
	ID            string `json:"ID"`
	Category      string `json:"Category"`
	Timestamp     string `json:"Timestamp"`
	ApplicationID string `json:"ApplicationID,omitempty"`
	Cohort        string `json:"Cohort,omitempty"`
	ActorID       string `json:"ActorID,omitempty"`
	ActorRole     string `json:"ActorRole,omitempty"`
	Action        string `json:"Action"`
	Reason        string `json:"Reason,omitempty"`
	Decision      string `json:"Decision,omitempty"`
	RequestID     string `json:"RequestID,omitempty"`
}

// Append writes an audit event to the outbox table for Kafka relay.
func (s *Store) Append(ctx context.Context, event audit.Event) error {
	eventID := uuid.New()

	category := event.Category
	if category == "" {
		category = audit.AuditEvent(event.Action).Category()
	}

	payload := outboxPayload{
		ID:        eventID.String(),
		Category:  string(category),
		Timestamp: event.Timestamp.Format(time.RFC3339Nano),
		Cohort:    event.Cohort,
		ActorID:   event.ActorID,
		ActorRole: event.ActorRole,
		Action:    event.Action,
		Reason:    event.Reason,
		Decision:  event.Decision,
		RequestID: event.RequestID,
	}
	aggregateType := "cohort"
	aggregateID := event.Cohort
	if !event.ApplicationID.IsNil() {
		payload.ApplicationID = event.ApplicationID.String()
		aggregateType = "application"
		aggregateID = event.ApplicationID.String()
	}

	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal audit payload: %w", err)
	}

	query := `
		INSERT INTO outbox (id, aggregate_type, aggregate_id, event_type, payload, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err = s.execer(ctx).ExecContext(ctx, query,
		eventID,
		aggregateType,
		aggregateID,
		event.Action,
		payloadBytes,
		time.Now(),
	)
	if err != nil {
		return fmt.Errorf("insert outbox entry: %w", err)
	}
	return nil
}

// ListByApplication reads back outbox events for an application, newest last.
// Used by the reporting read path; published and unpublished entries both
// appear since the outbox is append-only.
func (s *Store) ListByApplication(ctx context.Context, applicationID domain.ApplicationID) ([]audit.Event, error) {
	query := `
		SELECT payload FROM outbox
		WHERE aggregate_type = 'application' AND aggregate_id = $1
		ORDER BY created_at ASC
	`
	rows, err := s.execer(ctx).QueryContext(ctx, query, applicationID.String())
	if err != nil {
		return nil, fmt.Errorf("query outbox: %w", err)
	}
	defer rows.Close()

	var events []audit.Event
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan outbox row: %w", err)
		}
		var p outboxPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("unmarshal outbox payload: %w", err)
		}
		e := audit.Event{
			Category:  audit.EventCategory(p.Category),
			Cohort:    p.Cohort,
			ActorID:   p.ActorID,
			ActorRole: p.ActorRole,
			Action:    p.Action,
			Reason:    p.Reason,
			Decision:  p.Decision,
			RequestID: p.RequestID,
		}
		if p.ApplicationID != "" {
			appID, err := domain.ParseApplicationID(p.ApplicationID)
			if err == nil {
				e.ApplicationID = appID
			}
		}
		if ts, err := time.Parse(time.RFC3339Nano, p.Timestamp); err == nil {
			e.Timestamp = ts
		}
		events = append(events, e)
	}
	return events, rows.Err()
}
