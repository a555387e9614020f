// Package worker relays committed outbox rows to Kafka. Running it beside the
// HTTP server gives at-least-once delivery of audit and publication events
// without coupling request handling to broker availability.
package worker

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"
)

// Worker polls the outbox table and produces unpublished rows to Kafka.
type Worker struct {
	db       *sql.DB
	client   *kgo.Client
	topic    string
	interval time.Duration
	batch    int
	logger   *slog.Logger
}

// Option configures the worker.
type Option func(*Worker)

// WithInterval overrides the poll interval (default 1s).
func WithInterval(d time.Duration) Option {
	return func(w *Worker) { w.interval = d }
}

// WithBatchSize overrides how many rows are relayed per poll (default 100).
func WithBatchSize(n int) Option {
	return func(w *Worker) { w.batch = n }
}

// New builds an outbox relay worker.
func New(db *sql.DB, client *kgo.Client, topic string, logger *slog.Logger, opts ...Option) *Worker {
	w := &Worker{
		db:       db,
		client:   client,
		topic:    topic,
		interval: time.Second,
		batch:    100,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run polls until the context is cancelled. Individual relay failures are
// logged and retried on the next tick; rows stay in the outbox until marked.
func (w *Worker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := w.relayBatch(ctx); err != nil {
				w.logger.Error("outbox relay failed", "error", err)
			}
		}
	}
}

type outboxRow struct {
	id          string
	aggregateID string
	payload     []byte
}

func (w *Worker) relayBatch(ctx context.Context) error {
	rows, err := w.db.QueryContext(ctx, `
		SELECT id, aggregate_id, payload FROM outbox
		WHERE published_at IS NULL
		ORDER BY created_at ASC
		LIMIT $1
	`, w.batch)
	if err != nil {
		return fmt.Errorf("query outbox: %w", err)
	}
	defer rows.Close()

	var pending []outboxRow
	for rows.Next() {
		var r outboxRow
		if err := rows.Scan(&r.id, &r.aggregateID, &r.payload); err != nil {
			return fmt.Errorf("scan outbox row: %w", err)
		}
		pending = append(pending, r)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for _, r := range pending {
		record := &kgo.Record{
			Topic: w.topic,
			// Key by aggregate so per-application and per-cohort event
			// ordering survives partitioning.
			Key:   []byte(r.aggregateID),
			Value: r.payload,
		}
		if err := w.client.ProduceSync(ctx, record).FirstErr(); err != nil {
			return fmt.Errorf("produce outbox row %s: %w", r.id, err)
		}
		if _, err := w.db.ExecContext(ctx,
			`UPDATE outbox SET published_at = $1 WHERE id = $2`,
			time.Now(), r.id,
		); err != nil {
			return fmt.Errorf("mark outbox row %s published: %w", r.id, err)
		}
	}
	return nil
}
