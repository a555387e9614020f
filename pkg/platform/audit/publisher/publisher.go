// Package publisher fans audit events out to a store, synchronously by
// default or through a buffered channel when callers must not block on the
// audit path.
package publisher

import (
	"context"
	"log/slog"
	"sync"

	"transferdesk/pkg/domain"
	audit "transferdesk/pkg/platform/audit"
)

// Publisher emits audit events to its backing store.
type Publisher struct {
	store  audit.Store
	logger *slog.Logger

	inbox   chan audit.Event
	done    chan struct{}
	closeMu sync.Mutex
	closed  bool
}

// Option configures a Publisher.
type Option func(*Publisher)

// WithAsyncBuffer makes Emit non-blocking through a buffered channel drained
// by a background goroutine. Close drains the buffer before returning.
func WithAsyncBuffer(size int) Option {
	return func(p *Publisher) {
		p.inbox = make(chan audit.Event, size)
	}
}

// WithLogger sets the logger used for append failures on the async path,
// where no caller is left to receive the error.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

// NewPublisher builds a publisher over a store.
func NewPublisher(store audit.Store, opts ...Option) *Publisher {
	p := &Publisher{store: store}
	for _, opt := range opts {
		opt(p)
	}
	if p.inbox != nil {
		p.done = make(chan struct{})
		go p.drain()
	}
	return p
}

// Emit records an event. In sync mode the store error is returned; in async
// mode the event is queued and append failures are logged by the drainer.
func (p *Publisher) Emit(ctx context.Context, event audit.Event) error {
	if event.Category == "" {
		event.Category = audit.AuditEvent(event.Action).Category()
	}
	if p.inbox == nil {
		return p.store.Append(ctx, event)
	}
	select {
	case p.inbox <- event:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// List returns recorded events for an application.
func (p *Publisher) List(ctx context.Context, applicationID domain.ApplicationID) ([]audit.Event, error) {
	return p.store.ListByApplication(ctx, applicationID)
}

// Close stops the async drainer after flushing queued events. Safe to call in
// sync mode and more than once.
func (p *Publisher) Close() {
	p.closeMu.Lock()
	defer p.closeMu.Unlock()
	if p.inbox == nil || p.closed {
		p.closed = true
		return
	}
	p.closed = true
	close(p.inbox)
	<-p.done
}

func (p *Publisher) drain() {
	defer close(p.done)
	for event := range p.inbox {
		if err := p.store.Append(context.Background(), event); err != nil && p.logger != nil {
			p.logger.Error("audit append failed", "action", event.Action, "error", err)
		}
	}
}
