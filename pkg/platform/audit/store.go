package audit

import (
	"context"

	"transferdesk/pkg/domain"
)

// Store persists audit events. The postgres implementation writes to the
// transactional outbox; the memory implementation backs unit tests and dev
// mode.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListByApplication(ctx context.Context, applicationID domain.ApplicationID) ([]Event, error)
}
