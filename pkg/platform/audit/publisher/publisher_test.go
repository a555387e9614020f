package publisher

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"transferdesk/pkg/domain"
	audit "transferdesk/pkg/platform/audit"
	"transferdesk/pkg/platform/audit/store/memory"
)

func TestEmitSyncAppendsToStore(t *testing.T) {
	store := memory.NewInMemoryStore()
	p := NewPublisher(store)
	defer p.Close()

	applicationID := domain.ApplicationID(uuid.New())
	err := p.Emit(context.Background(), audit.Event{
		Timestamp:     time.Now().UTC(),
		ApplicationID: applicationID,
		Action:        string(audit.EventApplicationSubmitted),
	})
	require.NoError(t, err)

	events, err := p.List(context.Background(), applicationID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, string(audit.EventApplicationSubmitted), events[0].Action)
}

func TestEmitFillsCategoryFromAction(t *testing.T) {
	store := memory.NewInMemoryStore()
	p := NewPublisher(store)
	defer p.Close()

	err := p.Emit(context.Background(), audit.Event{
		Action: string(audit.EventRankingsPublished),
	})
	require.NoError(t, err)

	events := store.All()
	require.Len(t, events, 1)
	assert.Equal(t, audit.EventRankingsPublished.Category(), events[0].Category)
}

func TestAsyncCloseDrainsQueuedEvents(t *testing.T) {
	store := memory.NewInMemoryStore()
	p := NewPublisher(store, WithAsyncBuffer(16))

	for i := 0; i < 10; i++ {
		err := p.Emit(context.Background(), audit.Event{
			ApplicationID: domain.ApplicationID(uuid.New()),
			Action:        string(audit.EventApplicationCreated),
		})
		require.NoError(t, err)
	}
	p.Close()

	assert.Len(t, store.All(), 10)
}

func TestCloseIsIdempotent(t *testing.T) {
	p := NewPublisher(memory.NewInMemoryStore(), WithAsyncBuffer(1))
	p.Close()
	p.Close()

	sync := NewPublisher(memory.NewInMemoryStore())
	sync.Close()
}
