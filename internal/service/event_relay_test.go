package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/unitrack/unitrack-api/internal/models"
	"github.com/unitrack/unitrack-api/pkg/config"
	"github.com/unitrack/unitrack-api/pkg/jobs"
)

type mockOutbox struct {
	mu        sync.Mutex
	pending   []models.SessionEvent
	published []string
}

func (m *mockOutbox) ListUnpublished(ctx context.Context, limit int) ([]models.SessionEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.pending) > limit {
		return m.pending[:limit], nil
	}
	return m.pending, nil
}

func (m *mockOutbox) MarkPublished(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.published = append(m.published, id)
	return nil
}

func (m *mockOutbox) publishedCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.published)
}

type mockNotifier struct {
	mu        sync.Mutex
	delivered []models.SessionEvent
	fail      bool
}

func (m *mockNotifier) Notify(ctx context.Context, event models.SessionEvent) error {
	if m.fail {
		return errors.New("downstream unavailable")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delivered = append(m.delivered, event)
	return nil
}

func TestEventRelayHandleMarksPublished(t *testing.T) {
	outbox := &mockOutbox{}
	notifier := &mockNotifier{}
	relay := NewEventRelay(outbox, notifier, config.EventsConfig{}, zap.NewNop())

	event := models.SessionEvent{ID: "evt-1", EventType: models.EventSessionCreated, SessionID: "sess-1"}
	err := relay.handle(context.Background(), jobs.Job{ID: event.ID, Payload: event})
	require.NoError(t, err)

	require.Len(t, notifier.delivered, 1)
	assert.Equal(t, "evt-1", notifier.delivered[0].ID)
	assert.Equal(t, []string{"evt-1"}, outbox.published)
}

func TestEventRelayHandleKeepsUnpublishedOnFailure(t *testing.T) {
	outbox := &mockOutbox{}
	notifier := &mockNotifier{fail: true}
	relay := NewEventRelay(outbox, notifier, config.EventsConfig{}, zap.NewNop())

	event := models.SessionEvent{ID: "evt-1", EventType: models.EventSessionCreated}
	err := relay.handle(context.Background(), jobs.Job{ID: event.ID, Payload: event})
	require.Error(t, err)
	assert.Empty(t, outbox.published, "failed deliveries must stay in the outbox")
}

func TestEventRelayDrainEnqueuesPending(t *testing.T) {
	outbox := &mockOutbox{pending: []models.SessionEvent{
		{ID: "evt-1", EventType: models.EventSessionCreated},
		{ID: "evt-2", EventType: models.EventSessionCancelled},
	}}
	notifier := &mockNotifier{}
	relay := NewEventRelay(outbox, notifier, config.EventsConfig{Workers: 2}, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	relay.queue.Start(ctx)
	defer relay.queue.Stop()

	relay.drain(ctx)

	assert.Eventually(t, func() bool {
		return outbox.publishedCount() == 2
	}, 2*time.Second, 10*time.Millisecond, "both events should be delivered and marked published")
}
