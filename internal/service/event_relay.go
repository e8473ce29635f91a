package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/unitrack/unitrack-api/internal/models"
	"github.com/unitrack/unitrack-api/pkg/config"
	"github.com/unitrack/unitrack-api/pkg/jobs"
)

// Notifier delivers a session event to its recipients.
type Notifier interface {
	Notify(ctx context.Context, event models.SessionEvent) error
}

// LogNotifier is the default Notifier. It writes the event to the
// structured log, which is where deliveries land until a push channel is
// configured.
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier constructs a logging notifier.
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogNotifier{logger: logger}
}

// Notify logs the event.
func (n *LogNotifier) Notify(_ context.Context, event models.SessionEvent) error {
	n.logger.Info("session event",
		zap.String("event_id", event.ID),
		zap.String("event_type", string(event.EventType)),
		zap.String("session_id", event.SessionID))
	return nil
}

type eventOutboxReader interface {
	ListUnpublished(ctx context.Context, limit int) ([]models.SessionEvent, error)
	MarkPublished(ctx context.Context, id string) error
}

// EventRelay drains the session event outbox. A poller reads pending rows
// and hands them to a worker queue; each event is marked published only
// after the notifier accepts it, so delivery is at-least-once.
type EventRelay struct {
	outbox   eventOutboxReader
	notifier Notifier
	queue    *jobs.Queue
	interval time.Duration
	batch    int
	logger   *zap.Logger
	cancel   context.CancelFunc
	done     chan struct{}
}

// NewEventRelay constructs a relay over the outbox.
func NewEventRelay(outbox eventOutboxReader, notifier Notifier, cfg config.EventsConfig, logger *zap.Logger) *EventRelay {
	if logger == nil {
		logger = zap.NewNop()
	}
	if notifier == nil {
		notifier = NewLogNotifier(logger)
	}
	interval := cfg.PollInterval
	if interval <= 0 {
		interval = 5 * time.Second
	}
	batch := cfg.BatchSize
	if batch <= 0 {
		batch = 50
	}

	r := &EventRelay{
		outbox:   outbox,
		notifier: notifier,
		interval: interval,
		batch:    batch,
		logger:   logger,
		done:     make(chan struct{}),
	}
	r.queue = jobs.NewQueue("session-events", r.handle, jobs.QueueConfig{
		Workers:    cfg.Workers,
		MaxRetries: cfg.MaxRetries,
		Logger:     logger,
	})
	return r
}

// Start launches the workers and the outbox poller.
func (r *EventRelay) Start(ctx context.Context) {
	ctx, r.cancel = context.WithCancel(ctx)
	r.queue.Start(ctx)

	go func() {
		defer close(r.done)
		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				r.drain(ctx)
			}
		}
	}()
	r.logger.Info("event relay started", zap.Duration("poll_interval", r.interval), zap.Int("batch_size", r.batch))
}

// Stop halts the poller and waits for in-flight deliveries.
func (r *EventRelay) Stop() {
	if r.cancel == nil {
		return
	}
	r.cancel()
	<-r.done
	r.queue.Stop()
	r.logger.Info("event relay stopped")
}

func (r *EventRelay) drain(ctx context.Context) {
	events, err := r.outbox.ListUnpublished(ctx, r.batch)
	if err != nil {
		r.logger.Warn("outbox poll failed", zap.Error(err))
		return
	}
	for _, event := range events {
		job := jobs.Job{ID: event.ID, Type: string(event.EventType), Payload: event}
		switch err := r.queue.Enqueue(job); {
		case err == nil:
		case errors.Is(err, jobs.ErrDuplicate):
			// Still in flight from an earlier poll.
		default:
			r.logger.Warn("event enqueue failed", zap.String("event_id", event.ID), zap.Error(err))
			return
		}
	}
}

func (r *EventRelay) handle(ctx context.Context, job jobs.Job) error {
	event, ok := job.Payload.(models.SessionEvent)
	if !ok {
		r.logger.Error("unexpected relay payload", zap.String("job_id", job.ID))
		return nil
	}
	if err := r.notifier.Notify(ctx, event); err != nil {
		return err
	}
	return r.outbox.MarkPublished(ctx, event.ID)
}
