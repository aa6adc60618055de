package realtime

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"dispatch-service/internal/repository"
)

// Dispatcher drains the outbox and publishes each event. Events that fail to
// publish stay unprocessed and are retried on the next poll, which gives the
// at-least-once guarantee.
type Dispatcher struct {
	outbox    *repository.OutboxRepository
	publisher Publisher
	interval  time.Duration
	batchSize int
	log       zerolog.Logger
}

func NewDispatcher(outbox *repository.OutboxRepository, publisher Publisher, interval time.Duration, log zerolog.Logger) *Dispatcher {
	if interval <= 0 {
		interval = time.Second
	}
	return &Dispatcher{
		outbox:    outbox,
		publisher: publisher,
		interval:  interval,
		batchSize: 100,
		log:       log,
	}
}

// Run polls until ctx is cancelled.
func (d *Dispatcher) Run(ctx context.Context) {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := d.Drain(ctx); err != nil {
				d.log.Error().Err(err).Msg("outbox drain failed")
			}
		}
	}
}

// Drain publishes one batch of unprocessed events.
func (d *Dispatcher) Drain(ctx context.Context) error {
	events, err := d.outbox.ListUnprocessed(ctx, d.batchSize)
	if err != nil {
		return err
	}

	published := make([]uuid.UUID, 0, len(events))
	for _, event := range events {
		if err := d.publisher.Publish(ctx, event.Topic, event.Payload); err != nil {
			d.log.Warn().Err(err).Str("topic", event.Topic).Msg("publish failed, will retry")
			continue
		}
		published = append(published, event.ID)
	}

	return d.outbox.MarkProcessed(ctx, published)
}
