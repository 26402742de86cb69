// Package consumer reads entity change events from Kafka and applies them to
// the search indices through the sync hooks, retrying transient failures.
package consumer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/company-search/internal/indexer/events"
	"github.com/Adithya-Monish-Kumar-K/company-search/internal/store"
	"github.com/Adithya-Monish-Kumar-K/company-search/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/company-search/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/company-search/pkg/resilience"
)

// Event statuses recorded on the consumed-events counter.
const (
	statusApplied = "applied"
	statusSkipped = "skipped"
	statusInvalid = "invalid"
	statusFailed  = "failed"
)

// Hooks is the index write surface an event dispatches to.
type Hooks interface {
	CompanySaved(ctx context.Context, id int64) error
	CompanyDeleted(ctx context.Context, id int64) error
	EmployeeSaved(ctx context.Context, id int64) error
	EmployeeDeleted(ctx context.Context, id int64) error
}

// IndexConsumer wraps a Kafka consumer to drive index synchronisation.
type IndexConsumer struct {
	consumer *kafka.Consumer
	logger   *slog.Logger
}

// New creates an IndexConsumer backed by the given Kafka consumer.
func New(kafkaConsumer *kafka.Consumer) *IndexConsumer {
	return &IndexConsumer{
		consumer: kafkaConsumer,
		logger:   slog.Default().With("component", "index-consumer"),
	}
}

// Start begins consuming Kafka messages. It blocks until ctx is cancelled.
func (ic *IndexConsumer) Start(ctx context.Context) error {
	ic.logger.Info("index consumer starting")
	return ic.consumer.Start(ctx)
}

// HandleMessage returns a MessageHandler that applies each entity event to
// hooks. Undecodable events and upserts for rows that no longer exist are
// acknowledged and dropped. Any other failure is retried per retry, then
// logged and counted as failed. The consumer moves on and the stale document
// is repaired by the next reindex.
func HandleMessage(hooks Hooks, retry resilience.RetryConfig, m *metrics.Metrics) kafka.MessageHandler {
	logger := slog.Default().With("component", "index-consumer")
	return func(ctx context.Context, key []byte, value []byte) error {
		event, err := kafka.DecodeJSON[events.Event](value)
		if err == nil {
			err = event.Validate()
		}
		if err != nil {
			logger.Error("dropping invalid entity event", "error", err, "key", string(key))
			m.EventsConsumedTotal.WithLabelValues(statusInvalid).Inc()
			return nil
		}

		apply := dispatch(hooks, event)
		err = resilience.Retry(ctx, "index "+event.Key(), retry, func() error {
			err := apply(ctx, event.ID)
			if err != nil && store.IsNotFound(err) {
				return resilience.Permanent(err)
			}
			return err
		})
		switch {
		case err == nil:
			m.EventsConsumedTotal.WithLabelValues(statusApplied).Inc()
			logger.Debug("entity event applied", "type", event.Type, "entity", event.Entity, "id", event.ID)
			return nil
		case store.IsNotFound(err):
			// The row was deleted after the event was published; its delete
			// event follows on the same partition.
			m.EventsConsumedTotal.WithLabelValues(statusSkipped).Inc()
			logger.Info("entity gone before indexing, skipping", "entity", event.Entity, "id", event.ID)
			return nil
		default:
			m.EventsConsumedTotal.WithLabelValues(statusFailed).Inc()
			return fmt.Errorf("applying %s for %s: %w", event.Type, event.Key(), err)
		}
	}
}

func dispatch(hooks Hooks, event events.Event) func(context.Context, int64) error {
	switch {
	case event.Entity == events.Company && event.Type == events.EntityUpserted:
		return hooks.CompanySaved
	case event.Entity == events.Company:
		return hooks.CompanyDeleted
	case event.Type == events.EntityUpserted:
		return hooks.EmployeeSaved
	default:
		return hooks.EmployeeDeleted
	}
}
