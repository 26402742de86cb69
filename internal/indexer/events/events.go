// Package events defines the entity change events published to Kafka when a
// company or employee is written, and the Emitter that publishes them.
package events

import (
	"context"
	"fmt"
	"time"

	"github.com/Adithya-Monish-Kumar-K/company-search/pkg/kafka"
)

// Type says what happened to an entity.
type Type string

const (
	EntityUpserted Type = "EntityUpserted"
	EntityDeleted  Type = "EntityDeleted"
)

// Entity names the kind of record an event refers to.
type Entity string

const (
	Company  Entity = "company"
	Employee Entity = "employee"
)

// Event is the JSON payload on the entity-events topic.
type Event struct {
	Type       Type      `json:"type"`
	Entity     Entity    `json:"entity"`
	ID         int64     `json:"id"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Key returns the partition key. Events for one entity share a partition,
// so they are consumed in publish order.
func (e Event) Key() string {
	return fmt.Sprintf("%s:%d", e.Entity, e.ID)
}

// Validate rejects events the indexer cannot act on.
func (e Event) Validate() error {
	switch e.Type {
	case EntityUpserted, EntityDeleted:
	default:
		return fmt.Errorf("unknown event type %q", e.Type)
	}
	switch e.Entity {
	case Company, Employee:
	default:
		return fmt.Errorf("unknown entity %q", e.Entity)
	}
	if e.ID <= 0 {
		return fmt.Errorf("invalid entity id %d", e.ID)
	}
	return nil
}

// ParseType accepts the short CLI forms "upsert" and "delete" as well as the
// full event type names.
func ParseType(s string) (Type, bool) {
	switch s {
	case "upsert", string(EntityUpserted):
		return EntityUpserted, true
	case "delete", string(EntityDeleted):
		return EntityDeleted, true
	}
	return "", false
}

// ParseEntity accepts "company" or "employee".
func ParseEntity(s string) (Entity, bool) {
	switch Entity(s) {
	case Company, Employee:
		return Entity(s), true
	}
	return "", false
}

// Publisher is the part of *kafka.Producer the Emitter uses.
type Publisher interface {
	Publish(ctx context.Context, event kafka.Event) error
}

// Emitter publishes entity change events.
type Emitter struct {
	publisher Publisher
	now       func() time.Time
}

// NewEmitter returns an Emitter publishing through p.
func NewEmitter(p Publisher) *Emitter {
	return &Emitter{publisher: p, now: time.Now}
}

// Emit publishes one event. A zero OccurredAt is stamped with the current time.
func (e *Emitter) Emit(ctx context.Context, ev Event) error {
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = e.now().UTC()
	}
	if err := ev.Validate(); err != nil {
		return err
	}
	if err := e.publisher.Publish(ctx, kafka.Event{Key: ev.Key(), Value: ev}); err != nil {
		return fmt.Errorf("emitting %s for %s: %w", ev.Type, ev.Key(), err)
	}
	return nil
}

// CompanySaved announces that company id was created or changed.
func (e *Emitter) CompanySaved(ctx context.Context, id int64) error {
	return e.Emit(ctx, Event{Type: EntityUpserted, Entity: Company, ID: id})
}

// CompanyDeleted announces that company id was removed.
func (e *Emitter) CompanyDeleted(ctx context.Context, id int64) error {
	return e.Emit(ctx, Event{Type: EntityDeleted, Entity: Company, ID: id})
}

// EmployeeSaved announces that employee id was created or changed.
func (e *Emitter) EmployeeSaved(ctx context.Context, id int64) error {
	return e.Emit(ctx, Event{Type: EntityUpserted, Entity: Employee, ID: id})
}

// EmployeeDeleted announces that employee id was removed.
func (e *Emitter) EmployeeDeleted(ctx context.Context, id int64) error {
	return e.Emit(ctx, Event{Type: EntityDeleted, Entity: Employee, ID: id})
}
