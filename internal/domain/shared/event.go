package shared

import (
	"time"

	"github.com/google/uuid"
)

// DomainEvent is raised by an aggregate when something business-relevant
// happens, a state transition for instance.
type DomainEvent interface {
	EventID() uuid.UUID
	EventType() string
	OccurredAt() time.Time
	AggregateID() uuid.UUID
	AggregateType() string
	TenantID() uuid.UUID
}

// BaseDomainEvent carries the fields every event shares. Concrete events
// embed it and add their own payload.
type BaseDomainEvent struct {
	ID            uuid.UUID `json:"id"`
	Type          string    `json:"type"`
	Timestamp     time.Time `json:"timestamp"`
	AggID         uuid.UUID `json:"aggregate_id"`
	AggType       string    `json:"aggregate_type"`
	TenantIDValue uuid.UUID `json:"tenant_id"`
}

// NewBaseDomainEvent stamps a new event with an id and the current time.
func NewBaseDomainEvent(eventType, aggType string, aggID, tenantID uuid.UUID) BaseDomainEvent {
	return BaseDomainEvent{
		ID:            uuid.New(),
		Type:          eventType,
		Timestamp:     time.Now(),
		AggID:         aggID,
		AggType:       aggType,
		TenantIDValue: tenantID,
	}
}

// EventID implements DomainEvent.
func (e *BaseDomainEvent) EventID() uuid.UUID { return e.ID }

// EventType implements DomainEvent.
func (e *BaseDomainEvent) EventType() string { return e.Type }

// OccurredAt implements DomainEvent.
func (e *BaseDomainEvent) OccurredAt() time.Time { return e.Timestamp }

// AggregateID implements DomainEvent.
func (e *BaseDomainEvent) AggregateID() uuid.UUID { return e.AggID }

// AggregateType implements DomainEvent.
func (e *BaseDomainEvent) AggregateType() string { return e.AggType }

// TenantID implements DomainEvent.
func (e *BaseDomainEvent) TenantID() uuid.UUID { return e.TenantIDValue }
