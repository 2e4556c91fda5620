// Package shared holds the building blocks common to every domain
// package: tenant-scoped aggregate roots, domain events, errors and
// query filters.
package shared

import (
	"time"

	"github.com/google/uuid"
)

// TenantAggregateRoot is embedded by every aggregate. Each record
// belongs to exactly one organization (tenant), and Version backs
// optimistic locking in the repositories.
type TenantAggregateRoot struct {
	ID           uuid.UUID
	CreatedAt    time.Time
	UpdatedAt    time.Time
	Version      int           `gorm:"not null;default:1"`
	TenantID     uuid.UUID     `gorm:"type:uuid;not null;index"`
	CreatedBy    *uuid.UUID    `gorm:"type:uuid;index"`
	domainEvents []DomainEvent `gorm:"-"`
}

// NewTenantAggregateRoot builds a fresh aggregate root for the tenant
// with a generated id.
func NewTenantAggregateRoot(tenantID uuid.UUID) TenantAggregateRoot {
	now := time.Now()
	return TenantAggregateRoot{
		ID:        uuid.New(),
		CreatedAt: now,
		UpdatedAt: now,
		Version:   1,
		TenantID:  tenantID,
	}
}

// AddDomainEvent records an event to publish once the aggregate is
// saved.
func (a *TenantAggregateRoot) AddDomainEvent(event DomainEvent) {
	a.domainEvents = append(a.domainEvents, event)
}

// DomainEvents returns the events recorded since the last clear.
func (a *TenantAggregateRoot) DomainEvents() []DomainEvent {
	return a.domainEvents
}

// ClearDomainEvents drops the recorded events.
func (a *TenantAggregateRoot) ClearDomainEvents() {
	a.domainEvents = nil
}
