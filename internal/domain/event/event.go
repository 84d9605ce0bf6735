// Package event defines the outbound events the ledger emits on workflow
// transitions. Events are handed to a Publisher after the state change is
// decided; the transactional outbox implementation stores them with the
// same commit and a relay delivers them later. Delivery failures never
// fail the business operation.
package event

import (
	"context"
	"time"

	"stokado/internal/core/id"
)

// Event types.
const (
	TypeMovementSubmitted = "movement.submitted"
	TypeMovementApproved  = "movement.approved"
	TypeMovementRejected  = "movement.rejected"
	TypeMovementPosted    = "movement.posted"
	TypeMovementCancelled = "movement.cancelled"
	TypeGRNReceived       = "grn.received"
)

// MovementTransition is the payload of every movement workflow event.
type MovementTransition struct {
	MovementID   id.ID     `json:"movementId"`
	Number       string    `json:"number"`
	MovementType string    `json:"movementType"`
	FromStatus   string    `json:"fromStatus"`
	ToStatus     string    `json:"toStatus"`
	ActorID      string    `json:"actorId"`
	ActorName    string    `json:"actorName,omitempty"`
	Reason       string    `json:"reason,omitempty"`
	OccurredAt   time.Time `json:"occurredAt"`
}

// GRNReceived is the payload of a goods receipt event.
type GRNReceived struct {
	GRNID           id.ID     `json:"grnId"`
	Number          string    `json:"number"`
	PurchaseOrderID id.ID     `json:"purchaseOrderId"`
	MovementID      id.ID     `json:"movementId"`
	ActorID         string    `json:"actorId"`
	OccurredAt      time.Time `json:"occurredAt"`
}

// Publisher accepts events for asynchronous delivery.
type Publisher interface {
	// Publish stores an event of the given type with the payload.
	// AggregateID groups events of one document for ordered consumption.
	Publish(ctx context.Context, eventType string, aggregateID id.ID, payload any) error
}

// NopPublisher discards events. Used in tests and tools that do not
// deliver notifications.
type NopPublisher struct{}

// Publish implements Publisher.
func (NopPublisher) Publish(ctx context.Context, eventType string, aggregateID id.ID, payload any) error {
	return nil
}
