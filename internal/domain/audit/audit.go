// Package audit defines the change-trail contract. The storage layer
// implements it with zstd-compressed state snapshots; services log
// best-effort and never fail an operation over a broken trail.
package audit

import (
	"context"

	"stokado/internal/core/id"
)

// Action is the kind of audited operation.
type Action string

const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
	ActionStatus Action = "status"
	ActionPost   Action = "post"
)

// Record is one audit trail item.
type Record struct {
	EntityType string
	EntityID   id.ID
	Action     Action
	ActorID    string
	ActorName  string

	// OldState/NewState are snapshots of the entity around the change.
	// Either may be nil (creates have no old state, deletes no new one).
	OldState map[string]any
	NewState map[string]any
}

// Logger accepts audit records.
type Logger interface {
	Log(ctx context.Context, rec Record) error
}

// NopLogger discards records. Used in tests.
type NopLogger struct{}

// Log implements Logger.
func (NopLogger) Log(ctx context.Context, rec Record) error { return nil }
