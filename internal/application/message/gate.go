package message

import (
	"context"
)

// Action names a gated mutation.
type Action string

// Gated actions.
const (
	ActionCreateMessage  Action = "message.create"
	ActionUpdateMessage  Action = "message.update"
	ActionToggleReaction Action = "message.reaction.toggle"
)

// GateRequest is what the rate/abuse gate sees before a mutation runs.
type GateRequest struct {
	UserID      string
	WorkspaceID string
	Action      Action
	Content     string
}

// Gate is the external rate/abuse gate (consumer-side interface).
// A non-nil error short-circuits the mutation and is returned to the caller unchanged.
type Gate interface {
	Check(ctx context.Context, req GateRequest) error
}

// AllowAllGate lets every request through.
type AllowAllGate struct{}

// Check implements Gate.
func (AllowAllGate) Check(context.Context, GateRequest) error { return nil }
