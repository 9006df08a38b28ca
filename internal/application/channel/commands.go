package channel

import (
	"github.com/lllypuk/threadline/internal/application/appcore"
	"github.com/lllypuk/threadline/internal/domain/uuid"
)

// CreateChannelCommand creates a channel in the caller's workspace.
type CreateChannelCommand struct {
	Caller appcore.Caller
	Name   string
}

// CommandName returns command name
func (c CreateChannelCommand) CommandName() string { return "CreateChannel" }

// ListChannelsQuery lists channels of the caller's workspace.
type ListChannelsQuery struct {
	Caller appcore.Caller
}

// GetChannelQuery loads one channel.
type GetChannelQuery struct {
	Caller    appcore.Caller
	ChannelID uuid.UUID
}
