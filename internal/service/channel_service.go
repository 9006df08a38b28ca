package service

import (
	"context"

	channelapp "github.com/lllypuk/threadline/internal/application/channel"
	httphandler "github.com/lllypuk/threadline/internal/handler/http"
)

// Compile-time assertion that ChannelService implements httphandler.ChannelService.
var _ httphandler.ChannelService = (*ChannelService)(nil)

// CreateChannelUseCase defines interface for use case creating a channel.
type CreateChannelUseCase interface {
	Execute(ctx context.Context, cmd channelapp.CreateChannelCommand) (channelapp.View, error)
}

// ListChannelsUseCase defines interface for use case listing channels.
type ListChannelsUseCase interface {
	Execute(ctx context.Context, query channelapp.ListChannelsQuery) ([]channelapp.View, error)
}

// GetChannelUseCase defines interface for use case loading a channel.
type GetChannelUseCase interface {
	Execute(ctx context.Context, query channelapp.GetChannelQuery) (channelapp.View, error)
}

// ChannelService реализует httphandler.ChannelService.
type ChannelService struct {
	createUC CreateChannelUseCase
	listUC   ListChannelsUseCase
	getUC    GetChannelUseCase
}

// ChannelServiceConfig contains зависимости for ChannelService.
type ChannelServiceConfig struct {
	CreateUC CreateChannelUseCase
	ListUC   ListChannelsUseCase
	GetUC    GetChannelUseCase
}

// NewChannelService создаёт ChannelService.
func NewChannelService(cfg ChannelServiceConfig) *ChannelService {
	return &ChannelService{
		createUC: cfg.CreateUC,
		listUC:   cfg.ListUC,
		getUC:    cfg.GetUC,
	}
}

// CreateChannel создаёт канал.
func (s *ChannelService) CreateChannel(
	ctx context.Context,
	cmd channelapp.CreateChannelCommand,
) (channelapp.View, error) {
	return s.createUC.Execute(ctx, cmd)
}

// ListChannels returns channels of the workspace.
func (s *ChannelService) ListChannels(
	ctx context.Context,
	query channelapp.ListChannelsQuery,
) ([]channelapp.View, error) {
	return s.listUC.Execute(ctx, query)
}

// GetChannel returns channel по ID.
func (s *ChannelService) GetChannel(
	ctx context.Context,
	query channelapp.GetChannelQuery,
) (channelapp.View, error) {
	return s.getUC.Execute(ctx, query)
}
