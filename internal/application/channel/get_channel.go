package channel

import (
	"context"
	"errors"
	"fmt"

	"github.com/lllypuk/threadline/internal/application/appcore"
	"github.com/lllypuk/threadline/internal/domain/errs"
)

// GetChannelUseCase loads a channel inside the caller's workspace.
type GetChannelUseCase struct {
	repo Repository
}

// NewGetChannelUseCase creates a new GetChannelUseCase
func NewGetChannelUseCase(repo Repository) *GetChannelUseCase {
	return &GetChannelUseCase{repo: repo}
}

// Execute returns ErrChannelNotFound for missing and foreign channels alike.
func (uc *GetChannelUseCase) Execute(ctx context.Context, query GetChannelQuery) (View, error) {
	if err := appcore.ValidateUUID("channelID", query.ChannelID); err != nil {
		return View{}, fmt.Errorf("validation failed: %w", err)
	}

	ch, err := uc.repo.FindByID(ctx, query.Caller.WorkspaceID, query.ChannelID)
	if errors.Is(err, errs.ErrNotFound) {
		return View{}, ErrChannelNotFound
	}
	if err != nil {
		return View{}, fmt.Errorf("failed to load channel: %w", err)
	}
	if ch.WorkspaceID() != query.Caller.WorkspaceID {
		return View{}, ErrChannelNotFound
	}
	return ToView(ch), nil
}
