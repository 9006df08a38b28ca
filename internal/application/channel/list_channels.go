package channel

import (
	"context"
	"fmt"

	"github.com/lllypuk/threadline/internal/application/appcore"
)

// ListChannelsUseCase lists workspace channels.
type ListChannelsUseCase struct {
	repo Repository
}

// NewListChannelsUseCase creates a new ListChannelsUseCase
func NewListChannelsUseCase(repo Repository) *ListChannelsUseCase {
	return &ListChannelsUseCase{repo: repo}
}

// Execute returns channels ordered by creation.
func (uc *ListChannelsUseCase) Execute(ctx context.Context, query ListChannelsQuery) ([]View, error) {
	if err := appcore.ValidateRequired("workspaceID", query.Caller.WorkspaceID); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	channels, err := uc.repo.ListByWorkspace(ctx, query.Caller.WorkspaceID)
	if err != nil {
		return nil, fmt.Errorf("failed to list channels: %w", err)
	}

	views := make([]View, 0, len(channels))
	for _, ch := range channels {
		views = append(views, ToView(ch))
	}
	return views, nil
}
