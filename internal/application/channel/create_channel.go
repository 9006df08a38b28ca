package channel

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/lllypuk/threadline/internal/application/appcore"
	"github.com/lllypuk/threadline/internal/domain/channel"
	"github.com/lllypuk/threadline/internal/domain/errs"
)

// CreateChannelUseCase creates channels with normalized names.
type CreateChannelUseCase struct {
	repo   Repository
	logger *slog.Logger
}

// NewCreateChannelUseCase creates a new CreateChannelUseCase
func NewCreateChannelUseCase(repo Repository, logger *slog.Logger) *CreateChannelUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	return &CreateChannelUseCase{repo: repo, logger: logger}
}

// Execute creates the channel.
func (uc *CreateChannelUseCase) Execute(ctx context.Context, cmd CreateChannelCommand) (View, error) {
	if err := appcore.ValidateRequired("userID", cmd.Caller.UserID); err != nil {
		return View{}, fmt.Errorf("validation failed: %w", err)
	}
	if err := appcore.ValidateRequired("workspaceID", cmd.Caller.WorkspaceID); err != nil {
		return View{}, fmt.Errorf("validation failed: %w", err)
	}

	ch, err := channel.NewChannel(cmd.Caller.WorkspaceID, cmd.Name, cmd.Caller.UserID)
	if err != nil {
		return View{}, ErrInvalidChannelName
	}

	if saveErr := uc.repo.Save(ctx, ch); saveErr != nil {
		if errors.Is(saveErr, errs.ErrAlreadyExists) {
			return View{}, ErrChannelNameTaken
		}
		return View{}, fmt.Errorf("failed to save channel: %w", saveErr)
	}

	uc.logger.InfoContext(ctx, "channel created",
		slog.String("channel_id", ch.ID().String()),
		slog.String("workspace_id", ch.WorkspaceID()),
		slog.String("name", ch.Name()),
	)

	return ToView(ch), nil
}
