package message

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/lllypuk/threadline/internal/application/appcore"
	"github.com/lllypuk/threadline/internal/domain/message"
)

// DefaultAuthorName is used when the identity carries no display name.
const DefaultAuthorName = "John Doe"

// CreateMessageUseCase creates root messages and thread replies.
type CreateMessageUseCase struct {
	channels ChannelRepository
	messages MessageRepository
	gate     Gate
	opts     options
}

// NewCreateMessageUseCase creates a new CreateMessageUseCase
func NewCreateMessageUseCase(
	channels ChannelRepository,
	messages MessageRepository,
	gate Gate,
	opts ...Option,
) *CreateMessageUseCase {
	return &CreateMessageUseCase{
		channels: channels,
		messages: messages,
		gate:     gate,
		opts:     buildOptions(opts),
	}
}

// Execute validates, passes the gate, checks scope and thread nesting, then persists.
func (uc *CreateMessageUseCase) Execute(ctx context.Context, cmd CreateMessageCommand) (MessageView, error) {
	if err := uc.validate(cmd); err != nil {
		return MessageView{}, err
	}

	if err := uc.gate.Check(ctx, GateRequest{
		UserID:      cmd.Caller.UserID,
		WorkspaceID: cmd.Caller.WorkspaceID,
		Action:      ActionCreateMessage,
		Content:     cmd.Content,
	}); err != nil {
		return MessageView{}, err
	}

	if _, err := findChannel(ctx, uc.channels, cmd.Caller.WorkspaceID, cmd.ChannelID); err != nil {
		return MessageView{}, err
	}

	msg, err := uc.build(ctx, cmd)
	if err != nil {
		return MessageView{}, err
	}

	if saveErr := uc.messages.Save(ctx, msg); saveErr != nil {
		return MessageView{}, fmt.Errorf("failed to save message: %w", saveErr)
	}

	uc.opts.logger.DebugContext(ctx, "message created",
		slog.String("message_id", msg.ID().String()),
		slog.String("channel_id", msg.ChannelID().String()),
		slog.Bool("reply", msg.IsReply()),
	)
	uc.opts.metrics.MessageCreated(msg.IsReply())
	uc.opts.publish(ctx, message.NewCreated(msg, eventMetadata(ctx, cmd.Caller)))

	return ToMessageView(msg), nil
}

func (uc *CreateMessageUseCase) build(ctx context.Context, cmd CreateMessageCommand) (*message.Message, error) {
	author := AuthorFromCaller(cmd.Caller)

	if cmd.ThreadID.IsZero() {
		msg, err := message.NewMessage(cmd.Caller.WorkspaceID, cmd.ChannelID, author, cmd.Content, cmd.ImageURL)
		if err != nil {
			return nil, fmt.Errorf("failed to create message: %w", err)
		}
		return msg, nil
	}

	parent, err := findMessage(ctx, uc.messages, cmd.Caller.WorkspaceID, cmd.ThreadID)
	if err != nil {
		return nil, err
	}

	reply, err := message.NewReply(parent, cmd.ChannelID, author, cmd.Content, cmd.ImageURL)
	switch {
	case errors.Is(err, message.ErrReplyWrongChannel):
		return nil, ErrReplyWrongChannel
	case errors.Is(err, message.ErrReplyToReply):
		return nil, ErrReplyToReply
	case err != nil:
		return nil, fmt.Errorf("failed to create reply: %w", err)
	}
	return reply, nil
}

func (uc *CreateMessageUseCase) validate(cmd CreateMessageCommand) error {
	if err := appcore.ValidateRequired("userID", cmd.Caller.UserID); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	if err := appcore.ValidateUUID("channelID", cmd.ChannelID); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	if err := appcore.ValidateOptionalUUID("threadID", cmd.ThreadID); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	if err := message.ValidateContent(cmd.Content); err != nil {
		return ErrInvalidContent
	}
	if err := message.ValidateImageURL(cmd.ImageURL); err != nil {
		return ErrInvalidImageURL
	}
	return nil
}

// AuthorFromCaller resolves the display identity stamped on new messages.
func AuthorFromCaller(caller appcore.Caller) message.Author {
	name := strings.TrimSpace(caller.Name)
	if name == "" {
		name = DefaultAuthorName
	}
	return message.Author{
		ID:     caller.UserID,
		Email:  caller.Email,
		Name:   name,
		Avatar: avatarURL(caller.Picture, caller.Email),
	}
}

// avatarURL prefers the identity picture and falls back to Gravatar.
func avatarURL(picture, email string) string {
	if picture != "" {
		return picture
	}
	sum := sha256.Sum256([]byte(strings.ToLower(strings.TrimSpace(email))))
	return "https://www.gravatar.com/avatar/" + hex.EncodeToString(sum[:]) + "?d=identicon"
}
