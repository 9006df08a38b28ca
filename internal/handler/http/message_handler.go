package httphandler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	messageapp "github.com/lllypuk/threadline/internal/application/message"
	"github.com/lllypuk/threadline/internal/domain/uuid"
	"github.com/lllypuk/threadline/internal/infrastructure/httpserver"
	"github.com/lllypuk/threadline/internal/middleware"
)

// CreateMessageRequest represents the request to post a message or a thread reply.
type CreateMessageRequest struct {
	Content  string `json:"content"   form:"content"`
	ImageURL string `json:"image_url" form:"image_url"`
	ThreadID string `json:"thread_id" form:"thread_id"`
}

// UpdateMessageRequest represents the request to edit a message.
type UpdateMessageRequest struct {
	Content string `json:"content" form:"content"`
}

// ToggleReactionRequest represents the request to toggle a reaction.
type ToggleReactionRequest struct {
	Emoji string `json:"emoji" form:"emoji"`
}

// MessageService defines the interface for message operations.
// Declared on the consumer side per project guidelines.
type MessageService interface {
	// ListMessages returns one keyset page of root messages.
	ListMessages(ctx context.Context, query messageapp.ListMessagesQuery) (messageapp.Page, error)

	// ListThread returns a root message with its replies.
	ListThread(ctx context.Context, query messageapp.ListThreadQuery) (messageapp.ThreadView, error)

	// CreateMessage posts a root message or a reply.
	CreateMessage(ctx context.Context, cmd messageapp.CreateMessageCommand) (messageapp.MessageView, error)

	// UpdateMessage edits the caller's own message.
	UpdateMessage(ctx context.Context, cmd messageapp.UpdateMessageCommand) (messageapp.UpdateResult, error)

	// ToggleReaction flips the caller's reaction and returns the grouped view.
	ToggleReaction(ctx context.Context, cmd messageapp.ToggleReactionCommand) (messageapp.ReactionsView, error)
}

// MessageHandler handles message-related HTTP requests.
type MessageHandler struct {
	messageService MessageService
}

// NewMessageHandler creates a new MessageHandler.
func NewMessageHandler(messageService MessageService) *MessageHandler {
	return &MessageHandler{
		messageService: messageService,
	}
}

// RegisterRoutes registers message routes with the router.
func (h *MessageHandler) RegisterRoutes(r *httpserver.Router) {
	ws := r.Workspace()
	ws.GET("/channels/:channel_id/messages", h.List)
	ws.POST("/channels/:channel_id/messages", h.Create)
	ws.PUT("/messages/:message_id", h.Update)
	ws.POST("/messages/:message_id/reactions", h.ToggleReaction)
	ws.GET("/messages/:message_id/thread", h.Thread)
}

// List handles GET /api/v1/workspaces/:workspace_id/channels/:channel_id/messages.
// Query params: cursor (message id of the last item seen), limit (1..100).
func (h *MessageHandler) List(c echo.Context) error {
	caller := middleware.GetCaller(c)
	if caller.UserID == "" {
		return respondUnauthorized(c)
	}

	channelID, err := uuid.ParseUUID(c.Param("channel_id"))
	if err != nil {
		return httpserver.RespondErrorWithCode(
			c, http.StatusBadRequest, "INVALID_CHANNEL_ID", "invalid channel ID format")
	}

	query := messageapp.ListMessagesQuery{
		Caller:    caller,
		ChannelID: channelID,
	}

	if cursor := c.QueryParam("cursor"); cursor != "" {
		query.Cursor, err = uuid.ParseUUID(cursor)
		if err != nil {
			return httpserver.RespondError(c, messageapp.ErrInvalidCursor)
		}
	}

	if limitStr := c.QueryParam("limit"); limitStr != "" {
		query.Limit, err = strconv.Atoi(limitStr)
		if err != nil {
			return httpserver.RespondError(c, messageapp.ErrInvalidLimit)
		}
	}

	page, err := h.messageService.ListMessages(c.Request().Context(), query)
	if err != nil {
		return httpserver.RespondError(c, err)
	}

	return httpserver.RespondOK(c, page)
}

// Create handles POST /api/v1/workspaces/:workspace_id/channels/:channel_id/messages.
// A non-empty thread_id posts a reply to that root message.
func (h *MessageHandler) Create(c echo.Context) error {
	caller := middleware.GetCaller(c)
	if caller.UserID == "" {
		return respondUnauthorized(c)
	}

	channelID, err := uuid.ParseUUID(c.Param("channel_id"))
	if err != nil {
		return httpserver.RespondErrorWithCode(
			c, http.StatusBadRequest, "INVALID_CHANNEL_ID", "invalid channel ID format")
	}

	var req CreateMessageRequest
	if bindErr := c.Bind(&req); bindErr != nil {
		return httpserver.RespondErrorWithCode(
			c, http.StatusBadRequest, "INVALID_REQUEST", "invalid request body")
	}

	cmd := messageapp.CreateMessageCommand{
		Caller:    caller,
		ChannelID: channelID,
		Content:   req.Content,
		ImageURL:  req.ImageURL,
	}
	if req.ThreadID != "" {
		cmd.ThreadID, err = uuid.ParseUUID(req.ThreadID)
		if err != nil {
			return httpserver.RespondErrorWithCode(
				c, http.StatusBadRequest, "INVALID_THREAD_ID", "invalid thread ID format")
		}
	}

	view, err := h.messageService.CreateMessage(c.Request().Context(), cmd)
	if err != nil {
		return httpserver.RespondError(c, err)
	}

	return httpserver.RespondCreated(c, view)
}

// Update handles PUT /api/v1/workspaces/:workspace_id/messages/:message_id.
func (h *MessageHandler) Update(c echo.Context) error {
	caller := middleware.GetCaller(c)
	if caller.UserID == "" {
		return respondUnauthorized(c)
	}

	messageID, err := uuid.ParseUUID(c.Param("message_id"))
	if err != nil {
		return respondInvalidMessageID(c)
	}

	var req UpdateMessageRequest
	if bindErr := c.Bind(&req); bindErr != nil {
		return httpserver.RespondErrorWithCode(
			c, http.StatusBadRequest, "INVALID_REQUEST", "invalid request body")
	}

	result, err := h.messageService.UpdateMessage(c.Request().Context(), messageapp.UpdateMessageCommand{
		Caller:    caller,
		MessageID: messageID,
		Content:   req.Content,
	})
	if err != nil {
		return httpserver.RespondError(c, err)
	}

	return httpserver.RespondOK(c, result)
}

// ToggleReaction handles POST /api/v1/workspaces/:workspace_id/messages/:message_id/reactions.
func (h *MessageHandler) ToggleReaction(c echo.Context) error {
	caller := middleware.GetCaller(c)
	if caller.UserID == "" {
		return respondUnauthorized(c)
	}

	messageID, err := uuid.ParseUUID(c.Param("message_id"))
	if err != nil {
		return respondInvalidMessageID(c)
	}

	var req ToggleReactionRequest
	if bindErr := c.Bind(&req); bindErr != nil {
		return httpserver.RespondErrorWithCode(
			c, http.StatusBadRequest, "INVALID_REQUEST", "invalid request body")
	}

	view, err := h.messageService.ToggleReaction(c.Request().Context(), messageapp.ToggleReactionCommand{
		Caller:    caller,
		MessageID: messageID,
		Emoji:     req.Emoji,
	})
	if err != nil {
		return httpserver.RespondError(c, err)
	}

	return httpserver.RespondOK(c, view)
}

// Thread handles GET /api/v1/workspaces/:workspace_id/messages/:message_id/thread.
func (h *MessageHandler) Thread(c echo.Context) error {
	caller := middleware.GetCaller(c)
	if caller.UserID == "" {
		return respondUnauthorized(c)
	}

	messageID, err := uuid.ParseUUID(c.Param("message_id"))
	if err != nil {
		return respondInvalidMessageID(c)
	}

	thread, err := h.messageService.ListThread(c.Request().Context(), messageapp.ListThreadQuery{
		Caller:    caller,
		MessageID: messageID,
	})
	if err != nil {
		return httpserver.RespondError(c, err)
	}

	return httpserver.RespondOK(c, thread)
}

func respondInvalidMessageID(c echo.Context) error {
	return httpserver.RespondErrorWithCode(
		c, http.StatusBadRequest, "INVALID_MESSAGE_ID", "invalid message ID format")
}

func respondUnauthorized(c echo.Context) error {
	return httpserver.RespondErrorWithCode(c, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required")
}
