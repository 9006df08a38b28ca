package httphandler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	channelapp "github.com/lllypuk/threadline/internal/application/channel"
	"github.com/lllypuk/threadline/internal/domain/uuid"
	"github.com/lllypuk/threadline/internal/infrastructure/httpserver"
	"github.com/lllypuk/threadline/internal/middleware"
)

// CreateChannelRequest represents the request to create a channel.
type CreateChannelRequest struct {
	Name string `json:"name" form:"name"`
}

// ChannelService defines the interface for channel operations.
type ChannelService interface {
	CreateChannel(ctx context.Context, cmd channelapp.CreateChannelCommand) (channelapp.View, error)
	ListChannels(ctx context.Context, query channelapp.ListChannelsQuery) ([]channelapp.View, error)
	GetChannel(ctx context.Context, query channelapp.GetChannelQuery) (channelapp.View, error)
}

// ChannelHandler handles channel-related HTTP requests.
type ChannelHandler struct {
	channelService ChannelService
}

// NewChannelHandler creates a new ChannelHandler.
func NewChannelHandler(channelService ChannelService) *ChannelHandler {
	return &ChannelHandler{
		channelService: channelService,
	}
}

// RegisterRoutes registers channel routes with the router.
func (h *ChannelHandler) RegisterRoutes(r *httpserver.Router) {
	channels := r.NewWorkspaceRouteGroup("/channels")
	channels.POST("", h.Create)
	channels.GET("", h.List)
	channels.GET("/:channel_id", h.Get)
}

// Create handles POST /api/v1/workspaces/:workspace_id/channels.
func (h *ChannelHandler) Create(c echo.Context) error {
	caller := middleware.GetCaller(c)
	if caller.UserID == "" {
		return respondUnauthorized(c)
	}

	var req CreateChannelRequest
	if err := c.Bind(&req); err != nil {
		return httpserver.RespondErrorWithCode(
			c, http.StatusBadRequest, "INVALID_REQUEST", "invalid request body")
	}

	view, err := h.channelService.CreateChannel(c.Request().Context(), channelapp.CreateChannelCommand{
		Caller: caller,
		Name:   req.Name,
	})
	if err != nil {
		return httpserver.RespondError(c, err)
	}

	return httpserver.RespondCreated(c, view)
}

// List handles GET /api/v1/workspaces/:workspace_id/channels.
func (h *ChannelHandler) List(c echo.Context) error {
	caller := middleware.GetCaller(c)
	if caller.UserID == "" {
		return respondUnauthorized(c)
	}

	views, err := h.channelService.ListChannels(c.Request().Context(), channelapp.ListChannelsQuery{Caller: caller})
	if err != nil {
		return httpserver.RespondError(c, err)
	}

	return httpserver.RespondOK(c, views)
}

// Get handles GET /api/v1/workspaces/:workspace_id/channels/:channel_id.
func (h *ChannelHandler) Get(c echo.Context) error {
	caller := middleware.GetCaller(c)
	if caller.UserID == "" {
		return respondUnauthorized(c)
	}

	channelID, err := uuid.ParseUUID(c.Param("channel_id"))
	if err != nil {
		return httpserver.RespondErrorWithCode(
			c, http.StatusBadRequest, "INVALID_CHANNEL_ID", "invalid channel ID format")
	}

	view, err := h.channelService.GetChannel(c.Request().Context(), channelapp.GetChannelQuery{
		Caller:    caller,
		ChannelID: channelID,
	})
	if err != nil {
		return httpserver.RespondError(c, err)
	}

	return httpserver.RespondOK(c, view)
}
