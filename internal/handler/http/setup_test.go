package httphandler_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	channelapp "github.com/lllypuk/threadline/internal/application/channel"
	messageapp "github.com/lllypuk/threadline/internal/application/message"
	httphandler "github.com/lllypuk/threadline/internal/handler/http"
	"github.com/lllypuk/threadline/internal/infrastructure/auth"
	"github.com/lllypuk/threadline/internal/infrastructure/httpserver"
	"github.com/lllypuk/threadline/internal/infrastructure/repository/memory"
	"github.com/lllypuk/threadline/internal/middleware"
	"github.com/lllypuk/threadline/internal/service"
)

const (
	testWorkspace = "org_acme"
	aliceToken    = "alice-token"
	bobToken      = "bob-token"
)

type staticValidator map[string]*auth.Claims

func (v staticValidator) Validate(_ context.Context, token string) (*auth.Claims, error) {
	claims, ok := v[token]
	if !ok {
		return nil, auth.ErrInvalidToken
	}
	return claims, nil
}

// apiResponse mirrors httpserver.Response with a raw data payload.
type apiResponse struct {
	Success bool              `json:"success"`
	Data    json.RawMessage   `json:"data"`
	Error   *httpserver.Error `json:"error"`
}

type testAPI struct {
	t    *testing.T
	echo *echo.Echo
}

// newTestAPI wires the handlers over an in-memory store behind the real middleware chain.
func newTestAPI(t *testing.T, gate messageapp.Gate) *testAPI {
	t.Helper()

	if gate == nil {
		gate = messageapp.AllowAllGate{}
	}
	store := memory.NewStore()
	discard := slog.New(slog.DiscardHandler)

	channelService := service.NewChannelService(service.ChannelServiceConfig{
		CreateUC: channelapp.NewCreateChannelUseCase(store.Channels(), discard),
		ListUC:   channelapp.NewListChannelsUseCase(store.Channels()),
		GetUC:    channelapp.NewGetChannelUseCase(store.Channels()),
	})
	opts := []messageapp.Option{messageapp.WithLogger(discard)}
	messageService := service.NewMessageService(service.MessageServiceConfig{
		ListUC:   messageapp.NewListMessagesUseCase(store.Channels(), store.Messages(), store.Reactions(), opts...),
		ThreadUC: messageapp.NewListThreadUseCase(store.Messages(), store.Reactions()),
		CreateUC: messageapp.NewCreateMessageUseCase(store.Channels(), store.Messages(), gate, opts...),
		UpdateUC: messageapp.NewUpdateMessageUseCase(store.Messages(), store.Reactions(), gate, opts...),
		ToggleUC: messageapp.NewToggleReactionUseCase(store.Messages(), store.Reactions(), gate, opts...),
	})

	authConfig := middleware.DefaultAuthConfig()
	authConfig.Logger = discard
	authConfig.TokenValidator = staticValidator{
		aliceToken: {UserID: "kp_alice", Email: "alice@example.com", GivenName: "Alice", Workspaces: []string{testWorkspace}},
		bobToken:   {UserID: "kp_bob", Email: "bob@example.com", Workspaces: []string{testWorkspace}},
	}

	config := httpserver.DefaultRouterConfig()
	config.Logger = discard
	config.LoggingConfig.Logger = discard
	config.RecoveryConfig.Logger = discard
	config.AuthMiddleware = middleware.Auth(authConfig)
	config.WorkspaceMiddleware = middleware.WorkspaceAccess(middleware.WorkspaceConfig{Logger: discard})

	e := echo.New()
	router := httpserver.NewRouter(e, config)
	router.RegisterAll(
		httphandler.NewChannelHandler(channelService),
		httphandler.NewMessageHandler(messageService),
	)

	return &testAPI{t: t, echo: e}
}

func (a *testAPI) raw(method, path, token, body string) *httptest.ResponseRecorder {
	a.t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, "/api/v1/workspaces/"+testWorkspace+path, reader)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	a.echo.ServeHTTP(rec, req)
	return rec
}

func (a *testAPI) do(method, path, token, body string) (int, apiResponse) {
	a.t.Helper()

	rec := a.raw(method, path, token, body)

	var resp apiResponse
	require.NoError(a.t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	return rec.Code, resp
}

// mustDo performs the request, asserts the status and decodes data into out.
func (a *testAPI) mustDo(method, path, token, body string, wantStatus int, out any) {
	a.t.Helper()

	status, resp := a.do(method, path, token, body)
	require.Equal(a.t, wantStatus, status, "%s %s: %+v", method, path, resp.Error)
	if out != nil {
		require.NoError(a.t, json.Unmarshal(resp.Data, out))
	}
}

func (a *testAPI) createChannel(name string) channelapp.View {
	a.t.Helper()

	var view channelapp.View
	a.mustDo(http.MethodPost, "/channels", aliceToken, `{"name":"`+name+`"}`, http.StatusCreated, &view)
	return view
}

func (a *testAPI) postMessage(channelID, token, body string) messageapp.MessageView {
	a.t.Helper()

	var view messageapp.MessageView
	a.mustDo(http.MethodPost, "/channels/"+channelID+"/messages", token, body, http.StatusCreated, &view)
	return view
}
