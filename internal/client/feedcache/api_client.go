package feedcache

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	channelapp "github.com/lllypuk/threadline/internal/application/channel"
	messageapp "github.com/lllypuk/threadline/internal/application/message"
	"github.com/lllypuk/threadline/internal/domain/errs"
	"github.com/lllypuk/threadline/internal/infrastructure/httpserver"
)

const defaultAPITimeout = 30 * time.Second

// APIClientConfig contains configuration for APIClient.
type APIClientConfig struct {
	// BaseURL is the server root, e.g. http://localhost:8080.
	BaseURL string

	// WorkspaceID scopes every request.
	WorkspaceID string

	// Token is sent as a bearer token.
	Token string

	// HTTPClient is an optional custom HTTP client.
	HTTPClient *http.Client
}

// APIClient talks to the feed HTTP API. It implements Store.
type APIClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// APIError is a failed API call decoded from the error envelope.
// It unwraps to the matching domain error kind.
type APIError struct {
	Status     int
	Code       string
	Message    string
	RetryAfter time.Duration
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d %s: %s", e.Status, e.Code, e.Message)
}

// Unwrap maps the status to a domain error kind.
func (e *APIError) Unwrap() error {
	switch e.Status {
	case http.StatusNotFound:
		return errs.ErrNotFound
	case http.StatusForbidden:
		return errs.ErrForbidden
	case http.StatusUnauthorized:
		return errs.ErrUnauthorized
	case http.StatusConflict:
		return errs.ErrAlreadyExists
	case http.StatusTooManyRequests:
		return errs.ErrRateLimited
	case http.StatusBadRequest:
		if e.Code == "SENSITIVE_INFO" {
			return errs.ErrPolicyRejected
		}
		return errs.ErrInvalidInput
	default:
		return nil
	}
}

// AsAPIError extracts an APIError from err.
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

type envelope struct {
	Success bool              `json:"success"`
	Data    json.RawMessage   `json:"data"`
	Error   *httpserver.Error `json:"error"`
}

// NewAPIClient creates a new feed API client.
func NewAPIClient(config APIClientConfig) *APIClient {
	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout: defaultAPITimeout,
		}
	}

	return &APIClient{
		baseURL: strings.TrimSuffix(config.BaseURL, "/") +
			"/api/v1/workspaces/" + url.PathEscape(config.WorkspaceID),
		token:      config.Token,
		httpClient: httpClient,
	}
}

// ListMessages fetches one page of root messages. Zero limit uses the server default.
func (c *APIClient) ListMessages(
	ctx context.Context,
	channelID, cursor string,
	limit int,
) (messageapp.Page, error) {
	query := url.Values{}
	if cursor != "" {
		query.Set("cursor", cursor)
	}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}

	path := "/channels/" + url.PathEscape(channelID) + "/messages"
	if len(query) > 0 {
		path += "?" + query.Encode()
	}

	var page messageapp.Page
	if err := c.do(ctx, http.MethodGet, path, nil, &page); err != nil {
		return messageapp.Page{}, fmt.Errorf("list messages: %w", err)
	}
	return page, nil
}

// ListThread fetches a thread root with its replies.
func (c *APIClient) ListThread(ctx context.Context, messageID string) (messageapp.ThreadView, error) {
	var thread messageapp.ThreadView
	if err := c.do(ctx, http.MethodGet, "/messages/"+url.PathEscape(messageID)+"/thread", nil, &thread); err != nil {
		return messageapp.ThreadView{}, fmt.Errorf("list thread: %w", err)
	}
	return thread, nil
}

// CreateMessage posts a root message or a reply.
func (c *APIClient) CreateMessage(
	ctx context.Context,
	channelID string,
	input CreateInput,
) (messageapp.MessageView, error) {
	var view messageapp.MessageView
	path := "/channels/" + url.PathEscape(channelID) + "/messages"
	if err := c.do(ctx, http.MethodPost, path, input, &view); err != nil {
		return messageapp.MessageView{}, fmt.Errorf("create message: %w", err)
	}
	return view, nil
}

// UpdateMessage replaces message content.
func (c *APIClient) UpdateMessage(ctx context.Context, messageID, content string) (messageapp.UpdateResult, error) {
	var result messageapp.UpdateResult
	body := map[string]string{"content": content}
	if err := c.do(ctx, http.MethodPut, "/messages/"+url.PathEscape(messageID), body, &result); err != nil {
		return messageapp.UpdateResult{}, fmt.Errorf("update message: %w", err)
	}
	return result, nil
}

// ToggleReaction flips the caller's reaction.
func (c *APIClient) ToggleReaction(ctx context.Context, messageID, emoji string) (messageapp.ReactionsView, error) {
	var view messageapp.ReactionsView
	body := map[string]string{"emoji": emoji}
	if err := c.do(ctx, http.MethodPost, "/messages/"+url.PathEscape(messageID)+"/reactions", body, &view); err != nil {
		return messageapp.ReactionsView{}, fmt.Errorf("toggle reaction: %w", err)
	}
	return view, nil
}

// CreateChannel creates a channel in the workspace.
func (c *APIClient) CreateChannel(ctx context.Context, name string) (channelapp.View, error) {
	var view channelapp.View
	if err := c.do(ctx, http.MethodPost, "/channels", map[string]string{"name": name}, &view); err != nil {
		return channelapp.View{}, fmt.Errorf("create channel: %w", err)
	}
	return view, nil
}

// ListChannels returns the channels of the workspace.
func (c *APIClient) ListChannels(ctx context.Context) ([]channelapp.View, error) {
	var views []channelapp.View
	if err := c.do(ctx, http.MethodGet, "/channels", nil, &views); err != nil {
		return nil, fmt.Errorf("list channels: %w", err)
	}
	return views, nil
}

func (c *APIClient) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	var env envelope
	if decodeErr := json.NewDecoder(resp.Body).Decode(&env); decodeErr != nil {
		if resp.StatusCode >= http.StatusBadRequest {
			return &APIError{Status: resp.StatusCode, Code: "UNKNOWN", Message: http.StatusText(resp.StatusCode)}
		}
		return fmt.Errorf("failed to decode response: %w", decodeErr)
	}

	if resp.StatusCode >= http.StatusBadRequest || !env.Success {
		apiErr := &APIError{Status: resp.StatusCode}
		if env.Error != nil {
			apiErr.Code = env.Error.Code
			apiErr.Message = env.Error.Message
		}
		if seconds, convErr := strconv.Atoi(resp.Header.Get("Retry-After")); convErr == nil {
			apiErr.RetryAfter = time.Duration(seconds) * time.Second
		}
		return apiErr
	}

	if out == nil || len(env.Data) == 0 {
		return nil
	}
	if unmarshalErr := json.Unmarshal(env.Data, out); unmarshalErr != nil {
		return fmt.Errorf("failed to decode response data: %w", unmarshalErr)
	}
	return nil
}
