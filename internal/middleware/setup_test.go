package middleware_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"github.com/lllypuk/threadline/internal/infrastructure/auth"
)

// fakeValidator accepts a fixed set of tokens.
type fakeValidator struct {
	tokens map[string]*auth.Claims
	err    error
}

func (v *fakeValidator) Validate(_ context.Context, token string) (*auth.Claims, error) {
	if v.err != nil {
		return nil, v.err
	}
	claims, ok := v.tokens[token]
	if !ok {
		return nil, auth.ErrInvalidToken
	}
	return claims, nil
}

func aliceValidator() *fakeValidator {
	return &fakeValidator{tokens: map[string]*auth.Claims{
		"alice-token": {
			UserID:     "kp_alice",
			Email:      "alice@example.com",
			GivenName:  "Alice",
			Picture:    "https://cdn.example.com/alice.png",
			Workspaces: []string{"org_acme"},
		},
	}}
}

func serve(e *echo.Echo, method, target string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()

	var body struct {
		Success bool `json:"success"`
		Error   struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.False(t, body.Success)
	return body.Error.Code
}

func okHandler(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}
