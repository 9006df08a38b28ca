// Package auth validates bearer tokens issued by the identity provider.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/MicahParks/jwkset"
	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"
)

// JWT validation errors.
var (
	ErrInvalidToken    = errors.New("invalid token")
	ErrInvalidClaims   = errors.New("invalid claims")
	ErrMissingSubject  = errors.New("missing subject claim")
	ErrTokenExpired    = errors.New("token expired")
	ErrInvalidIssuer   = errors.New("invalid issuer")
	ErrInvalidAudience = errors.New("invalid audience")
	ErrJWKSFetchFailed = errors.New("failed to fetch JWKS")
	ErrNoSigningKey    = errors.New("either a JWKS URL or an HMAC secret is required")
)

// Default configuration values.
const (
	DefaultLeeway          = 30 * time.Second
	DefaultRefreshInterval = 1 * time.Hour
)

// Claims are the identity fields the feed needs from a validated token.
type Claims struct {
	UserID    string
	Email     string
	GivenName string
	Picture   string

	// Workspaces lists the organization codes the user belongs to,
	// taken from org_codes and org_code.
	Workspaces []string

	IssuedAt  time.Time
	ExpiresAt time.Time
}

// HasWorkspace reports whether the token grants access to workspaceID.
func (c *Claims) HasWorkspace(workspaceID string) bool {
	return slices.Contains(c.Workspaces, workspaceID)
}

// Config contains configuration for the validator.
// JWKSURL takes precedence over HMACSecret.
type Config struct {
	JWKSURL         string
	HMACSecret      string
	Issuer          string
	Audience        string
	Leeway          time.Duration
	RefreshInterval time.Duration
	Logger          *slog.Logger
}

// JWTValidator validates signed JWTs.
type JWTValidator struct {
	keyfunc jwt.Keyfunc
	methods []string
	config  Config
	logger  *slog.Logger
	cancel  context.CancelFunc
}

// NewJWTValidator creates a validator backed by a remote JWKS or a shared secret.
func NewJWTValidator(config Config) (*JWTValidator, error) {
	if config.Leeway == 0 {
		config.Leeway = DefaultLeeway
	}
	if config.RefreshInterval == 0 {
		config.RefreshInterval = DefaultRefreshInterval
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	v := &JWTValidator{config: config, logger: logger}

	switch {
	case config.JWKSURL != "":
		if err := v.initJWKS(); err != nil {
			return nil, err
		}
	case config.HMACSecret != "":
		secret := []byte(config.HMACSecret)
		v.keyfunc = func(*jwt.Token) (any, error) { return secret, nil }
		v.methods = []string{jwt.SigningMethodHS256.Alg(), jwt.SigningMethodHS384.Alg(), jwt.SigningMethodHS512.Alg()}
		logger.Warn("JWT validator uses a shared HMAC secret")
	default:
		return nil, ErrNoSigningKey
	}

	return v, nil
}

func (v *JWTValidator) initJWKS() error {
	v.logger.Info("initializing JWT validator",
		slog.String("jwks_url", v.config.JWKSURL),
		slog.Duration("refresh_interval", v.config.RefreshInterval),
	)

	ctx, cancel := context.WithCancel(context.Background())

	storage, err := jwkset.NewStorageFromHTTP(v.config.JWKSURL, jwkset.HTTPClientStorageOptions{
		Ctx:             ctx,
		RefreshInterval: v.config.RefreshInterval,
		RefreshErrorHandler: func(_ context.Context, err error) {
			v.logger.Error("failed to refresh JWKS", slog.Any("error", err))
		},
	})
	if err != nil {
		cancel()
		return fmt.Errorf("%w: %w", ErrJWKSFetchFailed, err)
	}

	jwks, err := keyfunc.New(keyfunc.Options{
		Ctx:     ctx,
		Storage: storage,
	})
	if err != nil {
		cancel()
		return fmt.Errorf("%w: %w", ErrJWKSFetchFailed, err)
	}

	v.keyfunc = jwks.Keyfunc
	v.methods = []string{
		jwt.SigningMethodRS256.Alg(), jwt.SigningMethodRS384.Alg(), jwt.SigningMethodRS512.Alg(),
		jwt.SigningMethodES256.Alg(), jwt.SigningMethodES384.Alg(), jwt.SigningMethodES512.Alg(),
	}
	v.cancel = cancel
	return nil
}

// Validate validates token and returns claims.
func (v *JWTValidator) Validate(_ context.Context, tokenString string) (*Claims, error) {
	if tokenString == "" {
		return nil, ErrInvalidToken
	}

	parserOpts := []jwt.ParserOption{
		jwt.WithLeeway(v.config.Leeway),
		jwt.WithIssuedAt(),
		jwt.WithExpirationRequired(),
		jwt.WithValidMethods(v.methods),
	}
	if v.config.Issuer != "" {
		parserOpts = append(parserOpts, jwt.WithIssuer(v.config.Issuer))
	}
	if v.config.Audience != "" {
		parserOpts = append(parserOpts, jwt.WithAudience(v.config.Audience))
	}

	token, err := jwt.Parse(tokenString, v.keyfunc, parserOpts...)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, fmt.Errorf("%w: %w", ErrTokenExpired, err)
		case errors.Is(err, jwt.ErrTokenInvalidIssuer):
			return nil, fmt.Errorf("%w: %w", ErrInvalidIssuer, err)
		case errors.Is(err, jwt.ErrTokenInvalidAudience):
			return nil, fmt.Errorf("%w: %w", ErrInvalidAudience, err)
		default:
			return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
		}
	}

	if !token.Valid {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidClaims
	}

	return extractClaims(claims)
}

func extractClaims(claims jwt.MapClaims) (*Claims, error) {
	c := &Claims{}

	c.UserID, _ = claims["sub"].(string)
	if c.UserID == "" {
		return nil, ErrMissingSubject
	}

	c.Email, _ = claims["email"].(string)
	c.GivenName, _ = claims["given_name"].(string)
	c.Picture, _ = claims["picture"].(string)

	if codes, ok := claims["org_codes"].([]any); ok {
		for _, code := range codes {
			if s, isString := code.(string); isString && s != "" {
				c.Workspaces = append(c.Workspaces, s)
			}
		}
	}
	if code, ok := claims["org_code"].(string); ok && code != "" && !c.HasWorkspace(code) {
		c.Workspaces = append(c.Workspaces, code)
	}

	if iat, err := claims.GetIssuedAt(); err == nil && iat != nil {
		c.IssuedAt = iat.Time
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		c.ExpiresAt = exp.Time
	}

	return c, nil
}

// Close stops background JWKS refresh.
func (v *JWTValidator) Close() error {
	if v.cancel != nil {
		v.cancel()
	}
	return nil
}
