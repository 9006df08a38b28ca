// Package gate implements the rate and abuse gate that runs before every mutation.
package gate

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/lllypuk/threadline/internal/domain/errs"
)

// Reason names why a request was rejected.
type Reason string

// Rejection reasons.
const (
	ReasonRateLimit     Reason = "rate_limit"
	ReasonSensitiveInfo Reason = "sensitive_info"
)

// Rejection is returned by Gate.Check. It implements httpserver.HTTPError and
// unwraps to errs.ErrRateLimited or errs.ErrPolicyRejected.
type Rejection struct {
	Reason     Reason
	RetryAfter time.Duration
	Findings   []Finding
}

func (r *Rejection) Error() string {
	switch r.Reason {
	case ReasonRateLimit:
		return fmt.Sprintf("rate limit exceeded, retry after %s", r.RetryAfter)
	case ReasonSensitiveInfo:
		return fmt.Sprintf("sensitive information detected (%d findings)", len(r.Findings))
	default:
		return "request blocked"
	}
}

// Unwrap returns the domain sentinel for the reason.
func (r *Rejection) Unwrap() error {
	if r.Reason == ReasonRateLimit {
		return errs.ErrRateLimited
	}
	return errs.ErrPolicyRejected
}

// HTTPStatus implements httpserver.HTTPError.
func (r *Rejection) HTTPStatus() int {
	if r.Reason == ReasonRateLimit {
		return http.StatusTooManyRequests
	}
	return http.StatusBadRequest
}

// HTTPCode implements httpserver.HTTPError.
func (r *Rejection) HTTPCode() string {
	if r.Reason == ReasonRateLimit {
		return "RATE_LIMITED"
	}
	return "SENSITIVE_INFO"
}

// HTTPMessage implements httpserver.HTTPError.
func (r *Rejection) HTTPMessage() string {
	if r.Reason == ReasonRateLimit {
		return "Too many requests, slow down."
	}
	return "Sensitive information detected. Please remove PII (e.g. Credit Card Data, Phone Number)"
}

// RetryAfterSeconds is the value for the Retry-After header, zero when not applicable.
func (r *Rejection) RetryAfterSeconds() string {
	if r.RetryAfter <= 0 {
		return ""
	}
	secs := int64(r.RetryAfter.Round(time.Second) / time.Second)
	return strconv.FormatInt(max(secs, 1), 10)
}
