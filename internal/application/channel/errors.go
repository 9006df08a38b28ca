package channel

import (
	"net/http"

	"github.com/lllypuk/threadline/internal/domain/errs"
)

// appError is a helper type that implements httpserver.HTTPError interface.
type appError struct {
	msg        string
	kind       error
	httpStatus int
	httpCode   string
	httpMsg    string
}

func (e *appError) Error() string       { return e.msg }
func (e *appError) Unwrap() error       { return e.kind }
func (e *appError) HTTPStatus() int     { return e.httpStatus }
func (e *appError) HTTPCode() string    { return e.httpCode }
func (e *appError) HTTPMessage() string { return e.httpMsg }

var (
	ErrChannelNotFound = &appError{
		msg:        "channel not found",
		kind:       errs.ErrNotFound,
		httpStatus: http.StatusNotFound,
		httpCode:   "CHANNEL_NOT_FOUND",
		httpMsg:    "channel not found",
	}
	ErrInvalidChannelName = &appError{
		msg:        "invalid channel name",
		kind:       errs.ErrInvalidInput,
		httpStatus: http.StatusBadRequest,
		httpCode:   "INVALID_CHANNEL_NAME",
		httpMsg:    "channel name must be 2-50 characters of letters, digits or dashes",
	}
	ErrChannelNameTaken = &appError{
		msg:        "channel name already taken",
		kind:       errs.ErrAlreadyExists,
		httpStatus: http.StatusConflict,
		httpCode:   "CHANNEL_NAME_TAKEN",
		httpMsg:    "a channel with this name already exists",
	}
)
