package message

import (
	"net/http"

	"github.com/lllypuk/threadline/internal/domain/errs"
)

// appError is a helper type that implements httpserver.HTTPError interface.
// kind links it to a domain sentinel so callers can use errors.Is.
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
	// ErrInvalidContent indicates empty or oversized message content
	ErrInvalidContent = &appError{
		msg:        "message content is empty or too long",
		kind:       errs.ErrInvalidInput,
		httpStatus: http.StatusBadRequest,
		httpCode:   "INVALID_CONTENT",
		httpMsg:    "message content must be non-empty and at most 10000 characters",
	}
	ErrInvalidImageURL = &appError{
		msg:        "invalid image url",
		kind:       errs.ErrInvalidInput,
		httpStatus: http.StatusBadRequest,
		httpCode:   "INVALID_IMAGE_URL",
		httpMsg:    "image url must be an absolute http(s) url",
	}
	ErrInvalidEmoji = &appError{
		msg:        "invalid emoji",
		kind:       errs.ErrInvalidInput,
		httpStatus: http.StatusBadRequest,
		httpCode:   "INVALID_EMOJI",
		httpMsg:    "invalid emoji",
	}
	ErrInvalidLimit = &appError{
		msg:        "limit out of range",
		kind:       errs.ErrInvalidInput,
		httpStatus: http.StatusBadRequest,
		httpCode:   "INVALID_LIMIT",
		httpMsg:    "limit must be between 1 and 100",
	}
	ErrInvalidCursor = &appError{
		msg:        "invalid cursor",
		kind:       errs.ErrInvalidInput,
		httpStatus: http.StatusBadRequest,
		httpCode:   "INVALID_CURSOR",
		httpMsg:    "cursor must be a message id",
	}

	// ErrReplyWrongChannel indicates a reply whose parent lives in another channel
	ErrReplyWrongChannel = &appError{
		msg:        "reply targets wrong channel",
		kind:       errs.ErrInvalidInput,
		httpStatus: http.StatusBadRequest,
		httpCode:   "REPLY_WRONG_CHANNEL",
		httpMsg:    "reply targets wrong channel",
	}
	ErrReplyToReply = &appError{
		msg:        "cannot reply to a reply",
		kind:       errs.ErrInvalidInput,
		httpStatus: http.StatusBadRequest,
		httpCode:   "REPLY_TO_REPLY",
		httpMsg:    "cannot reply to a reply",
	}

	// ErrMessageNotFound covers both missing messages and messages outside the caller's workspace
	ErrMessageNotFound = &appError{
		msg:        "message not found",
		kind:       errs.ErrNotFound,
		httpStatus: http.StatusNotFound,
		httpCode:   "MESSAGE_NOT_FOUND",
		httpMsg:    "message not found",
	}
	ErrChannelNotFound = &appError{
		msg:        "channel not found",
		kind:       errs.ErrNotFound,
		httpStatus: http.StatusNotFound,
		httpCode:   "CHANNEL_NOT_FOUND",
		httpMsg:    "channel not found",
	}

	// ErrNotAuthor indicates an edit attempt by someone other than the author
	ErrNotAuthor = &appError{
		msg:        "user is not the message author",
		kind:       errs.ErrForbidden,
		httpStatus: http.StatusForbidden,
		httpCode:   "NOT_AUTHOR",
		httpMsg:    "only message author can edit",
	}
)

const (
	// DefaultLimit количество сообщений на страницу по умолчанию
	DefaultLimit = 30
	// MaxLimit максимальное количество сообщений за раз
	MaxLimit = 100
)
