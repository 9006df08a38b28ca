package message

import (
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/lllypuk/threadline/internal/domain/errs"
	"github.com/lllypuk/threadline/internal/domain/uuid"
)

const (
	// MaxContentLength максимальная длина содержимого сообщения
	MaxContentLength = 10000

	// MaxImageURLLength максимальная длина ссылки на изображение
	MaxImageURLLength = 2048
)

var (
	// ErrReplyWrongChannel ответ ссылается на сообщение из другого канала
	ErrReplyWrongChannel = errors.New("reply targets wrong channel")

	// ErrReplyToReply ответ на сообщение, которое само является ответом
	ErrReplyToReply = errors.New("cannot reply to a reply")
)

// Author данные автора, снятые с токена в момент создания сообщения
type Author struct {
	ID     string
	Email  string
	Name   string
	Avatar string
}

// Message представляет сообщение в канале или ответ в треде
type Message struct {
	id          uuid.UUID
	workspaceID string
	channelID   uuid.UUID
	threadID    uuid.UUID // пустой для корневых сообщений
	author      Author
	content     string
	imageURL    string
	createdAt   time.Time
	updatedAt   time.Time
}

// NewMessage создает корневое сообщение канала
func NewMessage(
	workspaceID string,
	channelID uuid.UUID,
	author Author,
	content string,
	imageURL string,
) (*Message, error) {
	if workspaceID == "" || channelID.IsZero() || author.ID == "" {
		return nil, errs.ErrInvalidInput
	}
	if err := ValidateContent(content); err != nil {
		return nil, err
	}
	if err := ValidateImageURL(imageURL); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	return &Message{
		id:          uuid.NewUUID(),
		workspaceID: workspaceID,
		channelID:   channelID,
		author:      author,
		content:     content,
		imageURL:    imageURL,
		createdAt:   now,
		updatedAt:   now,
	}, nil
}

// NewReply создает ответ в треде parent.
// Проверки выполняются в фиксированном порядке: сначала канал, затем глубина вложенности.
func NewReply(
	parent *Message,
	channelID uuid.UUID,
	author Author,
	content string,
	imageURL string,
) (*Message, error) {
	if parent == nil {
		return nil, errs.ErrNotFound
	}
	if parent.channelID != channelID {
		return nil, ErrReplyWrongChannel
	}
	if parent.IsReply() {
		return nil, ErrReplyToReply
	}

	reply, err := NewMessage(parent.workspaceID, channelID, author, content, imageURL)
	if err != nil {
		return nil, err
	}
	reply.threadID = parent.id
	return reply, nil
}

// Reconstruct восстанавливает сообщение из хранилища без валидации
func Reconstruct(
	id uuid.UUID,
	workspaceID string,
	channelID uuid.UUID,
	threadID uuid.UUID,
	author Author,
	content string,
	imageURL string,
	createdAt time.Time,
	updatedAt time.Time,
) *Message {
	return &Message{
		id:          id,
		workspaceID: workspaceID,
		channelID:   channelID,
		threadID:    threadID,
		author:      author,
		content:     content,
		imageURL:    imageURL,
		createdAt:   createdAt,
		updatedAt:   updatedAt,
	}
}

// EditContent заменяет содержимое. Редактировать может только автор.
func (m *Message) EditContent(content string, editorID string) error {
	if !m.CanBeEditedBy(editorID) {
		return errs.ErrForbidden
	}
	if err := ValidateContent(content); err != nil {
		return err
	}

	m.content = content
	m.updatedAt = time.Now().UTC()
	return nil
}

// CanBeEditedBy проверяет, может ли пользователь редактировать сообщение
func (m *Message) CanBeEditedBy(userID string) bool {
	return userID != "" && m.author.ID == userID
}

// IsReply проверяет, является ли сообщение ответом в треде
func (m *Message) IsReply() bool {
	return !m.threadID.IsZero()
}

// ID возвращает ID сообщения
func (m *Message) ID() uuid.UUID {
	return m.id
}

// WorkspaceID возвращает ID рабочего пространства
func (m *Message) WorkspaceID() string {
	return m.workspaceID
}

// ChannelID возвращает ID канала
func (m *Message) ChannelID() uuid.UUID {
	return m.channelID
}

// ThreadID возвращает ID родительского сообщения треда
func (m *Message) ThreadID() uuid.UUID {
	return m.threadID
}

// Author возвращает данные автора
func (m *Message) Author() Author {
	return m.author
}

// Content возвращает содержимое сообщения
func (m *Message) Content() string {
	return m.content
}

// ImageURL возвращает ссылку на изображение
func (m *Message) ImageURL() string {
	return m.imageURL
}

// CreatedAt возвращает время создания
func (m *Message) CreatedAt() time.Time {
	return m.createdAt
}

// UpdatedAt возвращает время последнего изменения
func (m *Message) UpdatedAt() time.Time {
	return m.updatedAt
}

// ValidateContent проверяет содержимое: непустое и не длиннее MaxContentLength
func ValidateContent(content string) error {
	if strings.TrimSpace(content) == "" {
		return errs.ErrInvalidInput
	}
	if len(content) > MaxContentLength {
		return errs.ErrInvalidInput
	}
	return nil
}

// ValidateImageURL проверяет необязательную абсолютную http(s) ссылку
func ValidateImageURL(raw string) error {
	if raw == "" {
		return nil
	}
	if len(raw) > MaxImageURLLength {
		return errs.ErrInvalidInput
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return errs.ErrInvalidInput
	}
	return nil
}
