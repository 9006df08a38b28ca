package message

import (
	"time"
	"unicode/utf8"

	"github.com/lllypuk/threadline/internal/domain/errs"
	"github.com/lllypuk/threadline/internal/domain/uuid"
)

// MaxEmojiLength максимальная длина эмоджи в байтах (с учетом ZWJ-последовательностей)
const MaxEmojiLength = 64

// Reaction строка реакции: не более одной на тройку (сообщение, пользователь, эмоджи)
type Reaction struct {
	messageID uuid.UUID
	userID    string
	emoji     string
	createdAt time.Time
}

// NewReaction создает новую реакцию
func NewReaction(messageID uuid.UUID, userID string, emoji string) (Reaction, error) {
	if messageID.IsZero() || userID == "" {
		return Reaction{}, errs.ErrInvalidInput
	}
	if err := ValidateEmoji(emoji); err != nil {
		return Reaction{}, err
	}

	return Reaction{
		messageID: messageID,
		userID:    userID,
		emoji:     emoji,
		createdAt: time.Now().UTC(),
	}, nil
}

// ReconstructReaction восстанавливает реакцию из хранилища
func ReconstructReaction(messageID uuid.UUID, userID, emoji string, createdAt time.Time) Reaction {
	return Reaction{
		messageID: messageID,
		userID:    userID,
		emoji:     emoji,
		createdAt: createdAt,
	}
}

// ValidateEmoji проверяет символ реакции
func ValidateEmoji(emoji string) error {
	if emoji == "" || len(emoji) > MaxEmojiLength || !utf8.ValidString(emoji) {
		return errs.ErrInvalidInput
	}
	return nil
}

// MessageID возвращает ID сообщения
func (r Reaction) MessageID() uuid.UUID {
	return r.messageID
}

// UserID возвращает ID пользователя
func (r Reaction) UserID() string {
	return r.userID
}

// Emoji возвращает символ реакции
func (r Reaction) Emoji() string {
	return r.emoji
}

// CreatedAt возвращает время добавления реакции
func (r Reaction) CreatedAt() time.Time {
	return r.createdAt
}
