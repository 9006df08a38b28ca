package channel

import (
	"errors"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/lllypuk/threadline/internal/domain/errs"
	"github.com/lllypuk/threadline/internal/domain/uuid"
)

const (
	// MinNameLength минимальная длина имени канала
	MinNameLength = 2
	// MaxNameLength максимальная длина имени канала
	MaxNameLength = 50
)

// ErrInvalidName имя канала после нормализации слишком короткое
var ErrInvalidName = errors.New("channel name must contain at least 2 characters after normalization")

var (
	whitespaceRun = regexp.MustCompile(`\s+`)
	disallowed    = regexp.MustCompile(`[^a-z0-9-]`)
	dashRun       = regexp.MustCompile(`-+`)
)

// Channel канал рабочего пространства
type Channel struct {
	id          uuid.UUID
	workspaceID string
	name        string
	createdBy   string
	createdAt   time.Time
}

// NewChannel создает канал с нормализованным именем
func NewChannel(workspaceID, name, createdBy string) (*Channel, error) {
	if workspaceID == "" || createdBy == "" {
		return nil, errs.ErrInvalidInput
	}
	length := utf8.RuneCountInString(name)
	if length < MinNameLength || length > MaxNameLength {
		return nil, errs.ErrInvalidInput
	}

	normalized := NormalizeName(name)
	if len(normalized) < MinNameLength {
		return nil, ErrInvalidName
	}

	return &Channel{
		id:          uuid.NewUUID(),
		workspaceID: workspaceID,
		name:        normalized,
		createdBy:   createdBy,
		createdAt:   time.Now().UTC(),
	}, nil
}

// NormalizeName приводит имя к виду "lower-case-slug"
func NormalizeName(name string) string {
	s := strings.ToLower(name)
	s = whitespaceRun.ReplaceAllString(s, "-")
	s = disallowed.ReplaceAllString(s, "")
	s = dashRun.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// Reconstruct восстанавливает канал из хранилища
func Reconstruct(id uuid.UUID, workspaceID, name, createdBy string, createdAt time.Time) *Channel {
	return &Channel{
		id:          id,
		workspaceID: workspaceID,
		name:        name,
		createdBy:   createdBy,
		createdAt:   createdAt,
	}
}

// ID возвращает ID канала
func (c *Channel) ID() uuid.UUID { return c.id }

// WorkspaceID возвращает ID рабочего пространства
func (c *Channel) WorkspaceID() string { return c.workspaceID }

// Name возвращает имя канала
func (c *Channel) Name() string { return c.name }

// CreatedBy возвращает ID создателя
func (c *Channel) CreatedBy() string { return c.createdBy }

// CreatedAt возвращает время создания
func (c *Channel) CreatedAt() time.Time { return c.createdAt }
