package message

import (
	"github.com/lllypuk/threadline/internal/application/appcore"
	"github.com/lllypuk/threadline/internal/domain/uuid"
)

// ListMessagesQuery - страница корневых сообщений канала
type ListMessagesQuery struct {
	Caller    appcore.Caller
	ChannelID uuid.UUID
	Cursor    uuid.UUID // пустой для первой страницы
	Limit     int       // 0 = DefaultLimit, иначе 1..MaxLimit
}

// ListThreadQuery - корневое сообщение и ответы на него
type ListThreadQuery struct {
	Caller    appcore.Caller
	MessageID uuid.UUID
}
