package message

import (
	"time"

	"github.com/lllypuk/threadline/internal/domain/message"
)

// MessageView is a message enriched with its derived reply count and grouped reactions.
// IDs are plain strings so the client cache can hold temporary ids next to persisted ones.
type MessageView struct {
	ID           string                  `json:"id"`
	ChannelID    string                  `json:"channel_id"`
	ThreadID     *string                 `json:"thread_id,omitempty"`
	AuthorID     string                  `json:"author_id"`
	AuthorEmail  string                  `json:"author_email"`
	AuthorName   string                  `json:"author_name"`
	AuthorAvatar string                  `json:"author_avatar"`
	Content      string                  `json:"content"`
	ImageURL     *string                 `json:"image_url,omitempty"`
	CreatedAt    time.Time               `json:"created_at"`
	UpdatedAt    time.Time               `json:"updated_at"`
	ReplyCount   int                     `json:"reply_count"`
	Reactions    []message.ReactionGroup `json:"reactions"`
}

// Page is one keyset batch, newest first.
type Page struct {
	Items      []MessageView `json:"items"`
	NextCursor *string       `json:"next_cursor,omitempty"`
}

// ThreadView holds a root message and its replies in ascending order.
type ThreadView struct {
	Parent   MessageView   `json:"parent"`
	Messages []MessageView `json:"messages"`
}

// ReactionsView is the grouped reaction view of a single message.
type ReactionsView struct {
	MessageID string                  `json:"message_id"`
	Reactions []message.ReactionGroup `json:"reactions"`
}

// UpdateResult is returned by a successful edit.
type UpdateResult struct {
	Message MessageView `json:"message"`
	CanEdit bool        `json:"can_edit"`
}

// ToMessageView converts a domain message without enrichment.
func ToMessageView(m *message.Message) MessageView {
	author := m.Author()
	view := MessageView{
		ID:           m.ID().String(),
		ChannelID:    m.ChannelID().String(),
		AuthorID:     author.ID,
		AuthorEmail:  author.Email,
		AuthorName:   author.Name,
		AuthorAvatar: author.Avatar,
		Content:      m.Content(),
		CreatedAt:    m.CreatedAt(),
		UpdatedAt:    m.UpdatedAt(),
		Reactions:    []message.ReactionGroup{},
	}
	if m.IsReply() {
		threadID := m.ThreadID().String()
		view.ThreadID = &threadID
	}
	if m.ImageURL() != "" {
		imageURL := m.ImageURL()
		view.ImageURL = &imageURL
	}
	return view
}
