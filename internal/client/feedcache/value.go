package feedcache

import (
	messageapp "github.com/lllypuk/threadline/internal/application/message"
	"github.com/lllypuk/threadline/internal/domain/message"
)

// Value is a cached query result. It is either *FeedValue or *ThreadValue.
type Value interface {
	clone() Value

	// Holds reports whether the value contains the message.
	Holds(messageID string) bool

	// patchMessage applies fn to every copy of the message and reports whether one was found.
	patchMessage(messageID string, fn func(*messageapp.MessageView)) bool
}

// FeedValue holds the loaded pages of a channel feed, newest page first.
// Items inside a page are ordered newest first as well.
type FeedValue struct {
	Pages []messageapp.Page
}

// Items returns the feed in display order, oldest first.
func (v *FeedValue) Items() []messageapp.MessageView {
	return messageapp.AssembleAscending(v.Pages)
}

// NextCursor returns the cursor of the oldest loaded page, or "" when the feed is exhausted.
func (v *FeedValue) NextCursor() string {
	if len(v.Pages) == 0 {
		return ""
	}
	last := v.Pages[len(v.Pages)-1]
	if last.NextCursor == nil {
		return ""
	}
	return *last.NextCursor
}

// Holds reports whether any loaded page contains the message.
func (v *FeedValue) Holds(messageID string) bool {
	if v == nil {
		return false
	}
	for _, page := range v.Pages {
		for _, item := range page.Items {
			if item.ID == messageID {
				return true
			}
		}
	}
	return false
}

// Len returns the number of loaded items.
func (v *FeedValue) Len() int {
	n := 0
	for _, page := range v.Pages {
		n += len(page.Items)
	}
	return n
}

func (v *FeedValue) clone() Value {
	if v == nil {
		return nil
	}
	out := &FeedValue{Pages: make([]messageapp.Page, len(v.Pages))}
	for i, page := range v.Pages {
		items := make([]messageapp.MessageView, len(page.Items))
		for j, item := range page.Items {
			items[j] = cloneView(item)
		}
		out.Pages[i] = messageapp.Page{Items: items, NextCursor: cloneString(page.NextCursor)}
	}
	return out
}

func (v *FeedValue) patchMessage(messageID string, fn func(*messageapp.MessageView)) bool {
	found := false
	for i := range v.Pages {
		for j := range v.Pages[i].Items {
			if v.Pages[i].Items[j].ID == messageID {
				fn(&v.Pages[i].Items[j])
				found = true
			}
		}
	}
	return found
}

// prepend inserts a message at the newest position of the first page.
func (v *FeedValue) prepend(view messageapp.MessageView) {
	if len(v.Pages) == 0 {
		v.Pages = []messageapp.Page{{Items: []messageapp.MessageView{view}}}
		return
	}
	first := v.Pages[0]
	items := make([]messageapp.MessageView, 0, len(first.Items)+1)
	items = append(items, view)
	items = append(items, first.Items...)
	v.Pages[0] = messageapp.Page{Items: items, NextCursor: first.NextCursor}
}

// ThreadValue holds a thread root and its replies in ascending order.
type ThreadValue struct {
	Parent   messageapp.MessageView
	Messages []messageapp.MessageView
}

// Holds reports whether the message is the thread root or one of its replies.
func (v *ThreadValue) Holds(messageID string) bool {
	if v == nil {
		return false
	}
	if v.Parent.ID == messageID {
		return true
	}
	for _, item := range v.Messages {
		if item.ID == messageID {
			return true
		}
	}
	return false
}

func (v *ThreadValue) clone() Value {
	if v == nil {
		return nil
	}
	out := &ThreadValue{
		Parent:   cloneView(v.Parent),
		Messages: make([]messageapp.MessageView, len(v.Messages)),
	}
	for i, item := range v.Messages {
		out.Messages[i] = cloneView(item)
	}
	return out
}

func (v *ThreadValue) patchMessage(messageID string, fn func(*messageapp.MessageView)) bool {
	found := false
	if v.Parent.ID == messageID {
		fn(&v.Parent)
		found = true
	}
	for i := range v.Messages {
		if v.Messages[i].ID == messageID {
			fn(&v.Messages[i])
			found = true
		}
	}
	return found
}

func cloneView(view messageapp.MessageView) messageapp.MessageView {
	out := view
	out.ThreadID = cloneString(view.ThreadID)
	out.ImageURL = cloneString(view.ImageURL)
	if view.Reactions != nil {
		out.Reactions = make([]message.ReactionGroup, len(view.Reactions))
		copy(out.Reactions, view.Reactions)
	}
	return out
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func cloneValue(v Value) Value {
	if v == nil {
		return nil
	}
	return v.clone()
}
