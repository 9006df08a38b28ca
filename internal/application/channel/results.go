package channel

import (
	"time"

	"github.com/lllypuk/threadline/internal/domain/channel"
)

// View is the API representation of a channel.
type View struct {
	ID          string    `json:"id"`
	WorkspaceID string    `json:"workspace_id"`
	Name        string    `json:"name"`
	CreatedBy   string    `json:"created_by"`
	CreatedAt   time.Time `json:"created_at"`
}

// ToView converts a domain channel.
func ToView(ch *channel.Channel) View {
	return View{
		ID:          ch.ID().String(),
		WorkspaceID: ch.WorkspaceID(),
		Name:        ch.Name(),
		CreatedBy:   ch.CreatedBy(),
		CreatedAt:   ch.CreatedAt(),
	}
}
