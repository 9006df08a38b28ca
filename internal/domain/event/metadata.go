package event

import "time"

// Metadata содержит метаданные события
type Metadata struct {
	UserID        string    `json:"user_id,omitempty"`
	WorkspaceID   string    `json:"workspace_id,omitempty"`
	CorrelationID string    `json:"correlation_id,omitempty"`
	Timestamp     time.Time `json:"timestamp,omitempty"`
}

// NewMetadata создает новые метаданные
func NewMetadata(userID, workspaceID, correlationID string) Metadata {
	return Metadata{
		UserID:        userID,
		WorkspaceID:   workspaceID,
		CorrelationID: correlationID,
		Timestamp:     time.Now().UTC(),
	}
}
