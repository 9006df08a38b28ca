// Package mongodb provides MongoDB infrastructure components including index management.
package mongodb

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// Collection names as constants for consistency.
const (
	CollectionChannels  = "channels"
	CollectionMessages  = "messages"
	CollectionReactions = "reactions"
)

// IndexDefinition describes a MongoDB index to be created.
type IndexDefinition struct {
	Name       string
	Collection string
	Keys       bson.D
	Unique     bool
}

func (d IndexDefinition) model() mongo.IndexModel {
	opts := options.Index().SetName(d.Name)
	if d.Unique {
		opts.SetUnique(true)
	}
	return mongo.IndexModel{Keys: d.Keys, Options: opts}
}

// CreateAllIndexes creates all necessary indexes for the application.
// This function is idempotent - calling it multiple times is safe.
func CreateAllIndexes(ctx context.Context, db *mongo.Database) error {
	for _, idx := range GetAllIndexDefinitions() {
		if _, err := db.Collection(idx.Collection).Indexes().CreateOne(ctx, idx.model()); err != nil {
			return fmt.Errorf("failed to create index %s on collection %s: %w", idx.Name, idx.Collection, err)
		}
	}
	return nil
}

// GetAllIndexDefinitions returns all index definitions for all collections.
func GetAllIndexDefinitions() []IndexDefinition {
	var indexes []IndexDefinition

	indexes = append(indexes, GetChannelIndexes()...)
	indexes = append(indexes, GetMessageIndexes()...)
	indexes = append(indexes, GetReactionIndexes()...)

	return indexes
}

// GetChannelIndexes returns index definitions for the channels collection.
func GetChannelIndexes() []IndexDefinition {
	return []IndexDefinition{
		{
			Name:       "idx_channels_id_unique",
			Collection: CollectionChannels,
			Keys:       bson.D{{Key: "channel_id", Value: 1}},
			Unique:     true,
		},
		{
			// Names are unique per workspace
			Name:       "idx_channels_workspace_name_unique",
			Collection: CollectionChannels,
			Keys:       bson.D{{Key: "workspace_id", Value: 1}, {Key: "name", Value: 1}},
			Unique:     true,
		},
		{
			Name:       "idx_channels_workspace_time",
			Collection: CollectionChannels,
			Keys:       bson.D{{Key: "workspace_id", Value: 1}, {Key: "created_at", Value: 1}},
		},
	}
}

// GetMessageIndexes returns index definitions for the messages collection.
func GetMessageIndexes() []IndexDefinition {
	return []IndexDefinition{
		{
			Name:       "idx_messages_id_unique",
			Collection: CollectionMessages,
			Keys:       bson.D{{Key: "message_id", Value: 1}},
			Unique:     true,
		},
		{
			// Keyset feed query: roots of a channel by (created_at desc, message_id desc)
			Name:       "idx_messages_feed",
			Collection: CollectionMessages,
			Keys: bson.D{
				{Key: "channel_id", Value: 1},
				{Key: "thread_id", Value: 1},
				{Key: "created_at", Value: -1},
				{Key: "message_id", Value: -1},
			},
		},
		{
			Name:       "idx_messages_thread",
			Collection: CollectionMessages,
			Keys:       bson.D{{Key: "thread_id", Value: 1}, {Key: "created_at", Value: 1}, {Key: "message_id", Value: 1}},
		},
	}
}

// GetReactionIndexes returns index definitions for the reactions collection.
func GetReactionIndexes() []IndexDefinition {
	return []IndexDefinition{
		{
			// One row per (message, user, emoji); the toggle relies on it
			Name:       "idx_reactions_triple_unique",
			Collection: CollectionReactions,
			Keys:       bson.D{{Key: "message_id", Value: 1}, {Key: "user_id", Value: 1}, {Key: "emoji", Value: 1}},
			Unique:     true,
		},
		{
			Name:       "idx_reactions_message_time",
			Collection: CollectionReactions,
			Keys:       bson.D{{Key: "message_id", Value: 1}, {Key: "created_at", Value: 1}},
		},
	}
}

// EnsureIndexes is an alias for CreateAllIndexes for semantic clarity.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	return CreateAllIndexes(ctx, db)
}
