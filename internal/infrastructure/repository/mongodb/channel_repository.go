package mongodb

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/lllypuk/threadline/internal/domain/channel"
	"github.com/lllypuk/threadline/internal/domain/errs"
	"github.com/lllypuk/threadline/internal/domain/uuid"
)

// MongoChannelRepository реализует channelapp.Repository и messageapp.ChannelRepository
type MongoChannelRepository struct {
	collection *mongo.Collection
}

// NewMongoChannelRepository создает новый MongoDB Channel Repository
func NewMongoChannelRepository(collection *mongo.Collection) *MongoChannelRepository {
	return &MongoChannelRepository{collection: collection}
}

// FindByID находит канал по ID в рамках workspace
func (r *MongoChannelRepository) FindByID(
	ctx context.Context,
	workspaceID string,
	id uuid.UUID,
) (*channel.Channel, error) {
	if id.IsZero() || workspaceID == "" {
		return nil, errs.ErrInvalidInput
	}

	filter := bson.M{"channel_id": id.String(), "workspace_id": workspaceID}
	var doc channelDocument
	if err := r.collection.FindOne(ctx, filter).Decode(&doc); err != nil {
		return nil, HandleMongoError(err, "channel")
	}

	return documentToChannel(&doc)
}

// ListByWorkspace возвращает каналы workspace в порядке создания
func (r *MongoChannelRepository) ListByWorkspace(ctx context.Context, workspaceID string) ([]*channel.Channel, error) {
	if workspaceID == "" {
		return nil, errs.ErrInvalidInput
	}

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "channel_id", Value: 1}})
	cursor, err := r.collection.Find(ctx, bson.M{"workspace_id": workspaceID}, opts)
	if err != nil {
		return nil, HandleMongoError(err, "channels")
	}

	return decodeAll(ctx, cursor, documentToChannel)
}

// Save сохраняет канал. Дубликат имени в workspace возвращает errs.ErrAlreadyExists
func (r *MongoChannelRepository) Save(ctx context.Context, ch *channel.Channel) error {
	if ch == nil || ch.ID().IsZero() {
		return errs.ErrInvalidInput
	}

	doc := channelDocument{
		ChannelID:   ch.ID().String(),
		WorkspaceID: ch.WorkspaceID(),
		Name:        ch.Name(),
		CreatedBy:   ch.CreatedBy(),
		CreatedAt:   ch.CreatedAt(),
	}

	filter := bson.M{"channel_id": doc.ChannelID}
	_, err := r.collection.UpdateOne(ctx, filter, bson.M{"$set": doc}, UpsertOptions())
	return HandleMongoError(err, "channel")
}

type channelDocument struct {
	ChannelID   string    `bson:"channel_id"`
	WorkspaceID string    `bson:"workspace_id"`
	Name        string    `bson:"name"`
	CreatedBy   string    `bson:"created_by"`
	CreatedAt   time.Time `bson:"created_at"`
}

func documentToChannel(doc *channelDocument) (*channel.Channel, error) {
	id, err := uuid.ParseUUID(doc.ChannelID)
	if err != nil {
		return nil, errs.ErrInvalidInput
	}
	return channel.Reconstruct(id, doc.WorkspaceID, doc.Name, doc.CreatedBy, doc.CreatedAt), nil
}
