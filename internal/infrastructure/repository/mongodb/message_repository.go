package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	messageapp "github.com/lllypuk/threadline/internal/application/message"
	"github.com/lllypuk/threadline/internal/domain/errs"
	messagedomain "github.com/lllypuk/threadline/internal/domain/message"
	"github.com/lllypuk/threadline/internal/domain/uuid"
)

// MongoMessageRepository реализует messageapp.MessageRepository
type MongoMessageRepository struct {
	collection *mongo.Collection
}

// NewMongoMessageRepository создает новый MongoDB Message Repository
func NewMongoMessageRepository(collection *mongo.Collection) *MongoMessageRepository {
	return &MongoMessageRepository{collection: collection}
}

// FindByID находит сообщение по ID в рамках workspace
func (r *MongoMessageRepository) FindByID(
	ctx context.Context,
	workspaceID string,
	id uuid.UUID,
) (*messagedomain.Message, error) {
	if id.IsZero() {
		return nil, errs.ErrInvalidInput
	}

	filter := bson.M{"message_id": id.String(), "workspace_id": workspaceID}
	var doc messageDocument
	if err := r.collection.FindOne(ctx, filter).Decode(&doc); err != nil {
		return nil, HandleMongoError(err, "message")
	}

	return documentToMessage(&doc)
}

// FindPage возвращает корневые сообщения канала от новых к старым, строго после курсора
func (r *MongoMessageRepository) FindPage(
	ctx context.Context,
	query messageapp.PageQuery,
) ([]*messagedomain.Message, error) {
	if query.ChannelID.IsZero() || query.Limit <= 0 {
		return nil, errs.ErrInvalidInput
	}

	filter := bson.M{
		"channel_id": query.ChannelID.String(),
		"thread_id":  nil,
	}

	if !query.Cursor.IsZero() {
		after, err := r.afterCursor(ctx, query.ChannelID, query.Cursor)
		if err != nil {
			return nil, err
		}
		for k, v := range after {
			filter[k] = v
		}
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "message_id", Value: -1}}).
		SetLimit(int64(query.Limit))

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, HandleMongoError(err, "messages")
	}

	return decodeAll(ctx, cursor, documentToMessage)
}

// afterCursor builds the keyset predicate. When the cursor row is gone the
// predicate falls back to message_id alone, which UUIDv7 orders by creation.
func (r *MongoMessageRepository) afterCursor(
	ctx context.Context,
	channelID uuid.UUID,
	cursorID uuid.UUID,
) (bson.M, error) {
	var anchor messageDocument
	err := r.collection.FindOne(ctx, bson.M{
		"message_id": cursorID.String(),
		"channel_id": channelID.String(),
	}).Decode(&anchor)

	if errors.Is(err, mongo.ErrNoDocuments) {
		return bson.M{"message_id": bson.M{"$lt": cursorID.String()}}, nil
	}
	if err != nil {
		return nil, HandleMongoError(err, "message")
	}

	return bson.M{"$or": bson.A{
		bson.M{"created_at": bson.M{"$lt": anchor.CreatedAt}},
		bson.M{"created_at": anchor.CreatedAt, "message_id": bson.M{"$lt": anchor.MessageID}},
	}}, nil
}

// FindThread находит все ответы в треде, от старых к новым
func (r *MongoMessageRepository) FindThread(
	ctx context.Context,
	parentID uuid.UUID,
) ([]*messagedomain.Message, error) {
	if parentID.IsZero() {
		return nil, errs.ErrInvalidInput
	}

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "message_id", Value: 1}})
	cursor, err := r.collection.Find(ctx, bson.M{"thread_id": parentID.String()}, opts)
	if err != nil {
		return nil, HandleMongoError(err, "message_thread")
	}

	return decodeAll(ctx, cursor, documentToMessage)
}

// CountReplies считает ответы для каждого корневого сообщения
func (r *MongoMessageRepository) CountReplies(
	ctx context.Context,
	parentIDs []uuid.UUID,
) (map[uuid.UUID]int, error) {
	counts := make(map[uuid.UUID]int, len(parentIDs))
	if len(parentIDs) == 0 {
		return counts, nil
	}

	ids := make(bson.A, 0, len(parentIDs))
	for _, id := range parentIDs {
		ids = append(ids, id.String())
	}

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"thread_id": bson.M{"$in": ids}}}},
		{{Key: "$group", Value: bson.M{"_id": "$thread_id", "count": bson.M{"$sum": 1}}}},
	}

	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, HandleMongoError(err, "message_replies")
	}

	return decodeReplyCounts(ctx, cursor, counts)
}

// decodeReplyCounts drains the $group cursor of CountReplies into counts.
// A row that fails to decode fails the whole count.
func decodeReplyCounts(
	ctx context.Context,
	cursor *mongo.Cursor,
	counts map[uuid.UUID]int,
) (map[uuid.UUID]int, error) {
	defer cursor.Close(ctx)

	for cursor.Next(ctx) {
		var row struct {
			ThreadID string `bson:"_id"`
			Count    int    `bson:"count"`
		}
		if err := cursor.Decode(&row); err != nil {
			return nil, fmt.Errorf("failed to decode reply count: %w", err)
		}
		counts[uuid.UUID(row.ThreadID)] = row.Count
	}

	if err := cursor.Err(); err != nil {
		return nil, HandleMongoError(err, "message_replies")
	}
	return counts, nil
}

// Save сохраняет сообщение (создание или обновление)
func (r *MongoMessageRepository) Save(ctx context.Context, message *messagedomain.Message) error {
	if message == nil || message.ID().IsZero() {
		return errs.ErrInvalidInput
	}

	doc := messageToDocument(message)
	filter := bson.M{"message_id": doc.MessageID}
	_, err := r.collection.UpdateOne(ctx, filter, bson.M{"$set": doc}, UpsertOptions())
	return HandleMongoError(err, "message")
}

// Delete физически удаляет сообщение
func (r *MongoMessageRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if id.IsZero() {
		return errs.ErrInvalidInput
	}

	result, err := r.collection.DeleteOne(ctx, bson.M{"message_id": id.String()})
	if err != nil {
		return HandleMongoError(err, "message")
	}
	if result.DeletedCount == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// messageDocument представляет структуру документа в MongoDB.
// thread_id отсутствует у корневых сообщений.
type messageDocument struct {
	MessageID    string    `bson:"message_id"`
	WorkspaceID  string    `bson:"workspace_id"`
	ChannelID    string    `bson:"channel_id"`
	ThreadID     *string   `bson:"thread_id,omitempty"`
	AuthorID     string    `bson:"author_id"`
	AuthorEmail  string    `bson:"author_email"`
	AuthorName   string    `bson:"author_name"`
	AuthorAvatar string    `bson:"author_avatar"`
	Content      string    `bson:"content"`
	ImageURL     *string   `bson:"image_url,omitempty"`
	CreatedAt    time.Time `bson:"created_at"`
	UpdatedAt    time.Time `bson:"updated_at"`
}

func messageToDocument(msg *messagedomain.Message) messageDocument {
	author := msg.Author()
	return messageDocument{
		MessageID:    msg.ID().String(),
		WorkspaceID:  msg.WorkspaceID(),
		ChannelID:    msg.ChannelID().String(),
		ThreadID:     StringPtr(msg.ThreadID().String()),
		AuthorID:     author.ID,
		AuthorEmail:  author.Email,
		AuthorName:   author.Name,
		AuthorAvatar: author.Avatar,
		Content:      msg.Content(),
		ImageURL:     StringPtr(msg.ImageURL()),
		CreatedAt:    msg.CreatedAt(),
		UpdatedAt:    msg.UpdatedAt(),
	}
}

func documentToMessage(doc *messageDocument) (*messagedomain.Message, error) {
	id, err := uuid.ParseUUID(doc.MessageID)
	if err != nil {
		return nil, errs.ErrInvalidInput
	}

	channelID, err := uuid.ParseUUID(doc.ChannelID)
	if err != nil {
		return nil, errs.ErrInvalidInput
	}

	var threadID uuid.UUID
	if doc.ThreadID != nil {
		threadID, err = uuid.ParseUUID(*doc.ThreadID)
		if err != nil {
			return nil, errs.ErrInvalidInput
		}
	}

	return messagedomain.Reconstruct(
		id,
		doc.WorkspaceID,
		channelID,
		threadID,
		messagedomain.Author{
			ID:     doc.AuthorID,
			Email:  doc.AuthorEmail,
			Name:   doc.AuthorName,
			Avatar: doc.AuthorAvatar,
		},
		doc.Content,
		StringValue(doc.ImageURL),
		doc.CreatedAt,
		doc.UpdatedAt,
	), nil
}
