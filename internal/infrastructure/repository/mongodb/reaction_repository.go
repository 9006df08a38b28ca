package mongodb

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/lllypuk/threadline/internal/domain/errs"
	messagedomain "github.com/lllypuk/threadline/internal/domain/message"
	"github.com/lllypuk/threadline/internal/domain/uuid"
)

// MongoReactionRepository хранит реакции отдельными строками.
// Уникальный индекс (message_id, user_id, emoji) делает toggle атомарным.
type MongoReactionRepository struct {
	collection *mongo.Collection
}

// NewMongoReactionRepository создает новый MongoDB Reaction Repository
func NewMongoReactionRepository(collection *mongo.Collection) *MongoReactionRepository {
	return &MongoReactionRepository{collection: collection}
}

// Insert добавляет реакцию. Дубликат возвращает errs.ErrAlreadyExists
func (r *MongoReactionRepository) Insert(ctx context.Context, reaction messagedomain.Reaction) error {
	if reaction.MessageID().IsZero() || reaction.UserID() == "" || reaction.Emoji() == "" {
		return errs.ErrInvalidInput
	}

	_, err := r.collection.InsertOne(ctx, reactionDocument{
		MessageID: reaction.MessageID().String(),
		UserID:    reaction.UserID(),
		Emoji:     reaction.Emoji(),
		CreatedAt: reaction.CreatedAt(),
	})
	return HandleMongoError(err, "reaction")
}

// Delete удаляет реакцию; отсутствие строки не считается ошибкой
func (r *MongoReactionRepository) Delete(ctx context.Context, messageID uuid.UUID, userID, emoji string) error {
	filter := bson.M{"message_id": messageID.String(), "user_id": userID, "emoji": emoji}
	_, err := r.collection.DeleteOne(ctx, filter)
	return HandleMongoError(err, "reaction")
}

// FindByMessageIDs возвращает реакции сообщений от старых к новым
func (r *MongoReactionRepository) FindByMessageIDs(
	ctx context.Context,
	messageIDs []uuid.UUID,
) ([]messagedomain.Reaction, error) {
	if len(messageIDs) == 0 {
		return []messagedomain.Reaction{}, nil
	}

	ids := make(bson.A, 0, len(messageIDs))
	for _, id := range messageIDs {
		ids = append(ids, id.String())
	}

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})
	cursor, err := r.collection.Find(ctx, bson.M{"message_id": bson.M{"$in": ids}}, opts)
	if err != nil {
		return nil, HandleMongoError(err, "reactions")
	}

	return decodeAll(ctx, cursor, documentToReaction)
}

type reactionDocument struct {
	MessageID string    `bson:"message_id"`
	UserID    string    `bson:"user_id"`
	Emoji     string    `bson:"emoji"`
	CreatedAt time.Time `bson:"created_at"`
}

func documentToReaction(doc *reactionDocument) (messagedomain.Reaction, error) {
	id, err := uuid.ParseUUID(doc.MessageID)
	if err != nil {
		return messagedomain.Reaction{}, errs.ErrInvalidInput
	}
	return messagedomain.ReconstructReaction(id, doc.UserID, doc.Emoji, doc.CreatedAt), nil
}
