package mongodb

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/mongo"
)

// decodeAll drains a cursor and converts each document.
// T - type документа, R - type результата (domain object).
// Documents that fail to decode or convert are skipped. The result is never nil.
func decodeAll[T any, R any](
	ctx context.Context,
	cursor *mongo.Cursor,
	decoder func(*T) (R, error),
) ([]R, error) {
	defer cursor.Close(ctx)

	results := make([]R, 0)
	for cursor.Next(ctx) {
		var doc T
		if decodeErr := cursor.Decode(&doc); decodeErr != nil {
			continue // пропускаем некорректные документы
		}

		item, docErr := decoder(&doc)
		if docErr != nil {
			continue
		}

		results = append(results, item)
	}

	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("cursor error: %w", err)
	}

	return results, nil
}
