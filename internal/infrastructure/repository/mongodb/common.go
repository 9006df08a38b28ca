// Package mongodb implements the application repositories on MongoDB.
package mongodb

import (
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/lllypuk/threadline/internal/domain/errs"
)

// HandleMongoError преобразует error MongoDB в доменную error.
// returns:
//   - nil if err == nil
//   - errs.ErrNotFound if документ not найден
//   - errs.ErrAlreadyExists if нарушен unique constraint
//   - wrapped error for остальных случаев
func HandleMongoError(err error, resourceType string) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, mongo.ErrNoDocuments) {
		return errs.ErrNotFound
	}

	if mongo.IsDuplicateKeyError(err) {
		return errs.ErrAlreadyExists
	}

	return fmt.Errorf("failed to operate on %s: %w", resourceType, err)
}

// UpsertOptions returns стандартные опции for upsert операции.
func UpsertOptions() *options.UpdateOneOptionsBuilder {
	return options.UpdateOne().SetUpsert(true)
}

// StringPtr returns pointer on строку, nil для пустой строки.
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// StringValue returns value строки from указателя.
func StringValue(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
