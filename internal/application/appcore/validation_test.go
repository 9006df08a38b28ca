package appcore_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lllypuk/threadline/internal/application/appcore"
	"github.com/lllypuk/threadline/internal/domain/errs"
	"github.com/lllypuk/threadline/internal/domain/uuid"
)

func TestValidateUUID(t *testing.T) {
	require.NoError(t, appcore.ValidateUUID("id", uuid.NewUUID()))

	err := appcore.ValidateUUID("id", uuid.UUID("optimistic-123"))
	require.ErrorIs(t, err, errs.ErrInvalidInput)

	var validationErr *appcore.ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, "id", validationErr.Field)

	require.NoError(t, appcore.ValidateOptionalUUID("thread_id", uuid.UUID("")))
	require.Error(t, appcore.ValidateOptionalUUID("thread_id", uuid.UUID("nope")))
}

func TestValidateRange(t *testing.T) {
	require.NoError(t, appcore.ValidateRange("limit", 1, 1, 100))
	require.NoError(t, appcore.ValidateRange("limit", 100, 1, 100))
	require.ErrorIs(t, appcore.ValidateRange("limit", 0, 1, 100), errs.ErrInvalidInput)
	require.ErrorIs(t, appcore.ValidateRange("limit", 101, 1, 100), errs.ErrInvalidInput)
}

func TestValidateRequiredAndMaxLength(t *testing.T) {
	require.Error(t, appcore.ValidateRequired("emoji", ""))
	require.NoError(t, appcore.ValidateRequired("emoji", "👍"))
	require.Error(t, appcore.ValidateMaxLength("name", "abcdef", 5))
	require.NoError(t, appcore.ValidateMaxLength("name", "abcde", 5))
}

func TestCorrelationID(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, appcore.GetCorrelationID(ctx))

	ctx = appcore.WithCorrelationID(ctx, "req-1")
	assert.Equal(t, "req-1", appcore.GetCorrelationID(ctx))
}
