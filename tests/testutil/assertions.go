package testutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lllypuk/threadline/internal/domain/event"
)

// AssertEventPublished checks that event of specific type was published
func AssertEventPublished(t *testing.T, events []event.DomainEvent, eventType string) event.DomainEvent {
	t.Helper()

	for _, evt := range events {
		if evt.EventType() == eventType {
			return evt
		}
	}

	t.Fatalf("Expected event of type %q, but it was not found. Got %d events", eventType, len(events))
	return nil
}

// AssertTimeApproximatelyEqual checks that two times are within delta.
// MongoDB stores milliseconds, so round-tripped timestamps need a tolerance.
func AssertTimeApproximatelyEqual(t *testing.T, expected, actual time.Time, delta time.Duration, msgAndArgs ...any) {
	t.Helper()

	diff := expected.Sub(actual)
	if diff < 0 {
		diff = -diff
	}

	assert.LessOrEqual(t, diff, delta, append([]any{
		"expected time %v to be within %v of %v, but difference was %v",
		actual, delta, expected, diff,
	}, msgAndArgs...)...)
}

// RequireEventually polls cond until it holds or the timeout elapses.
func RequireEventually(t *testing.T, cond func() bool, msgAndArgs ...any) {
	t.Helper()

	require.Eventually(t, cond, 2*time.Second, 10*time.Millisecond, msgAndArgs...)
}
