package testutil_test

import (
	"testing"
	"time"

	"github.com/lllypuk/threadline/internal/domain/event"
	"github.com/lllypuk/threadline/tests/testutil"
)

type stubEvent struct {
	event.BaseEvent
}

func TestAssertEventPublished(t *testing.T) {
	events := []event.DomainEvent{
		stubEvent{BaseEvent: event.NewBaseEvent("message.created", "m1", "message", event.Metadata{})},
		stubEvent{BaseEvent: event.NewBaseEvent("message.updated", "m1", "message", event.Metadata{})},
	}

	got := testutil.AssertEventPublished(t, events, "message.updated")
	if got.EventType() != "message.updated" {
		t.Fatalf("unexpected event %s", got.EventType())
	}
}

func TestAssertTimeApproximatelyEqual(t *testing.T) {
	now := time.Now()
	testutil.AssertTimeApproximatelyEqual(t, now, now.Add(500*time.Microsecond), time.Millisecond)
	testutil.AssertTimeApproximatelyEqual(t, now, now.Add(-500*time.Microsecond), time.Millisecond)
}
