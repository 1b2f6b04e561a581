package notifications

import (
	"context"
	"errors"
	"testing"
)

func TestNilOutboxBehavesAsUnavailable(t *testing.T) {
	var outbox *Outbox

	if outbox.Available() {
		t.Fatal("nil outbox must report unavailable")
	}
	if err := outbox.PublishEvent(context.Background(), ChatEvent{}); err != nil {
		t.Fatalf("live events are best-effort without a broker: %v", err)
	}
	err := outbox.EnqueueNotification(context.Background(), Notification{DedupeKey: "k", UserID: "u"})
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
	if err := outbox.Close(); err != nil {
		t.Fatalf("closing a nil outbox: %v", err)
	}
}

func TestChatMessageDedupeKeyShape(t *testing.T) {
	if got := ChatMessageDedupeKey(42, "user_9"); got != "chat_message:42:user_9" {
		t.Fatalf("unexpected dedupe key %q", got)
	}
}
