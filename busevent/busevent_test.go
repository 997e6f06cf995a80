package busevent

import (
	"context"
	"testing"
	"time"

	"github.com/vibelang/vibe-core/config"
)

func TestPublishSubscribeDeliversEvent(t *testing.T) {
	bus := NewInMemoryBus()
	defer bus.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	received := make(chan Event, 1)
	if err := bus.Subscribe(ctx, func(evt Event) { received <- evt }); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	want := Event{Kind: KindSuspended, SessionID: "sess-1", Status: "awaiting_ai", At: time.Now()}
	if err := bus.Publish(ctx, want); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	select {
	case got := <-received:
		if got.SessionID != want.SessionID || got.Kind != want.Kind {
			t.Fatalf("got %+v, want %+v", got, want)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestNewUnsupportedDriverErrors(t *testing.T) {
	if _, err := New(config.EventConfig{Driver: "nats"}); err == nil {
		t.Fatal("expected error for unsupported driver")
	}
}
