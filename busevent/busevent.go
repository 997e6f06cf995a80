// Package busevent publishes stepper lifecycle events — a session
// suspending, resuming, completing, or erroring — so an out-of-process
// observer (a dashboard, a log shipper) can watch a run without polling
// runtime.Session directly. Grounded on event.EventBus's
// Publish(topic, payload)/Subscribe(ctx, topic, handler) shape, backed by
// the same ThreeDotsLabs/watermill in-memory pub/sub the teacher used for
// flow/run events; the NATS Streaming backend was dropped (see
// DESIGN.md) since nothing in this build runs the bus across processes.
package busevent

import (
	"context"
	"encoding/json"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

// Kind names a stepper lifecycle transition.
type Kind string

const (
	KindStarted   Kind = "started"
	KindSuspended Kind = "suspended"
	KindResumed   Kind = "resumed"
	KindPaused    Kind = "paused"
	KindCompleted Kind = "completed"
	KindError     Kind = "error"
)

// Event is one stepper lifecycle transition.
type Event struct {
	Kind      Kind      `json:"kind"`
	SessionID string    `json:"session_id"`
	Status    string    `json:"status"`
	Detail    string    `json:"detail,omitempty"`
	At        time.Time `json:"at"`
}

const topic = "vibe.session.lifecycle"

// Bus publishes and subscribes to Events.
type Bus interface {
	Publish(ctx context.Context, evt Event) error
	Subscribe(ctx context.Context, handler func(Event)) error
	Close() error
}

// WatermillBus implements Bus over an in-memory watermill pub/sub.
type WatermillBus struct {
	pubsub *gochannel.GoChannel
}

// NewInMemoryBus builds the default, single-process event bus.
func NewInMemoryBus() *WatermillBus {
	return &WatermillBus{
		pubsub: gochannel.NewGoChannel(gochannel.Config{}, watermill.NewStdLogger(false, false)),
	}
}

func (b *WatermillBus) Publish(ctx context.Context, evt Event) error {
	data, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	return b.pubsub.Publish(topic, message.NewMessage(watermill.NewUUID(), data))
}

func (b *WatermillBus) Subscribe(ctx context.Context, handler func(Event)) error {
	messages, err := b.pubsub.Subscribe(ctx, topic)
	if err != nil {
		return err
	}
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-messages:
				if !ok {
					return
				}
				var evt Event
				if err := json.Unmarshal(msg.Payload, &evt); err == nil {
					handler(evt)
				}
				msg.Ack()
			}
		}
	}()
	return nil
}

func (b *WatermillBus) Close() error { return b.pubsub.Close() }
