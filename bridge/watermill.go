package bridge

import (
	"context"
	"fmt"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
)

// WatermillTransport carries bridge frames over a Watermill pub/sub pair,
// letting the two sides of the bridge live in separate processes (e.g.
// redis streams between the page server and the game service). The
// gochannel pub/sub works for single-process setups and tests.
type WatermillTransport struct {
	publisher message.Publisher
	sendTopic string

	mu   sync.Mutex
	recv func([]byte)
}

// NewWatermillTransport subscribes to recvTopic and publishes outbound
// frames to sendTopic. The subscription lives until ctx is cancelled.
func NewWatermillTransport(
	ctx context.Context,
	publisher message.Publisher,
	subscriber message.Subscriber,
	sendTopic, recvTopic string,
) (*WatermillTransport, error) {
	t := &WatermillTransport{
		publisher: publisher,
		sendTopic: sendTopic,
	}

	messages, err := subscriber.Subscribe(ctx, recvTopic)
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to %q: %w", recvTopic, err)
	}

	go func() {
		for msg := range messages {
			t.mu.Lock()
			recv := t.recv
			t.mu.Unlock()

			if recv != nil {
				recv(msg.Payload)
			}
			msg.Ack()
		}
	}()

	return t, nil
}

func (t *WatermillTransport) Send(raw []byte) error {
	msg := message.NewMessage(watermill.NewUUID(), raw)
	if err := t.publisher.Publish(t.sendTopic, msg); err != nil {
		return fmt.Errorf("failed to publish bridge frame: %w", err)
	}
	return nil
}

func (t *WatermillTransport) SetReceiver(fn func(raw []byte)) {
	t.mu.Lock()
	t.recv = fn
	t.mu.Unlock()
}
