package events

import (
	"context"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/stretchr/testify/require"
)

func TestPublisherManagerStampsEventMetadata(t *testing.T) {
	pubSub := gochannel.NewGoChannel(gochannel.Config{BlockPublishUntilSubscriberAck: true}, watermill.NopLogger{})
	defer func() { _ = pubSub.Close() }()

	msgs, err := pubSub.Subscribe(context.Background(), TopicNegotiation)
	require.NoError(t, err)

	received := make(chan *message.Message, 4)
	go func() {
		for msg := range msgs {
			msg.Ack()
			received <- msg
		}
	}()

	pm := NewPublisherManager()
	pm.SubscribePublisher(TopicNegotiation, pubSub)

	require.NoError(t, pm.Publish(NewRoundStartedEvent("run-1", 1)))
	pm.PublishBlind(NewUtteranceEvent("run-1", 1, "Viktor", "the vault comes first"))

	first := awaitMessage(t, received)
	require.Equal(t, "0", first.Metadata.Get("sequence_number"))
	require.Equal(t, string(EventTypeRoundStarted), first.Metadata.Get("event_type"))
	require.Equal(t, "run-1", first.Metadata.Get("run_id"))
	require.JSONEq(t, `{"type":"round-started","run_id":"run-1","round":1}`, string(first.Payload))

	second := awaitMessage(t, received)
	require.Equal(t, "1", second.Metadata.Get("sequence_number"))
	require.Equal(t, string(EventTypeUtterance), second.Metadata.Get("event_type"))
}

func TestPublisherManagerNoSubscribers(t *testing.T) {
	pm := NewPublisherManager()
	require.NoError(t, pm.Publish(NewRoundStartedEvent("run-1", 1)))
}

func awaitMessage(t *testing.T, ch <-chan *message.Message) *message.Message {
	t.Helper()
	select {
	case msg := <-ch:
		return msg
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for message")
		return nil
	}
}
