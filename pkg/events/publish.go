package events

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/rs/zerolog/log"
)

// TopicNegotiation is the topic run events are published on when the caller
// has no reason to partition them further.
const TopicNegotiation = "negotiation"

// Event is what the PublisherManager accepts: any negotiation event struct
// embedding EventMeta.
type Event interface {
	EventType() EventType
	EventRunID() string
}

// PublisherManager distributes negotiation events to a set of Publishers.
// You "subscribe" a publisher to a topic; every published event is fanned out
// to all publishers on the topic they were subscribed with.
//
// The manager stamps a sequence number onto each outgoing message, in the
// order Publish handles them, along with the event type and run ID so sinks
// can route on metadata without decoding the payload.
type PublisherManager struct {
	Publishers     map[string][]message.Publisher
	sequenceNumber uint64
	mutex          sync.Mutex
}

func NewPublisherManager() *PublisherManager {
	return &PublisherManager{
		Publishers: make(map[string][]message.Publisher),
	}
}

func (s *PublisherManager) SubscribePublisher(topic string, sub message.Publisher) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.Publishers[topic] = append(s.Publishers[topic], sub)
}

// Publish serializes the event to JSON and distributes it across all topics.
func (s *PublisherManager) Publish(e Event) error {
	// lock for the sequence number
	s.mutex.Lock()
	defer s.mutex.Unlock()

	b, err := json.Marshal(e)
	if err != nil {
		return err
	}

	msg := message.NewMessage(watermill.NewUUID(), b)
	msg.Metadata.Set("sequence_number", fmt.Sprintf("%d", s.sequenceNumber))
	msg.Metadata.Set("event_type", string(e.EventType()))
	msg.Metadata.Set("run_id", e.EventRunID())
	s.sequenceNumber++

	for topic, subs := range s.Publishers {
		for _, sub := range subs {
			err = sub.Publish(topic, msg)
			if err != nil {
				log.Warn().Err(err).Msg("failed to publish")
			}
		}
	}

	return nil
}

// PublishBlind publishes and only logs failures. Negotiation progress never
// depends on event delivery.
func (s *PublisherManager) PublishBlind(e Event) {
	err := s.Publish(e)
	if err != nil {
		log.Warn().Err(err).Msg("failed to publish")
	}
}
