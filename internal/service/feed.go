package service

import (
	"encoding/json"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/trackpoint/backend/internal/client"
)

// LocationUpdate is the wire form of one tracker update fanned out to feed
// subscribers.
type LocationUpdate struct {
	UserKey   string  `json:"user_key"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Address   string  `json:"address"`
	Tracking  bool    `json:"tracking"`
	LastSeen  int64   `json:"last_seen"`
}

// FeedSubscriber represents one live consumer of the update feed.
type FeedSubscriber struct {
	ID      string
	Updates chan LocationUpdate
}

// FeedBroker broadcasts location updates to all subscribers. Publishing is
// fire-and-forget; a failed or slow delivery never reaches the update path.
type FeedBroker interface {
	Subscribe(id string) *FeedSubscriber
	Unsubscribe(id string)
	Publish(update LocationUpdate)
	Close() error
}

type rabbitFeedBroker struct {
	rabbitClient    client.RabbitClient
	subscribers     map[string]*FeedSubscriber
	subscriberMutex sync.RWMutex
}

// newFeedBroker returns a RabbitMQ-backed broker, or an in-process one when
// no broker connection is available.
func newFeedBroker(rabbitClient client.RabbitClient) FeedBroker {
	if rabbitClient == nil {
		return newInMemoryFeedBroker()
	}
	return &rabbitFeedBroker{
		rabbitClient: rabbitClient,
		subscribers:  make(map[string]*FeedSubscriber),
	}
}

func (b *rabbitFeedBroker) Subscribe(id string) *FeedSubscriber {
	b.subscriberMutex.Lock()
	defer b.subscriberMutex.Unlock()

	if subscriber, exists := b.subscribers[id]; exists {
		return subscriber
	}

	subscriber := &FeedSubscriber{
		ID:      id,
		Updates: make(chan LocationUpdate, 100),
	}

	msgChan, err := b.rabbitClient.SubscribeToMessages(id)
	if err != nil {
		logrus.Errorf("Failed to subscribe %s to the update feed: %v", id, err)
		// The subscriber is returned anyway; it just never receives.
		return subscriber
	}

	b.subscribers[id] = subscriber

	go func() {
		for raw := range msgChan {
			var update LocationUpdate
			if err := json.Unmarshal(raw, &update); err != nil {
				logrus.Errorf("Error unmarshaling location update for subscriber %s: %v", id, err)
				continue
			}

			select {
			case subscriber.Updates <- update:
			default:
				// Subscriber is not keeping up, drop the update.
			}
		}
		close(subscriber.Updates)
	}()

	return subscriber
}

func (b *rabbitFeedBroker) Unsubscribe(id string) {
	b.subscriberMutex.Lock()
	delete(b.subscribers, id)
	b.subscriberMutex.Unlock()

	// Closes the underlying message channel, which ends the delivery
	// goroutine and closes the subscriber's Updates channel.
	if err := b.rabbitClient.UnsubscribeFromMessages(id); err != nil {
		logrus.Errorf("Failed to unsubscribe %s from the update feed: %v", id, err)
	}
}

func (b *rabbitFeedBroker) Publish(update LocationUpdate) {
	payload, err := json.Marshal(update)
	if err != nil {
		logrus.Errorf("Error marshaling location update: %v", err)
		return
	}

	if err := b.rabbitClient.PublishMessage(payload); err != nil {
		logrus.Errorf("Error publishing location update: %v", err)
	}
}

func (b *rabbitFeedBroker) Close() error {
	return b.rabbitClient.Close()
}

type inMemoryFeedBroker struct {
	subscribers     map[string]*FeedSubscriber
	subscriberMutex sync.RWMutex
}

func newInMemoryFeedBroker() FeedBroker {
	logrus.Warn("Using in-memory update feed (RabbitMQ not available)")
	return &inMemoryFeedBroker{
		subscribers: make(map[string]*FeedSubscriber),
	}
}

func (b *inMemoryFeedBroker) Subscribe(id string) *FeedSubscriber {
	b.subscriberMutex.Lock()
	defer b.subscriberMutex.Unlock()

	if subscriber, exists := b.subscribers[id]; exists {
		return subscriber
	}

	subscriber := &FeedSubscriber{
		ID:      id,
		Updates: make(chan LocationUpdate, 100),
	}

	b.subscribers[id] = subscriber
	return subscriber
}

func (b *inMemoryFeedBroker) Unsubscribe(id string) {
	b.subscriberMutex.Lock()
	defer b.subscriberMutex.Unlock()

	if subscriber, exists := b.subscribers[id]; exists {
		delete(b.subscribers, id)
		close(subscriber.Updates)
	}
}

func (b *inMemoryFeedBroker) Publish(update LocationUpdate) {
	b.subscriberMutex.RLock()
	defer b.subscriberMutex.RUnlock()

	for _, subscriber := range b.subscribers {
		select {
		case subscriber.Updates <- update:
		default:
			// Channel is full, skip this subscriber.
		}
	}
}

func (b *inMemoryFeedBroker) Close() error {
	return nil
}
