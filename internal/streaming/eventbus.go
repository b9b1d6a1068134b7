package streaming

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"ransomguard/pkg/logger"
)

type subscriber struct {
	ch  chan *ScanEvent
	sub *Subscription
}

// EventBus distributes scan events to NATS and to in-process subscribers
type EventBus struct {
	nats   *NATSPublisher
	logger *logger.Logger

	mu          sync.RWMutex
	subscribers map[string]*subscriber
	closed      bool
}

// NewEventBus creates a new event bus. nats may be nil.
func NewEventBus(nats *NATSPublisher, log *logger.Logger) *EventBus {
	return &EventBus{
		nats:        nats,
		logger:      log.WithComponent("event-bus"),
		subscribers: make(map[string]*subscriber),
	}
}

// Publish publishes a scan event to all subscribers
func (eb *EventBus) Publish(ctx context.Context, event *ScanEvent) error {
	// Publish to NATS if available
	if eb.nats != nil && eb.nats.IsConnected() {
		if err := eb.nats.PublishScanEvent(ctx, event); err != nil {
			eb.logger.Warn().Err(err).Msg("failed to publish to NATS, using local broadcast only")
		}
	}

	// Broadcast to local subscribers
	eb.mu.RLock()
	defer eb.mu.RUnlock()

	for id, s := range eb.subscribers {
		if s.sub != nil && !s.sub.Matches(event) {
			continue
		}
		select {
		case s.ch <- event:
		default:
			eb.logger.Debug().Str("subscriber", id).Msg("subscriber channel full, dropping event")
		}
	}

	return nil
}

// PublishModelReload publishes a model reload event. Only NATS receives these.
func (eb *EventBus) PublishModelReload(ctx context.Context, event *ModelReloadEvent) error {
	if eb.nats != nil && eb.nats.IsConnected() {
		if err := eb.nats.PublishModelReload(ctx, event); err != nil {
			eb.logger.Warn().Err(err).Msg("failed to publish model reload to NATS")
		}
	}
	return nil
}

// Subscribe creates a new subscription and returns a channel for events.
// sub may be nil to receive everything.
func (eb *EventBus) Subscribe(sub *Subscription) (<-chan *ScanEvent, func()) {
	id := uuid.New().String()
	ch := make(chan *ScanEvent, 100)

	eb.mu.Lock()
	if eb.closed {
		eb.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	eb.subscribers[id] = &subscriber{ch: ch, sub: sub}
	eb.mu.Unlock()

	eb.logger.Debug().Str("subscriber_id", id).Msg("new subscriber")

	// Return unsubscribe function
	unsubscribe := func() {
		eb.mu.Lock()
		defer eb.mu.Unlock()
		if _, ok := eb.subscribers[id]; ok {
			close(ch)
			delete(eb.subscribers, id)
			eb.logger.Debug().Str("subscriber_id", id).Msg("subscriber removed")
		}
	}

	return ch, unsubscribe
}

// SubscriberCount returns the number of active subscribers
func (eb *EventBus) SubscriberCount() int {
	eb.mu.RLock()
	defer eb.mu.RUnlock()
	return len(eb.subscribers)
}

// NATSConnected reports whether events also go out over NATS
func (eb *EventBus) NATSConnected() bool {
	return eb.nats != nil && eb.nats.IsConnected()
}

// Close closes all subscriber channels and the NATS connection
func (eb *EventBus) Close() {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	eb.closed = true
	for id, s := range eb.subscribers {
		close(s.ch)
		delete(eb.subscribers, id)
	}

	if eb.nats != nil {
		eb.nats.Close()
	}
}
