package pubsub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/ritzau/scenegraph/pkg/logging"
)

var (
	// ErrClosed is returned once the hub has been closed
	ErrClosed = errors.New("publisher is closed")
	// ErrUnknownTopic is returned for topics other than exports and session
	ErrUnknownTopic = errors.New("unknown topic")
)

// subscriberBuffer bounds the events queued for one slow client
const subscriberBuffer = 64

var _ Publisher = (*Hub)(nil)

// Hub fans export and session events out to subscribers. A new exports
// subscriber first receives the latest export of every module, and a new
// session subscriber the current session state.
type Hub struct {
	mu      sync.Mutex
	subs    map[string]map[*subscriber]struct{}
	version map[string]int

	exports     map[string]Event // module -> latest export
	exportOrder []string
	session     *Event
	sessionHash string
	closed      bool
}

// NewHub creates an empty hub
func NewHub() *Hub {
	return &Hub{
		subs:    make(map[string]map[*subscriber]struct{}),
		version: make(map[string]int),
		exports: make(map[string]Event),
	}
}

// Subscribe registers a subscription to topic. The subscription ends when
// ctx is done or Close is called.
func (h *Hub) Subscribe(ctx context.Context, topic string) (Subscription, error) {
	if topic != TopicExports && topic != TopicSession {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTopic, topic)
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil, ErrClosed
	}
	sub := &subscriber{
		topic:  topic,
		events: make(chan Event, subscriberBuffer),
		done:   make(chan struct{}),
		hub:    h,
	}
	if h.subs[topic] == nil {
		h.subs[topic] = make(map[*subscriber]struct{})
	}
	h.subs[topic][sub] = struct{}{}

	// replay under the lock so later publishes cannot overtake it
	replay := h.snapshot(topic)
	for _, event := range replay {
		sub.send(event)
	}
	h.mu.Unlock()

	if len(replay) > 0 {
		logging.Debug("replayed events to new subscriber", "topic", topic, "count", len(replay))
	}

	go func() {
		select {
		case <-ctx.Done():
			sub.Close()
		case <-sub.done:
		}
	}()
	return sub, nil
}

// snapshot returns the events a new subscriber to topic starts from.
// Callers hold h.mu.
func (h *Hub) snapshot(topic string) []Event {
	switch topic {
	case TopicExports:
		events := make([]Event, 0, len(h.exportOrder))
		for _, module := range h.exportOrder {
			events = append(events, h.exports[module])
		}
		return events
	case TopicSession:
		if h.session != nil {
			return []Event{*h.session}
		}
	}
	return nil
}

// PublishExport announces an export. Only the latest export of each
// module is kept for replay.
func (h *Hub) PublishExport(data ExportData) error {
	eventType := EventExported
	if data.Failed() {
		eventType = EventFailed
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	event, err := h.next(TopicExports, eventType, data)
	if err != nil {
		return err
	}
	if _, seen := h.exports[data.Module]; !seen {
		h.exportOrder = append(h.exportOrder, data.Module)
	}
	h.exports[data.Module] = event
	h.broadcast(event)
	return nil
}

// PublishSession announces the state of the module under edit. A state
// whose hash matches the last announced one is dropped.
func (h *Hub) PublishSession(data SessionData) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return ErrClosed
	}
	if data.Hash != "" && data.Hash == h.sessionHash {
		logging.Debug("session state unchanged, not announced", "hash", data.Hash)
		return nil
	}

	event, err := h.next(TopicSession, EventEdited, data)
	if err != nil {
		return err
	}
	h.session = &event
	h.sessionHash = data.Hash
	h.broadcast(event)
	return nil
}

// next builds the following event of topic. Callers hold h.mu.
func (h *Hub) next(topic, eventType string, data any) (Event, error) {
	if h.closed {
		return Event{}, ErrClosed
	}
	payload, err := json.Marshal(data)
	if err != nil {
		return Event{}, fmt.Errorf("failed to marshal event data: %w", err)
	}
	h.version[topic]++
	return Event{
		Topic:   topic,
		Type:    eventType,
		Data:    payload,
		Version: h.version[topic],
	}, nil
}

// broadcast delivers event without blocking. Callers hold h.mu.
func (h *Hub) broadcast(event Event) {
	for sub := range h.subs[event.Topic] {
		sub.send(event)
	}
}

// Subscribers returns the number of live subscriptions to topic
func (h *Hub) Subscribers(topic string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[topic])
}

// Close ends every subscription. Publishing afterwards fails with ErrClosed.
func (h *Hub) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}
	h.closed = true
	for _, subs := range h.subs {
		for sub := range subs {
			sub.once.Do(func() { close(sub.done) })
			close(sub.events)
		}
	}
	h.subs = make(map[string]map[*subscriber]struct{})
	return nil
}

func (h *Hub) unsubscribe(sub *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if subs := h.subs[sub.topic]; subs != nil {
		delete(subs, sub)
		if len(subs) == 0 {
			delete(h.subs, sub.topic)
		}
	}
}

type subscriber struct {
	topic  string
	events chan Event
	done   chan struct{}
	hub    *Hub
	once   sync.Once
}

func (s *subscriber) Topic() string {
	return s.topic
}

func (s *subscriber) Events() <-chan Event {
	return s.events
}

// send queues event, dropping it when the client is too slow
func (s *subscriber) send(event Event) {
	select {
	case s.events <- event:
	default:
		logging.Warn("subscription channel full, dropping event", "topic", s.topic, "version", event.Version)
	}
}

func (s *subscriber) Close() error {
	s.once.Do(func() {
		close(s.done)
		s.hub.unsubscribe(s)
	})
	return nil
}
