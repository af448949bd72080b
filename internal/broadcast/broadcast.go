// Package broadcast delivers typed lifecycle events to zero or more
// subscribed clients over an in-process watermill pub/sub topic, with a
// bounded event history for late joiners and synchronous listener hooks.
package broadcast

import (
	"context"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/rs/zerolog"
)

// EventType is the closed enumeration of lifecycle events the bus carries.
type EventType string

const (
	CollectionStarted   EventType = "collection.started"
	CollectionProgress  EventType = "collection.progress"
	CollectionCompleted EventType = "collection.completed"
	CollectionFailed    EventType = "collection.failed"

	ProcessingStarted   EventType = "processing.started"
	ProcessingProgress  EventType = "processing.progress"
	ProcessingCompleted EventType = "processing.completed"

	BriefingStarted   EventType = "briefing.started"
	BriefingProgress  EventType = "briefing.progress"
	BriefingCompleted EventType = "briefing.completed"

	SystemStatus EventType = "system.status"
	SystemHealth EventType = "system.health"

	EntityDetected EventType = "entity.detected"
	EntityMention  EventType = "entity.mention"
)

const topic = "pulsewatch.events"

// historySize is the default ring-buffer capacity for late-joiner replay.
const historySize = 100

// Event is one broadcastable occurrence.
type Event struct {
	Type      EventType      `json:"type"`
	Payload   map[string]any `json:"payload"`
	Timestamp time.Time      `json:"timestamp"`
	Source    string         `json:"source,omitempty"`
}

// Listener is a synchronous, in-process callback invoked for every event
// before it reaches subscribers. A listener's panic or error must never
// block delivery to other listeners or to subscribers.
type Listener func(Event)

// Bus is the BroadcastBus: an in-process pub/sub fed by a watermill
// gochannel, a bounded ring buffer of recent events, and a set of
// synchronous listener callbacks.
type Bus struct {
	pubsub *gochannel.GoChannel
	log    zerolog.Logger

	mu        sync.Mutex
	history   []Event
	listeners []Listener
}

// New constructs a Bus backed by watermill's in-memory gochannel pub/sub.
// No external broker is configured or required; the BroadcastBus is
// explicitly in-process only.
func New(log zerolog.Logger) *Bus {
	logger := watermill.NopLogger{}
	pubsub := gochannel.NewGoChannel(gochannel.Config{
		OutputChannelBuffer:            256,
		Persistent:                     false,
		BlockPublishUntilSubscriberAck: false,
	}, logger)

	return &Bus{
		pubsub: pubsub,
		log:    log.With().Str("component", "broadcast").Logger(),
	}
}

// Close shuts down the underlying transport.
func (b *Bus) Close() error {
	return b.pubsub.Close()
}

// AddListener registers a synchronous callback invoked for every published
// event, before subscriber fan-out. Listener failures (panics) are
// isolated per listener.
func (b *Bus) AddListener(l Listener) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.listeners = append(b.listeners, l)
}

// Publish delivers event to every subscriber and appends it to the replay
// history. Listener callbacks run synchronously first, each isolated from
// the others' failures.
func (b *Bus) Publish(evt Event) {
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now().UTC()
	}

	b.mu.Lock()
	for _, l := range b.listeners {
		b.invokeListener(l, evt)
	}
	b.history = append(b.history, evt)
	if len(b.history) > historySize {
		b.history = b.history[len(b.history)-historySize:]
	}
	b.mu.Unlock()

	payload, err := json.Marshal(evt)
	if err != nil {
		b.log.Warn().Err(err).Str("type", string(evt.Type)).Msg("failed to marshal event for broadcast")
		return
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	if err := b.pubsub.Publish(topic, msg); err != nil {
		b.log.Warn().Err(err).Str("type", string(evt.Type)).Msg("failed to publish event")
	}
}

func (b *Bus) invokeListener(l Listener, evt Event) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error().Interface("panic", r).Msg("broadcast listener panicked")
		}
	}()
	l(evt)
}

// Subscription is a live, filtered view onto the bus.
type Subscription struct {
	Events <-chan Event
	cancel context.CancelFunc
}

// Close stops delivery to this subscription.
func (s *Subscription) Close() { s.cancel() }

// Subscribe registers a new subscriber. An empty filter set means "all
// events". If replay is true, retained history events matching the filter
// are delivered first, in publish order, before live events.
func (b *Bus) Subscribe(ctx context.Context, filter []EventType, replay bool) (*Subscription, error) {
	ctx, cancel := context.WithCancel(ctx)

	raw, err := b.pubsub.Subscribe(ctx, topic)
	if err != nil {
		cancel()
		return nil, err
	}

	allowed := make(map[EventType]bool, len(filter))
	for _, t := range filter {
		allowed[t] = true
	}
	matches := func(t EventType) bool {
		return len(allowed) == 0 || allowed[t]
	}

	var backlog []Event
	if replay {
		b.mu.Lock()
		backlog = make([]Event, len(b.history))
		copy(backlog, b.history)
		b.mu.Unlock()
	}

	// The channel has room for the whole backlog on top of the live buffer,
	// so replay never blocks and never drops a retained event.
	out := make(chan Event, 64+len(backlog))
	for _, evt := range backlog {
		if matches(evt.Type) {
			out <- evt
		}
	}

	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-raw:
				if !ok {
					return
				}
				var evt Event
				if err := json.Unmarshal(msg.Payload, &evt); err != nil {
					msg.Ack()
					continue
				}
				msg.Ack()
				if matches(evt.Type) {
					select {
					case out <- evt:
					case <-ctx.Done():
						return
					}
				}
			}
		}
	}()

	return &Subscription{Events: out, cancel: cancel}, nil
}

// History returns a copy of the currently retained event backlog.
func (b *Bus) History() []Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Event, len(b.history))
	copy(out, b.history)
	return out
}
