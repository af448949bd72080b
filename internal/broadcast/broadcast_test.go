package broadcast

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func newTestBus(t *testing.T) *Bus {
	t.Helper()
	b := New(zerolog.Nop())
	t.Cleanup(func() { b.Close() })
	return b
}

func TestBus_DeliversInPublishOrder(t *testing.T) {
	b := newTestBus(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sub, err := b.Subscribe(ctx, nil, false)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	defer sub.Close()

	b.Publish(Event{Type: CollectionStarted, Payload: map[string]any{"n": 1}})
	b.Publish(Event{Type: CollectionCompleted, Payload: map[string]any{"n": 2}})

	first := <-sub.Events
	second := <-sub.Events

	if first.Type != CollectionStarted || second.Type != CollectionCompleted {
		t.Fatalf("got order %v, %v; want started then completed", first.Type, second.Type)
	}
}

func TestBus_FilterExcludesNonMatchingTypes(t *testing.T) {
	b := newTestBus(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sub, err := b.Subscribe(ctx, []EventType{EntityDetected}, false)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	defer sub.Close()

	b.Publish(Event{Type: CollectionStarted})
	b.Publish(Event{Type: EntityDetected, Payload: map[string]any{"ok": true}})

	select {
	case evt := <-sub.Events:
		if evt.Type != EntityDetected {
			t.Fatalf("expected only EntityDetected to pass the filter, got %v", evt.Type)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for filtered event")
	}
}

func TestBus_ReplayDeliversHistoryFirst(t *testing.T) {
	b := newTestBus(t)

	b.Publish(Event{Type: CollectionStarted})
	b.Publish(Event{Type: CollectionCompleted})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sub, err := b.Subscribe(ctx, nil, true)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	defer sub.Close()

	replayed := make([]EventType, 0, 2)
	for i := 0; i < 2; i++ {
		select {
		case evt := <-sub.Events:
			replayed = append(replayed, evt.Type)
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for replayed history")
		}
	}

	if replayed[0] != CollectionStarted || replayed[1] != CollectionCompleted {
		t.Fatalf("replay order = %v, want [started, completed]", replayed)
	}
}

func TestBus_ListenerPanicDoesNotBlockOtherListeners(t *testing.T) {
	b := newTestBus(t)

	var secondCalled bool
	b.AddListener(func(Event) { panic("boom") })
	b.AddListener(func(Event) { secondCalled = true })

	b.Publish(Event{Type: SystemStatus})

	if !secondCalled {
		t.Error("expected the second listener to run despite the first panicking")
	}
}

func TestBus_HistoryIsBoundedAndFIFO(t *testing.T) {
	b := newTestBus(t)

	for i := 0; i < historySize+10; i++ {
		b.Publish(Event{Type: SystemStatus, Payload: map[string]any{"i": i}})
	}

	h := b.History()
	if len(h) != historySize {
		t.Fatalf("History() len = %d, want %d", len(h), historySize)
	}
	first := h[0].Payload["i"]
	if first != 10 {
		t.Errorf("expected the oldest 10 events to have been evicted, first retained = %v", first)
	}
}
