package events

import (
	"testing"
	"time"
)

func TestPublishSubscribe(t *testing.T) {
	bus := NewBus()
	ch, unsub := bus.Subscribe(TopicSignalsFused, 4)
	defer unsub()

	bus.Publish(TopicSignalsFused, "decision")

	select {
	case got := <-ch:
		if got != "decision" {
			t.Errorf("got %v", got)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for message")
	}
}

func TestPublishNeverBlocksOnSlowSubscriber(t *testing.T) {
	bus := NewBus()
	_, unsub := bus.Subscribe(TopicPriceTick, 1)
	defer unsub()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			bus.Publish(TopicPriceTick, i)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked on a slow subscriber")
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	bus := NewBus()
	ch, unsub := bus.Subscribe(TopicTradeResult, 1)
	unsub()

	// Channel is closed after unsubscribe.
	if _, ok := <-ch; ok {
		t.Error("expected closed channel")
	}

	// Publishing to a topic with no subscribers is a no-op.
	bus.Publish(TopicTradeResult, "late")
}

func TestTopicsIsolated(t *testing.T) {
	bus := NewBus()
	raw, unsubRaw := bus.Subscribe(TopicSignalsRaw, 1)
	defer unsubRaw()

	bus.Publish(TopicSignalsFused, "fused-only")

	select {
	case got := <-raw:
		t.Errorf("unexpected cross-topic delivery: %v", got)
	case <-time.After(50 * time.Millisecond):
	}
}
