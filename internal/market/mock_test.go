package market

import (
	"context"
	"sync"
	"testing"
	"time"

	"signal-core/internal/events"
)

type recordingSink struct {
	mu     sync.Mutex
	klines []Kline
}

func (s *recordingSink) Push(k Kline) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.klines = append(s.klines, k)
}

func (s *recordingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.klines)
}

func TestMockFeedWarmup(t *testing.T) {
	sink := &recordingSink{}
	feed := NewMockFeed(sink, nil, []string{"BTCUSDT"}, []string{"5m", "1h"}, 80, time.Hour, 42)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := feed.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer feed.Stop()

	// 80 bars per interval, two intervals.
	if got := sink.count(); got != 160 {
		t.Fatalf("warmup bars = %d, want 160", got)
	}

	sink.mu.Lock()
	defer sink.mu.Unlock()
	for _, k := range sink.klines {
		if !k.Final {
			t.Fatal("mock feed must emit closed candles")
		}
		if k.High < k.Low || k.High < k.Close || k.Low > k.Close {
			t.Fatalf("inconsistent candle: %+v", k)
		}
	}
}

func TestMockFeedPublishesTicks(t *testing.T) {
	sink := &recordingSink{}
	bus := events.NewBus()
	ch, unsub := bus.Subscribe(events.TopicPriceTick, 16)
	defer unsub()

	feed := NewMockFeed(sink, bus, []string{"BTCUSDT"}, []string{"5m"}, 5, 10*time.Millisecond, 42)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := feed.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer feed.Stop()

	select {
	case msg := <-ch:
		k, ok := msg.(Kline)
		if !ok || k.Symbol != "BTCUSDT" {
			t.Fatalf("unexpected tick payload: %v", msg)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no tick published")
	}
}

func TestMockFeedDeterministicWithSeed(t *testing.T) {
	a := &recordingSink{}
	b := &recordingSink{}
	NewMockFeed(a, nil, []string{"BTCUSDT"}, []string{"5m"}, 10, time.Hour, 7).Start(context.Background())
	NewMockFeed(b, nil, []string{"BTCUSDT"}, []string{"5m"}, 10, time.Hour, 7).Start(context.Background())

	if len(a.klines) != len(b.klines) {
		t.Fatalf("lengths differ: %d vs %d", len(a.klines), len(b.klines))
	}
	for i := range a.klines {
		if a.klines[i].Close != b.klines[i].Close {
			t.Fatalf("walk diverged at bar %d", i)
		}
	}
}
