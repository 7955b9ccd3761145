package market

import (
	"context"
	"fmt"
	"log"
	"sync"

	"signal-core/internal/events"
	binance "signal-core/pkg/market/binance"
)

// Sink receives closed candles; the indicator engine implements this.
type Sink interface {
	Push(k Kline)
}

// Feed delivers candles into a sink and onto the event bus.
type Feed interface {
	// Start warms up history and begins streaming. Blocks until warmup is
	// done; streaming continues until ctx is cancelled.
	Start(ctx context.Context) error
	Stop()
}

// BinanceFeed streams klines from Binance for every symbol/interval pair,
// after backfilling enough history to produce indicator snapshots.
type BinanceFeed struct {
	rest      *binance.Client
	stream    *binance.StreamClient
	sink      Sink
	bus       *events.Bus
	symbols   []string
	intervals []string
	warmup    int

	mu    sync.Mutex
	stops []func()
}

// NewBinanceFeed creates a live market data feed.
func NewBinanceFeed(testnet bool, sink Sink, bus *events.Bus, symbols, intervals []string, warmupBars int) *BinanceFeed {
	return &BinanceFeed{
		rest:      binance.NewClient(testnet),
		stream:    binance.NewStreamClient(testnet),
		sink:      sink,
		bus:       bus,
		symbols:   symbols,
		intervals: intervals,
		warmup:    warmupBars,
	}
}

func fromBinance(b binance.Kline) Kline {
	return Kline{
		Symbol:    b.Symbol,
		Interval:  b.Interval,
		OpenTime:  b.OpenTime,
		CloseTime: b.CloseTime,
		Open:      b.Open,
		High:      b.High,
		Low:       b.Low,
		Close:     b.Close,
		Volume:    b.Volume,
		Final:     b.Final,
	}
}

// Start backfills history over REST, then opens one websocket stream per
// symbol/interval pair.
func (f *BinanceFeed) Start(ctx context.Context) error {
	for _, symbol := range f.symbols {
		for _, interval := range f.intervals {
			klines, err := f.rest.GetKlines(ctx, symbol, interval, f.warmup)
			if err != nil {
				return fmt.Errorf("warmup %s %s: %w", symbol, interval, err)
			}
			for _, k := range klines {
				f.sink.Push(fromBinance(k))
			}
			log.Printf("[FEED] Warmed up %s %s with %d bars", symbol, interval, len(klines))
		}
	}

	for _, symbol := range f.symbols {
		for _, interval := range f.intervals {
			ch, stop, err := f.stream.SubscribeKlines(ctx, symbol, interval)
			if err != nil {
				f.Stop()
				return fmt.Errorf("subscribe %s %s: %w", symbol, interval, err)
			}
			f.mu.Lock()
			f.stops = append(f.stops, stop)
			f.mu.Unlock()

			go f.consume(ctx, ch)
		}
	}
	return nil
}

func (f *BinanceFeed) consume(ctx context.Context, ch <-chan binance.Kline) {
	for {
		select {
		case <-ctx.Done():
			return
		case bk, ok := <-ch:
			if !ok {
				return
			}
			k := fromBinance(bk)
			f.sink.Push(k)
			if k.Final && f.bus != nil {
				f.bus.Publish(events.TopicPriceTick, k)
			}
		}
	}
}

// Stop closes every open stream.
func (f *BinanceFeed) Stop() {
	f.mu.Lock()
	stops := f.stops
	f.stops = nil
	f.mu.Unlock()
	for _, stop := range stops {
		stop()
	}
}
