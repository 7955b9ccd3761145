package market

import (
	"context"
	"log"
	"math/rand"
	"time"

	"signal-core/internal/events"
)

// MockFeed synthesizes a random-walk candle stream so the engine can run
// without exchange connectivity. Simulated time advances one bar per tick
// regardless of the interval's real duration.
type MockFeed struct {
	sink      Sink
	bus       *events.Bus
	symbols   []string
	intervals []string
	warmup    int
	tick      time.Duration
	rng       *rand.Rand

	prices    map[string]float64
	openTimes map[string]int64
	cancel    context.CancelFunc
}

// NewMockFeed creates a synthetic feed. seed fixes the walk for
// reproducible runs; pass 0 to randomize.
func NewMockFeed(sink Sink, bus *events.Bus, symbols, intervals []string, warmupBars int, tick time.Duration, seed int64) *MockFeed {
	if tick <= 0 {
		tick = time.Second
	}
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &MockFeed{
		sink:      sink,
		bus:       bus,
		symbols:   symbols,
		intervals: intervals,
		warmup:    warmupBars,
		tick:      tick,
		rng:       rand.New(rand.NewSource(seed)),
		prices:    make(map[string]float64),
		openTimes: make(map[string]int64),
	}
}

func intervalMillis(interval string) int64 {
	d, err := time.ParseDuration(interval)
	if err != nil {
		return 5 * 60 * 1000
	}
	return d.Milliseconds()
}

func (f *MockFeed) nextKline(symbol, interval string) Kline {
	key := symbol + "|" + interval
	price, ok := f.prices[key]
	if !ok {
		price = 100 + f.rng.Float64()*1000
	}

	// Random walk with ~1% noise around the previous close.
	open := price
	drift := (f.rng.Float64() - 0.48) * 0.01 * open // slight upward bias
	close := open + drift
	high := open
	if close > high {
		high = close
	}
	high += f.rng.Float64() * 0.003 * open
	low := open
	if close < low {
		low = close
	}
	low -= f.rng.Float64() * 0.003 * open

	openTime := f.openTimes[key]
	if openTime == 0 {
		openTime = time.Now().Add(-time.Duration(f.warmup) * time.Duration(intervalMillis(interval)) * time.Millisecond).UnixMilli()
	}
	step := intervalMillis(interval)

	k := Kline{
		Symbol:    symbol,
		Interval:  interval,
		OpenTime:  openTime,
		CloseTime: openTime + step - 1,
		Open:      open,
		High:      high,
		Low:       low,
		Close:     close,
		Volume:    50 + f.rng.Float64()*200,
		Final:     true,
	}

	f.prices[key] = close
	f.openTimes[key] = openTime + step
	return k
}

// Start generates warmup history synchronously, then emits one candle per
// symbol/interval per tick until the context is cancelled.
func (f *MockFeed) Start(ctx context.Context) error {
	for _, symbol := range f.symbols {
		for _, interval := range f.intervals {
			for i := 0; i < f.warmup; i++ {
				f.sink.Push(f.nextKline(symbol, interval))
			}
			log.Printf("[FEED] Mock warmup complete for %s %s (%d bars)", symbol, interval, f.warmup)
		}
	}

	ctx, f.cancel = context.WithCancel(ctx)
	go func() {
		ticker := time.NewTicker(f.tick)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				for _, symbol := range f.symbols {
					for _, interval := range f.intervals {
						k := f.nextKline(symbol, interval)
						f.sink.Push(k)
						if f.bus != nil {
							f.bus.Publish(events.TopicPriceTick, k)
						}
					}
				}
			}
		}
	}()
	return nil
}

// Stop halts candle generation.
func (f *MockFeed) Stop() {
	if f.cancel != nil {
		f.cancel()
	}
}
