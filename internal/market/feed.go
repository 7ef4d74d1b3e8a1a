package market

import (
	"math/rand"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// Feed produces one price observation per call for an instrument.
type Feed interface {
	TickFor(symbol string, reference decimal.Decimal) Snapshot
}

var floorPrice = decimal.NewFromInt(1)

// RandomWalkFeed advances each symbol's price by a uniform step within +/-1%
// of the previous observation, floored at 1.00 and rounded to 2dp. The first
// observation for a symbol seeds from the supplied reference price, or from a
// random base in [100, 300) when no reference exists.
type RandomWalkFeed struct {
	mu    sync.Mutex
	rng   *rand.Rand
	state map[string]Snapshot
}

func NewRandomWalkFeed(seed int64) *RandomWalkFeed {
	return &RandomWalkFeed{
		rng:   rand.New(rand.NewSource(seed)),
		state: make(map[string]Snapshot),
	}
}

func (f *RandomWalkFeed) TickFor(symbol string, reference decimal.Decimal) Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()

	previous, seen := f.state[symbol]
	var next Snapshot
	switch {
	case !seen && reference.IsPositive():
		next = Snapshot{Symbol: symbol, Price: reference.Round(2), Timestamp: time.Now().UTC()}
	case !seen:
		base := decimal.NewFromInt(100 + int64(f.rng.Intn(200)))
		next = Snapshot{Symbol: symbol, Price: base.Round(2), Timestamp: time.Now().UTC()}
	default:
		step := (f.rng.Float64() - 0.5) * 0.02 // +/-1%
		factor := decimal.NewFromFloat(1 + step)
		price := previous.Price.Mul(factor).Round(2)
		if price.LessThan(floorPrice) {
			price = floorPrice.Round(2)
		}
		next = Snapshot{Symbol: symbol, Price: price, Timestamp: time.Now().UTC()}
	}

	f.state[symbol] = next
	return next
}

// StaticFeed always returns the configured price. Test stub.
type StaticFeed struct {
	mu     sync.Mutex
	prices map[string]decimal.Decimal
}

func NewStaticFeed() *StaticFeed {
	return &StaticFeed{prices: make(map[string]decimal.Decimal)}
}

// SetPrice pins the price returned for symbol.
func (f *StaticFeed) SetPrice(symbol string, price decimal.Decimal) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prices[symbol] = price
}

func (f *StaticFeed) TickFor(symbol string, reference decimal.Decimal) Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	price, ok := f.prices[symbol]
	if !ok {
		price = reference
	}
	return Snapshot{Symbol: symbol, Price: price.Round(2), Timestamp: time.Now().UTC()}
}
