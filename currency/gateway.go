/*
Package currency provides exchange-rate lookup for cross-currency mutations.

PURPOSE:
  The ledger core calls Convert whenever the two sides of a transfer (or a
  goal top-up crossing goal/wallet currencies) differ in currency. A failed
  conversion aborts the mutation before any write occurs, so this package
  never participates in compensation.

IMPLEMENTATIONS:
  - Static: fixed in-memory rate table (tests, dev, single-currency setups)
  - Client: HTTP rate service with retry/backoff (client.go)
  - Cached: wrapper memoizing rates for a TTL

SEE ALSO:
  - client.go: HTTP implementation
  - ledger/mutator.go: The only caller
*/
package currency

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// Conversion is the result of one exchange-rate lookup.
type Conversion struct {
	From            string
	To              string
	Rate            decimal.Decimal
	ConvertedAmount decimal.Decimal
}

// Gateway converts an amount between two currency codes. It fails with a
// descriptive error if either currency is unsupported or the rate service
// is unavailable.
type Gateway interface {
	Convert(ctx context.Context, amount decimal.Decimal, from, to string) (Conversion, error)
}

// =============================================================================
// STATIC GATEWAY - Fixed rate table
// =============================================================================

// Static converts using a fixed rate table keyed by "FROM/TO".
// Identity conversions (from == to) always succeed with rate 1.
type Static struct {
	mu    sync.RWMutex
	rates map[string]decimal.Decimal
}

func NewStatic() *Static {
	return &Static{rates: make(map[string]decimal.Decimal)}
}

// SetRate registers a rate for from->to and its inverse.
func (s *Static) SetRate(from, to string, rate decimal.Decimal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rates[from+"/"+to] = rate
	if !rate.IsZero() {
		s.rates[to+"/"+from] = decimal.NewFromInt(1).Div(rate)
	}
}

func (s *Static) Convert(_ context.Context, amount decimal.Decimal, from, to string) (Conversion, error) {
	if from == to {
		return Conversion{From: from, To: to, Rate: decimal.NewFromInt(1), ConvertedAmount: amount}, nil
	}

	s.mu.RLock()
	rate, ok := s.rates[from+"/"+to]
	s.mu.RUnlock()
	if !ok {
		return Conversion{}, fmt.Errorf("no rate configured for %s/%s", from, to)
	}
	return Conversion{
		From:            from,
		To:              to,
		Rate:            rate,
		ConvertedAmount: amount.Mul(rate),
	}, nil
}

// =============================================================================
// CACHED GATEWAY - TTL memoization wrapper
// =============================================================================

// Cached wraps a Gateway and memoizes rates per currency pair for a TTL.
// The converted amount is recomputed from the cached rate, so any amount
// benefits from a prior lookup of the same pair.
type Cached struct {
	inner Gateway
	ttl   time.Duration
	now   func() time.Time

	mu    sync.Mutex
	rates map[string]cachedRate
}

type cachedRate struct {
	rate      decimal.Decimal
	fetchedAt time.Time
}

func NewCached(inner Gateway, ttl time.Duration) *Cached {
	return &Cached{
		inner: inner,
		ttl:   ttl,
		now:   time.Now,
		rates: make(map[string]cachedRate),
	}
}

func (c *Cached) Convert(ctx context.Context, amount decimal.Decimal, from, to string) (Conversion, error) {
	if from == to {
		return Conversion{From: from, To: to, Rate: decimal.NewFromInt(1), ConvertedAmount: amount}, nil
	}

	key := from + "/" + to

	c.mu.Lock()
	entry, ok := c.rates[key]
	c.mu.Unlock()

	if ok && c.now().Sub(entry.fetchedAt) < c.ttl {
		return Conversion{
			From:            from,
			To:              to,
			Rate:            entry.rate,
			ConvertedAmount: amount.Mul(entry.rate),
		}, nil
	}

	conv, err := c.inner.Convert(ctx, amount, from, to)
	if err != nil {
		return Conversion{}, err
	}

	c.mu.Lock()
	c.rates[key] = cachedRate{rate: conv.Rate, fetchedAt: c.now()}
	c.mu.Unlock()

	return conv, nil
}
