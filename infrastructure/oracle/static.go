package oracle

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"vaultbank/domain"
)

// FixedFeed serves a hand-set quote. Used for bootstrap configurations and
// as a controllable feed in tests.
type FixedFeed struct {
	mu sync.Mutex
	q  domain.Quote

	// Calls counts LatestQuote invocations.
	Calls int
}

func NewFixedFeed(price decimal.Decimal, decimals int32, updatedAt time.Time) *FixedFeed {
	return &FixedFeed{q: domain.Quote{Price: price, Decimals: decimals, UpdatedAt: updatedAt}}
}

func (f *FixedFeed) LatestQuote(context.Context) (domain.Quote, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls++
	return f.q, nil
}

// SetQuote replaces the served quote.
func (f *FixedFeed) SetQuote(price decimal.Decimal, decimals int32, updatedAt time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.q = domain.Quote{Price: price, Decimals: decimals, UpdatedAt: updatedAt}
}
