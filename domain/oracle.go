package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Quote is a single oracle observation: an integer price in the feed's own
// fixed-point scale, the scale itself, and when the feed last updated.
type Quote struct {
	Price     decimal.Decimal `json:"price"`
	Decimals  int32           `json:"decimals"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// PriceFeed is an oracle reference registered for an asset. Implementations
// are external (HTTP endpoints, on-chain aggregators); the core only reads.
type PriceFeed interface {
	LatestQuote(ctx context.Context) (Quote, error)
}

// PriceSource hands out validated prices. The oracle gateway implements it;
// the converter consumes it.
type PriceSource interface {
	Price(ctx context.Context, asset Asset) (price decimal.Decimal, priceDecimals int32, err error)
}
