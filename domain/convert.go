package domain

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
)

// Converter normalizes heterogeneous asset amounts into the 18-decimal
// USD-equivalent accounting unit:
//
//	usd = floor(amount * price / 10^(priceDecimals + assetDecimals - 18))
//
// Division floors toward zero, so residual value below one accounting unit is
// dropped, never created.
type Converter struct {
	prices PriceSource
	tokens DecimalsResolver
}

func NewConverter(prices PriceSource, tokens DecimalsResolver) *Converter {
	return &Converter{prices: prices, tokens: tokens}
}

// ToUSD converts amount (in the asset's smallest units) to USD-equivalent.
// Oracle failures propagate unchanged. Asset/feed pairs whose combined
// precision falls below the accounting scale are rejected with
// ErrUnsupportedDecimals rather than widened.
func (c *Converter) ToUSD(ctx context.Context, asset Asset, amount decimal.Decimal) (decimal.Decimal, error) {
	price, priceDecimals, err := c.prices.Price(ctx, asset)
	if err != nil {
		return decimal.Zero, err
	}

	assetDecimals := USDDecimals
	if !asset.IsNative() {
		assetDecimals, err = c.tokens.Decimals(ctx, asset)
		if err != nil {
			return decimal.Zero, fmt.Errorf("resolving decimals for %q: %w", asset, err)
		}
	}

	shift := priceDecimals + assetDecimals - USDDecimals
	if shift < 0 {
		return decimal.Zero, fmt.Errorf("%w: price %d + asset %d", ErrUnsupportedDecimals, priceDecimals, assetDecimals)
	}

	// decimal coefficients are arbitrary-precision, so the product cannot
	// overflow before the divide.
	return amount.Mul(price).Shift(-shift).Floor(), nil
}
