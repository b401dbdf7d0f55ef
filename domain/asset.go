package domain

import (
	"context"
	"fmt"
	"sync"
)

// Asset identifies a deposit-eligible asset.
type Asset string

// NativeAsset is the sentinel identifier for the chain's native currency.
// It always carries 18 decimal places and is never resolved through a
// DecimalsResolver.
const NativeAsset Asset = "native"

// USDDecimals is the fixed-point precision of the common accounting unit.
// Every conversion normalizes to this scale.
const USDDecimals int32 = 18

// IsNative reports whether a is the native-currency sentinel.
func (a Asset) IsNative() bool { return a == NativeAsset }

// DecimalsResolver answers an asset's declared decimal precision. It is the
// boundary to the asset itself (for on-chain tokens, the token contract's
// decimals query) and is injected into the converter.
type DecimalsResolver interface {
	Decimals(ctx context.Context, asset Asset) (int32, error)
}

// StaticDecimals is a fixed DecimalsResolver backed by a map. Used by
// configuration wiring and tests.
type StaticDecimals map[Asset]int32

func (s StaticDecimals) Decimals(_ context.Context, asset Asset) (int32, error) {
	d, ok := s[asset]
	if !ok {
		return 0, fmt.Errorf("unknown asset %q", asset)
	}
	return d, nil
}

// DecimalBook is a DecimalsResolver that admits new assets at runtime,
// alongside feed registration.
type DecimalBook struct {
	mu sync.RWMutex
	m  map[Asset]int32
}

func NewDecimalBook() *DecimalBook {
	return &DecimalBook{m: make(map[Asset]int32)}
}

func (b *DecimalBook) Set(asset Asset, decimals int32) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.m[asset] = decimals
}

func (b *DecimalBook) Decimals(_ context.Context, asset Asset) (int32, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	d, ok := b.m[asset]
	if !ok {
		return 0, fmt.Errorf("unknown asset %q", asset)
	}
	return d, nil
}
