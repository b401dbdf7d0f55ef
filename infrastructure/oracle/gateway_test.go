package oracle

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vaultbank/domain"
)

type failingFeed struct{ err error }

func (f failingFeed) LatestQuote(context.Context) (domain.Quote, error) {
	return domain.Quote{}, f.err
}

func newTestGateway(now time.Time) *Gateway {
	return New(Config{
		Heartbeat: time.Hour,
		Now:       func() time.Time { return now },
		RateLimit: 1000,
		Burst:     1000,
	})
}

func TestGateway_Price(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("unregistered asset is unavailable", func(t *testing.T) {
		g := newTestGateway(now)
		_, _, err := g.Price(ctx, "tokenA")
		require.ErrorIs(t, err, domain.ErrOracleUnavailable)
	})

	t.Run("fresh positive quote passes", func(t *testing.T) {
		g := newTestGateway(now)
		g.Register("tokenA", NewFixedFeed(decimal.NewFromInt(42), 8, now.Add(-time.Minute)))

		price, dec, err := g.Price(ctx, "tokenA")
		require.NoError(t, err)
		assert.True(t, price.Equal(decimal.NewFromInt(42)))
		assert.Equal(t, int32(8), dec)
	})

	t.Run("zero price is invalid", func(t *testing.T) {
		g := newTestGateway(now)
		g.Register("tokenA", NewFixedFeed(decimal.Zero, 8, now))

		_, _, err := g.Price(ctx, "tokenA")
		require.ErrorIs(t, err, domain.ErrInvalidPrice)
	})

	t.Run("negative price is invalid", func(t *testing.T) {
		g := newTestGateway(now)
		g.Register("tokenA", NewFixedFeed(decimal.NewFromInt(-1), 8, now))

		_, _, err := g.Price(ctx, "tokenA")
		require.ErrorIs(t, err, domain.ErrInvalidPrice)
	})

	t.Run("unset timestamp is invalid", func(t *testing.T) {
		g := newTestGateway(now)
		g.Register("tokenA", NewFixedFeed(decimal.NewFromInt(42), 8, time.Time{}))

		_, _, err := g.Price(ctx, "tokenA")
		require.ErrorIs(t, err, domain.ErrInvalidPrice)
	})

	t.Run("quote older than heartbeat is stale", func(t *testing.T) {
		g := newTestGateway(now)
		// 4000s old against a 3600s heartbeat
		g.Register("tokenA", NewFixedFeed(decimal.NewFromInt(42), 8, now.Add(-4000*time.Second)))

		_, _, err := g.Price(ctx, "tokenA")
		require.ErrorIs(t, err, domain.ErrStalePrice)
	})

	t.Run("quote exactly at heartbeat age is accepted", func(t *testing.T) {
		g := newTestGateway(now)
		g.Register("tokenA", NewFixedFeed(decimal.NewFromInt(42), 8, now.Add(-time.Hour)))

		_, _, err := g.Price(ctx, "tokenA")
		require.NoError(t, err)
	})

	t.Run("cache serves repeat reads without feed calls", func(t *testing.T) {
		g := newTestGateway(now)
		feed := NewFixedFeed(decimal.NewFromInt(42), 8, now.Add(-time.Minute))
		g.Register("tokenA", feed)

		for i := 0; i < 5; i++ {
			_, _, err := g.Price(ctx, "tokenA")
			require.NoError(t, err)
		}
		assert.Equal(t, 1, feed.Calls)
	})

	t.Run("feed errors surface as unavailable", func(t *testing.T) {
		g := newTestGateway(now)
		g.Register("tokenA", failingFeed{err: errors.New("connection refused")})

		_, _, err := g.Price(ctx, "tokenA")
		require.ErrorIs(t, err, domain.ErrOracleUnavailable)
	})

	t.Run("breaker opens after consecutive failures", func(t *testing.T) {
		g := newTestGateway(now)
		g.Register("tokenA", failingFeed{err: errors.New("connection refused")})

		for i := 0; i < 3; i++ {
			_, _, err := g.Price(ctx, "tokenA")
			require.Error(t, err)
		}
		// Breaker is open now; the error stays in the unavailable class.
		_, _, err := g.Price(ctx, "tokenA")
		require.ErrorIs(t, err, domain.ErrOracleUnavailable)
	})

	t.Run("register overwrites the previous feed", func(t *testing.T) {
		g := newTestGateway(now)
		g.Register("tokenA", NewFixedFeed(decimal.NewFromInt(1), 8, now))
		g.Register("tokenA", NewFixedFeed(decimal.NewFromInt(2), 8, now))

		price, _, err := g.Price(ctx, "tokenA")
		require.NoError(t, err)
		assert.True(t, price.Equal(decimal.NewFromInt(2)))
	})
}
