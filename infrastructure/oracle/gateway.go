package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"vaultbank/domain"
	"vaultbank/infrastructure/cache"
	"vaultbank/telemetry"
)

// DefaultHeartbeat is the freshness window: a quote older than this no
// longer reflects market conditions and must not price an operation.
const DefaultHeartbeat = time.Hour

// DefaultQuoteTTL bounds how long a validated quote is served from cache
// before the feed is consulted again.
const DefaultQuoteTTL = 5 * time.Second

// Config tunes a Gateway. Zero values fall back to defaults.
type Config struct {
	Heartbeat time.Duration
	QuoteTTL  time.Duration
	Cache     cache.Cache
	Metrics   *telemetry.Metrics
	Logger    zerolog.Logger
	Now       func() time.Time

	// Per-feed outbound request budget.
	RateLimit rate.Limit
	Burst     int
}

// Gateway owns the asset -> price feed registry and is the only path the
// core reads prices through. Every read validates positivity and freshness;
// each feed sits behind a circuit breaker and a rate limiter.
type Gateway struct {
	mu    sync.RWMutex
	feeds map[domain.Asset]*feedEntry

	heartbeat time.Duration
	quoteTTL  time.Duration
	quotes    cache.Cache
	metrics   *telemetry.Metrics
	log       zerolog.Logger
	now       func() time.Time
	limit     rate.Limit
	burst     int
}

type feedEntry struct {
	feed    domain.PriceFeed
	breaker *gobreaker.CircuitBreaker
	limiter *rate.Limiter
}

func New(cfg Config) *Gateway {
	if cfg.Heartbeat <= 0 {
		cfg.Heartbeat = DefaultHeartbeat
	}
	if cfg.QuoteTTL <= 0 {
		cfg.QuoteTTL = DefaultQuoteTTL
	}
	if cfg.Cache == nil {
		cfg.Cache = cache.NewMemory()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = telemetry.Nop()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = 10
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 5
	}
	return &Gateway{
		feeds:     make(map[domain.Asset]*feedEntry),
		heartbeat: cfg.Heartbeat,
		quoteTTL:  cfg.QuoteTTL,
		quotes:    cfg.Cache,
		metrics:   cfg.Metrics,
		log:       cfg.Logger,
		now:       cfg.Now,
		limit:     cfg.RateLimit,
		burst:     cfg.Burst,
	}
}

// Register adds or replaces the feed for an asset. The feed is not probed
// here; liveness and quote validity are checked lazily on first use.
func (g *Gateway) Register(asset domain.Asset, feed domain.PriceFeed) {
	st := gobreaker.Settings{Name: "feed:" + string(asset)}
	st.Interval = 60 * time.Second
	st.Timeout = 60 * time.Second
	st.ReadyToTrip = func(counts gobreaker.Counts) bool {
		if counts.ConsecutiveFailures >= 3 {
			return true
		}
		if counts.Requests < 20 {
			return false
		}
		return float64(counts.TotalFailures)/float64(counts.Requests) > 0.05
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	g.feeds[asset] = &feedEntry{
		feed:    feed,
		breaker: gobreaker.NewCircuitBreaker(st),
		limiter: rate.NewLimiter(g.limit, g.burst),
	}
}

// Registered reports whether the asset has a feed.
func (g *Gateway) Registered(asset domain.Asset) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, ok := g.feeds[asset]
	return ok
}

// Price implements domain.PriceSource. Purely advisory; no state changes
// beyond the quote cache.
func (g *Gateway) Price(ctx context.Context, asset domain.Asset) (decimal.Decimal, int32, error) {
	g.mu.RLock()
	entry, ok := g.feeds[asset]
	g.mu.RUnlock()
	if !ok {
		g.metrics.OracleReads.WithLabelValues("unregistered").Inc()
		return decimal.Zero, 0, fmt.Errorf("%w: %q", domain.ErrOracleUnavailable, asset)
	}

	key := "quote:" + string(asset)
	if b, ok := g.quotes.Get(key); ok {
		var q domain.Quote
		if err := json.Unmarshal(b, &q); err == nil && g.validate(q) == nil {
			g.metrics.OracleReads.WithLabelValues("cache").Inc()
			return q.Price, q.Decimals, nil
		}
	}

	if err := entry.limiter.Wait(ctx); err != nil {
		g.metrics.OracleReads.WithLabelValues("limited").Inc()
		return decimal.Zero, 0, fmt.Errorf("%w: rate limit: %v", domain.ErrOracleUnavailable, err)
	}

	res, err := entry.breaker.Execute(func() (any, error) {
		q, err := entry.feed.LatestQuote(ctx)
		if err != nil {
			return nil, fmt.Errorf("%w: reading feed for %q: %v", domain.ErrOracleUnavailable, asset, err)
		}
		if err := g.validate(q); err != nil {
			return nil, err
		}
		return q, nil
	})
	if err != nil {
		g.metrics.OracleReads.WithLabelValues(telemetry.Reason(err)).Inc()
		g.log.Warn().Err(err).Str("asset", string(asset)).Msg("oracle read failed")
		if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
			return decimal.Zero, 0, fmt.Errorf("%w: breaker open for %q", domain.ErrOracleUnavailable, asset)
		}
		return decimal.Zero, 0, err
	}

	q := res.(domain.Quote)
	if b, err := json.Marshal(q); err == nil {
		g.quotes.Set(key, b, g.quoteTTL)
	}
	g.metrics.OracleReads.WithLabelValues("ok").Inc()
	return q.Price, q.Decimals, nil
}

func (g *Gateway) validate(q domain.Quote) error {
	if q.Price.Sign() <= 0 || q.UpdatedAt.IsZero() {
		return fmt.Errorf("%w: price=%s updated_at=%s", domain.ErrInvalidPrice, q.Price, q.UpdatedAt)
	}
	if age := g.now().Sub(q.UpdatedAt); age > g.heartbeat {
		return fmt.Errorf("%w: age %s exceeds heartbeat %s", domain.ErrStalePrice, age, g.heartbeat)
	}
	return nil
}
