package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"vaultbank/domain"
)

// HTTPFeed reads quotes from a JSON price endpoint:
//
//	{"price": "200000000000", "decimals": 8, "updated_at": 1724800000}
//
// price is an integer string in the feed's own scale, updated_at a unix
// timestamp in seconds.
type HTTPFeed struct {
	url    string
	client *http.Client
}

func NewHTTPFeed(url string, timeout time.Duration) *HTTPFeed {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPFeed{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

type httpQuote struct {
	Price     string `json:"price"`
	Decimals  int32  `json:"decimals"`
	UpdatedAt int64  `json:"updated_at"`
}

func (f *HTTPFeed) LatestQuote(ctx context.Context) (domain.Quote, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return domain.Quote{}, fmt.Errorf("building feed request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return domain.Quote{}, fmt.Errorf("querying feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return domain.Quote{}, fmt.Errorf("feed returned status %d", resp.StatusCode)
	}

	var raw httpQuote
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return domain.Quote{}, fmt.Errorf("decoding feed response: %w", err)
	}

	price, err := decimal.NewFromString(raw.Price)
	if err != nil {
		return domain.Quote{}, fmt.Errorf("parsing feed price %q: %w", raw.Price, err)
	}

	q := domain.Quote{Price: price, Decimals: raw.Decimals}
	if raw.UpdatedAt > 0 {
		q.UpdatedAt = time.Unix(raw.UpdatedAt, 0)
	}
	return q, nil
}
