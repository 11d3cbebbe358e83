// Package price converts native-token amounts of the sale into fiat for
// display.
package price

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Mohsinsiddi/nftsale/internal/chain"
	"github.com/shopspring/decimal"
)

const defaultBaseURL = "https://api.coingecko.com/api/v3"

// Fetcher retrieves native-token prices from CoinGecko.
type Fetcher struct {
	client   *http.Client
	baseURL  string
	currency string
}

// NewFetcher creates a price fetcher quoting in currency (default usd).
func NewFetcher(currency string) *Fetcher {
	if currency == "" {
		currency = "usd"
	}
	return &Fetcher{
		client:   &http.Client{Timeout: 10 * time.Second},
		baseURL:  defaultBaseURL,
		currency: strings.ToLower(currency),
	}
}

// Currency returns the quote currency.
func (f *Fetcher) Currency() string { return f.currency }

// coinGeckoIDs maps chain names to the CoinGecko id of their native token.
var coinGeckoIDs = map[string]string{
	"ethereum": "ethereum",
	"base":     "ethereum",
	"polygon":  "polygon-ecosystem-token",
	"arbitrum": "ethereum",
	"optimism": "ethereum",
}

// Price returns the price of one native token of chainName.
func (f *Fetcher) Price(ctx context.Context, chainName string) (decimal.Decimal, error) {
	id, ok := coinGeckoIDs[strings.ToLower(chainName)]
	if !ok {
		return decimal.Zero, fmt.Errorf("no price feed for chain %s", chainName)
	}
	prices, err := f.fetch(ctx, id)
	if err != nil {
		return decimal.Zero, err
	}
	p, ok := prices[id]
	if !ok {
		return decimal.Zero, fmt.Errorf("price not available for %s in %s", id, f.currency)
	}
	return p, nil
}

// Value converts wei of chainName's native token into the quote currency,
// rounded to cents.
func (f *Fetcher) Value(ctx context.Context, chainName string, wei *big.Int) (decimal.Decimal, error) {
	p, err := f.Price(ctx, chainName)
	if err != nil {
		return decimal.Zero, err
	}
	if wei == nil {
		return decimal.Zero, nil
	}
	return decimal.NewFromBigInt(wei, -chain.EtherDecimals).Mul(p).Round(2), nil
}

// Format renders v as "12.34 USD".
func (f *Fetcher) Format(v decimal.Decimal) string {
	return v.StringFixed(2) + " " + strings.ToUpper(f.currency)
}

func (f *Fetcher) fetch(ctx context.Context, ids ...string) (map[string]decimal.Decimal, error) {
	q := url.Values{}
	q.Set("ids", strings.Join(ids, ","))
	q.Set("vs_currencies", f.currency)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.baseURL+"/simple/price?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching prices: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading price response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("price API returned %s", resp.Status)
	}

	// {"ethereum":{"usd":1234.56}, ...}
	var raw map[string]map[string]decimal.Decimal
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("parsing price response: %w", err)
	}
	prices := make(map[string]decimal.Decimal, len(raw))
	for id, quotes := range raw {
		if p, ok := quotes[f.currency]; ok {
			prices[id] = p
		}
	}
	return prices, nil
}
