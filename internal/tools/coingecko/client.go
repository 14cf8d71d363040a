// Package coingecko provides CoinGecko-backed market data tools.
package coingecko

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

const defaultBaseURL = "https://api.coingecko.com/api/v3"

// Client is a thin CoinGecko API client.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// NewClient creates a CoinGecko client. apiKey may be empty for the free tier.
func NewClient(apiKey string) *Client {
	return &Client{
		baseURL: defaultBaseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: 15 * time.Second},
	}
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out interface{}) error {
	if query == nil {
		query = url.Values{}
	}
	if c.apiKey != "" {
		query.Set("x_cg_demo_api_key", c.apiKey)
	}

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("coingecko request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("coingecko %s: status %d", path, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

type searchResult struct {
	Coins []struct {
		ID            string `json:"id"`
		Name          string `json:"name"`
		Symbol        string `json:"symbol"`
		MarketCapRank int    `json:"market_cap_rank"`
	} `json:"coins"`
}

// Search looks up coins matching the query.
func (c *Client) Search(ctx context.Context, query string) (*searchResult, error) {
	var out searchResult
	q := url.Values{"query": {query}}
	if err := c.get(ctx, "/search", q, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SimplePrice returns the USD price for a coin id.
func (c *Client) SimplePrice(ctx context.Context, coinID string) (float64, error) {
	var out map[string]map[string]float64
	q := url.Values{"ids": {coinID}, "vs_currencies": {"usd"}}
	if err := c.get(ctx, "/simple/price", q, &out); err != nil {
		return 0, err
	}
	entry, ok := out[coinID]
	if !ok {
		return 0, fmt.Errorf("no price data for %q", coinID)
	}
	return entry["usd"], nil
}

type trendingResult struct {
	Coins []struct {
		Item struct {
			ID            string `json:"id"`
			Name          string `json:"name"`
			Symbol        string `json:"symbol"`
			MarketCapRank int    `json:"market_cap_rank"`
		} `json:"item"`
	} `json:"coins"`
}

// Trending returns the currently trending coins.
func (c *Client) Trending(ctx context.Context) (*trendingResult, error) {
	var out trendingResult
	if err := c.get(ctx, "/search/trending", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

type marketChart struct {
	Prices       [][2]float64 `json:"prices"`
	MarketCaps   [][2]float64 `json:"market_caps"`
	TotalVolumes [][2]float64 `json:"total_volumes"`
}

// MarketChart returns historical prices, market caps, and volumes.
func (c *Client) MarketChart(ctx context.Context, coinID, vsCurrency, days string) (*marketChart, error) {
	var out marketChart
	q := url.Values{"vs_currency": {vsCurrency}, "days": {days}}
	if err := c.get(ctx, "/coins/"+coinID+"/market_chart", q, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
