// Package hyperliquid provides market data and trading tools for the
// HyperLiquid exchange.
package hyperliquid

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const defaultBaseURL = "https://api.hyperliquid.xyz"

// Client is a thin HyperLiquid info-API client.
type Client struct {
	baseURL string
	// walletAddress enables account queries and order placement when set.
	walletAddress string
	http          *http.Client
}

// NewClient creates a HyperLiquid client. walletAddress may be empty for
// market-data-only use.
func NewClient(walletAddress string) *Client {
	return &Client{
		baseURL:       defaultBaseURL,
		walletAddress: walletAddress,
		http:          &http.Client{Timeout: 15 * time.Second},
	}
}

func (c *Client) info(ctx context.Context, body interface{}, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/info", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("hyperliquid request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("hyperliquid info: status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// AllMids returns the current mid price for every listed coin.
func (c *Client) AllMids(ctx context.Context) (map[string]string, error) {
	var out map[string]string
	if err := c.info(ctx, map[string]string{"type": "allMids"}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Candle is one OHLCV candle.
type Candle struct {
	OpenTime int64  `json:"t"`
	Open     string `json:"o"`
	Close    string `json:"c"`
	High     string `json:"h"`
	Low      string `json:"l"`
	Volume   string `json:"v"`
}

// CandleSnapshot returns daily candles for a coin over the given window.
func (c *Client) CandleSnapshot(ctx context.Context, coin string, start, end time.Time) ([]Candle, error) {
	req := map[string]interface{}{
		"type": "candleSnapshot",
		"req": map[string]interface{}{
			"coin":      coin,
			"interval":  "1d",
			"startTime": start.UnixMilli(),
			"endTime":   end.UnixMilli(),
		},
	}
	var out []Candle
	if err := c.info(ctx, req, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Meta describes the exchange universe.
type Meta struct {
	Universe []struct {
		Name        string `json:"name"`
		SzDecimals  int    `json:"szDecimals"`
		MaxLeverage int    `json:"maxLeverage"`
	} `json:"universe"`
}

// Meta returns the exchange metadata.
func (c *Client) Meta(ctx context.Context) (*Meta, error) {
	var out Meta
	if err := c.info(ctx, map[string]string{"type": "meta"}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// AccountState holds the margin summary for the configured wallet.
type AccountState struct {
	MarginSummary struct {
		AccountValue string `json:"accountValue"`
		TotalNtlPos  string `json:"totalNtlPos"`
		TotalRawUsd  string `json:"totalRawUsd"`
	} `json:"marginSummary"`
}

// ErrNoWallet indicates account operations were requested without a wallet.
var ErrNoWallet = fmt.Errorf("no wallet address configured")

// AccountInfo returns the clearinghouse state for the configured wallet.
func (c *Client) AccountInfo(ctx context.Context) (*AccountState, error) {
	if c.walletAddress == "" {
		return nil, ErrNoWallet
	}
	var out AccountState
	req := map[string]string{"type": "clearinghouseState", "user": c.walletAddress}
	if err := c.info(ctx, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
