package coingecko

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/martynov-dm/crypto-agent/internal/tools"
)

// Tools returns the CoinGecko tool set backed by the given client.
func Tools(c *Client) []tools.Tool {
	return []tools.Tool{
		&priceTool{c},
		&trendingTool{c},
		&searchTool{c},
		&historicalTool{c},
	}
}

type priceTool struct{ client *Client }

func (t *priceTool) Name() string { return "get_token_price" }
func (t *priceTool) Description() string {
	return "Gets the current USD price of a token by its symbol (e.g. BTC, ETH)."
}
func (t *priceTool) Parameters() string {
	return `{"type":"object","properties":{"symbol":{"type":"string","description":"Token symbol, e.g. BTC"}},"required":["symbol"]}`
}

func (t *priceTool) Call(ctx context.Context, args string) (string, error) {
	var in struct {
		Symbol string `json:"symbol"`
	}
	if err := json.Unmarshal([]byte(args), &in); err != nil {
		return "", fmt.Errorf("parse arguments: %w", err)
	}

	search, err := t.client.Search(ctx, strings.ToLower(in.Symbol))
	if err != nil {
		return "", err
	}
	if len(search.Coins) == 0 {
		return fmt.Sprintf("No token found with symbol %s", strings.ToUpper(in.Symbol)), nil
	}

	coinID := search.Coins[0].ID
	price, err := t.client.SimplePrice(ctx, coinID)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Current price of %s: %g USD", strings.ToUpper(in.Symbol), price), nil
}

type trendingTool struct{ client *Client }

func (t *trendingTool) Name() string { return "get_trending_coins" }
func (t *trendingTool) Description() string {
	return "Lists the cryptocurrencies currently trending on CoinGecko."
}
func (t *trendingTool) Parameters() string {
	return `{"type":"object","properties":{"limit":{"type":"integer","description":"Maximum number of coins to return"}}}`
}

func (t *trendingTool) Call(ctx context.Context, args string) (string, error) {
	var in struct {
		Limit int `json:"limit"`
	}
	if args != "" {
		if err := json.Unmarshal([]byte(args), &in); err != nil {
			return "", fmt.Errorf("parse arguments: %w", err)
		}
	}

	trending, err := t.client.Trending(ctx)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString("Trending coins on CoinGecko:\n")
	for i, coin := range trending.Coins {
		if in.Limit > 0 && i >= in.Limit {
			break
		}
		fmt.Fprintf(&b, "%d. %s (%s), market cap rank %d\n",
			i+1, coin.Item.Name, strings.ToUpper(coin.Item.Symbol), coin.Item.MarketCapRank)
	}
	return b.String(), nil
}

type searchTool struct{ client *Client }

func (t *searchTool) Name() string { return "search_cryptocurrencies" }
func (t *searchTool) Description() string {
	return "Searches CoinGecko for cryptocurrencies by name or symbol."
}
func (t *searchTool) Parameters() string {
	return `{"type":"object","properties":{"query":{"type":"string","description":"Name or symbol to search for"}},"required":["query"]}`
}

func (t *searchTool) Call(ctx context.Context, args string) (string, error) {
	var in struct {
		Query string `json:"query"`
	}
	if err := json.Unmarshal([]byte(args), &in); err != nil {
		return "", fmt.Errorf("parse arguments: %w", err)
	}

	search, err := t.client.Search(ctx, in.Query)
	if err != nil {
		return "", err
	}
	if len(search.Coins) == 0 {
		return fmt.Sprintf("No results for %q", in.Query), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Search results for %q:\n", in.Query)
	for i, coin := range search.Coins {
		if i >= 10 {
			break
		}
		fmt.Fprintf(&b, "- %s (%s), id=%s, rank %d\n",
			coin.Name, strings.ToUpper(coin.Symbol), coin.ID, coin.MarketCapRank)
	}
	return b.String(), nil
}

type historicalTool struct{ client *Client }

func (t *historicalTool) Name() string { return "get_token_historical_data" }
func (t *historicalTool) Description() string {
	return "Fetches historical price, market cap, and volume data for a token from CoinGecko and summarizes the period."
}
func (t *historicalTool) Parameters() string {
	return `{"type":"object","properties":{
"token_id":{"type":"string","description":"CoinGecko token id, e.g. 'bitcoin', 'ethereum'"},
"token_label":{"type":"string","description":"Human-readable token name"},
"vs_currency":{"type":"string","description":"Quote currency, default 'usd'"},
"days":{"type":"string","description":"Lookback period in days, default '90'"}},
"required":["token_id"]}`
}

func (t *historicalTool) Call(ctx context.Context, args string) (string, error) {
	var in struct {
		TokenID    string `json:"token_id"`
		TokenLabel string `json:"token_label"`
		VsCurrency string `json:"vs_currency"`
		Days       string `json:"days"`
	}
	if err := json.Unmarshal([]byte(args), &in); err != nil {
		return "", fmt.Errorf("parse arguments: %w", err)
	}
	if in.VsCurrency == "" {
		in.VsCurrency = "usd"
	}
	if in.Days == "" {
		in.Days = "90"
	}
	if in.TokenLabel == "" {
		in.TokenLabel = in.TokenID
	}

	chart, err := t.client.MarketChart(ctx, in.TokenID, in.VsCurrency, in.Days)
	if err != nil {
		return "", err
	}
	if len(chart.Prices) == 0 {
		return fmt.Sprintf("No historical data for %s", in.TokenLabel), nil
	}

	return summarizeChart(in.TokenLabel, in.Days, chart), nil
}

// summarizeChart condenses a market chart into the period summary handed back
// to the LLM.
func summarizeChart(label, days string, chart *marketChart) string {
	current := chart.Prices[len(chart.Prices)-1][1]
	start := chart.Prices[0][1]
	change := pctChange(start, current)

	minPrice, minTS := chart.Prices[0][1], chart.Prices[0][0]
	maxPrice, maxTS := chart.Prices[0][1], chart.Prices[0][0]
	for _, p := range chart.Prices {
		if p[1] < minPrice {
			minPrice, minTS = p[1], p[0]
		}
		if p[1] > maxPrice {
			maxPrice, maxTS = p[1], p[0]
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "=== %s over the last %s days ===\n", label, days)
	fmt.Fprintf(&b, "Current price: $%.6f\n", current)
	fmt.Fprintf(&b, "Price change over period: %.2f%%\n", change)
	fmt.Fprintf(&b, "Low: $%.6f (%s)\n", minPrice, msToDate(minTS))
	fmt.Fprintf(&b, "High: $%.6f (%s)\n", maxPrice, msToDate(maxTS))

	if n := len(chart.MarketCaps); n > 0 {
		capNow := chart.MarketCaps[n-1][1]
		capStart := chart.MarketCaps[0][1]
		fmt.Fprintf(&b, "Market cap: $%.0f (%.2f%% over period)\n", capNow, pctChange(capStart, capNow))
	}
	if n := len(chart.TotalVolumes); n > 0 {
		var sum float64
		for _, v := range chart.TotalVolumes {
			sum += v[1]
		}
		fmt.Fprintf(&b, "Volume: $%.0f now, $%.0f average\n", chart.TotalVolumes[n-1][1], sum/float64(n))
	}
	return b.String()
}

func pctChange(from, to float64) float64 {
	if from == 0 {
		return 0
	}
	return (to - from) / from * 100
}

func msToDate(ms float64) string {
	return time.UnixMilli(int64(ms)).UTC().Format("2006-01-02")
}
