package hyperliquid

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/martynov-dm/crypto-agent/internal/tools"
)

// Tools returns the HyperLiquid tool set backed by the given client.
func Tools(c *Client) []tools.Tool {
	return []tools.Tool{
		priceTool(c), klinesTool(c), marketInfoTool(c),
		accountInfoTool(c), executeTradeTool(), confirmTradeTool(c),
	}
}

const symbolParams = `{"type":"object","properties":{"symbol":{"type":"string","description":"Asset symbol, e.g. BTC, ETH, HYPE"}},"required":["symbol"]}`

const tradeParams = `{"type":"object","properties":{
"symbol":{"type":"string","description":"Asset symbol, e.g. BTC"},
"amount":{"type":"number","description":"Quantity to trade"},
"side":{"type":"string","enum":["buy","sell"],"description":"Trade side, default buy"}},
"required":["symbol","amount"]}`

type tradeArgs struct {
	Symbol string  `json:"symbol"`
	Amount float64 `json:"amount"`
	Side   string  `json:"side"`
}

func (a *tradeArgs) validate() string {
	if a.Side == "" {
		a.Side = "buy"
	}
	a.Side = strings.ToLower(a.Side)
	if a.Side != "buy" && a.Side != "sell" {
		return fmt.Sprintf("Error: invalid trade side %q, must be 'buy' or 'sell'.", a.Side)
	}
	if a.Amount <= 0 {
		return "Error: amount must be a positive number."
	}
	return ""
}

func priceTool(c *Client) tools.Tool {
	return &tools.Func{
		ToolName:        "get_crypto_price",
		ToolDescription: "Gets the current mid price of an asset on HyperLiquid.",
		ToolParameters:  symbolParams,
		Fn: func(ctx context.Context, args string) (string, error) {
			var in struct {
				Symbol string `json:"symbol"`
			}
			if err := json.Unmarshal([]byte(args), &in); err != nil {
				return "", fmt.Errorf("parse arguments: %w", err)
			}
			symbol := strings.ToUpper(in.Symbol)

			mids, err := c.AllMids(ctx)
			if err != nil {
				return "", err
			}
			price, ok := mids[symbol]
			if !ok {
				return fmt.Sprintf("%s is not listed on HyperLiquid", symbol), nil
			}
			return fmt.Sprintf("Current %s price on HyperLiquid: %s USD", symbol, price), nil
		},
	}
}

func klinesTool(c *Client) tools.Tool {
	return &tools.Func{
		ToolName:        "get_klines_history",
		ToolDescription: "Gets daily candle history for an asset on HyperLiquid for the last N days (default 7).",
		ToolParameters: `{"type":"object","properties":{
"symbol":{"type":"string","description":"Asset symbol, e.g. BTC"},
"days":{"type":"integer","description":"Lookback window in days, default 7"}},
"required":["symbol"]}`,
		Fn: func(ctx context.Context, args string) (string, error) {
			var in struct {
				Symbol string `json:"symbol"`
				Days   int    `json:"days"`
			}
			if err := json.Unmarshal([]byte(args), &in); err != nil {
				return "", fmt.Errorf("parse arguments: %w", err)
			}
			if in.Days <= 0 {
				in.Days = 7
			}
			symbol := strings.ToUpper(in.Symbol)

			end := time.Now().UTC()
			candles, err := c.CandleSnapshot(ctx, symbol, end.AddDate(0, 0, -in.Days), end)
			if err != nil {
				return "", err
			}
			if len(candles) == 0 {
				return fmt.Sprintf("No candle data for %s", symbol), nil
			}

			var b strings.Builder
			fmt.Fprintf(&b, "%s daily candles, last %d days:\n", symbol, in.Days)
			for _, k := range candles {
				fmt.Fprintf(&b, "%s O:%s H:%s L:%s C:%s V:%s\n",
					time.UnixMilli(k.OpenTime).UTC().Format("2006-01-02"),
					k.Open, k.High, k.Low, k.Close, k.Volume)
			}
			return b.String(), nil
		},
	}
}

func marketInfoTool(c *Client) tools.Tool {
	return &tools.Func{
		ToolName:        "get_market_info",
		ToolDescription: "Gets market metadata for an asset on HyperLiquid (leverage, size decimals).",
		ToolParameters:  symbolParams,
		Fn: func(ctx context.Context, args string) (string, error) {
			var in struct {
				Symbol string `json:"symbol"`
			}
			if err := json.Unmarshal([]byte(args), &in); err != nil {
				return "", fmt.Errorf("parse arguments: %w", err)
			}
			symbol := strings.ToUpper(in.Symbol)

			meta, err := c.Meta(ctx)
			if err != nil {
				return "", err
			}
			for _, asset := range meta.Universe {
				if strings.EqualFold(asset.Name, symbol) {
					return fmt.Sprintf("%s market on HyperLiquid: max leverage %dx, size decimals %d",
						asset.Name, asset.MaxLeverage, asset.SzDecimals), nil
				}
			}
			return fmt.Sprintf("%s is not listed on HyperLiquid", symbol), nil
		},
	}
}

func accountInfoTool(c *Client) tools.Tool {
	return &tools.Func{
		ToolName:        "get_account_info",
		ToolDescription: "Gets the current HyperLiquid account state (value, positions).",
		Fn: func(ctx context.Context, args string) (string, error) {
			state, err := c.AccountInfo(ctx)
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("Account value: %s USD, open position notional: %s USD, free collateral: %s USD",
				state.MarginSummary.AccountValue,
				state.MarginSummary.TotalNtlPos,
				state.MarginSummary.TotalRawUsd), nil
		},
	}
}

// executeTradeTool never places an order. It answers with an explicit
// confirmation request so a trade always takes two distinct tool calls.
func executeTradeTool() tools.Tool {
	return &tools.Func{
		ToolName:        "execute_trade",
		ToolDescription: "Requests a trade on HyperLiquid. Returns a confirmation prompt; nothing is placed until confirm_trade.",
		ToolParameters:  tradeParams,
		Fn: func(ctx context.Context, args string) (string, error) {
			var in tradeArgs
			if err := json.Unmarshal([]byte(args), &in); err != nil {
				return "", fmt.Errorf("parse arguments: %w", err)
			}
			if msg := in.validate(); msg != "" {
				return msg, nil
			}
			return fmt.Sprintf(
				"TRADE REQUEST: %s %g %s.\n"+
					"This action needs explicit confirmation. Ask the user to confirm, then call "+
					"confirm_trade with the same parameters. Trading involves financial risk.",
				in.Side, in.Amount, strings.ToUpper(in.Symbol)), nil
		},
	}
}

func confirmTradeTool(c *Client) tools.Tool {
	return &tools.Func{
		ToolName:        "confirm_trade",
		ToolDescription: "Confirms a previously requested trade on HyperLiquid. Order submission requires a configured signing key; without one the confirmed request is reported back unexecuted.",
		ToolParameters:  tradeParams,
		Fn: func(ctx context.Context, args string) (string, error) {
			var in tradeArgs
			if err := json.Unmarshal([]byte(args), &in); err != nil {
				return "", fmt.Errorf("parse arguments: %w", err)
			}
			if msg := in.validate(); msg != "" {
				return msg, nil
			}
			if c.walletAddress == "" {
				return "", ErrNoWallet
			}

			// Order placement needs a signing key, which this deployment does
			// not hold. Verify the account is reachable and report the request
			// as NOT executed rather than pretending it was.
			state, err := c.AccountInfo(ctx)
			if err != nil {
				return "", fmt.Errorf("verify account before trade: %w", err)
			}
			return fmt.Sprintf("Trade NOT executed: %s %g %s. Order execution unavailable: no signing key configured for wallet %s "+
				"(account value %s USD). Place the order manually or configure a signing key.",
				in.Side, in.Amount, strings.ToUpper(in.Symbol), c.walletAddress, state.MarginSummary.AccountValue), nil
		},
	}
}
