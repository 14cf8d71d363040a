package llamafeed

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/martynov-dm/crypto-agent/internal/tools"
)

// Tools returns the LlamaFeed tool set backed by the given client.
func Tools(c *Client) []tools.Tool {
	return []tools.Tool{
		newsTool(c), tweetsTool(c), hacksTool(c),
		unlocksTool(c), raisesTool(c), polymarketTool(c), summaryTool(c),
	}
}

const daysParams = `{"type":"object","properties":{"days":{"type":"integer","description":"Lookback window in days"}}}`

// daysArg decodes the common {"days": N} argument shape.
func daysArg(args string, fallback int) (time.Time, int, error) {
	days := fallback
	if strings.TrimSpace(args) != "" {
		var in struct {
			Days int `json:"days"`
		}
		if err := json.Unmarshal([]byte(args), &in); err != nil {
			return time.Time{}, 0, fmt.Errorf("parse arguments: %w", err)
		}
		if in.Days > 0 {
			days = in.Days
		}
	}
	return time.Now().UTC().AddDate(0, 0, -days), days, nil
}

func newsTool(c *Client) tools.Tool {
	return &tools.Func{
		ToolName:        "get_crypto_news",
		ToolDescription: "Gets crypto news for the last N days (default 3).",
		ToolParameters:  daysParams,
		Fn: func(ctx context.Context, args string) (string, error) {
			since, days, err := daysArg(args, 3)
			if err != nil {
				return "", err
			}
			items, err := c.News(ctx, since)
			if err != nil {
				return "", err
			}
			var b strings.Builder
			fmt.Fprintf(&b, "Crypto news, last %d days:\n", days)
			for i, item := range items {
				if i >= 10 {
					break
				}
				fmt.Fprintf(&b, "- %s (%s, sentiment: %s) %s\n", item.Title, item.PubDate, item.Sentiment, item.Link)
			}
			if len(items) == 0 {
				b.WriteString("No news found for the period.\n")
			}
			return b.String(), nil
		},
	}
}

func tweetsTool(c *Client) tools.Tool {
	return &tools.Func{
		ToolName:        "get_crypto_tweets",
		ToolDescription: "Gets notable crypto tweets for the last N days (default 3).",
		ToolParameters:  daysParams,
		Fn: func(ctx context.Context, args string) (string, error) {
			since, days, err := daysArg(args, 3)
			if err != nil {
				return "", err
			}
			items, err := c.Tweets(ctx, since)
			if err != nil {
				return "", err
			}
			var b strings.Builder
			fmt.Fprintf(&b, "Notable crypto tweets, last %d days:\n", days)
			for i, t := range items {
				if i >= 10 {
					break
				}
				fmt.Fprintf(&b, "- @%s: %s (%s, sentiment: %s)\n", t.UserName, t.Tweet, t.CreatedAt, t.Sentiment)
			}
			if len(items) == 0 {
				b.WriteString("No tweets found for the period.\n")
			}
			return b.String(), nil
		},
	}
}

func hacksTool(c *Client) tools.Tool {
	return &tools.Func{
		ToolName:        "get_crypto_hacks",
		ToolDescription: "Gets crypto hacks and exploits for the last N days (default 30).",
		ToolParameters:  daysParams,
		Fn: func(ctx context.Context, args string) (string, error) {
			since, days, err := daysArg(args, 30)
			if err != nil {
				return "", err
			}
			items, err := c.Hacks(ctx, since)
			if err != nil {
				return "", err
			}
			if len(items) == 0 {
				return fmt.Sprintf("No hacks reported in the last %d days.", days), nil
			}
			var b strings.Builder
			fmt.Fprintf(&b, "Crypto hacks, last %d days:\n", days)
			for _, h := range items {
				fmt.Fprintf(&b, "- %s: %s stolen via %s (%s) %s\n", h.Name, h.Amount, h.Technique, h.Timestamp, h.SourceURL)
			}
			return b.String(), nil
		},
	}
}

func unlocksTool(c *Client) tools.Tool {
	return &tools.Func{
		ToolName:        "get_token_unlocks",
		ToolDescription: "Gets token unlock events for the last N days (default 30).",
		ToolParameters:  daysParams,
		Fn: func(ctx context.Context, args string) (string, error) {
			since, days, err := daysArg(args, 30)
			if err != nil {
				return "", err
			}
			items, err := c.Unlocks(ctx, since)
			if err != nil {
				return "", err
			}
			if len(items) == 0 {
				return fmt.Sprintf("No token unlocks in the last %d days.", days), nil
			}
			var b strings.Builder
			fmt.Fprintf(&b, "Token unlocks, last %d days:\n", days)
			for _, u := range items {
				fmt.Fprintf(&b, "- %s: %s (%s)\n", u.Project, u.Amount, u.Timestamp)
			}
			return b.String(), nil
		},
	}
}

func raisesTool(c *Client) tools.Tool {
	return &tools.Func{
		ToolName:        "get_project_raises",
		ToolDescription: "Gets project fundraising rounds for the last N days (default 30).",
		ToolParameters:  daysParams,
		Fn: func(ctx context.Context, args string) (string, error) {
			since, days, err := daysArg(args, 30)
			if err != nil {
				return "", err
			}
			items, err := c.Raises(ctx, since)
			if err != nil {
				return "", err
			}
			if len(items) == 0 {
				return fmt.Sprintf("No fundraises in the last %d days.", days), nil
			}
			var b strings.Builder
			fmt.Fprintf(&b, "Project fundraises, last %d days:\n", days)
			for _, r := range items {
				fmt.Fprintf(&b, "- %s raised %s in a %s round (%s)\n", r.Project, r.Amount, r.Round, r.Date)
			}
			return b.String(), nil
		},
	}
}

func polymarketTool(c *Client) tools.Tool {
	return &tools.Func{
		ToolName:        "get_polymarket_data",
		ToolDescription: "Gets crypto-related Polymarket prediction markets.",
		Fn: func(ctx context.Context, args string) (string, error) {
			items, err := c.Polymarket(ctx)
			if err != nil {
				return "", err
			}
			if len(items) == 0 {
				return "No active crypto prediction markets found.", nil
			}
			var b strings.Builder
			b.WriteString("Polymarket crypto markets:\n")
			for i, m := range items {
				if i >= 10 {
					break
				}
				fmt.Fprintf(&b, "- %s: %.0f%% probability, $%.0f volume\n", m.Question, m.Probability*100, m.Volume)
			}
			return b.String(), nil
		},
	}
}

// summaryTool aggregates news, hacks, and unlocks into one market overview.
// Each section degrades independently on failure.
func summaryTool(c *Client) tools.Tool {
	return &tools.Func{
		ToolName:        "get_market_summary",
		ToolDescription: "Gets a combined market overview: news, hacks, and unlocks for the last N days (default 7).",
		ToolParameters:  daysParams,
		Fn: func(ctx context.Context, args string) (string, error) {
			since, days, err := daysArg(args, 7)
			if err != nil {
				return "", err
			}

			var b strings.Builder
			fmt.Fprintf(&b, "Market overview, last %d days\n\n", days)

			if news, err := c.News(ctx, since); err != nil {
				fmt.Fprintf(&b, "News unavailable: %v\n", err)
			} else {
				fmt.Fprintf(&b, "Top news (%d items):\n", len(news))
				for i, item := range news {
					if i >= 5 {
						break
					}
					fmt.Fprintf(&b, "- %s (%s)\n", item.Title, item.Sentiment)
				}
			}

			if hacks, err := c.Hacks(ctx, since); err != nil {
				fmt.Fprintf(&b, "Hack data unavailable: %v\n", err)
			} else {
				fmt.Fprintf(&b, "\nExploits: %d reported\n", len(hacks))
			}

			if unlocks, err := c.Unlocks(ctx, since); err != nil {
				fmt.Fprintf(&b, "Unlock data unavailable: %v\n", err)
			} else {
				fmt.Fprintf(&b, "Token unlocks: %d scheduled\n", len(unlocks))
			}

			return b.String(), nil
		},
	}
}
