// Package llamafeed provides news and social-signal tools backed by the
// DefiLlama feed API.
package llamafeed

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

const defaultBaseURL = "https://feed-api.llama.fi"

// Client is a thin LlamaFeed API client.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a LlamaFeed client.
func NewClient() *Client {
	return &Client{
		baseURL: defaultBaseURL,
		http:    &http.Client{Timeout: 15 * time.Second},
	}
}

func (c *Client) get(ctx context.Context, path string, since time.Time, out interface{}) error {
	q := url.Values{}
	if !since.IsZero() {
		q.Set("since", since.UTC().Format(time.RFC3339))
	}

	u := c.baseURL + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("llamafeed request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("llamafeed %s: status %d", path, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

// NewsItem is one news entry from the feed.
type NewsItem struct {
	Title     string `json:"title"`
	PubDate   string `json:"pub_date"`
	Sentiment string `json:"sentiment"`
	Link      string `json:"link"`
}

// News returns crypto news published since the given time.
func (c *Client) News(ctx context.Context, since time.Time) ([]NewsItem, error) {
	var out []NewsItem
	if err := c.get(ctx, "/news", since, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Tweet is one tweet entry from the feed.
type Tweet struct {
	Tweet     string `json:"tweet"`
	CreatedAt string `json:"tweet_created_at"`
	UserName  string `json:"user_name"`
	Sentiment string `json:"sentiment"`
}

// Tweets returns notable crypto tweets since the given time.
func (c *Client) Tweets(ctx context.Context, since time.Time) ([]Tweet, error) {
	var out []Tweet
	if err := c.get(ctx, "/tweets", since, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Hack is one exploit entry from the feed.
type Hack struct {
	Name      string `json:"name"`
	Timestamp string `json:"timestamp"`
	Amount    string `json:"amount"`
	Technique string `json:"technique"`
	SourceURL string `json:"source_url"`
}

// Hacks returns crypto exploits since the given time.
func (c *Client) Hacks(ctx context.Context, since time.Time) ([]Hack, error) {
	var out []Hack
	if err := c.get(ctx, "/hacks", since, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Unlock is one token unlock entry.
type Unlock struct {
	Project   string `json:"project"`
	Timestamp string `json:"timestamp"`
	Amount    string `json:"amount"`
}

// Unlocks returns token unlock events since the given time.
func (c *Client) Unlocks(ctx context.Context, since time.Time) ([]Unlock, error) {
	var out []Unlock
	if err := c.get(ctx, "/unlocks", since, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Raise is one fundraise entry.
type Raise struct {
	Project string `json:"project"`
	Date    string `json:"date"`
	Amount  string `json:"amount"`
	Round   string `json:"round"`
}

// Raises returns project fundraises since the given time.
func (c *Client) Raises(ctx context.Context, since time.Time) ([]Raise, error) {
	var out []Raise
	if err := c.get(ctx, "/raises", since, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// PolymarketEntry is one prediction-market entry.
type PolymarketEntry struct {
	Question    string  `json:"question"`
	Probability float64 `json:"probability"`
	Volume      float64 `json:"volume"`
}

// Polymarket returns crypto-related prediction markets.
func (c *Client) Polymarket(ctx context.Context) ([]PolymarketEntry, error) {
	var out []PolymarketEntry
	if err := c.get(ctx, "/polymarket", time.Time{}, &out); err != nil {
		return nil, err
	}
	return out, nil
}
