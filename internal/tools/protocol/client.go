// Package protocol provides DeFi protocol, pool, and holder analysis tools.
package protocol

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Client bundles the DeFiLlama, GeckoTerminal, and Bitquery endpoints used by
// the protocol-analysis tools.
type Client struct {
	llamaBaseURL string
	geckoBaseURL string
	bitqueryURL  string
	bitqueryKey  string
	http         *http.Client
}

// NewClient creates a protocol analysis client. bitqueryKey may be empty;
// holder analysis then degrades to an explanatory message.
func NewClient(bitqueryKey string) *Client {
	return &Client{
		llamaBaseURL: "https://api.llama.fi",
		geckoBaseURL: "https://api.geckoterminal.com/api/v2",
		bitqueryURL:  "https://streaming.bitquery.io/graphql",
		bitqueryKey:  bitqueryKey,
		http:         &http.Client{Timeout: 20 * time.Second},
	}
}

func (c *Client) getJSON(ctx context.Context, url string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s: status %d", url, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", url, err)
	}
	return nil
}

// ProtocolData is the DeFiLlama protocol payload subset we analyze.
type ProtocolData struct {
	Mcap float64 `json:"mcap"`
	TVL  []struct {
		Date              int64   `json:"date"`
		TotalLiquidityUSD float64 `json:"totalLiquidityUSD"`
	} `json:"tvl"`
	ChainTVLs map[string]struct {
		TVL []struct {
			Date              int64   `json:"date"`
			TotalLiquidityUSD float64 `json:"totalLiquidityUSD"`
		} `json:"tvl"`
	} `json:"chainTvls"`
}

// Protocol fetches protocol data from DeFiLlama.
func (c *Client) Protocol(ctx context.Context, protocolID string) (*ProtocolData, error) {
	var out ProtocolData
	if err := c.getJSON(ctx, c.llamaBaseURL+"/protocol/"+protocolID, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Pool is one GeckoTerminal DEX pool.
type Pool struct {
	Attributes struct {
		Name          string `json:"name"`
		ReserveUSD    string `json:"reserve_in_usd"`
		VolumeUSD     struct {
			H24 string `json:"h24"`
		} `json:"volume_usd"`
	} `json:"attributes"`
}

// DexPools fetches the top pools for a DEX on a network from GeckoTerminal.
func (c *Client) DexPools(ctx context.Context, network, dex string) ([]Pool, error) {
	var out struct {
		Data []Pool `json:"data"`
	}
	url := fmt.Sprintf("%s/networks/%s/dexes/%s/pools", c.geckoBaseURL, network, dex)
	if err := c.getJSON(ctx, url, &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

// Holder is one token holder balance.
type Holder struct {
	Address string
	Amount  float64
}

// TokenHolders queries Bitquery for the largest holders of a token.
func (c *Client) TokenHolders(ctx context.Context, tokenAddress, chain string) ([]Holder, error) {
	if c.bitqueryKey == "" {
		return nil, fmt.Errorf("bitquery api key not configured")
	}

	query := fmt.Sprintf(`{
  EVM(dataset: archive, network: %s) {
    TokenHolders(
      tokenSmartContract: %q
      limit: {count: 100}
      orderBy: {descending: Balance_Amount}
    ) {
      Holder { Address }
      Balance { Amount }
    }
  }
}`, chain, tokenAddress)

	payload, err := json.Marshal(map[string]string{"query": query})
	if err != nil {
		return nil, fmt.Errorf("marshal query: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.bitqueryURL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.bitqueryKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("bitquery request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("bitquery: status %d", resp.StatusCode)
	}

	var out struct {
		Data struct {
			EVM struct {
				TokenHolders []struct {
					Holder  struct{ Address string }
					Balance struct {
						Amount json.Number
					}
				}
			}
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode bitquery response: %w", err)
	}

	holders := make([]Holder, 0, len(out.Data.EVM.TokenHolders))
	for _, h := range out.Data.EVM.TokenHolders {
		amount, _ := h.Balance.Amount.Float64()
		holders = append(holders, Holder{Address: h.Holder.Address, Amount: amount})
	}
	return holders, nil
}
