package protocol

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/martynov-dm/crypto-agent/internal/tools"
)

// Tools returns the protocol-analysis tool set backed by the given client.
func Tools(c *Client) []tools.Tool {
	return []tools.Tool{protocolTool(c), poolsTool(c), holdersTool(c)}
}

// geckoNetworks maps common chain names to GeckoTerminal network ids.
var geckoNetworks = map[string]string{
	"ethereum": "eth",
	"arbitrum": "arbitrum_one",
	"binance":  "bsc",
	"polygon":  "polygon_pos",
	"optimism": "optimism",
	"base":     "base",
}

// geckoDexes maps common DEX names to GeckoTerminal dex ids.
var geckoDexes = map[string]string{
	"uniswap":   "uniswap_v3",
	"sushiswap": "sushiswap",
	"curve":     "curve",
}

func protocolTool(c *Client) tools.Tool {
	return &tools.Func{
		ToolName:        "analyze_protocol",
		ToolDescription: "Fetches protocol data from DeFiLlama and analyzes TVL, including per-chain breakdown.",
		ToolParameters: `{"type":"object","properties":{
"protocol_id":{"type":"string","description":"DeFiLlama protocol id, e.g. 'aave'"},
"protocol_label":{"type":"string","description":"Human-readable protocol name"},
"chains_to_show":{"type":"array","items":{"type":"string"},"description":"Chains to break down TVL for, e.g. [\"Ethereum\",\"Arbitrum\"]"}},
"required":["protocol_id"]}`,
		Fn: func(ctx context.Context, args string) (string, error) {
			var in struct {
				ProtocolID   string   `json:"protocol_id"`
				ProtocolLabel string  `json:"protocol_label"`
				ChainsToShow []string `json:"chains_to_show"`
			}
			if err := json.Unmarshal([]byte(args), &in); err != nil {
				return "", fmt.Errorf("parse arguments: %w", err)
			}
			if in.ProtocolLabel == "" {
				in.ProtocolLabel = in.ProtocolID
			}

			data, err := c.Protocol(ctx, in.ProtocolID)
			if err != nil {
				return "", err
			}

			var b strings.Builder
			fmt.Fprintf(&b, "=== %s summary ===\n", in.ProtocolLabel)
			if data.Mcap > 0 {
				fmt.Fprintf(&b, "Market cap: $%.2f\n", data.Mcap)
			}

			if n := len(data.TVL); n > 0 {
				current := data.TVL[n-1].TotalLiquidityUSD
				fmt.Fprintf(&b, "Current TVL: $%.2f\n", current)
				if n > 30 {
					monthAgo := data.TVL[n-31].TotalLiquidityUSD
					if monthAgo != 0 {
						fmt.Fprintf(&b, "TVL change over 30 days: %.2f%%\n", (current-monthAgo)/monthAgo*100)
					}
				}
			}

			show := make(map[string]bool, len(in.ChainsToShow))
			for _, chain := range in.ChainsToShow {
				show[chain] = true
			}
			type chainTVL struct {
				name string
				tvl  float64
			}
			var chains []chainTVL
			for name, chain := range data.ChainTVLs {
				if len(show) > 0 && !show[name] {
					continue
				}
				if n := len(chain.TVL); n > 0 {
					chains = append(chains, chainTVL{name, chain.TVL[n-1].TotalLiquidityUSD})
				}
			}
			sort.Slice(chains, func(i, j int) bool { return chains[i].tvl > chains[j].tvl })
			if len(chains) > 0 {
				b.WriteString("\nTVL by chain:\n")
				for _, ch := range chains {
					fmt.Fprintf(&b, "- %s: $%.2f\n", ch.name, ch.tvl)
				}
			}
			return b.String(), nil
		},
	}
}

func poolsTool(c *Client) tools.Tool {
	return &tools.Func{
		ToolName:        "analyze_pools_geckoterminal",
		ToolDescription: "Analyzes a DEX's liquidity pools on a network using GeckoTerminal data.",
		ToolParameters: `{"type":"object","properties":{
"network":{"type":"string","description":"Network name, e.g. 'ethereum', 'arbitrum'"},
"protocol_id":{"type":"string","description":"DEX id, e.g. 'uniswap'"},
"protocol_label":{"type":"string","description":"Human-readable DEX name"}},
"required":["network","protocol_id"]}`,
		Fn: func(ctx context.Context, args string) (string, error) {
			var in struct {
				Network       string `json:"network"`
				ProtocolID    string `json:"protocol_id"`
				ProtocolLabel string `json:"protocol_label"`
			}
			if err := json.Unmarshal([]byte(args), &in); err != nil {
				return "", fmt.Errorf("parse arguments: %w", err)
			}
			if in.ProtocolLabel == "" {
				in.ProtocolLabel = in.ProtocolID
			}

			network := in.Network
			if mapped, ok := geckoNetworks[strings.ToLower(network)]; ok {
				network = mapped
			}
			dex := in.ProtocolID
			if mapped, ok := geckoDexes[strings.ToLower(dex)]; ok {
				dex = mapped
			}

			pools, err := c.DexPools(ctx, network, dex)
			if err != nil {
				return "", err
			}
			if len(pools) == 0 {
				return fmt.Sprintf("No pools found for %s on %s", in.ProtocolLabel, in.Network), nil
			}

			var b strings.Builder
			fmt.Fprintf(&b, "Top %s pools on %s:\n", in.ProtocolLabel, in.Network)
			for i, p := range pools {
				if i >= 10 {
					break
				}
				fmt.Fprintf(&b, "- %s: reserve $%s, 24h volume $%s\n",
					p.Attributes.Name, p.Attributes.ReserveUSD, p.Attributes.VolumeUSD.H24)
			}
			return b.String(), nil
		},
	}
}

func holdersTool(c *Client) tools.Tool {
	return &tools.Func{
		ToolName:        "analyze_token_holders",
		ToolDescription: "Analyzes the holder distribution of a token contract using Bitquery.",
		ToolParameters: `{"type":"object","properties":{
"token_address":{"type":"string","description":"Token contract address"},
"token_label":{"type":"string","description":"Human-readable token name"},
"chain":{"type":"string","description":"Chain the token lives on, default 'eth'"}},
"required":["token_address"]}`,
		Fn: func(ctx context.Context, args string) (string, error) {
			var in struct {
				TokenAddress string `json:"token_address"`
				TokenLabel   string `json:"token_label"`
				Chain        string `json:"chain"`
			}
			if err := json.Unmarshal([]byte(args), &in); err != nil {
				return "", fmt.Errorf("parse arguments: %w", err)
			}
			if in.Chain == "" || strings.EqualFold(in.Chain, "ethereum") {
				in.Chain = "eth"
			}
			if in.TokenLabel == "" {
				in.TokenLabel = in.TokenAddress
			}

			holders, err := c.TokenHolders(ctx, in.TokenAddress, in.Chain)
			if err != nil {
				return "", err
			}
			if len(holders) == 0 {
				return fmt.Sprintf("No holder data for %s", in.TokenLabel), nil
			}

			var total float64
			for _, h := range holders {
				total += h.Amount
			}

			var b strings.Builder
			fmt.Fprintf(&b, "Holder distribution for %s (%s) on %s:\n", in.TokenLabel, in.TokenAddress, in.Chain)
			var top10 float64
			for i, h := range holders {
				if i < 5 && total > 0 {
					fmt.Fprintf(&b, "- Top %d: %s holds %.2f%%\n", i+1, h.Address, h.Amount/total*100)
				}
				if i < 10 {
					top10 += h.Amount
				}
			}
			if total > 0 {
				fmt.Fprintf(&b, "Top-10 concentration: %.2f%% of sampled supply\n", top10/total*100)
			}
			return b.String(), nil
		},
	}
}
