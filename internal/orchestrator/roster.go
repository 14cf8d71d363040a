package orchestrator

import (
	"github.com/martynov-dm/crypto-agent/internal/models"
	"github.com/martynov-dm/crypto-agent/internal/tools"
)

// roleSpec declares a worker agent: its role prompt and the tool subset it
// may call, resolved against the tool registry at startup.
type roleSpec struct {
	ID     string
	Role   models.AgentRole
	Prompt string
	Tools  []string
}

const (
	marketAnalystPrompt = `You are a market analyst agent. Your job is to analyze current
prices, trends, and market indicators for cryptocurrencies. Use the available
tools to fetch and analyze price and trend data.`

	technicalAnalystPrompt = `You are a technical analysis agent. Your job is to analyze
historical data, charts, and technical indicators for cryptocurrencies.

IMPORTANT: To fetch historical token data use the get_token_historical_data tool
with the correct parameters:
- For Ethereum: token_id="ethereum", token_label="Ethereum"
- For Bitcoin: token_id="bitcoin", token_label="Bitcoin"
- For other tokens: the matching identifiers

When a request concerns price or market-cap changes over a period, always pass
the exact period in days.

Analyze the returned data, highlight trends, support and resistance levels, and
give reasoned projections based on technical indicators.`

	newsResearcherPrompt = `You are a news research agent. Your job is to collect and
analyze news, tweets, and events related to cryptocurrencies. Highlight key
events that may move the market and assess their likely impact.`

	traderPrompt = `You are a trading agent. Your job is to carry out trading operations
based on the analysis provided by other agents. Account for risk, estimate the
potential profit, and supervise order execution. Every trade requires an
explicit confirmation step before it is placed.`

	protocolAnalystPrompt = `You are a protocol analysis agent. Your job is to analyze
blockchain protocols, liquidity pools, and holder data. Surface risks, assess
liquidity, and evaluate protocol health metrics.`
)

// workerRoster is the default set of specialized agents.
var workerRoster = []roleSpec{
	{
		ID:     "market_analyst",
		Role:   models.RoleMarketAnalyst,
		Prompt: marketAnalystPrompt,
		Tools: []string{
			"get_token_price",
			"get_trending_coins",
			"search_cryptocurrencies",
			"get_crypto_price",
		},
	},
	{
		ID:     "technical_analyst",
		Role:   models.RoleTechnicalAnalyst,
		Prompt: technicalAnalystPrompt,
		Tools: []string{
			"get_token_historical_data",
			"get_klines_history",
			"get_market_info",
		},
	},
	{
		ID:     "news_researcher",
		Role:   models.RoleNewsResearcher,
		Prompt: newsResearcherPrompt,
		Tools: []string{
			"get_crypto_news",
			"get_crypto_tweets",
			"get_crypto_hacks",
			"get_token_unlocks",
			"get_project_raises",
			"get_polymarket_data",
			"get_market_summary",
		},
	},
	{
		ID:     "trader",
		Role:   models.RoleTrader,
		Prompt: traderPrompt,
		Tools: []string{
			"execute_trade",
			"confirm_trade",
			"get_account_info",
		},
	},
	{
		ID:     "protocol_analyst",
		Role:   models.RoleProtocolAnalyst,
		Prompt: protocolAnalystPrompt,
		Tools: []string{
			"analyze_protocol",
			"analyze_pools_geckoterminal",
			"analyze_token_holders",
		},
	},
}

// resolveTools maps a role's tool names to registry entries. Missing tools
// are skipped so a partially configured registry (for example, missing API
// keys) still yields a working roster.
func resolveTools(reg *tools.Registry, names []string) []tools.Tool {
	out := make([]tools.Tool, 0, len(names))
	for _, name := range names {
		if t, ok := reg.Get(name); ok {
			out = append(out, t)
		}
	}
	return out
}

const supervisorPrompt = `You are the supervisor agent coordinating a team of specialized
agents. ALWAYS delegate tasks to the following agents based on the request:

1. market_analyst - current prices and trends
2. technical_analyst - historical data, charts, price and market-cap changes over a period
3. news_researcher - news and social signals
4. trader - trade execution with explicit confirmation
5. protocol_analyst - protocol and holder analysis

CRITICAL: when a request concerns "historical data", "changes over a period",
or "market-cap analysis", ALWAYS assign the task to technical_analyst with
exact parameters: the token name (Bitcoin/Ethereum/other), the period in days,
and what precisely to analyze (price/market cap/volume).

Delegate with the delegate_task tool, check progress with check_task_status,
and combine finished results with merge_results.`
