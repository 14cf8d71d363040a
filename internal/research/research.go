// Package research implements the deep-research pipeline: clarifying
// questions, parameter extraction, parallel data gathering, and the final
// analytical report.
package research

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/lithammer/shortuuid/v4"
	"golang.org/x/sync/errgroup"

	"github.com/martynov-dm/crypto-agent/internal/llm"
	"github.com/martynov-dm/crypto-agent/internal/models"
	"github.com/martynov-dm/crypto-agent/internal/tools"
)

// Archiver persists finished research reports.
type Archiver interface {
	SaveReport(report models.Report) error
}

// Manager runs deep-research sessions over the tool registry.
type Manager struct {
	llm      llm.Service
	registry *tools.Registry
	logger   *slog.Logger
	archive  Archiver
}

// NewManager creates a research manager. archive may be nil.
func NewManager(svc llm.Service, registry *tools.Registry, logger *slog.Logger, archive Archiver) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{llm: svc, registry: registry, logger: logger, archive: archive}
}

// ClarificationQuestions asks the LLM for 3-5 questions that pin down the
// user's goals before the research run.
func (m *Manager) ClarificationQuestions(ctx context.Context, tokenSymbol string) ([]string, error) {
	prompt := fmt.Sprintf(`I want to run a deep research study of the cryptocurrency %s.
Which 3-5 clarifying questions would you ask to better understand my goals and
interests regarding this token?

The questions should establish:
1. The purpose of the research (investment, trading, general understanding)
2. The time horizon of interest
3. The aspects that matter most to me (technology, token economics, team, etc.)
4. My risk profile

Return only the list of questions, one per line, without numbering.`, tokenSymbol)

	content, _, err := m.llm.Chat(ctx, []llm.Message{llm.UserMessage(prompt)})
	if err != nil {
		return nil, fmt.Errorf("clarification questions: %w", err)
	}

	var questions []string
	for _, line := range strings.Split(content, "\n") {
		if q := strings.TrimSpace(line); q != "" {
			questions = append(questions, q)
		}
	}
	return questions, nil
}

var (
	jsonBlockRe   = regexp.MustCompile(`(?s)\{.*\}`)
	tokenSymbolRe = regexp.MustCompile(`\b[A-Z]{2,10}\b`)
)

// ParseParams extracts research parameters from the dialogue. The LLM is
// asked for strict JSON; if its answer cannot be decoded into the parameter
// schema, a heuristic scan of the user messages recovers at least the token
// symbol and the result is flagged as Degraded.
func (m *Manager) ParseParams(ctx context.Context, conversation []llm.Message) (models.ResearchParams, error) {
	var dialogue strings.Builder
	for _, msg := range conversation {
		speaker := "Assistant"
		if msg.Role == "user" {
			speaker = "User"
		}
		fmt.Fprintf(&dialogue, "%s: %s\n", speaker, msg.Content)
	}

	prompt := fmt.Sprintf(`Based on the following dialogue with the user, determine the
parameters for researching a cryptocurrency token. Extract:

1. token_symbol: the token symbol (for example BTC, ETH)
2. token_name: the full token name (if given)
3. token_id: the CoinGecko identifier of the token (if given)
4. token_address: the token's smart-contract address (if given)
5. chain: the blockchain the token runs on (default "ethereum")
6. days_lookback: how many days of historical data to inspect (default 30)
7. risk_profile: the user's risk profile ("low", "moderate", "high") (default "moderate")

Dialogue:
%s

Answer with JSON only, no extra commentary.`, dialogue.String())

	content, _, err := m.llm.Chat(ctx, []llm.Message{llm.UserMessage(prompt)})
	if err != nil {
		return models.ResearchParams{}, fmt.Errorf("parse requirements: %w", err)
	}

	if block := jsonBlockRe.FindString(content); block != "" {
		var params models.ResearchParams
		if err := json.Unmarshal([]byte(block), &params); err == nil && params.TokenSymbol != "" {
			applyDefaults(&params)
			return params, nil
		}
	}

	// Structured extraction failed; fall back to scanning the user messages
	// for something that looks like a ticker.
	m.logger.Warn("research params degraded to heuristic extraction")
	params := models.ResearchParams{TokenSymbol: "BTC", Degraded: true}
	for _, msg := range conversation {
		if msg.Role != "user" {
			continue
		}
		if sym := tokenSymbolRe.FindString(msg.Content); sym != "" {
			params.TokenSymbol = sym
			break
		}
	}
	applyDefaults(&params)
	return params, nil
}

func applyDefaults(p *models.ResearchParams) {
	if p.Chain == "" {
		p.Chain = "ethereum"
	}
	if p.DaysLookback <= 0 {
		p.DaysLookback = 30
	}
	if p.RiskProfile == "" {
		p.RiskProfile = "moderate"
	}
}

// source names one data-gathering call: the registry tool to run and the raw
// JSON arguments to pass it.
type source struct {
	Key  string
	Tool string
	Args string
}

func (m *Manager) sources(params models.ResearchParams) []source {
	days := params.DaysLookback
	label := params.TokenName
	if label == "" {
		label = params.TokenSymbol
	}
	tokenID := params.TokenID
	if tokenID == "" {
		tokenID = strings.ToLower(params.TokenSymbol)
	}

	list := []source{
		{"basic_info", "search_cryptocurrencies", fmt.Sprintf(`{"query":%q}`, params.TokenSymbol)},
		{"price", "get_token_price", fmt.Sprintf(`{"symbol":%q}`, params.TokenSymbol)},
		{"historical_data", "get_token_historical_data",
			fmt.Sprintf(`{"token_id":%q,"token_label":%q,"vs_currency":"usd","days":"%d"}`, tokenID, label, days)},
		{"news", "get_crypto_news", fmt.Sprintf(`{"days":%d}`, days)},
		{"tweets", "get_crypto_tweets", fmt.Sprintf(`{"days":%d}`, days)},
		{"trending", "get_trending_coins", `{"limit":10}`},
		{"market_summary", "get_market_summary", fmt.Sprintf(`{"days":%d}`, days)},
		{"hacks", "get_crypto_hacks", fmt.Sprintf(`{"days":%d}`, days)},
		{"unlocks", "get_token_unlocks", fmt.Sprintf(`{"days":%d}`, days)},
		{"raises", "get_project_raises", fmt.Sprintf(`{"days":%d}`, days)},
	}
	if params.TokenAddress != "" {
		list = append(list, source{"holders", "analyze_token_holders",
			fmt.Sprintf(`{"token_address":%q,"token_label":%q,"chain":%q}`, params.TokenAddress, label, params.Chain)})
	}
	return list
}

// GatherData fans out over every data source in parallel and returns one
// entry per source. A failing or unavailable source contributes a placeholder
// instead of aborting the run.
func (m *Manager) GatherData(ctx context.Context, params models.ResearchParams) map[string]string {
	srcs := m.sources(params)
	results := make([]string, len(srcs))

	var g errgroup.Group
	for i, src := range srcs {
		i, src := i, src
		g.Go(func() error {
			tool, ok := m.registry.Get(src.Tool)
			if !ok {
				results[i] = fmt.Sprintf("Data source %s is not available", src.Tool)
				return nil
			}
			out, err := tool.Call(ctx, src.Args)
			if err != nil {
				m.logger.Warn("research source failed", "source", src.Key, "tool", src.Tool, "error", err)
				results[i] = fmt.Sprintf("Could not fetch %s: %v", src.Key, err)
				return nil
			}
			results[i] = out
			return nil
		})
	}
	_ = g.Wait() // goroutines never return errors

	data := make(map[string]string, len(srcs))
	for i, src := range srcs {
		data[src.Key] = results[i]
	}
	return data
}

var summaryRe = regexp.MustCompile(`(?s)SUMMARY[:\s]*\n+(.*?)\n*#`)

// Analyze turns the gathered data into the final research report. The
// recommendation is extracted from the report text; absent an explicit BUY or
// SELL the verdict defaults to HOLD.
func (m *Manager) Analyze(ctx context.Context, params models.ResearchParams, data map[string]string) (models.ResearchResult, error) {
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var summary strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&summary, "=== %s ===\n%s\n\n", strings.ToUpper(k), data[k])
	}

	name := params.TokenName
	if name == "" {
		name = params.TokenSymbol
	}

	prompt := fmt.Sprintf(`You are an experienced crypto analyst. Analyze the following data
about the token %s and produce a comprehensive report.

RESEARCH PARAMETERS:
- Token: %s (%s)
- Time horizon: %d days
- Risk profile: %s

COLLECTED DATA:
%s

Produce a structured report covering:

1. SUMMARY: a short summary of the token and its current position (3-4 sentences)

2. PRICE ANALYSIS:
   - Current price and the change over the analyzed period
   - Key support and resistance levels
   - Volatility compared with the broader market

3. TECHNICAL ANALYSIS:
   - Trends (short-term, medium-term)
   - Trading volumes and their dynamics

4. MARKET ANALYSIS:
   - Market capitalization and position among competitors
   - Liquidity and market depth

5. SOCIAL SIGNALS:
   - Social media activity and community sentiment
   - Recent significant news and their impact

6. RISK ASSESSMENT:
   - Technical risks (security, centralization)
   - Market risks (competition, liquidity)
   - Regulatory risks

7. RECOMMENDATION:
   - A clear verdict: BUY / HOLD / SELL
   - Justification given the %s risk profile
   - Possible scenarios (optimistic, neutral, pessimistic)

Format the answer as well-structured Markdown with headings and subheadings.`,
		params.TokenSymbol, name, params.TokenSymbol, params.DaysLookback, params.RiskProfile,
		summary.String(), params.RiskProfile)

	content, _, err := m.llm.Chat(ctx, []llm.Message{llm.UserMessage(prompt)})
	if err != nil {
		return models.ResearchResult{}, fmt.Errorf("analyze research data: %w", err)
	}

	result := models.ResearchResult{
		TokenSymbol:    params.TokenSymbol,
		TokenName:      name,
		FullReport:     content,
		Recommendation: "HOLD",
		Timestamp:      time.Now().UTC(),
	}
	switch {
	case strings.Contains(content, "BUY"):
		result.Recommendation = "BUY"
	case strings.Contains(content, "SELL"):
		result.Recommendation = "SELL"
	}
	if match := summaryRe.FindStringSubmatch(content); match != nil {
		result.Summary = strings.TrimSpace(match[1])
	}
	return result, nil
}

// Run executes the full pipeline for a dialogue that already contains the
// user's answers to the clarifying questions: parameter extraction, parallel
// data gathering, and analysis. The finished report is archived when an
// archiver is configured.
func (m *Manager) Run(ctx context.Context, conversation []llm.Message, tokenSymbol string) (models.ResearchResult, error) {
	params, err := m.ParseParams(ctx, conversation)
	if err != nil {
		return models.ResearchResult{}, err
	}
	if tokenSymbol != "" {
		params.TokenSymbol = strings.ToUpper(tokenSymbol)
	}

	m.logger.Info("gathering research data", "token", params.TokenSymbol, "days", params.DaysLookback, "degraded", params.Degraded)
	data := m.GatherData(ctx, params)

	result, err := m.Analyze(ctx, params, data)
	if err != nil {
		return models.ResearchResult{}, err
	}

	if m.archive != nil {
		err := m.archive.SaveReport(models.Report{
			ID:             "rep_" + shortuuid.New(),
			Kind:           models.ReportKindResearch,
			Title:          "Deep research: " + result.TokenSymbol,
			Content:        result.FullReport,
			Summary:        result.Summary,
			Recommendation: result.Recommendation,
			CreatedAt:      result.Timestamp,
		})
		if err != nil {
			m.logger.Warn("research report archive failed", "error", err)
		}
	}
	return result, nil
}
