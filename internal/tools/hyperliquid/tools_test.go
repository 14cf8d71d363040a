package hyperliquid

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func newTestClient(t *testing.T, wallet string, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return &Client{
		baseURL:       srv.URL,
		walletAddress: wallet,
		http:          &http.Client{Timeout: 5 * time.Second},
	}
}

func accountStateHandler(t *testing.T) http.HandlerFunc {
	t.Helper()
	return func(w http.ResponseWriter, r *http.Request) {
		var req map[string]string
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req["type"] != "clearinghouseState" {
			t.Errorf("unexpected request type %q", req["type"])
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"marginSummary":{"accountValue":"1250.00","totalNtlPos":"0.0","totalRawUsd":"1250.00"}}`))
	}
}

func TestConfirmTradeDoesNotClaimExecution(t *testing.T) {
	c := newTestClient(t, "0xabc", accountStateHandler(t))

	tool := confirmTradeTool(c)
	out, err := tool.Call(context.Background(), `{"symbol":"btc","amount":0.5,"side":"buy"}`)
	if err != nil {
		t.Fatalf("confirm_trade: %v", err)
	}

	if !strings.Contains(out, "Trade NOT executed") {
		t.Errorf("reply does not state the trade was not executed: %q", out)
	}
	if !strings.Contains(out, "no signing key configured") {
		t.Errorf("reply does not explain why execution is unavailable: %q", out)
	}
	if strings.Contains(out, "Order accepted") {
		t.Errorf("reply claims the order was placed: %q", out)
	}
	if !strings.Contains(out, "buy 0.5 BTC") {
		t.Errorf("reply does not echo the confirmed request: %q", out)
	}
	if strings.Contains(tool.Description(), "executes") {
		t.Errorf("description claims execution: %q", tool.Description())
	}
}

func TestConfirmTradeRequiresWallet(t *testing.T) {
	c := newTestClient(t, "", func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected without a wallet")
	})

	_, err := confirmTradeTool(c).Call(context.Background(), `{"symbol":"btc","amount":1}`)
	if !errors.Is(err, ErrNoWallet) {
		t.Fatalf("want ErrNoWallet, got %v", err)
	}
}

func TestConfirmTradeRejectsBadArgs(t *testing.T) {
	c := newTestClient(t, "0xabc", func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected for invalid arguments")
	})
	tool := confirmTradeTool(c)

	out, err := tool.Call(context.Background(), `{"symbol":"btc","amount":-1}`)
	if err != nil {
		t.Fatalf("amount validation: %v", err)
	}
	if !strings.Contains(out, "amount must be a positive number") {
		t.Errorf("unexpected amount validation reply: %q", out)
	}

	out, err = tool.Call(context.Background(), `{"symbol":"btc","amount":1,"side":"hold"}`)
	if err != nil {
		t.Fatalf("side validation: %v", err)
	}
	if !strings.Contains(out, "invalid trade side") {
		t.Errorf("unexpected side validation reply: %q", out)
	}
}
