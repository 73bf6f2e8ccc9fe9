package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/polyquote/polyquote/pkg/bot"
	"github.com/polyquote/polyquote/pkg/storage"
	"github.com/polyquote/polyquote/pkg/ws"
)

func newTestServer(t *testing.T) (*Server, *bot.State, *storage.StateStore) {
	t.Helper()
	store, err := storage.NewStateStore(t.TempDir())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	state := bot.NewState("123")
	srv := NewServer(state, store, "0xwallet", "0xcond", "123", zap.NewNop())
	return srv, state, store
}

func get(t *testing.T, h http.Handler, path string, out interface{}) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if out != nil && rec.Code == http.StatusOK {
		if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
			t.Fatalf("decode %s: %v", path, err)
		}
	}
	return rec
}

func TestHealthz(t *testing.T) {
	srv, _, _ := newTestServer(t)
	var body map[string]string
	rec := get(t, srv.Handler(), "/healthz", &body)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if body["status"] != "ok" {
		t.Errorf("body = %v", body)
	}
}

func TestStatusEndpoint(t *testing.T) {
	srv, state, _ := newTestServer(t)

	state.ApplyQuote(ws.QuoteUpdate{
		BestBid: decimal.RequireFromString("0.45"),
		BestAsk: decimal.RequireFromString("0.55"),
	})
	state.ApplyUserEvent(ws.UserEvent{
		EventType: ws.EventTrade, Status: ws.TradeMatched, Side: "BUY", Size: "25", AssetID: "123",
	}, time.Now())
	state.SetRiskPaused(true)

	var status StatusResponse
	rec := get(t, srv.Handler(), "/api/v1/status", &status)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if status.Address != "0xwallet" || status.Market != "0xcond" || status.AssetID != "123" {
		t.Errorf("identity fields = %+v", status)
	}
	if status.Inventory != "25" || status.BestBid != "0.45" || status.BestAsk != "0.55" {
		t.Errorf("state fields = %+v", status)
	}
	if !status.RiskPaused {
		t.Error("risk_paused not reported")
	}
}

func TestOrdersEndpoint(t *testing.T) {
	srv, state, _ := newTestServer(t)

	state.ApplyUserEvent(ws.UserEvent{
		EventType: ws.EventOrder, Type: ws.OrderPlacement,
		ID: "0x01", Side: "BUY", Price: "0.44", OriginalSize: "500", AssetID: "123",
	}, time.Now())

	var orders []OrderInfo
	rec := get(t, srv.Handler(), "/api/v1/orders", &orders)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if len(orders) != 1 || orders[0].ID != "0x01" || orders[0].Price != "0.44" {
		t.Errorf("orders = %+v", orders)
	}
}

func TestFillsEndpoint(t *testing.T) {
	srv, _, store := newTestServer(t)

	if err := store.AppendFill(storage.Fill{ID: "f1", Side: "BUY", Price: "0.45", Size: "25", TS: 100}); err != nil {
		t.Fatalf("append fill: %v", err)
	}

	var fills []FillInfo
	rec := get(t, srv.Handler(), "/api/v1/fills", &fills)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if len(fills) != 1 || fills[0].ID != "f1" || fills[0].Price != "0.45" {
		t.Errorf("fills = %+v", fills)
	}
}
