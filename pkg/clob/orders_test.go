package clob

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"io"
	"math/big"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/polyquote/polyquote/pkg/crypto"
)

func dec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("bad decimal %q: %v", s, err)
	}
	return d
}

func TestOrderAmounts(t *testing.T) {
	tests := []struct {
		name         string
		side         Side
		price, size  string
		maker, taker string
	}{
		{"buy half", SideBuy, "0.50", "50", "25000000", "50000000"},
		{"sell half", SideSell, "0.50", "50", "50000000", "25000000"},
		{"buy odd price", SideBuy, "0.123", "10", "1230000", "10000000"},
		{"buy fractional size", SideBuy, "0.45", "12.5", "5625000", "12500000"},
		{"sell penny", SideSell, "0.01", "500", "500000000", "5000000"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			maker, taker := orderAmounts(tt.side, dec(t, tt.price), dec(t, tt.size))
			if maker.String() != tt.maker {
				t.Errorf("maker = %s, want %s", maker, tt.maker)
			}
			if taker.String() != tt.taker {
				t.Errorf("taker = %s, want %s", taker, tt.taker)
			}
		})
	}
}

func TestCreateOrderSignsRecoverably(t *testing.T) {
	c := newTestClient(t, "http://unused.invalid")

	tokenID := "71321045679252212594626385532706912750332728571942532289631379312455583992563"
	order, err := c.CreateOrder(OrderArgs{
		TokenID: tokenID,
		Price:   dec(t, "0.45"),
		Size:    dec(t, "100"),
		Side:    SideBuy,
	})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}

	if order.Maker != c.Address() || order.Signer != c.Address() {
		t.Errorf("maker/signer = %s/%s, want %s", order.Maker, order.Signer, c.Address())
	}
	if order.MakerAmount != "45000000" || order.TakerAmount != "100000000" {
		t.Errorf("amounts = %s/%s", order.MakerAmount, order.TakerAmount)
	}
	if order.Side != "BUY" {
		t.Errorf("side = %s", order.Side)
	}
	if order.Salt < 0 || order.Salt >= 1_000_000_000 {
		t.Errorf("salt = %d, want [0,1e9)", order.Salt)
	}

	// Rebuild the digest from the wire form and recover the signer.
	tid, _ := new(big.Int).SetString(order.TokenID, 10)
	makerAmt, _ := new(big.Int).SetString(order.MakerAmount, 10)
	takerAmt, _ := new(big.Int).SetString(order.TakerAmount, 10)
	digest, err := crypto.HashExchangeOrder(137, CTFExchangeAddress, &crypto.ExchangeOrder{
		Salt:        big.NewInt(order.Salt),
		Maker:       common.HexToAddress(order.Maker),
		Signer:      common.HexToAddress(order.Signer),
		Taker:       common.HexToAddress(order.Taker),
		TokenID:     tid,
		MakerAmount: makerAmt,
		TakerAmount: takerAmt,
		Expiration:  big.NewInt(0),
		Nonce:       big.NewInt(0),
		FeeRateBps:  big.NewInt(0),
		Side:        0,
	})
	if err != nil {
		t.Fatalf("hash order: %v", err)
	}
	sig, err := hex.DecodeString(order.Signature[2:])
	if err != nil {
		t.Fatalf("decode signature: %v", err)
	}
	recovered, err := crypto.RecoverAddress(digest, sig)
	if err != nil {
		t.Fatalf("recover: %v", err)
	}
	if recovered.Hex() != c.Address() {
		t.Errorf("recovered %s, want %s", recovered.Hex(), c.Address())
	}
}

func TestCreateOrderValidation(t *testing.T) {
	c := newTestClient(t, "http://unused.invalid")

	if _, err := c.CreateOrder(OrderArgs{TokenID: "abc", Price: dec(t, "0.5"), Size: dec(t, "1"), Side: SideBuy}); err == nil {
		t.Error("expected error for non-decimal token id")
	}
	if _, err := c.CreateOrder(OrderArgs{TokenID: "1", Price: decimal.Zero, Size: dec(t, "1"), Side: SideBuy}); err == nil {
		t.Error("expected error for zero price")
	}
	if _, err := c.CreateOrder(OrderArgs{TokenID: "1", Price: dec(t, "0.5"), Size: decimal.Zero, Side: SideSell}); err == nil {
		t.Error("expected error for zero size")
	}
}

func TestPostOrderPayload(t *testing.T) {
	var got map[string]json.RawMessage
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/order" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &got); err != nil {
			t.Errorf("bad body: %v", err)
		}
		json.NewEncoder(w).Encode(OrderResponse{Success: true, OrderID: "0xdeadbeef", Status: "live"})
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	c.SetAPICreds(testCreds())

	order, err := c.CreateOrder(OrderArgs{TokenID: "123", Price: dec(t, "0.5"), Size: dec(t, "10"), Side: SideSell})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	resp, err := c.PostOrder(context.Background(), order, OrderTypeGTC)
	if err != nil {
		t.Fatalf("post order: %v", err)
	}
	if resp.OrderID != "0xdeadbeef" {
		t.Errorf("order id = %s", resp.OrderID)
	}

	var owner, orderType string
	json.Unmarshal(got["owner"], &owner)
	json.Unmarshal(got["orderType"], &orderType)
	if owner != "key-1" {
		t.Errorf("owner = %s, want api key", owner)
	}
	if orderType != "GTC" {
		t.Errorf("orderType = %s, want GTC", orderType)
	}
	var sent SignedOrder
	if err := json.Unmarshal(got["order"], &sent); err != nil {
		t.Fatalf("decode order: %v", err)
	}
	if sent.TokenID != "123" || sent.Side != "SELL" {
		t.Errorf("sent order = %+v", sent)
	}
}

func TestPostOrderRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(OrderResponse{Success: false, ErrorMsg: "not enough balance"})
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	c.SetAPICreds(testCreds())

	order, _ := c.CreateOrder(OrderArgs{TokenID: "123", Price: dec(t, "0.5"), Size: dec(t, "10"), Side: SideBuy})
	resp, err := c.PostOrder(context.Background(), order, OrderTypeGTC)
	if err == nil {
		t.Fatal("expected error for rejected order")
	}
	if resp == nil || resp.ErrorMsg != "not enough balance" {
		t.Errorf("resp = %+v", resp)
	}
}

func TestCancelEndpoints(t *testing.T) {
	type call struct{ method, path, body string }
	var calls []call
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		calls = append(calls, call{r.Method, r.URL.Path, string(body)})
		io.WriteString(w, "{}")
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	c.SetAPICreds(testCreds())

	if err := c.Cancel(context.Background(), "0x01"); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if err := c.CancelOrders(context.Background(), []string{"0x01", "0x02"}); err != nil {
		t.Fatalf("cancel orders: %v", err)
	}
	if err := c.CancelOrders(context.Background(), nil); err != nil {
		t.Fatalf("cancel orders empty: %v", err)
	}
	if err := c.CancelAll(context.Background()); err != nil {
		t.Fatalf("cancel all: %v", err)
	}

	want := []call{
		{"DELETE", "/order", `{"orderID":"0x01"}`},
		{"DELETE", "/orders", `["0x01","0x02"]`},
		{"DELETE", "/cancel-all", ""},
	}
	if len(calls) != len(want) {
		t.Fatalf("got %d calls, want %d", len(calls), len(want))
	}
	for i, w := range want {
		if calls[i] != w {
			t.Errorf("call[%d] = %+v, want %+v", i, calls[i], w)
		}
	}
}

func TestGetOrderBookBestQuotes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("token_id"); got != "123" {
			t.Errorf("token_id = %s", got)
		}
		json.NewEncoder(w).Encode(OrderBook{
			Market:  "0xabc",
			AssetID: "123",
			Bids:    []BookLevel{{Price: "0.10", Size: "900"}, {Price: "0.44", Size: "100"}, {Price: "0.45", Size: "50"}},
			Asks:    []BookLevel{{Price: "0.90", Size: "800"}, {Price: "0.56", Size: "120"}, {Price: "0.55", Size: "60"}},
		})
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	book, err := c.GetOrderBook(context.Background(), "123")
	if err != nil {
		t.Fatalf("get book: %v", err)
	}

	// best quotes sit at the tail of each side
	if got := book.BestBid(); !got.Equal(dec(t, "0.45")) {
		t.Errorf("best bid = %s, want 0.45", got)
	}
	if got := book.BestAsk(); !got.Equal(dec(t, "0.55")) {
		t.Errorf("best ask = %s, want 0.55", got)
	}

	empty := &OrderBook{}
	if !empty.BestBid().IsZero() || !empty.BestAsk().IsZero() {
		t.Error("empty book should report zero quotes")
	}
}

func TestGetPositions(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/positions" {
			t.Errorf("path = %s", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("user") != "0xwallet" || q.Get("market") != "0xcond" {
			t.Errorf("query = %s", r.URL.RawQuery)
		}
		json.NewEncoder(w).Encode([]Position{{Asset: "123", Size: 40, AvgPrice: 0.42, Outcome: "Yes"}})
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	positions, err := c.GetPositions(context.Background(), "0xwallet", "0xcond")
	if err != nil {
		t.Fatalf("get positions: %v", err)
	}
	if len(positions) != 1 || positions[0].Size != 40 || positions[0].Outcome != "Yes" {
		t.Errorf("positions = %+v", positions)
	}
}

func TestGetBalanceAllowance(t *testing.T) {
	var gotQueries []url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/balance-allowance" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if r.Header.Get("Poly_api_key") == "" {
			t.Error("missing L2 auth headers")
		}
		gotQueries = append(gotQueries, r.URL.Query())
		json.NewEncoder(w).Encode(BalanceAllowance{Balance: "1250000", Allowance: "1000000000"})
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	c.SetAPICreds(testCreds())

	ba, err := c.GetBalanceAllowance(context.Background(), "")
	if err != nil {
		t.Fatalf("collateral lookup: %v", err)
	}
	if ba.Balance != "1250000" || ba.Allowance != "1000000000" {
		t.Errorf("balance allowance = %+v", ba)
	}

	if _, err := c.GetBalanceAllowance(context.Background(), "123"); err != nil {
		t.Fatalf("token lookup: %v", err)
	}

	if len(gotQueries) != 2 {
		t.Fatalf("requests = %d, want 2", len(gotQueries))
	}
	if q := gotQueries[0]; q.Get("asset_type") != "COLLATERAL" || q.Get("token_id") != "" {
		t.Errorf("collateral query = %v", q)
	}
	if q := gotQueries[1]; q.Get("asset_type") != "CONDITIONAL" || q.Get("token_id") != "123" {
		t.Errorf("token query = %v", q)
	}
}
