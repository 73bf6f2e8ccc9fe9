package clob

import (
	"github.com/shopspring/decimal"
)

// APICreds are the L2 credentials issued by the CLOB for a wallet.
type APICreds struct {
	APIKey     string `json:"apiKey"`
	Secret     string `json:"secret"`
	Passphrase string `json:"passphrase"`
}

// Side of an order from the maker's point of view.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// Uint8 maps the side onto the exchange contract's enum.
func (s Side) Uint8() uint8 {
	if s == SideSell {
		return 1
	}
	return 0
}

// OrderType controls how the CLOB treats a new order.
type OrderType string

const (
	OrderTypeGTC OrderType = "GTC"
	OrderTypeGTD OrderType = "GTD"
	OrderTypeFOK OrderType = "FOK"
)

// OrderArgs describe a limit order before signing. Price is in USDC per
// share, Size in shares. TokenID is the decimal ERC-1155 token id string.
type OrderArgs struct {
	TokenID    string
	Price      decimal.Decimal
	Size       decimal.Decimal
	Side       Side
	Expiration int64
	NegRisk    bool
}

// SignedOrder is the wire form of an EIP-712 signed order, ready to POST.
type SignedOrder struct {
	Salt          int64  `json:"salt"`
	Maker         string `json:"maker"`
	Signer        string `json:"signer"`
	Taker         string `json:"taker"`
	TokenID       string `json:"tokenId"`
	MakerAmount   string `json:"makerAmount"`
	TakerAmount   string `json:"takerAmount"`
	Expiration    string `json:"expiration"`
	Nonce         string `json:"nonce"`
	FeeRateBps    string `json:"feeRateBps"`
	Side          string `json:"side"`
	SignatureType int    `json:"signatureType"`
	Signature     string `json:"signature"`
}

// OrderResponse is the CLOB's reply to a posted or cancelled order.
type OrderResponse struct {
	Success   bool   `json:"success"`
	ErrorMsg  string `json:"errorMsg"`
	OrderID   string `json:"orderID"`
	Status    string `json:"status"`
	OrderHash string `json:"transactionHash"`
}

// OpenOrder is a resting order as reported by /data/orders.
type OpenOrder struct {
	ID           string `json:"id"`
	Status       string `json:"status"`
	Owner        string `json:"owner"`
	Maker        string `json:"maker"`
	Market       string `json:"market"`
	AssetID      string `json:"asset_id"`
	Side         string `json:"side"`
	Price        string `json:"price"`
	OriginalSize string `json:"original_size"`
	SizeMatched  string `json:"size_matched"`
	Outcome      string `json:"outcome"`
	OrderType    string `json:"order_type"`
	CreatedAt    int64  `json:"created_at"`
	Expiration   string `json:"expiration"`
}

// OpenOrderFilter narrows an open-order query. Nil or zero-valued fields
// are omitted from the request.
type OpenOrderFilter struct {
	Market  string // condition id
	AssetID string // token id
}

// BookLevel is one price level of the order book. Price and size are
// decimal strings as sent by the CLOB.
type BookLevel struct {
	Price string `json:"price"`
	Size  string `json:"size"`
}

// OrderBook is a book snapshot. Bids are sorted worst-to-best, asks
// worst-to-best as well, so the best quote sits at the end of each slice.
type OrderBook struct {
	Market    string      `json:"market"`
	AssetID   string      `json:"asset_id"`
	Timestamp string      `json:"timestamp"`
	Hash      string      `json:"hash"`
	Bids      []BookLevel `json:"bids"`
	Asks      []BookLevel `json:"asks"`
}

// BestBid returns the highest bid, or zero if the book side is empty.
func (b *OrderBook) BestBid() decimal.Decimal {
	if len(b.Bids) == 0 {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(b.Bids[len(b.Bids)-1].Price)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// BestAsk returns the lowest ask, or zero if the book side is empty.
func (b *OrderBook) BestAsk() decimal.Decimal {
	if len(b.Asks) == 0 {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(b.Asks[len(b.Asks)-1].Price)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// Market is the CLOB's market metadata for a condition id.
type Market struct {
	ConditionID string        `json:"condition_id"`
	Question    string        `json:"question"`
	Active      bool          `json:"active"`
	Closed      bool          `json:"closed"`
	NegRisk     bool          `json:"neg_risk"`
	MinTickSize string        `json:"minimum_tick_size"`
	Tokens      []MarketToken `json:"tokens"`
}

// MarketToken is one outcome token of a market.
type MarketToken struct {
	TokenID string  `json:"token_id"`
	Outcome string  `json:"outcome"`
	Price   float64 `json:"price"`
	Winner  bool    `json:"winner"`
}

// BalanceAllowance reports collateral or token balance and the exchange
// allowance for the authenticated wallet.
type BalanceAllowance struct {
	Balance   string `json:"balance"`
	Allowance string `json:"allowance"`
}

// FormatSize renders a data-API float size as a decimal string without
// float artifacts.
func FormatSize(f float64) string {
	return decimal.NewFromFloat(f).String()
}

// Position is a holding reported by the data API.
type Position struct {
	Asset        string  `json:"asset"`
	ConditionID  string  `json:"conditionId"`
	Size         float64 `json:"size"`
	AvgPrice     float64 `json:"avgPrice"`
	CurPrice     float64 `json:"curPrice"`
	CashPnL      float64 `json:"cashPnl"`
	PercentPnL   float64 `json:"percentPnl"`
	RealizedPnL  float64 `json:"realizedPnl"`
	Redeemable   bool    `json:"redeemable"`
	Outcome      string  `json:"outcome"`
	OutcomeIndex int     `json:"outcomeIndex"`
	NegativeRisk bool    `json:"negativeRisk"`
	CurrentValue float64 `json:"currentValue"`
	InitialValue float64 `json:"initialValue"`
}
