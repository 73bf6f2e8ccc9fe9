package clob

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"net/url"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/polyquote/polyquote/pkg/crypto"
)

const usdcDecimals = 6

// GetOrders fetches the wallet's resting orders. A nil filter queries
// everything; filter fields narrow by market (condition id) or asset id.
func (c *Client) GetOrders(ctx context.Context, filter *OpenOrderFilter) ([]OpenOrder, error) {
	headers, err := c.l2Headers(http.MethodGet, endpointOpenOrders, nil)
	if err != nil {
		return nil, err
	}

	var query url.Values
	if filter != nil {
		query = url.Values{}
		if filter.Market != "" {
			query.Set("market", filter.Market)
		}
		if filter.AssetID != "" {
			query.Set("asset_id", filter.AssetID)
		}
	}

	var orders []OpenOrder
	if err := c.doJSON(ctx, http.MethodGet, c.host, endpointOpenOrders, query, headers, nil, &orders); err != nil {
		return nil, fmt.Errorf("get orders: %w", err)
	}
	return orders, nil
}

// GetOrder fetches a single order by its id.
func (c *Client) GetOrder(ctx context.Context, orderID string) (*OpenOrder, error) {
	path := endpointOrderByID + orderID
	headers, err := c.l2Headers(http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}

	var order OpenOrder
	if err := c.doJSON(ctx, http.MethodGet, c.host, path, nil, headers, nil, &order); err != nil {
		return nil, fmt.Errorf("get order %s: %w", orderID, err)
	}
	return &order, nil
}

// CreateOrder builds and signs a limit order without sending it.
func (c *Client) CreateOrder(args OrderArgs) (*SignedOrder, error) {
	tokenID, ok := new(big.Int).SetString(args.TokenID, 10)
	if !ok {
		return nil, fmt.Errorf("create order: invalid token id %q", args.TokenID)
	}
	if args.Price.Sign() <= 0 || args.Size.Sign() <= 0 {
		return nil, fmt.Errorf("create order: price and size must be positive")
	}

	makerAmount, takerAmount := orderAmounts(args.Side, args.Price, args.Size)
	salt := c.clock.Now().UnixNano() % 1_000_000_000

	order := &crypto.ExchangeOrder{
		Salt:          big.NewInt(salt),
		Maker:         common.HexToAddress(c.funder),
		Signer:        c.signer.Address(),
		Taker:         common.Address{},
		TokenID:       tokenID,
		MakerAmount:   makerAmount,
		TakerAmount:   takerAmount,
		Expiration:    big.NewInt(args.Expiration),
		Nonce:         big.NewInt(0),
		FeeRateBps:    big.NewInt(0),
		Side:          args.Side.Uint8(),
		SignatureType: uint8(c.sigType),
	}

	exchange := CTFExchangeAddress
	if args.NegRisk {
		exchange = NegRiskExchangeAddress
	}
	digest, err := crypto.HashExchangeOrder(c.chainID, exchange, order)
	if err != nil {
		return nil, fmt.Errorf("hash order: %w", err)
	}
	sig, err := c.signer.Sign(digest)
	if err != nil {
		return nil, fmt.Errorf("sign order: %w", err)
	}

	return &SignedOrder{
		Salt:          salt,
		Maker:         order.Maker.Hex(),
		Signer:        order.Signer.Hex(),
		Taker:         order.Taker.Hex(),
		TokenID:       args.TokenID,
		MakerAmount:   makerAmount.String(),
		TakerAmount:   takerAmount.String(),
		Expiration:    order.Expiration.String(),
		Nonce:         "0",
		FeeRateBps:    "0",
		Side:          string(args.Side),
		SignatureType: c.sigType,
		Signature:     "0x" + hex.EncodeToString(sig),
	}, nil
}

// PostOrder submits a signed order to the CLOB.
func (c *Client) PostOrder(ctx context.Context, order *SignedOrder, orderType OrderType) (*OrderResponse, error) {
	creds, ok := c.Creds()
	if !ok {
		return nil, ErrNoCreds
	}

	body, err := json.Marshal(map[string]interface{}{
		"order":     order,
		"owner":     creds.APIKey,
		"orderType": string(orderType),
	})
	if err != nil {
		return nil, fmt.Errorf("marshal order: %w", err)
	}

	headers, err := c.l2Headers(http.MethodPost, endpointOrder, body)
	if err != nil {
		return nil, err
	}

	var resp OrderResponse
	if err := c.doJSON(ctx, http.MethodPost, c.host, endpointOrder, nil, headers, body, &resp); err != nil {
		return nil, fmt.Errorf("post order: %w", err)
	}
	if !resp.Success {
		return &resp, fmt.Errorf("post order rejected: %s", resp.ErrorMsg)
	}
	c.log.Debug("order posted", zap.String("order_id", resp.OrderID), zap.String("status", resp.Status))
	return &resp, nil
}

// Cancel cancels a single resting order.
func (c *Client) Cancel(ctx context.Context, orderID string) error {
	body, _ := json.Marshal(map[string]string{"orderID": orderID})
	headers, err := c.l2Headers(http.MethodDelete, endpointOrder, body)
	if err != nil {
		return err
	}
	if err := c.doJSON(ctx, http.MethodDelete, c.host, endpointOrder, nil, headers, body, nil); err != nil {
		return fmt.Errorf("cancel order %s: %w", orderID, err)
	}
	return nil
}

// CancelOrders cancels a batch of orders by id.
func (c *Client) CancelOrders(ctx context.Context, orderIDs []string) error {
	if len(orderIDs) == 0 {
		return nil
	}
	body, err := json.Marshal(orderIDs)
	if err != nil {
		return fmt.Errorf("marshal order ids: %w", err)
	}
	headers, err := c.l2Headers(http.MethodDelete, endpointOrders, body)
	if err != nil {
		return err
	}
	if err := c.doJSON(ctx, http.MethodDelete, c.host, endpointOrders, nil, headers, body, nil); err != nil {
		return fmt.Errorf("cancel orders: %w", err)
	}
	return nil
}

// CancelAll cancels every resting order of the wallet.
func (c *Client) CancelAll(ctx context.Context) error {
	headers, err := c.l2Headers(http.MethodDelete, endpointCancelAll, nil)
	if err != nil {
		return err
	}
	if err := c.doJSON(ctx, http.MethodDelete, c.host, endpointCancelAll, nil, headers, nil, nil); err != nil {
		return fmt.Errorf("cancel all: %w", err)
	}
	return nil
}

// GetOrderBook fetches the book snapshot for a token.
func (c *Client) GetOrderBook(ctx context.Context, tokenID string) (*OrderBook, error) {
	query := url.Values{"token_id": []string{tokenID}}
	var book OrderBook
	if err := c.doJSON(ctx, http.MethodGet, c.host, endpointBook, query, nil, nil, &book); err != nil {
		return nil, fmt.Errorf("get book: %w", err)
	}
	return &book, nil
}

// GetMarket fetches market metadata for a condition id.
func (c *Client) GetMarket(ctx context.Context, conditionID string) (*Market, error) {
	var market Market
	if err := c.doJSON(ctx, http.MethodGet, c.host, endpointMarket+conditionID, nil, nil, nil, &market); err != nil {
		return nil, fmt.Errorf("get market %s: %w", conditionID, err)
	}
	return &market, nil
}

// GetBalanceAllowance reports the wallet's collateral balance and exchange
// allowance. Pass an empty tokenID for USDC collateral.
func (c *Client) GetBalanceAllowance(ctx context.Context, tokenID string) (*BalanceAllowance, error) {
	headers, err := c.l2Headers(http.MethodGet, endpointBalanceAllowance, nil)
	if err != nil {
		return nil, err
	}
	query := url.Values{}
	if tokenID == "" {
		query.Set("asset_type", "COLLATERAL")
	} else {
		query.Set("asset_type", "CONDITIONAL")
		query.Set("token_id", tokenID)
	}
	var ba BalanceAllowance
	if err := c.doJSON(ctx, http.MethodGet, c.host, endpointBalanceAllowance, query, headers, nil, &ba); err != nil {
		return nil, fmt.Errorf("get balance allowance: %w", err)
	}
	return &ba, nil
}

// orderAmounts converts price and size into the raw 6-decimal maker and
// taker amounts of the exchange contract. A BUY spends USDC for shares,
// a SELL spends shares for USDC.
func orderAmounts(side Side, price, size decimal.Decimal) (maker, taker *big.Int) {
	shares := size.Shift(usdcDecimals).Round(0).BigInt()
	usdc := size.Mul(price).Shift(usdcDecimals).Round(0).BigInt()
	if side == SideSell {
		return shares, usdc
	}
	return usdc, shares
}
