package ws

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/polyquote/polyquote/pkg/clob"
)

// Event types on the market channel.
const (
	EventBook        = "book"
	EventPriceChange = "price_change"
	EventTickSize    = "tick_size_change"
)

// Event types on the user channel.
const (
	EventTrade = "trade"
	EventOrder = "order"
)

// Order event subtypes.
const (
	OrderPlacement    = "PLACEMENT"
	OrderUpdate       = "UPDATE"
	OrderCancellation = "CANCELLATION"
)

// TradeMatched is the trade status that moves inventory.
const TradeMatched = "MATCHED"

// bookEvent is a full book snapshot from the market channel.
type bookEvent struct {
	EventType string           `json:"event_type"`
	AssetID   string           `json:"asset_id"`
	Market    string           `json:"market"`
	Bids      []clob.BookLevel `json:"bids"`
	Asks      []clob.BookLevel `json:"asks"`
	Timestamp string           `json:"timestamp"`
}

// priceChangeEvent carries per-level deltas plus the current best quotes.
type priceChangeEvent struct {
	EventType string        `json:"event_type"`
	AssetID   string        `json:"asset_id"`
	Market    string        `json:"market"`
	Changes   []priceChange `json:"price_changes"`
	Timestamp string        `json:"timestamp"`
}

type priceChange struct {
	AssetID string `json:"asset_id"`
	Price   string `json:"price"`
	Size    string `json:"size"`
	Side    string `json:"side"`
	BestBid string `json:"best_bid"`
	BestAsk string `json:"best_ask"`
}

// QuoteUpdate is the distilled output of the market channel: the current
// best quotes for an asset.
type QuoteUpdate struct {
	AssetID string
	BestBid decimal.Decimal
	BestAsk decimal.Decimal
}

// ParseMarketUpdates extracts quote updates from a raw market-channel
// frame. Frames arrive as a single event object or an array of them;
// events that carry no quote information yield nothing.
func ParseMarketUpdates(raw []byte) ([]QuoteUpdate, error) {
	events, err := splitEvents(raw)
	if err != nil {
		return nil, err
	}

	var updates []QuoteUpdate
	for _, ev := range events {
		var head struct {
			EventType string `json:"event_type"`
		}
		if err := json.Unmarshal(ev, &head); err != nil {
			return nil, fmt.Errorf("decode event header: %w", err)
		}

		switch head.EventType {
		case EventBook:
			var book bookEvent
			if err := json.Unmarshal(ev, &book); err != nil {
				return nil, fmt.Errorf("decode book event: %w", err)
			}
			u := QuoteUpdate{AssetID: book.AssetID}
			// quotes are sorted worst to best, the tail is the touch
			if n := len(book.Bids); n > 0 {
				u.BestBid = parseQuote(book.Bids[n-1].Price)
			}
			if n := len(book.Asks); n > 0 {
				u.BestAsk = parseQuote(book.Asks[n-1].Price)
			}
			updates = append(updates, u)

		case EventPriceChange:
			var pc priceChangeEvent
			if err := json.Unmarshal(ev, &pc); err != nil {
				return nil, fmt.Errorf("decode price change: %w", err)
			}
			for _, ch := range pc.Changes {
				assetID := ch.AssetID
				if assetID == "" {
					assetID = pc.AssetID
				}
				updates = append(updates, QuoteUpdate{
					AssetID: assetID,
					BestBid: parseQuote(ch.BestBid),
					BestAsk: parseQuote(ch.BestAsk),
				})
			}
		}
	}
	return updates, nil
}

// UserEvent is a frame from the user channel: either a trade (fill) or a
// lifecycle update of one of our orders. Fields not relevant to the event
// type stay empty.
type UserEvent struct {
	EventType string `json:"event_type"`

	// trade fields
	Status string `json:"status"`
	Side   string `json:"side"`
	Size   string `json:"size"`
	Price  string `json:"price"`

	// order fields
	Type         string `json:"type"`
	ID           string `json:"id"`
	OriginalSize string `json:"original_size"`
	SizeMatched  string `json:"size_matched"`

	AssetID string `json:"asset_id"`
	Market  string `json:"market"`
}

// ParseUserEvents decodes a raw user-channel frame into events.
func ParseUserEvents(raw []byte) ([]UserEvent, error) {
	frames, err := splitEvents(raw)
	if err != nil {
		return nil, err
	}

	events := make([]UserEvent, 0, len(frames))
	for _, f := range frames {
		var ev UserEvent
		if err := json.Unmarshal(f, &ev); err != nil {
			return nil, fmt.Errorf("decode user event: %w", err)
		}
		if ev.EventType == "" {
			continue
		}
		events = append(events, ev)
	}
	return events, nil
}

// splitEvents normalizes a frame into a list of event objects. PONG and
// other non-JSON keepalive frames yield an empty list.
func splitEvents(raw []byte) ([]json.RawMessage, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || !(raw[0] == '{' || raw[0] == '[') {
		return nil, nil
	}
	if raw[0] == '{' {
		return []json.RawMessage{raw}, nil
	}
	var events []json.RawMessage
	if err := json.Unmarshal(raw, &events); err != nil {
		return nil, fmt.Errorf("decode event array: %w", err)
	}
	return events, nil
}

func parseQuote(s string) decimal.Decimal {
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}
