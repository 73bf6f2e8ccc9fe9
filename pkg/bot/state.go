package bot

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/polyquote/polyquote/pkg/storage"
	"github.com/polyquote/polyquote/pkg/ws"
)

// State is the live view of the bot: inventory, resting orders and the
// current touch. All methods are safe for concurrent use; the websocket
// pumps, the strategy loop and the monitor all touch it.
type State struct {
	// token this instance quotes; user events for anything else are
	// dropped, the user channel is per market and carries both outcomes
	assetID string

	mu sync.RWMutex

	inventory  decimal.Decimal
	openOrders map[string]storage.OrderRecord

	bestBid decimal.Decimal
	bestAsk decimal.Decimal

	riskPaused   bool
	shuttingDown bool

	// mid-price bucket of the last requote, 0 when never quoted
	lastBucket int
}

func NewState(assetID string) *State {
	return &State{assetID: assetID, openOrders: map[string]storage.OrderRecord{}}
}

// Restore seeds the state from a persisted snapshot.
func (s *State) Restore(snap storage.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if snap.Inventory != "" {
		if d, err := decimal.NewFromString(snap.Inventory); err == nil {
			s.inventory = d
		}
	}
	s.openOrders = map[string]storage.OrderRecord{}
	for id, ord := range snap.OpenOrders {
		s.openOrders[id] = ord
	}
}

// Snapshot captures the state for persistence.
func (s *State) Snapshot(now time.Time) storage.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	orders := make(map[string]storage.OrderRecord, len(s.openOrders))
	for id, ord := range s.openOrders {
		orders[id] = ord
	}
	return storage.Snapshot{
		Inventory:    s.inventory.String(),
		OpenOrders:   orders,
		RiskPaused:   s.riskPaused,
		ShuttingDown: s.shuttingDown,
		UpdatedAt:    now.Unix(),
	}
}

// ApplyQuote updates the touch from a market-channel update. Zero-valued
// quotes (empty book side) leave the previous value in place.
func (s *State) ApplyQuote(u ws.QuoteUpdate) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !u.BestBid.IsZero() {
		s.bestBid = u.BestBid
	}
	if !u.BestAsk.IsZero() {
		s.bestAsk = u.BestAsk
	}
}

// ApplyUserEvent folds a user-channel event into the state. A matched
// trade moves inventory and is returned as a fill for the audit trail;
// order events track the resting order set. Events for the market's
// other outcome token are ignored.
func (s *State) ApplyUserEvent(ev ws.UserEvent, now time.Time) (storage.Fill, bool) {
	if ev.AssetID != s.assetID {
		return storage.Fill{}, false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	switch ev.EventType {
	case ws.EventTrade:
		if ev.Status != ws.TradeMatched {
			return storage.Fill{}, false
		}
		size, err := decimal.NewFromString(ev.Size)
		if err != nil {
			return storage.Fill{}, false
		}
		if ev.Side == "BUY" {
			s.inventory = s.inventory.Add(size)
		} else {
			s.inventory = s.inventory.Sub(size)
		}
		return storage.Fill{
			ID:      ev.ID,
			AssetID: ev.AssetID,
			Side:    ev.Side,
			Price:   ev.Price,
			Size:    ev.Size,
			TS:      now.UnixMilli(),
		}, true

	case ws.EventOrder:
		switch ev.Type {
		case ws.OrderPlacement, ws.OrderUpdate:
			s.openOrders[ev.ID] = storage.OrderRecord{
				ID:      ev.ID,
				AssetID: ev.AssetID,
				Side:    ev.Side,
				Price:   ev.Price,
				Size:    ev.OriginalSize,
			}
		case ws.OrderCancellation:
			delete(s.openOrders, ev.ID)
		}
	}
	return storage.Fill{}, false
}

// BestQuotes returns the current touch.
func (s *State) BestQuotes() (bid, ask decimal.Decimal) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.bestBid, s.bestAsk
}

// Inventory returns the net position in shares.
func (s *State) Inventory() decimal.Decimal {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.inventory
}

// OpenOrders returns a copy of the tracked resting orders.
func (s *State) OpenOrders() []storage.OrderRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	orders := make([]storage.OrderRecord, 0, len(s.openOrders))
	for _, ord := range s.openOrders {
		orders = append(orders, ord)
	}
	return orders
}

// OpenOrderIDs returns the ids of tracked resting orders.
func (s *State) OpenOrderIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.openOrders))
	for id := range s.openOrders {
		ids = append(ids, id)
	}
	return ids
}

// DropOrders forgets tracked orders after a local cancel. The user
// channel confirms later, this just keeps the view tight in between.
func (s *State) DropOrders(ids []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		delete(s.openOrders, id)
	}
}

func (s *State) RiskPaused() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.riskPaused
}

func (s *State) SetRiskPaused(v bool) {
	s.mu.Lock()
	s.riskPaused = v
	s.mu.Unlock()
}

func (s *State) ShuttingDown() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.shuttingDown
}

func (s *State) SetShuttingDown() {
	s.mu.Lock()
	s.shuttingDown = true
	s.mu.Unlock()
}

// LastBucket returns the mid-price bucket of the last requote.
func (s *State) LastBucket() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastBucket
}

func (s *State) SetLastBucket(b int) {
	s.mu.Lock()
	s.lastBucket = b
	s.mu.Unlock()
}
