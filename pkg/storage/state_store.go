package storage

import (
	"encoding/json"
	"fmt"

	"github.com/cockroachdb/pebble"
)

// Snapshot is the persisted bot state. It survives restarts so the bot
// can resume with its inventory and resting orders instead of starting
// blind.
type Snapshot struct {
	Inventory    string                 `json:"inventory"`
	OpenOrders   map[string]OrderRecord `json:"open_orders"`
	RiskPaused   bool                   `json:"risk_paused"`
	ShuttingDown bool                   `json:"shutting_down"`
	UpdatedAt    int64                  `json:"updated_at"`
}

// OrderRecord is one resting order in a snapshot.
type OrderRecord struct {
	ID      string `json:"id"`
	AssetID string `json:"asset_id"`
	Side    string `json:"side"`
	Price   string `json:"price"`
	Size    string `json:"size"`
}

// Fill is a matched trade kept for the audit trail.
type Fill struct {
	ID      string `json:"id"`
	AssetID string `json:"asset_id"`
	Side    string `json:"side"`
	Price   string `json:"price"`
	Size    string `json:"size"`
	TS      int64  `json:"ts"`
}

// keys: st:snapshot, fill:<20-digit-ts>:<id>
const (
	keySnapshot = "st:snapshot"
	prefixFill  = "fill:"
)

func kFill(ts int64, id string) []byte {
	// zero-padded for lexicographic time ordering
	return []byte(fmt.Sprintf("%s%020d:%s", prefixFill, ts, id))
}

// keyUpperBound returns the exclusive upper bound for a prefix scan.
func keyUpperBound(prefix []byte) []byte {
	bound := make([]byte, len(prefix))
	copy(bound, prefix)
	bound[len(bound)-1]++
	return bound
}

// StateStore persists bot state in a Pebble database.
type StateStore struct {
	db *pebble.DB
}

func NewStateStore(path string) (*StateStore, error) {
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("open state db: %w", err)
	}
	return &StateStore{db: db}, nil
}

func (s *StateStore) Close() error { return s.db.Close() }

// SaveSnapshot writes the snapshot synchronously.
func (s *StateStore) SaveSnapshot(snap Snapshot) error {
	val, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if err := s.db.Set([]byte(keySnapshot), val, pebble.Sync); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}

// LoadSnapshot reads the previous snapshot. The shutting_down and
// risk_paused flags describe the old process and are cleared on load;
// the new process re-evaluates risk from live data.
func (s *StateStore) LoadSnapshot() (Snapshot, bool, error) {
	val, closer, err := s.db.Get([]byte(keySnapshot))
	if err != nil {
		if err == pebble.ErrNotFound {
			return Snapshot{}, false, nil
		}
		return Snapshot{}, false, fmt.Errorf("load snapshot: %w", err)
	}
	defer closer.Close()

	var snap Snapshot
	if err := json.Unmarshal(val, &snap); err != nil {
		return Snapshot{}, false, fmt.Errorf("decode snapshot: %w", err)
	}
	snap.RiskPaused = false
	snap.ShuttingDown = false
	if snap.OpenOrders == nil {
		snap.OpenOrders = map[string]OrderRecord{}
	}
	return snap, true, nil
}

// AppendFill records a matched trade.
func (s *StateStore) AppendFill(fill Fill) error {
	val, err := json.Marshal(fill)
	if err != nil {
		return fmt.Errorf("encode fill: %w", err)
	}
	if err := s.db.Set(kFill(fill.TS, fill.ID), val, pebble.Sync); err != nil {
		return fmt.Errorf("save fill: %w", err)
	}
	return nil
}

// RecentFills returns up to limit fills, newest first.
func (s *StateStore) RecentFills(limit int) ([]Fill, error) {
	prefix := []byte(prefixFill)
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: keyUpperBound(prefix),
	})
	if err != nil {
		return nil, fmt.Errorf("iterate fills: %w", err)
	}
	defer iter.Close()

	var fills []Fill
	for ok := iter.Last(); ok && len(fills) < limit; ok = iter.Prev() {
		var f Fill
		if err := json.Unmarshal(iter.Value(), &f); err != nil {
			return nil, fmt.Errorf("decode fill: %w", err)
		}
		fills = append(fills, f)
	}
	if err := iter.Error(); err != nil {
		return nil, fmt.Errorf("iterate fills: %w", err)
	}
	return fills, nil
}
