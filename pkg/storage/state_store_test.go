package storage

import (
	"testing"
)

func newTestStore(t *testing.T) *StateStore {
	t.Helper()
	s, err := NewStateStore(t.TempDir())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSnapshotRoundTrip(t *testing.T) {
	s := newTestStore(t)

	_, found, err := s.LoadSnapshot()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if found {
		t.Fatal("fresh store should have no snapshot")
	}

	snap := Snapshot{
		Inventory: "42.5",
		OpenOrders: map[string]OrderRecord{
			"0x01": {ID: "0x01", AssetID: "123", Side: "BUY", Price: "0.45", Size: "100"},
		},
		UpdatedAt: 1700000000,
	}
	if err := s.SaveSnapshot(snap); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, found, err := s.LoadSnapshot()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !found {
		t.Fatal("snapshot not found after save")
	}
	if got.Inventory != "42.5" || got.UpdatedAt != 1700000000 {
		t.Errorf("snapshot = %+v", got)
	}
	if ord, ok := got.OpenOrders["0x01"]; !ok || ord.Price != "0.45" {
		t.Errorf("open orders = %+v", got.OpenOrders)
	}
}

func TestLoadSnapshotClearsStaleFlags(t *testing.T) {
	s := newTestStore(t)

	// a crash mid-shutdown leaves both flags set in the stored copy
	if err := s.SaveSnapshot(Snapshot{RiskPaused: true, ShuttingDown: true}); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, found, err := s.LoadSnapshot()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !found {
		t.Fatal("snapshot not found")
	}
	if got.RiskPaused || got.ShuttingDown {
		t.Errorf("stale flags survived load: %+v", got)
	}
	if got.OpenOrders == nil {
		t.Error("open orders map should be non-nil after load")
	}
}

func TestFillsNewestFirst(t *testing.T) {
	s := newTestStore(t)

	fills := []Fill{
		{ID: "a", TS: 100, Side: "BUY", Price: "0.40", Size: "10"},
		{ID: "b", TS: 200, Side: "SELL", Price: "0.60", Size: "5"},
		{ID: "c", TS: 300, Side: "BUY", Price: "0.45", Size: "20"},
	}
	for _, f := range fills {
		if err := s.AppendFill(f); err != nil {
			t.Fatalf("append %s: %v", f.ID, err)
		}
	}

	got, err := s.RecentFills(2)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d fills, want 2", len(got))
	}
	if got[0].ID != "c" || got[1].ID != "b" {
		t.Errorf("order = %s, %s; want c, b", got[0].ID, got[1].ID)
	}

	all, err := s.RecentFills(10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("got %d fills, want 3", len(all))
	}
}
