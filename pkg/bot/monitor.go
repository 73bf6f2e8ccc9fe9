package bot

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/polyquote/polyquote/pkg/storage"
)

const monitorInterval = 5 * time.Second

// Monitor periodically persists the state and logs a one-line summary.
type Monitor struct {
	state    *State
	store    *storage.StateStore
	interval time.Duration
	log      *zap.Logger
}

func NewMonitor(state *State, store *storage.StateStore, log *zap.Logger) *Monitor {
	return &Monitor{state: state, store: store, interval: monitorInterval, log: log}
}

// Run blocks until ctx is cancelled, writing a final snapshot on the way
// out.
func (m *Monitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.persist()
			return
		case <-ticker.C:
			m.persist()

			bid, ask := m.state.BestQuotes()
			m.log.Info("state",
				zap.String("inventory", m.state.Inventory().String()),
				zap.Int("open_orders", len(m.state.OpenOrderIDs())),
				zap.String("best_bid", bid.String()),
				zap.String("best_ask", ask.String()),
				zap.Bool("risk_paused", m.state.RiskPaused()))
		}
	}
}

func (m *Monitor) persist() {
	if err := m.store.SaveSnapshot(m.state.Snapshot(time.Now())); err != nil {
		m.log.Error("persist state", zap.Error(err))
	}
}
