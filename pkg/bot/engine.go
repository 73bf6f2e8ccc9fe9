package bot

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/polyquote/polyquote/pkg/storage"
	"github.com/polyquote/polyquote/pkg/ws"
)

// Engine is the single-threaded core loop: it folds market and user
// events into the state, asks the strategy for a decision and hands it
// to the executor. Serializing here keeps the strategy free of locks
// around its read-evaluate-act cycle.
type Engine struct {
	state    *State
	strategy *Strategy
	exec     *Executor
	store    *storage.StateStore
	log      *zap.Logger

	// optional: runs after the shutdown cancel-all, typically merging
	// held outcome sets back into collateral
	merge func(ctx context.Context) error
}

func NewEngine(state *State, strategy *Strategy, exec *Executor, store *storage.StateStore, log *zap.Logger) *Engine {
	return &Engine{state: state, strategy: strategy, exec: exec, store: store, log: log}
}

// MergeOnShutdown installs a hook invoked during shutdown, after resting
// orders are pulled but before the final snapshot.
func (e *Engine) MergeOnShutdown(fn func(ctx context.Context) error) {
	e.merge = fn
}

// Run blocks until ctx is cancelled. On the way out it pulls all resting
// orders and writes a final snapshot.
func (e *Engine) Run(ctx context.Context, quotes <-chan ws.QuoteUpdate, events <-chan ws.UserEvent) {
	for {
		select {
		case <-ctx.Done():
			e.shutdown()
			return

		case q := <-quotes:
			e.state.ApplyQuote(q)
			d := e.strategy.Evaluate(e.state)
			if err := e.exec.Apply(ctx, d); err != nil {
				e.log.Error("apply decision", zap.Error(err))
			}

		case ev := <-events:
			fill, ok := e.state.ApplyUserEvent(ev, time.Now())
			if !ok {
				continue
			}
			e.log.Info("fill",
				zap.String("side", fill.Side),
				zap.String("price", fill.Price),
				zap.String("size", fill.Size),
				zap.String("inventory", e.state.Inventory().String()))
			if err := e.store.AppendFill(fill); err != nil {
				e.log.Error("persist fill", zap.Error(err))
			}
		}
	}
}

func (e *Engine) shutdown() {
	e.state.SetShuttingDown()

	// the run context is already dead, give cleanup its own deadline
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.exec.CancelAll(ctx); err != nil {
		e.log.Error("cancel orders on shutdown", zap.Error(err))
	}
	if e.merge != nil {
		if err := e.merge(ctx); err != nil {
			e.log.Error("merge inventory on shutdown", zap.Error(err))
		}
	}
	if err := e.store.SaveSnapshot(e.state.Snapshot(time.Now())); err != nil {
		e.log.Error("final snapshot", zap.Error(err))
	}
	e.log.Info("engine stopped")
}
