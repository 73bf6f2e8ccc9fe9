package bot

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/polyquote/polyquote/pkg/clob"
)

// orderClient is the slice of the CLOB client the executor needs.
// Narrowed for tests.
type orderClient interface {
	CreateOrder(args clob.OrderArgs) (*clob.SignedOrder, error)
	PostOrder(ctx context.Context, order *clob.SignedOrder, orderType clob.OrderType) (*clob.OrderResponse, error)
	CancelOrders(ctx context.Context, orderIDs []string) error
	CancelAll(ctx context.Context) error
}

// Executor turns strategy decisions into CLOB calls and keeps the state
// flags in sync with what it did.
type Executor struct {
	client  orderClient
	assetID string
	negRisk bool
	state   *State
	log     *zap.Logger
}

func NewExecutor(client orderClient, assetID string, negRisk bool, state *State, log *zap.Logger) *Executor {
	return &Executor{client: client, assetID: assetID, negRisk: negRisk, state: state, log: log}
}

// Apply performs a decision. Failed order placement leaves the bucket
// untouched so the next market update retries.
func (e *Executor) Apply(ctx context.Context, d Decision) error {
	if d.CancelAll {
		if err := e.CancelAll(ctx); err != nil {
			return err
		}
	}
	if d.PauseRisk {
		e.state.SetRiskPaused(true)
	}
	if d.ResumeRisk {
		e.state.SetRiskPaused(false)
	}

	if len(d.Quotes) == 0 {
		if d.Bucket != 0 {
			e.state.SetLastBucket(d.Bucket)
		}
		return nil
	}

	if ids := e.state.OpenOrderIDs(); len(ids) > 0 {
		if err := e.client.CancelOrders(ctx, ids); err != nil {
			return fmt.Errorf("cancel stale quotes: %w", err)
		}
		e.state.DropOrders(ids)
	}

	for _, q := range d.Quotes {
		order, err := e.client.CreateOrder(clob.OrderArgs{
			TokenID: e.assetID,
			Price:   q.Price,
			Size:    q.Size,
			Side:    q.Side,
			NegRisk: e.negRisk,
		})
		if err != nil {
			return fmt.Errorf("build %s quote: %w", q.Side, err)
		}
		resp, err := e.client.PostOrder(ctx, order, clob.OrderTypeGTC)
		if err != nil {
			return fmt.Errorf("post %s quote: %w", q.Side, err)
		}
		e.log.Info("requoted",
			zap.String("side", string(q.Side)),
			zap.String("price", q.Price.String()),
			zap.String("size", q.Size.String()),
			zap.Int("bucket", d.Bucket),
			zap.String("order_id", resp.OrderID))
	}

	e.state.SetLastBucket(d.Bucket)
	return nil
}

// CancelAll pulls every resting order and clears the local view.
func (e *Executor) CancelAll(ctx context.Context) error {
	if err := e.client.CancelAll(ctx); err != nil {
		return fmt.Errorf("cancel all: %w", err)
	}
	e.state.DropOrders(e.state.OpenOrderIDs())
	return nil
}
