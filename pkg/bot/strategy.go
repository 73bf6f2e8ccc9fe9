package bot

import (
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/polyquote/polyquote/params"
	"github.com/polyquote/polyquote/pkg/clob"
)

// Quoting parameters. Prices on the CLOB live on a cent grid inside
// (0, 1), so quotes are quantized to two decimals and clamped.
var (
	baseOrderSize = decimal.NewFromInt(500)
	edgePct       = decimal.RequireFromString("0.02")
	minPrice      = decimal.RequireFromString("0.01")
	maxPrice      = decimal.RequireFromString("0.99")

	// outside these the market is as good as resolved and quoting is
	// pure adverse selection
	extremeLow  = decimal.RequireFromString("0.02")
	extremeHigh = decimal.RequireFromString("0.98")
)

// Quote is a single order the strategy wants resting.
type Quote struct {
	Side  clob.Side
	Price decimal.Decimal
	Size  decimal.Decimal
}

// Decision is what the strategy wants done after looking at the state.
// The zero value means "do nothing".
type Decision struct {
	CancelAll  bool
	PauseRisk  bool
	ResumeRisk bool
	Quotes     []Quote
	Bucket     int
}

// Strategy rests a passive bid shaded below the touch and, once holding
// inventory, an ask shaded above it. Requotes happen only when the mid
// moves to a new cent bucket.
type Strategy struct {
	risk params.Risk
	log  *zap.Logger
}

func NewStrategy(risk params.Risk, log *zap.Logger) *Strategy {
	return &Strategy{risk: risk, log: log}
}

// Evaluate inspects the state and returns the next decision.
func (st *Strategy) Evaluate(state *State) Decision {
	bid, ask := state.BestQuotes()
	if bid.IsZero() || ask.IsZero() {
		return Decision{}
	}

	if bid.LessThanOrEqual(extremeLow) || ask.LessThanOrEqual(extremeLow) ||
		bid.GreaterThanOrEqual(extremeHigh) || ask.GreaterThanOrEqual(extremeHigh) {
		if !state.RiskPaused() {
			st.log.Warn("extreme prices, pausing quoting",
				zap.String("best_bid", bid.String()), zap.String("best_ask", ask.String()))
			return Decision{CancelAll: true, PauseRisk: true}
		}
		return Decision{}
	}

	resume := state.RiskPaused()
	mid := bid.Add(ask).Div(decimal.NewFromInt(2))
	bucket := int(mid.Mul(decimal.NewFromInt(100)).Ceil().IntPart())
	if !resume && bucket == state.LastBucket() {
		return Decision{}
	}

	inventory := state.Inventory()
	var quotes []Quote

	maxPos := decimal.NewFromFloat(st.risk.MaxPositionSize)
	if inventory.GreaterThanOrEqual(maxPos) {
		st.log.Info("position cap reached, holding off new bids",
			zap.String("inventory", inventory.String()))
	} else {
		size := baseOrderSize
		imbalance := decimal.NewFromFloat(st.risk.MaxInventoryImbalance)
		if inventory.GreaterThanOrEqual(imbalance) {
			// long already, slow down accumulation
			size = size.Div(decimal.NewFromInt(2)).RoundDown(0)
		}
		quotes = append(quotes, Quote{
			Side:  clob.SideBuy,
			Price: clampPrice(bid.Mul(decimal.NewFromInt(1).Sub(edgePct)).RoundDown(2)),
			Size:  size,
		})
	}

	// the exit side: offer what we hold above the touch
	if inventory.IsPositive() {
		askSize := inventory
		if askSize.GreaterThan(baseOrderSize) {
			askSize = baseOrderSize
		}
		quotes = append(quotes, Quote{
			Side:  clob.SideSell,
			Price: clampPrice(ask.Mul(decimal.NewFromInt(1).Add(edgePct)).RoundUp(2)),
			Size:  askSize,
		})
	}

	return Decision{ResumeRisk: resume, Bucket: bucket, Quotes: quotes}
}

func clampPrice(p decimal.Decimal) decimal.Decimal {
	if p.LessThan(minPrice) {
		return minPrice
	}
	if p.GreaterThan(maxPrice) {
		return maxPrice
	}
	return p
}
