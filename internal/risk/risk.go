// Package risk evaluates open positions against their stop loss, take profit
// and trailing stop levels.
package risk

import (
	"fmt"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-riskbot/internal/types"
	"github.com/shopspring/decimal"
)

// CloseDecision says a position must be closed and why.
type CloseDecision struct {
	Reason types.CloseReason
	// SubTag is set for trailing stops: profit-protected or loss-minimized.
	SubTag string
	// Level is the price level that was crossed.
	Level decimal.Decimal
}

// Label renders the decision as stored on trade records, e.g.
// "TRAILING_STOP (profit-protected)".
func (d CloseDecision) Label() string {
	if d.SubTag == "" {
		return string(d.Reason)
	}

	return fmt.Sprintf("%s (%s)", d.Reason, d.SubTag)
}

// Evaluation is the result of evaluating one position at one price.
type Evaluation struct {
	// Position carries any ratcheted highest price and trailing stop.
	Position types.Position
	// Ratcheted is true when the trailing stop moved up.
	Ratcheted bool
	Decision  optional.Option[CloseDecision]
}

// Evaluate ratchets the trailing stop and checks exit triggers in precedence
// order: take profit, stop loss, trailing stop. It never lowers the trailing
// stop and never mutates pos.
func Evaluate(pos types.Position, price, tslPct decimal.Decimal) Evaluation {
	next := pos
	ratcheted := false

	if price.GreaterThan(next.HighestPriceSinceEntry) {
		next.HighestPriceSinceEntry = price

		candidate := price.Mul(decimal.NewFromInt(1).Sub(tslPct))
		if candidate.GreaterThan(next.TrailingStopPrice) {
			next.TrailingStopPrice = candidate
			ratcheted = true
		}
	}

	eval := Evaluation{
		Position:  next,
		Ratcheted: ratcheted,
		Decision:  optional.None[CloseDecision](),
	}

	switch {
	case price.GreaterThanOrEqual(next.TakeProfit):
		eval.Decision = optional.Some(CloseDecision{Reason: types.CloseReasonTakeProfit, Level: next.TakeProfit})
	case price.LessThanOrEqual(next.StopLoss):
		eval.Decision = optional.Some(CloseDecision{Reason: types.CloseReasonStopLoss, Level: next.StopLoss})
	case price.LessThanOrEqual(next.TrailingStopPrice):
		tag := types.TrailingLossMinimized
		if next.TrailingStopPrice.GreaterThan(next.EntryPrice) {
			tag = types.TrailingProfitProtected
		}

		eval.Decision = optional.Some(CloseDecision{
			Reason: types.CloseReasonTrailingStop,
			SubTag: tag,
			Level:  next.TrailingStopPrice,
		})
	}

	return eval
}

// PositionUpdate pairs a symbol's evaluation with the price it was made at.
type PositionUpdate struct {
	Symbol     string
	Price      decimal.Decimal
	Evaluation Evaluation
}

// EvaluateAll evaluates every position that has a price. Positions without a
// price are skipped. tslPct returns the trailing fraction for a symbol.
// Results are ordered like positions.
func EvaluateAll(positions []types.Position, prices map[string]decimal.Decimal, tslPct func(symbol string) decimal.Decimal) []PositionUpdate {
	updates := make([]PositionUpdate, 0, len(positions))

	for _, pos := range positions {
		price, ok := prices[pos.Symbol]
		if !ok {
			continue
		}

		updates = append(updates, PositionUpdate{
			Symbol:     pos.Symbol,
			Price:      price,
			Evaluation: Evaluate(pos, price, tslPct(pos.Symbol)),
		})
	}

	return updates
}
