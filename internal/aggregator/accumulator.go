package aggregator

import (
	"github.com/rxtech-lab/argo-riskbot/internal/types"
	"github.com/shopspring/decimal"
)

// Accumulator holds running statistics over a set of trades.
type Accumulator struct {
	TradeCount  int
	Wins        int
	Losses      int
	RealizedPnL decimal.Decimal
	MaxProfit   decimal.Decimal
	MaxLoss     decimal.Decimal
	PeakPnL     decimal.Decimal
	MaxDrawdown decimal.Decimal
}

// Add folds one trade into the statistics. Entries count as trades but
// never as wins or losses.
func (a *Accumulator) Add(trade types.TradeRecord) {
	a.TradeCount++
	a.RealizedPnL = a.RealizedPnL.Add(trade.RealizedPnL)

	if trade.Side == types.PurchaseTypeSell {
		switch trade.RealizedPnL.Sign() {
		case 1:
			a.Wins++
		case -1:
			a.Losses++
		}
	}

	if trade.RealizedPnL.GreaterThan(a.MaxProfit) {
		a.MaxProfit = trade.RealizedPnL
	}

	if trade.RealizedPnL.LessThan(a.MaxLoss) {
		a.MaxLoss = trade.RealizedPnL
	}

	if a.RealizedPnL.GreaterThan(a.PeakPnL) {
		a.PeakPnL = a.RealizedPnL
	}

	if drawdown := a.PeakPnL.Sub(a.RealizedPnL); drawdown.GreaterThan(a.MaxDrawdown) {
		a.MaxDrawdown = drawdown
	}
}

// Summary renders the accumulator as a PnL summary for a window.
func (a Accumulator) Summary(kind types.SummaryKind, window Window, balance decimal.Decimal) types.PnlSummary {
	return types.PnlSummary{
		Kind:               kind,
		WindowStart:        window.Start,
		WindowEnd:          window.End,
		RealizedPnL:        a.RealizedPnL,
		TradeCount:         a.TradeCount,
		Wins:               a.Wins,
		Losses:             a.Losses,
		BalanceAtWindowEnd: balance,
	}
}
