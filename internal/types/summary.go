package types

import (
	"time"

	"github.com/shopspring/decimal"
)

type SummaryKind string

const (
	SummaryKindDaily  SummaryKind = "daily"
	SummaryKindHourly SummaryKind = "hourly"
)

// PnlSummary aggregates realized PnL over a time window. It can always be
// recomputed from the trade log.
type PnlSummary struct {
	Kind               SummaryKind     `json:"kind"`
	WindowStart        time.Time       `json:"window_start"`
	WindowEnd          time.Time       `json:"window_end"`
	RealizedPnL        decimal.Decimal `json:"realized_pnl"`
	TradeCount         int             `json:"trade_count"`
	Wins               int             `json:"wins"`
	Losses             int             `json:"losses"`
	BalanceAtWindowEnd decimal.Decimal `json:"balance_at_window_end"`
}

// WinRate is wins over closed trades in the window, zero when none closed.
func (s PnlSummary) WinRate() float64 {
	closed := s.Wins + s.Losses
	if closed == 0 {
		return 0
	}

	return float64(s.Wins) / float64(closed)
}
