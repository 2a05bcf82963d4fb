package types

import (
	"time"

	"github.com/rxtech-lab/argo-riskbot/pkg/errors"
	"github.com/shopspring/decimal"
)

// Position is an open long holding in a single symbol.
type Position struct {
	Symbol                 string          `json:"symbol"`
	Side                   PositionSide    `json:"side"`
	Quantity               decimal.Decimal `json:"quantity"`
	EntryPrice             decimal.Decimal `json:"entry_price"`
	StopLoss               decimal.Decimal `json:"stop_loss"`
	TakeProfit             decimal.Decimal `json:"take_profit"`
	HighestPriceSinceEntry decimal.Decimal `json:"highest_price_since_entry"`
	TrailingStopPrice      decimal.Decimal `json:"trailing_stop_price"`
	OpenedAt               time.Time       `json:"opened_at"`
}

// NewLongPosition builds a position whose protective levels are derived from
// the entry price and the configured fractions.
func NewLongPosition(symbol string, qty, entry, slPct, tpPct, tslPct decimal.Decimal, openedAt time.Time) Position {
	one := decimal.NewFromInt(1)

	return Position{
		Symbol:                 symbol,
		Side:                   PositionSideLong,
		Quantity:               qty,
		EntryPrice:             entry,
		StopLoss:               entry.Mul(one.Sub(slPct)),
		TakeProfit:             entry.Mul(one.Add(tpPct)),
		HighestPriceSinceEntry: entry,
		TrailingStopPrice:      entry.Mul(one.Sub(tslPct)),
		OpenedAt:               openedAt,
	}
}

// Cost is the cash debited when the position was opened.
func (p Position) Cost() decimal.Decimal {
	return p.Quantity.Mul(p.EntryPrice)
}

// MarketValue is the position valued at price.
func (p Position) MarketValue(price decimal.Decimal) decimal.Decimal {
	return p.Quantity.Mul(price)
}

// UnrealizedPnL is (price - entry) * quantity.
func (p Position) UnrealizedPnL(price decimal.Decimal) decimal.Decimal {
	return price.Sub(p.EntryPrice).Mul(p.Quantity)
}

// Validate checks the structural invariants of an open position.
func (p Position) Validate() error {
	if p.Symbol == "" {
		return errors.New(errors.ErrCodeInvalidParameter, "position symbol is required")
	}

	if p.Side != PositionSideLong {
		return errors.Newf(errors.ErrCodeInvalidParameter, "unsupported position side %q", p.Side)
	}

	if !p.Quantity.IsPositive() {
		return errors.Newf(errors.ErrCodeInvalidQuantity, "position quantity must be positive, got %s", p.Quantity)
	}

	if !p.EntryPrice.IsPositive() {
		return errors.Newf(errors.ErrCodeInvalidParameter, "entry price must be positive, got %s", p.EntryPrice)
	}

	if !p.StopLoss.LessThan(p.EntryPrice) || !p.EntryPrice.LessThan(p.TakeProfit) {
		return errors.Newf(errors.ErrCodeInvalidParameter,
			"expected stop loss < entry < take profit, got %s / %s / %s", p.StopLoss, p.EntryPrice, p.TakeProfit)
	}

	if p.HighestPriceSinceEntry.LessThan(p.EntryPrice) {
		return errors.Newf(errors.ErrCodeInvalidParameter,
			"highest price %s is below entry %s", p.HighestPriceSinceEntry, p.EntryPrice)
	}

	return nil
}
