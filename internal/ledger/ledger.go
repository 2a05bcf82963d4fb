// Package ledger holds the single source of truth for cash and open positions.
//
// A Ledger is owned by one goroutine at a time: the trading cycle mutates it
// sequentially and persists it after every mutation. It is not safe for
// concurrent use.
package ledger

import (
	"maps"
	"slices"

	"github.com/rxtech-lab/argo-riskbot/internal/types"
	"github.com/rxtech-lab/argo-riskbot/pkg/errors"
	"github.com/shopspring/decimal"
)

type Ledger struct {
	cash      decimal.Decimal
	initial   decimal.Decimal
	positions map[string]types.Position
}

// Snapshot is the persistable form of a Ledger.
type Snapshot struct {
	CashBalance    decimal.Decimal           `json:"cash_balance"`
	InitialBalance decimal.Decimal           `json:"initial_balance"`
	Positions      map[string]types.Position `json:"positions"`
}

// New creates a ledger funded with initial.
func New(initial decimal.Decimal) *Ledger {
	return &Ledger{
		cash:      initial,
		initial:   initial,
		positions: make(map[string]types.Position),
	}
}

// FromSnapshot restores a ledger, validating every position.
func FromSnapshot(s Snapshot) (*Ledger, error) {
	l := &Ledger{
		cash:      s.CashBalance,
		initial:   s.InitialBalance,
		positions: make(map[string]types.Position, len(s.Positions)),
	}

	for symbol, pos := range s.Positions {
		if pos.Symbol != symbol {
			return nil, errors.Newf(errors.ErrCodeEncoding, "position keyed %s carries symbol %s", symbol, pos.Symbol)
		}

		if err := pos.Validate(); err != nil {
			return nil, errors.Wrapf(errors.ErrCodeEncoding, err, "invalid stored position %s", symbol)
		}

		l.positions[symbol] = pos
	}

	return l, nil
}

// Snapshot returns a deep copy of the ledger state.
func (l *Ledger) Snapshot() Snapshot {
	return Snapshot{
		CashBalance:    l.cash,
		InitialBalance: l.initial,
		Positions:      maps.Clone(l.positions),
	}
}

func (l *Ledger) CashBalance() decimal.Decimal    { return l.cash }
func (l *Ledger) InitialBalance() decimal.Decimal { return l.initial }

// Position returns the open position for symbol.
func (l *Ledger) Position(symbol string) (types.Position, bool) {
	pos, ok := l.positions[symbol]

	return pos, ok
}

func (l *Ledger) HasPosition(symbol string) bool {
	_, ok := l.positions[symbol]

	return ok
}

// Positions returns the open positions sorted by symbol.
func (l *Ledger) Positions() []types.Position {
	out := make([]types.Position, 0, len(l.positions))
	for _, symbol := range slices.Sorted(maps.Keys(l.positions)) {
		out = append(out, l.positions[symbol])
	}

	return out
}

// Open debits the position cost and records it. It refuses a second position
// in the same symbol and any debit larger than the cash balance.
func (l *Ledger) Open(pos types.Position) error {
	if err := pos.Validate(); err != nil {
		return err
	}

	if l.HasPosition(pos.Symbol) {
		return errors.Newf(errors.ErrCodePositionAlreadyOpen, "position already open for %s", pos.Symbol)
	}

	cost := pos.Cost()
	if l.cash.LessThan(cost) {
		return errors.Newf(errors.ErrCodeInsufficientBalance,
			"cost %s exceeds cash balance %s", cost.StringFixed(2), l.cash.StringFixed(2))
	}

	l.cash = l.cash.Sub(cost)
	l.positions[pos.Symbol] = pos

	return nil
}

// OpenConfirmed records a position the venue has already filled. The venue's
// fill is authoritative, so the debit is applied even when slippage pushes it
// past the cash balance.
func (l *Ledger) OpenConfirmed(pos types.Position) error {
	if err := pos.Validate(); err != nil {
		return err
	}

	if l.HasPosition(pos.Symbol) {
		return errors.Newf(errors.ErrCodePositionAlreadyOpen, "position already open for %s", pos.Symbol)
	}

	l.cash = l.cash.Sub(pos.Cost())
	l.positions[pos.Symbol] = pos

	return nil
}

// Close credits qty*price, removes the position and returns it with the
// realized PnL.
func (l *Ledger) Close(symbol string, price decimal.Decimal) (types.Position, decimal.Decimal, error) {
	pos, ok := l.positions[symbol]
	if !ok {
		return types.Position{}, decimal.Zero, errors.Newf(errors.ErrCodeNoOpenPosition, "no open position for %s", symbol)
	}

	if !price.IsPositive() {
		return types.Position{}, decimal.Zero, errors.Newf(errors.ErrCodeInvalidParameter, "close price must be positive, got %s", price)
	}

	l.cash = l.cash.Add(pos.MarketValue(price))
	delete(l.positions, symbol)

	return pos, pos.UnrealizedPnL(price), nil
}

// Ratchet stores an evaluated position's highest price and trailing stop.
// Lowering either is refused.
func (l *Ledger) Ratchet(updated types.Position) error {
	pos, ok := l.positions[updated.Symbol]
	if !ok {
		return errors.Newf(errors.ErrCodeNoOpenPosition, "no open position for %s", updated.Symbol)
	}

	if updated.TrailingStopPrice.LessThan(pos.TrailingStopPrice) {
		return errors.Newf(errors.ErrCodeTrailingStopDecrease,
			"trailing stop for %s cannot move from %s to %s", pos.Symbol, pos.TrailingStopPrice, updated.TrailingStopPrice)
	}

	if updated.HighestPriceSinceEntry.LessThan(pos.HighestPriceSinceEntry) {
		return errors.Newf(errors.ErrCodeTrailingStopDecrease,
			"highest price for %s cannot move from %s to %s", pos.Symbol, pos.HighestPriceSinceEntry, updated.HighestPriceSinceEntry)
	}

	pos.HighestPriceSinceEntry = updated.HighestPriceSinceEntry
	pos.TrailingStopPrice = updated.TrailingStopPrice
	l.positions[pos.Symbol] = pos

	return nil
}

// OpenCost is the total cash locked in open positions.
func (l *Ledger) OpenCost() decimal.Decimal {
	total := decimal.Zero
	for _, pos := range l.positions {
		total = total.Add(pos.Cost())
	}

	return total
}

// RealizedPnL is cash + cost of open positions - initial balance.
func (l *Ledger) RealizedPnL() decimal.Decimal {
	return l.cash.Add(l.OpenCost()).Sub(l.initial)
}

// Valuation is a mark-to-market view of the ledger.
type Valuation struct {
	UnrealizedPnL decimal.Decimal
	Equity        decimal.Decimal
	// Unpriced lists symbols with no price; they are valued at cost.
	Unpriced []string
}

// Value marks open positions to prices.
func (l *Ledger) Value(prices map[string]decimal.Decimal) Valuation {
	v := Valuation{UnrealizedPnL: decimal.Zero, Equity: l.cash}

	for _, pos := range l.Positions() {
		price, ok := prices[pos.Symbol]
		if !ok {
			v.Unpriced = append(v.Unpriced, pos.Symbol)
			v.Equity = v.Equity.Add(pos.Cost())

			continue
		}

		v.UnrealizedPnL = v.UnrealizedPnL.Add(pos.UnrealizedPnL(price))
		v.Equity = v.Equity.Add(pos.MarketValue(price))
	}

	return v
}
