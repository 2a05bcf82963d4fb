package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// CloseReason names the trigger that ended a position.
type CloseReason string

const (
	CloseReasonTakeProfit   CloseReason = "TAKE_PROFIT"
	CloseReasonStopLoss     CloseReason = "STOP_LOSS"
	CloseReasonTrailingStop CloseReason = "TRAILING_STOP"
	CloseReasonSignal       CloseReason = "SIGNAL"
	CloseReasonManual       CloseReason = "MANUAL"
)

// Trailing stop sub-tags.
const (
	TrailingProfitProtected = "profit-protected"
	TrailingLossMinimized   = "loss-minimized"
)

// TradeRecord is an immutable entry in the append-only trade log.
type TradeRecord struct {
	ID          string          `json:"id"`
	Timestamp   time.Time       `json:"timestamp"`
	Symbol      string          `json:"symbol"`
	Side        PurchaseType    `json:"side"`
	Quantity    decimal.Decimal `json:"quantity"`
	Price       decimal.Decimal `json:"price"`
	EntryPrice  decimal.Decimal `json:"entry_price"`
	RealizedPnL decimal.Decimal `json:"realized_pnl"`
	// Reason is free text such as RSI_BUY_SIGNAL or TRAILING_STOP (profit-protected).
	Reason     string             `json:"reason"`
	SLAtEntry  decimal.Decimal    `json:"sl_at_entry"`
	TPAtEntry  decimal.Decimal    `json:"tp_at_entry"`
	TSLAtClose decimal.Decimal    `json:"tsl_at_close"`
	IsLive     bool               `json:"is_live"`
	OrderID    string             `json:"order_id,omitempty"`
	Indicators map[string]float64 `json:"indicators,omitempty"`
}

// Notional is quantity * price.
func (t TradeRecord) Notional() decimal.Decimal {
	return t.Quantity.Mul(t.Price)
}

// CashDelta is the signed effect of the trade on the cash balance.
func (t TradeRecord) CashDelta() decimal.Decimal {
	if t.Side == PurchaseTypeBuy {
		return t.Notional().Neg()
	}

	return t.Notional()
}
