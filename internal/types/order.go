package types

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rxtech-lab/argo-riskbot/pkg/errors"
	"github.com/shopspring/decimal"
)

type PurchaseType string

type OrderStatus string

type PositionSide string

const (
	PurchaseTypeBuy  PurchaseType = "BUY"
	PurchaseTypeSell PurchaseType = "SELL"
)

const (
	OrderStatusNew             OrderStatus = "NEW"
	OrderStatusPartiallyFilled OrderStatus = "PARTIALLY_FILLED"
	OrderStatusFilled          OrderStatus = "FILLED"
	OrderStatusCancelled       OrderStatus = "CANCELLED"
	OrderStatusRejected        OrderStatus = "REJECTED"
	OrderStatusExpired         OrderStatus = "EXPIRED"
	OrderStatusFailed          OrderStatus = "FAILED"
)

// Only long spot positions are supported.
const PositionSideLong PositionSide = "LONG"

// MarketOrder is a market order request sent to a venue.
type MarketOrder struct {
	Symbol   string          `json:"symbol" validate:"required"`
	Side     PurchaseType    `json:"side" validate:"required,oneof=BUY SELL"`
	Quantity decimal.Decimal `json:"quantity"`
}

// Validate validates the MarketOrder struct.
func (o MarketOrder) Validate() error {
	if err := validator.New().Struct(o); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidParameter, "invalid market order", err)
	}

	if !o.Quantity.IsPositive() {
		return errors.Newf(errors.ErrCodeInvalidQuantity, "order quantity must be positive, got %s", o.Quantity)
	}

	return nil
}

// OrderFill is the venue's answer to a market order.
type OrderFill struct {
	OrderID     string          `json:"order_id"`
	Symbol      string          `json:"symbol"`
	Side        PurchaseType    `json:"side"`
	Status      OrderStatus     `json:"status"`
	ExecutedQty decimal.Decimal `json:"executed_qty"`
	// FillPrice is the quantity weighted average price across all fills.
	FillPrice decimal.Decimal `json:"fill_price"`
	// QuoteQty is the total quote asset amount spent or received.
	QuoteQty     decimal.Decimal `json:"quote_qty"`
	TransactTime time.Time       `json:"transact_time"`
}

// IsFilled reports whether the fill is confirmed and non-empty.
func (f OrderFill) IsFilled() bool {
	return f.Status == OrderStatusFilled && f.ExecutedQty.IsPositive()
}
