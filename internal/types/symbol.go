package types

import "github.com/shopspring/decimal"

const SymbolStatusTrading = "TRADING"

// ExchangeRules are the raw trading filters an exchange publishes for a symbol.
type ExchangeRules struct {
	Symbol      string
	Status      string
	TickSize    decimal.Decimal
	StepSize    decimal.Decimal
	MinQty      decimal.Decimal
	MinNotional decimal.Decimal
}

// SymbolMetadata is the resolved, immutable rule set used to size and validate orders.
type SymbolMetadata struct {
	Symbol            string          `json:"symbol"`
	PricePrecision    int32           `json:"price_precision"`
	QuantityPrecision int32           `json:"quantity_precision"`
	MinQty            decimal.Decimal `json:"min_qty"`
	MinNotional       decimal.Decimal `json:"min_notional"`
}

// RoundQuantity rounds a quantity to the exchange's quantity precision.
func (m SymbolMetadata) RoundQuantity(qty decimal.Decimal) decimal.Decimal {
	return qty.Round(m.QuantityPrecision)
}

// RoundPrice rounds a price to the exchange's price precision.
func (m SymbolMetadata) RoundPrice(price decimal.Decimal) decimal.Decimal {
	return price.Round(m.PricePrecision)
}
