package tradingprovider

import (
	"context"

	"github.com/rxtech-lab/argo-riskbot/internal/types"
	"github.com/shopspring/decimal"
)

// Venue places market orders on an exchange.
type Venue interface {
	// PlaceMarketOrder submits a market order and returns the venue's fill report.
	// A non-nil error means the order was not accepted.
	PlaceMarketOrder(ctx context.Context, order types.MarketOrder) (types.OrderFill, error)
}

// TradingSystemProvider is everything the bot needs from an exchange account.
type TradingSystemProvider interface {
	Venue
	// ExchangeRules returns the raw trading filters for symbol.
	ExchangeRules(ctx context.Context, symbol string) (types.ExchangeRules, error)
	// QuoteBalance returns the free balance of asset.
	QuoteBalance(ctx context.Context, asset string) (decimal.Decimal, error)
}
