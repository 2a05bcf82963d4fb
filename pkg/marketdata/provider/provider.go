package provider

import (
	"context"
	"fmt"

	"github.com/rxtech-lab/argo-riskbot/internal/types"
	"github.com/shopspring/decimal"
)

// ProviderType defines the type of market data provider.
type ProviderType string

const (
	ProviderBinance ProviderType = "binance"
)

// Source supplies the prices and candles a trading cycle consumes.
type Source interface {
	// LatestPrice returns the last traded price for symbol.
	LatestPrice(ctx context.Context, symbol string) (decimal.Decimal, error)
	// Candles returns up to count closed and in-progress bars, oldest first.
	// example:
	// Candles(ctx, "BTCUSDT", "15m", 250)
	Candles(ctx context.Context, symbol string, interval string, count int) ([]types.Candle, error)
}

// NewMarketDataProvider creates a new market data provider based on the provider type.
func NewMarketDataProvider(providerType ProviderType, config BinanceConfig) (Source, error) {
	switch providerType {
	case ProviderBinance:
		return NewBinanceClient(config), nil
	default:
		return nil, fmt.Errorf("unsupported market data provider: %s", providerType)
	}
}
