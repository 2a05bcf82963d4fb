package strategy

import (
	"testing"

	"github.com/rxtech-lab/argo-riskbot/internal/config"
	"github.com/rxtech-lab/argo-riskbot/internal/types"
	"github.com/stretchr/testify/assert"
)

type fixedSettings map[string]config.SymbolConfig

func (f fixedSettings) Symbol(symbol string) config.SymbolConfig {
	if cfg, ok := f[symbol]; ok {
		return cfg
	}

	return config.SymbolConfig{RSIBuyThreshold: 30, RSISellThreshold: 70}
}

func TestRSIStrategyDecide(t *testing.T) {
	strategy := NewRSIStrategy(fixedSettings{
		"DOGEUSDT": {RSIBuyThreshold: 20, RSISellThreshold: 80},
	})

	tests := []struct {
		name       string
		symbol     string
		indicators types.IndicatorValues
		open       bool
		intent     types.Intent
		reason     string
	}{
		{"oversold and flat enters", "BTCUSDT", types.IndicatorValues{types.IndicatorRSI: 25}, false, types.IntentEnter, ReasonRSIBuy},
		{"oversold but already long holds", "BTCUSDT", types.IndicatorValues{types.IndicatorRSI: 25}, true, types.IntentNone, ReasonHold},
		{"overbought and long exits", "BTCUSDT", types.IndicatorValues{types.IndicatorRSI: 75}, true, types.IntentExit, ReasonRSISell},
		{"overbought and flat holds", "BTCUSDT", types.IndicatorValues{types.IndicatorRSI: 75}, false, types.IntentNone, ReasonHold},
		{"threshold itself does not trigger", "BTCUSDT", types.IndicatorValues{types.IndicatorRSI: 30}, false, types.IntentNone, ReasonHold},
		{"per-symbol buy threshold", "DOGEUSDT", types.IndicatorValues{types.IndicatorRSI: 25}, false, types.IntentNone, ReasonHold},
		{"per-symbol sell threshold", "DOGEUSDT", types.IndicatorValues{types.IndicatorRSI: 81}, true, types.IntentExit, ReasonRSISell},
		{"missing rsi", "BTCUSDT", types.IndicatorValues{types.IndicatorEMAFast: 1}, false, types.IntentNone, ReasonRSIUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			signal := strategy.Decide(tt.symbol, tt.indicators, tt.open)
			assert.Equal(t, tt.symbol, signal.Symbol)
			assert.Equal(t, tt.intent, signal.Intent)
			assert.Equal(t, tt.reason, signal.Reason)
		})
	}
}

func TestRSIStrategyWithConfig(t *testing.T) {
	cfg, err := config.Parse([]byte("symbols:\n  BTCUSDT:\n    rsi_buy_threshold: 40\n"))
	assert.NoError(t, err)

	signal := NewRSIStrategy(cfg).Decide("BTCUSDT", types.IndicatorValues{types.IndicatorRSI: 35}, false)
	assert.Equal(t, types.IntentEnter, signal.Intent)
	assert.Equal(t, "rsi_threshold", NewRSIStrategy(cfg).Name())
}
