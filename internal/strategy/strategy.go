// Package strategy maps indicator values to trade intents. Strategies are
// stateless: whether a position is open is passed in on every call.
package strategy

import (
	"github.com/rxtech-lab/argo-riskbot/internal/config"
	"github.com/rxtech-lab/argo-riskbot/internal/types"
)

const (
	ReasonRSIBuy         = "RSI_BUY_SIGNAL"
	ReasonRSISell        = "RSI_SELL_SIGNAL"
	ReasonRSIUnavailable = "RSI_UNAVAILABLE"
	ReasonHold           = "HOLD"
)

// Strategy decides what to do with one symbol in one cycle.
type Strategy interface {
	Name() string
	Decide(symbol string, indicators types.IndicatorValues, hasOpenPosition bool) types.Signal
}

// SymbolSettings resolves per-symbol parameters; *config.Config implements it.
type SymbolSettings interface {
	Symbol(symbol string) config.SymbolConfig
}

// RSIStrategy enters when RSI drops below the symbol's buy threshold and
// exits when it rises above the sell threshold.
type RSIStrategy struct {
	settings SymbolSettings
}

func NewRSIStrategy(settings SymbolSettings) *RSIStrategy {
	return &RSIStrategy{settings: settings}
}

func (s *RSIStrategy) Name() string {
	return "rsi_threshold"
}

func (s *RSIStrategy) Decide(symbol string, indicators types.IndicatorValues, hasOpenPosition bool) types.Signal {
	signal := types.Signal{Symbol: symbol, Intent: types.IntentNone, Reason: ReasonHold}

	rsi, err := indicators.Get(types.IndicatorRSI).Take()
	if err != nil {
		signal.Reason = ReasonRSIUnavailable

		return signal
	}

	cfg := s.settings.Symbol(symbol)

	switch {
	case !hasOpenPosition && rsi < cfg.RSIBuyThreshold:
		signal.Intent = types.IntentEnter
		signal.Reason = ReasonRSIBuy
	case hasOpenPosition && rsi > cfg.RSISellThreshold:
		signal.Intent = types.IntentExit
		signal.Reason = ReasonRSISell
	}

	return signal
}
