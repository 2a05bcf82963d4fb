package indicator

import (
	"github.com/rxtech-lab/argo-riskbot/internal/config"
	"github.com/rxtech-lab/argo-riskbot/internal/types"
)

// Engine runs every registered indicator over a candle history.
type Engine struct {
	registry IndicatorRegistry
}

// NewEngine registers the indicators enabled in settings.
func NewEngine(settings config.IndicatorSettings) *Engine {
	registry := NewIndicatorRegistry()

	// names are distinct, so registration cannot fail
	if settings.RSIEnabled {
		_ = registry.RegisterIndicator(NewRSI(settings.RSIPeriod))
	}

	if settings.EMAEnabled {
		_ = registry.RegisterIndicator(NewEMA(types.IndicatorEMAFast, settings.EMAFast))
		_ = registry.RegisterIndicator(NewEMA(types.IndicatorEMASlow, settings.EMASlow))
	}

	if settings.MACDEnabled {
		_ = registry.RegisterIndicator(NewMACD(settings.MACDFast, settings.MACDSlow, settings.MACDSignal))
	}

	if settings.BollingerEnabled {
		_ = registry.RegisterIndicator(NewBollingerBands(settings.BollingerPeriod, settings.BollingerStd))
	}

	if settings.StochRSIEnabled {
		_ = registry.RegisterIndicator(NewStochRSI(settings.StochRSIPeriod, settings.StochRSISmoothK, settings.StochRSISmoothD))
	}

	return &Engine{registry: registry}
}

// NewEngineWithRegistry runs a caller-built registry.
func NewEngineWithRegistry(registry IndicatorRegistry) *Engine {
	return &Engine{registry: registry}
}

func (e *Engine) Registry() IndicatorRegistry {
	return e.registry
}

// Compute returns the latest value of every indicator that has enough
// history. It never fails; missing names signal insufficient data.
func (e *Engine) Compute(candles []types.Candle) types.IndicatorValues {
	closes := types.Closes(candles)
	out := types.IndicatorValues{}

	for _, name := range e.registry.ListIndicators() {
		ind, err := e.registry.GetIndicator(name)
		if err != nil {
			continue
		}

		ind.Compute(closes, out)
	}

	return out
}

// Compute is a one-shot Engine run.
func Compute(candles []types.Candle, settings config.IndicatorSettings) types.IndicatorValues {
	return NewEngine(settings).Compute(candles)
}
