package types

import (
	"maps"
	"slices"

	"github.com/moznion/go-optional"
)

const (
	IndicatorRSI        = "rsi"
	IndicatorEMAFast    = "ema_fast"
	IndicatorEMASlow    = "ema_slow"
	IndicatorMACD       = "macd"
	IndicatorMACDSignal = "macd_signal"
	IndicatorMACDHist   = "macd_hist"
	IndicatorBBMid      = "bb_bbm"
	IndicatorBBHigh     = "bb_bbh"
	IndicatorBBLow      = "bb_bbl"
	IndicatorStochRSIK  = "stoch_rsi_k"
	IndicatorStochRSID  = "stoch_rsi_d"
)

// IndicatorValues maps indicator names to their latest value. A name is
// absent when there was not enough history to compute it.
type IndicatorValues map[string]float64

// Get returns the value for name, if present.
func (v IndicatorValues) Get(name string) optional.Option[float64] {
	val, ok := v[name]
	if !ok {
		return optional.None[float64]()
	}

	return optional.Some(val)
}

// Names returns the present indicator names in sorted order.
func (v IndicatorValues) Names() []string {
	return slices.Sorted(maps.Keys(v))
}
