// Package indicator derives named scalar values (RSI, EMA, MACD, Bollinger
// Bands, Stochastic RSI) from candle history.
package indicator

import (
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-riskbot/internal/types"
)

// Indicator computes one or more named values from close prices, oldest
// first. Names it cannot compute for lack of history are left unset.
type Indicator interface {
	// Name identifies the indicator in a Registry
	Name() string
	Compute(closes []float64, out types.IndicatorValues)
}

func put(out types.IndicatorValues, name string, value optional.Option[float64]) {
	if value.IsSome() {
		out[name] = value.Unwrap()
	}
}
