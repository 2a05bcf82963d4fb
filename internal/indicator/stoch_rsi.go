package indicator

import (
	"math"

	"github.com/rxtech-lab/argo-riskbot/internal/types"
)

// StochRSI applies the stochastic oscillator to RSI over the same period,
// then smooths it into %K and %D. Values lie in [0, 1].
type StochRSI struct {
	period  int
	smoothK int
	smoothD int
}

func NewStochRSI(period, smoothK, smoothD int) *StochRSI {
	return &StochRSI{period: period, smoothK: smoothK, smoothD: smoothD}
}

func (s *StochRSI) Name() string {
	return types.IndicatorStochRSIK
}

func (s *StochRSI) Compute(closes []float64, out types.IndicatorValues) {
	rsi := rsiSeries(closes, s.period)
	lowest := rolling(rsi, s.period, minOf)
	highest := rolling(rsi, s.period, maxOf)

	stoch := nanSeries(len(closes))

	for i := range closes {
		span := highest[i] - lowest[i]
		if math.IsNaN(span) || span == 0 {
			continue
		}

		stoch[i] = (rsi[i] - lowest[i]) / span
	}

	k := rolling(stoch, s.smoothK, mean)
	d := rolling(k, s.smoothD, mean)

	put(out, types.IndicatorStochRSIK, last(k))
	put(out, types.IndicatorStochRSID, last(d))
}
