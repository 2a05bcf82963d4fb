package indicator

import (
	"math"

	"github.com/rxtech-lab/argo-riskbot/internal/types"
)

// RSI is the Relative Strength Index using Wilder smoothing
// (alpha = 1/period). It needs period+1 closes.
type RSI struct {
	period int
}

func NewRSI(period int) *RSI {
	return &RSI{period: period}
}

func (r *RSI) Name() string {
	return types.IndicatorRSI
}

func (r *RSI) Compute(closes []float64, out types.IndicatorValues) {
	put(out, types.IndicatorRSI, last(rsiSeries(closes, r.period)))
}

func rsiSeries(closes []float64, period int) []float64 {
	if period <= 0 || len(closes) == 0 {
		return nanSeries(len(closes))
	}

	up := nanSeries(len(closes))
	down := nanSeries(len(closes))

	for i := 1; i < len(closes); i++ {
		change := closes[i] - closes[i-1]
		up[i] = math.Max(change, 0)
		down[i] = math.Max(-change, 0)
	}

	alpha := 1 / float64(period)
	avgUp := ewm(up, alpha, period)
	avgDown := ewm(down, alpha, period)

	out := nanSeries(len(closes))

	for i := range closes {
		if math.IsNaN(avgUp[i]) || math.IsNaN(avgDown[i]) {
			continue
		}

		if avgDown[i] == 0 {
			out[i] = 100

			continue
		}

		out[i] = 100 - 100/(1+avgUp[i]/avgDown[i])
	}

	return out
}
