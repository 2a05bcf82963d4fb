package indicator

import (
	"github.com/rxtech-lab/argo-riskbot/internal/types"
)

// BollingerBands publishes the moving average and the bands stdDev
// population standard deviations above and below it.
type BollingerBands struct {
	period int
	stdDev float64
}

func NewBollingerBands(period int, stdDev float64) *BollingerBands {
	return &BollingerBands{period: period, stdDev: stdDev}
}

func (b *BollingerBands) Name() string {
	return types.IndicatorBBMid
}

func (b *BollingerBands) Compute(closes []float64, out types.IndicatorValues) {
	mid := last(rolling(closes, b.period, mean))
	std := last(rolling(closes, b.period, populationStd))

	if mid.IsNone() || std.IsNone() {
		return
	}

	m, s := mid.Unwrap(), std.Unwrap()
	out[types.IndicatorBBMid] = m
	out[types.IndicatorBBHigh] = m + b.stdDev*s
	out[types.IndicatorBBLow] = m - b.stdDev*s
}
