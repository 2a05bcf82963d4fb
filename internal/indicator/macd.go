package indicator

import (
	"github.com/rxtech-lab/argo-riskbot/internal/types"
)

// MACD publishes the MACD line, its signal line and the histogram.
type MACD struct {
	fast   int
	slow   int
	signal int
}

func NewMACD(fast, slow, signal int) *MACD {
	return &MACD{fast: fast, slow: slow, signal: signal}
}

func (m *MACD) Name() string {
	return types.IndicatorMACD
}

func (m *MACD) Compute(closes []float64, out types.IndicatorValues) {
	if m.fast <= 0 || m.slow <= 0 || m.signal <= 0 {
		return
	}

	fast := emaSpan(closes, m.fast)
	slow := emaSpan(closes, m.slow)

	line := make([]float64, len(closes))
	for i := range closes {
		line[i] = fast[i] - slow[i]
	}

	signal := emaSpan(line, m.signal)

	hist := make([]float64, len(closes))
	for i := range closes {
		hist[i] = line[i] - signal[i]
	}

	put(out, types.IndicatorMACD, last(line))
	put(out, types.IndicatorMACDSignal, last(signal))
	put(out, types.IndicatorMACDHist, last(hist))
}
