package indicator

import (
	"github.com/rxtech-lab/argo-riskbot/internal/types"
)

// EMA is an exponential moving average published under a configurable name,
// so a fast and a slow EMA can share a registry.
type EMA struct {
	name   string
	period int
}

func NewEMA(name string, period int) *EMA {
	return &EMA{name: name, period: period}
}

func (e *EMA) Name() string {
	return e.name
}

func (e *EMA) Compute(closes []float64, out types.IndicatorValues) {
	if e.period <= 0 {
		return
	}

	put(out, e.name, last(emaSpan(closes, e.period)))
}
