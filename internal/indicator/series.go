package indicator

import (
	"math"

	"github.com/moznion/go-optional"
)

// Series helpers work on float64 slices aligned with the input candles.
// Positions without enough history hold NaN.

func nanSeries(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}

	return out
}

// ewm is an exponentially weighted mean without bias adjustment:
// y = (1-alpha)*y_prev + alpha*x, seeded with the first valid value. Leading
// NaNs are skipped and values appear once minPeriods valid inputs were seen.
func ewm(values []float64, alpha float64, minPeriods int) []float64 {
	out := nanSeries(len(values))

	var (
		mean  float64
		count int
	)

	for i, v := range values {
		if math.IsNaN(v) {
			continue
		}

		if count == 0 {
			mean = v
		} else {
			mean = (1-alpha)*mean + alpha*v
		}

		count++

		if count >= minPeriods {
			out[i] = mean
		}
	}

	return out
}

// emaSpan is ewm with alpha = 2/(span+1) and span warm-up periods.
func emaSpan(values []float64, span int) []float64 {
	return ewm(values, 2/float64(span+1), span)
}

// rolling applies fn to every full window of size n. Windows containing NaN
// yield NaN.
func rolling(values []float64, n int, fn func(window []float64) float64) []float64 {
	out := nanSeries(len(values))
	if n <= 0 {
		return out
	}

outer:
	for i := n - 1; i < len(values); i++ {
		window := values[i-n+1 : i+1]
		for _, v := range window {
			if math.IsNaN(v) {
				continue outer
			}
		}

		out[i] = fn(window)
	}

	return out
}

func mean(window []float64) float64 {
	sum := 0.0
	for _, v := range window {
		sum += v
	}

	return sum / float64(len(window))
}

// populationStd is the standard deviation with ddof=0.
func populationStd(window []float64) float64 {
	m := mean(window)
	sum := 0.0

	for _, v := range window {
		sum += (v - m) * (v - m)
	}

	return math.Sqrt(sum / float64(len(window)))
}

func minOf(window []float64) float64 {
	out := window[0]
	for _, v := range window[1:] {
		out = math.Min(out, v)
	}

	return out
}

func maxOf(window []float64) float64 {
	out := window[0]
	for _, v := range window[1:] {
		out = math.Max(out, v)
	}

	return out
}

// last returns the final element unless it is missing.
func last(values []float64) optional.Option[float64] {
	if len(values) == 0 {
		return optional.None[float64]()
	}

	v := values[len(values)-1]
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return optional.None[float64]()
	}

	return optional.Some(v)
}
