package mocks

import (
	"math"
	"math/rand"
	"time"

	"github.com/rxtech-lab/argo-riskbot/internal/types"
)

// CandleGenerator produces synthetic kline histories for tests.
type CandleGenerator struct {
	rng *rand.Rand
}

// NewCandleGenerator creates a generator with the given seed.
// Use a fixed seed for reproducible results in tests.
func NewCandleGenerator(seed int64) *CandleGenerator {
	return &CandleGenerator{
		rng: rand.New(rand.NewSource(seed)),
	}
}

// GeneratorConfig configures how candles are generated.
type GeneratorConfig struct {
	// StartTime is the open time of the first candle
	StartTime time.Time
	// Interval is the candle width
	Interval time.Duration
	// Count is the number of candles to generate
	Count int
	// InitialPrice is the first open
	InitialPrice float64
	// Volatility controls price movement (0.01 = 1% per candle)
	Volatility float64
	// Trend is a per-candle drift (-0.01 to 0.01 for bearish to bullish)
	Trend float64
	// VolumeBase is the average base-asset volume per candle
	VolumeBase float64
	// VolumeVariance is the variance in volume (0.0 to 1.0)
	VolumeVariance float64
}

// DefaultConfig returns a sensible 15 minute configuration.
func DefaultConfig() GeneratorConfig {
	return GeneratorConfig{
		StartTime:      time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		Interval:       15 * time.Minute,
		Count:          250,
		InitialPrice:   100.0,
		Volatility:     0.004,
		Trend:          0.0,
		VolumeBase:     50,
		VolumeVariance: 0.3,
	}
}

// Generate creates candles following a geometric Brownian motion.
func (g *CandleGenerator) Generate(config GeneratorConfig) []types.Candle {
	candles := make([]types.Candle, config.Count)
	currentPrice := config.InitialPrice
	openTime := config.StartTime

	for i := 0; i < config.Count; i++ {
		open := currentPrice

		// Box-Muller for a standard normal draw
		u1 := g.rng.Float64()
		u2 := g.rng.Float64()
		z := math.Sqrt(-2*math.Log(u1)) * math.Cos(2*math.Pi*u2)

		close := open * (1 + config.Volatility*z + config.Trend)
		if close <= 0 {
			close = open * 0.99
		}

		highExtension := math.Abs(g.rng.Float64() * config.Volatility * open * 0.5)
		lowExtension := math.Abs(g.rng.Float64() * config.Volatility * open * 0.5)

		high := math.Max(open, close) + highExtension
		low := math.Min(open, close) - lowExtension
		if low <= 0 {
			low = math.Min(open, close) * 0.99
		}

		volume := config.VolumeBase * (1.0 + (g.rng.Float64()*2-1)*config.VolumeVariance)
		if volume < 0 {
			volume = config.VolumeBase * 0.1
		}

		candles[i] = types.Candle{
			OpenTime:  openTime,
			CloseTime: openTime.Add(config.Interval - time.Millisecond),
			Open:      roundToDecimals(open, 4),
			High:      roundToDecimals(high, 4),
			Low:       roundToDecimals(low, 4),
			Close:     roundToDecimals(close, 4),
			Volume:    roundToDecimals(volume, 2),
		}

		currentPrice = close
		openTime = openTime.Add(config.Interval)
	}

	return candles
}

// GenerateMultiSymbol generates a history per symbol with slightly varied
// starting price and volatility.
func (g *CandleGenerator) GenerateMultiSymbol(symbols []string, baseConfig GeneratorConfig) map[string][]types.Candle {
	out := make(map[string][]types.Candle, len(symbols))

	for _, symbol := range symbols {
		config := baseConfig
		config.InitialPrice = baseConfig.InitialPrice * (0.8 + g.rng.Float64()*0.4)
		config.Volatility = baseConfig.Volatility * (0.8 + g.rng.Float64()*0.4)

		out[symbol] = g.Generate(config)
	}

	return out
}

// CandlesFromCloses builds flat candles (open=high=low=close) from closes.
func CandlesFromCloses(start time.Time, interval time.Duration, closes ...float64) []types.Candle {
	candles := make([]types.Candle, len(closes))

	for i, c := range closes {
		openTime := start.Add(time.Duration(i) * interval)
		candles[i] = types.Candle{
			OpenTime:  openTime,
			CloseTime: openTime.Add(interval - time.Millisecond),
			Open:      c,
			High:      c,
			Low:       c,
			Close:     c,
		}
	}

	return candles
}

// roundToDecimals rounds a float64 to the specified number of decimal places.
func roundToDecimals(val float64, decimals int) float64 {
	pow := math.Pow(10, float64(decimals))
	return math.Round(val*pow) / pow
}
