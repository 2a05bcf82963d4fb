package mocks

import (
	"testing"
	"time"
)

func TestCandleGenerator_Generate(t *testing.T) {
	gen := NewCandleGenerator(42)
	config := DefaultConfig()
	config.Count = 100

	candles := gen.Generate(config)

	if len(candles) != 100 {
		t.Errorf("expected 100 candles, got %d", len(candles))
	}

	for i := 1; i < len(candles); i++ {
		if got := candles[i].OpenTime.Sub(candles[i-1].OpenTime); got != config.Interval {
			t.Errorf("unexpected interval at index %d: expected %v, got %v", i, config.Interval, got)
		}
	}

	for i, c := range candles {
		if c.Open <= 0 || c.High <= 0 || c.Low <= 0 || c.Close <= 0 {
			t.Errorf("invalid OHLC values at index %d: O=%f H=%f L=%f C=%f", i, c.Open, c.High, c.Low, c.Close)
		}

		if c.High < c.Low {
			t.Errorf("High < Low at index %d: H=%f L=%f", i, c.High, c.Low)
		}

		if !c.CloseTime.After(c.OpenTime) {
			t.Errorf("close time not after open time at index %d", i)
		}
	}
}

func TestCandleGenerator_Reproducibility(t *testing.T) {
	config := DefaultConfig()
	config.Count = 10

	data1 := NewCandleGenerator(42).Generate(config)
	data2 := NewCandleGenerator(42).Generate(config)

	for i := range data1 {
		if data1[i].Close != data2[i].Close {
			t.Errorf("data not reproducible at index %d: got %f and %f", i, data1[i].Close, data2[i].Close)
		}
	}
}

func TestCandleGenerator_DifferentSeeds(t *testing.T) {
	config := DefaultConfig()
	config.Count = 10

	data1 := NewCandleGenerator(42).Generate(config)
	data2 := NewCandleGenerator(123).Generate(config)

	sameCount := 0

	for i := range data1 {
		if data1[i].Close == data2[i].Close {
			sameCount++
		}
	}

	if sameCount == len(data1) {
		t.Error("different seeds produced identical data")
	}
}

func TestGenerateMultiSymbol(t *testing.T) {
	symbols := []string{"BTCUSDT", "ETHUSDT", "BNBUSDT"}
	config := DefaultConfig()
	config.Count = 100

	data := NewCandleGenerator(42).GenerateMultiSymbol(symbols, config)

	if len(data) != len(symbols) {
		t.Fatalf("expected %d symbols, got %d", len(symbols), len(data))
	}

	for _, symbol := range symbols {
		if len(data[symbol]) != config.Count {
			t.Errorf("expected %d candles for %s, got %d", config.Count, symbol, len(data[symbol]))
		}
	}
}

func TestCandlesFromCloses(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	candles := CandlesFromCloses(start, time.Minute, 1, 2, 3)

	if len(candles) != 3 || candles[2].Close != 3 || !candles[1].OpenTime.Equal(start.Add(time.Minute)) {
		t.Fatalf("unexpected candles %+v", candles)
	}
}

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	if config.Count != 250 {
		t.Errorf("expected default count 250, got %d", config.Count)
	}

	if config.Interval != 15*time.Minute {
		t.Errorf("expected default interval 15m, got %v", config.Interval)
	}

	if config.InitialPrice != 100.0 {
		t.Errorf("expected default initial price 100.0, got %f", config.InitialPrice)
	}
}
