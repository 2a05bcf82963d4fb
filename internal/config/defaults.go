package config

import (
	"maps"
	"slices"
	"time"
)

const (
	DefaultStopLossPct         = 0.02
	DefaultTakeProfitPct       = 0.04
	DefaultTrailingStopPct     = 0.01
	DefaultRSIBuyThreshold     = 30
	DefaultRSISellThreshold    = 70
	DefaultTimeframe           = "15m"
	DefaultLookback            = 250
	DefaultPaperBalanceInitial = 1000.0
	DefaultTradeAmountUSD      = 100.0
	DefaultTradingInterval     = 5 * time.Minute
	DefaultHourlyQueryLimit    = 200
	DefaultDailyQueryLimit     = 1000
)

// ApplyDefaults fills every zero-valued option. It is idempotent.
func (c *Config) ApplyDefaults() {
	if c.Mode == "" {
		c.Mode = ModePaper
	}

	if c.LogLevel == "" {
		c.LogLevel = "info"
	}

	if c.Concurrency == 0 {
		c.Concurrency = 4
	}

	for name, sc := range c.Symbols {
		sc.applyDefaults()
		c.Symbols[name] = sc
	}

	c.Settings.applyDefaults()
	c.Store.applyDefaults()

	if c.Exchange.RequestsPerSecond == 0 {
		c.Exchange.RequestsPerSecond = 10
	}

	if c.Exchange.QuoteAsset == "" {
		c.Exchange.QuoteAsset = "USDT"
	}

	c.Timeouts.applyDefaults()

	if c.Aggregation.HourlyQueryLimit == 0 {
		c.Aggregation.HourlyQueryLimit = DefaultHourlyQueryLimit
	}

	if c.Aggregation.DailyQueryLimit == 0 {
		c.Aggregation.DailyQueryLimit = DefaultDailyQueryLimit
	}
}

func (s *SymbolConfig) applyDefaults() {
	if s.StopLossPct == 0 {
		s.StopLossPct = DefaultStopLossPct
	}

	if s.TakeProfitPct == 0 {
		s.TakeProfitPct = DefaultTakeProfitPct
	}

	if s.TrailingStopPct == 0 {
		s.TrailingStopPct = DefaultTrailingStopPct
	}

	if s.RSIBuyThreshold == 0 {
		s.RSIBuyThreshold = DefaultRSIBuyThreshold
	}

	if s.RSISellThreshold == 0 {
		s.RSISellThreshold = DefaultRSISellThreshold
	}
}

func (s *Settings) applyDefaults() {
	if s.Timeframe == "" {
		s.Timeframe = DefaultTimeframe
	}

	if s.Lookback == 0 {
		s.Lookback = DefaultLookback
	}

	if s.PaperBalanceInitial == 0 {
		s.PaperBalanceInitial = DefaultPaperBalanceInitial
	}

	if s.TradeAmountUSD == 0 {
		s.TradeAmountUSD = DefaultTradeAmountUSD
	}

	if s.TradingInterval == 0 {
		s.TradingInterval = DefaultTradingInterval
	}

	if s.Timezone == "" {
		s.Timezone = "UTC"
	}

	s.Indicators.applyDefaults()
}

func (i *IndicatorSettings) applyDefaults() {
	setInt := func(v *int, def int) {
		if *v == 0 {
			*v = def
		}
	}

	setInt(&i.RSIPeriod, 14)
	setInt(&i.EMAFast, 50)
	setInt(&i.EMASlow, 200)
	setInt(&i.MACDFast, 12)
	setInt(&i.MACDSlow, 26)
	setInt(&i.MACDSignal, 9)
	setInt(&i.BollingerPeriod, 20)
	setInt(&i.StochRSIPeriod, 14)
	setInt(&i.StochRSISmoothK, 3)
	setInt(&i.StochRSISmoothD, 3)

	if i.BollingerStd == 0 {
		i.BollingerStd = 2
	}
}

func (s *StoreConfig) applyDefaults() {
	if s.Driver == "" {
		s.Driver = StoreDriverDuckDB
	}

	if s.Path == "" && s.Driver == StoreDriverDuckDB {
		s.Path = "riskbot.duckdb"
	}

	if s.AppID == "" {
		s.AppID = "default-app-id"
	}

	if s.UserID == "" {
		s.UserID = "default-user"
	}
}

func (t *Timeouts) applyDefaults() {
	setDur := func(v *time.Duration, def time.Duration) {
		if *v == 0 {
			*v = def
		}
	}

	setDur(&t.MarketData, 10*time.Second)
	setDur(&t.Order, 15*time.Second)
	setDur(&t.Persistence, 10*time.Second)
	setDur(&t.Notification, 10*time.Second)
}

func sortedKeys[V any](m map[string]V) []string {
	return slices.Sorted(maps.Keys(m))
}
