// Package config loads the bot's YAML configuration, applies defaults once
// and validates the result. Secrets are read from the environment, optionally
// populated from a .env file.
package config

import (
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/rxtech-lab/argo-riskbot/pkg/errors"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

type Mode string

const (
	ModePaper Mode = "paper"
	ModeLive  Mode = "live"
)

type StoreDriver string

const (
	StoreDriverDuckDB StoreDriver = "duckdb"
	StoreDriverMemory StoreDriver = "memory"
)

// Environment variable names for secrets.
const (
	EnvBinanceAPIKey    = "BINANCE_API_KEY"
	EnvBinanceAPISecret = "BINANCE_API_SECRET"
	EnvTelegramToken    = "TELEGRAM_BOT_TOKEN"
	EnvTelegramChatID   = "TELEGRAM_CHAT_ID"
)

// SymbolConfig holds per-symbol risk and strategy parameters. Percentages are fractions (0.02 = 2%).
type SymbolConfig struct {
	StopLossPct      float64 `json:"sl" yaml:"sl" jsonschema:"description=Stop loss distance below entry as a fraction,default=0.02" validate:"gt=0,lt=1"`
	TakeProfitPct    float64 `json:"tp" yaml:"tp" jsonschema:"description=Take profit distance above entry as a fraction,default=0.04" validate:"gt=0"`
	TrailingStopPct  float64 `json:"tsl" yaml:"tsl" jsonschema:"description=Trailing stop distance below the highest price as a fraction,default=0.01" validate:"gt=0,lt=1"`
	RSIBuyThreshold  float64 `json:"rsi_buy_threshold" yaml:"rsi_buy_threshold" jsonschema:"default=30" validate:"gt=0,lt=100"`
	RSISellThreshold float64 `json:"rsi_sell_threshold" yaml:"rsi_sell_threshold" jsonschema:"default=70" validate:"gt=0,lt=100,gtfield=RSIBuyThreshold"`
	// MinNotional overrides the exchange's minimum notional when positive.
	MinNotional float64 `json:"min_notional,omitempty" yaml:"min_notional,omitempty" jsonschema:"description=Override for the exchange minimum notional" validate:"gte=0"`
}

func (s SymbolConfig) StopLoss() decimal.Decimal     { return decimal.NewFromFloat(s.StopLossPct) }
func (s SymbolConfig) TakeProfit() decimal.Decimal   { return decimal.NewFromFloat(s.TakeProfitPct) }
func (s SymbolConfig) TrailingStop() decimal.Decimal { return decimal.NewFromFloat(s.TrailingStopPct) }

// IndicatorSettings toggles and parameterises the indicator engine.
type IndicatorSettings struct {
	RSIEnabled       bool    `json:"rsi_enabled" yaml:"rsi_enabled"`
	RSIPeriod        int     `json:"rsi_period" yaml:"rsi_period" jsonschema:"default=14" validate:"gte=2"`
	EMAEnabled       bool    `json:"ema_enabled" yaml:"ema_enabled"`
	EMAFast          int     `json:"ema_fast" yaml:"ema_fast" jsonschema:"default=50" validate:"gte=1"`
	EMASlow          int     `json:"ema_slow" yaml:"ema_slow" jsonschema:"default=200" validate:"gtfield=EMAFast"`
	MACDEnabled      bool    `json:"macd_enabled" yaml:"macd_enabled"`
	MACDFast         int     `json:"macd_fast" yaml:"macd_fast" jsonschema:"default=12" validate:"gte=1"`
	MACDSlow         int     `json:"macd_slow" yaml:"macd_slow" jsonschema:"default=26" validate:"gtfield=MACDFast"`
	MACDSignal       int     `json:"macd_signal" yaml:"macd_signal" jsonschema:"default=9" validate:"gte=1"`
	BollingerEnabled bool    `json:"bollinger_enabled" yaml:"bollinger_enabled"`
	BollingerPeriod  int     `json:"bollinger_period" yaml:"bollinger_period" jsonschema:"default=20" validate:"gte=2"`
	BollingerStd     float64 `json:"bollinger_std" yaml:"bollinger_std" jsonschema:"default=2" validate:"gt=0"`
	StochRSIEnabled  bool    `json:"stoch_rsi_enabled" yaml:"stoch_rsi_enabled"`
	StochRSIPeriod   int     `json:"stoch_rsi_period" yaml:"stoch_rsi_period" jsonschema:"default=14" validate:"gte=2"`
	StochRSISmoothK  int     `json:"stoch_rsi_smooth_k" yaml:"stoch_rsi_smooth_k" jsonschema:"default=3" validate:"gte=1"`
	StochRSISmoothD  int     `json:"stoch_rsi_smooth_d" yaml:"stoch_rsi_smooth_d" jsonschema:"default=3" validate:"gte=1"`
}

type Settings struct {
	Timeframe           string            `json:"timeframe" yaml:"timeframe" jsonschema:"default=15m" validate:"required,oneof=1m 3m 5m 15m 30m 1h 2h 4h 6h 8h 12h 1d"`
	Lookback            int               `json:"lookback" yaml:"lookback" jsonschema:"description=Candles fetched per symbol per cycle,default=250" validate:"gte=2,lte=1000"`
	PaperBalanceInitial float64           `json:"paper_balance_initial" yaml:"paper_balance_initial" jsonschema:"default=1000" validate:"gt=0"`
	TradeAmountUSD      float64           `json:"trade_amount_usd" yaml:"trade_amount_usd" jsonschema:"default=100" validate:"gt=0"`
	TradingInterval     time.Duration     `json:"trading_interval" yaml:"trading_interval" jsonschema:"description=Time between cycles,default=5m" validate:"gte=1s"`
	Timezone            string            `json:"timezone" yaml:"timezone" jsonschema:"description=IANA zone used for daily summary boundaries,default=UTC" validate:"required"`
	Indicators          IndicatorSettings `json:"indicators" yaml:"indicators"`
}

type StoreConfig struct {
	Driver StoreDriver `json:"driver" yaml:"driver" jsonschema:"enum=duckdb,enum=memory,default=duckdb" validate:"required,oneof=duckdb memory"`
	Path   string      `json:"path" yaml:"path" jsonschema:"description=DuckDB database file,default=riskbot.duckdb" validate:"required_if=Driver duckdb"`
	AppID  string      `json:"app_id" yaml:"app_id" jsonschema:"default=default-app-id" validate:"required"`
	UserID string      `json:"user_id" yaml:"user_id" jsonschema:"default=default-user" validate:"required"`
	// TradeExportPath, when set, receives a Parquet copy of the trade log after every append.
	TradeExportPath string `json:"trade_export_path,omitempty" yaml:"trade_export_path,omitempty"`
}

type ExchangeConfig struct {
	Testnet bool `json:"testnet" yaml:"testnet" jsonschema:"description=Use the Binance spot testnet"`
	// BaseURL takes precedence over Testnet when set.
	BaseURL           string  `json:"base_url,omitempty" yaml:"base_url,omitempty" validate:"omitempty,url"`
	RequestsPerSecond float64 `json:"requests_per_second" yaml:"requests_per_second" jsonschema:"description=Client side REST rate limit,default=10" validate:"gt=0"`
	QuoteAsset        string  `json:"quote_asset" yaml:"quote_asset" jsonschema:"default=USDT" validate:"required"`
}

type Timeouts struct {
	MarketData   time.Duration `json:"market_data" yaml:"market_data" jsonschema:"default=10s" validate:"gt=0"`
	Order        time.Duration `json:"order" yaml:"order" jsonschema:"default=15s" validate:"gt=0"`
	Persistence  time.Duration `json:"persistence" yaml:"persistence" jsonschema:"default=10s" validate:"gt=0"`
	Notification time.Duration `json:"notification" yaml:"notification" jsonschema:"default=10s" validate:"gt=0"`
}

type AggregationConfig struct {
	HourlyQueryLimit int `json:"hourly_query_limit" yaml:"hourly_query_limit" jsonschema:"default=200" validate:"gte=1"`
	DailyQueryLimit  int `json:"daily_query_limit" yaml:"daily_query_limit" jsonschema:"default=1000" validate:"gte=1"`
}

// Secrets never come from the YAML file.
type Secrets struct {
	BinanceAPIKey    string
	BinanceAPISecret string
	TelegramToken    string
	TelegramChatID   string
}

// HasTelegram reports whether both Telegram secrets are present.
func (s Secrets) HasTelegram() bool {
	return s.TelegramToken != "" && s.TelegramChatID != ""
}

type Config struct {
	Mode        Mode                    `json:"mode" yaml:"mode" jsonschema:"enum=paper,enum=live,default=paper" validate:"required,oneof=paper live"`
	LogLevel    string                  `json:"log_level" yaml:"log_level" jsonschema:"enum=debug,enum=info,enum=warn,enum=error,default=info" validate:"oneof=debug info warn error"`
	Concurrency int                     `json:"concurrency" yaml:"concurrency" jsonschema:"description=Max concurrent per-symbol fetches,default=4" validate:"gte=1"`
	Symbols     map[string]SymbolConfig `json:"symbols" yaml:"symbols" validate:"required,min=1,dive"`
	Settings    Settings                `json:"settings" yaml:"settings"`
	Exchange    ExchangeConfig          `json:"exchange" yaml:"exchange"`
	Store       StoreConfig             `json:"store" yaml:"store"`
	Timeouts    Timeouts                `json:"timeouts" yaml:"timeouts"`
	Aggregation AggregationConfig       `json:"aggregation" yaml:"aggregation"`

	Secrets  Secrets        `json:"-" yaml:"-"`
	location *time.Location `json:"-" yaml:"-"`
}

// Load reads path, applies defaults, loads secrets from envFile (ignored when
// missing) and the process environment, then validates.
func Load(path, envFile string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeInvalidConfiguration, err, "failed to read config file %s", path)
	}

	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
			return nil, errors.Wrapf(errors.ErrCodeInvalidConfiguration, err, "failed to load env file %s", envFile)
		}
	}

	cfg, err := Parse(raw)
	if err != nil {
		return nil, err
	}

	cfg.Secrets = SecretsFromEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Parse decodes YAML and applies defaults. It does not validate.
func Parse(raw []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfiguration, "failed to parse config", err)
	}

	cfg.ApplyDefaults()

	return &cfg, nil
}

// SecretsFromEnv reads secrets from the process environment.
func SecretsFromEnv() Secrets {
	return Secrets{
		BinanceAPIKey:    os.Getenv(EnvBinanceAPIKey),
		BinanceAPISecret: os.Getenv(EnvBinanceAPISecret),
		TelegramToken:    os.Getenv(EnvTelegramToken),
		TelegramChatID:   os.Getenv(EnvTelegramChatID),
	}
}

// Validate validates the struct tags, the time zone and the live mode credentials.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid config", err)
	}

	loc, err := time.LoadLocation(c.Settings.Timezone)
	if err != nil {
		return errors.Wrapf(errors.ErrCodeInvalidConfiguration, err, "unknown timezone %q", c.Settings.Timezone)
	}

	c.location = loc

	if c.Mode == ModeLive && (c.Secrets.BinanceAPIKey == "" || c.Secrets.BinanceAPISecret == "") {
		return errors.Newf(errors.ErrCodeMissingCredentials,
			"live mode requires %s and %s", EnvBinanceAPIKey, EnvBinanceAPISecret)
	}

	return nil
}

// Location is the configured time zone. Valid after Validate.
func (c *Config) Location() *time.Location {
	if c.location == nil {
		return time.UTC
	}

	return c.location
}

// IsLive reports whether orders go to the exchange.
func (c *Config) IsLive() bool {
	return c.Mode == ModeLive
}

// Symbol returns the parameters for symbol, or defaults when it is not configured.
func (c *Config) Symbol(symbol string) SymbolConfig {
	if sc, ok := c.Symbols[symbol]; ok {
		return sc
	}

	sc := SymbolConfig{}
	sc.applyDefaults()

	return sc
}

// SymbolNames returns the configured symbols in sorted order.
func (c *Config) SymbolNames() []string {
	return sortedKeys(c.Symbols)
}

// MinNotionalOverrides maps each symbol with a positive min_notional to it.
func (c *Config) MinNotionalOverrides() map[string]decimal.Decimal {
	overrides := make(map[string]decimal.Decimal)

	for symbol, sc := range c.Symbols {
		if sc.MinNotional > 0 {
			overrides[symbol] = decimal.NewFromFloat(sc.MinNotional)
		}
	}

	return overrides
}
