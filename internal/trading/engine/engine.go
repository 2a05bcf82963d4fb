package engine

import (
	"context"
	"time"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-riskbot/internal/execution"
	"github.com/rxtech-lab/argo-riskbot/internal/ledger"
	"github.com/rxtech-lab/argo-riskbot/internal/types"
	"github.com/shopspring/decimal"
)

// Executor opens and closes positions against the ledger.
// *execution.Gateway implements it.
type Executor interface {
	OpenLong(ctx context.Context, l *ledger.Ledger, req execution.OpenRequest) (types.Position, types.TradeRecord, error)
	CloseLong(ctx context.Context, l *ledger.Ledger, symbol string, price decimal.Decimal, reason string) (types.TradeRecord, error)
}

// StateStore persists the ledger and the trade log.
// *persistence.Adapter implements it.
type StateStore interface {
	Save(ctx context.Context, l *ledger.Ledger) error
	AppendTrade(ctx context.Context, record types.TradeRecord) error
}

// PnLAggregator keeps realized PnL statistics.
// *aggregator.Aggregator implements it.
type PnLAggregator interface {
	Record(trade types.TradeRecord)
	RollDaily(ctx context.Context, now time.Time, balance decimal.Decimal) (optional.Option[types.PnlSummary], error)
	RollHourly(ctx context.Context, now time.Time, balance decimal.Decimal) (optional.Option[types.PnlSummary], error)
}

// IndicatorEngine computes the configured indicators over a candle series.
// *indicator.Engine implements it.
type IndicatorEngine interface {
	Compute(candles []types.Candle) types.IndicatorValues
}

// Lifecycle callbacks. All fields of Callbacks are optional.

// OnCycleStartCallback is called before the first fetch of a cycle.
type OnCycleStartCallback func(cycle int, startedAt time.Time)

// OnTradeCallback is called after a trade has been applied to the ledger.
type OnTradeCallback func(record types.TradeRecord)

// OnTradeFailedCallback is called when an open or close attempt is rejected.
type OnTradeFailedCallback func(symbol string, side types.PurchaseType, err error)

// OnErrorCallback is called for non-fatal errors such as a failed fetch or save.
type OnErrorCallback func(err error)

// OnCycleCompleteCallback is called with the cycle report, including for
// cycles cut short by a stop request.
type OnCycleCompleteCallback func(report CycleReport)

type Callbacks struct {
	OnCycleStart    *OnCycleStartCallback
	OnTrade         *OnTradeCallback
	OnTradeFailed   *OnTradeFailedCallback
	OnError         *OnErrorCallback
	OnCycleComplete *OnCycleCompleteCallback
}

// Config holds the engine's per-cycle parameters.
type Config struct {
	Symbols   []string
	Timeframe string
	// Lookback is the number of candles fetched per symbol.
	Lookback       int
	TradeAmountUSD decimal.Decimal
	// Concurrency bounds the per-symbol fan-out.
	Concurrency       int
	MarketDataTimeout time.Duration
	Live              bool
}

// CycleReport describes what one cycle did.
type CycleReport struct {
	Cycle      int
	StartedAt  time.Time
	FinishedAt time.Time
	// Prices holds the prices fetched this cycle; symbols whose fetch failed are absent.
	Prices   map[string]decimal.Decimal
	Ratchets int
	Closed   []types.TradeRecord
	Opened   []types.TradeRecord
	Rejected []error
	Signals  []types.Signal
	Daily    optional.Option[types.PnlSummary]
	Hourly   optional.Option[types.PnlSummary]
	Stopped  bool
}

// TradingEngine runs trading cycles over a single ledger.
type TradingEngine interface {
	// RunCycle performs one full cycle: prices, risk exits, signals, entries,
	// aggregation and notifications. It returns ctx.Err() when a stop request
	// cut the cycle short; work already applied is saved.
	RunCycle(ctx context.Context) (CycleReport, error)

	// Run executes cycles on the scheduler until ctx is cancelled.
	Run(ctx context.Context) error
}
