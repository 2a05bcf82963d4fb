package engine_v1

import (
	"context"
	"sync"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-riskbot/internal/execution"
	"github.com/rxtech-lab/argo-riskbot/internal/ledger"
	"github.com/rxtech-lab/argo-riskbot/internal/logger"
	"github.com/rxtech-lab/argo-riskbot/internal/notify"
	"github.com/rxtech-lab/argo-riskbot/internal/risk"
	"github.com/rxtech-lab/argo-riskbot/internal/scheduler"
	"github.com/rxtech-lab/argo-riskbot/internal/strategy"
	"github.com/rxtech-lab/argo-riskbot/internal/trading/engine"
	"github.com/rxtech-lab/argo-riskbot/internal/types"
	"github.com/rxtech-lab/argo-riskbot/pkg/errors"
	"github.com/rxtech-lab/argo-riskbot/pkg/marketdata/provider"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Dependencies are the collaborators of a cycle. All are required.
type Dependencies struct {
	Ledger     *ledger.Ledger
	MarketData provider.Source
	Indicators engine.IndicatorEngine
	Strategy   strategy.Strategy
	Settings   strategy.SymbolSettings
	Executor   engine.Executor
	State      engine.StateStore
	Aggregator engine.PnLAggregator
	Notifier   notify.Sink
	Scheduler  *scheduler.Scheduler
	Clock      scheduler.Clock
}

// CycleEngineV1 applies decisions one at a time against a single ledger.
// Only market data and indicator work fan out.
type CycleEngineV1 struct {
	config    engine.Config
	deps      Dependencies
	callbacks engine.Callbacks
	log       *logger.Logger
	cycle     int
}

func NewCycleEngineV1(config engine.Config, deps Dependencies, callbacks engine.Callbacks, log *logger.Logger) (*CycleEngineV1, error) {
	e := &CycleEngineV1{config: config, deps: deps, callbacks: callbacks, log: log}
	if err := e.preRunCheck(); err != nil {
		return nil, err
	}

	if e.config.Concurrency < 1 {
		e.config.Concurrency = 1
	}

	return e, nil
}

func (e *CycleEngineV1) preRunCheck() error {
	d := e.deps

	switch {
	case d.Ledger == nil:
		return errors.New(errors.ErrCodeInvalidConfiguration, "ledger not set")
	case d.MarketData == nil:
		return errors.New(errors.ErrCodeInvalidConfiguration, "market data source not set")
	case d.Indicators == nil:
		return errors.New(errors.ErrCodeInvalidConfiguration, "indicator engine not set")
	case d.Strategy == nil || d.Settings == nil:
		return errors.New(errors.ErrCodeInvalidConfiguration, "strategy not set")
	case d.Executor == nil:
		return errors.New(errors.ErrCodeInvalidConfiguration, "executor not set")
	case d.State == nil:
		return errors.New(errors.ErrCodeInvalidConfiguration, "state store not set")
	case d.Aggregator == nil:
		return errors.New(errors.ErrCodeInvalidConfiguration, "aggregator not set")
	case d.Notifier == nil:
		return errors.New(errors.ErrCodeInvalidConfiguration, "notifier not set")
	case d.Clock == nil:
		return errors.New(errors.ErrCodeInvalidConfiguration, "clock not set")
	}

	if len(e.config.Symbols) == 0 {
		return errors.New(errors.ErrCodeInvalidConfiguration, "no symbols configured")
	}

	if !e.config.TradeAmountUSD.IsPositive() {
		return errors.New(errors.ErrCodeInvalidConfiguration, "trade amount must be positive")
	}

	return nil
}

// Run implements engine.TradingEngine.
func (e *CycleEngineV1) Run(ctx context.Context) error {
	if e.deps.Scheduler == nil {
		return errors.New(errors.ErrCodeInvalidConfiguration, "scheduler not set")
	}

	return e.deps.Scheduler.Run(ctx, func(ctx context.Context) error {
		_, err := e.RunCycle(ctx)

		return err
	})
}

// RunCycle implements engine.TradingEngine.
func (e *CycleEngineV1) RunCycle(ctx context.Context) (engine.CycleReport, error) {
	e.cycle++

	report := engine.CycleReport{
		Cycle:     e.cycle,
		StartedAt: e.deps.Clock.Now(),
		Daily:     optional.None[types.PnlSummary](),
		Hourly:    optional.None[types.PnlSummary](),
	}

	defer func() {
		report.FinishedAt = e.deps.Clock.Now()
		if e.callbacks.OnCycleComplete != nil {
			(*e.callbacks.OnCycleComplete)(report)
		}
	}()

	if err := ctx.Err(); err != nil {
		report.Stopped = true

		return report, err
	}

	if e.callbacks.OnCycleStart != nil {
		(*e.callbacks.OnCycleStart)(e.cycle, report.StartedAt)
	}

	e.log.Info("Cycle started", zap.Int("cycle", e.cycle), zap.Strings("symbols", e.config.Symbols))

	// Summaries close before this cycle trades, so a closed day never
	// sees the new day's fills or cash.
	e.rollSummaries(ctx, &report)

	report.Prices = e.fetchPrices(ctx)

	closedNow := e.applyRisk(ctx, report.Prices, &report)

	if err := ctx.Err(); err != nil {
		report.Stopped = true

		return report, err
	}

	indicators := e.computeIndicators(ctx)

	for _, symbol := range e.config.Symbols {
		if err := ctx.Err(); err != nil {
			report.Stopped = true

			return report, err
		}

		e.applySignal(ctx, symbol, report.Prices, indicators, closedNow, &report)
	}

	e.notifyStatus(ctx, report.Prices)

	e.log.Info("Cycle finished",
		zap.Int("cycle", e.cycle),
		zap.Int("opened", len(report.Opened)),
		zap.Int("closed", len(report.Closed)),
		zap.String("cash", e.deps.Ledger.CashBalance().String()),
	)

	return report, nil
}

func (e *CycleEngineV1) bounded(ctx context.Context) (context.Context, context.CancelFunc) {
	if e.config.MarketDataTimeout <= 0 {
		return ctx, func() {}
	}

	return context.WithTimeout(ctx, e.config.MarketDataTimeout)
}

func (e *CycleEngineV1) reportError(err error) {
	if e.callbacks.OnError != nil {
		(*e.callbacks.OnError)(err)
	}
}

// fetchPrices fetches the latest price of every configured symbol. Symbols
// whose fetch fails are absent from the result.
func (e *CycleEngineV1) fetchPrices(ctx context.Context) map[string]decimal.Decimal {
	var (
		mu     sync.Mutex
		prices = make(map[string]decimal.Decimal, len(e.config.Symbols))
		g      errgroup.Group
	)

	g.SetLimit(e.config.Concurrency)

	for _, symbol := range e.config.Symbols {
		g.Go(func() error {
			fetchCtx, cancel := e.bounded(ctx)
			defer cancel()

			price, err := e.deps.MarketData.LatestPrice(fetchCtx, symbol)
			if err == nil && !price.IsPositive() {
				err = errors.Newf(errors.ErrCodeMarketDataUnavailable, "non-positive price %s", price)
			}

			if err != nil {
				e.log.Warn("Price unavailable", zap.String("symbol", symbol), zap.Error(err))
				e.reportError(err)

				return nil
			}

			mu.Lock()
			prices[symbol] = price
			mu.Unlock()

			return nil
		})
	}

	_ = g.Wait()

	return prices
}

// applyRisk ratchets trailing stops, saves, then closes every position whose
// exit triggered. Returns the symbols closed.
func (e *CycleEngineV1) applyRisk(ctx context.Context, prices map[string]decimal.Decimal, report *engine.CycleReport) map[string]bool {
	l := e.deps.Ledger
	updates := risk.EvaluateAll(l.Positions(), prices, func(symbol string) decimal.Decimal {
		return e.deps.Settings.Symbol(symbol).TrailingStop()
	})

	for _, u := range updates {
		if !u.Evaluation.Ratcheted {
			continue
		}

		if err := l.Ratchet(u.Evaluation.Position); err != nil {
			e.log.Error("Failed to ratchet trailing stop", zap.String("symbol", u.Symbol), zap.Error(err))

			continue
		}

		report.Ratchets++
		e.log.Debug("Trailing stop raised",
			zap.String("symbol", u.Symbol),
			zap.String("trailing_stop", u.Evaluation.Position.TrailingStopPrice.String()),
		)
	}

	persistCtx := context.WithoutCancel(ctx)

	if report.Ratchets > 0 {
		e.save(persistCtx)
	}

	closed := make(map[string]bool)

	for _, u := range updates {
		decision, err := u.Evaluation.Decision.Take()
		if err != nil {
			continue
		}

		e.log.Info("Exit triggered",
			zap.String("symbol", u.Symbol),
			zap.String("reason", decision.Label()),
			zap.String("price", u.Price.String()),
			zap.String("level", decision.Level.String()),
		)

		if rec, ok := e.close(persistCtx, u.Symbol, u.Price, decision.Label(), report); ok {
			closed[rec.Symbol] = true
		}
	}

	return closed
}

// computeIndicators fetches candles and computes indicators per symbol.
// Symbols whose candles are unavailable are absent.
func (e *CycleEngineV1) computeIndicators(ctx context.Context) map[string]types.IndicatorValues {
	var (
		mu      sync.Mutex
		results = make(map[string]types.IndicatorValues, len(e.config.Symbols))
		g       errgroup.Group
	)

	g.SetLimit(e.config.Concurrency)

	for _, symbol := range e.config.Symbols {
		g.Go(func() error {
			fetchCtx, cancel := e.bounded(ctx)
			defer cancel()

			candles, err := e.deps.MarketData.Candles(fetchCtx, symbol, e.config.Timeframe, e.config.Lookback)
			if err != nil {
				e.log.Warn("Candles unavailable", zap.String("symbol", symbol), zap.Error(err))
				e.reportError(err)

				return nil
			}

			values := e.deps.Indicators.Compute(candles)

			mu.Lock()
			results[symbol] = values
			mu.Unlock()

			return nil
		})
	}

	_ = g.Wait()

	return results
}

// applySignal runs the strategy for one symbol and executes its intent.
// A symbol closed by a risk exit in this cycle is not re-entered until the
// next cycle.
func (e *CycleEngineV1) applySignal(
	ctx context.Context,
	symbol string,
	prices map[string]decimal.Decimal,
	indicators map[string]types.IndicatorValues,
	closedNow map[string]bool,
	report *engine.CycleReport,
) {
	values, ok := indicators[symbol]
	if !ok {
		return
	}

	price, ok := prices[symbol]
	if !ok {
		e.log.Debug("Skipping signal without price", zap.String("symbol", symbol))

		return
	}

	l := e.deps.Ledger
	signal := e.deps.Strategy.Decide(symbol, values, l.HasPosition(symbol))
	report.Signals = append(report.Signals, signal)

	e.deps.Notifier.Send(ctx, notify.Message{Text: notify.FormatSignalSummary(notify.SignalSummary{
		Symbol:     symbol,
		Timeframe:  e.config.Timeframe,
		Price:      price,
		Indicators: values,
		Cash:       l.CashBalance(),
		Signal:     signal,
	})})

	persistCtx := context.WithoutCancel(ctx)

	switch signal.Intent {
	case types.IntentEnter:
		if closedNow[symbol] {
			e.log.Info("Skipping entry after exit in the same cycle", zap.String("symbol", symbol))

			return
		}

		e.open(persistCtx, symbol, price, signal.Reason, values, report)
	case types.IntentExit:
		e.close(persistCtx, symbol, price, signal.Reason, report)
	case types.IntentNone:
	}
}

func (e *CycleEngineV1) open(ctx context.Context, symbol string, price decimal.Decimal, reason string, values types.IndicatorValues, report *engine.CycleReport) {
	sc := e.deps.Settings.Symbol(symbol)
	l := e.deps.Ledger

	pos, rec, err := e.deps.Executor.OpenLong(ctx, l, execution.OpenRequest{
		Symbol:      symbol,
		NotionalUSD: e.config.TradeAmountUSD,
		Price:       price,
		SLPct:       sc.StopLoss(),
		TPPct:       sc.TakeProfit(),
		TSLPct:      sc.TrailingStop(),
		Reason:      reason,
		Indicators:  values,
	})
	if err != nil {
		e.rejected(ctx, symbol, types.PurchaseTypeBuy, err, report)

		return
	}

	e.recordTrade(ctx, rec)
	report.Opened = append(report.Opened, rec)

	e.deps.Notifier.Send(ctx, notify.Message{Text: notify.FormatOpened(rec, pos, l.CashBalance())})
}

func (e *CycleEngineV1) close(ctx context.Context, symbol string, price decimal.Decimal, reason string, report *engine.CycleReport) (types.TradeRecord, bool) {
	l := e.deps.Ledger

	rec, err := e.deps.Executor.CloseLong(ctx, l, symbol, price, reason)
	if err != nil {
		e.rejected(ctx, symbol, types.PurchaseTypeSell, err, report)

		return types.TradeRecord{}, false
	}

	e.recordTrade(ctx, rec)
	report.Closed = append(report.Closed, rec)

	e.deps.Notifier.Send(ctx, notify.Message{Text: notify.FormatClosed(rec, l.CashBalance())})

	return rec, true
}

// recordTrade saves the ledger, appends the trade and feeds the aggregator.
// Persistence failures leave the in-memory mutation standing.
func (e *CycleEngineV1) recordTrade(ctx context.Context, rec types.TradeRecord) {
	e.save(ctx)

	if err := e.deps.State.AppendTrade(ctx, rec); err != nil {
		e.reportError(err)
	}

	e.deps.Aggregator.Record(rec)

	if e.callbacks.OnTrade != nil {
		(*e.callbacks.OnTrade)(rec)
	}
}

func (e *CycleEngineV1) save(ctx context.Context) {
	if err := e.deps.State.Save(ctx, e.deps.Ledger); err != nil {
		e.log.Error("Ledger not saved; next save repairs the snapshot", zap.Error(err))
		e.reportError(err)
	}
}

func (e *CycleEngineV1) rejected(ctx context.Context, symbol string, side types.PurchaseType, err error, report *engine.CycleReport) {
	report.Rejected = append(report.Rejected, err)

	if errors.IsValidation(err) {
		e.log.Warn("Trade rejected", zap.String("symbol", symbol), zap.String("side", string(side)), zap.Error(err))
	} else {
		e.log.Error("Trade failed", zap.String("symbol", symbol), zap.String("side", string(side)), zap.Error(err))
		e.reportError(err)
	}

	if e.callbacks.OnTradeFailed != nil {
		(*e.callbacks.OnTradeFailed)(symbol, side, err)
	}

	// A missing position is a routine no-op for exit signals; only the log records it.
	if errors.HasCode(err, errors.ErrCodeNoOpenPosition) {
		return
	}

	e.deps.Notifier.Send(ctx, notify.Message{Text: notify.FormatFailed(symbol, side, err)})
}

func (e *CycleEngineV1) rollSummaries(ctx context.Context, report *engine.CycleReport) {
	now := e.deps.Clock.Now()
	balance := e.deps.Ledger.CashBalance()

	daily, err := e.deps.Aggregator.RollDaily(ctx, now, balance)
	if err != nil {
		e.log.Warn("Daily summary not written", zap.Error(err))
		e.reportError(err)
	}

	if s, err := daily.Take(); err == nil {
		report.Daily = daily
		e.deps.Notifier.Send(ctx, notify.Message{Text: notify.FormatDailySummary(s)})
	}

	hourly, err := e.deps.Aggregator.RollHourly(ctx, now, balance)
	if err != nil {
		e.log.Warn("Hourly summary not written", zap.Error(err))
		e.reportError(err)
	}

	if s, err := hourly.Take(); err == nil {
		report.Hourly = hourly
		e.log.Info("Hourly summary", zap.String("realized_pnl", s.RealizedPnL.String()), zap.Int("trades", s.TradeCount))
	}
}

func (e *CycleEngineV1) notifyStatus(ctx context.Context, prices map[string]decimal.Decimal) {
	l := e.deps.Ledger
	valuation := l.Value(prices)

	positions := l.Positions()
	lines := make([]notify.PositionLine, 0, len(positions))

	for _, pos := range positions {
		line := notify.PositionLine{Position: pos, Price: optional.None[decimal.Decimal]()}
		if price, ok := prices[pos.Symbol]; ok {
			line.Price = optional.Some(price)
		}

		lines = append(lines, line)
	}

	e.deps.Notifier.Send(ctx, notify.Message{Text: notify.FormatStatus(notify.StatusReport{
		Live:          e.config.Live,
		Cash:          l.CashBalance(),
		UnrealizedPnL: valuation.UnrealizedPnL,
		Equity:        valuation.Equity,
		RealizedPnL:   l.RealizedPnL(),
		Positions:     lines,
	})})
}

var _ engine.TradingEngine = (*CycleEngineV1)(nil)
