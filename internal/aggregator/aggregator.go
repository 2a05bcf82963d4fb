// Package aggregator rolls the trade log up into daily and hourly realized
// PnL summaries.
package aggregator

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-riskbot/internal/logger"
	"github.com/rxtech-lab/argo-riskbot/internal/types"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const dateLayout = "2006-01-02"

// TradeLog is the slice of the persistence adapter the aggregator needs.
type TradeLog interface {
	RecentTrades(ctx context.Context, limit int) ([]types.TradeRecord, error)
	PutDailySummary(ctx context.Context, s types.PnlSummary) error
	AppendHourlySummary(ctx context.Context, s types.PnlSummary) error
}

// Window is a half-open time range unless noted otherwise.
type Window struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t lies in [Start, End).
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

// DayWindow is the calendar day containing t in loc.
func DayWindow(t time.Time, loc *time.Location) Window {
	local := t.In(loc)
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)

	return Window{Start: start, End: start.AddDate(0, 0, 1)}
}

type Aggregator struct {
	tradeLog    TradeLog
	loc         *time.Location
	logger      *logger.Logger
	hourlyLimit int
	dailyLimit  int

	mu          sync.Mutex
	currentDate string
	lastHourly  time.Time
	daily       Accumulator
	cumulative  Accumulator
	// ahead holds trades stamped after currentDate, keyed by their own date,
	// until the rollover that opens that day.
	ahead map[string]Accumulator
}

type Option func(*Aggregator)

// WithQueryLimits caps how many recent trades each roll inspects.
func WithQueryLimits(hourly, daily int) Option {
	return func(a *Aggregator) {
		if hourly > 0 {
			a.hourlyLimit = hourly
		}

		if daily > 0 {
			a.dailyLimit = daily
		}
	}
}

// New creates an aggregator whose current day and hourly window start at now.
func New(tradeLog TradeLog, loc *time.Location, log *logger.Logger, now time.Time, opts ...Option) *Aggregator {
	if loc == nil {
		loc = time.UTC
	}

	a := &Aggregator{
		tradeLog:    tradeLog,
		loc:         loc,
		logger:      log,
		hourlyLimit: 200,
		dailyLimit:  1000,
		currentDate: now.In(loc).Format(dateLayout),
		lastHourly:  now,
		ahead:       make(map[string]Accumulator),
	}

	for _, opt := range opts {
		opt(a)
	}

	return a
}

// Record adds a trade to the session's statistics and to the statistics of
// the day it is stamped with. A trade dated after the current day is held
// until RollDaily opens that day, so it is never booked into the day being
// closed.
func (a *Aggregator) Record(trade types.TradeRecord) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.cumulative.Add(trade)

	date := a.currentDate
	if !trade.Timestamp.IsZero() {
		date = trade.Timestamp.In(a.loc).Format(dateLayout)
	}

	if date > a.currentDate {
		acc := a.ahead[date]
		acc.Add(trade)
		a.ahead[date] = acc
	} else {
		a.daily.Add(trade)
	}

	a.logger.Debug("Trade recorded",
		zap.String("trade_id", trade.ID),
		zap.String("pnl", trade.RealizedPnL.String()),
		zap.Int("trades_today", a.daily.TradeCount),
	)
}

// Today returns the statistics accumulated since the last daily rollover.
func (a *Aggregator) Today() Accumulator {
	a.mu.Lock()
	defer a.mu.Unlock()

	return a.daily
}

// Session returns the statistics accumulated since the process started.
func (a *Aggregator) Session() Accumulator {
	a.mu.Lock()
	defer a.mu.Unlock()

	return a.cumulative
}

// CurrentDate is the calendar day currently accumulating.
func (a *Aggregator) CurrentDate() string {
	a.mu.Lock()
	defer a.mu.Unlock()

	return a.currentDate
}

// RollDaily emits the summary of the day that just closed, at most once per
// day. Calls within the same day return None. A failed write leaves the day
// open so the next call retries it.
func (a *Aggregator) RollDaily(ctx context.Context, now time.Time, balance decimal.Decimal) (optional.Option[types.PnlSummary], error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	today := now.In(a.loc).Format(dateLayout)
	if today == a.currentDate {
		return optional.None[types.PnlSummary](), nil
	}

	closed, err := time.ParseInLocation(dateLayout, a.currentDate, a.loc)
	if err != nil {
		closed = now.In(a.loc).AddDate(0, 0, -1)
	}

	window := DayWindow(closed, a.loc)

	acc, err := a.windowStats(ctx, window, a.dailyLimit)
	if err != nil {
		a.logger.Warn("Falling back to in-memory daily statistics", zap.String("date", a.currentDate), zap.Error(err))
		acc = a.daily
	}

	summary := acc.Summary(types.SummaryKindDaily, window, balance)

	if err := a.tradeLog.PutDailySummary(ctx, summary); err != nil {
		return optional.None[types.PnlSummary](), err
	}

	a.logger.Info("Daily summary written",
		zap.String("date", a.currentDate),
		zap.String("realized_pnl", summary.RealizedPnL.String()),
		zap.Int("trades", summary.TradeCount),
	)

	a.currentDate = today
	a.daily = a.ahead[today]

	for date := range a.ahead {
		if date <= today {
			delete(a.ahead, date)
		}
	}

	return optional.Some(summary), nil
}

// RollHourly summarises trades stamped within [now-1h, now] once at least
// an hour has passed since the previous hourly roll.
func (a *Aggregator) RollHourly(ctx context.Context, now time.Time, balance decimal.Decimal) (optional.Option[types.PnlSummary], error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if now.Sub(a.lastHourly) < time.Hour {
		return optional.None[types.PnlSummary](), nil
	}

	// inclusive of now
	window := Window{Start: now.Add(-time.Hour), End: now.Add(time.Nanosecond)}

	acc, err := a.windowStats(ctx, window, a.hourlyLimit)
	if err != nil {
		return optional.None[types.PnlSummary](), err
	}

	summary := acc.Summary(types.SummaryKindHourly, Window{Start: window.Start, End: now}, balance)

	if err := a.tradeLog.AppendHourlySummary(ctx, summary); err != nil {
		return optional.None[types.PnlSummary](), err
	}

	a.logger.Info("Hourly summary written",
		zap.String("realized_pnl", summary.RealizedPnL.String()),
		zap.Int("trades", summary.TradeCount),
	)

	a.lastHourly = now

	return optional.Some(summary), nil
}

// windowStats filters the most recent trades by their own timestamp, so
// backfilled or out-of-order records land in the right window.
func (a *Aggregator) windowStats(ctx context.Context, window Window, limit int) (Accumulator, error) {
	trades, err := a.tradeLog.RecentTrades(ctx, limit)
	if err != nil {
		return Accumulator{}, err
	}

	slices.SortFunc(trades, func(x, y types.TradeRecord) int {
		return x.Timestamp.Compare(y.Timestamp)
	})

	var acc Accumulator

	for _, t := range trades {
		if window.Contains(t.Timestamp) {
			acc.Add(t)
		}
	}

	return acc, nil
}
