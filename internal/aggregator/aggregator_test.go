package aggregator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rxtech-lab/argo-riskbot/internal/logger"
	"github.com/rxtech-lab/argo-riskbot/internal/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type fakeTradeLog struct {
	trades   []types.TradeRecord
	daily    []types.PnlSummary
	hourly   []types.PnlSummary
	queryErr error
	putErr   error
	limits   []int
}

func (f *fakeTradeLog) RecentTrades(_ context.Context, limit int) ([]types.TradeRecord, error) {
	f.limits = append(f.limits, limit)
	if f.queryErr != nil {
		return nil, f.queryErr
	}

	out := make([]types.TradeRecord, len(f.trades))
	copy(out, f.trades)

	return out, nil
}

func (f *fakeTradeLog) PutDailySummary(_ context.Context, s types.PnlSummary) error {
	if f.putErr != nil {
		return f.putErr
	}

	f.daily = append(f.daily, s)

	return nil
}

func (f *fakeTradeLog) AppendHourlySummary(_ context.Context, s types.PnlSummary) error {
	if f.putErr != nil {
		return f.putErr
	}

	f.hourly = append(f.hourly, s)

	return nil
}

type AggregatorTestSuite struct {
	suite.Suite
	tradeLog *fakeTradeLog
	loc      *time.Location
	start    time.Time
}

func TestAggregatorSuite(t *testing.T) {
	suite.Run(t, new(AggregatorTestSuite))
}

func (suite *AggregatorTestSuite) SetupTest() {
	suite.tradeLog = &fakeTradeLog{}
	suite.loc = time.FixedZone("UTC+8", 8*3600)
	suite.start = time.Date(2026, 7, 1, 9, 0, 0, 0, suite.loc)
}

func (suite *AggregatorTestSuite) newAggregator() *Aggregator {
	return New(suite.tradeLog, suite.loc, logger.NewNopLogger(), suite.start, WithQueryLimits(50, 500))
}

func sell(id string, at time.Time, pnl string) types.TradeRecord {
	return types.TradeRecord{
		ID:          id,
		Timestamp:   at,
		Side:        types.PurchaseTypeSell,
		RealizedPnL: decimal.RequireFromString(pnl),
	}
}

func buy(id string, at time.Time) types.TradeRecord {
	return types.TradeRecord{ID: id, Timestamp: at, Side: types.PurchaseTypeBuy, RealizedPnL: decimal.Zero}
}

func (suite *AggregatorTestSuite) TestRollDailyWithinSameDayIsNoop() {
	agg := suite.newAggregator()

	got, err := agg.RollDaily(context.Background(), suite.start.Add(3*time.Hour), decimal.NewFromInt(1000))
	suite.Require().NoError(err)
	suite.True(got.IsNone())
	suite.Empty(suite.tradeLog.daily)
}

func (suite *AggregatorTestSuite) TestRollDailyIsIdempotent() {
	agg := suite.newAggregator()
	day := suite.start

	suite.tradeLog.trades = []types.TradeRecord{
		sell("late", day.Add(10*time.Hour), "5"),
		buy("open", day.Add(time.Hour)),
		sell("early", day.Add(2*time.Hour), "-2"),
		// next day, must not count
		sell("tomorrow", day.Add(16*time.Hour), "100"),
		// previous day, must not count
		sell("yesterday", day.Add(-10*time.Hour), "100"),
	}

	next := time.Date(2026, 7, 2, 0, 5, 0, 0, suite.loc)

	got, err := agg.RollDaily(context.Background(), next, decimal.NewFromInt(1003))
	suite.Require().NoError(err)
	suite.Require().True(got.IsSome())

	summary := got.Unwrap()
	suite.Equal(types.SummaryKindDaily, summary.Kind)
	suite.True(summary.WindowStart.Equal(time.Date(2026, 7, 1, 0, 0, 0, 0, suite.loc)))
	suite.True(summary.WindowEnd.Equal(time.Date(2026, 7, 2, 0, 0, 0, 0, suite.loc)))
	suite.True(decimal.NewFromInt(3).Equal(summary.RealizedPnL))
	suite.Equal(3, summary.TradeCount)
	suite.Equal(1, summary.Wins)
	suite.Equal(1, summary.Losses)
	suite.True(decimal.NewFromInt(1003).Equal(summary.BalanceAtWindowEnd))

	again, err := agg.RollDaily(context.Background(), next.Add(time.Hour), decimal.NewFromInt(1003))
	suite.Require().NoError(err)
	suite.True(again.IsNone())
	suite.Len(suite.tradeLog.daily, 1)
	suite.Equal("2026-07-02", agg.CurrentDate())
	suite.Equal([]int{500}, suite.tradeLog.limits)
}

func (suite *AggregatorTestSuite) TestRollDailyResetsAccumulatorOnlyOnRollover() {
	agg := suite.newAggregator()

	agg.Record(sell("a", suite.start.Add(time.Hour), "4"))
	agg.Record(sell("b", suite.start.Add(2*time.Hour), "-1"))

	_, err := agg.RollDaily(context.Background(), suite.start.Add(5*time.Hour), decimal.Zero)
	suite.Require().NoError(err)
	suite.Equal(2, agg.Today().TradeCount)

	_, err = agg.RollDaily(context.Background(), suite.start.Add(20*time.Hour), decimal.Zero)
	suite.Require().NoError(err)
	suite.Equal(0, agg.Today().TradeCount)
	suite.Equal(2, agg.Session().TradeCount)
	suite.True(decimal.NewFromInt(3).Equal(agg.Session().RealizedPnL))
}

func (suite *AggregatorTestSuite) TestRollDailyFallsBackToMemoryWhenQueryFails() {
	agg := suite.newAggregator()
	agg.Record(sell("a", suite.start.Add(time.Hour), "7"))
	suite.tradeLog.queryErr = errors.New("down")

	got, err := agg.RollDaily(context.Background(), suite.start.Add(24*time.Hour), decimal.Zero)
	suite.Require().NoError(err)
	suite.True(decimal.NewFromInt(7).Equal(got.Unwrap().RealizedPnL))
}

func (suite *AggregatorTestSuite) TestNextDayTradeSurvivesRollover() {
	agg := suite.newAggregator()
	nextDay := time.Date(2026, 7, 2, 0, 10, 0, 0, suite.loc)

	agg.Record(sell("yesterday", suite.start.Add(time.Hour), "5"))
	agg.Record(sell("today", nextDay, "7"))
	suite.Equal(1, agg.Today().TradeCount)

	suite.tradeLog.trades = []types.TradeRecord{
		sell("yesterday", suite.start.Add(time.Hour), "5"),
		sell("today", nextDay, "7"),
	}

	got, err := agg.RollDaily(context.Background(), nextDay.Add(time.Minute), decimal.Zero)
	suite.Require().NoError(err)
	suite.Require().True(got.IsSome())
	suite.Equal(1, got.Unwrap().TradeCount)

	today := agg.Today()
	suite.Equal(1, today.TradeCount)
	suite.True(decimal.NewFromInt(7).Equal(today.RealizedPnL))
	suite.Equal(2, agg.Session().TradeCount)
}

func (suite *AggregatorTestSuite) TestMemoryFallbackExcludesNextDayTrades() {
	agg := suite.newAggregator()
	nextDay := time.Date(2026, 7, 2, 0, 10, 0, 0, suite.loc)

	agg.Record(sell("yesterday", suite.start.Add(time.Hour), "5"))
	agg.Record(sell("today", nextDay, "7"))
	suite.tradeLog.queryErr = errors.New("down")

	got, err := agg.RollDaily(context.Background(), nextDay.Add(time.Minute), decimal.Zero)
	suite.Require().NoError(err)
	suite.Require().True(got.IsSome())

	summary := got.Unwrap()
	suite.Equal(1, summary.TradeCount)
	suite.True(decimal.NewFromInt(5).Equal(summary.RealizedPnL))
	suite.Equal(1, agg.Today().TradeCount)
}

func (suite *AggregatorTestSuite) TestRollDailyRetriesAfterWriteFailure() {
	agg := suite.newAggregator()
	suite.tradeLog.putErr = errors.New("down")

	next := suite.start.Add(24 * time.Hour)

	_, err := agg.RollDaily(context.Background(), next, decimal.Zero)
	suite.Error(err)
	suite.Equal("2026-07-01", agg.CurrentDate())

	suite.tradeLog.putErr = nil

	got, err := agg.RollDaily(context.Background(), next.Add(time.Minute), decimal.Zero)
	suite.Require().NoError(err)
	suite.True(got.IsSome())
	suite.Len(suite.tradeLog.daily, 1)
}

func (suite *AggregatorTestSuite) TestRollHourlyWaitsForAnHour() {
	agg := suite.newAggregator()

	got, err := agg.RollHourly(context.Background(), suite.start.Add(59*time.Minute), decimal.Zero)
	suite.Require().NoError(err)
	suite.True(got.IsNone())
	suite.Empty(suite.tradeLog.limits)
}

func (suite *AggregatorTestSuite) TestRollHourlyFiltersByOwnTimestamp() {
	agg := suite.newAggregator()
	now := suite.start.Add(2 * time.Hour)

	// storage order deliberately differs from timestamp order
	suite.tradeLog.trades = []types.TradeRecord{
		sell("backfilled", now.Add(-30*time.Minute), "2"),
		sell("old", now.Add(-61*time.Minute), "50"),
		sell("edge-start", now.Add(-time.Hour), "1"),
		sell("edge-end", now, "1.5"),
		buy("entry", now.Add(-10*time.Minute)),
		sell("future", now.Add(time.Minute), "9"),
	}

	got, err := agg.RollHourly(context.Background(), now, decimal.NewFromInt(900))
	suite.Require().NoError(err)
	suite.Require().True(got.IsSome())

	summary := got.Unwrap()
	suite.Equal(types.SummaryKindHourly, summary.Kind)
	suite.Equal(4, summary.TradeCount)
	suite.True(decimal.RequireFromString("4.5").Equal(summary.RealizedPnL))
	suite.True(summary.WindowEnd.Equal(now))
	suite.Equal([]int{50}, suite.tradeLog.limits)

	// gated again until another hour passes
	got, err = agg.RollHourly(context.Background(), now.Add(30*time.Minute), decimal.Zero)
	suite.Require().NoError(err)
	suite.True(got.IsNone())
	suite.Len(suite.tradeLog.hourly, 1)
}

func (suite *AggregatorTestSuite) TestRollHourlyQueryFailureKeepsWindowOpen() {
	agg := suite.newAggregator()
	suite.tradeLog.queryErr = errors.New("down")

	_, err := agg.RollHourly(context.Background(), suite.start.Add(time.Hour), decimal.Zero)
	suite.Error(err)

	suite.tradeLog.queryErr = nil

	got, err := agg.RollHourly(context.Background(), suite.start.Add(61*time.Minute), decimal.Zero)
	suite.Require().NoError(err)
	suite.True(got.IsSome())
}

func (suite *AggregatorTestSuite) TestAccumulatorDrawdown() {
	var acc Accumulator

	for _, pnl := range []string{"10", "-4", "-3", "5"} {
		acc.Add(sell("x", suite.start, pnl))
	}

	suite.True(decimal.NewFromInt(8).Equal(acc.RealizedPnL))
	suite.True(decimal.NewFromInt(10).Equal(acc.PeakPnL))
	suite.True(decimal.NewFromInt(7).Equal(acc.MaxDrawdown))
	suite.True(decimal.NewFromInt(10).Equal(acc.MaxProfit))
	suite.True(decimal.NewFromInt(-4).Equal(acc.MaxLoss))
	suite.Equal(2, acc.Wins)
	suite.Equal(2, acc.Losses)
}

func TestDayWindow(t *testing.T) {
	loc := time.FixedZone("UTC-5", -5*3600)
	w := DayWindow(time.Date(2026, 3, 10, 2, 0, 0, 0, time.UTC), loc)

	if !w.Start.Equal(time.Date(2026, 3, 9, 0, 0, 0, 0, loc)) {
		t.Fatalf("unexpected start %s", w.Start)
	}

	if !w.Contains(time.Date(2026, 3, 9, 23, 59, 0, 0, loc)) || w.Contains(w.End) {
		t.Fatal("window bounds are wrong")
	}
}
