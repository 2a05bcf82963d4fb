package main

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/rxtech-lab/argo-riskbot/internal/config"
	"github.com/rxtech-lab/argo-riskbot/internal/ledger"
	"github.com/rxtech-lab/argo-riskbot/internal/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

type CommandTestSuite struct {
	suite.Suite
	dir string
}

func TestCommandSuite(t *testing.T) {
	suite.Run(t, new(CommandTestSuite))
}

func (suite *CommandTestSuite) SetupTest() {
	suite.dir = suite.T().TempDir()
}

func (suite *CommandTestSuite) config(extra string) *config.Config {
	cfg, err := config.Parse([]byte(`
symbols:
  BTCUSDT: {}
log_level: error
store:
  driver: memory
` + extra))
	suite.Require().NoError(err)
	suite.Require().NoError(cfg.Validate())

	return cfg
}

func (suite *CommandTestSuite) trade(symbol string, side types.PurchaseType, price, pnl string, at time.Time) types.TradeRecord {
	return types.TradeRecord{
		ID:          symbol + string(side) + at.Format(time.RFC3339),
		Timestamp:   at,
		Symbol:      symbol,
		Side:        side,
		Quantity:    d("2"),
		Price:       d(price),
		EntryPrice:  d("50"),
		RealizedPnL: d(pnl),
		Reason:      "RSI_SELL_SIGNAL",
	}
}

func (suite *CommandTestSuite) TestOpenAppWithMemoryStore() {
	a, err := openApp(suite.config(""))
	suite.Require().NoError(err)
	defer a.Close()

	suite.Nil(a.exporter)

	l, fresh, err := a.adapter.Load(context.Background(), d("1000"))
	suite.Require().NoError(err)
	suite.True(fresh)
	suite.True(d("1000").Equal(l.CashBalance()))
}

func (suite *CommandTestSuite) TestOpenAppExportsTrades() {
	export := filepath.Join(suite.dir, "trades.parquet")
	a, err := openApp(suite.config("  trade_export_path: " + export + "\n"))
	suite.Require().NoError(err)
	defer a.Close()

	suite.Require().NotNil(a.exporter)

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	suite.Require().NoError(a.adapter.AppendTrade(context.Background(), suite.trade("BTCUSDT", types.PurchaseTypeBuy, "50", "0", now)))

	count, err := a.exporter.Count()
	suite.Require().NoError(err)
	suite.Equal(1, count)
	suite.FileExists(export)
}

func (suite *CommandTestSuite) TestStatusText() {
	l := ledger.New(d("1000"))
	opened := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	suite.Require().NoError(l.Open(types.NewLongPosition("BTCUSDT", d("2"), d("50"), d("0.02"), d("0.04"), d("0.01"), opened)))

	priced := statusText(l, map[string]decimal.Decimal{"BTCUSDT": d("51")}, false)
	suite.Contains(priced, "Cash: 900.00 USDT")
	suite.Contains(priced, "Effective balance: 1002.00 USDT")
	suite.Contains(priced, "current 51 PnL 2.00 USDT")

	unpriced := statusText(l, map[string]decimal.Decimal{}, true)
	suite.Contains(unpriced, "(LIVE)")
	suite.Contains(unpriced, "Effective balance: 1000.00 USDT")
	suite.Contains(unpriced, "current price not available")

	suite.Equal([]string{"BTCUSDT"}, positionSymbols(l))
}

func (suite *CommandTestSuite) TestWriteSummary() {
	a, err := openApp(suite.config(""))
	suite.Require().NoError(err)
	defer a.Close()

	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	suite.Require().NoError(a.adapter.AppendTrade(ctx, suite.trade("BTCUSDT", types.PurchaseTypeSell, "55", "10", now)))

	var out bytes.Buffer
	suite.Require().NoError(writeSummary(ctx, &out, a.adapter, 10, "2026-02-28"))

	text := out.String()
	suite.Contains(text, "Recent trades (1)")
	suite.Contains(text, "SELL BTCUSDT")
	suite.Contains(text, "pnl 10.00 RSI_SELL_SIGNAL")
	suite.Contains(text, "Hourly summaries (0)")
	suite.Contains(text, "No daily summary for 2026-02-28")

	summary := types.PnlSummary{
		Kind:               types.SummaryKindDaily,
		WindowStart:        time.Date(2026, 2, 28, 0, 0, 0, 0, time.UTC),
		WindowEnd:          time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		RealizedPnL:        d("10"),
		TradeCount:         1,
		Wins:               1,
		BalanceAtWindowEnd: d("1010"),
	}
	suite.Require().NoError(a.adapter.PutDailySummary(ctx, summary))

	out.Reset()
	suite.Require().NoError(writeSummary(ctx, &out, a.adapter, 10, "2026-02-28"))
	suite.Contains(out.String(), "Daily Summary 2026-02-28")
}

func (suite *CommandTestSuite) TestSchemaCommand() {
	var out bytes.Buffer

	cmd := newCommand()
	cmd.Writer = &out

	suite.Require().NoError(cmd.Run(context.Background(), []string{"argo-riskbot", "schema"}))
	suite.Contains(out.String(), `"symbols"`)
	suite.Contains(out.String(), `"trading_interval"`)
}

func (suite *CommandTestSuite) TestMissingConfigFails() {
	cmd := newCommand()
	cmd.Writer = &bytes.Buffer{}
	cmd.ErrWriter = &bytes.Buffer{}

	err := cmd.Run(context.Background(), []string{"argo-riskbot", "--config", filepath.Join(suite.dir, "missing.yaml"), "status"})
	suite.Error(err)
}
