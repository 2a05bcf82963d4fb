package notify_test

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-riskbot/internal/logger"
	"github.com/rxtech-lab/argo-riskbot/internal/notify"
	"github.com/rxtech-lab/argo-riskbot/internal/types"
	"github.com/rxtech-lab/argo-riskbot/mocks"
	argoerrors "github.com/rxtech-lab/argo-riskbot/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

type fakeTelegram struct {
	mu       sync.Mutex
	messages []*bot.SendMessageParams
	photos   []*bot.SendPhotoParams
	uploads  [][]byte
	err      error
}

func (f *fakeTelegram) SendMessage(_ context.Context, params *bot.SendMessageParams) (*models.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.err != nil {
		return nil, f.err
	}

	f.messages = append(f.messages, params)

	return &models.Message{ID: len(f.messages)}, nil
}

func (f *fakeTelegram) SendPhoto(_ context.Context, params *bot.SendPhotoParams) (*models.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.err != nil {
		return nil, f.err
	}

	if upload, ok := params.Photo.(*models.InputFileUpload); ok {
		data, _ := io.ReadAll(upload.Data)
		f.uploads = append(f.uploads, data)
	}

	f.photos = append(f.photos, params)

	return &models.Message{ID: len(f.photos)}, nil
}

type NotifyTestSuite struct {
	suite.Suite
	ctrl *gomock.Controller
}

func TestNotifySuite(t *testing.T) {
	suite.Run(t, new(NotifyTestSuite))
}

func (suite *NotifyTestSuite) SetupTest() {
	suite.ctrl = gomock.NewController(suite.T())
}

func (suite *NotifyTestSuite) TearDownTest() {
	suite.ctrl.Finish()
}

func (suite *NotifyTestSuite) TestFanOutDeliversToEverySender() {
	first := mocks.NewMockSender(suite.ctrl)
	second := mocks.NewMockSender(suite.ctrl)
	msg := notify.Message{Text: "hello"}

	first.EXPECT().Deliver(gomock.Any(), msg).Return(nil)
	second.EXPECT().Deliver(gomock.Any(), msg).Return(nil)

	notify.NewNotifier(logger.NewNopLogger(), time.Second, first, second).Send(context.Background(), msg)
}

func (suite *NotifyTestSuite) TestFailureIsLoggedNotReturned() {
	core, logs := observer.New(zap.WarnLevel)
	log := &logger.Logger{Logger: zap.New(core)}

	failing := mocks.NewMockSender(suite.ctrl)
	healthy := mocks.NewMockSender(suite.ctrl)

	failing.EXPECT().Name().Return("telegram").AnyTimes()
	failing.EXPECT().Deliver(gomock.Any(), gomock.Any()).Return(errors.New("chat not found"))
	healthy.EXPECT().Deliver(gomock.Any(), gomock.Any()).Return(nil)

	notify.NewNotifier(log, time.Second, failing, healthy).Send(context.Background(), notify.Message{Text: "x"})

	entries := logs.FilterMessage("Notification not delivered").All()
	suite.Require().Len(entries, 1)

	err, ok := entries[0].ContextMap()["error"].(string)
	suite.True(ok)
	suite.Contains(err, "chat not found")
}

func (suite *NotifyTestSuite) TestDeliveryIsBoundedByTimeout() {
	slow := mocks.NewMockSender(suite.ctrl)
	slow.EXPECT().Name().Return("slow").AnyTimes()
	slow.EXPECT().Deliver(gomock.Any(), gomock.Any()).DoAndReturn(func(ctx context.Context, _ notify.Message) error {
		<-ctx.Done()

		return ctx.Err()
	})

	done := make(chan struct{})

	go func() {
		notify.NewNotifier(logger.NewNopLogger(), 20*time.Millisecond, slow).Send(context.Background(), notify.Message{Text: "x"})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		suite.Fail("notifier did not honour its timeout")
	}
}

func (suite *NotifyTestSuite) TestLogSender() {
	core, logs := observer.New(zap.InfoLevel)
	sender := notify.NewLogSender(&logger.Logger{Logger: zap.New(core)})

	suite.Equal("log", sender.Name())
	suite.NoError(sender.Deliver(context.Background(), notify.Message{Text: "status"}))
	suite.Equal(1, logs.FilterField(zap.String("text", "status")).Len())
}

func (suite *NotifyTestSuite) TestTelegramText() {
	api := &fakeTelegram{}
	sender := notify.NewTelegramSenderWithAPI(api, "-100200")

	suite.NoError(sender.Deliver(context.Background(), notify.Message{Text: "hi"}))
	suite.Require().Len(api.messages, 1)
	suite.Equal("-100200", api.messages[0].ChatID)
	suite.Equal("hi", api.messages[0].Text)
	suite.Empty(api.photos)
}

func (suite *NotifyTestSuite) TestTelegramPhotoWithCaption() {
	api := &fakeTelegram{}
	sender := notify.NewTelegramSenderWithAPI(api, "42")

	suite.NoError(sender.Deliver(context.Background(), notify.Message{Text: "chart", Image: []byte{0x89, 'P', 'N', 'G'}}))
	suite.Require().Len(api.photos, 1)
	suite.Equal("chart", api.photos[0].Caption)
	suite.Equal([]byte{0x89, 'P', 'N', 'G'}, api.uploads[0])
	suite.Equal("chart.png", api.photos[0].Photo.(*models.InputFileUpload).Filename)
	suite.Empty(api.messages)
}

func (suite *NotifyTestSuite) TestTelegramLongCaptionSentSeparately() {
	api := &fakeTelegram{}
	sender := notify.NewTelegramSenderWithAPI(api, "42")
	text := strings.Repeat("a", 1500)

	suite.NoError(sender.Deliver(context.Background(), notify.Message{Text: text, Image: []byte{1}, ImageName: "c.png"}))
	suite.Require().Len(api.photos, 1)
	suite.Empty(api.photos[0].Caption)
	suite.Require().Len(api.messages, 1)
	suite.Equal(text, api.messages[0].Text)
}

func (suite *NotifyTestSuite) TestTelegramError() {
	api := &fakeTelegram{err: errors.New("forbidden")}
	sender := notify.NewTelegramSenderWithAPI(api, "42")

	suite.Error(sender.Deliver(context.Background(), notify.Message{Text: "hi"}))
}

func (suite *NotifyTestSuite) TestTelegramRequiresCredentials() {
	_, err := notify.NewTelegramSender("", "42")
	suite.True(argoerrors.HasCode(err, argoerrors.ErrCodeMissingCredentials))

	_, err = notify.NewTelegramSender("123:abc", "")
	suite.True(argoerrors.HasCode(err, argoerrors.ErrCodeMissingCredentials))

	sender, err := notify.NewTelegramSender("123:abc", "42")
	suite.NoError(err)
	suite.Equal("telegram", sender.Name())
}

func (suite *NotifyTestSuite) TestFormatSignalSummary() {
	text := notify.FormatSignalSummary(notify.SignalSummary{
		Symbol:     "BTCUSDT",
		Timeframe:  "15m",
		Price:      d("50000.5"),
		Indicators: types.IndicatorValues{types.IndicatorRSI: 28.456, types.IndicatorStochRSIK: 0.12},
		Cash:       d("1000"),
		Signal:     types.Signal{Symbol: "BTCUSDT", Intent: types.IntentEnter, Reason: "RSI_BUY_SIGNAL"},
	})

	suite.Contains(text, "[BTCUSDT] Signal Summary (15m)")
	suite.Contains(text, "Price: 50000.5")
	suite.Contains(text, "RSI: 28.46")
	suite.Contains(text, "EMA fast: N/A")
	suite.Contains(text, "Stoch RSI K/D: 0.12 / N/A")
	suite.Contains(text, "Balance: 1000.00 USDT")
	suite.Contains(text, "Signal: ENTER (RSI_BUY_SIGNAL)")
}

func (suite *NotifyTestSuite) TestFormatStatus() {
	opened := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	btc := types.NewLongPosition("BTCUSDT", d("2"), d("50"), d("0.02"), d("0.04"), d("0.01"), opened)
	eth := types.NewLongPosition("ETHUSDT", d("1"), d("10"), d("0.02"), d("0.04"), d("0.01"), opened)

	text := notify.FormatStatus(notify.StatusReport{
		Cash:          d("890"),
		UnrealizedPnL: d("2"),
		Equity:        d("1002"),
		RealizedPnL:   d("-3.5"),
		Positions: []notify.PositionLine{
			{Position: btc, Price: optional.Some(d("51"))},
			{Position: eth, Price: optional.None[decimal.Decimal]()},
		},
	})

	suite.Contains(text, "Bot Status Update (PAPER)")
	suite.Contains(text, "Effective balance: 1002.00 USDT")
	suite.Contains(text, "Total realized PnL: -3.50 USDT")
	suite.Contains(text, "- BTCUSDT qty 2 entry 50 current 51 PnL 2.00 USDT")
	suite.Contains(text, "- ETHUSDT qty 1 entry 10: current price not available")

	empty := notify.FormatStatus(notify.StatusReport{Live: true})
	suite.Contains(empty, "(LIVE)")
	suite.Contains(empty, "Open positions: none")
}

func (suite *NotifyTestSuite) TestFormatTrades() {
	opened := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	pos := types.NewLongPosition("BTCUSDT", d("2"), d("50"), d("0.02"), d("0.04"), d("0.01"), opened)
	buy := types.TradeRecord{Symbol: "BTCUSDT", Side: types.PurchaseTypeBuy, Quantity: d("2"), Price: d("50"), Reason: "RSI_BUY_SIGNAL"}

	text := notify.FormatOpened(buy, pos, d("900"))
	suite.Contains(text, "PAPER BUY executed: BTCUSDT")
	suite.Contains(text, "Quantity: 2 @ 50 (100.00 USDT)")
	suite.Contains(text, "SL: 49 TP: 52 TSL: 49.5")
	suite.Contains(text, "Remaining balance: 900.00 USDT")
	suite.NotContains(text, "Order:")

	sell := types.TradeRecord{
		Symbol: "BTCUSDT", Side: types.PurchaseTypeSell, Quantity: d("2"), Price: d("55"),
		EntryPrice: d("50"), RealizedPnL: d("10"), Reason: "TAKE_PROFIT", IsLive: true,
	}

	text = notify.FormatClosed(sell, d("1010"))
	suite.Contains(text, "LIVE SELL executed (closing position): BTCUSDT")
	suite.Contains(text, "PnL: 10.00 USDT")
	suite.Contains(text, "New balance: 1010.00 USDT")
}

func (suite *NotifyTestSuite) TestFormatFailed() {
	tests := []struct {
		name string
		code argoerrors.ErrorCode
		want string
	}{
		{name: "min notional", code: argoerrors.ErrCodeBelowMinNotional, want: "notional value too low"},
		{name: "balance", code: argoerrors.ErrCodeInsufficientBalance, want: "insufficient balance"},
		{name: "no position", code: argoerrors.ErrCodeNoOpenPosition, want: "no open position to close"},
		{name: "venue", code: argoerrors.ErrCodeOrderFailed, want: "execution error"},
	}

	for _, tt := range tests {
		suite.Run(tt.name, func() {
			text := notify.FormatFailed("BTCUSDT", types.PurchaseTypeBuy, argoerrors.New(tt.code, "boom"))
			suite.Contains(text, "Trade failed: BUY BTCUSDT, "+tt.want)
			suite.Contains(text, "boom")
		})
	}
}

func (suite *NotifyTestSuite) TestFormatSummaries() {
	loc := time.FixedZone("UTC+8", 8*3600)
	daily := types.PnlSummary{
		Kind:               types.SummaryKindDaily,
		WindowStart:        time.Date(2026, 3, 1, 0, 0, 0, 0, loc),
		WindowEnd:          time.Date(2026, 3, 2, 0, 0, 0, 0, loc),
		RealizedPnL:        d("12.5"),
		TradeCount:         6,
		Wins:               2,
		Losses:             1,
		BalanceAtWindowEnd: d("1012.5"),
	}

	text := notify.FormatDailySummary(daily)
	suite.Contains(text, "Daily Summary 2026-03-01")
	suite.Contains(text, "Trades: 6 (wins 2, losses 1, win rate 66.7%)")
	suite.Contains(text, "Realized PnL: 12.50 USDT")

	hourly := types.PnlSummary{
		Kind:        types.SummaryKindHourly,
		WindowStart: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
		WindowEnd:   time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
		RealizedPnL: d("-1"),
		TradeCount:  2,
	}
	suite.Equal("Hourly PnL 09:00-10:00: -1.00 USDT over 2 trades", notify.FormatHourlySummary(hourly))
}
