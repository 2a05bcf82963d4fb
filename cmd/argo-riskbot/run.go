package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rxtech-lab/argo-riskbot/internal/aggregator"
	"github.com/rxtech-lab/argo-riskbot/internal/config"
	"github.com/rxtech-lab/argo-riskbot/internal/execution"
	"github.com/rxtech-lab/argo-riskbot/internal/indicator"
	"github.com/rxtech-lab/argo-riskbot/internal/logger"
	"github.com/rxtech-lab/argo-riskbot/internal/metadata"
	"github.com/rxtech-lab/argo-riskbot/internal/notify"
	"github.com/rxtech-lab/argo-riskbot/internal/scheduler"
	"github.com/rxtech-lab/argo-riskbot/internal/strategy"
	"github.com/rxtech-lab/argo-riskbot/internal/trading/engine"
	enginev1 "github.com/rxtech-lab/argo-riskbot/internal/trading/engine/engine_v1"
	tradingprovider "github.com/rxtech-lab/argo-riskbot/internal/trading/provider"
	"github.com/rxtech-lab/argo-riskbot/internal/version"
	"github.com/rxtech-lab/argo-riskbot/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
)

func runBot(ctx context.Context, _ *cli.Command, a *app) error {
	cfg := a.cfg

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	l, fresh, err := a.adapter.Load(ctx, decimal.NewFromFloat(cfg.Settings.PaperBalanceInitial))
	if err != nil {
		return err
	}

	market, err := a.marketData()
	if err != nil {
		return err
	}

	gateway, err := buildGateway(ctx, cfg, a.log)
	if err != nil {
		return err
	}

	notifier := buildNotifier(cfg, a.log)
	clock := scheduler.RealClock()

	eng, err := enginev1.NewCycleEngineV1(
		engine.Config{
			Symbols:           cfg.SymbolNames(),
			Timeframe:         cfg.Settings.Timeframe,
			Lookback:          cfg.Settings.Lookback,
			TradeAmountUSD:    decimal.NewFromFloat(cfg.Settings.TradeAmountUSD),
			Concurrency:       cfg.Concurrency,
			MarketDataTimeout: cfg.Timeouts.MarketData,
			Live:              cfg.IsLive(),
		},
		enginev1.Dependencies{
			Ledger:     l,
			MarketData: market,
			Indicators: indicator.NewEngine(cfg.Settings.Indicators),
			Strategy:   strategy.NewRSIStrategy(cfg),
			Settings:   cfg,
			Executor:   gateway,
			State:      a.adapter,
			Aggregator: aggregator.New(a.adapter, cfg.Location(), a.log, clock.Now(),
				aggregator.WithQueryLimits(cfg.Aggregation.HourlyQueryLimit, cfg.Aggregation.DailyQueryLimit)),
			Notifier:  notifier,
			Scheduler: scheduler.New(clock, cfg.Settings.TradingInterval, a.log),
			Clock:     clock,
		},
		engine.Callbacks{},
		a.log,
	)
	if err != nil {
		return err
	}

	a.log.Info("Bot starting",
		zap.String("version", version.GetVersion()),
		zap.String("mode", string(cfg.Mode)),
		zap.Strings("symbols", cfg.SymbolNames()),
		zap.Bool("fresh_ledger", fresh),
		zap.String("cash", l.CashBalance().String()),
	)

	notifier.Send(ctx, notify.Message{Text: fmt.Sprintf("Bot started (%s) with %d symbols, cash %s USDT",
		cfg.Mode, len(cfg.Symbols), l.CashBalance().StringFixed(2))})

	err = eng.Run(ctx)

	// Final save outlives the stop request.
	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.Timeouts.Persistence)
	defer cancel()

	if saveErr := a.adapter.Save(saveCtx, l); saveErr != nil {
		a.log.Error("Final save failed", zap.Error(saveErr))
	}

	if errors.Is(err, context.Canceled) {
		a.log.Info("Bot stopped")

		return nil
	}

	return err
}

// buildGateway returns a live gateway over the authenticated Binance
// provider, or a paper gateway that reads exchange rules anonymously.
func buildGateway(ctx context.Context, cfg *config.Config, log *logger.Logger) (*execution.Gateway, error) {
	opts := []execution.Option{execution.WithOrderTimeout(cfg.Timeouts.Order)}

	if !cfg.IsLive() {
		rules := tradingprovider.NewBinanceRulesProvider(cfg.Exchange.BaseURL, cfg.Exchange.Testnet, cfg.Exchange.RequestsPerSecond)
		resolver := metadata.NewResolver(rules, cfg.MinNotionalOverrides(), log)

		return execution.NewPaperGateway(resolver, log, opts...), nil
	}

	venue, err := tradingprovider.NewBinanceTradingSystemProvider(tradingprovider.BinanceProviderConfig{
		ApiKey:            cfg.Secrets.BinanceAPIKey,
		SecretKey:         cfg.Secrets.BinanceAPISecret,
		BaseURL:           cfg.Exchange.BaseURL,
		Testnet:           cfg.Exchange.Testnet,
		RequestsPerSecond: cfg.Exchange.RequestsPerSecond,
	})
	if err != nil {
		return nil, err
	}

	balanceCtx, cancel := context.WithTimeout(ctx, cfg.Timeouts.MarketData)
	defer cancel()

	if balance, err := venue.QuoteBalance(balanceCtx, cfg.Exchange.QuoteAsset); err != nil {
		log.Warn("Could not read exchange balance", zap.Error(err))
	} else {
		log.Info("Exchange balance", zap.String("asset", cfg.Exchange.QuoteAsset), zap.String("free", balance.String()))
	}

	resolver := metadata.NewResolver(venue, cfg.MinNotionalOverrides(), log)

	return execution.NewLiveGateway(resolver, venue, log, opts...), nil
}

func buildNotifier(cfg *config.Config, log *logger.Logger) *notify.Notifier {
	senders := []notify.Sender{notify.NewLogSender(log)}

	if cfg.Secrets.HasTelegram() {
		telegram, err := notify.NewTelegramSender(cfg.Secrets.TelegramToken, cfg.Secrets.TelegramChatID)
		if err != nil {
			log.Warn("Telegram notifications disabled", zap.Error(err))
		} else {
			senders = append(senders, telegram)
		}
	}

	return notify.NewNotifier(log, cfg.Timeouts.Notification, senders...)
}
