package main

import (
	"context"

	"github.com/rxtech-lab/argo-riskbot/internal/config"
	"github.com/rxtech-lab/argo-riskbot/internal/logger"
	"github.com/rxtech-lab/argo-riskbot/internal/persistence"
	"github.com/rxtech-lab/argo-riskbot/internal/store"
	"github.com/rxtech-lab/argo-riskbot/pkg/marketdata/provider"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
)

// app holds the components shared by every command.
type app struct {
	cfg      *config.Config
	log      *logger.Logger
	store    store.Store
	exporter *persistence.TradeExporter
	adapter  *persistence.Adapter
}

func openAppFromCommand(cmd *cli.Command) (*app, error) {
	cfg, err := config.Load(cmd.String("config"), cmd.String("env-file"))
	if err != nil {
		return nil, err
	}

	return openApp(cfg)
}

func openApp(cfg *config.Config) (*app, error) {
	log, err := logger.NewLoggerWithLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	st, err := store.Open(cfg.Store, log)
	if err != nil {
		return nil, err
	}

	opts := []persistence.Option{persistence.WithTimeout(cfg.Timeouts.Persistence)}

	var exporter *persistence.TradeExporter

	if cfg.Store.TradeExportPath != "" {
		exporter = persistence.NewTradeExporter(cfg.Store.TradeExportPath)
		if err := exporter.Initialize(); err != nil {
			_ = st.Close()

			return nil, err
		}

		opts = append(opts, persistence.WithTradeSink(exporter))
	}

	return &app{
		cfg:      cfg,
		log:      log,
		store:    st,
		exporter: exporter,
		adapter:  persistence.NewAdapter(st, persistence.NewPaths(cfg.Store.AppID, cfg.Store.UserID), log, opts...),
	}, nil
}

func (a *app) marketData() (provider.Source, error) {
	return provider.NewMarketDataProvider(provider.ProviderBinance, provider.BinanceConfig{
		BaseURL:           a.cfg.Exchange.BaseURL,
		Testnet:           a.cfg.Exchange.Testnet,
		RequestsPerSecond: a.cfg.Exchange.RequestsPerSecond,
	})
}

func (a *app) Close() {
	if a.exporter != nil {
		if err := a.exporter.Close(); err != nil {
			a.log.Warn("Failed to close trade exporter", zap.Error(err))
		}
	}

	if err := a.store.Close(); err != nil {
		a.log.Warn("Failed to close store", zap.Error(err))
	}

	_ = a.log.Sync()
}

func withApp(fn func(ctx context.Context, cmd *cli.Command, a *app) error) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		a, err := openAppFromCommand(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		return fn(ctx, cmd, a)
	}
}
