package main

import (
	"context"
	"fmt"
	"time"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-riskbot/internal/ledger"
	"github.com/rxtech-lab/argo-riskbot/internal/notify"
	"github.com/rxtech-lab/argo-riskbot/pkg/marketdata/provider"
	"github.com/shopspring/decimal"
	"github.com/urfave/cli/v3"
)

func printStatus(ctx context.Context, cmd *cli.Command, a *app) error {
	l, _, err := a.adapter.Load(ctx, decimal.NewFromFloat(a.cfg.Settings.PaperBalanceInitial))
	if err != nil {
		return err
	}

	prices := map[string]decimal.Decimal{}

	if cmd.Bool("prices") {
		market, err := a.marketData()
		if err != nil {
			return err
		}

		prices = priceAll(ctx, market, positionSymbols(l), a.cfg.Timeouts.MarketData)
	}

	_, err = fmt.Fprintln(cmd.Root().Writer, statusText(l, prices, a.cfg.IsLive()))

	return err
}

func statusText(l *ledger.Ledger, prices map[string]decimal.Decimal, live bool) string {
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

	return notify.FormatStatus(notify.StatusReport{
		Live:          live,
		Cash:          l.CashBalance(),
		UnrealizedPnL: valuation.UnrealizedPnL,
		Equity:        valuation.Equity,
		RealizedPnL:   l.RealizedPnL(),
		Positions:     lines,
	})
}

func positionSymbols(l *ledger.Ledger) []string {
	positions := l.Positions()
	symbols := make([]string, 0, len(positions))

	for _, pos := range positions {
		symbols = append(symbols, pos.Symbol)
	}

	return symbols
}

// priceAll fetches the latest price of every symbol, skipping failures.
func priceAll(ctx context.Context, source provider.Source, symbols []string, timeout time.Duration) map[string]decimal.Decimal {
	prices := make(map[string]decimal.Decimal, len(symbols))

	for _, symbol := range symbols {
		fetchCtx, cancel := context.WithTimeout(ctx, timeout)
		price, err := source.LatestPrice(fetchCtx, symbol)
		cancel()

		if err == nil {
			prices[symbol] = price
		}
	}

	return prices
}
