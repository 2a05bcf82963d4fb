package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/rxtech-lab/argo-riskbot/internal/config"
	"github.com/rxtech-lab/argo-riskbot/internal/notify"
	"github.com/rxtech-lab/argo-riskbot/internal/persistence"
	"github.com/rxtech-lab/argo-riskbot/pkg/errors"
	"github.com/urfave/cli/v3"
)

const recentHourlySummaries = 24

func printSummary(ctx context.Context, cmd *cli.Command, a *app) error {
	date := cmd.String("date")
	if date == "" {
		date = time.Now().In(a.cfg.Location()).AddDate(0, 0, -1).Format("2006-01-02")
	}

	return writeSummary(ctx, cmd.Root().Writer, a.adapter, int(cmd.Int("limit")), date)
}

func writeSummary(ctx context.Context, w io.Writer, adapter *persistence.Adapter, limit int, date string) error {
	trades, err := adapter.RecentTrades(ctx, limit)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "Recent trades (%d)\n", len(trades))

	for _, t := range trades {
		fmt.Fprintf(w, "%s %-4s %-10s qty %s @ %s pnl %s %s\n",
			t.Timestamp.Format(time.RFC3339), t.Side, t.Symbol,
			t.Quantity.String(), t.Price.String(), t.RealizedPnL.StringFixed(2), t.Reason)
	}

	hourly, err := adapter.RecentHourlySummaries(ctx, recentHourlySummaries)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "\nHourly summaries (%d)\n", len(hourly))

	for _, s := range hourly {
		fmt.Fprintln(w, notify.FormatHourlySummary(s))
	}

	daily, err := adapter.DailySummary(ctx, date)
	if errors.HasCode(err, errors.ErrCodeNotFound) {
		fmt.Fprintf(w, "\nNo daily summary for %s\n", date)

		return nil
	}

	if err != nil {
		return err
	}

	_, err = fmt.Fprintf(w, "\n%s\n", notify.FormatDailySummary(daily))

	return err
}

func schemaAction(_ context.Context, cmd *cli.Command) error {
	schema, err := config.GetConfigSchema()
	if err != nil {
		return err
	}

	_, err = fmt.Fprintln(cmd.Root().Writer, schema)

	return err
}
