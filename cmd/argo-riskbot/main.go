package main

import (
	"context"
	"log"
	"os"

	"github.com/rxtech-lab/argo-riskbot/internal/version"
	"github.com/urfave/cli/v3"
)

func newCommand() *cli.Command {
	return &cli.Command{
		Name:    "argo-riskbot",
		Usage:   "Spot trading bot with stop loss, take profit and trailing stop management",
		Version: version.GetVersion(),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to the YAML configuration file",
				Value:   "config.yaml",
				Sources: cli.EnvVars("RISKBOT_CONFIG"),
			},
			&cli.StringFlag{
				Name:  "env-file",
				Usage: "Optional .env file with secrets",
				Value: ".env",
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "run",
				Usage:  "Run the trading loop until interrupted",
				Action: withApp(runBot),
			},
			{
				Name:  "status",
				Usage: "Print the stored balance and open positions",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "prices",
						Usage: "Fetch current prices to value open positions",
					},
				},
				Action: withApp(printStatus),
			},
			{
				Name:  "summary",
				Usage: "Print recent trades and PnL summaries",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:    "limit",
						Aliases: []string{"n"},
						Usage:   "Number of recent trades to print",
						Value:   20,
					},
					&cli.StringFlag{
						Name:  "date",
						Usage: "Day of the daily summary in `YYYY-MM-DD` format. Defaults to yesterday.",
					},
				},
				Action: withApp(printSummary),
			},
			{
				Name:   "schema",
				Usage:  "Print the JSON schema of the configuration file",
				Action: schemaAction,
			},
		},
	}
}

func main() {
	if err := newCommand().Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}
