// Package main provides the entry point for the harness CLI commands.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/pagopa/pagopa-receipt-pdf-harness/cmd/harness/commands"
)

func main() {
	cmd := &cli.Command{
		Name:    "harness",
		Usage:   "Receipt PDF pipeline test and operations harness",
		Version: "1.0.0",
		Commands: []*cli.Command{
			{
				Name:  "regenerate-receipts",
				Usage: "Regenerate PDFs of notified receipts with malformed amounts",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "from",
						Value: "",
						Usage: "Window start date (YYYY-MM-DD)",
					},
					&cli.StringFlag{
						Name:  "to",
						Value: "",
						Usage: "Window end date (YYYY-MM-DD)",
					},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return commands.RunRegenerateReceipts(ctx, cmd.String("from"), cmd.String("to"))
				},
			},
			{
				Name:  "regenerate-cart-receipts",
				Usage: "Regenerate PDFs of notified cart receipts with malformed amounts",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "from",
						Value: "",
						Usage: "Window start date (YYYY-MM-DD)",
					},
					&cli.StringFlag{
						Name:  "to",
						Value: "",
						Usage: "Window end date (YYYY-MM-DD)",
					},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return commands.RunRegenerateCartReceipts(ctx, cmd.String("from"), cmd.String("to"))
				},
			},
			{
				Name:  "report",
				Usage: "Build the receipt-generation status report",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "range",
						Aliases: []string{"r"},
						Value:   "",
						Usage:   "Date range (daily, weekly, dozen, monthly, custom)",
					},
					&cli.StringFlag{
						Name:  "start",
						Value: "",
						Usage: "Custom range start date (YYYY-MM-DD)",
					},
					&cli.StringFlag{
						Name:  "end",
						Value: "",
						Usage: "Custom range end date (YYYY-MM-DD)",
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Value:   "",
						Usage:   "Output file path",
					},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return commands.RunReport(ctx, cmd.String("range"), cmd.String("start"), cmd.String("end"), cmd.String("output"))
				},
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("command failed", slog.Any("error", err))
		os.Exit(1)
	}
}
