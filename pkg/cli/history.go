package cli

import (
	"context"
	"fmt"

	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

func historyCommand() *cli.Command {
	var (
		cfg    config
		format string
		scans  bool
		limit  int64
	)

	flags := []cli.Flag{
		&cli.BoolFlag{
			Name:        "scans",
			Aliases:     []string{"s"},
			Usage:       "List scan summaries instead of cached manifests",
			Destination: &scans,
		},
		&cli.IntFlag{
			Name:        "limit",
			Aliases:     []string{"l"},
			Usage:       "Maximum number of scan summaries to list",
			Value:       20,
			Sources:     cli.EnvVars("DOCAUDIT_HISTORY_LIMIT"),
			Destination: &limit,
		},
		formatFlag(&format),
	}
	flags = append(flags, globalFlags(&cfg)...)

	return &cli.Command{
		Name:      "history",
		Usage:     "List processed batches, or show one cached manifest with cross-history duplicates",
		ArgsUsage: "[<manifest-name>]",
		Flags:     flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx, err := cfg.setupLogger(ctx, c.Root().ErrWriter)
			if err != nil {
				return err
			}

			uc, err := newResults(ctx, &cfg, nil)
			if err != nil {
				return err
			}

			if scans {
				summaries, err := uc.ScanHistory(ctx, cfg.bucket, int(limit))
				if err != nil {
					return goerr.Wrap(err, "failed to list scans")
				}
				return render(c.Root().Writer, format, summaries)
			}

			if name := c.Args().Get(0); name != "" {
				m, err := uc.HistoryContent(ctx, name)
				if err != nil {
					return goerr.Wrap(err, "failed to get history content", goerr.Value("name", name))
				}
				return render(c.Root().Writer, format, m)
			}

			entries, err := uc.History(ctx)
			if err != nil {
				return goerr.Wrap(err, "failed to list history")
			}
			if len(entries) == 0 {
				fmt.Fprintf(c.Root().Writer, "No history found\n")
				return nil
			}
			return render(c.Root().Writer, format, entries)
		},
	}
}
