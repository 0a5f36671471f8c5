package cli

import (
	"context"
	"slices"

	"github.com/m-mizutani/docaudit/pkg/model"
	"github.com/m-mizutani/docaudit/pkg/usecase/results"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

// newResults wires the results usecase from cfg
func newResults(ctx context.Context, cfg *config, prefixes []string) (*results.UseCase, error) {
	store, err := cfg.newStore(ctx)
	if err != nil {
		return nil, err
	}

	// the results prefix carries the index of document prefixes holding
	// artifacts, so it is always searched
	if !slices.Contains(prefixes, cfg.resultsPrefix) {
		prefixes = append(slices.Clone(prefixes), cfg.resultsPrefix)
	}
	opts := []results.Option{
		results.WithPrefixes(prefixes...),
		results.WithDuplicateThreshold(cfg.duplicateThreshold),
	}

	cache, err := cfg.newCache()
	if err != nil {
		return nil, err
	}
	if cache != nil {
		opts = append(opts, results.WithCache(cache))
	}

	repo, err := cfg.newRepository(ctx)
	if err != nil {
		return nil, err
	}
	if repo != nil {
		opts = append(opts, results.WithRepository(repo))
	}

	return results.New(store, opts...), nil
}

func getCommand() *cli.Command {
	var (
		cfg      config
		format   string
		prefixes []string
		record   bool
	)

	flags := []cli.Flag{
		&cli.StringSliceFlag{
			Name:        "prefix",
			Aliases:     []string{"p"},
			Usage:       "Prefixes searched for artifacts when a manifest has to be rebuilt",
			Sources:     cli.EnvVars("DOCAUDIT_GET_PREFIX"),
			Destination: &prefixes,
		},
		&cli.BoolFlag{
			Name:        "record",
			Aliases:     []string{"r"},
			Usage:       "Show the record of the document even when the key looks like a manifest",
			Destination: &record,
		},
		formatFlag(&format),
	}
	flags = append(flags, globalFlags(&cfg)...)

	return &cli.Command{
		Name:      "get",
		Usage:     "Show a consolidated manifest or the record of one document",
		ArgsUsage: "[<key>]",
		Flags:     flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx, err := cfg.setupLogger(ctx, c.Root().ErrWriter)
			if err != nil {
				return err
			}

			bucket, err := cfg.requireBucket()
			if err != nil {
				return err
			}

			uc, err := newResults(ctx, &cfg, prefixes)
			if err != nil {
				return err
			}

			key := c.Args().Get(0)
			if record && key == "" {
				return goerr.New("key is required to show a record")
			}
			if record || (key != "" && !model.IsManifestKey(key)) {
				rec, err := uc.GetRecord(ctx, bucket, key)
				if err != nil {
					return goerr.Wrap(err, "failed to get record", goerr.Value("key", key))
				}
				return render(c.Root().Writer, format, rec)
			}

			m, err := uc.GetManifest(ctx, bucket, key)
			if err != nil {
				return goerr.Wrap(err, "failed to get manifest", goerr.Value("key", key))
			}
			return render(c.Root().Writer, format, m)
		},
	}
}
