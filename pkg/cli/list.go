package cli

import (
	"context"
	"fmt"

	"github.com/m-mizutani/docaudit/pkg/model"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

func listCommand() *cli.Command {
	var (
		cfg    config
		prefix string
		all    bool
	)

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "prefix",
			Aliases:     []string{"p"},
			Usage:       "Prefix to list",
			Sources:     cli.EnvVars("DOCAUDIT_LIST_PREFIX"),
			Destination: &prefix,
		},
		&cli.BoolFlag{
			Name:        "all",
			Aliases:     []string{"a"},
			Usage:       "Include quality artifacts and manifests",
			Destination: &all,
		},
	}
	flags = append(flags, globalFlags(&cfg)...)

	return &cli.Command{
		Name:  "list",
		Usage: "List documents under a prefix and whether they have been assessed",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx, err := cfg.setupLogger(ctx, c.Root().ErrWriter)
			if err != nil {
				return err
			}

			bucket, err := cfg.requireBucket()
			if err != nil {
				return err
			}

			store, err := cfg.newStore(ctx)
			if err != nil {
				return err
			}

			objects, err := store.List(ctx, bucket, prefix)
			if err != nil {
				return goerr.Wrap(err, "failed to list objects", goerr.Value("prefix", prefix))
			}

			assessed := make(map[string]bool)
			for _, obj := range objects {
				if model.IsRecordKey(obj.Key) {
					assessed[model.SourceKey(obj.Key)] = true
				}
			}

			for _, obj := range objects {
				status := "pending"
				switch {
				case obj.IsFolder:
					status = "folder"
				case model.IsManifestKey(obj.Key):
					status = "manifest"
				case model.IsRecordKey(obj.Key):
					status = "artifact"
				case assessed[obj.Key]:
					status = "assessed"
				}
				if !all && (status == "manifest" || status == "artifact") {
					continue
				}

				fmt.Fprintf(c.Root().Writer, "%s\t%d\t%s\t%s\n",
					obj.Key,
					obj.Size,
					obj.LastModified.Format("2006-01-02 15:04:05"),
					status,
				)
			}

			return nil
		},
	}
}
