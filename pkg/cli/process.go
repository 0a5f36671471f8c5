package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/briandowns/spinner"
	"github.com/m-mizutani/docaudit/pkg/interfaces"
	"github.com/m-mizutani/docaudit/pkg/model"
	"github.com/m-mizutani/docaudit/pkg/service/extract"
	"github.com/m-mizutani/docaudit/pkg/usecase/batch"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

// processOutput is what process and scan print once the batch is done
type processOutput struct {
	ManifestKey    string                  `json:"manifest_key" yaml:"manifest_key"`
	Persisted      bool                    `json:"persisted" yaml:"persisted"`
	Summary        *model.ScanSummary      `json:"summary" yaml:"summary"`
	Files          []*fileLine             `json:"files" yaml:"files"`
	DuplicatePairs []*model.SimilarityPair `json:"duplicate_pairs,omitempty" yaml:"duplicate_pairs,omitempty"`
}

type fileLine struct {
	FileKey string       `json:"file_key" yaml:"file_key"`
	Status  model.Status `json:"status" yaml:"status"`
	Score   float64      `json:"score,omitempty" yaml:"score,omitempty"`
	Action  model.Action `json:"action,omitempty" yaml:"action,omitempty"`
	Error   string       `json:"error,omitempty" yaml:"error,omitempty"`
}

func newProcessOutput(bucket string, result *batch.Result) *processOutput {
	m := result.Manifest
	out := &processOutput{
		ManifestKey:    result.ManifestKey,
		Persisted:      result.Persisted,
		Summary:        m.Summarize(bucket, result.ManifestKey),
		DuplicatePairs: m.DuplicatePairs,
	}
	for _, f := range m.Files {
		out.Files = append(out.Files, &fileLine{
			FileKey: f.FileKey,
			Status:  f.Status,
			Score:   f.OverallQualityScore,
			Action:  f.RecommendedAction,
			Error:   f.Error,
		})
	}
	return out
}

// batchFlags holds flags shared by process and scan
type batchFlags struct {
	modelName string
	format    string
	quiet     bool
}

func (b *batchFlags) flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "model",
			Aliases:     []string{"m"},
			Usage:       "Generative model for this batch (default model when empty)",
			Sources:     cli.EnvVars("DOCAUDIT_MODEL"),
			Destination: &b.modelName,
		},
		&cli.BoolFlag{
			Name:        "quiet",
			Aliases:     []string{"q"},
			Usage:       "Do not show the progress spinner",
			Sources:     cli.EnvVars("DOCAUDIT_QUIET"),
			Destination: &b.quiet,
		},
		formatFlag(&b.format),
	}
}

// newBatch wires the batch usecase from cfg
func newBatch(ctx context.Context, cfg *config, store interfaces.ObjectStore, progress func(done, total int, rec *model.DocumentRecord)) (*batch.UseCase, error) {
	gemini, err := cfg.newGemini(ctx)
	if err != nil {
		return nil, err
	}

	opts := []batch.Option{
		batch.WithResultsPrefix(cfg.resultsPrefix),
		batch.WithDefaultModel(gemini.DefaultModel()),
		batch.WithSimilarity(cfg.newSimilarity(gemini)),
	}
	if progress != nil {
		opts = append(opts, batch.WithProgress(progress))
	}

	cache, err := cfg.newCache()
	if err != nil {
		return nil, err
	}
	if cache != nil {
		opts = append(opts, batch.WithCache(cache))
	}

	repo, err := cfg.newRepository(ctx)
	if err != nil {
		return nil, err
	}
	if repo != nil {
		opts = append(opts, batch.WithRepository(repo))
	}

	exporter, err := cfg.newExporter(ctx)
	if err != nil {
		return nil, err
	}
	if exporter != nil {
		opts = append(opts, batch.WithExporter(exporter))
	}

	return batch.New(store, extract.New(), gemini, gemini, opts...), nil
}

// runBatch processes keys with a spinner reporting progress and prints the
// outcome
func runBatch(ctx context.Context, c *cli.Command, cfg *config, bf *batchFlags, store interfaces.ObjectStore, bucket string, keys []string) error {
	var sp *spinner.Spinner
	var progress func(done, total int, rec *model.DocumentRecord)
	if !bf.quiet {
		sp = spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(os.Stderr))
		sp.Suffix = fmt.Sprintf(" processing 0/%d", len(keys))
		progress = func(done, total int, rec *model.DocumentRecord) {
			name := ""
			if rec != nil {
				name = rec.FileName
			}
			sp.Lock()
			sp.Suffix = fmt.Sprintf(" processing %d/%d %s", done, total, name)
			sp.Unlock()
		}
	}

	uc, err := newBatch(ctx, cfg, store, progress)
	if err != nil {
		return err
	}

	if sp != nil {
		sp.Start()
	}
	result, err := uc.Process(ctx, bucket, keys, batch.Params{Model: bf.modelName})
	if sp != nil {
		sp.Stop()
	}
	if err != nil {
		return goerr.Wrap(err, "failed to process batch", goerr.Value("bucket", bucket))
	}

	return render(c.Root().Writer, bf.format, newProcessOutput(bucket, result))
}

func processCommand() *cli.Command {
	var (
		cfg config
		bf  batchFlags
	)

	flags := bf.flags()
	flags = append(flags, globalFlags(&cfg)...)
	flags = append(flags, llmFlags(&cfg)...)
	flags = append(flags, exportFlags(&cfg)...)

	return &cli.Command{
		Name:      "process",
		Usage:     "Assess the quality of the given documents as one batch",
		ArgsUsage: "<key> [<key>...]",
		Flags:     flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx, err := cfg.setupLogger(ctx, c.Root().ErrWriter)
			if err != nil {
				return err
			}

			if c.Args().Len() == 0 {
				return goerr.New("at least one key is required")
			}
			bucket, err := cfg.requireBucket()
			if err != nil {
				return err
			}

			store, err := cfg.newStore(ctx)
			if err != nil {
				return err
			}

			return runBatch(ctx, c, &cfg, &bf, store, bucket, c.Args().Slice())
		},
	}
}

func scanCommand() *cli.Command {
	var (
		cfg    config
		bf     batchFlags
		prefix string
		limit  int64
	)

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "prefix",
			Aliases:     []string{"p"},
			Usage:       "Prefix whose documents are processed",
			Sources:     cli.EnvVars("DOCAUDIT_SCAN_PREFIX"),
			Destination: &prefix,
		},
		&cli.IntFlag{
			Name:        "limit",
			Aliases:     []string{"l"},
			Usage:       "Maximum number of documents to process (0 for all)",
			Value:       0,
			Sources:     cli.EnvVars("DOCAUDIT_SCAN_LIMIT"),
			Destination: &limit,
		},
	}
	flags = append(flags, bf.flags()...)
	flags = append(flags, globalFlags(&cfg)...)
	flags = append(flags, llmFlags(&cfg)...)
	flags = append(flags, exportFlags(&cfg)...)

	return &cli.Command{
		Name:  "scan",
		Usage: "Assess every document directly under a prefix",
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
				return goerr.Wrap(err, "failed to list documents", goerr.Value("prefix", prefix))
			}

			keys := batch.SortKeys(objects)
			if limit > 0 && int64(len(keys)) > limit {
				keys = keys[:limit]
			}
			if len(keys) == 0 {
				fmt.Fprintf(c.Root().Writer, "No documents found under %q\n", prefix)
				return nil
			}

			return runBatch(ctx, c, &cfg, &bf, store, bucket, keys)
		},
	}
}
