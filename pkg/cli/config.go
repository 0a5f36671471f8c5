package cli

import (
	"context"
	"io"
	"os"

	"github.com/m-mizutani/docaudit/pkg/adapter"
	"github.com/m-mizutani/docaudit/pkg/interfaces"
	"github.com/m-mizutani/docaudit/pkg/repository"
	"github.com/m-mizutani/docaudit/pkg/usecase/batch"
	"github.com/m-mizutani/docaudit/pkg/usecase/quality"
	"github.com/m-mizutani/docaudit/pkg/usecase/similarity"
	"github.com/m-mizutani/docaudit/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

const (
	storeGCS = "gcs"
	storeS3  = "s3"
	storeFS  = "fs"
)

// config holds configuration values
type config struct {
	// Logging
	logLevel  string
	logFormat string

	// Object store
	store      string
	bucket     string
	awsRegion  string
	s3Endpoint string
	fsRoot     string

	// Adapters
	geminiProject  string
	geminiLocation string
	geminiModel    string
	embeddingModel string
	temperature    float64

	// Similarity
	gateThreshold      float64
	duplicateThreshold float64

	// History
	cacheDir        string
	resultsPrefix   string
	firestoreProj   string
	firestoreDB     string
	bigqueryProject string
	bigqueryDataset string
	bigqueryTable   string
}

// globalFlags returns common flags used across commands with destination config
func globalFlags(cfg *config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "log-level",
			Usage:       "Log level (debug, info, warn, error)",
			Value:       "info",
			Sources:     cli.EnvVars("DOCAUDIT_LOG_LEVEL"),
			Destination: &cfg.logLevel,
		},
		&cli.StringFlag{
			Name:        "log-format",
			Usage:       "Log format (console, json)",
			Value:       "console",
			Sources:     cli.EnvVars("DOCAUDIT_LOG_FORMAT"),
			Destination: &cfg.logFormat,
		},
		&cli.StringFlag{
			Name:        "store",
			Usage:       "Object store backend (gcs, s3, fs)",
			Value:       storeGCS,
			Sources:     cli.EnvVars("DOCAUDIT_STORE"),
			Destination: &cfg.store,
		},
		&cli.StringFlag{
			Name:        "bucket",
			Aliases:     []string{"b"},
			Usage:       "Bucket holding the documents",
			Sources:     cli.EnvVars("DOCAUDIT_BUCKET"),
			Destination: &cfg.bucket,
		},
		&cli.StringFlag{
			Name:        "aws-region",
			Usage:       "AWS region of the S3 bucket",
			Sources:     cli.EnvVars("DOCAUDIT_AWS_REGION", "AWS_REGION"),
			Destination: &cfg.awsRegion,
		},
		&cli.StringFlag{
			Name:        "s3-endpoint",
			Usage:       "Custom S3 endpoint (path-style addressing)",
			Sources:     cli.EnvVars("DOCAUDIT_S3_ENDPOINT"),
			Destination: &cfg.s3Endpoint,
		},
		&cli.StringFlag{
			Name:        "fs-root",
			Usage:       "Directory used as object store root when --store=fs",
			Sources:     cli.EnvVars("DOCAUDIT_FS_ROOT"),
			Destination: &cfg.fsRoot,
		},
		&cli.StringFlag{
			Name:        "results-prefix",
			Usage:       "Prefix consolidated manifests are written under",
			Value:       batch.DefaultResultsPrefix,
			Sources:     cli.EnvVars("DOCAUDIT_RESULTS_PREFIX"),
			Destination: &cfg.resultsPrefix,
		},
		&cli.FloatFlag{
			Name:        "duplicate-threshold",
			Usage:       "Minimum cosine similarity for two documents to count as duplicates",
			Value:       similarity.DefaultDuplicateThreshold,
			Sources:     cli.EnvVars("DOCAUDIT_DUPLICATE_THRESHOLD"),
			Destination: &cfg.duplicateThreshold,
		},
		&cli.StringFlag{
			Name:        "cache-dir",
			Usage:       "Local directory keeping copies of written manifests",
			Sources:     cli.EnvVars("DOCAUDIT_CACHE_DIR"),
			Destination: &cfg.cacheDir,
		},
		&cli.StringFlag{
			Name:        "firestore-project",
			Usage:       "Google Cloud project ID of the scan history database",
			Sources:     cli.EnvVars("DOCAUDIT_FIRESTORE_PROJECT"),
			Destination: &cfg.firestoreProj,
		},
		&cli.StringFlag{
			Name:        "firestore-database",
			Usage:       "Firestore database ID of the scan history (default database when empty)",
			Sources:     cli.EnvVars("DOCAUDIT_FIRESTORE_DATABASE"),
			Destination: &cfg.firestoreDB,
		},
	}
}

// llmFlags returns flags for LLM-related configuration with destination config
func llmFlags(cfg *config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "gemini-project",
			Usage:       "Google Cloud project ID for Gemini",
			Sources:     cli.EnvVars("DOCAUDIT_GEMINI_PROJECT", "GEMINI_PROJECT_ID"),
			Destination: &cfg.geminiProject,
		},
		&cli.StringFlag{
			Name:        "gemini-location",
			Usage:       "Google Cloud location for Gemini",
			Value:       "us-central1",
			Sources:     cli.EnvVars("DOCAUDIT_GEMINI_LOCATION", "GEMINI_LOCATION"),
			Destination: &cfg.geminiLocation,
		},
		&cli.StringFlag{
			Name:        "gemini-model",
			Usage:       "Default generative model",
			Value:       "gemini-2.5-flash",
			Sources:     cli.EnvVars("DOCAUDIT_GEMINI_MODEL"),
			Destination: &cfg.geminiModel,
		},
		&cli.StringFlag{
			Name:        "embedding-model",
			Usage:       "Embedding model",
			Value:       "gemini-embedding-001",
			Sources:     cli.EnvVars("DOCAUDIT_EMBEDDING_MODEL"),
			Destination: &cfg.embeddingModel,
		},
		&cli.FloatFlag{
			Name:        "temperature",
			Usage:       "Sampling temperature of quality assessments",
			Value:       adapter.DefaultTemperature,
			Sources:     cli.EnvVars("DOCAUDIT_TEMPERATURE"),
			Destination: &cfg.temperature,
		},
		&cli.FloatFlag{
			Name:        "gate-threshold",
			Usage:       "Minimum metadata overlap before two documents are compared by vector",
			Value:       similarity.DefaultGateThreshold,
			Sources:     cli.EnvVars("DOCAUDIT_GATE_THRESHOLD"),
			Destination: &cfg.gateThreshold,
		},
	}
}

// exportFlags returns flags for the BigQuery quality row export
func exportFlags(cfg *config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "bigquery-project",
			Usage:       "Google Cloud project ID of the export dataset",
			Sources:     cli.EnvVars("DOCAUDIT_BIGQUERY_PROJECT"),
			Destination: &cfg.bigqueryProject,
		},
		&cli.StringFlag{
			Name:        "bigquery-dataset",
			Usage:       "BigQuery dataset receiving quality rows",
			Sources:     cli.EnvVars("DOCAUDIT_BIGQUERY_DATASET"),
			Destination: &cfg.bigqueryDataset,
		},
		&cli.StringFlag{
			Name:        "bigquery-table",
			Usage:       "BigQuery table receiving quality rows",
			Value:       "document_quality",
			Sources:     cli.EnvVars("DOCAUDIT_BIGQUERY_TABLE"),
			Destination: &cfg.bigqueryTable,
		},
	}
}

// setupLogger attaches the configured logger to ctx
func (cfg *config) setupLogger(ctx context.Context, w io.Writer) (context.Context, error) {
	format, err := logging.ParseFormat(cfg.logFormat)
	if err != nil {
		return ctx, err
	}
	if w == nil {
		w = os.Stderr
	}

	logger := logging.NewWithFormat(cfg.logLevel, format, w)
	logging.SetDefault(logger)
	return logging.With(ctx, logger), nil
}

// requireBucket returns the configured bucket or an error
func (cfg *config) requireBucket() (string, error) {
	if cfg.bucket == "" {
		return "", goerr.New("bucket is required")
	}
	return cfg.bucket, nil
}

// newStore creates the configured object store
func (cfg *config) newStore(ctx context.Context) (interfaces.ObjectStore, error) {
	switch cfg.store {
	case storeGCS, "":
		store, err := adapter.NewStorage(ctx)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to create storage")
		}
		return store, nil

	case storeS3:
		var opts []adapter.S3Option
		if cfg.s3Endpoint != "" {
			opts = append(opts, adapter.WithS3Endpoint(cfg.s3Endpoint))
		}
		store, err := adapter.NewS3(ctx, cfg.awsRegion, opts...)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to create S3 store")
		}
		return store, nil

	case storeFS:
		if cfg.fsRoot == "" {
			return nil, goerr.New("fs-root is required for the fs store")
		}
		store, err := adapter.NewFileSystem(cfg.fsRoot)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to create filesystem store")
		}
		return store, nil

	default:
		return nil, goerr.New("unknown store backend", goerr.Value("store", cfg.store))
	}
}

// newGemini creates a new Gemini adapter instance
func (cfg *config) newGemini(ctx context.Context) (*adapter.GeminiClient, error) {
	if cfg.geminiProject == "" {
		return nil, goerr.New("gemini-project is required")
	}
	if cfg.geminiLocation == "" {
		return nil, goerr.New("gemini-location is required")
	}
	return adapter.NewGemini(ctx, cfg.geminiProject, cfg.geminiLocation,
		adapter.WithGenerativeModel(cfg.geminiModel),
		adapter.WithEmbeddingModel(cfg.embeddingModel),
		adapter.WithTemperature(float32(cfg.temperature)),
		adapter.WithResponseSchema(quality.AnswerSchema()),
	)
}

// newSimilarity creates the duplicate detection engine with the configured
// thresholds
func (cfg *config) newSimilarity(embedder interfaces.Embedder) *similarity.Engine {
	return similarity.New(embedder,
		similarity.WithGateThreshold(cfg.gateThreshold),
		similarity.WithDuplicateThreshold(cfg.duplicateThreshold),
	)
}

// newCache creates the local manifest cache, or nil when no directory is set
func (cfg *config) newCache() (interfaces.ManifestCache, error) {
	if cfg.cacheDir == "" {
		return nil, nil
	}
	cache, err := repository.NewCache(cfg.cacheDir)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create manifest cache")
	}
	return cache, nil
}

// newRepository creates the scan history repository, or nil when Firestore is
// not configured
func (cfg *config) newRepository(ctx context.Context) (interfaces.ScanRepository, error) {
	if cfg.firestoreProj == "" {
		return nil, nil
	}

	repo, err := repository.NewFirestore(ctx, cfg.firestoreProj, cfg.firestoreDB)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create repository")
	}
	return repo, nil
}

// newExporter creates the BigQuery exporter, or nil when no dataset is set
func (cfg *config) newExporter(ctx context.Context) (interfaces.Exporter, error) {
	if cfg.bigqueryDataset == "" {
		return nil, nil
	}

	project := cfg.bigqueryProject
	if project == "" {
		project = cfg.geminiProject
	}
	if project == "" {
		return nil, goerr.New("bigquery-project is required")
	}

	exporter, err := adapter.NewBigQuery(ctx, project, cfg.bigqueryDataset, cfg.bigqueryTable)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create exporter")
	}
	return exporter, nil
}
