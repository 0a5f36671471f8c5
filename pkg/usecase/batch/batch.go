package batch

import (
	"time"

	"github.com/m-mizutani/docaudit/pkg/interfaces"
	"github.com/m-mizutani/docaudit/pkg/model"
	"github.com/m-mizutani/docaudit/pkg/usecase/similarity"
)

const (
	// MaxEmbeddingRunes bounds the text sent to the embedder
	MaxEmbeddingRunes = 8000

	DefaultResultsPrefix = "quality-results/"
)

// UseCase runs the analysis pipeline over a list of document keys
type UseCase struct {
	store     interfaces.ObjectStore
	extractor interfaces.TextExtractor
	llm       interfaces.LLMClient
	embedder  interfaces.Embedder
	engine    *similarity.Engine

	cache    interfaces.ManifestCache
	repo     interfaces.ScanRepository
	exporter interfaces.Exporter

	resultsPrefix string
	defaultModel  string
	now           func() time.Time
	onProgress    func(done, total int, record *model.DocumentRecord)
}

// Option is a functional option for UseCase
type Option func(*UseCase)

// WithClock replaces the time source
func WithClock(now func() time.Time) Option {
	return func(uc *UseCase) {
		uc.now = now
	}
}

// WithCache mirrors every written manifest into a local cache
func WithCache(cache interfaces.ManifestCache) Option {
	return func(uc *UseCase) {
		uc.cache = cache
	}
}

// WithRepository records a scan summary per batch
func WithRepository(repo interfaces.ScanRepository) Option {
	return func(uc *UseCase) {
		uc.repo = repo
	}
}

// WithExporter ships quality rows after each batch
func WithExporter(exporter interfaces.Exporter) Option {
	return func(uc *UseCase) {
		uc.exporter = exporter
	}
}

// WithResultsPrefix sets the key prefix manifests are written under
func WithResultsPrefix(prefix string) Option {
	return func(uc *UseCase) {
		uc.resultsPrefix = prefix
	}
}

// WithSimilarity replaces the similarity engine
func WithSimilarity(engine *similarity.Engine) Option {
	return func(uc *UseCase) {
		uc.engine = engine
	}
}

// WithDefaultModel sets the model name used when Params.Model is empty
func WithDefaultModel(name string) Option {
	return func(uc *UseCase) {
		uc.defaultModel = name
	}
}

// WithProgress registers a callback invoked after each key is handled
func WithProgress(fn func(done, total int, record *model.DocumentRecord)) Option {
	return func(uc *UseCase) {
		uc.onProgress = fn
	}
}

// New creates a batch UseCase. embedder may be nil, which leaves every
// embedding empty.
func New(
	store interfaces.ObjectStore,
	extractor interfaces.TextExtractor,
	llm interfaces.LLMClient,
	embedder interfaces.Embedder,
	opts ...Option,
) *UseCase {
	uc := &UseCase{
		store:         store,
		extractor:     extractor,
		llm:           llm,
		embedder:      embedder,
		resultsPrefix: DefaultResultsPrefix,
		now:           time.Now,
	}

	for _, opt := range opts {
		opt(uc)
	}

	if uc.engine == nil {
		uc.engine = similarity.New(embedder)
	}

	return uc
}

// ResultsPrefix returns the prefix manifests are written under
func (uc *UseCase) ResultsPrefix() string {
	return uc.resultsPrefix
}
