package results

import (
	"time"

	"github.com/m-mizutani/docaudit/pkg/interfaces"
	"github.com/m-mizutani/docaudit/pkg/usecase/similarity"
)

const (
	// MaxReconstructRecords caps how many artifacts a reconstruction reads
	MaxReconstructRecords = 50

	reconstructedModel = "unknown"
	readConcurrency    = 8
)

// UseCase serves consolidated reads: manifests, per-document records and the
// local history of processed batches.
type UseCase struct {
	store    interfaces.ObjectStore
	cache    interfaces.ManifestCache
	repo     interfaces.ScanRepository
	prefixes []string

	duplicateThreshold float64
	now                func() time.Time
}

// Option is a functional option for UseCase
type Option func(*UseCase)

// WithCache enables the local manifest cache for fallback reads and history
func WithCache(cache interfaces.ManifestCache) Option {
	return func(uc *UseCase) {
		uc.cache = cache
	}
}

// WithRepository serves scan summaries from a scan history repository
func WithRepository(repo interfaces.ScanRepository) Option {
	return func(uc *UseCase) {
		uc.repo = repo
	}
}

// WithPrefixes sets the prefixes searched when a manifest must be rebuilt
func WithPrefixes(prefixes ...string) Option {
	return func(uc *UseCase) {
		uc.prefixes = prefixes
	}
}

// WithDuplicateThreshold sets the cosine threshold of cross-history duplicates
func WithDuplicateThreshold(v float64) Option {
	return func(uc *UseCase) {
		uc.duplicateThreshold = v
	}
}

// WithClock replaces the time source
func WithClock(now func() time.Time) Option {
	return func(uc *UseCase) {
		uc.now = now
	}
}

// New creates a results UseCase
func New(store interfaces.ObjectStore, opts ...Option) *UseCase {
	uc := &UseCase{
		store:              store,
		duplicateThreshold: similarity.DefaultDuplicateThreshold,
		now:                time.Now,
	}

	for _, opt := range opts {
		opt(uc)
	}

	return uc
}
