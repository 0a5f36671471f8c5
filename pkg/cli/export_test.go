package cli

import (
	"context"

	"github.com/m-mizutani/docaudit/pkg/usecase/batch"
	"github.com/m-mizutani/docaudit/pkg/usecase/results"
	"github.com/m-mizutani/docaudit/pkg/usecase/similarity"
)

// NewFileSystemResults builds the results usecase the get command would use
// for a file system store under root with default settings.
func NewFileSystemResults(ctx context.Context, root, bucket string, prefixes []string) (*results.UseCase, error) {
	cfg := &config{
		store:              storeFS,
		fsRoot:             root,
		bucket:             bucket,
		resultsPrefix:      batch.DefaultResultsPrefix,
		duplicateThreshold: similarity.DefaultDuplicateThreshold,
	}
	return newResults(ctx, cfg, prefixes)
}
