package results

import (
	"context"
	"path"
	"time"

	"github.com/m-mizutani/docaudit/pkg/model"
	"github.com/m-mizutani/docaudit/pkg/usecase/similarity"
	"github.com/m-mizutani/docaudit/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
)

// HistoryEntry describes one cached manifest
type HistoryEntry struct {
	Name          string                 `json:"name" yaml:"name"`
	ModifiedAt    time.Time              `json:"modified_at" yaml:"modified_at"`
	Size          int64                  `json:"size" yaml:"size"`
	TotalFiles    int                    `json:"total_files" yaml:"total_files"`
	Successful    int                    `json:"successful" yaml:"successful"`
	Failed        int                    `json:"failed" yaml:"failed"`
	HasDuplicates bool                   `json:"has_duplicates" yaml:"has_duplicates"`
	MaxSimilarity float64                `json:"max_similarity,omitempty" yaml:"max_similarity,omitempty"`
	Duplicates    []*model.DuplicateLink `json:"duplicates,omitempty" yaml:"duplicates,omitempty"`
}

// History lists cached manifests newest first. Each entry reports whether any
// of its documents duplicates a document anywhere in the cached history.
func (uc *UseCase) History(ctx context.Context) ([]*HistoryEntry, error) {
	if uc.cache == nil {
		return []*HistoryEntry{}, nil
	}

	entries, err := uc.cache.List(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list history")
	}

	all, err := uc.cachedRecords(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to load history records")
	}

	result := make([]*HistoryEntry, 0, len(entries))
	for _, e := range entries {
		h := &HistoryEntry{
			Name:       e.Name,
			ModifiedAt: e.ModifiedAt,
			Size:       e.Size,
		}
		result = append(result, h)

		m, err := uc.cache.Get(ctx, e.Name)
		if err != nil {
			logging.From(ctx).Warn("failed to read cached manifest", "name", e.Name, "error", err)
			continue
		}
		h.TotalFiles, h.Successful, h.Failed = m.TotalFiles, m.Successful, m.Failed

		byName := make(map[string]*model.DuplicateLink)
		var order []string
		for _, f := range m.Files {
			if !f.IsSuccess() {
				continue
			}
			for _, link := range similarity.FindAcross(f, all, uc.duplicateThreshold) {
				if _, ok := byName[link.FileName]; !ok {
					order = append(order, link.FileName)
				}
				byName[link.FileName] = link
			}
		}

		for _, name := range order {
			link := byName[name]
			h.Duplicates = append(h.Duplicates, link)
			if link.Similarity > h.MaxSimilarity {
				h.MaxSimilarity = link.Similarity
			}
		}
		h.HasDuplicates = len(h.Duplicates) > 0
	}

	return result, nil
}

// HistoryContent returns a cached manifest with cross-history duplicates
// added to each of its documents.
func (uc *UseCase) HistoryContent(ctx context.Context, name string) (*model.BatchManifest, error) {
	if uc.cache == nil {
		return nil, goerr.Wrap(model.ErrNotFound, "no local history configured")
	}

	m, err := uc.cache.Get(ctx, path.Base(name))
	if err != nil {
		return nil, err
	}

	all, err := uc.cachedRecords(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to load history records")
	}

	for _, f := range m.Files {
		if !f.IsSuccess() {
			continue
		}
		f.PotentialDuplicates = mergeLinks(f.PotentialDuplicates,
			similarity.FindAcross(f, all, uc.duplicateThreshold))
	}
	return m, nil
}

// ScanHistory returns up to limit scan summaries, newest first. Without a
// scan repository the summaries are derived from the cached manifests.
func (uc *UseCase) ScanHistory(ctx context.Context, bucket string, limit int) ([]*model.ScanSummary, error) {
	if uc.repo != nil {
		scans, err := uc.repo.ListScans(ctx, 0, limit)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to list scans")
		}
		return scans, nil
	}

	scans := []*model.ScanSummary{}
	if uc.cache == nil {
		return scans, nil
	}

	entries, err := uc.cache.List(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list history")
	}
	for _, e := range entries {
		if limit > 0 && len(scans) >= limit {
			break
		}
		m, err := uc.cache.Get(ctx, e.Name)
		if err != nil {
			logging.From(ctx).Warn("failed to read cached manifest", "name", e.Name, "error", err)
			continue
		}
		scans = append(scans, m.Summarize(bucket, e.Name))
	}
	return scans, nil
}
