package results

import (
	"context"
	"encoding/json"
	"errors"
	"path"
	"sort"

	"github.com/m-mizutani/docaudit/pkg/model"
	"github.com/m-mizutani/docaudit/pkg/usecase/similarity"
	"github.com/m-mizutani/docaudit/pkg/utils/logging"
	"golang.org/x/sync/errgroup"
)

// Reconstruct rebuilds a manifest from the per-document artifacts found
// directly under prefixes, plus the document prefixes listed in a prefix
// index under any of them. It always returns a manifest: listing failures
// contribute no candidates and unreadable artifacts become error records.
func (uc *UseCase) Reconstruct(ctx context.Context, bucket string, prefixes []string) *model.BatchManifest {
	logger := logging.From(ctx).With("bucket", bucket)

	if len(prefixes) == 0 {
		prefixes = uc.prefixes
	}
	if len(prefixes) == 0 {
		prefixes = []string{""}
	}
	prefixes = uc.knownPrefixes(ctx, bucket, prefixes)

	seen := make(map[string]struct{})
	var candidates []*model.ObjectInfo
	for _, prefix := range prefixes {
		objects, err := uc.store.List(ctx, bucket, prefix)
		if err != nil {
			logger.Warn("failed to list prefix for reconstruction", "prefix", prefix, "error", err)
			continue
		}
		for _, obj := range objects {
			if obj == nil || obj.IsFolder || !model.IsRecordKey(obj.Key) {
				continue
			}
			if _, ok := seen[obj.Key]; ok {
				continue
			}
			seen[obj.Key] = struct{}{}
			candidates = append(candidates, obj)
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if !candidates[i].LastModified.Equal(candidates[j].LastModified) {
			return candidates[i].LastModified.After(candidates[j].LastModified)
		}
		return candidates[i].Key < candidates[j].Key
	})
	if len(candidates) > MaxReconstructRecords {
		candidates = candidates[:MaxReconstructRecords]
	}

	// readRecord never fails, so Wait only synchronizes
	files := make([]*model.DocumentRecord, len(candidates))
	var eg errgroup.Group
	eg.SetLimit(readConcurrency)
	for i, c := range candidates {
		eg.Go(func() error {
			files[i] = uc.readRecord(ctx, bucket, c.Key)
			return nil
		})
	}
	_ = eg.Wait()

	m := model.NewManifest(files, reconstructedModel, uc.now())
	m.Reconstructed = true
	m.DuplicatePairs = PairsFromLinks(files)

	logger.Info("reconstructed manifest", "candidates", len(candidates), "successful", m.Successful, "failed", m.Failed)
	return m
}

// knownPrefixes extends prefixes with the entries of the prefix index stored
// under each of them. A missing or unreadable index adds nothing.
func (uc *UseCase) knownPrefixes(ctx context.Context, bucket string, prefixes []string) []string {
	known := append([]string{}, prefixes...)
	for _, prefix := range prefixes {
		key := prefix + model.PrefixIndexName
		data, err := uc.store.Read(ctx, bucket, key)
		if err != nil {
			if !errors.Is(err, model.ErrNotFound) {
				logging.From(ctx).Warn("failed to read prefix index", "key", key, "error", err)
			}
			continue
		}

		var index model.PrefixIndex
		if err := json.Unmarshal(data, &index); err != nil {
			logging.From(ctx).Warn("corrupted prefix index", "key", key, "error", err)
			continue
		}
		for _, p := range index.Prefixes {
			if !contains(known, p) {
				known = append(known, p)
			}
		}
	}
	return known
}

// readRecord decodes one artifact, substituting an error record when it
// cannot be read or parsed.
func (uc *UseCase) readRecord(ctx context.Context, bucket, key string) *model.DocumentRecord {
	source := model.SourceKey(key)

	data, err := uc.store.Read(ctx, bucket, key)
	if err != nil {
		logging.From(ctx).Warn("failed to read record", "key", key, "error", err)
		return model.NewErrorRecord(bucket, source, "failed to read record: "+err.Error(), uc.now())
	}

	var rec model.DocumentRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		logging.From(ctx).Warn("corrupted record", "key", key, "error", err)
		return model.NewErrorRecord(bucket, source, "corrupted record: "+err.Error(), uc.now())
	}

	if rec.FileKey == "" {
		rec.FileKey = source
	}
	if rec.FileName == "" {
		rec.FileName = path.Base(rec.FileKey)
	}
	if rec.Bucket == "" {
		rec.Bucket = bucket
	}
	if rec.Status == "" {
		if len(rec.Dimensions) > 0 {
			rec.Status = model.StatusSuccess
		} else {
			rec.Status = model.StatusError
			rec.Error = "record has no status"
		}
	}
	return &rec
}

// PairsFromLinks turns the duplicate links carried by records into duplicate
// pairs, one per unordered pair of file names.
func PairsFromLinks(files []*model.DocumentRecord) []*model.SimilarityPair {
	var pairs []*model.SimilarityPair
	for _, f := range files {
		if !f.IsSuccess() {
			continue
		}
		for _, link := range f.PotentialDuplicates {
			if link == nil {
				continue
			}
			pairs = append(pairs, &model.SimilarityPair{
				FileA:              f.FileName,
				FileKeyA:           f.FileKey,
				FileB:              link.FileName,
				FileKeyB:           link.FileKey,
				Similarity:         link.Similarity,
				MetadataSimilarity: link.MetadataSimilarity,
				IsDuplicate:        true,
			})
		}
	}
	sort.SliceStable(pairs, func(i, j int) bool {
		return pairs[i].Similarity > pairs[j].Similarity
	})
	return similarity.DuplicatePairs(pairs)
}
