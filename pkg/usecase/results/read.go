package results

import (
	"context"
	"encoding/json"
	"errors"
	"path"
	"sort"

	"github.com/m-mizutani/docaudit/pkg/model"
	"github.com/m-mizutani/docaudit/pkg/service/lookup"
	"github.com/m-mizutani/docaudit/pkg/usecase/similarity"
	"github.com/m-mizutani/docaudit/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
)

// Lookup reads key, retrying against a similarly named sibling when it is
// absent. It returns the key that was actually read.
func (uc *UseCase) Lookup(ctx context.Context, bucket, key string) ([]byte, string, error) {
	if bucket == "" {
		return nil, key, goerr.Wrap(model.ErrEmptyBucket, "failed to look up key")
	}
	return lookup.Read(ctx, uc.store, bucket, key)
}

// GetManifest loads a manifest. When a manifest-shaped key is missing from
// the store, the local cache copy is used, and failing that the manifest is
// rebuilt from per-document artifacts. An empty key selects the newest
// manifest under the configured prefixes.
func (uc *UseCase) GetManifest(ctx context.Context, bucket, key string) (*model.BatchManifest, error) {
	logger := logging.From(ctx)

	if key == "" {
		latest, err := uc.latestManifestKey(ctx, bucket)
		if err != nil {
			return nil, err
		}
		if latest == "" {
			logger.Info("no manifest found, reconstructing")
			return uc.Reconstruct(ctx, bucket, nil), nil
		}
		key = latest
	}

	data, resolved, err := uc.Lookup(ctx, bucket, key)
	if err == nil {
		var m model.BatchManifest
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, goerr.Wrap(err, "failed to decode manifest", goerr.Value("key", resolved))
		}
		return &m, nil
	}
	if !errors.Is(err, model.ErrNotFound) || !model.IsManifestKey(key) {
		return nil, err
	}

	if uc.cache != nil {
		cached, cacheErr := uc.cache.Get(ctx, path.Base(key))
		if cacheErr == nil {
			logger.Info("manifest served from local cache", "key", key)
			return cached, nil
		}
		if !errors.Is(cacheErr, model.ErrNotFound) {
			logger.Warn("failed to read cached manifest", "key", key, "error", cacheErr)
		}
	}

	prefixes := uc.prefixes
	if parent := lookup.ParentPrefix(key); !contains(prefixes, parent) {
		prefixes = append(append([]string{}, prefixes...), parent)
	}
	logger.Info("manifest missing, reconstructing", "key", key, "prefixes", prefixes)
	return uc.Reconstruct(ctx, bucket, prefixes), nil
}

// latestManifestKey returns the newest manifest key under the configured
// prefixes, or "" when there is none.
func (uc *UseCase) latestManifestKey(ctx context.Context, bucket string) (string, error) {
	prefixes := uc.prefixes
	if len(prefixes) == 0 {
		prefixes = []string{""}
	}

	var manifests []*model.ObjectInfo
	for _, prefix := range prefixes {
		objects, err := uc.store.List(ctx, bucket, prefix)
		if err != nil {
			return "", goerr.Wrap(err, "failed to list manifests", goerr.Value("prefix", prefix))
		}
		for _, obj := range objects {
			if !obj.IsFolder && model.IsManifestKey(obj.Key) {
				manifests = append(manifests, obj)
			}
		}
	}
	if len(manifests) == 0 {
		return "", nil
	}

	// manifest names embed their UTC timestamp, so name order is time order
	sort.Slice(manifests, func(i, j int) bool {
		return path.Base(manifests[i].Key) > path.Base(manifests[j].Key)
	})
	return manifests[0].Key, nil
}

// GetRecord loads the record of one document, given either its source key or
// its artifact key. Duplicates found among cached manifests are added to the
// returned record; the stored artifact is not changed.
func (uc *UseCase) GetRecord(ctx context.Context, bucket, key string) (*model.DocumentRecord, error) {
	recordKey := key
	if !model.IsRecordKey(key) {
		recordKey = model.RecordKey(key)
	}

	data, resolved, err := uc.Lookup(ctx, bucket, recordKey)
	if err != nil {
		return nil, err
	}

	var rec model.DocumentRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, goerr.Wrap(err, "failed to decode record", goerr.Value("key", resolved))
	}

	if len(rec.Embedding) == 0 || uc.cache == nil {
		return &rec, nil
	}

	history, err := uc.cachedRecords(ctx)
	if err != nil {
		logging.From(ctx).Warn("failed to load history for duplicate check", "error", err)
		return &rec, nil
	}
	rec.PotentialDuplicates = mergeLinks(rec.PotentialDuplicates,
		similarity.FindAcross(&rec, history, uc.duplicateThreshold))
	return &rec, nil
}

// cachedRecords collects the successful records of every cached manifest.
func (uc *UseCase) cachedRecords(ctx context.Context) ([]*model.DocumentRecord, error) {
	entries, err := uc.cache.List(ctx)
	if err != nil {
		return nil, err
	}

	var records []*model.DocumentRecord
	for _, e := range entries {
		m, err := uc.cache.Get(ctx, e.Name)
		if err != nil {
			logging.From(ctx).Warn("skip unreadable cached manifest", "name", e.Name, "error", err)
			continue
		}
		for _, f := range m.Files {
			if f.IsSuccess() {
				records = append(records, f)
			}
		}
	}
	return records, nil
}

// mergeLinks adds links whose file key is not already present.
func mergeLinks(existing, found []*model.DuplicateLink) []*model.DuplicateLink {
	seen := make(map[string]struct{}, len(existing))
	merged := append([]*model.DuplicateLink{}, existing...)
	for _, l := range existing {
		seen[l.FileKey] = struct{}{}
	}
	for _, l := range found {
		if _, ok := seen[l.FileKey]; ok {
			continue
		}
		seen[l.FileKey] = struct{}{}
		merged = append(merged, l)
	}
	return merged
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
