package batch

import (
	"context"
	"encoding/json"
	"errors"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/m-mizutani/docaudit/pkg/model"
	"github.com/m-mizutani/docaudit/pkg/service/lookup"
	"github.com/m-mizutani/docaudit/pkg/usecase/quality"
	"github.com/m-mizutani/docaudit/pkg/usecase/similarity"
	"github.com/m-mizutani/docaudit/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
)

// Params holds per-batch settings
type Params struct {
	// Model is passed to the language model client; empty selects the default
	Model string
}

// Result is a processed batch and where its manifest was written
type Result struct {
	Manifest    *model.BatchManifest
	ManifestKey string
	// Persisted is false when the manifest could not be written to the store
	Persisted bool
}

// Process analyzes every key in keys and writes one artifact per document
// plus a consolidated manifest. Per-document failures become error records;
// only an unusable bucket fails the batch.
func (uc *UseCase) Process(ctx context.Context, bucket string, keys []string, params Params) (*Result, error) {
	if bucket == "" {
		return nil, goerr.Wrap(model.ErrEmptyBucket, "failed to process batch")
	}

	modelName := params.Model
	if modelName == "" {
		modelName = uc.defaultModel
	}

	logger := logging.From(ctx).With("bucket", bucket)
	logger.Info("start batch", "keys", len(keys), "model", modelName)

	run := &batchRun{
		uc:       uc,
		bucket:   bucket,
		model:    modelName,
		listings: make(map[string]map[string]*model.ObjectInfo),
		prefixes: make(map[string]struct{}),
	}

	records := make([]*model.DocumentRecord, 0, len(keys))
	for i, key := range keys {
		if model.IsFolderKey(key) {
			logger.Debug("skip folder key", "key", key)
			continue
		}

		var rec *model.DocumentRecord
		if err := ctx.Err(); err != nil {
			rec = model.NewErrorRecord(bucket, key, "batch cancelled: "+err.Error(), uc.now())
		} else {
			rec = run.processKey(ctx, key)
			run.writeRecord(ctx, rec)
		}
		records = append(records, rec)

		if uc.onProgress != nil {
			uc.onProgress(i+1, len(keys), rec)
		}
	}

	records, pairs := uc.detect(ctx, records)

	manifest := model.NewManifest(records, modelName, uc.now())
	manifest.SimilarityPairs = pairs
	manifest.DuplicatePairs = similarity.DuplicatePairs(pairs)

	result := &Result{
		Manifest:    manifest,
		ManifestKey: uc.resultsPrefix + manifest.FileName(),
	}
	result.Persisted = uc.persist(context.WithoutCancel(ctx), bucket, result, run.prefixes)

	logger.Info("batch finished",
		"total", manifest.TotalFiles,
		"successful", manifest.Successful,
		"failed", manifest.Failed,
		"duplicates", len(manifest.DuplicatePairs),
		"manifest", result.ManifestKey,
	)
	return result, nil
}

// detect runs similarity over the successful records and puts the annotated
// copies back in place.
func (uc *UseCase) detect(ctx context.Context, records []*model.DocumentRecord) ([]*model.DocumentRecord, []*model.SimilarityPair) {
	var idx []int
	var successes []*model.DocumentRecord
	for i, r := range records {
		if r.IsSuccess() {
			idx = append(idx, i)
			successes = append(successes, r)
		}
	}
	if len(successes) < 2 {
		return records, []*model.SimilarityPair{}
	}

	annotated, pairs := uc.engine.Detect(ctx, successes)
	out := make([]*model.DocumentRecord, len(records))
	copy(out, records)
	for n, i := range idx {
		out[i] = annotated[n]
	}
	return out, pairs
}

type batchRun struct {
	uc     *UseCase
	bucket string
	model  string
	// listings caches one listing per parent prefix for upload dates
	listings map[string]map[string]*model.ObjectInfo
	// prefixes collects the parent prefixes artifacts were written under
	prefixes map[string]struct{}
}

// writeRecord stores the artifact of one document as soon as it is handled,
// so it survives a batch cancelled later on.
func (r *batchRun) writeRecord(ctx context.Context, rec *model.DocumentRecord) {
	key := rec.ArtifactKey()
	if err := r.uc.writeJSON(context.WithoutCancel(ctx), r.bucket, key, rec); err != nil {
		logging.From(ctx).Error("failed to write document record", "key", key, "error", err)
		return
	}
	r.prefixes[lookup.ParentPrefix(key)] = struct{}{}
}

func (r *batchRun) processKey(ctx context.Context, key string) *model.DocumentRecord {
	uc := r.uc
	logger := logging.From(ctx).With("key", key)

	data, resolved, err := lookup.Read(ctx, uc.store, r.bucket, key)
	if err != nil {
		logger.Warn("failed to read document", "error", err)
		return model.NewErrorRecord(r.bucket, key, err.Error(), uc.now())
	}

	fileType := model.FileType(resolved)
	uploadDate, ageDays := r.uploadInfo(ctx, resolved)

	extraction := uc.extractor.Extract(ctx, data, fileType)
	if extraction.Failed() {
		logger.Warn("extraction failed", "reason", extraction.Reason())
		rec := model.NewErrorRecord(r.bucket, resolved, extraction.Reason(), uc.now())
		rec.FileType = fileType
		rec.UploadDate = uploadDate
		rec.UploadAgeDays = ageDays
		return rec
	}
	text := extraction.Text()
	fileName := path.Base(resolved)

	answer, err := quality.Score(ctx, uc.llm, r.model, text, fileName)
	if err != nil {
		logger.Warn("model call failed", "error", err)
		rec := model.NewErrorRecord(r.bucket, resolved, err.Error(), uc.now())
		rec.FileType = fileType
		rec.UploadDate = uploadDate
		rec.UploadAgeDays = ageDays
		return rec
	}

	assessment := quality.Assess(answer, ageDays)

	rec := &model.DocumentRecord{
		FileKey:             resolved,
		FileName:            fileName,
		Bucket:              r.bucket,
		FileType:            fileType,
		UploadDate:          uploadDate,
		UploadAgeDays:       ageDays,
		Summary:             answer.Summary(),
		Context:             answer.Context(),
		DocumentType:        answer.DocumentType(),
		Metadata:            answer.Metadata(),
		Dimensions:          assessment.Dimensions,
		OverallQualityScore: assessment.Overall,
		RecommendedAction:   assessment.Action,
		Embedding:           r.embed(ctx, text),
		PotentialDuplicates: []*model.DuplicateLink{},
		Status:              model.StatusSuccess,
		ProcessedAt:         uc.now(),
	}

	logger.Debug("document scored", "overall", rec.OverallQualityScore, "action", rec.RecommendedAction)
	return rec
}

// embed returns an empty vector when no embedder is set or the call fails.
func (r *batchRun) embed(ctx context.Context, text string) []float64 {
	if r.uc.embedder == nil {
		return nil
	}
	vec, err := r.uc.embedder.Embed(ctx, quality.Truncate(text, MaxEmbeddingRunes))
	if err != nil {
		logging.From(ctx).Warn("failed to embed document", "error", err)
		return nil
	}
	return vec
}

// uploadInfo looks up key's last-modified time in its parent listing. Both
// values are nil when the store reports no usable time.
func (r *batchRun) uploadInfo(ctx context.Context, key string) (*time.Time, *int) {
	prefix := lookup.ParentPrefix(key)
	objects, ok := r.listings[prefix]
	if !ok {
		objects = make(map[string]*model.ObjectInfo)
		list, err := r.uc.store.List(ctx, r.bucket, prefix)
		if err != nil {
			logging.From(ctx).Warn("failed to list prefix for upload date", "prefix", prefix, "error", err)
		}
		for _, obj := range list {
			objects[obj.Key] = obj
		}
		r.listings[prefix] = objects
	}

	obj, ok := objects[key]
	if !ok || obj.LastModified.IsZero() {
		return nil, nil
	}

	uploaded := obj.LastModified.UTC()
	age := int(r.uc.now().Sub(uploaded).Hours() / 24)
	if age < 0 {
		age = 0
	}
	return &uploaded, &age
}

// persist rewrites the artifacts annotated with duplicates, records where
// artifacts were written, then writes, mirrors and exports the manifest. It
// reports whether the manifest reached the store.
func (uc *UseCase) persist(ctx context.Context, bucket string, result *Result, prefixes map[string]struct{}) bool {
	logger := logging.From(ctx)
	manifest := result.Manifest

	for _, rec := range manifest.Files {
		if len(rec.PotentialDuplicates) == 0 {
			continue
		}
		if err := uc.writeJSON(ctx, bucket, rec.ArtifactKey(), rec); err != nil {
			logger.Error("failed to write document record", "key", rec.ArtifactKey(), "error", err)
		}
	}

	if err := uc.updatePrefixIndex(ctx, bucket, prefixes); err != nil {
		logger.Warn("failed to update prefix index", "error", err)
	}

	persisted := true
	if err := uc.writeJSON(ctx, bucket, result.ManifestKey, manifest); err != nil {
		logger.Error("failed to write manifest", "key", result.ManifestKey, "error", err)
		persisted = false
	}

	if uc.cache != nil {
		if err := uc.cache.Put(ctx, manifest); err != nil {
			logger.Warn("failed to mirror manifest to local cache", "error", err)
		}
	}

	if uc.repo != nil {
		if err := uc.repo.PutScan(ctx, manifest.Summarize(bucket, result.ManifestKey)); err != nil {
			logger.Warn("failed to record scan summary", "error", err)
		}
	}

	if uc.exporter != nil {
		if err := uc.exporter.ExportRecords(ctx, manifest); err != nil {
			logger.Warn("failed to export quality rows", "error", err)
		}
	}

	return persisted
}

// updatePrefixIndex merges prefixes into the index under the results prefix.
// The index is left untouched when it already lists all of them.
func (uc *UseCase) updatePrefixIndex(ctx context.Context, bucket string, prefixes map[string]struct{}) error {
	if len(prefixes) == 0 {
		return nil
	}

	key := uc.resultsPrefix + model.PrefixIndexName
	var index model.PrefixIndex
	data, err := uc.store.Read(ctx, bucket, key)
	switch {
	case err == nil:
		if err := json.Unmarshal(data, &index); err != nil {
			logging.From(ctx).Warn("replacing corrupted prefix index", "key", key, "error", err)
			index = model.PrefixIndex{}
		}
	case errors.Is(err, model.ErrNotFound):
	default:
		return goerr.Wrap(err, "failed to read prefix index", goerr.Value("key", key))
	}

	list := make([]string, 0, len(prefixes))
	for p := range prefixes {
		list = append(list, p)
	}
	if !index.Add(list...) {
		return nil
	}
	index.UpdatedAt = uc.now()
	return uc.writeJSON(ctx, bucket, key, &index)
}

func (uc *UseCase) writeJSON(ctx context.Context, bucket, key string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return goerr.Wrap(err, "failed to marshal", goerr.Value("key", key))
	}
	return uc.store.Write(ctx, bucket, key, data)
}

// SortKeys orders listed objects by key and drops folders and generated
// artifacts, giving the documents a scan should process.
func SortKeys(objects []*model.ObjectInfo) []string {
	keys := make([]string, 0, len(objects))
	for _, obj := range objects {
		if obj.IsFolder || model.IsFolderKey(obj.Key) {
			continue
		}
		if strings.HasSuffix(obj.Key, model.RecordSuffix) || model.IsManifestKey(obj.Key) || model.IsPrefixIndexKey(obj.Key) {
			continue
		}
		keys = append(keys, obj.Key)
	}
	sort.Strings(keys)
	return keys
}
