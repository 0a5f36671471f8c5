package lookup

import (
	"context"
	"errors"
	"path"
	"strings"

	"github.com/m-mizutani/docaudit/pkg/interfaces"
	"github.com/m-mizutani/docaudit/pkg/model"
	"github.com/m-mizutani/docaudit/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
)

// NormalizeName folds case and drops separators that commonly differ between
// a requested key and the stored one: spaces, underscores, hyphens, "%20" and "+".
func NormalizeName(name string) string {
	r := strings.NewReplacer("%20", "", "+", "", " ", "", "_", "", "-", "")
	return r.Replace(strings.ToLower(name))
}

// ParentPrefix returns the directory part of key including the trailing
// slash, or "" for a top-level key.
func ParentPrefix(key string) string {
	if i := strings.LastIndex(key, "/"); i >= 0 {
		return key[:i+1]
	}
	return ""
}

// MatchSibling picks the object whose base name matches key's base name after
// normalization. When no exact normalized match exists, a unique object whose
// normalized name contains the other (either way) is used. A sibling must be
// the same kind of object as key: documents, per-document artifacts and
// manifests never stand in for one another.
func MatchSibling(key string, objects []*model.ObjectInfo) (string, bool) {
	want := NormalizeName(path.Base(key))
	if want == "" {
		return "", false
	}

	var partial []string
	for _, obj := range objects {
		if obj == nil || obj.IsFolder || obj.Key == key || !sameKind(key, obj.Key) {
			continue
		}
		got := NormalizeName(path.Base(obj.Key))
		if got == "" {
			continue
		}
		if got == want {
			return obj.Key, true
		}
		if strings.Contains(got, want) || strings.Contains(want, got) {
			partial = append(partial, obj.Key)
		}
	}

	if len(partial) == 1 {
		return partial[0], true
	}
	return "", false
}

func sameKind(a, b string) bool {
	return model.IsRecordKey(a) == model.IsRecordKey(b) &&
		model.IsManifestKey(a) == model.IsManifestKey(b) &&
		model.IsPrefixIndexKey(a) == model.IsPrefixIndexKey(b)
}

// Read reads key and, when it is absent, retries once against a sibling in
// the same prefix chosen by MatchSibling. It returns the key actually read.
func Read(ctx context.Context, store interfaces.ObjectStore, bucket, key string) ([]byte, string, error) {
	data, err := store.Read(ctx, bucket, key)
	if err == nil {
		return data, key, nil
	}
	if !errors.Is(err, model.ErrNotFound) {
		return nil, key, err
	}

	prefix := ParentPrefix(key)
	objects, listErr := store.List(ctx, bucket, prefix)
	if listErr != nil {
		logging.From(ctx).Warn("failed to list siblings for retry", "prefix", prefix, "error", listErr)
		return nil, key, err
	}

	sibling, ok := MatchSibling(key, objects)
	if !ok {
		return nil, key, err
	}

	logging.From(ctx).Info("retrying with similar key", "requested", key, "resolved", sibling)
	data, retryErr := store.Read(ctx, bucket, sibling)
	if retryErr != nil {
		return nil, key, goerr.Wrap(retryErr, "failed to read similar key",
			goerr.Value("requested", key),
			goerr.Value("resolved", sibling))
	}
	return data, sibling, nil
}
