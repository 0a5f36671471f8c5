package repository

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/m-mizutani/docaudit/pkg/interfaces"
	"github.com/m-mizutani/docaudit/pkg/model"
	"github.com/m-mizutani/docaudit/pkg/utils/fileutil"
	"github.com/m-mizutani/goerr/v2"
)

// Cache mirrors written manifests into a local directory so history and
// manifest reads keep working when the object store copy is unavailable.
type Cache struct {
	dir string
}

var _ interfaces.ManifestCache = (*Cache)(nil)

// NewCache creates a manifest cache rooted at dir
func NewCache(dir string) (*Cache, error) {
	if dir == "" {
		return nil, goerr.New("cache directory is required")
	}
	return &Cache{dir: dir}, nil
}

func (c *Cache) Put(ctx context.Context, manifest *model.BatchManifest) error {
	if manifest == nil {
		return goerr.New("manifest is required")
	}

	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return goerr.Wrap(err, "failed to marshal manifest", goerr.Value("id", manifest.ID))
	}

	dst := filepath.Join(c.dir, manifest.FileName())
	if err := fileutil.WriteAtomic(dst, data); err != nil {
		return goerr.Wrap(err, "failed to write cached manifest", goerr.Value("path", dst))
	}
	return nil
}

// Get loads a cached manifest by its base name. Any directory part of name
// is ignored.
func (c *Cache) Get(ctx context.Context, name string) (*model.BatchManifest, error) {
	base := filepath.Base(filepath.FromSlash(name))
	if base == "." || base == string(filepath.Separator) || fileutil.IsTemp(base) {
		return nil, goerr.Wrap(model.ErrNotFound, "invalid cache entry name", goerr.Value("name", name))
	}

	data, err := os.ReadFile(filepath.Join(c.dir, base))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, goerr.Wrap(model.ErrNotFound, "manifest not cached", goerr.Value("name", base))
		}
		return nil, goerr.Wrap(err, "failed to read cached manifest", goerr.Value("name", base))
	}

	var manifest model.BatchManifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil, goerr.Wrap(err, "failed to decode cached manifest", goerr.Value("name", base))
	}
	return &manifest, nil
}

func (c *Cache) List(ctx context.Context) ([]*interfaces.CacheEntry, error) {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []*interfaces.CacheEntry{}, nil
		}
		return nil, goerr.Wrap(err, "failed to read cache directory", goerr.Value("dir", c.dir))
	}

	result := []*interfaces.CacheEntry{}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") || !model.IsManifestKey(e.Name()) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		result = append(result, &interfaces.CacheEntry{
			Name:       e.Name(),
			ModifiedAt: info.ModTime(),
			Size:       info.Size(),
		})
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].ModifiedAt.Equal(result[j].ModifiedAt) {
			return result[i].ModifiedAt.After(result[j].ModifiedAt)
		}
		return result[i].Name > result[j].Name
	})
	return result, nil
}
