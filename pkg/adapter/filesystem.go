package adapter

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/m-mizutani/docaudit/pkg/interfaces"
	"github.com/m-mizutani/docaudit/pkg/model"
	"github.com/m-mizutani/docaudit/pkg/utils/fileutil"
	"github.com/m-mizutani/goerr/v2"
)

// fsStore implements interfaces.ObjectStore on a local directory. Each bucket
// is a subdirectory of root and keys are slash separated paths below it.
type fsStore struct {
	root string
}

var _ interfaces.ObjectStore = (*fsStore)(nil)

// NewFileSystem creates an object store rooted at dir
func NewFileSystem(dir string) (interfaces.ObjectStore, error) {
	if dir == "" {
		return nil, goerr.New("root directory is required")
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to resolve root directory", goerr.Value("dir", dir))
	}
	return &fsStore{root: abs}, nil
}

func (s *fsStore) path(bucket, key string) (string, error) {
	if bucket == "" {
		return "", model.ErrEmptyBucket
	}
	base := filepath.Join(s.root, filepath.Clean(bucket))
	p := filepath.Join(base, filepath.FromSlash(key))
	if p != base && !strings.HasPrefix(p, base+string(filepath.Separator)) {
		return "", goerr.New("key escapes bucket", goerr.Value("key", key))
	}
	return p, nil
}

func (s *fsStore) List(ctx context.Context, bucket, prefix string) ([]*model.ObjectInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// the prefix may end in a partial name, so list its directory and filter
	dirKey := ""
	if i := strings.LastIndex(prefix, "/"); i >= 0 {
		dirKey = prefix[:i+1]
	}
	dir, err := s.path(bucket, dirKey)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list objects", goerr.Value("prefix", prefix))
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, goerr.Wrap(err, "failed to read directory", goerr.Value("dir", dir))
	}

	var objects []*model.ObjectInfo
	for _, entry := range entries {
		key := dirKey + entry.Name()
		if !strings.HasPrefix(key, prefix) || fileutil.IsTemp(entry.Name()) {
			continue
		}

		if entry.IsDir() {
			objects = append(objects, &model.ObjectInfo{Key: key + "/", IsFolder: true})
			continue
		}

		info, err := entry.Info()
		if err != nil {
			return nil, goerr.Wrap(err, "failed to stat object", goerr.Value("key", key))
		}
		objects = append(objects, &model.ObjectInfo{
			Key:          key,
			Size:         info.Size(),
			LastModified: info.ModTime(),
		})
	}

	return objects, nil
}

func (s *fsStore) Read(ctx context.Context, bucket, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p, err := s.path(bucket, key)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read object", goerr.Value("key", key))
	}

	data, err := os.ReadFile(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) || isDirErr(p) {
			return nil, goerr.Wrap(model.ErrNotFound, "failed to read object",
				goerr.Value("bucket", bucket),
				goerr.Value("key", key))
		}
		return nil, goerr.Wrap(err, "failed to read object",
			goerr.Value("bucket", bucket),
			goerr.Value("key", key))
	}

	return data, nil
}

func (s *fsStore) Write(ctx context.Context, bucket, key string, content []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	p, err := s.path(bucket, key)
	if err != nil {
		return goerr.Wrap(err, "failed to write object", goerr.Value("key", key))
	}

	if err := fileutil.WriteAtomic(p, content); err != nil {
		return goerr.Wrap(err, "failed to write object",
			goerr.Value("bucket", bucket),
			goerr.Value("key", key))
	}
	return nil
}

func isDirErr(p string) bool {
	info, err := os.Stat(p)
	return err == nil && info.IsDir()
}
