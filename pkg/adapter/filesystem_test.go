package adapter_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/m-mizutani/docaudit/pkg/adapter"
	"github.com/m-mizutani/docaudit/pkg/model"
	"github.com/m-mizutani/gt"
)

func TestFileSystemStore(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()

	store, err := adapter.NewFileSystem(root)
	gt.NoError(t, err)

	t.Run("write then read", func(t *testing.T) {
		gt.NoError(t, store.Write(ctx, "docs", "inbox/report.txt", []byte("hello")))

		data, err := store.Read(ctx, "docs", "inbox/report.txt")
		gt.NoError(t, err)
		gt.Equal(t, string(data), "hello")

		_, err = os.Stat(filepath.Join(root, "docs", "inbox", "report.txt"))
		gt.NoError(t, err)
	})

	t.Run("overwrite", func(t *testing.T) {
		gt.NoError(t, store.Write(ctx, "docs", "inbox/report.txt", []byte("v2")))
		data, err := store.Read(ctx, "docs", "inbox/report.txt")
		gt.NoError(t, err)
		gt.Equal(t, string(data), "v2")
	})

	t.Run("missing key is not found", func(t *testing.T) {
		_, err := store.Read(ctx, "docs", "inbox/missing.txt")
		gt.Error(t, err)
		gt.True(t, errors.Is(err, model.ErrNotFound))
	})

	t.Run("folder is not found", func(t *testing.T) {
		_, err := store.Read(ctx, "docs", "inbox")
		gt.True(t, errors.Is(err, model.ErrNotFound))
	})

	t.Run("list reports folders and files", func(t *testing.T) {
		gt.NoError(t, store.Write(ctx, "docs", "inbox/sub/nested.txt", []byte("x")))
		gt.NoError(t, store.Write(ctx, "docs", "inbox/report.txt.quality.json", []byte("{}")))

		objects, err := store.List(ctx, "docs", "inbox/")
		gt.NoError(t, err)
		gt.A(t, objects).Length(3)

		keys := map[string]*model.ObjectInfo{}
		for _, o := range objects {
			keys[o.Key] = o
		}
		gt.Map(t, keys).HasKey("inbox/sub/")
		gt.True(t, keys["inbox/sub/"].IsFolder)
		gt.Map(t, keys).HasKey("inbox/report.txt")
		gt.Equal(t, keys["inbox/report.txt"].Size, int64(2))
		gt.False(t, keys["inbox/report.txt"].LastModified.IsZero())
	})

	t.Run("list with partial name prefix", func(t *testing.T) {
		objects, err := store.List(ctx, "docs", "inbox/rep")
		gt.NoError(t, err)
		gt.A(t, objects).Length(2)
	})

	t.Run("list missing prefix is empty", func(t *testing.T) {
		objects, err := store.List(ctx, "docs", "nowhere/")
		gt.NoError(t, err)
		gt.A(t, objects).Length(0)
	})

	t.Run("empty bucket", func(t *testing.T) {
		_, err := store.Read(ctx, "", "a.txt")
		gt.True(t, errors.Is(err, model.ErrEmptyBucket))
	})

	t.Run("key cannot escape bucket", func(t *testing.T) {
		err := store.Write(ctx, "docs", "../other/evil.txt", []byte("x"))
		gt.Error(t, err)
	})
}
