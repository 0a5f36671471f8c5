package cli_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/m-mizutani/docaudit/pkg/cli"
	"github.com/m-mizutani/docaudit/pkg/model"
	"github.com/m-mizutani/gt"
)

func fsArgs(root string, args ...string) []string {
	argv := []string{"docaudit"}
	argv = append(argv, args...)
	return append(argv, "--store", "fs", "--fs-root", root, "--bucket", "docs", "--log-level", "error")
}

func TestListWithFileSystemStore(t *testing.T) {
	root := t.TempDir()
	gt.NoError(t, os.MkdirAll(filepath.Join(root, "docs", "inbox"), 0o755))
	gt.NoError(t, os.WriteFile(filepath.Join(root, "docs", "inbox", "a.txt"), []byte("hello"), 0o644))

	gt.True(t, cli.Run(context.Background(), fsArgs(root, "list", "--prefix", "inbox/")) == nil)
}

func TestGetReconstructsFromEmptyStore(t *testing.T) {
	root := t.TempDir()
	gt.NoError(t, os.MkdirAll(filepath.Join(root, "docs"), 0o755))

	gt.True(t, cli.Run(context.Background(), fsArgs(root, "get", "--format", "json")) == nil)
}

func TestGetDefaultsRebuildFromIndexedPrefixes(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	docs := filepath.Join(root, "docs")
	gt.NoError(t, os.MkdirAll(filepath.Join(docs, "inbox"), 0o755))
	gt.NoError(t, os.MkdirAll(filepath.Join(docs, "quality-results"), 0o755))

	rec, err := json.Marshal(&model.DocumentRecord{
		FileKey:  "inbox/a.txt",
		FileName: "a.txt",
		Status:   model.StatusSuccess,
	})
	gt.NoError(t, err)
	gt.NoError(t, os.WriteFile(filepath.Join(docs, "inbox", "a.txt.quality.json"), rec, 0o644))

	index, err := json.Marshal(&model.PrefixIndex{Prefixes: []string{"inbox/"}})
	gt.NoError(t, err)
	gt.NoError(t, os.WriteFile(filepath.Join(docs, "quality-results", model.PrefixIndexName), index, 0o644))

	t.Run("no prefixes given", func(t *testing.T) {
		uc, err := cli.NewFileSystemResults(ctx, root, "docs", nil)
		gt.NoError(t, err)
		m, err := uc.GetManifest(ctx, "docs", "quality-results/consolidated_results_20260101T000000Z.json")
		gt.NoError(t, err)
		gt.True(t, m.Reconstructed)
		gt.Equal(t, m.TotalFiles, 1)
		gt.Equal(t, m.Files[0].FileKey, "inbox/a.txt")
	})

	t.Run("explicit prefixes keep the results prefix", func(t *testing.T) {
		uc, err := cli.NewFileSystemResults(ctx, root, "docs", []string{"archive/"})
		gt.NoError(t, err)
		m, err := uc.GetManifest(ctx, "docs", "")
		gt.NoError(t, err)
		gt.Equal(t, m.TotalFiles, 1)
	})

	gt.True(t, cli.Run(ctx, fsArgs(root, "get", "--duplicate-threshold", "0.9", "--format", "json")) == nil)
}

func TestHistoryWithoutCache(t *testing.T) {
	root := t.TempDir()
	gt.True(t, cli.Run(context.Background(), fsArgs(root, "history")) == nil)
}

func TestProcessRequiresKeys(t *testing.T) {
	root := t.TempDir()
	err := cli.Run(context.Background(), fsArgs(root, "process", "--quiet"))
	gt.True(t, err != nil)
	gt.Equal(t, err.Code, 1)
}

func TestUnknownStore(t *testing.T) {
	err := cli.Run(context.Background(), []string{"docaudit", "list", "--store", "ftp", "--bucket", "docs"})
	gt.True(t, err != nil)
}
