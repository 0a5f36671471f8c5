package repository_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/m-mizutani/docaudit/pkg/model"
	"github.com/m-mizutani/docaudit/pkg/repository"
	"github.com/m-mizutani/gt"
)

func TestMemoryScans(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemory()

	base := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	var ids []model.BatchID
	for i := 0; i < 5; i++ {
		scan := newScan(base.Add(time.Duration(i) * time.Hour))
		ids = append(ids, scan.ID)
		gt.NoError(t, repo.PutScan(ctx, scan))
	}

	t.Run("newest first", func(t *testing.T) {
		scans, err := repo.ListScans(ctx, 0, 0)
		gt.NoError(t, err)
		gt.A(t, scans).Length(5)
		gt.Equal(t, scans[0].ID, ids[4])
		gt.Equal(t, scans[4].ID, ids[0])
	})

	t.Run("offset and limit", func(t *testing.T) {
		scans, err := repo.ListScans(ctx, 1, 2)
		gt.NoError(t, err)
		gt.A(t, scans).Length(2)
		gt.Equal(t, scans[0].ID, ids[3])
		gt.Equal(t, scans[1].ID, ids[2])

		scans, err = repo.ListScans(ctx, 10, 2)
		gt.NoError(t, err)
		gt.A(t, scans).Length(0)
	})

	t.Run("get", func(t *testing.T) {
		got, err := repo.GetScan(ctx, ids[2])
		gt.NoError(t, err)
		gt.Equal(t, got.ID, ids[2])

		_, err = repo.GetScan(ctx, "missing")
		gt.True(t, errors.Is(err, model.ErrNotFound))
	})

	t.Run("stored copy is isolated", func(t *testing.T) {
		scan := newScan(base)
		gt.NoError(t, repo.PutScan(ctx, scan))
		scan.Bucket = "changed"

		got, err := repo.GetScan(ctx, scan.ID)
		gt.NoError(t, err)
		gt.Equal(t, got.Bucket, "docs")
	})

	t.Run("id required", func(t *testing.T) {
		gt.Error(t, repo.PutScan(ctx, &model.ScanSummary{}))
	})
}
