package repository_test

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/m-mizutani/docaudit/pkg/model"
	"github.com/m-mizutani/docaudit/pkg/repository"
	"github.com/m-mizutani/gt"
)

func setupFirestore(t *testing.T) *repository.Firestore {
	projectID := os.Getenv("TEST_FIRESTORE_PROJECT_ID")
	databaseID := os.Getenv("TEST_FIRESTORE_DATABASE_ID")

	if projectID == "" || databaseID == "" {
		t.Skip("TEST_FIRESTORE_PROJECT_ID and TEST_FIRESTORE_DATABASE_ID must be set to run Firestore tests")
	}

	repo, err := repository.NewFirestore(context.Background(), projectID, databaseID)
	gt.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })

	return repo
}

func newScan(at time.Time) *model.ScanSummary {
	id := model.NewBatchID()
	return &model.ScanSummary{
		ID:           id,
		Bucket:       "docs",
		ManifestKey:  "results/" + model.ManifestFileName(at, id),
		ProcessedAt:  at,
		TotalFiles:   3,
		Successful:   2,
		Failed:       1,
		ModelUsed:    "gemini-2.5-flash",
		AverageScore: 77.5,
	}
}

func TestFirestorePutAndGetScan(t *testing.T) {
	repo := setupFirestore(t)
	ctx := context.Background()

	scan := newScan(time.Now().UTC().Truncate(time.Millisecond))
	gt.NoError(t, repo.PutScan(ctx, scan))

	got, err := repo.GetScan(ctx, scan.ID)
	gt.NoError(t, err)
	gt.Equal(t, got.ID, scan.ID)
	gt.Equal(t, got.ManifestKey, scan.ManifestKey)
	gt.Equal(t, got.AverageScore, scan.AverageScore)
}

func TestFirestoreGetScanNotFound(t *testing.T) {
	repo := setupFirestore(t)

	_, err := repo.GetScan(context.Background(), model.BatchID("non-existent-scan"))
	gt.True(t, errors.Is(err, model.ErrNotFound))
}

func TestFirestoreListScans(t *testing.T) {
	repo := setupFirestore(t)
	ctx := context.Background()

	now := time.Now().UTC()
	for i := 0; i < 3; i++ {
		gt.NoError(t, repo.PutScan(ctx, newScan(now.Add(time.Duration(i)*time.Second))))
	}

	scans, err := repo.ListScans(ctx, 0, 2)
	gt.NoError(t, err)
	gt.A(t, scans).Length(2)
	gt.True(t, !scans[0].ProcessedAt.Before(scans[1].ProcessedAt))
}
