package adapter_test

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/m-mizutani/docaudit/pkg/adapter"
	"github.com/m-mizutani/docaudit/pkg/interfaces"
	"github.com/m-mizutani/docaudit/pkg/model"
	"github.com/m-mizutani/gt"
)

// testObjectStore runs the same round trip against any ObjectStore
func testObjectStore(t *testing.T, store interfaces.ObjectStore, bucket string) {
	ctx := context.Background()
	prefix := "docaudit-test/" + uuid.NewString() + "/"

	gt.NoError(t, store.Write(ctx, bucket, prefix+"a.txt.quality.json", []byte(`{"status":"success"}`)))
	gt.NoError(t, store.Write(ctx, bucket, prefix+"sub/b.txt", []byte("nested")))

	data, err := store.Read(ctx, bucket, prefix+"a.txt.quality.json")
	gt.NoError(t, err)
	gt.Equal(t, string(data), `{"status":"success"}`)

	_, err = store.Read(ctx, bucket, prefix+"missing.txt")
	gt.True(t, errors.Is(err, model.ErrNotFound))

	objects, err := store.List(ctx, bucket, prefix)
	gt.NoError(t, err)
	gt.A(t, objects).Length(2)

	var folders int
	for _, obj := range objects {
		if obj.IsFolder {
			folders++
			gt.Equal(t, obj.Key, prefix+"sub/")
		}
	}
	gt.Equal(t, folders, 1)

	_, err = store.List(ctx, "", prefix)
	gt.True(t, errors.Is(err, model.ErrEmptyBucket))
}

func TestStorage(t *testing.T) {
	bucket := os.Getenv("TEST_GCS_BUCKET")
	if bucket == "" {
		t.Skip("TEST_GCS_BUCKET is not set")
	}

	store, err := adapter.NewStorage(context.Background())
	gt.NoError(t, err)
	testObjectStore(t, store, bucket)
}

func TestS3(t *testing.T) {
	bucket := os.Getenv("TEST_S3_BUCKET")
	if bucket == "" {
		t.Skip("TEST_S3_BUCKET is not set")
	}

	var opts []adapter.S3Option
	if endpoint := os.Getenv("TEST_S3_ENDPOINT"); endpoint != "" {
		opts = append(opts, adapter.WithS3Endpoint(endpoint))
	}

	store, err := adapter.NewS3(context.Background(), os.Getenv("TEST_S3_REGION"), opts...)
	gt.NoError(t, err)
	testObjectStore(t, store, bucket)
}

func TestFileSystemRoundTrip(t *testing.T) {
	store, err := adapter.NewFileSystem(t.TempDir())
	gt.NoError(t, err)
	testObjectStore(t, store, "docs")
}
