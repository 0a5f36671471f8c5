package adapter

import (
	"context"
	"errors"
	"io"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/m-mizutani/docaudit/pkg/interfaces"
	"github.com/m-mizutani/docaudit/pkg/model"
	"github.com/m-mizutani/goerr/v2"
	"google.golang.org/api/iterator"
)

// gcsStore implements interfaces.ObjectStore using Cloud Storage
type gcsStore struct {
	client *storage.Client
}

var _ interfaces.ObjectStore = (*gcsStore)(nil)

// NewStorage creates a Cloud Storage backed object store
func NewStorage(ctx context.Context) (interfaces.ObjectStore, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create storage client")
	}

	return &gcsStore{client: client}, nil
}

func (s *gcsStore) List(ctx context.Context, bucket, prefix string) ([]*model.ObjectInfo, error) {
	if bucket == "" {
		return nil, goerr.Wrap(model.ErrEmptyBucket, "failed to list objects")
	}

	it := s.client.Bucket(bucket).Objects(ctx, &storage.Query{
		Prefix:    prefix,
		Delimiter: "/",
	})

	var objects []*model.ObjectInfo
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to list objects",
				goerr.Value("bucket", bucket),
				goerr.Value("prefix", prefix))
		}

		if attrs.Prefix != "" {
			objects = append(objects, &model.ObjectInfo{
				Key:      attrs.Prefix,
				IsFolder: true,
			})
			continue
		}

		objects = append(objects, &model.ObjectInfo{
			Key:          attrs.Name,
			IsFolder:     strings.HasSuffix(attrs.Name, "/"),
			Size:         attrs.Size,
			LastModified: attrs.Updated,
		})
	}

	return objects, nil
}

func (s *gcsStore) Read(ctx context.Context, bucket, key string) ([]byte, error) {
	if bucket == "" {
		return nil, goerr.Wrap(model.ErrEmptyBucket, "failed to read object")
	}

	reader, err := s.client.Bucket(bucket).Object(key).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, goerr.Wrap(model.ErrNotFound, "failed to read object",
				goerr.Value("bucket", bucket),
				goerr.Value("key", key))
		}
		return nil, goerr.Wrap(err, "failed to read object",
			goerr.Value("bucket", bucket),
			goerr.Value("key", key))
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read object body", goerr.Value("key", key))
	}

	return data, nil
}

func (s *gcsStore) Write(ctx context.Context, bucket, key string, content []byte) error {
	if bucket == "" {
		return goerr.Wrap(model.ErrEmptyBucket, "failed to write object")
	}

	writer := s.client.Bucket(bucket).Object(key).NewWriter(ctx)
	writer.ContentType = contentType(key)

	if _, err := writer.Write(content); err != nil {
		_ = writer.Close()
		return goerr.Wrap(err, "failed to write object",
			goerr.Value("bucket", bucket),
			goerr.Value("key", key))
	}
	if err := writer.Close(); err != nil {
		return goerr.Wrap(err, "failed to close object writer",
			goerr.Value("bucket", bucket),
			goerr.Value("key", key))
	}

	return nil
}

func contentType(key string) string {
	if strings.HasSuffix(key, ".json") {
		return "application/json"
	}
	return "application/octet-stream"
}
