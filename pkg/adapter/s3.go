package adapter

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/m-mizutani/docaudit/pkg/interfaces"
	"github.com/m-mizutani/docaudit/pkg/model"
	"github.com/m-mizutani/goerr/v2"
)

// s3Store implements interfaces.ObjectStore using Amazon S3
type s3Store struct {
	client *s3.Client
}

var _ interfaces.ObjectStore = (*s3Store)(nil)

// S3Option is a functional option for the S3 store
type S3Option func(*s3.Options)

// WithS3Endpoint points the client at an S3 compatible endpoint
func WithS3Endpoint(endpoint string) S3Option {
	return func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpoint)
		o.UsePathStyle = true
	}
}

// NewS3 creates an S3 backed object store. An empty region uses the default
// AWS configuration chain.
func NewS3(ctx context.Context, region string, opts ...S3Option) (interfaces.ObjectStore, error) {
	loadOpts := []func(*awsconfig.LoadOptions) error{}
	if region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(region))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to load aws config", goerr.Value("region", region))
	}

	clientOpts := make([]func(*s3.Options), 0, len(opts))
	for _, opt := range opts {
		clientOpts = append(clientOpts, opt)
	}

	return &s3Store{client: s3.NewFromConfig(cfg, clientOpts...)}, nil
}

func (s *s3Store) List(ctx context.Context, bucket, prefix string) ([]*model.ObjectInfo, error) {
	if bucket == "" {
		return nil, goerr.Wrap(model.ErrEmptyBucket, "failed to list objects")
	}

	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket:    aws.String(bucket),
		Prefix:    aws.String(prefix),
		Delimiter: aws.String("/"),
	})

	var objects []*model.ObjectInfo
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to list objects",
				goerr.Value("bucket", bucket),
				goerr.Value("prefix", prefix))
		}

		for _, p := range page.CommonPrefixes {
			objects = append(objects, &model.ObjectInfo{
				Key:      aws.ToString(p.Prefix),
				IsFolder: true,
			})
		}
		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			info := &model.ObjectInfo{
				Key:      key,
				IsFolder: strings.HasSuffix(key, "/"),
				Size:     aws.ToInt64(obj.Size),
			}
			if obj.LastModified != nil {
				info.LastModified = *obj.LastModified
			}
			objects = append(objects, info)
		}
	}

	return objects, nil
}

func (s *s3Store) Read(ctx context.Context, bucket, key string) ([]byte, error) {
	if bucket == "" {
		return nil, goerr.Wrap(model.ErrEmptyBucket, "failed to read object")
	}

	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var noSuchKey *s3types.NoSuchKey
		if errors.As(err, &noSuchKey) {
			return nil, goerr.Wrap(model.ErrNotFound, "failed to read object",
				goerr.Value("bucket", bucket),
				goerr.Value("key", key))
		}
		return nil, goerr.Wrap(err, "failed to read object",
			goerr.Value("bucket", bucket),
			goerr.Value("key", key))
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read object body", goerr.Value("key", key))
	}

	return data, nil
}

func (s *s3Store) Write(ctx context.Context, bucket, key string, content []byte) error {
	if bucket == "" {
		return goerr.Wrap(model.ErrEmptyBucket, "failed to write object")
	}

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(content),
		ContentType: aws.String(contentType(key)),
	})
	if err != nil {
		return goerr.Wrap(err, "failed to put object",
			goerr.Value("bucket", bucket),
			goerr.Value("key", key))
	}

	return nil
}
