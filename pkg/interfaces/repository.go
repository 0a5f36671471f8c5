package interfaces

import (
	"context"
	"time"

	"github.com/m-mizutani/docaudit/pkg/model"
)

// ObjectStore reads and writes opaque blobs by (bucket, key)
type ObjectStore interface {
	// List returns direct children of prefix; sub-prefixes are reported as folders
	List(ctx context.Context, bucket, prefix string) ([]*model.ObjectInfo, error)

	// Read returns the object content. An absent key yields an error wrapping model.ErrNotFound
	Read(ctx context.Context, bucket, key string) ([]byte, error)

	// Write stores content under key, overwriting any existing object
	Write(ctx context.Context, bucket, key string, content []byte) error
}

// TextExtractor turns raw document bytes into plain text
type TextExtractor interface {
	Extract(ctx context.Context, data []byte, formatHint string) model.Extraction
}

// LLMClient sends a prompt to a language model and returns its raw answer.
// An empty modelName selects the client's default model.
type LLMClient interface {
	Generate(ctx context.Context, modelName, prompt string) (string, error)
}

// Embedder converts text into a fixed-length vector
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
}

// CacheEntry describes one manifest kept in the local cache
type CacheEntry struct {
	Name       string
	ModifiedAt time.Time
	Size       int64
}

// ManifestCache is the local mirror of written manifests
type ManifestCache interface {
	Put(ctx context.Context, manifest *model.BatchManifest) error
	Get(ctx context.Context, name string) (*model.BatchManifest, error)
	// List returns entries ordered by modification time, newest first
	List(ctx context.Context) ([]*CacheEntry, error)
}

// ScanRepository keeps a summary per processed batch
type ScanRepository interface {
	PutScan(ctx context.Context, scan *model.ScanSummary) error
	ListScans(ctx context.Context, offset, limit int) ([]*model.ScanSummary, error)
}

// Exporter ships per-document quality rows to an analytics sink
type Exporter interface {
	ExportRecords(ctx context.Context, manifest *model.BatchManifest) error
}
