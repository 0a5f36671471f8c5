package model

import (
	"path"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
)

var (
	ErrNotFound    = goerr.New("object not found")
	ErrEmptyBucket = goerr.New("bucket is required")
)

// RecordSuffix is appended to a source document key to form its artifact key.
const RecordSuffix = ".quality.json"

type Status string

const (
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// Metadata holds entities the model extracted from a document.
type Metadata struct {
	People        []string `json:"people,omitempty" yaml:"people,omitempty"`
	Locations     []string `json:"locations,omitempty" yaml:"locations,omitempty"`
	Organizations []string `json:"organizations,omitempty" yaml:"organizations,omitempty"`
	Dates         []string `json:"dates,omitempty" yaml:"dates,omitempty"`
	Topics        []string `json:"topics,omitempty" yaml:"topics,omitempty"`
	Keywords      []string `json:"keywords,omitempty" yaml:"keywords,omitempty"`
	Emails        []string `json:"emails,omitempty" yaml:"emails,omitempty"`
	Phones        []string `json:"phones,omitempty" yaml:"phones,omitempty"`
}

// DuplicateLink references another document judged to be a near-duplicate.
type DuplicateLink struct {
	FileName           string  `json:"file_name" yaml:"file_name"`
	FileKey            string  `json:"file_key" yaml:"file_key"`
	Similarity         float64 `json:"similarity" yaml:"similarity"`
	MetadataSimilarity float64 `json:"metadata_similarity" yaml:"metadata_similarity"`
}

// DocumentRecord is the analysis result of one document.
type DocumentRecord struct {
	FileKey  string `json:"file_key" yaml:"file_key"`
	FileName string `json:"file_name" yaml:"file_name"`
	Bucket   string `json:"bucket" yaml:"bucket"`
	FileType string `json:"file_type,omitempty" yaml:"file_type,omitempty"`

	UploadDate    *time.Time `json:"upload_date,omitempty" yaml:"upload_date,omitempty"`
	UploadAgeDays *int       `json:"upload_age_days,omitempty" yaml:"upload_age_days,omitempty"`

	Summary      string    `json:"summary,omitempty" yaml:"summary,omitempty"`
	Context      string    `json:"context,omitempty" yaml:"context,omitempty"`
	DocumentType string    `json:"document_type,omitempty" yaml:"document_type,omitempty"`
	Metadata     *Metadata `json:"metadata,omitempty" yaml:"metadata,omitempty"`

	Dimensions          map[DimensionName]DimensionScore `json:"dimensions,omitempty" yaml:"dimensions,omitempty"`
	OverallQualityScore float64                          `json:"overall_quality_score,omitempty" yaml:"overall_quality_score,omitempty"`
	RecommendedAction   Action                           `json:"recommended_action,omitempty" yaml:"recommended_action,omitempty"`

	Embedding           []float64        `json:"embedding,omitempty" yaml:"-"`
	PotentialDuplicates []*DuplicateLink `json:"potential_duplicates,omitempty" yaml:"potential_duplicates,omitempty"`

	Status      Status    `json:"status" yaml:"status"`
	Error       string    `json:"error,omitempty" yaml:"error,omitempty"`
	ProcessedAt time.Time `json:"processed_at" yaml:"processed_at"`
}

// NewErrorRecord builds the record of a document that could not be analyzed.
func NewErrorRecord(bucket, key, reason string, now time.Time) *DocumentRecord {
	return &DocumentRecord{
		FileKey:     key,
		FileName:    path.Base(key),
		Bucket:      bucket,
		Status:      StatusError,
		Error:       reason,
		ProcessedAt: now,
	}
}

// IsSuccess reports whether the record carries quality fields.
func (r *DocumentRecord) IsSuccess() bool {
	return r != nil && r.Status == StatusSuccess
}

// ArtifactKey returns the store key the record is persisted under.
func (r *DocumentRecord) ArtifactKey() string {
	return RecordKey(r.FileKey)
}

// RecordKey maps a source document key to its artifact key.
func RecordKey(sourceKey string) string {
	return sourceKey + RecordSuffix
}

// SourceKey maps an artifact key back to its source document key.
func SourceKey(recordKey string) string {
	return strings.TrimSuffix(recordKey, RecordSuffix)
}

// IsRecordKey reports whether key names a per-document artifact.
func IsRecordKey(key string) bool {
	return strings.HasSuffix(key, RecordSuffix) && !IsManifestKey(key) && !IsFolderKey(key)
}

// IsFolderKey reports whether key is a folder marker.
func IsFolderKey(key string) bool {
	return strings.HasSuffix(key, "/")
}
