package model

import (
	"path"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

type BatchID string

// NewBatchID generates a new unique BatchID
func NewBatchID() BatchID {
	return BatchID(uuid.New().String())
}

const (
	// ManifestPattern marks consolidated manifest keys.
	ManifestPattern = "consolidated_results"

	manifestTimeFormat = "20060102T150405Z"
)

// SimilarityPair is one gate-passing comparison kept for inspection.
type SimilarityPair struct {
	FileA              string  `json:"file_a" yaml:"file_a"`
	FileKeyA           string  `json:"file_key_a" yaml:"file_key_a"`
	FileB              string  `json:"file_b" yaml:"file_b"`
	FileKeyB           string  `json:"file_key_b" yaml:"file_key_b"`
	Similarity         float64 `json:"similarity" yaml:"similarity"`
	MetadataSimilarity float64 `json:"metadata_similarity" yaml:"metadata_similarity"`
	IsDuplicate        bool    `json:"is_duplicate" yaml:"is_duplicate"`
}

// BatchManifest is the consolidated record of one batch run.
type BatchManifest struct {
	ID              BatchID           `json:"id" yaml:"id"`
	ProcessedAt     time.Time         `json:"processed_at" yaml:"processed_at"`
	TotalFiles      int               `json:"total_files" yaml:"total_files"`
	Successful      int               `json:"successful" yaml:"successful"`
	Failed          int               `json:"failed" yaml:"failed"`
	ModelUsed       string            `json:"model_used" yaml:"model_used"`
	Files           []*DocumentRecord `json:"files" yaml:"files"`
	DuplicatePairs  []*SimilarityPair `json:"duplicate_pairs" yaml:"duplicate_pairs"`
	SimilarityPairs []*SimilarityPair `json:"similarity_pairs,omitempty" yaml:"similarity_pairs,omitempty"`
	Reconstructed   bool              `json:"reconstructed,omitempty" yaml:"reconstructed,omitempty"`
}

// NewManifest builds a manifest over files and fills the counters.
func NewManifest(files []*DocumentRecord, modelUsed string, now time.Time) *BatchManifest {
	m := &BatchManifest{
		ID:             NewBatchID(),
		ProcessedAt:    now,
		ModelUsed:      modelUsed,
		Files:          files,
		DuplicatePairs: []*SimilarityPair{},
	}
	if m.Files == nil {
		m.Files = []*DocumentRecord{}
	}
	m.Count()
	return m
}

// Count recomputes total, successful and failed from Files.
func (m *BatchManifest) Count() {
	m.TotalFiles = len(m.Files)
	m.Successful = 0
	for _, f := range m.Files {
		if f.IsSuccess() {
			m.Successful++
		}
	}
	m.Failed = m.TotalFiles - m.Successful
}

// FileName returns the base name the manifest is stored under.
func (m *BatchManifest) FileName() string {
	return ManifestFileName(m.ProcessedAt, m.ID)
}

// ManifestFileName formats the manifest base name for a processing time and
// batch. The leading part of id keeps batches finishing in the same second
// apart while names still sort by time.
func ManifestFileName(t time.Time, id BatchID) string {
	name := ManifestPattern + "_" + t.UTC().Format(manifestTimeFormat)
	if suffix := shortID(id); suffix != "" {
		name += "_" + suffix
	}
	return name + ".json"
}

func shortID(id BatchID) string {
	s := strings.ReplaceAll(string(id), "-", "")
	if len(s) > 8 {
		s = s[:8]
	}
	return s
}

// IsManifestKey reports whether key names a consolidated manifest.
func IsManifestKey(key string) bool {
	return strings.Contains(path.Base(key), ManifestPattern)
}

// PrefixIndexName is the base name of the list of document prefixes that
// received per-document artifacts. It lives under the results prefix.
const PrefixIndexName = "artifact_prefixes.json"

// PrefixIndex records where per-document artifacts were written, so a lost
// manifest can be rebuilt without knowing the document layout.
type PrefixIndex struct {
	Prefixes  []string  `json:"prefixes" yaml:"prefixes"`
	UpdatedAt time.Time `json:"updated_at" yaml:"updated_at"`
}

// Add merges prefixes into the index, keeping it sorted and unique. It
// reports whether anything was added.
func (x *PrefixIndex) Add(prefixes ...string) bool {
	seen := make(map[string]struct{}, len(x.Prefixes))
	for _, p := range x.Prefixes {
		seen[p] = struct{}{}
	}
	added := false
	for _, p := range prefixes {
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		x.Prefixes = append(x.Prefixes, p)
		added = true
	}
	sort.Strings(x.Prefixes)
	return added
}

// IsPrefixIndexKey reports whether key names a prefix index.
func IsPrefixIndexKey(key string) bool {
	return path.Base(key) == PrefixIndexName
}

// ScanSummary is the compact form of a manifest kept in the scan history.
type ScanSummary struct {
	ID             BatchID   `json:"id" firestore:"id"`
	Bucket         string    `json:"bucket" firestore:"bucket"`
	ManifestKey    string    `json:"manifest_key" firestore:"manifest_key"`
	ProcessedAt    time.Time `json:"processed_at" firestore:"processed_at"`
	TotalFiles     int       `json:"total_files" firestore:"total_files"`
	Successful     int       `json:"successful" firestore:"successful"`
	Failed         int       `json:"failed" firestore:"failed"`
	ModelUsed      string    `json:"model_used" firestore:"model_used"`
	DuplicatePairs int       `json:"duplicate_pairs" firestore:"duplicate_pairs"`
	AverageScore   float64   `json:"average_score" firestore:"average_score"`
}

// Summarize condenses a manifest for the scan history.
func (m *BatchManifest) Summarize(bucket, manifestKey string) *ScanSummary {
	s := &ScanSummary{
		ID:             m.ID,
		Bucket:         bucket,
		ManifestKey:    manifestKey,
		ProcessedAt:    m.ProcessedAt,
		TotalFiles:     m.TotalFiles,
		Successful:     m.Successful,
		Failed:         m.Failed,
		ModelUsed:      m.ModelUsed,
		DuplicatePairs: len(m.DuplicatePairs),
	}

	var total float64
	for _, f := range m.Files {
		if f.IsSuccess() {
			total += f.OverallQualityScore
		}
	}
	if m.Successful > 0 {
		s.AverageScore = total / float64(m.Successful)
	}
	return s
}
