package similarity

import (
	"context"
	"math"
	"sort"
	"strings"

	"github.com/m-mizutani/docaudit/pkg/interfaces"
	"github.com/m-mizutani/docaudit/pkg/model"
	"github.com/m-mizutani/docaudit/pkg/utils/logging"
)

const (
	DefaultGateThreshold      = 0.70
	DefaultDuplicateThreshold = 0.95
)

// Engine detects near-duplicate documents within a batch. A pair is only
// compared by vector once its metadata overlap passes the gate.
type Engine struct {
	embedder           interfaces.Embedder
	gateThreshold      float64
	duplicateThreshold float64
}

// Option is a functional option for Engine
type Option func(*Engine)

// WithGateThreshold sets the minimum metadata score for vector comparison
func WithGateThreshold(v float64) Option {
	return func(e *Engine) {
		e.gateThreshold = v
	}
}

// WithDuplicateThreshold sets the minimum cosine similarity of a duplicate
func WithDuplicateThreshold(v float64) Option {
	return func(e *Engine) {
		e.duplicateThreshold = v
	}
}

// New creates an Engine. embedder may be nil, in which case summary
// embeddings are never fetched.
func New(embedder interfaces.Embedder, opts ...Option) *Engine {
	e := &Engine{
		embedder:           embedder,
		gateThreshold:      DefaultGateThreshold,
		duplicateThreshold: DefaultDuplicateThreshold,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Detect compares every pair of records and returns annotated copies of the
// records together with all gate-passing pairs, sorted by similarity in
// descending order. The input records are not modified.
func (e *Engine) Detect(ctx context.Context, records []*model.DocumentRecord) ([]*model.DocumentRecord, []*model.SimilarityPair) {
	annotated := make([]*model.DocumentRecord, len(records))
	for i, r := range records {
		c := *r
		c.PotentialDuplicates = append([]*model.DuplicateLink(nil), r.PotentialDuplicates...)
		annotated[i] = &c
	}

	// summary embeddings live only for this call
	cache := &summaryCache{
		embedder: e.embedder,
		vectors:  make(map[int][]float64),
	}

	pairs := []*model.SimilarityPair{}
	for i := 0; i < len(records); i++ {
		for j := i + 1; j < len(records); j++ {
			a, b := records[i], records[j]

			gate := MetadataSimilarity(a, b)
			if gate < e.gateThreshold {
				continue
			}

			va, vb, ok := e.vectors(ctx, cache, i, a, j, b)
			if !ok {
				logging.From(ctx).Debug("skip pair without comparable vectors",
					"file_a", a.FileKey, "file_b", b.FileKey)
				continue
			}

			cos := Cosine(va, vb)
			pair := &model.SimilarityPair{
				FileA:              a.FileName,
				FileKeyA:           a.FileKey,
				FileB:              b.FileName,
				FileKeyB:           b.FileKey,
				Similarity:         percent(cos),
				MetadataSimilarity: percent(gate),
				IsDuplicate:        cos >= e.duplicateThreshold,
			}
			pairs = append(pairs, pair)

			if pair.IsDuplicate {
				annotated[i].PotentialDuplicates = append(annotated[i].PotentialDuplicates, &model.DuplicateLink{
					FileName:           b.FileName,
					FileKey:            b.FileKey,
					Similarity:         pair.Similarity,
					MetadataSimilarity: pair.MetadataSimilarity,
				})
				annotated[j].PotentialDuplicates = append(annotated[j].PotentialDuplicates, &model.DuplicateLink{
					FileName:           a.FileName,
					FileKey:            a.FileKey,
					Similarity:         pair.Similarity,
					MetadataSimilarity: pair.MetadataSimilarity,
				})
			}
		}
	}

	sort.SliceStable(pairs, func(i, j int) bool {
		return pairs[i].Similarity > pairs[j].Similarity
	})
	return annotated, pairs
}

// vectors resolves comparable vectors for a pair: full embedding, then the
// summary embedding, then a bag of words over summary and context.
func (e *Engine) vectors(ctx context.Context, cache *summaryCache, i int, a *model.DocumentRecord, j int, b *model.DocumentRecord) ([]float64, []float64, bool) {
	va := a.Embedding
	if len(va) == 0 {
		va = cache.get(ctx, i, a)
	}
	vb := b.Embedding
	if len(vb) == 0 {
		vb = cache.get(ctx, j, b)
	}

	if len(va) > 0 && len(vb) > 0 {
		return va, vb, len(va) == len(vb)
	}

	va, vb = BagOfWords(a.Summary+" "+a.Context, b.Summary+" "+b.Context)
	if len(va) == 0 || isZero(va) || isZero(vb) {
		return nil, nil, false
	}
	return va, vb, true
}

type summaryCache struct {
	embedder interfaces.Embedder
	vectors  map[int][]float64
}

func (c *summaryCache) get(ctx context.Context, idx int, r *model.DocumentRecord) []float64 {
	if v, ok := c.vectors[idx]; ok {
		return v
	}

	var v []float64
	if c.embedder != nil && strings.TrimSpace(r.Summary) != "" {
		emb, err := c.embedder.Embed(ctx, r.Summary)
		if err != nil {
			logging.From(ctx).Warn("failed to embed summary", "file_key", r.FileKey, "error", err)
		} else {
			v = emb
		}
	}
	c.vectors[idx] = v
	return v
}

// MetadataSimilarity blends document type equality and topic/keyword overlap
// with equal weight.
func MetadataSimilarity(a, b *model.DocumentRecord) float64 {
	var typeMatch float64
	ta, tb := strings.TrimSpace(a.DocumentType), strings.TrimSpace(b.DocumentType)
	if ta != "" && strings.EqualFold(ta, tb) {
		typeMatch = 1
	}
	return 0.5*typeMatch + 0.5*Jaccard(termSet(a), termSet(b))
}

func termSet(r *model.DocumentRecord) map[string]struct{} {
	if r.Metadata == nil {
		return map[string]struct{}{}
	}
	terms := make([]string, 0, len(r.Metadata.Topics)+len(r.Metadata.Keywords))
	terms = append(terms, r.Metadata.Topics...)
	terms = append(terms, r.Metadata.Keywords...)
	return tokenSet(terms)
}

// FindAcross compares target against previously analyzed records by
// embedding only and returns the links at or above threshold. Records with
// the same file name or key as target are ignored.
func FindAcross(target *model.DocumentRecord, candidates []*model.DocumentRecord, threshold float64) []*model.DuplicateLink {
	if target == nil || len(target.Embedding) == 0 {
		return nil
	}

	best := make(map[string]*model.DuplicateLink)
	for _, c := range candidates {
		if c == nil || len(c.Embedding) == 0 {
			continue
		}
		if c.FileKey == target.FileKey || c.FileName == target.FileName {
			continue
		}

		cos := Cosine(target.Embedding, c.Embedding)
		if cos < threshold {
			continue
		}
		link := &model.DuplicateLink{
			FileName:           c.FileName,
			FileKey:            c.FileKey,
			Similarity:         percent(cos),
			MetadataSimilarity: percent(MetadataSimilarity(target, c)),
		}
		if prev, ok := best[c.FileKey]; !ok || prev.Similarity < link.Similarity {
			best[c.FileKey] = link
		}
	}

	links := make([]*model.DuplicateLink, 0, len(best))
	for _, l := range best {
		links = append(links, l)
	}
	sort.Slice(links, func(i, j int) bool {
		if links[i].Similarity != links[j].Similarity {
			return links[i].Similarity > links[j].Similarity
		}
		return links[i].FileKey < links[j].FileKey
	})
	return links
}

// DuplicatePairs keeps duplicate pairs, one per unordered pair of file names.
func DuplicatePairs(pairs []*model.SimilarityPair) []*model.SimilarityPair {
	seen := make(map[string]struct{})
	result := []*model.SimilarityPair{}
	for _, p := range pairs {
		if p == nil || !p.IsDuplicate {
			continue
		}
		a, b := p.FileA, p.FileB
		if b < a {
			a, b = b, a
		}
		id := a + "\x00" + b
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		result = append(result, p)
	}
	return result
}

func percent(v float64) float64 {
	return math.Round(v*10000) / 100
}
