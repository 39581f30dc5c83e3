// Package vector implements precedent similarity search over embeddings
// persisted in the durable store. Query text is embedded, cosine similarity
// is computed in-process and the top matches are returned.
package vector

import (
	"context"
	"hash/fnv"
	"math"
	"math/rand/v2"
	"sort"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/legal-analyzer/internal/model"
	"github.com/sells-group/legal-analyzer/pkg/llm"
)

// DefaultVectorSize is the dimension used for fallback vectors when the
// embedding provider is unavailable.
const DefaultVectorSize = 768

// Index searches the precedent corpus for entries similar to a query.
type Index interface {
	SearchSimilar(ctx context.Context, query string, limit int) ([]model.Precedent, error)
}

// Corpus is the subset of the store the index reads and seeds.
type Corpus interface {
	ListPrecedents(ctx context.Context) ([]model.CorpusPrecedent, error)
	UpsertPrecedents(ctx context.Context, entries []model.CorpusPrecedent) (int64, error)
}

// StoreIndex is a store-backed Index.
type StoreIndex struct {
	corpus     Corpus
	embedder   llm.Embedder
	vectorSize int
	timeout    time.Duration
	logger     *zap.Logger
}

// NewStoreIndex creates an index over the store's precedent corpus. timeout,
// when positive, bounds each embedding call.
func NewStoreIndex(corpus Corpus, embedder llm.Embedder, timeout time.Duration) *StoreIndex {
	return &StoreIndex{
		corpus:     corpus,
		embedder:   embedder,
		vectorSize: DefaultVectorSize,
		timeout:    timeout,
		logger:     zap.L().With(zap.String("component", "vector")),
	}
}

func (ix *StoreIndex) SearchSimilar(ctx context.Context, query string, limit int) ([]model.Precedent, error) {
	queryVec := ix.Vectorize(ctx, query)

	corpus, err := ix.corpus.ListPrecedents(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "vector: load precedent corpus")
	}

	type scored struct {
		precedent model.CorpusPrecedent
		score     float64
	}
	candidates := make([]scored, 0, len(corpus))
	for _, p := range corpus {
		candidates = append(candidates, scored{precedent: p, score: Cosine(queryVec, p.Embedding)})
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})

	if limit > 0 && len(candidates) > limit {
		candidates = candidates[:limit]
	}

	results := make([]model.Precedent, 0, len(candidates))
	for _, c := range candidates {
		results = append(results, model.Precedent{
			Title:           c.precedent.Title,
			Description:     c.precedent.Description,
			Type:            c.precedent.Type,
			Relevance:       c.precedent.Relevance,
			Source:          c.precedent.Source,
			SimilarityScore: c.score,
		})
	}
	return results, nil
}

// Upsert seeds the corpus. Entries without an embedding are vectorized from
// their description, falling back to the title when empty.
func (ix *StoreIndex) Upsert(ctx context.Context, entries []model.CorpusPrecedent) (int64, error) {
	for i := range entries {
		if len(entries[i].Embedding) > 0 {
			continue
		}
		text := entries[i].Description
		if text == "" {
			text = entries[i].Title
		}
		entries[i].Embedding = ix.Vectorize(ctx, text)
	}
	n, err := ix.corpus.UpsertPrecedents(ctx, entries)
	if err != nil {
		return 0, eris.Wrap(err, "vector: seed precedent corpus")
	}
	ix.logger.Info("precedent corpus seeded", zap.Int64("rows", n))
	return n, nil
}

// Vectorize embeds text, falling back to a deterministic pseudo-random
// vector when the embedding provider fails, so search degrades instead of
// aborting.
func (ix *StoreIndex) Vectorize(ctx context.Context, text string) []float32 {
	if ix.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, ix.timeout)
		defer cancel()
	}

	vec, err := ix.embedder.Embed(ctx, text)
	if err != nil {
		ix.logger.Error("embedding failed, using fallback vector", zap.Error(err))
		return FallbackVector(text, ix.vectorSize)
	}
	return vec
}

// FallbackVector derives a deterministic vector from the text hash. Repeated
// queries for the same text map to the same point in vector space.
func FallbackVector(text string, size int) []float32 {
	h := fnv.New64a()
	h.Write([]byte(text))
	rng := rand.New(rand.NewPCG(h.Sum64(), 0))

	vec := make([]float32, size)
	for i := range vec {
		vec[i] = rng.Float32()
	}
	return vec
}

// Cosine returns the cosine similarity of two vectors, or 0 when either is
// empty, zero, or the dimensions differ.
func Cosine(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
