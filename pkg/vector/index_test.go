package vector

import (
	"context"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/legal-analyzer/internal/model"
)

type stubCorpus struct {
	precedents []model.CorpusPrecedent
	upserted   []model.CorpusPrecedent
	err        error
}

func (s *stubCorpus) ListPrecedents(_ context.Context) ([]model.CorpusPrecedent, error) {
	return s.precedents, s.err
}

func (s *stubCorpus) UpsertPrecedents(_ context.Context, entries []model.CorpusPrecedent) (int64, error) {
	if s.err != nil {
		return 0, s.err
	}
	s.upserted = append(s.upserted, entries...)
	return int64(len(entries)), nil
}

type stubEmbedder struct {
	vec []float32
	err error
}

func (s *stubEmbedder) Embed(_ context.Context, _ string) ([]float32, error) {
	return s.vec, s.err
}

func TestCosine(t *testing.T) {
	assert.InDelta(t, 1.0, Cosine([]float32{1, 0}, []float32{2, 0}), 1e-9)
	assert.InDelta(t, 0.0, Cosine([]float32{1, 0}, []float32{0, 1}), 1e-9)
	assert.InDelta(t, -1.0, Cosine([]float32{1, 0}, []float32{-1, 0}), 1e-9)

	// Degenerate inputs.
	assert.Zero(t, Cosine(nil, nil))
	assert.Zero(t, Cosine([]float32{1}, []float32{1, 2}))
	assert.Zero(t, Cosine([]float32{0, 0}, []float32{1, 2}))
}

func TestSearchSimilarRanksByCosine(t *testing.T) {
	corpus := &stubCorpus{precedents: []model.CorpusPrecedent{
		{Title: "orthogonal", Embedding: []float32{0, 1}},
		{Title: "aligned", Embedding: []float32{1, 0}},
		{Title: "close", Embedding: []float32{1, 0.2}},
	}}
	ix := NewStoreIndex(corpus, &stubEmbedder{vec: []float32{1, 0}}, 0)

	results, err := ix.SearchSimilar(context.Background(), "clause de résiliation", 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "aligned", results[0].Title)
	assert.Equal(t, "close", results[1].Title)
	assert.Greater(t, results[0].SimilarityScore, results[1].SimilarityScore)
}

func TestSearchSimilarCorpusError(t *testing.T) {
	ix := NewStoreIndex(&stubCorpus{err: eris.New("db down")}, &stubEmbedder{vec: []float32{1}}, 0)

	_, err := ix.SearchSimilar(context.Background(), "q", 5)
	require.Error(t, err)
}

func TestVectorizeFallsBackDeterministically(t *testing.T) {
	ix := NewStoreIndex(&stubCorpus{}, &stubEmbedder{err: eris.New("provider down")}, 0)

	a := ix.Vectorize(context.Background(), "même texte")
	b := ix.Vectorize(context.Background(), "même texte")
	c := ix.Vectorize(context.Background(), "autre texte")

	require.Len(t, a, DefaultVectorSize)
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}

func TestUpsertEmbedsMissingVectors(t *testing.T) {
	corpus := &stubCorpus{}
	ix := NewStoreIndex(corpus, &stubEmbedder{vec: []float32{0.5, 0.5}}, 0)

	n, err := ix.Upsert(context.Background(), []model.CorpusPrecedent{
		{Title: "Cass. com. 3 mai 2012", Description: "Clause abusive."},
		{Title: "pré-vectorisé", Embedding: []float32{1, 0}},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	require.Len(t, corpus.upserted, 2)
	assert.Equal(t, []float32{0.5, 0.5}, corpus.upserted[0].Embedding)
	assert.Equal(t, []float32{1, 0}, corpus.upserted[1].Embedding)
}

func TestSearchSimilarEmptyCorpus(t *testing.T) {
	ix := NewStoreIndex(&stubCorpus{}, &stubEmbedder{vec: []float32{1, 0}}, 0)

	results, err := ix.SearchSimilar(context.Background(), "q", 2)
	require.NoError(t, err)
	assert.Empty(t, results)
}
