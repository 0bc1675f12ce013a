package similarity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docqa/internal/domain"
)

func TestCosine_Basic(t *testing.T) {
	got, err := Cosine([]float64{1, 0}, []float64{0, 1})
	require.NoError(t, err)
	assert.Equal(t, 0.0, got)

	got, err = Cosine([]float64{1, 1}, []float64{1, 1})
	require.NoError(t, err)
	assert.InDelta(t, 1.0, got, 1e-9)

	got, err = Cosine([]float64{1, 0}, []float64{-1, 0})
	require.NoError(t, err)
	assert.InDelta(t, -1.0, got, 1e-9)
}

func TestCosine_DimensionMismatch(t *testing.T) {
	_, err := Cosine([]float64{1, 2}, []float64{1})
	require.ErrorIs(t, err, domain.ErrDimensionMismatch)
}

func TestCosine_ZeroVector(t *testing.T) {
	got, err := Cosine([]float64{0, 0, 0}, []float64{1, 2, 3})
	require.NoError(t, err)
	assert.Equal(t, 0.0, got)

	got, err = Cosine([]float64{0, 0}, []float64{0, 0})
	require.NoError(t, err)
	assert.Equal(t, 0.0, got)
}

func TestCosine_SymmetricAndSelfSimilar(t *testing.T) {
	vectors := [][]float64{
		{0.3, -1.2, 4.5, 0.01},
		{7, 7, 7, 7},
		{-0.5, 0.25, 0, 9},
		{1e-3, 2e-3, -3e-3, 4e-3},
	}
	for _, a := range vectors {
		self, err := Cosine(a, a)
		require.NoError(t, err)
		assert.InDelta(t, 1.0, self, 1e-9)
		for _, b := range vectors {
			ab, err := Cosine(a, b)
			require.NoError(t, err)
			ba, err := Cosine(b, a)
			require.NoError(t, err)
			assert.Equal(t, ab, ba)
			assert.GreaterOrEqual(t, ab, -1.0)
			assert.LessOrEqual(t, ab, 1.0)
		}
	}
}

func TestTopK_RanksAndTruncates(t *testing.T) {
	chunks := []domain.Chunk{
		{ID: "a", Embedding: []float64{0, 1}},
		{ID: "b", Embedding: []float64{1, 0}},
		{ID: "c", Embedding: []float64{1, 1}},
		{ID: "d", Embedding: []float64{-1, 0}},
	}
	res, err := TopK([]float64{1, 0.1}, chunks, 3)
	require.NoError(t, err)
	require.Len(t, res, 3)
	assert.Equal(t, "b", res[0].Chunk.ID)
	assert.Equal(t, "c", res[1].Chunk.ID)
	assert.Equal(t, "a", res[2].Chunk.ID)
	for i := 1; i < len(res); i++ {
		assert.GreaterOrEqual(t, res[i-1].Similarity, res[i].Similarity)
	}
}

func TestTopK_SkipsUnembedded(t *testing.T) {
	chunks := []domain.Chunk{
		{ID: "plain"},
		{ID: "embedded", Embedding: []float64{1, 0}},
	}
	res, err := TopK([]float64{1, 0}, chunks, 3)
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, "embedded", res[0].Chunk.ID)
}

func TestTopK_EmptyCorpus(t *testing.T) {
	res, err := TopK([]float64{1, 0}, nil, 3)
	require.NoError(t, err)
	assert.Empty(t, res)
}

func TestTopK_DefaultK(t *testing.T) {
	var chunks []domain.Chunk
	for i := 0; i < 10; i++ {
		chunks = append(chunks, domain.Chunk{ID: string(rune('a' + i)), Embedding: []float64{1, float64(i)}})
	}
	res, err := TopK([]float64{1, 0}, chunks, 0)
	require.NoError(t, err)
	assert.Len(t, res, DefaultK)
}

func TestTopK_TiesKeepInputOrder(t *testing.T) {
	chunks := []domain.Chunk{
		{ID: "first", Embedding: []float64{2, 0}},
		{ID: "second", Embedding: []float64{1, 0}},
		{ID: "third", Embedding: []float64{3, 0}},
	}
	res, err := TopK([]float64{1, 0}, chunks, 3)
	require.NoError(t, err)
	require.Len(t, res, 3)
	assert.Equal(t, "first", res[0].Chunk.ID)
	assert.Equal(t, "second", res[1].Chunk.ID)
	assert.Equal(t, "third", res[2].Chunk.ID)
}

func TestTopK_DimensionMismatchPropagates(t *testing.T) {
	chunks := []domain.Chunk{{ID: "x", Embedding: []float64{1, 2, 3}}}
	_, err := TopK([]float64{1, 0}, chunks, 3)
	require.ErrorIs(t, err, domain.ErrDimensionMismatch)
}
