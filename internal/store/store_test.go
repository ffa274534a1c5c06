package store

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	saeserrors "github.com/Aman-CERP/saesagent/internal/errors"
)

// =============================================================================
// Corpus
// =============================================================================

func TestLoadCorpus(t *testing.T) {
	// Given: a corpus file in the ingestion format
	path := filepath.Join(t.TempDir(), "reglamentos.json")
	body := `[
	  {"documento": "Reglamento General de Estudios", "fragmento_id": "rge-1", "texto": "Artículo 1. Objeto.", "palabras_clave": ["objeto"]},
	  {"documento": "Reglamento General de Estudios", "fragmento_id": "rge-2", "texto": "Artículo 9. Crédito.", "palabras_clave": []}
	]`
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))

	// When: loading it
	c, err := LoadCorpus(path)

	// Then: fragments keep file order
	require.NoError(t, err)
	require.Equal(t, 2, c.Len())
	assert.Equal(t, "rge-1", c.Fragments[0].ID)
	assert.Equal(t, []string{"objeto"}, c.Fragments[0].Keywords)
	assert.Equal(t, []string{"Artículo 1. Objeto.", "Artículo 9. Crédito."}, c.Texts())
	assert.Equal(t, "Artículo 9. Crédito.", c.Text(1))
	assert.Equal(t, "", c.Text(2))
}

func TestLoadCorpus_Errors(t *testing.T) {
	dir := t.TempDir()

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadCorpus(filepath.Join(dir, "nope.json"))
		require.Error(t, err)
		assert.Equal(t, saeserrors.ErrCodeCorpusMissing, saeserrors.GetCode(err))
		assert.True(t, saeserrors.IsFatal(err))
	})

	t.Run("not an array", func(t *testing.T) {
		path := filepath.Join(dir, "bad.json")
		require.NoError(t, os.WriteFile(path, []byte(`{"texto": "x"}`), 0644))
		_, err := LoadCorpus(path)
		assert.Equal(t, saeserrors.ErrCodeCorruptIndex, saeserrors.GetCode(err))
	})
}

// =============================================================================
// HNSW index
// =============================================================================

func newTestIndex(t *testing.T) *HNSWIndex {
	t.Helper()
	idx := NewHNSWIndex(DefaultVectorIndexConfig(4))
	require.NoError(t, idx.Add(0, [][]float32{
		{1, 0, 0, 0},
		{0, 1, 0, 0},
		{0.9, 0.1, 0, 0},
	}))
	return idx
}

func TestHNSWIndex_SearchOrdersByDistance(t *testing.T) {
	// Given: three fragments, two pointing the same way
	idx := newTestIndex(t)
	defer func() { _ = idx.Close() }()

	// When: searching near the first axis
	hits, err := idx.Search(context.Background(), []float32{2, 0, 0, 0}, 2)

	// Then: keys are fragment positions, nearest first
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, 0, hits[0].Index)
	assert.Equal(t, 2, hits[1].Index)
	assert.LessOrEqual(t, hits[0].Distance, hits[1].Distance)
}

func TestHNSWIndex_SearchIsRepeatable(t *testing.T) {
	idx := newTestIndex(t)
	q := []float32{0.5, 0.5, 0, 0}

	first, err := idx.Search(context.Background(), q, 3)
	require.NoError(t, err)
	second, err := idx.Search(context.Background(), q, 3)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestHNSWIndex_DimensionMismatch(t *testing.T) {
	idx := newTestIndex(t)

	_, err := idx.Search(context.Background(), []float32{1, 0}, 2)
	var dm ErrDimensionMismatch
	require.ErrorAs(t, err, &dm)
	assert.Equal(t, 4, dm.Expected)

	assert.Error(t, idx.Add(3, [][]float32{{1, 2, 3}}))
}

func TestHNSWIndex_EmptyAndClosed(t *testing.T) {
	idx := NewHNSWIndex(DefaultVectorIndexConfig(4))
	hits, err := idx.Search(context.Background(), []float32{1, 0, 0, 0}, 5)
	require.NoError(t, err)
	assert.Empty(t, hits)

	require.NoError(t, idx.Close())
	_, err = idx.Search(context.Background(), []float32{1, 0, 0, 0}, 5)
	assert.Error(t, err)
	assert.Equal(t, 0, idx.Len())
}

func TestHNSWIndex_SearchCancelled(t *testing.T) {
	idx := newTestIndex(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := idx.Search(ctx, []float32{1, 0, 0, 0}, 2)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestHNSWIndex_SaveAndLoad(t *testing.T) {
	// Given: a saved index
	path := filepath.Join(t.TempDir(), "idx", "reglamentos.hnsw")
	cfg := DefaultVectorIndexConfig(4)
	cfg.Model = "nomic-embed-text"
	idx := NewHNSWIndex(cfg)
	require.NoError(t, idx.Add(0, [][]float32{{1, 0, 0, 0}, {0, 1, 0, 0}}))
	require.NoError(t, idx.Save(path))

	// When: loading it back
	loaded, err := LoadHNSWIndex(path)
	require.NoError(t, err)

	// Then: size, model and search results survive
	assert.Equal(t, 2, loaded.Len())
	assert.Equal(t, 4, loaded.Dimensions())
	assert.Equal(t, "nomic-embed-text", loaded.Model())
	require.NoError(t, loaded.CheckAlignment(2))
	assert.Equal(t, saeserrors.ErrCodeCorruptIndex, saeserrors.GetCode(loaded.CheckAlignment(3)))

	hits, err := loaded.Search(context.Background(), []float32{0, 1, 0, 0}, 1)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, 1, hits[0].Index)
}

func TestLoadHNSWIndex_Errors(t *testing.T) {
	dir := t.TempDir()

	t.Run("missing", func(t *testing.T) {
		_, err := LoadHNSWIndex(filepath.Join(dir, "none.hnsw"))
		assert.Equal(t, saeserrors.ErrCodeIndexMissing, saeserrors.GetCode(err))
		assert.True(t, saeserrors.IsFatal(err))
	})

	t.Run("corrupt metadata", func(t *testing.T) {
		path := filepath.Join(dir, "bad.hnsw")
		require.NoError(t, os.WriteFile(path+".meta", []byte("not gob"), 0644))
		_, err := LoadHNSWIndex(path)
		assert.Equal(t, saeserrors.ErrCodeCorruptIndex, saeserrors.GetCode(err))
	})
}

func TestNormalizeVectorInPlace(t *testing.T) {
	v := []float32{3, 4}
	normalizeVectorInPlace(v)
	assert.InDelta(t, 1.0, math.Hypot(float64(v[0]), float64(v[1])), 1e-6)

	zero := []float32{0, 0}
	normalizeVectorInPlace(zero)
	assert.Equal(t, []float32{0, 0}, zero)
}

// =============================================================================
// FileLock
// =============================================================================

func TestFileLock(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reglamentos.hnsw")

	first := NewFileLock(path)
	ok, err := first.TryLock()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, path+".lock", first.Path())

	second := NewFileLock(path)
	ok, err = second.TryLock()
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, first.Unlock())
	require.NoError(t, first.Unlock())

	ok, err = second.TryLock()
	require.NoError(t, err)
	assert.True(t, ok)
	require.NoError(t, second.Unlock())
}
