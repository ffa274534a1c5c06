package search

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/saesagent/internal/embed"
	saeserrors "github.com/Aman-CERP/saesagent/internal/errors"
	"github.com/Aman-CERP/saesagent/internal/lexical"
	"github.com/Aman-CERP/saesagent/internal/store"
)

const testDims = 64

var testFragments = []store.Fragment{
	{ID: "rge-41", Document: "RGE", Text: "Artículo 41. El alumno deberá obtener un promedio mínimo de seis en cada unidad de aprendizaje para acreditarla conforme al presente reglamento."},
	{ID: "gaceta", Document: "Gaceta", Text: "Gaceta Politécnica órgano informativo del Instituto Politécnico Nacional, publicación mensual con avisos sobre promedio, reinscripción y servicio social para la comunidad."},
	{ID: "rge-19", Document: "RGE", Text: "La reinscripción se realizará en las fechas que establezca el calendario académico siempre que el alumno no adeude unidades de aprendizaje."},
	{ID: "rss-1", Document: "RSS", Text: "El servicio social es un requisito para la titulación y consiste en actividades de carácter temporal en beneficio de la comunidad."},
	{ID: "rge-5", Document: "RGE", Text: "Las unidades de aprendizaje podrán cursarse en modalidad escolarizada, no escolarizada o mixta de acuerdo con el programa académico vigente."},
}

func newStaticEmbedder(t *testing.T) *embed.StaticEmbedder {
	t.Helper()
	e, err := embed.NewStaticEmbedder(testDims)
	require.NoError(t, err)
	return e
}

func buildVectorIndex(t *testing.T, e embed.Embedder, corpus *store.Corpus) *store.HNSWIndex {
	t.Helper()
	vecs, err := e.EmbedBatch(context.Background(), corpus.Texts())
	require.NoError(t, err)
	cfg := store.DefaultVectorIndexConfig(e.Dimensions())
	cfg.Model = e.ModelName()
	idx := store.NewHNSWIndex(cfg)
	require.NoError(t, idx.Add(0, vecs))
	return idx
}

func newTestRetriever(t *testing.T, e embed.Embedder) *Retriever {
	t.Helper()
	corpus := &store.Corpus{Fragments: testFragments}
	analyzer, err := lexical.NewAnalyzer()
	require.NoError(t, err)
	lex := lexical.Build(analyzer, corpus.Texts())

	r, err := NewRetriever(corpus, lex, buildVectorIndex(t, newStaticEmbedder(t), corpus), e)
	require.NoError(t, err)
	return r
}

// =============================================================================
// Retriever
// =============================================================================

func TestRetriever_EmptyQuestion(t *testing.T) {
	r := newTestRetriever(t, newStaticEmbedder(t))

	for _, q := range []string{"", "   ", "\t\n"} {
		out, err := r.Search(context.Background(), q, DefaultOptions())
		require.NoError(t, err)
		assert.Equal(t, "", out)
	}
}

func TestRetriever_ArticleFragmentRanksFirst(t *testing.T) {
	r := newTestRetriever(t, newStaticEmbedder(t))

	// When: asking about the minimum grade average
	out, err := r.Search(context.Background(), "¿Cuál es el promedio mínimo para acreditar?", DefaultOptions())

	// Then: the article on averages leads the context
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "Artículo 41."), out)
}

func TestRetriever_TopMergeLimitsFragments(t *testing.T) {
	r := newTestRetriever(t, newStaticEmbedder(t))

	hits, err := r.Rank(context.Background(), "promedio mínimo", Options{TopMerge: 1})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "rge-41", hits[0].Fragment.ID)
	assert.Greater(t, hits[0].Lexical, 0.0)

	out, err := r.Search(context.Background(), "promedio mínimo", Options{TopMerge: 1})
	require.NoError(t, err)
	assert.NotContains(t, out, Separator)
}

func TestRetriever_NoiseNeverReturned(t *testing.T) {
	r := newTestRetriever(t, newStaticEmbedder(t))
	questions := []string{
		"gaceta politécnica órgano informativo",
		"promedio reinscripción servicio social comunidad",
		"publicación mensual con avisos",
	}

	for _, q := range questions {
		t.Run(q, func(t *testing.T) {
			hits, err := r.Rank(context.Background(), q, Options{TopMerge: 10})
			require.NoError(t, err)
			for _, h := range hits {
				assert.NotEqual(t, 1, h.Index)
			}
			out, err := r.Search(context.Background(), q, Options{TopMerge: 10})
			require.NoError(t, err)
			assert.NotContains(t, out, "Gaceta")
		})
	}
}

func TestRetriever_Deterministic(t *testing.T) {
	r := newTestRetriever(t, newStaticEmbedder(t))
	q := "requisitos de servicio social y reinscripción"

	first, err := r.Search(context.Background(), q, DefaultOptions())
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := r.Search(context.Background(), q, DefaultOptions())
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

type failingEmbedder struct{ *embed.StaticEmbedder }

func (failingEmbedder) Embed(context.Context, string) ([]float32, error) {
	return nil, errors.New("ollama unreachable")
}

func TestRetriever_EmbeddingFailurePropagates(t *testing.T) {
	r := newTestRetriever(t, failingEmbedder{newStaticEmbedder(t)})

	_, err := r.Search(context.Background(), "promedio mínimo", DefaultOptions())

	require.Error(t, err)
	assert.Equal(t, saeserrors.ErrCodeRetrievalFailed, saeserrors.GetCode(err))
	assert.Contains(t, err.Error(), "retrieval failed")
}

func TestNewRetriever_NilDependencies(t *testing.T) {
	_, err := NewRetriever(nil, nil, nil, nil)
	assert.ErrorIs(t, err, ErrNilDependency)
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()
	corpusPath := filepath.Join(dir, "reglamentos.json")
	indexPath := filepath.Join(dir, "reglamentos.hnsw")

	data, err := json.Marshal(testFragments)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(corpusPath, data, 0644))

	e := newStaticEmbedder(t)
	corpus := &store.Corpus{Fragments: testFragments}
	require.NoError(t, buildVectorIndex(t, e, corpus).Save(indexPath))

	t.Run("loads and searches", func(t *testing.T) {
		r, err := Open(corpusPath, indexPath, e)
		require.NoError(t, err)
		assert.Equal(t, len(testFragments), r.Corpus().Len())
		assert.Equal(t, 1, r.Stats().Noise)

		out, err := r.Search(context.Background(), "servicio social", DefaultOptions())
		require.NoError(t, err)
		assert.Contains(t, out, "servicio social")
	})

	t.Run("missing corpus", func(t *testing.T) {
		_, err := Open(filepath.Join(dir, "nope.json"), indexPath, e)
		assert.Equal(t, saeserrors.ErrCodeCorpusMissing, saeserrors.GetCode(err))
	})

	t.Run("dimension mismatch", func(t *testing.T) {
		other, err := embed.NewStaticEmbedder(32)
		require.NoError(t, err)
		_, err = Open(corpusPath, indexPath, other)
		assert.Equal(t, saeserrors.ErrCodeDimensionMismatch, saeserrors.GetCode(err))
	})
}

// =============================================================================
// Expander
// =============================================================================

func TestQueryExpander(t *testing.T) {
	e := NewQueryExpander()

	tests := []struct {
		name     string
		input    string
		contains []string
		exact    string
	}{
		{name: "no keys", input: "Hola", exact: "hola"},
		{name: "single key", input: "¿Cuántos Créditos tengo? credito", contains: []string{"credito valor academico articulo 9"}},
		{name: "irregular also matches regular", input: "soy irregular", contains: []string{"articulo 79", "situacion escolar regular"}},
		{name: "phrase key", input: "mis materias aprobadas", contains: []string{"acreditar aprobar kardex"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := e.Expand(tt.input)
			if tt.exact != "" {
				assert.Equal(t, tt.exact, got)
			}
			for _, c := range tt.contains {
				assert.Contains(t, got, c)
			}
		})
	}
}

func TestQueryExpander_FixedOrder(t *testing.T) {
	got := NewQueryExpander().Expand("baja y promedio")
	assert.Less(t, strings.Index(got, "baja temporal"), strings.Index(got, "promedio calificacion"))

	custom := NewQueryExpander(WithExpansion("Beca", "beca apoyo economico"))
	assert.Contains(t, custom.Expand("quiero una beca"), "beca apoyo economico")
}

// =============================================================================
// Fusion and assembly
// =============================================================================

func TestFuse_Ordering(t *testing.T) {
	vector := map[int]float64{0: 2.0, 1: 1.25, 2: 3.0}
	lex := map[int]float64{1: 0.5, 3: 2.0}

	got := Fuse(vector, lex)

	require.Len(t, got, 4)
	// 3: 3.0 (lexical 2), 2: 3.0 (lexical 0), 1: 2.0 (lexical 0.5), 0: 2.0
	assert.Equal(t, []int{3, 2, 1, 0}, []int{got[0].Index, got[1].Index, got[2].Index, got[3].Index})
	assert.InDelta(t, 2.0, got[2].Score, 1e-9)
}

func TestFuse_EqualScoresBreakOnIndex(t *testing.T) {
	got := Fuse(map[int]float64{7: 1, 2: 1, 5: 1}, nil)
	assert.Equal(t, []int{2, 5, 7}, []int{got[0].Index, got[1].Index, got[2].Index})
}

func TestVectorScores_RankDecayAndNoise(t *testing.T) {
	analyzer, err := lexical.NewAnalyzer()
	require.NoError(t, err)
	lex := lexical.Build(analyzer, (&store.Corpus{Fragments: testFragments}).Texts())

	hits := []store.VectorHit{{Index: 1}, {Index: 0}, {Index: 99}, {Index: 2}}
	scores := vectorScores(hits, lex)

	assert.NotContains(t, scores, 1)
	assert.NotContains(t, scores, 99)
	assert.InDelta(t, 2.0/1.3, scores[0], 1e-9)
	assert.InDelta(t, 2.0/1.6, scores[2], 1e-9)
}

func TestOpensWithArticle(t *testing.T) {
	assert.True(t, opensWithArticle("ARTÍCULO 9. Crédito es la unidad de valor"))
	assert.False(t, opensWithArticle(strings.Repeat("x", 120)+" artículo 9"))
}

func TestAssemble(t *testing.T) {
	long := "Artículo 9.   El crédito es la unidad de valor o puntuación de una unidad de aprendizaje."
	dup := "ARTICULO 9. El credito es la unidad de valor o puntuacion de una unidad de aprendizaje."

	t.Run("dedupes on folded form and collapses space", func(t *testing.T) {
		out := Assemble([]string{long, dup}, 2000)
		assert.Equal(t, "Artículo 9. El crédito es la unidad de valor o puntuación de una unidad de aprendizaje.", out)
	})

	t.Run("drops short fragments", func(t *testing.T) {
		assert.Equal(t, "", Assemble([]string{"Artículo 9. Crédito."}, 2000))
	})

	t.Run("truncates on rune boundary", func(t *testing.T) {
		out := Assemble([]string{long}, 25)
		assert.Equal(t, "Artículo 9. El crédito es", out)
	})

	t.Run("too short after truncation", func(t *testing.T) {
		assert.Equal(t, "", Assemble([]string{long}, 10))
	})
}
