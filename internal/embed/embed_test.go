package embed

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	saeserrors "github.com/Aman-CERP/saesagent/internal/errors"
)

func norm(v []float32) float64 {
	var s float64
	for _, x := range v {
		s += float64(x) * float64(x)
	}
	return math.Sqrt(s)
}

func cosine(a, b []float32) float64 {
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot / (norm(a) * norm(b))
}

// =============================================================================
// StaticEmbedder
// =============================================================================

func TestStaticEmbedder_Deterministic(t *testing.T) {
	e, err := NewStaticEmbedder(0)
	require.NoError(t, err)

	a, err := e.Embed(context.Background(), "¿Qué es la reinscripción?")
	require.NoError(t, err)
	b, err := e.Embed(context.Background(), "¿Qué es la reinscripción?")
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.Len(t, a, StaticDimensions)
	assert.InDelta(t, 1.0, norm(a), 1e-5)
	assert.Equal(t, "static384", e.ModelName())
}

func TestStaticEmbedder_AccentsAndPluralsAreClose(t *testing.T) {
	e, err := NewStaticEmbedder(256)
	require.NoError(t, err)
	ctx := context.Background()

	// Given: the same concept written two ways, and an unrelated phrase
	plain, _ := e.Embed(ctx, "creditos academicos")
	accented, _ := e.Embed(ctx, "Créditos académicos")
	other, _ := e.Embed(ctx, "servicio social comunitario")

	// Then: folding makes the first two identical and the third distant
	assert.InDelta(t, 1.0, cosine(plain, accented), 1e-6)
	assert.Less(t, cosine(plain, other), 0.5)
}

func TestStaticEmbedder_EmptyAndClosed(t *testing.T) {
	e, err := NewStaticEmbedder(8)
	require.NoError(t, err)

	v, err := e.Embed(context.Background(), "   ")
	require.NoError(t, err)
	assert.Equal(t, make([]float32, 8), v)

	require.NoError(t, e.Close())
	assert.False(t, e.Available(context.Background()))
	_, err = e.Embed(context.Background(), "texto")
	assert.Error(t, err)
}

// =============================================================================
// CachedEmbedder
// =============================================================================

type countingEmbedder struct {
	*StaticEmbedder
	single atomic.Int32
	batch  atomic.Int32
}

func (c *countingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	c.single.Add(1)
	return c.StaticEmbedder.Embed(ctx, text)
}

func (c *countingEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	c.batch.Add(int32(len(texts)))
	return c.StaticEmbedder.EmbedBatch(ctx, texts)
}

func TestCachedEmbedder(t *testing.T) {
	s, err := NewStaticEmbedder(16)
	require.NoError(t, err)
	inner := &countingEmbedder{StaticEmbedder: s}
	c := NewCachedEmbedder(inner, 10)
	ctx := context.Background()

	t.Run("single embeds hit the cache", func(t *testing.T) {
		first, err := c.Embed(ctx, "horario")
		require.NoError(t, err)
		second, err := c.Embed(ctx, "horario")
		require.NoError(t, err)

		assert.Equal(t, first, second)
		assert.Equal(t, int32(1), inner.single.Load())
	})

	t.Run("batch only embeds misses", func(t *testing.T) {
		vecs, err := c.EmbedBatch(ctx, []string{"horario", "kardex", "promedio"})
		require.NoError(t, err)
		require.Len(t, vecs, 3)
		assert.Equal(t, int32(2), inner.batch.Load())
		assert.Equal(t, 3, c.Len())
	})

	t.Run("purge", func(t *testing.T) {
		c.Purge()
		assert.Equal(t, 0, c.Len())
	})
}

// =============================================================================
// HTTP embedders
// =============================================================================

func TestOllamaEmbedder_Batches(t *testing.T) {
	// Given: an Ollama stub returning one 3-d vector per input
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "/api/embed", r.URL.Path)
		var req ollamaEmbedRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		resp := ollamaEmbedResponse{Model: req.Model}
		for range req.Input {
			resp.Embeddings = append(resp.Embeddings, []float64{3, 4, 0})
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	e := NewOllamaEmbedder(OllamaConfig{Host: srv.URL + "/", Model: "nomic-embed-text", BatchSize: 2})

	// When: embedding three texts
	vecs, err := e.EmbedBatch(context.Background(), []string{"a", "b", "c"})

	// Then: two requests were made and vectors are unit length
	require.NoError(t, err)
	require.Len(t, vecs, 3)
	assert.Equal(t, int32(2), calls.Load())
	assert.InDelta(t, 0.6, vecs[0][0], 1e-6)
	assert.Equal(t, 3, e.Dimensions())
	assert.True(t, e.Available(context.Background()))
}

func TestOllamaEmbedder_ClientErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, `{"error":"model not found"}`, http.StatusNotFound)
	}))
	defer srv.Close()

	e := NewOllamaEmbedder(OllamaConfig{Host: srv.URL, MaxRetries: 2})
	_, err := e.Embed(context.Background(), "hola")

	require.Error(t, err)
	assert.Equal(t, saeserrors.ErrCodeInvalidInput, saeserrors.GetCode(err))
	assert.Equal(t, int32(1), calls.Load())
}

func TestOpenAIEmbedder_RetriesServerErrors(t *testing.T) {
	// Given: a backend failing once with 503
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"data":[{"index":1,"embedding":[0,2]},{"index":0,"embedding":[2,0]}]}`))
	}))
	defer srv.Close()

	e, err := NewOpenAIEmbedder(OpenAIConfig{APIKey: "sk-test", BaseURL: srv.URL, Model: "bge-m3", Dimensions: 2, MaxRetries: 1})
	require.NoError(t, err)

	// When: embedding two texts
	vecs, err := e.EmbedBatch(context.Background(), []string{"x", "y"})

	// Then: the retry succeeds and results follow the response index
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, []float32{1, 0}, vecs[0])
	assert.Equal(t, []float32{0, 1}, vecs[1])
}

func TestNewOpenAIEmbedder_RequiresKey(t *testing.T) {
	_, err := NewOpenAIEmbedder(OpenAIConfig{})
	assert.Equal(t, saeserrors.ErrCodeConfigInvalid, saeserrors.GetCode(err))
}

// =============================================================================
// Factory
// =============================================================================

func TestParseProvider(t *testing.T) {
	assert.Equal(t, ProviderStatic, ParseProvider("static"))
	assert.Equal(t, ProviderOpenAI, ParseProvider("OpenAI"))
	assert.Equal(t, ProviderOllama, ParseProvider(""))
	assert.Equal(t, ProviderOllama, ParseProvider("mystery"))
	assert.True(t, IsValidProvider("ollama"))
	assert.False(t, IsValidProvider("mlx"))
}

func TestNewEmbedder(t *testing.T) {
	e, err := NewEmbedder(Options{Provider: "static", Dimensions: 32})
	require.NoError(t, err)
	cached, ok := e.(*CachedEmbedder)
	require.True(t, ok)
	assert.Equal(t, 32, cached.Dimensions())

	raw, err := NewEmbedder(Options{Provider: "static", CacheSize: -1})
	require.NoError(t, err)
	_, isStatic := raw.(*StaticEmbedder)
	assert.True(t, isStatic)

	o, err := NewEmbedder(Options{Provider: "ollama", Host: "http://ollama:11434", Model: "bge-m3", CacheSize: -1})
	require.NoError(t, err)
	assert.Equal(t, "bge-m3", o.ModelName())
}
