package store

import (
	"bufio"
	"context"
	"encoding/gob"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/coder/hnsw"

	saeserrors "github.com/Aman-CERP/saesagent/internal/errors"
)

// HNSWIndex is a cosine HNSW graph keyed by fragment position.
type HNSWIndex struct {
	mu     sync.RWMutex
	graph  *hnsw.Graph[uint64]
	config VectorIndexConfig
	closed bool
}

// hnswMetadata is the gob sidecar written next to the graph file.
type hnswMetadata struct {
	Config VectorIndexConfig
	Count  int
}

// NewHNSWIndex creates an empty index.
func NewHNSWIndex(cfg VectorIndexConfig) *HNSWIndex {
	if cfg.M == 0 {
		cfg.M = 16
	}
	if cfg.EfSearch == 0 {
		cfg.EfSearch = 64
	}
	return &HNSWIndex{graph: newGraph(cfg), config: cfg}
}

func newGraph(cfg VectorIndexConfig) *hnsw.Graph[uint64] {
	g := hnsw.NewGraph[uint64]()
	g.Distance = hnsw.CosineDistance
	g.M = cfg.M
	g.EfSearch = cfg.EfSearch
	g.Ml = 0.25
	return g
}

// Add inserts vectors for consecutive fragment positions starting at first.
func (s *HNSWIndex) Add(first int, vectors [][]float32) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("index is closed")
	}
	for _, v := range vectors {
		if len(v) != s.config.Dimensions {
			return ErrDimensionMismatch{Expected: s.config.Dimensions, Got: len(v)}
		}
	}

	for i, v := range vectors {
		vec := make([]float32, len(v))
		copy(vec, v)
		normalizeVectorInPlace(vec)
		s.graph.Add(hnsw.MakeNode(uint64(first+i), vec))
	}
	return nil
}

// Search implements VectorIndex.
func (s *HNSWIndex) Search(ctx context.Context, query []float32, k int) ([]VectorHit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, fmt.Errorf("index is closed")
	}
	if len(query) != s.config.Dimensions {
		return nil, ErrDimensionMismatch{Expected: s.config.Dimensions, Got: len(query)}
	}
	if s.graph.Len() == 0 || k <= 0 {
		return []VectorHit{}, nil
	}

	q := make([]float32, len(query))
	copy(q, query)
	normalizeVectorInPlace(q)

	nodes := s.graph.Search(q, k)
	hits := make([]VectorHit, 0, len(nodes))
	for _, node := range nodes {
		hits = append(hits, VectorHit{
			Index:    int(node.Key),
			Distance: s.graph.Distance(q, node.Value),
		})
	}

	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Distance != hits[j].Distance {
			return hits[i].Distance < hits[j].Distance
		}
		return hits[i].Index < hits[j].Index
	})
	return hits, nil
}

// Len implements VectorIndex.
func (s *HNSWIndex) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return 0
	}
	return s.graph.Len()
}

// Dimensions implements VectorIndex.
func (s *HNSWIndex) Dimensions() int {
	return s.config.Dimensions
}

// Model returns the embedding model recorded at build time.
func (s *HNSWIndex) Model() string {
	return s.config.Model
}

// Save writes the graph to path and the metadata to path+".meta".
// Both files are written to temporaries first and renamed into place.
func (s *HNSWIndex) Save(path string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return fmt.Errorf("index is closed")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create index directory: %w", err)
	}

	if err := writeAtomic(path, func(f *os.File) error {
		return s.graph.Export(f)
	}); err != nil {
		return fmt.Errorf("export graph: %w", err)
	}

	meta := hnswMetadata{Config: s.config, Count: s.graph.Len()}
	if err := writeAtomic(path+".meta", func(f *os.File) error {
		return gob.NewEncoder(f).Encode(meta)
	}); err != nil {
		return fmt.Errorf("save metadata: %w", err)
	}
	return nil
}

func writeAtomic(path string, write func(*os.File) error) error {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}

// LoadHNSWIndex opens a graph saved with Save. A missing file carries
// ErrCodeIndexMissing; an unreadable one ErrCodeCorruptIndex.
func LoadHNSWIndex(path string) (*HNSWIndex, error) {
	meta, err := readMetadata(path + ".meta")
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, saeserrors.New(saeserrors.ErrCodeIndexMissing, "vector index not found", err).
				WithDetail("path", path).
				WithSuggestion("run 'saesagent index' to build it")
		}
		return nil, fmt.Errorf("open vector index: %w", err)
	}
	defer func() {
		if err := f.Close(); err != nil {
			slog.Warn("failed to close vector index", slog.String("error", err.Error()))
		}
	}()

	g := newGraph(meta.Config)
	// Import needs an io.ByteReader.
	if err := g.Import(bufio.NewReader(f)); err != nil {
		return nil, saeserrors.New(saeserrors.ErrCodeCorruptIndex, "vector index is unreadable", err).
			WithDetail("path", path)
	}
	if g.Len() != meta.Count {
		return nil, saeserrors.New(saeserrors.ErrCodeCorruptIndex,
			fmt.Sprintf("vector index holds %d nodes, metadata says %d", g.Len(), meta.Count), nil).
			WithDetail("path", path)
	}

	return &HNSWIndex{graph: g, config: meta.Config}, nil
}

func readMetadata(path string) (hnswMetadata, error) {
	var meta hnswMetadata
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return meta, saeserrors.New(saeserrors.ErrCodeIndexMissing, "vector index metadata not found", err).
				WithDetail("path", path)
		}
		return meta, fmt.Errorf("open index metadata: %w", err)
	}
	defer func() { _ = f.Close() }()

	if err := gob.NewDecoder(f).Decode(&meta); err != nil {
		return meta, saeserrors.New(saeserrors.ErrCodeCorruptIndex, "vector index metadata is unreadable", err).
			WithDetail("path", path)
	}
	return meta, nil
}

// CheckAlignment verifies that the index covers exactly n fragments.
func (s *HNSWIndex) CheckAlignment(n int) error {
	if got := s.Len(); got != n {
		return saeserrors.New(saeserrors.ErrCodeCorruptIndex,
			fmt.Sprintf("vector index has %d entries for %d fragments", got, n), nil).
			WithSuggestion("rebuild the index after changing the corpus")
	}
	return nil
}

// Close releases the graph.
func (s *HNSWIndex) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.graph = nil
	return nil
}

var _ VectorIndex = (*HNSWIndex)(nil)

// normalizeVectorInPlace scales v to unit length. Zero vectors are left alone.
func normalizeVectorInPlace(v []float32) {
	var sumSquares float64
	for _, val := range v {
		sumSquares += float64(val) * float64(val)
	}
	if sumSquares == 0 {
		return
	}
	inv := float32(1.0 / math.Sqrt(sumSquares))
	for i := range v {
		v[i] *= inv
	}
}
