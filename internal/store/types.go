// Package store holds the regulation corpus and its vector index.
// Both are produced offline and are read-only while serving.
package store

import (
	"context"
	"fmt"
)

// Fragment is one retrievable unit of regulation text.
// Its position in the corpus is its index everywhere else.
type Fragment struct {
	ID       string   `json:"fragmento_id"`
	Document string   `json:"documento"`
	Text     string   `json:"texto"`
	Keywords []string `json:"palabras_clave"`
}

// VectorHit is one nearest-neighbour result. Index is the fragment position.
type VectorHit struct {
	Index    int
	Distance float32
}

// VectorIndex finds the fragments closest to a query embedding.
type VectorIndex interface {
	// Search returns up to k hits sorted by ascending distance, ties by index.
	Search(ctx context.Context, query []float32, k int) ([]VectorHit, error)

	// Len returns the number of indexed fragments.
	Len() int

	// Dimensions returns the embedding width the index was built with.
	Dimensions() int
}

// VectorIndexConfig configures the HNSW graph.
type VectorIndexConfig struct {
	Dimensions int
	M          int
	EfSearch   int
	// Model records which embedding model produced the vectors.
	Model string
}

// DefaultVectorIndexConfig returns defaults for the given width.
func DefaultVectorIndexConfig(dimensions int) VectorIndexConfig {
	return VectorIndexConfig{
		Dimensions: dimensions,
		M:          16,
		EfSearch:   64,
	}
}

// ErrDimensionMismatch is returned when a vector has the wrong width.
type ErrDimensionMismatch struct {
	Expected int
	Got      int
}

func (e ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("dimension mismatch: expected %d, got %d", e.Expected, e.Got)
}
