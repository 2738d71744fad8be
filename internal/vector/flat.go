// Package vector provides a flat vector index with exact nearest-neighbor
// search by Euclidean distance.
package vector

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// ErrBadK is returned when Search is called with k <= 0.
var ErrBadK = errors.New("vector: k must be positive")

// Result is a single search hit: the position of the vector in insertion
// order and its Euclidean distance to the query.
type Result struct {
	Position int
	Distance float64
}

// FlatIndex stores vectors in insertion order and searches them exhaustively.
// Search results are ordered by ascending distance with ties broken by
// insertion order, so position i always corresponds to the i-th vector given
// to Build or Append. Safe for concurrent use.
type FlatIndex struct {
	dimensions int
	vectors    [][]float32
	mu         sync.RWMutex
}

// NewFlatIndex creates an empty index with the given dimension.
func NewFlatIndex(dimensions int) (*FlatIndex, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("vector: dimensions must be positive")
	}
	return &FlatIndex{dimensions: dimensions}, nil
}

// Build replaces the index contents wholesale with the given vectors.
func (ix *FlatIndex) Build(vectors [][]float32) error {
	copied := make([][]float32, len(vectors))
	for i, v := range vectors {
		if len(v) != ix.dimensions {
			return fmt.Errorf("vector: dimension mismatch at %d: got %d, expected %d", i, len(v), ix.dimensions)
		}
		c := make([]float32, ix.dimensions)
		copy(c, v)
		copied[i] = c
	}
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.vectors = copied
	return nil
}

// Append adds vectors at the end of the index, preserving existing positions.
// This supports incremental corpus additions without re-embedding the
// existing corpus.
func (ix *FlatIndex) Append(vectors [][]float32) error {
	copied := make([][]float32, len(vectors))
	for i, v := range vectors {
		if len(v) != ix.dimensions {
			return fmt.Errorf("vector: dimension mismatch at %d: got %d, expected %d", i, len(v), ix.dimensions)
		}
		c := make([]float32, ix.dimensions)
		copy(c, v)
		copied[i] = c
	}
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.vectors = append(ix.vectors, copied...)
	return nil
}

// Search returns the k nearest vectors to query by Euclidean distance,
// ascending, ties broken by insertion order. k is clamped to the index size.
// Returns ErrBadK when k <= 0 and an error on query dimension mismatch.
func (ix *FlatIndex) Search(query []float32, k int) ([]Result, error) {
	if k <= 0 {
		return nil, ErrBadK
	}
	if len(query) != ix.dimensions {
		return nil, fmt.Errorf("vector: query dimension mismatch: got %d, expected %d", len(query), ix.dimensions)
	}
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	results := make([]Result, len(ix.vectors))
	for i, v := range ix.vectors {
		results[i] = Result{Position: i, Distance: euclidean(query, v)}
	}
	sort.SliceStable(results, func(a, b int) bool { return results[a].Distance < results[b].Distance })
	if k > len(results) {
		k = len(results)
	}
	return results[:k], nil
}

// Size returns the number of vectors in the index.
func (ix *FlatIndex) Size() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.vectors)
}

// Dimensions returns the vector dimension the index was created with.
func (ix *FlatIndex) Dimensions() int { return ix.dimensions }

func euclidean(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i] - b[i])
		sum += d * d
	}
	return math.Sqrt(sum)
}

// Save persists the index to path. Directory is created if needed.
// Format: dimension (4), n (4), then n vectors of dimension*4 bytes, little-endian.
func (ix *FlatIndex) Save(path string) error {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	if path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create index dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create index file: %w", err)
	}
	defer f.Close()
	if err := binary.Write(f, binary.LittleEndian, uint32(ix.dimensions)); err != nil {
		return fmt.Errorf("write dimensions: %w", err)
	}
	if err := binary.Write(f, binary.LittleEndian, uint32(len(ix.vectors))); err != nil {
		return fmt.Errorf("write count: %w", err)
	}
	for _, v := range ix.vectors {
		if _, err := f.Write(float32SliceToBytes(v)); err != nil {
			return fmt.Errorf("write vector: %w", err)
		}
	}
	return f.Sync()
}

// Load reads an index from path. The file's dimension governs the returned
// index; callers validate it against the embedder's dimension.
func Load(path string) (*FlatIndex, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open index file: %w", err)
	}
	defer f.Close()
	var dim, n uint32
	if err := binary.Read(f, binary.LittleEndian, &dim); err != nil {
		return nil, fmt.Errorf("read dimensions: %w", err)
	}
	if err := binary.Read(f, binary.LittleEndian, &n); err != nil {
		return nil, fmt.Errorf("read count: %w", err)
	}
	ix, err := NewFlatIndex(int(dim))
	if err != nil {
		return nil, err
	}
	buf := make([]byte, dim*4)
	ix.vectors = make([][]float32, 0, n)
	for i := uint32(0); i < n; i++ {
		if _, err := io.ReadFull(f, buf); err != nil {
			return nil, fmt.Errorf("read vector %d: %w", i, err)
		}
		ix.vectors = append(ix.vectors, bytesToFloat32Slice(buf))
	}
	return ix, nil
}

func float32SliceToBytes(s []float32) []byte {
	const size = 4
	out := make([]byte, len(s)*size)
	for i, v := range s {
		binary.LittleEndian.PutUint32(out[i*size:(i+1)*size], math.Float32bits(v))
	}
	return out
}

func bytesToFloat32Slice(b []byte) []float32 {
	const size = 4
	out := make([]float32, len(b)/size)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*size : (i+1)*size]))
	}
	return out
}
