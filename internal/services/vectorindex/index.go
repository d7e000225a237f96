// Package vectorindex provides an in-memory flat index for nearest-neighbour
// search over embedding vectors. One index instance exists per session and is
// guarded by the owning session's lock; the index itself performs no locking.
package vectorindex

import (
	"fmt"
	"math"
	"sort"
)

// Entry is one vector with its identifying metadata.
type Entry struct {
	ID     string
	Vector []float32
}

// Hit is a single search result, score is cosine similarity in [-1, 1].
type Hit struct {
	ID    string
	Score float64
}

// Index is a flat cosine-similarity index. Vectors are L2-normalised at
// insert time so scoring reduces to a dot product.
type Index struct {
	dimension int
	ids       []string
	vectors   [][]float32
	positions map[string]int
}

// New creates an empty index. The dimension is fixed by the first insert.
func New() *Index {
	return &Index{
		positions: make(map[string]int),
	}
}

// Insert adds entries to the index. All vectors in a batch must share one
// dimension, and that dimension must match the index once it is set. The
// whole batch is validated before the first mutation, so a rejected batch
// leaves the index exactly as it was.
func (idx *Index) Insert(entries []Entry) error {
	dimension := idx.dimension
	batch := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		if len(e.Vector) == 0 {
			return fmt.Errorf("empty vector for entry %s", e.ID)
		}
		if dimension == 0 {
			dimension = len(e.Vector)
		}
		if len(e.Vector) != dimension {
			return fmt.Errorf("vector dimension mismatch for entry %s: got %d, index has %d", e.ID, len(e.Vector), dimension)
		}
		if _, exists := idx.positions[e.ID]; exists {
			return fmt.Errorf("duplicate entry id %s", e.ID)
		}
		if _, dup := batch[e.ID]; dup {
			return fmt.Errorf("duplicate entry id %s in batch", e.ID)
		}
		batch[e.ID] = struct{}{}
	}

	idx.dimension = dimension
	for _, e := range entries {
		idx.positions[e.ID] = len(idx.ids)
		idx.ids = append(idx.ids, e.ID)
		idx.vectors = append(idx.vectors, normalize(e.Vector))
	}
	return nil
}

// Search returns up to k entries ordered by descending similarity. Asking for
// more results than the index holds returns everything available; an empty
// index returns an empty slice, never an error.
func (idx *Index) Search(query []float32, k int) []Hit {
	if k <= 0 || len(idx.ids) == 0 || len(query) != idx.dimension {
		return nil
	}

	q := normalize(query)
	hits := make([]Hit, 0, len(idx.ids))
	for i, v := range idx.vectors {
		hits = append(hits, Hit{ID: idx.ids[i], Score: dot(q, v)})
	}

	sort.SliceStable(hits, func(a, b int) bool {
		return hits[a].Score > hits[b].Score
	})

	if k < len(hits) {
		hits = hits[:k]
	}
	return hits
}

// Remove drops the given ids from the index. Unknown ids are ignored.
func (idx *Index) Remove(ids []string) {
	drop := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		drop[id] = struct{}{}
	}

	keptIDs := idx.ids[:0]
	keptVectors := idx.vectors[:0]
	for i, id := range idx.ids {
		if _, gone := drop[id]; gone {
			continue
		}
		keptIDs = append(keptIDs, id)
		keptVectors = append(keptVectors, idx.vectors[i])
	}
	idx.ids = keptIDs
	idx.vectors = keptVectors

	idx.positions = make(map[string]int, len(idx.ids))
	for i, id := range idx.ids {
		idx.positions[id] = i
	}
	if len(idx.ids) == 0 {
		idx.dimension = 0
	}
}

// Size returns the number of indexed vectors.
func (idx *Index) Size() int {
	return len(idx.ids)
}

// Dimension returns the vector dimension, 0 while the index is empty.
func (idx *Index) Dimension() int {
	return idx.dimension
}

func normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	norm := math.Sqrt(sum)
	out := make([]float32, len(v))
	if norm == 0 {
		copy(out, v)
		return out
	}
	for i, x := range v {
		out[i] = float32(float64(x) / norm)
	}
	return out
}

func dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}
