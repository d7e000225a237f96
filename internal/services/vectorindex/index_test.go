package vectorindex

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIndex_SearchOrdering(t *testing.T) {
	idx := New()
	err := idx.Insert([]Entry{
		{ID: "a", Vector: []float32{1, 0, 0}},
		{ID: "b", Vector: []float32{0.9, 0.1, 0}},
		{ID: "c", Vector: []float32{0, 1, 0}},
		{ID: "d", Vector: []float32{0, 0, 1}},
	})
	require.NoError(t, err)

	hits := idx.Search([]float32{1, 0, 0}, 3)
	require.Len(t, hits, 3)
	assert.Equal(t, "a", hits[0].ID)
	assert.Equal(t, "b", hits[1].ID)
	assert.Greater(t, hits[0].Score, hits[1].Score)
	assert.Greater(t, hits[1].Score, hits[2].Score)
}

func TestIndex_SearchKLargerThanSize(t *testing.T) {
	idx := New()
	require.NoError(t, idx.Insert([]Entry{
		{ID: "a", Vector: []float32{1, 0}},
		{ID: "b", Vector: []float32{0, 1}},
	}))

	hits := idx.Search([]float32{1, 1}, 50)
	assert.Len(t, hits, 2, "k > size must return all available, not error")
}

func TestIndex_SearchEmpty(t *testing.T) {
	idx := New()
	hits := idx.Search([]float32{1, 0}, 5)
	assert.Empty(t, hits)
}

func TestIndex_Remove(t *testing.T) {
	idx := New()
	entries := make([]Entry, 0, 10)
	for i := 0; i < 10; i++ {
		entries = append(entries, Entry{
			ID:     fmt.Sprintf("chunk_%d", i),
			Vector: []float32{float32(i), 1, 0},
		})
	}
	require.NoError(t, idx.Insert(entries))
	require.Equal(t, 10, idx.Size())

	idx.Remove([]string{"chunk_2", "chunk_5", "chunk_9", "never_existed"})
	assert.Equal(t, 7, idx.Size())

	hits := idx.Search([]float32{1, 1, 0}, 20)
	assert.Len(t, hits, 7)
	for _, h := range hits {
		assert.NotContains(t, []string{"chunk_2", "chunk_5", "chunk_9"}, h.ID)
	}
}

func TestIndex_RemoveAllResetsDimension(t *testing.T) {
	idx := New()
	require.NoError(t, idx.Insert([]Entry{{ID: "a", Vector: []float32{1, 2, 3}}}))
	require.Equal(t, 3, idx.Dimension())

	idx.Remove([]string{"a"})
	assert.Equal(t, 0, idx.Size())
	assert.Equal(t, 0, idx.Dimension())

	// A new batch with a different dimension is accepted after full removal.
	require.NoError(t, idx.Insert([]Entry{{ID: "b", Vector: []float32{1, 2}}}))
	assert.Equal(t, 2, idx.Dimension())
}

func TestIndex_InsertDimensionMismatch(t *testing.T) {
	idx := New()
	require.NoError(t, idx.Insert([]Entry{{ID: "a", Vector: []float32{1, 0, 0}}}))

	err := idx.Insert([]Entry{{ID: "b", Vector: []float32{1, 0}}})
	assert.Error(t, err)
}

func TestIndex_InsertDuplicateID(t *testing.T) {
	idx := New()
	require.NoError(t, idx.Insert([]Entry{{ID: "a", Vector: []float32{1, 0}}}))

	err := idx.Insert([]Entry{{ID: "a", Vector: []float32{0, 1}}})
	assert.Error(t, err)
}

func TestIndex_ZeroVectorDoesNotPanic(t *testing.T) {
	idx := New()
	require.NoError(t, idx.Insert([]Entry{{ID: "z", Vector: []float32{0, 0, 0}}}))
	hits := idx.Search([]float32{0, 0, 0}, 1)
	require.Len(t, hits, 1)
	assert.Equal(t, "z", hits[0].ID)
}

func TestIndex_FailedBatchLeavesIndexUnchanged(t *testing.T) {
	idx := New()

	// Second entry is bad: nothing from the batch may land.
	err := idx.Insert([]Entry{
		{ID: "a", Vector: []float32{1, 0, 0}},
		{ID: "b", Vector: []float32{1, 0}},
	})
	require.Error(t, err)
	assert.Equal(t, 0, idx.Size())

	// Dimension was never committed, so a 2-dim batch is still accepted.
	require.NoError(t, idx.Insert([]Entry{{ID: "c", Vector: []float32{1, 0}}}))
	assert.Equal(t, 1, idx.Size())
}

func TestIndex_FailedBatchKeepsExistingEntries(t *testing.T) {
	idx := New()
	require.NoError(t, idx.Insert([]Entry{{ID: "a", Vector: []float32{1, 0}}}))

	err := idx.Insert([]Entry{
		{ID: "b", Vector: []float32{0, 1}},
		{ID: "a", Vector: []float32{1, 1}},
	})
	require.Error(t, err)
	assert.Equal(t, 1, idx.Size())

	hits := idx.Search([]float32{0, 1}, 5)
	require.Len(t, hits, 1)
	assert.Equal(t, "a", hits[0].ID)
}

func TestIndex_BatchWithInternalDuplicateRejected(t *testing.T) {
	idx := New()
	err := idx.Insert([]Entry{
		{ID: "x", Vector: []float32{1, 0}},
		{ID: "x", Vector: []float32{0, 1}},
	})
	require.Error(t, err)
	assert.Equal(t, 0, idx.Size())
}
