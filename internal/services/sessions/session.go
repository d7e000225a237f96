package sessions

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/cogentx/cogentx/internal/models"
	"github.com/cogentx/cogentx/internal/services/vectorindex"
)

// Session holds one caller's private knowledge base: a vector index, the
// chunk texts behind it, per-source document records, and the session's
// provider settings. Nothing in here is ever visible to another session.
//
// All exported methods take the session lock and perform one atomic unit of
// work. Provider calls (embedding, generation) must happen between method
// calls, never inside them, so a slow backend cannot stall other requests
// against the same session.
type Session struct {
	ID        string
	CreatedAt time.Time

	mu           sync.Mutex
	lastAccessed time.Time
	config       *models.ProviderConfig
	index        *vectorindex.Index
	chunks       map[string]*models.Chunk
	documents    map[string]*models.DocumentRecord
}

func newSession(id string, config *models.ProviderConfig, now time.Time) *Session {
	return &Session{
		ID:           id,
		CreatedAt:    now,
		lastAccessed: now,
		config:       config,
		index:        vectorindex.New(),
		chunks:       make(map[string]*models.Chunk),
		documents:    make(map[string]*models.DocumentRecord),
	}
}

// Config returns a copy of the session's provider settings.
func (s *Session) Config() *models.ProviderConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.config.Clone()
}

// SetConfig replaces the session's provider settings.
func (s *Session) SetConfig(config *models.ProviderConfig) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.config = config.Clone()
}

// touch updates the activity timestamp. Called by the store on every access.
func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastAccessed = now
}

// LastAccessed returns the activity timestamp used for expiry.
func (s *Session) LastAccessed() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastAccessed
}

// IsEmpty reports whether the session holds no indexed chunks.
func (s *Session) IsEmpty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index.Size() == 0
}

// ReplaceSource commits an ingested document. If the source was ingested
// before, its previous chunks are removed first, so re-ingesting a source
// replaces it rather than accumulating duplicates. The insert is atomic: a
// failed batch leaves the session unchanged.
func (s *Session) ReplaceSource(record *models.DocumentRecord, chunks []*models.Chunk) error {
	entries := make([]vectorindex.Entry, len(chunks))
	for i, c := range chunks {
		entries[i] = vectorindex.Entry{ID: c.ID, Vector: c.Embedding}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	old, replacing := s.documents[record.Source]
	if replacing {
		s.index.Remove(old.ChunkIDs)
	}

	if err := s.index.Insert(entries); err != nil {
		// Roll the previous version back in so a dimension mismatch does
		// not silently drop the old document.
		if replacing {
			restore := make([]vectorindex.Entry, 0, len(old.ChunkIDs))
			for _, id := range old.ChunkIDs {
				if c, ok := s.chunks[id]; ok {
					restore = append(restore, vectorindex.Entry{ID: c.ID, Vector: c.Embedding})
				}
			}
			if restoreErr := s.index.Insert(restore); restoreErr != nil {
				for _, id := range old.ChunkIDs {
					delete(s.chunks, id)
				}
				delete(s.documents, record.Source)
				return fmt.Errorf("indexing %s: %w (previous version lost: %v)", record.Source, err, restoreErr)
			}
		}
		return fmt.Errorf("indexing %s: %w", record.Source, err)
	}

	if replacing {
		for _, id := range old.ChunkIDs {
			delete(s.chunks, id)
		}
	}
	for _, c := range chunks {
		s.chunks[c.ID] = c
	}
	s.documents[record.Source] = record
	return nil
}

// Search returns up to k chunks nearest to the query vector, best first.
// When perSourceCap > 0 at most that many chunks per source are returned;
// the index is over-queried so capped sources do not shrink the result set.
func (s *Session) Search(query []float32, k, perSourceCap int) []*models.Chunk {
	s.mu.Lock()
	defer s.mu.Unlock()

	fetch := k
	if perSourceCap > 0 {
		fetch = s.index.Size()
	}

	hits := s.index.Search(query, fetch)
	results := make([]*models.Chunk, 0, k)
	perSource := make(map[string]int)
	for _, hit := range hits {
		chunk, ok := s.chunks[hit.ID]
		if !ok {
			continue
		}
		if perSourceCap > 0 && perSource[chunk.Source] >= perSourceCap {
			continue
		}
		perSource[chunk.Source]++
		results = append(results, chunk)
		if len(results) == k {
			break
		}
	}
	return results
}

// DeleteSource removes a document and its chunks. Returns false if the
// source was never ingested.
func (s *Session) DeleteSource(source string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.documents[source]
	if !ok {
		return false
	}
	s.index.Remove(record.ChunkIDs)
	for _, id := range record.ChunkIDs {
		delete(s.chunks, id)
	}
	delete(s.documents, source)
	return true
}

// Clear drops every document and chunk, leaving an empty knowledge base.
// The session itself survives with its settings intact.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.index = vectorindex.New()
	s.chunks = make(map[string]*models.Chunk)
	s.documents = make(map[string]*models.DocumentRecord)
}

// Stats summarizes the knowledge base for the database stats endpoint.
func (s *Session) Stats() (documents, chunks int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.documents), len(s.chunks)
}

// Sources lists ingested documents, newest first.
func (s *Session) Sources() []models.SourceStats {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := make([]models.SourceStats, 0, len(s.documents))
	for _, rec := range s.documents {
		stats = append(stats, models.SourceStats{
			Source:     rec.Source,
			Title:      rec.Title,
			ChunkCount: rec.ChunkCount,
			IngestedAt: rec.IngestedAt,
		})
	}
	sort.Slice(stats, func(i, j int) bool {
		if stats[i].IngestedAt.Equal(stats[j].IngestedAt) {
			return stats[i].Source < stats[j].Source
		}
		return stats[i].IngestedAt.After(stats[j].IngestedAt)
	})
	return stats
}

// ChunksForSource returns a source's chunks in document order, or nil if
// the source is unknown.
func (s *Session) ChunksForSource(source string) []*models.Chunk {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.documents[source]
	if !ok {
		return nil
	}
	chunks := make([]*models.Chunk, 0, len(record.ChunkIDs))
	for _, id := range record.ChunkIDs {
		if c, ok := s.chunks[id]; ok {
			chunks = append(chunks, c)
		}
	}
	sort.Slice(chunks, func(i, j int) bool { return chunks[i].Sequence < chunks[j].Sequence })
	return chunks
}
