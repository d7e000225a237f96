package models

import "time"

// Chunk is an immutable text window extracted from an ingested source.
// Sequence is the chunk's stable position within its source and is the
// value reported back in citations.
type Chunk struct {
	ID        string            `json:"id"`
	SessionID string            `json:"session_id"`
	Source    string            `json:"source_identifier"`
	Sequence  int               `json:"sequence_index"`
	Text      string            `json:"text"`
	Embedding []float32         `json:"-"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// DocumentRecord tracks one ingested source within a session. ChunkIDs
// identifies which index entries to drop when the source is deleted.
type DocumentRecord struct {
	Source     string    `json:"source_identifier"`
	Title      string    `json:"title,omitempty"`
	ChunkCount int       `json:"chunk_count"`
	ChunkIDs   []string  `json:"-"`
	IngestedAt time.Time `json:"ingested_at"`
}

// SourceCitation lists the chunks of one source that contributed to an answer.
type SourceCitation struct {
	Source           string `json:"source_identifier"`
	UsedChunkIndices []int  `json:"used_chunk_indices"`
}

// QueryResult is the transient outcome of one ask operation.
type QueryResult struct {
	Answer    string           `json:"answer"`
	Sources   []SourceCitation `json:"sources"`
	ChunksUsed int             `json:"chunks_used"`
}
