package models

import "time"

// SessionInfo is the introspection view of one session returned by the
// session/info and database/stats endpoints.
type SessionInfo struct {
	SessionID      string    `json:"session_id"`
	Exists         bool      `json:"exists"`
	TotalDocuments int       `json:"total_documents"`
	TotalChunks    int       `json:"total_chunks"`
	CreatedAt      time.Time `json:"created_at"`
	LastAccessedAt time.Time `json:"last_accessed_at"`
	ExpiresAt      time.Time `json:"expires_at"`
}

// SourceStats summarises one ingested source for listing endpoints.
type SourceStats struct {
	Source     string    `json:"source_identifier"`
	Title      string    `json:"title,omitempty"`
	ChunkCount int       `json:"chunks"`
	IngestedAt time.Time `json:"ingested_at"`
}
