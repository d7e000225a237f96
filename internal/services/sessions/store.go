package sessions

import (
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"

	"github.com/cogentx/cogentx/internal/common"
	"github.com/cogentx/cogentx/internal/models"
)

// Store owns the session map and its lifecycle. Session IDs are opaque
// server-issued tokens; an unknown or expired ID always yields a fresh
// session with a fresh ID, so a recycled token can never reach another
// caller's data.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session

	timeout  time.Duration
	defaults *models.ProviderConfig
	now      func() time.Time
	cron     *cron.Cron
	logger   arbor.ILogger
}

// NewStore creates a session store seeded with provider defaults from the
// process configuration.
func NewStore(cfg *common.Config, logger arbor.ILogger) *Store {
	return &Store{
		sessions: make(map[string]*Session),
		timeout:  cfg.Sessions.Timeout,
		defaults: defaultProviderConfig(cfg),
		now:      time.Now,
		logger:   logger,
	}
}

// defaultProviderConfig builds the settings a new session starts from.
func defaultProviderConfig(cfg *common.Config) *models.ProviderConfig {
	return &models.ProviderConfig{
		Provider:         cfg.Providers.Default,
		OllamaBaseURL:    cfg.Providers.Ollama.BaseURL,
		OllamaModel:      cfg.Providers.Ollama.Model,
		OllamaEmbedModel: cfg.Providers.Ollama.EmbedModel,
		OpenAIAPIKey:     cfg.Providers.OpenAI.APIKey,
		OpenAIModel:      cfg.Providers.OpenAI.Model,
		OpenAIEmbedModel: cfg.Providers.OpenAI.EmbedModel,
		GeminiAPIKey:     cfg.Providers.Gemini.APIKey,
		GeminiModel:      cfg.Providers.Gemini.Model,
		GeminiEmbedModel: cfg.Providers.Gemini.EmbedModel,
		ClaudeAPIKey:     cfg.Providers.Claude.APIKey,
		ClaudeModel:      cfg.Providers.Claude.Model,
		ChunkSize:        cfg.Chunking.Size,
		ChunkOverlap:     cfg.Chunking.Overlap,
		TopK:             cfg.Retrieval.TopK,
	}
}

// GetOrCreate resolves a session ID from a request. A live session is
// touched and returned. An empty, unknown, or expired ID yields a brand new
// session under a brand new ID; created reports that rotation so handlers
// can hand the new ID back to the caller.
func (s *Store) GetOrCreate(id string) (sess *Session, created bool) {
	now := s.now()

	if id != "" {
		// The expiry check and the touch stay under the store lock so the
		// sweep cannot reclaim the session between the two.
		s.mu.RLock()
		existing, ok := s.sessions[id]
		if ok && !s.expired(existing, now) {
			existing.touch(now)
			s.mu.RUnlock()
			return existing, false
		}
		s.mu.RUnlock()
	}

	sess = newSession(common.NewSessionID(), s.defaults.Clone(), now)

	s.mu.Lock()
	// Drop the expired entry eagerly rather than waiting for the sweep.
	if id != "" {
		if old, ok := s.sessions[id]; ok && s.expired(old, now) {
			delete(s.sessions, id)
		}
	}
	s.sessions[sess.ID] = sess
	total := len(s.sessions)
	s.mu.Unlock()

	s.logger.Debug().
		Str("session_id", sess.ID).
		Int("active_sessions", total).
		Msg("Created session")
	return sess, true
}

// DefaultConfig returns a copy of the provider settings a new session
// starts from.
func (s *Store) DefaultConfig() *models.ProviderConfig {
	return s.defaults.Clone()
}

// Get returns a live session without creating one. Expired sessions are
// treated as absent.
func (s *Store) Get(id string) (*Session, bool) {
	now := s.now()

	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	if !ok || s.expired(sess, now) {
		return nil, false
	}
	sess.touch(now)
	return sess, true
}

// Peek returns a live session without touching its activity timestamp.
// Used by the session info endpoint so polling does not keep a session
// alive forever.
func (s *Store) Peek(id string) (*Session, bool) {
	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok || s.expired(sess, s.now()) {
		return nil, false
	}
	return sess, true
}

// Delete removes a session outright. Deleting an unknown ID is a no-op.
func (s *Store) Delete(id string) {
	s.mu.Lock()
	_, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()

	if ok {
		s.logger.Debug().Str("session_id", id).Msg("Deleted session")
	}
}

// Sweep removes every expired session and returns how many were dropped.
func (s *Store) Sweep() int {
	now := s.now()

	s.mu.Lock()
	var dropped int
	for id, sess := range s.sessions {
		if s.expired(sess, now) {
			delete(s.sessions, id)
			dropped++
		}
	}
	remaining := len(s.sessions)
	s.mu.Unlock()

	if dropped > 0 {
		s.logger.Info().
			Int("dropped", dropped).
			Int("remaining", remaining).
			Msg("Swept expired sessions")
	}
	return dropped
}

// Count returns the number of sessions currently held, expired or not.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Info assembles the session info payload. Exists is false for unknown or
// expired IDs; no counts are reported in that case.
func (s *Store) Info(id string) models.SessionInfo {
	sess, ok := s.Peek(id)
	if !ok {
		return models.SessionInfo{SessionID: id, Exists: false}
	}

	docs, chunks := sess.Stats()
	last := sess.LastAccessed()
	return models.SessionInfo{
		SessionID:      sess.ID,
		Exists:         true,
		TotalDocuments: docs,
		TotalChunks:    chunks,
		CreatedAt:      sess.CreatedAt,
		LastAccessedAt: last,
		ExpiresAt:      last.Add(s.timeout),
	}
}

func (s *Store) expired(sess *Session, now time.Time) bool {
	return now.Sub(sess.LastAccessed()) > s.timeout
}
