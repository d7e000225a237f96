package query

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/cogentx/cogentx/internal/common"
	"github.com/cogentx/cogentx/internal/interfaces"
	"github.com/cogentx/cogentx/internal/models"
	"github.com/cogentx/cogentx/internal/services/chunker"
	"github.com/cogentx/cogentx/internal/services/llm"
	"github.com/cogentx/cogentx/internal/services/sessions"
)

// Limits on how many chunks a single question may retrieve.
const (
	MinTopK = 1
	MaxTopK = 10
)

var (
	// ErrEmptyDocument indicates an ingest request with no usable text.
	ErrEmptyDocument = errors.New("document has no content")

	// ErrEmptyQuestion indicates an ask request with a blank question.
	ErrEmptyQuestion = errors.New("question is empty")
)

// ClientSource resolves a session's provider settings into concrete
// clients. Satisfied by llm.Factory.
type ClientSource interface {
	Clients(pc *models.ProviderConfig) (interfaces.EmbeddingClient, interfaces.GenerationClient, error)
}

// Engine runs the two core flows against a session: ingesting documents
// into its private index and answering questions from it. Provider traffic
// always happens outside the session lock, so one slow backend call never
// blocks other requests on the same session.
type Engine struct {
	factory   ClientSource
	prompts   *Prompts
	retrieval common.RetrievalConfig
	logger    arbor.ILogger
}

// NewEngine creates a query engine.
func NewEngine(factory ClientSource, prompts *Prompts, retrieval common.RetrievalConfig, logger arbor.ILogger) *Engine {
	return &Engine{
		factory:   factory,
		prompts:   prompts,
		retrieval: retrieval,
		logger:    logger,
	}
}

// IngestOptions describes one document to ingest. Provider, ChunkSize and
// ChunkOverlap override the session's settings for this call only.
type IngestOptions struct {
	Source       string
	Title        string
	Text         string
	Provider     string
	ChunkSize    int
	ChunkOverlap int
}

// AskOptions describes one question. Provider and TopK override the
// session's settings for this call only.
type AskOptions struct {
	Question string
	Provider string
	TopK     int
}

// Ingest chunks and embeds a document, then commits it to the session.
// Re-ingesting a source the session already holds replaces its chunks. The
// embedding calls run before the session is touched, so a provider failure
// leaves the knowledge base exactly as it was.
func (e *Engine) Ingest(ctx context.Context, sess *sessions.Session, opts IngestOptions) (*models.DocumentRecord, error) {
	source, title, text := opts.Source, opts.Title, opts.Text
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyDocument
	}

	cfg := sess.Config()
	if opts.Provider != "" {
		cfg.Provider = opts.Provider
	}
	if opts.ChunkSize > 0 {
		cfg.ChunkSize = opts.ChunkSize
	}
	if opts.ChunkOverlap > 0 {
		cfg.ChunkOverlap = opts.ChunkOverlap
	}

	texts, err := chunker.SplitSentences(text, cfg.ChunkSize, cfg.ChunkOverlap)
	if err != nil {
		return nil, err
	}
	if len(texts) == 0 {
		return nil, ErrEmptyDocument
	}

	embed, _, err := e.factory.Clients(cfg)
	if err != nil {
		return nil, err
	}

	started := time.Now()
	vectors, err := embed.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embedding %s: %w", source, err)
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("embedding %s: got %d vectors for %d chunks: %w", source, len(vectors), len(texts), llm.ErrProviderUnavailable)
	}

	chunks := make([]*models.Chunk, len(texts))
	ids := make([]string, len(texts))
	for i, t := range texts {
		id := common.NewChunkID()
		ids[i] = id
		chunks[i] = &models.Chunk{
			ID:        id,
			SessionID: sess.ID,
			Source:    source,
			Sequence:  i,
			Text:      t,
			Embedding: vectors[i],
			Metadata:  map[string]string{"title": title},
		}
	}

	record := &models.DocumentRecord{
		Source:     source,
		Title:      title,
		ChunkCount: len(chunks),
		ChunkIDs:   ids,
		IngestedAt: time.Now(),
	}

	if err := sess.ReplaceSource(record, chunks); err != nil {
		return nil, err
	}

	e.logger.Info().
		Str("session_id", sess.ID).
		Str("source", source).
		Int("chunks", len(chunks)).
		Dur("embed_duration", time.Since(started)).
		Msg("Ingested document")
	return record, nil
}

// Ask answers a question from the session's knowledge base. An empty
// knowledge base short-circuits to a canned answer without touching any
// provider. A positive TopK override replaces the session's configured
// value; the effective value is clamped to the allowed range.
func (e *Engine) Ask(ctx context.Context, sess *sessions.Session, opts AskOptions) (*models.QueryResult, error) {
	question := opts.Question
	if strings.TrimSpace(question) == "" {
		return nil, ErrEmptyQuestion
	}

	if sess.IsEmpty() {
		return &models.QueryResult{
			Answer:  e.prompts.EmptyKnowledgeBase,
			Sources: []models.SourceCitation{},
		}, nil
	}

	cfg := sess.Config()
	if opts.Provider != "" {
		cfg.Provider = opts.Provider
	}
	k := cfg.TopK
	if opts.TopK > 0 {
		k = opts.TopK
	}
	k = clampTopK(k)

	embed, gen, err := e.factory.Clients(cfg)
	if err != nil {
		return nil, err
	}

	queryVector, err := embed.EmbedQuery(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("embedding question: %w", err)
	}

	retrieved := sess.Search(queryVector, k, e.retrieval.PerSourceCap)
	if len(retrieved) == 0 {
		return &models.QueryResult{
			Answer:  e.prompts.EmptyKnowledgeBase,
			Sources: []models.SourceCitation{},
		}, nil
	}

	passages := make([]string, len(retrieved))
	for i, chunk := range retrieved {
		passages[i] = chunk.Text
	}

	answer, err := gen.Generate(ctx, []interfaces.Message{
		{Role: "system", Content: e.prompts.System},
		{Role: "user", Content: e.prompts.BuildQuestion(passages, question)},
	})
	if err != nil {
		return nil, fmt.Errorf("generating answer: %w", err)
	}

	e.logger.Info().
		Str("session_id", sess.ID).
		Int("chunks_used", len(retrieved)).
		Msg("Answered question")

	return &models.QueryResult{
		Answer:     answer,
		Sources:    citations(retrieved),
		ChunksUsed: len(retrieved),
	}, nil
}

// citations groups retrieved chunks by source, in order of each source's
// best match, recording which chunk positions of the document were used.
func citations(retrieved []*models.Chunk) []models.SourceCitation {
	order := make([]string, 0)
	indices := make(map[string][]int)
	for _, chunk := range retrieved {
		if _, seen := indices[chunk.Source]; !seen {
			order = append(order, chunk.Source)
		}
		indices[chunk.Source] = append(indices[chunk.Source], chunk.Sequence)
	}

	result := make([]models.SourceCitation, 0, len(order))
	for _, source := range order {
		used := indices[source]
		sort.Ints(used)
		result = append(result, models.SourceCitation{
			Source:           source,
			UsedChunkIndices: used,
		})
	}
	return result
}

func clampTopK(k int) int {
	if k < MinTopK {
		return MinTopK
	}
	if k > MaxTopK {
		return MaxTopK
	}
	return k
}
