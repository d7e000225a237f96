package query

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Prompts holds the text templates the engine builds requests from. The
// defaults match the shipped behavior; operators can override any field
// through a YAML file referenced in the configuration.
type Prompts struct {
	// System primes the model before the question is asked.
	System string `yaml:"system"`

	// Question wraps the retrieved passages and the user's question.
	// Expands %[1]s to the context block and %[2]s to the question.
	Question string `yaml:"question"`

	// EmptyKnowledgeBase is returned verbatim, without any model call,
	// when a session has no indexed documents.
	EmptyKnowledgeBase string `yaml:"empty_knowledge_base"`
}

// DefaultPrompts returns the built-in templates.
func DefaultPrompts() *Prompts {
	return &Prompts{
		System: "You are a helpful assistant that answers questions based on provided context.",
		Question: "Based on the following context, answer the question accurately and concisely.\n\n" +
			"Context:\n%[1]s\n\nQuestion: %[2]s\n\nAnswer:",
		EmptyKnowledgeBase: "I don't have enough information to answer. Please ingest relevant documentation first.",
	}
}

// LoadPrompts reads template overrides from a YAML file. Fields absent from
// the file keep their defaults. An empty path returns the defaults.
func LoadPrompts(path string) (*Prompts, error) {
	prompts := DefaultPrompts()
	if path == "" {
		return prompts, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading prompts file: %w", err)
	}
	if err := yaml.Unmarshal(data, prompts); err != nil {
		return nil, fmt.Errorf("parsing prompts file %s: %w", path, err)
	}
	return prompts, nil
}

// BuildQuestion renders the user-turn prompt from retrieved passages and
// the question. Passages are joined in retrieval order, best match first.
func (p *Prompts) BuildQuestion(passages []string, question string) string {
	return fmt.Sprintf(p.Question, strings.Join(passages, "\n\n"), question)
}
