// Package chunker splits raw document text into overlapping windows for
// embedding. Split produces strict fixed-size windows; SplitSentences packs
// whole sentences into windows and is what the ingestion path uses, since
// retrieval quality is better when chunks end at sentence boundaries.
package chunker

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrInvalidParameters indicates a rejected chunk configuration.
var ErrInvalidParameters = errors.New("invalid chunk parameters")

// sentencePattern matches one sentence including its terminator, or a
// trailing fragment without one.
var sentencePattern = regexp.MustCompile(`[^.!?]+[.!?]+|[^.!?]+$`)

func validate(size, overlap int) error {
	if size <= 0 {
		return fmt.Errorf("%w: chunk size must be positive, got %d", ErrInvalidParameters, size)
	}
	if overlap < 0 || overlap >= size {
		return fmt.Errorf("%w: overlap must satisfy 0 <= overlap < chunk size, got overlap=%d size=%d", ErrInvalidParameters, overlap, size)
	}
	return nil
}

// Split divides text into fixed-size windows where each consecutive pair
// shares exactly overlap characters; the last window may be shorter. Windows
// are measured in runes so multi-byte input never splits a UTF-8 sequence.
// Concatenating the windows with their overlaps removed reconstructs the
// input exactly.
func Split(text string, size, overlap int) ([]string, error) {
	if err := validate(size, overlap); err != nil {
		return nil, err
	}
	if text == "" {
		return nil, nil
	}

	runes := []rune(text)
	if len(runes) <= size {
		return []string{text}, nil
	}

	step := size - overlap
	chunks := make([]string, 0, (len(runes)+step-1)/step)
	for start := 0; start < len(runes); start += step {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[start:end]))
		if end == len(runes) {
			break
		}
	}
	return chunks, nil
}

// SplitSentences packs whole sentences into chunks of at most size runes,
// carrying the last overlap runes of each chunk into the next so context
// continues across the boundary. A chunk may run slightly over size when the
// carried overlap plus one sentence exceeds it. Sentences longer than size
// fall back to strict windows via Split.
func SplitSentences(text string, size, overlap int) ([]string, error) {
	if err := validate(size, overlap); err != nil {
		return nil, err
	}

	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil, nil
	}
	if len([]rune(trimmed)) <= size {
		return []string{trimmed}, nil
	}

	sentences := sentencePattern.FindAllString(trimmed, -1)
	for i := range sentences {
		sentences[i] = strings.TrimSpace(sentences[i])
	}

	var chunks []string
	var parts []string
	curLen := 0

	flush := func() string {
		chunk := strings.Join(parts, " ")
		chunks = append(chunks, chunk)
		return chunk
	}

	for _, sentence := range sentences {
		if sentence == "" {
			continue
		}

		sl := len([]rune(sentence))
		if sl > size {
			// Oversize sentence: flush what we have and hard-split it.
			if curLen > 0 {
				flush()
				parts = nil
				curLen = 0
			}
			windows, err := Split(sentence, size, overlap)
			if err != nil {
				return nil, err
			}
			chunks = append(chunks, windows...)
			continue
		}

		if curLen > 0 && curLen+1+sl > size {
			chunk := flush()
			carry := lastRunes(chunk, overlap)
			if carry != "" {
				parts = []string{carry}
				curLen = len([]rune(carry))
			} else {
				parts = nil
				curLen = 0
			}
		}

		parts = append(parts, sentence)
		if curLen > 0 {
			curLen++
		}
		curLen += sl
	}

	if curLen > 0 {
		flush()
	}

	return chunks, nil
}

// lastRunes returns the final n runes of s.
func lastRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[len(runes)-n:])
}
