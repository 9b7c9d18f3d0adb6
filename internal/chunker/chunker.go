// Package chunker splits document text into overlapping word windows
// sized for embedding.
package chunker

import (
	"fmt"
	"strings"

	"github.com/lorebot/lore/internal/corpus"
)

const (
	DefaultMaxWords     = 400
	DefaultOverlapWords = 80
)

// Chunker produces fixed-size word windows over a document, with a
// configurable overlap between consecutive windows so context spanning a
// boundary survives in at least one chunk.
type Chunker struct {
	maxWords     int
	overlapWords int
}

// NewChunker creates a chunker with the given window size and overlap.
// Out-of-range values are corrected rather than rejected: the overlap is
// kept strictly below the window size so every step moves forward.
func NewChunker(maxWords, overlapWords int) *Chunker {
	if maxWords <= 0 {
		maxWords = DefaultMaxWords
	}
	if overlapWords < 0 {
		overlapWords = 0
	}
	if overlapWords >= maxWords {
		overlapWords = maxWords - 1
	}
	return &Chunker{maxWords: maxWords, overlapWords: overlapWords}
}

// Chunk splits text into word-bounded chunks attributed to source.
// Whitespace runs collapse to single spaces, so a chunk's content is
// normalized text. Documents at or under the window size yield a single
// chunk; empty or whitespace-only text yields none. Chunk IDs are
// "<source>#<index>" and are stable across runs for unchanged text.
func (c *Chunker) Chunk(source, text string) []corpus.DocumentChunk {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	var chunks []corpus.DocumentChunk
	start := 0
	for index := 0; ; index++ {
		end := start + c.maxWords
		if end > len(words) {
			end = len(words)
		}
		window := words[start:end]

		chunks = append(chunks, corpus.DocumentChunk{
			ID:        fmt.Sprintf("%s#%d", source, index),
			Source:    source,
			Index:     index,
			Content:   strings.Join(window, " "),
			WordCount: len(window),
		})

		if end == len(words) {
			break
		}
		start = end - c.overlapWords
	}

	return chunks
}
