package chunker

import (
	"fmt"
	"strings"
	"testing"
)

// words returns n distinct words "w0 w1 ... w<n-1>" joined by spaces.
func words(n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = fmt.Sprintf("w%d", i)
	}
	return strings.Join(parts, " ")
}

// TestChunk_Empty tests that empty and whitespace-only input produce no chunks.
func TestChunk_Empty(t *testing.T) {
	c := NewChunker(400, 80)

	if got := c.Chunk("doc", ""); got != nil {
		t.Errorf("expected nil for empty input, got %d chunks", len(got))
	}
	if got := c.Chunk("doc", "  \n\t  "); got != nil {
		t.Errorf("expected nil for whitespace input, got %d chunks", len(got))
	}
}

// TestChunk_SingleWindow tests that a document at or under the window size
// yields exactly one chunk.
func TestChunk_SingleWindow(t *testing.T) {
	c := NewChunker(400, 80)

	chunks := c.Chunk("doc", words(400))
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0].ID != "doc#0" {
		t.Errorf("expected id doc#0, got %s", chunks[0].ID)
	}
	if chunks[0].Source != "doc" {
		t.Errorf("expected source doc, got %s", chunks[0].Source)
	}
	if chunks[0].Index != 0 {
		t.Errorf("expected index 0, got %d", chunks[0].Index)
	}
	if chunks[0].WordCount != 400 {
		t.Errorf("expected 400 words, got %d", chunks[0].WordCount)
	}
}

// TestChunk_Normalization tests that whitespace runs collapse to single spaces.
func TestChunk_Normalization(t *testing.T) {
	c := NewChunker(400, 80)

	chunks := c.Chunk("doc", "  alpha\t\tbeta \n\n gamma  ")
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0].Content != "alpha beta gamma" {
		t.Errorf("expected normalized content, got %q", chunks[0].Content)
	}
	if chunks[0].WordCount != 3 {
		t.Errorf("expected 3 words, got %d", chunks[0].WordCount)
	}
}

// TestChunk_SlidingWindow tests the canonical case: 1000 words with a
// 400-word window and 80-word overlap produce three chunks of 400, 400,
// and 360 words.
func TestChunk_SlidingWindow(t *testing.T) {
	c := NewChunker(400, 80)

	chunks := c.Chunk("doc", words(1000))
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}

	wantIDs := []string{"doc#0", "doc#1", "doc#2"}
	wantCounts := []int{400, 400, 360}
	for i, chunk := range chunks {
		if chunk.ID != wantIDs[i] {
			t.Errorf("chunk %d: expected id %s, got %s", i, wantIDs[i], chunk.ID)
		}
		if chunk.Index != i {
			t.Errorf("chunk %d: expected index %d, got %d", i, i, chunk.Index)
		}
		if chunk.WordCount != wantCounts[i] {
			t.Errorf("chunk %d: expected %d words, got %d", i, wantCounts[i], chunk.WordCount)
		}
	}

	// Consecutive chunks share exactly the overlap: the first 80 words of
	// chunk 1 are the last 80 words of chunk 0.
	first := strings.Fields(chunks[0].Content)
	second := strings.Fields(chunks[1].Content)
	for i := 0; i < 80; i++ {
		if first[320+i] != second[i] {
			t.Fatalf("overlap mismatch at word %d: %s vs %s", i, first[320+i], second[i])
		}
	}
}

// TestChunk_Coverage tests that every input word appears in at least one
// chunk, in order, with no gaps between windows.
func TestChunk_Coverage(t *testing.T) {
	c := NewChunker(50, 10)

	total := 137
	chunks := c.Chunk("doc", words(total))

	seen := 0
	for i, chunk := range chunks {
		fields := strings.Fields(chunk.Content)
		if len(fields) != chunk.WordCount {
			t.Fatalf("chunk %d: word count %d disagrees with content (%d words)",
				i, chunk.WordCount, len(fields))
		}
		start := seen
		if i > 0 {
			start = seen - 10
		}
		for j, w := range fields {
			want := fmt.Sprintf("w%d", start+j)
			if w != want {
				t.Fatalf("chunk %d word %d: expected %s, got %s", i, j, want, w)
			}
		}
		seen = start + len(fields)
	}
	if seen != total {
		t.Errorf("chunks cover %d words, expected %d", seen, total)
	}
}

// TestChunk_ExactMultiple tests a document whose length lands exactly on a
// window boundary, which must not emit a trailing empty chunk.
func TestChunk_ExactMultiple(t *testing.T) {
	c := NewChunker(100, 0)

	chunks := c.Chunk("doc", words(200))
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}
	for i, chunk := range chunks {
		if chunk.WordCount != 100 {
			t.Errorf("chunk %d: expected 100 words, got %d", i, chunk.WordCount)
		}
	}
}

// TestNewChunker_CorrectsBadConfig tests that out-of-range settings fall
// back to workable values instead of stalling or panicking.
func TestNewChunker_CorrectsBadConfig(t *testing.T) {
	// Zero window falls back to the default: short input stays one chunk.
	c := NewChunker(0, -5)
	chunks := c.Chunk("doc", words(25))
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk with default window, got %d", len(chunks))
	}

	// Overlap >= window is clamped below the window so progress is made.
	c = NewChunker(10, 50)
	chunks = c.Chunk("doc", words(30))
	if len(chunks) == 0 {
		t.Fatal("expected chunks, got none")
	}
	for i, chunk := range chunks {
		if chunk.WordCount > 10 {
			t.Errorf("chunk %d exceeds window: %d words", i, chunk.WordCount)
		}
	}
	last := chunks[len(chunks)-1]
	fields := strings.Fields(last.Content)
	if fields[len(fields)-1] != "w29" {
		t.Errorf("expected final chunk to end at w29, got %s", fields[len(fields)-1])
	}
}

// TestChunk_Deterministic tests that identical input yields identical chunks.
func TestChunk_Deterministic(t *testing.T) {
	c := NewChunker(40, 8)
	text := words(123)

	a := c.Chunk("doc", text)
	b := c.Chunk("doc", text)

	if len(a) != len(b) {
		t.Fatalf("chunk counts differ: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Errorf("chunk %d differs between runs", i)
		}
	}
}
