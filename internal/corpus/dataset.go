// Package corpus defines the embedded-chunk dataset format and the
// process-wide cache that serves it to the retrieval path.
package corpus

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

var (
	ErrInvalidDataset = errors.New("invalid dataset file")
)

// DocumentChunk is a contiguous, word-bounded slice of one source document.
type DocumentChunk struct {
	ID        string `json:"id"`        // "<source>#<index>"
	Source    string `json:"source"`    // Relative path of the originating document
	Index     int    `json:"index"`     // Zero-based ordinal within the source
	Content   string `json:"content"`   // Normalized text, single-spaced
	WordCount int    `json:"wordCount"` // Whitespace-delimited tokens in Content
}

// EmbeddedChunk pairs a DocumentChunk with the vector the embedding
// service produced for its content.
type EmbeddedChunk struct {
	DocumentChunk
	Embedding []float32 `json:"embedding"`
}

// Dataset is the persisted corpus. It is written wholesale by the builder
// and read-only afterwards; an empty chunk list is a valid corpus state.
type Dataset struct {
	Model     string          `json:"model"`
	CreatedAt time.Time       `json:"createdAt"`
	Chunks    []EmbeddedChunk `json:"chunks"`
}

// WriteFile writes the dataset atomically: the JSON is staged in a temp
// file in the target directory and renamed over the destination, so a
// reader never observes a partially written corpus. A nil chunk list is
// written as an empty one.
func WriteFile(path string, dataset *Dataset) error {
	out := *dataset
	if out.Chunks == nil {
		out.Chunks = []EmbeddedChunk{}
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("create dataset directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp dataset file: %w", err)
	}

	if err := json.NewEncoder(tmp).Encode(&out); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("encode dataset: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close temp dataset file: %w", err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replace dataset file: %w", err)
	}

	return nil
}

// ReadFile reads and validates a dataset file. The decode is strict:
// unknown fields and chunks without an identity are rejected with
// ErrInvalidDataset rather than passed through half-formed.
func ReadFile(path string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dataset file: %w", err)
	}
	defer f.Close()

	dec := json.NewDecoder(f)
	dec.DisallowUnknownFields()

	var dataset Dataset
	if err := dec.Decode(&dataset); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDataset, err)
	}
	if dataset.Chunks == nil {
		dataset.Chunks = []EmbeddedChunk{}
	}
	if err := validate(&dataset); err != nil {
		return nil, err
	}

	return &dataset, nil
}

func validate(dataset *Dataset) error {
	if dataset.Model == "" {
		return fmt.Errorf("%w: missing model", ErrInvalidDataset)
	}
	for i := range dataset.Chunks {
		chunk := &dataset.Chunks[i]
		if chunk.ID == "" || chunk.Source == "" {
			return fmt.Errorf("%w: chunk %d has no identity", ErrInvalidDataset, i)
		}
	}
	return nil
}
