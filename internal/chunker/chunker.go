// Package chunker splits document text into overlapping fixed-size windows.
package chunker

import (
	"errors"
	"strings"
)

// ErrBadParams is returned when overlap >= size, which would prevent the
// window from advancing.
var ErrBadParams = errors.New("chunker: overlap must be smaller than size")

// Chunker splits text into overlapping character windows. Windows are size
// characters long and advance by size - overlap; trailing partial windows are
// kept if non-empty after trimming whitespace. Chunking is deterministic:
// identical input and parameters always produce identical output.
type Chunker struct {
	size    int
	overlap int
}

// New creates a chunker with the given window size and overlap, in characters.
// Returns ErrBadParams if size <= 0, overlap < 0, or overlap >= size.
func New(size, overlap int) (*Chunker, error) {
	if size <= 0 || overlap < 0 || overlap >= size {
		return nil, ErrBadParams
	}
	return &Chunker{size: size, overlap: overlap}, nil
}

// Chunk splits text into trimmed, non-empty windows in document order.
// Empty input produces no chunks.
func (c *Chunker) Chunk(text string) []string {
	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}
	step := c.size - c.overlap
	var chunks []string
	for start := 0; start < len(runes); start += step {
		end := start + c.size
		if end > len(runes) {
			end = len(runes)
		}
		chunk := strings.TrimSpace(string(runes[start:end]))
		if chunk != "" {
			chunks = append(chunks, chunk)
		}
	}
	return chunks
}

// Size returns the configured window size.
func (c *Chunker) Size() int { return c.size }

// Overlap returns the configured window overlap.
func (c *Chunker) Overlap() int { return c.overlap }
