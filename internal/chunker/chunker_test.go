package chunker

import (
	"strings"
	"testing"
)

func TestNewRejectsBadParams(t *testing.T) {
	cases := []struct {
		size, overlap int
	}{
		{0, 0},
		{-1, 0},
		{10, 10},
		{10, 15},
		{10, -1},
	}
	for _, tc := range cases {
		if _, err := New(tc.size, tc.overlap); err == nil {
			t.Errorf("New(%d, %d) should fail", tc.size, tc.overlap)
		}
	}
}

func TestChunkWindows(t *testing.T) {
	c, err := New(10, 2)
	if err != nil {
		t.Fatal(err)
	}
	text := strings.Repeat("abcdefghij", 3)
	chunks := c.Chunk(text)
	if len(chunks) == 0 {
		t.Fatal("expected chunks")
	}
	for i, ch := range chunks {
		if len([]rune(ch)) > 10 {
			t.Errorf("chunk %d longer than size: %q", i, ch)
		}
	}
	// Consecutive windows share the overlap region.
	if !strings.HasPrefix(chunks[1], chunks[0][len(chunks[0])-2:]) {
		t.Errorf("chunk 1 should start with overlap of chunk 0: %q / %q", chunks[0], chunks[1])
	}
}

func TestChunkDeterministic(t *testing.T) {
	c, _ := New(7, 3)
	text := "the quick brown fox jumps over the lazy dog"
	a := c.Chunk(text)
	b := c.Chunk(text)
	if len(a) != len(b) {
		t.Fatalf("lengths differ: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Errorf("chunk %d differs: %q vs %q", i, a[i], b[i])
		}
	}
}

func TestChunkEmptyInput(t *testing.T) {
	c, _ := New(10, 2)
	if chunks := c.Chunk(""); chunks != nil {
		t.Errorf("empty input should produce no chunks, got %v", chunks)
	}
	if chunks := c.Chunk("   \n\t  "); chunks != nil {
		t.Errorf("whitespace-only input should produce no chunks, got %v", chunks)
	}
}

func TestChunkShortInput(t *testing.T) {
	c, _ := New(100, 10)
	chunks := c.Chunk("short")
	if len(chunks) != 1 || chunks[0] != "short" {
		t.Errorf("got %v", chunks)
	}
}

func TestChunkTrimsWhitespace(t *testing.T) {
	c, _ := New(5, 1)
	chunks := c.Chunk("ab   cd   ")
	for _, ch := range chunks {
		if ch != strings.TrimSpace(ch) {
			t.Errorf("chunk not trimmed: %q", ch)
		}
		if ch == "" {
			t.Error("empty chunk emitted")
		}
	}
}
