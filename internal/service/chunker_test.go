package service

import (
	"strings"
	"testing"
)

func TestChunker_WindowsAreExactExceptLast(t *testing.T) {
	c, err := NewChunker()
	if err != nil {
		t.Fatalf("NewChunker: %v", err)
	}

	text := strings.Repeat("hello world ", 200)
	chunks := c.Chunk(text, 10)

	if len(chunks) < 2 {
		t.Fatalf("expected multiple windows, got %d", len(chunks))
	}
	for i, ch := range chunks[:len(chunks)-1] {
		if ch.TokenCount != 10 {
			t.Fatalf("window %d: got %d tokens, want 10", i, ch.TokenCount)
		}
	}
	last := chunks[len(chunks)-1]
	if last.TokenCount == 0 || last.TokenCount > 10 {
		t.Fatalf("final window token count out of range: %d", last.TokenCount)
	}
}

func TestChunker_EmptyText(t *testing.T) {
	c, err := NewChunker()
	if err != nil {
		t.Fatalf("NewChunker: %v", err)
	}
	chunks := c.Chunk("", 512)
	if len(chunks) != 0 {
		t.Fatalf("got %d chunks for empty text, want 0", len(chunks))
	}
}

func TestChunker_DeterministicTokenCounts(t *testing.T) {
	c, err := NewChunker()
	if err != nil {
		t.Fatalf("NewChunker: %v", err)
	}
	text := "The quick brown fox jumps over the lazy dog."
	a := c.Chunk(text, WindowSize)
	b := c.Chunk(text, WindowSize)
	if len(a) != len(b) {
		t.Fatalf("chunking is not deterministic: %d vs %d windows", len(a), len(b))
	}
	for i := range a {
		if a[i].TokenCount != b[i].TokenCount || a[i].Text != b[i].Text {
			t.Fatalf("window %d differs between runs", i)
		}
	}
}
