package service

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"
)

// WindowSize is the fixed token width of every chunk the Chunker produces.
const WindowSize = 512

// TextChunk is one token window of a resource's extracted text, carrying the
// exact token count the BatchPlanner later sums against the embedding cap.
type TextChunk struct {
	Text       string
	TokenCount int
}

// Chunker splits text into fixed, non-overlapping token windows using the
// cl100k_base byte-pair encoding. Unlike a prose-aware chunker, it carries
// no overlap and no sentence/markdown boundary logic: the engine only needs
// deterministic, exactly-token-counted windows for embedding.
type Chunker struct {
	encoder *tiktoken.Tiktoken
}

// NewChunker constructs a Chunker using the cl100k_base encoding (the
// encoding text-embedding-3-small was trained against).
func NewChunker() (*Chunker, error) {
	enc, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		return nil, fmt.Errorf("service.NewChunker: %w", err)
	}
	return &Chunker{encoder: enc}, nil
}

// Chunk encodes text once and slices the resulting token sequence into
// consecutive windows of exactly windowSize tokens; the final window may be
// shorter. Chunking is deterministic on valid UTF-8 input and cannot fail
// for that reason alone.
func (c *Chunker) Chunk(text string, windowSize int) []TextChunk {
	if windowSize <= 0 {
		windowSize = WindowSize
	}

	tokens := c.encoder.Encode(text, nil, nil)
	if len(tokens) == 0 {
		return nil
	}

	chunks := make([]TextChunk, 0, (len(tokens)+windowSize-1)/windowSize)
	for start := 0; start < len(tokens); start += windowSize {
		end := start + windowSize
		if end > len(tokens) {
			end = len(tokens)
		}
		window := tokens[start:end]
		chunks = append(chunks, TextChunk{
			Text:       c.encoder.Decode(window),
			TokenCount: len(window),
		})
	}
	return chunks
}
