package model

import "time"

// EmbeddingDimensions is the fixed length of every stored embedding vector,
// matching the text-embedding-3-small model.
const EmbeddingDimensions = 1536

// Chunk is one token window of a resource's extracted text, paired with its
// embedding vector. All chunks of a resource share ResourceID and WorkflowID.
type Chunk struct {
	ID         string
	Content    string
	Embedding  []float32
	ResourceID string
	WorkflowID string
	Active     bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
