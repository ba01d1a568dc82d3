package service

import (
	"context"

	"github.com/connexus-ai/docforge/internal/model"
)

// Extractor fetches a remote resource and returns its plain-text content
// plus the UTF-8 byte size of that text.
type Extractor interface {
	Extract(ctx context.Context, url string) (text string, byteSize int64, err error)
}

// Titler produces a display title for extracted text.
type Titler interface {
	TitleFor(ctx context.Context, text, originalName string) string
}

// Embedder turns a batch of chunk texts into one vector per text.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// ResourceStore is the Store's resource-row half.
type ResourceStore interface {
	GetResource(ctx context.Context, id string) (*model.Resource, error)
	UpdateResource(ctx context.Context, id string, patch model.ResourcePatch) error
	SetTotalBatches(ctx context.Context, id string, n int) error
	IncrementProgress(ctx context.Context, id string, delta int) (done bool, err error)
}

// ChunkStore is the Store's chunk-rows half.
type ChunkStore interface {
	SaveChunks(ctx context.Context, chunks []model.Chunk) error
	DeleteChunks(ctx context.Context, resourceID string) error
	CountByResourceID(ctx context.Context, resourceID string) (int, error)
}

// Broadcaster emits structured progress events, fire-and-forget.
type Broadcaster interface {
	Emit(ctx context.Context, scope Scope, resourceType string, payload map[string]any)
	EmitUsage(ctx context.Context, workflowID string, newFileSize int64)
}

// Locker provides a distributed, per-resource mutual-exclusion guard so a
// single resource is never ingested concurrently by two process instances.
type Locker interface {
	// Acquire returns a release func and true if the lock was obtained.
	Acquire(ctx context.Context, resourceID string) (release func(), ok bool, err error)
}
