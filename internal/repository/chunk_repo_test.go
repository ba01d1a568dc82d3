package repository

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/connexus-ai/docforge/internal/model"
)

func setupChunkRepo(t *testing.T) (*ChunkRepo, *ResourceRepo) {
	t.Helper()
	dbURL := os.Getenv("POSTGRES_URL")
	if dbURL == "" {
		t.Skip("POSTGRES_URL not set, skipping integration test")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	p, err := NewPool(ctx, dbURL, 5)
	if err != nil {
		t.Fatalf("NewPool() error: %v", err)
	}
	t.Cleanup(p.Close)

	return NewChunkRepo(p), NewResourceRepo(p)
}

func newTestVector() []float32 {
	v := make([]float32, model.EmbeddingDimensions)
	for i := range v {
		v[i] = 0.001 * float32(i%7)
	}
	return v
}

func TestChunkRepo_SaveCountDelete(t *testing.T) {
	chunkRepo, resourceRepo := setupChunkRepo(t)
	ctx := context.Background()

	res := newTestResource()
	if err := resourceRepo.CreateResource(ctx, res); err != nil {
		t.Fatalf("CreateResource() error: %v", err)
	}

	now := time.Now().UTC()
	chunks := []model.Chunk{
		{ID: uuid.NewString(), Content: "first chunk", Embedding: newTestVector(), ResourceID: res.ID, WorkflowID: res.WorkflowID, Active: true, CreatedAt: now, UpdatedAt: now},
		{ID: uuid.NewString(), Content: "second chunk", Embedding: newTestVector(), ResourceID: res.ID, WorkflowID: res.WorkflowID, Active: true, CreatedAt: now, UpdatedAt: now},
	}

	if err := chunkRepo.SaveChunks(ctx, chunks); err != nil {
		t.Fatalf("SaveChunks() error: %v", err)
	}

	count, err := chunkRepo.CountByResourceID(ctx, res.ID)
	if err != nil {
		t.Fatalf("CountByResourceID() error: %v", err)
	}
	if count != 2 {
		t.Errorf("CountByResourceID() = %d, want 2", count)
	}

	if err := chunkRepo.DeleteChunks(ctx, res.ID); err != nil {
		t.Fatalf("DeleteChunks() error: %v", err)
	}

	count, err = chunkRepo.CountByResourceID(ctx, res.ID)
	if err != nil {
		t.Fatalf("CountByResourceID() error: %v", err)
	}
	if count != 0 {
		t.Errorf("CountByResourceID() after delete = %d, want 0", count)
	}
}

func TestChunkRepo_SaveChunks_Empty(t *testing.T) {
	chunkRepo, _ := setupChunkRepo(t)

	if err := chunkRepo.SaveChunks(context.Background(), nil); err != nil {
		t.Errorf("SaveChunks(nil) error: %v, want nil", err)
	}
}
