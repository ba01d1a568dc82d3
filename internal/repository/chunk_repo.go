package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgvector "github.com/pgvector/pgvector-go"

	"github.com/connexus-ai/docforge/internal/model"
	"github.com/connexus-ai/docforge/internal/service"
)

// ChunkRepo implements service.ChunkStore against the chunks table
// with embeddings stored as pgvector(1536) columns.
type ChunkRepo struct {
	pool *pgxpool.Pool
}

// NewChunkRepo creates a ChunkRepo.
func NewChunkRepo(pool *pgxpool.Pool) *ChunkRepo {
	return &ChunkRepo{pool: pool}
}

var _ service.ChunkStore = (*ChunkRepo)(nil)

// SaveChunks stores chunks with their embedding vectors inside a single
// transaction: a batched pipeline of inserts wrapped in an explicit pgx.Tx
// so a mid-batch failure leaves no row inserted.
func (r *ChunkRepo) SaveChunks(ctx context.Context, chunks []model.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("repository.SaveChunks: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	now := time.Now().UTC()

	for _, c := range chunks {
		embedding := pgvector.NewVector(c.Embedding)
		batch.Queue(`
			INSERT INTO chunks (id, resource_id, workflow_id, content, embedding, active, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			c.ID, c.ResourceID, c.WorkflowID, c.Content, embedding, c.Active, now, now,
		)
	}

	br := tx.SendBatch(ctx, batch)
	for i := 0; i < len(chunks); i++ {
		if _, err := br.Exec(); err != nil {
			br.Close()
			return fmt.Errorf("repository.SaveChunks: chunk %d: %w", i, err)
		}
	}
	if err := br.Close(); err != nil {
		return fmt.Errorf("repository.SaveChunks: close batch: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("repository.SaveChunks: commit: %w", err)
	}
	return nil
}

// DeleteChunks removes all chunks for a resource, used by the rescrape
// short-circuit's replace path.
func (r *ChunkRepo) DeleteChunks(ctx context.Context, resourceID string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM chunks WHERE resource_id = $1`, resourceID)
	if err != nil {
		return fmt.Errorf("repository.DeleteChunks: %w", err)
	}
	return nil
}

// CountByResourceID returns the number of chunks stored for a resource.
func (r *ChunkRepo) CountByResourceID(ctx context.Context, resourceID string) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `SELECT count(*) FROM chunks WHERE resource_id = $1`, resourceID).Scan(&count)
	if err != nil && err != pgx.ErrNoRows {
		return 0, fmt.Errorf("repository.CountByResourceID: %w", err)
	}
	return count, nil
}
