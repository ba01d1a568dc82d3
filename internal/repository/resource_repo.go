package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/connexus-ai/docforge/internal/model"
	"github.com/connexus-ai/docforge/internal/service"
)

// ResourceRepo implements service.ResourceStore (and handler.ResourceCreator)
// against the resources table.
type ResourceRepo struct {
	pool *pgxpool.Pool
}

// NewResourceRepo creates a ResourceRepo.
func NewResourceRepo(pool *pgxpool.Pool) *ResourceRepo {
	return &ResourceRepo{pool: pool}
}

var _ service.ResourceStore = (*ResourceRepo)(nil)

// CreateResource inserts a new PENDING resource row, per the
// create-resource endpoint's lifecycle entry point.
func (r *ResourceRepo) CreateResource(ctx context.Context, res *model.Resource) error {
	var knowledgeID, contextID *string
	if res.KnowledgeID != "" {
		knowledgeID = &res.KnowledgeID
	}
	if res.ContextID != "" {
		contextID = &res.ContextID
	}

	_, err := r.pool.Exec(ctx, `
		INSERT INTO resources (
			id, type, url, mime_type, title, file_name, file_size, status,
			scrape_frequency, total_chunks, total_batches, processed_batches,
			content_hash, knowledge_id, context_id, workflow_id,
			last_scraped_at, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8,
			$9, $10, $11, $12,
			$13, $14, $15, $16,
			$17, $18, $19
		)`,
		res.ID, string(res.Type), res.URL, res.MimeType, res.Title, res.FileName, res.FileSize, string(res.Status),
		string(res.ScrapeFrequency), res.TotalChunks, res.TotalBatches, res.ProcessedBatches,
		hashToInt64(res.ContentHash), knowledgeID, contextID, res.WorkflowID,
		res.LastScrapedAt, res.CreatedAt, res.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("repository.CreateResource: %w", err)
	}
	return nil
}

// GetResource returns the resource row for id, or (nil, nil) if it doesn't exist.
func (r *ResourceRepo) GetResource(ctx context.Context, id string) (*model.Resource, error) {
	res := &model.Resource{}
	var resourceType, status, scrapeFrequency string
	var knowledgeID, contextID *string
	var contentHash *int64

	err := r.pool.QueryRow(ctx, `
		SELECT id, type, url, mime_type, title, file_name, file_size, status,
			scrape_frequency, total_chunks, total_batches, processed_batches,
			content_hash, knowledge_id, context_id, workflow_id,
			last_scraped_at, created_at, updated_at
		FROM resources WHERE id = $1`, id,
	).Scan(
		&res.ID, &resourceType, &res.URL, &res.MimeType, &res.Title, &res.FileName, &res.FileSize, &status,
		&scrapeFrequency, &res.TotalChunks, &res.TotalBatches, &res.ProcessedBatches,
		&contentHash, &knowledgeID, &contextID, &res.WorkflowID,
		&res.LastScrapedAt, &res.CreatedAt, &res.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("repository.GetResource: %w", err)
	}

	res.Type = model.ResourceType(resourceType)
	res.Status = model.ResourceStatus(status)
	res.ScrapeFrequency = model.ScrapeFrequency(scrapeFrequency)
	res.ContentHash = int64ToHash(contentHash)
	if knowledgeID != nil {
		res.KnowledgeID = *knowledgeID
	}
	if contextID != nil {
		res.ContextID = *contextID
	}

	return res, nil
}

// UpdateResource applies a sparse patch to the resource row; updated_at is
// always bumped regardless of which other fields are set.
func (r *ResourceRepo) UpdateResource(ctx context.Context, id string, patch model.ResourcePatch) error {
	now := time.Now()
	_, err := r.pool.Exec(ctx, `
		UPDATE resources SET
			status        = COALESCE($2, status),
			title         = COALESCE($3, title),
			file_size     = COALESCE($4, file_size),
			total_chunks  = COALESCE($5, total_chunks),
			total_batches = COALESCE($6, total_batches),
			content_hash  = COALESCE($7, content_hash),
			last_scraped_at = COALESCE($8, last_scraped_at),
			updated_at    = $9
		WHERE id = $1`,
		id,
		statusPtr(patch.Status), patch.Title, patch.FileSize,
		patch.TotalChunks, patch.TotalBatches, hashToInt64(patch.ContentHash),
		patch.LastScrapedAt, now,
	)
	if err != nil {
		return fmt.Errorf("repository.UpdateResource: %w", err)
	}
	return nil
}

// SetTotalBatches is a convenience wrapper for the {totalBatches, updatedAt} patch.
func (r *ResourceRepo) SetTotalBatches(ctx context.Context, id string, n int) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE resources SET total_batches = $1, updated_at = $2 WHERE id = $3`,
		n, time.Now(), id,
	)
	if err != nil {
		return fmt.Errorf("repository.SetTotalBatches: %w", err)
	}
	return nil
}

// IncrementProgress atomically bumps processed_batches by delta, clamped to
// total_batches, and stamps last_scraped_at the moment the clamped value
// reaches total_batches. Postgres's per-row MVCC lock on this single
// UPDATE...RETURNING statement is what guarantees only one concurrent
// caller observes done=true: the returned flag reflects the transition from
// not-done to done, not merely the post-update state, so a redundant call
// after completion reports false rather than re-signalling done.
func (r *ResourceRepo) IncrementProgress(ctx context.Context, id string, delta int) (bool, error) {
	var before, processed, total int
	err := r.pool.QueryRow(ctx, `
		WITH old AS (
			SELECT processed_batches AS before, total_batches
			FROM resources WHERE id = $1
			FOR UPDATE
		),
		upd AS (
			UPDATE resources
			SET processed_batches = LEAST(processed_batches + $2, total_batches),
			    updated_at = now(),
			    last_scraped_at = CASE WHEN LEAST(processed_batches + $2, total_batches) = total_batches
			                           THEN now() ELSE last_scraped_at END
			WHERE id = $1
			RETURNING processed_batches, total_batches
		)
		SELECT old.before, upd.processed_batches, upd.total_batches FROM old, upd`,
		id, delta,
	).Scan(&before, &processed, &total)
	if err != nil {
		return false, fmt.Errorf("repository.IncrementProgress: %w", err)
	}
	return total > 0 && before < total && processed == total, nil
}

func statusPtr(s *model.ResourceStatus) *string {
	if s == nil {
		return nil
	}
	v := string(*s)
	return &v
}

// hashToInt64 bit-casts a content hash for storage in the signed `bigint`
// column: xxh64 values routinely exceed math.MaxInt64, which pgx's int8
// codec rejects outright on encode. The cast is lossless and reversed by
// int64ToHash on read.
func hashToInt64(h *uint64) *int64 {
	if h == nil {
		return nil
	}
	v := int64(*h)
	return &v
}

// int64ToHash reverses hashToInt64.
func int64ToHash(v *int64) *uint64 {
	if v == nil {
		return nil
	}
	h := uint64(*v)
	return &h
}
