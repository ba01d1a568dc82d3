package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/connexus-ai/docforge/internal/model"
)

// Orchestrator drives the full ingestion procedure for one resource:
// extract, hash, title, chunk, plan, then a concurrent per-batch fan-out of
// embed -> save -> increment-progress -> broadcast.
type Orchestrator struct {
	Extractor   Extractor
	Titler      Titler
	Chunker     *Chunker
	Embedder    Embedder
	Resources   ResourceStore
	Chunks      ChunkStore
	Broadcast   Broadcaster
	Locker      Locker
	Pool        *WorkerPool
}

// IngestResult reports how many batches were planned for a resource.
type IngestResult struct {
	Batches int
}

// Ingest implements the orchestrator procedure described by the engine's
// state machine: PENDING -> (extract) -> PENDING -> (chunk+plan) -> PENDING
// -> (all batches ok) -> PROCESSED, or FAILED on any step's error.
func (o *Orchestrator) Ingest(ctx context.Context, resource *model.Resource, scope Scope) (IngestResult, error) {
	if o.Locker != nil {
		release, ok, err := o.Locker.Acquire(ctx, resource.ID)
		if err != nil {
			return IngestResult{}, newErr(KindStoreError, "Orchestrator.Ingest: acquire lock", err)
		}
		if !ok {
			return IngestResult{}, newErr(KindValidationError, "Orchestrator.Ingest", fmt.Errorf("resource %s is already being ingested", resource.ID))
		}
		defer release()
	}

	text, fileSize, err := o.Extractor.Extract(ctx, resource.URL)
	if err != nil {
		o.fail(ctx, resource, scope, err)
		return IngestResult{}, newErr(kindFromExtract(err), "Orchestrator.Ingest: extract", err)
	}
	if strings.TrimSpace(text) == "" {
		extractErr := fmt.Errorf("extracted text is empty")
		o.fail(ctx, resource, scope, extractErr)
		return IngestResult{}, newErr(KindUpstreamError, "Orchestrator.Ingest: extract", extractErr)
	}

	hash := ContentHash(text)

	o.Broadcast.Emit(ctx, scope, string(resource.Type), map[string]any{
		"status":      string(model.StatusPending),
		"fileSize":    fileSize,
		"totalChunks": 0,
		"resourceId":  resource.ID,
	})
	o.Broadcast.EmitUsage(ctx, resource.WorkflowID, fileSize)

	title := resource.Title
	if title == "" {
		title = o.Titler.TitleFor(ctx, text, resource.FileName)
	}
	o.Broadcast.Emit(ctx, scope, string(resource.Type), map[string]any{
		"status":     string(model.StatusPending),
		"title":      title,
		"resourceId": resource.ID,
	})

	pendingStatus := model.StatusPending
	if err := o.Resources.UpdateResource(ctx, resource.ID, model.ResourcePatch{
		Status:      &pendingStatus,
		Title:       &title,
		FileSize:    &fileSize,
		ContentHash: &hash,
	}); err != nil {
		o.fail(ctx, resource, scope, err)
		return IngestResult{}, newErr(KindStoreError, "Orchestrator.Ingest: updateResource", err)
	}

	textChunks := o.Chunker.Chunk(text, WindowSize)
	totalChunks := len(textChunks)
	if err := o.Resources.UpdateResource(ctx, resource.ID, model.ResourcePatch{TotalChunks: &totalChunks}); err != nil {
		o.fail(ctx, resource, scope, err)
		return IngestResult{}, newErr(KindStoreError, "Orchestrator.Ingest: updateResource", err)
	}
	o.Broadcast.Emit(ctx, scope, string(resource.Type), map[string]any{
		"status":      string(model.StatusPending),
		"totalChunks": totalChunks,
		"resourceId":  resource.ID,
	})

	batches := PlanBatches(textChunks, EmbeddingTokenCap)
	if err := o.Resources.SetTotalBatches(ctx, resource.ID, len(batches)); err != nil {
		o.fail(ctx, resource, scope, err)
		return IngestResult{}, newErr(KindStoreError, "Orchestrator.Ingest: setTotalBatches", err)
	}

	if len(batches) == 0 {
		// No chunks: totalBatches stays 0 and the resource must never reach
		// PROCESSED.
		return IngestResult{Batches: 0}, nil
	}

	// errgroup.Group tracks completion of this call's batches only; the
	// underlying WorkerPool is shared across concurrently ingesting
	// resources and bounds how many of them run at once.
	var failedOnce atomic.Bool
	var g errgroup.Group
	for _, batch := range batches {
		batch := batch
		g.Go(func() error {
			done := make(chan struct{})
			o.Pool.Submit(ctx, func() {
				defer close(done)
				o.runBatch(ctx, resource, scope, batch, &failedOnce)
			})
			// Submit drops fn without running it once ctx is done, so done
			// may never close; stop waiting on cancellation.
			select {
			case <-done:
			case <-ctx.Done():
			}
			return nil
		})
	}
	g.Wait()

	return IngestResult{Batches: len(batches)}, nil
}

func (o *Orchestrator) runBatch(ctx context.Context, resource *model.Resource, scope Scope, batch []TextChunk, failedOnce *atomic.Bool) {
	texts := make([]string, len(batch))
	for i, c := range batch {
		texts[i] = c.Text
	}

	vectors, err := o.Embedder.Embed(ctx, texts)
	if err != nil {
		o.failBatch(ctx, resource, scope, newErr(KindEmbeddingAPI, "Orchestrator.runBatch: embed", err), failedOnce)
		return
	}

	now := time.Now()
	rows := make([]model.Chunk, len(batch))
	for i, c := range batch {
		rows[i] = model.Chunk{
			ID:         uuid.NewString(),
			Content:    c.Text,
			Embedding:  vectors[i],
			ResourceID: resource.ID,
			WorkflowID: resource.WorkflowID,
			Active:     true,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
	}

	if err := o.Chunks.SaveChunks(ctx, rows); err != nil {
		o.failBatch(ctx, resource, scope, newErr(KindStoreError, "Orchestrator.runBatch: saveChunks", err), failedOnce)
		return
	}

	done, err := o.Resources.IncrementProgress(ctx, resource.ID, 1)
	if err != nil {
		o.failBatch(ctx, resource, scope, newErr(KindStoreError, "Orchestrator.runBatch: incrementProgress", err), failedOnce)
		return
	}

	status := model.StatusPending
	if done {
		processed := model.StatusProcessed
		status = processed
		if err := o.Resources.UpdateResource(ctx, resource.ID, model.ResourcePatch{Status: &processed}); err != nil {
			slog.Error("failed to mark resource processed", "resource_id", resource.ID, "error", err)
		}
	}

	o.Broadcast.Emit(ctx, scope, string(resource.Type), map[string]any{
		"status":          string(status),
		"processedChunks": len(batch),
		"resourceId":      resource.ID,
	})
}

// failBatch flips the resource to FAILED exactly once (subsequent calls
// after the first are no-ops against the resource row, but each batch still
// logs its own failure).
func (o *Orchestrator) failBatch(ctx context.Context, resource *model.Resource, scope Scope, err error, failedOnce *atomic.Bool) {
	slog.Error("batch failed", "resource_id", resource.ID, "error", err)
	if failedOnce.CompareAndSwap(false, true) {
		o.fail(ctx, resource, scope, err)
	}
}

func (o *Orchestrator) fail(ctx context.Context, resource *model.Resource, scope Scope, cause error) {
	failed := model.StatusFailed
	if err := o.Resources.UpdateResource(ctx, resource.ID, model.ResourcePatch{Status: &failed}); err != nil {
		slog.Error("failed to mark resource failed", "resource_id", resource.ID, "error", err)
	}
	o.Broadcast.Emit(ctx, scope, string(resource.Type), map[string]any{
		"status":     string(model.StatusFailed),
		"message":    cause.Error(),
		"resourceId": resource.ID,
	})
}

func kindFromExtract(err error) ErrorKind {
	if k, ok := KindOf(err); ok {
		return k
	}
	return KindUpstreamError
}
