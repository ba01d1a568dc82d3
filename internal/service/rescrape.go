package service

import (
	"context"
	"log/slog"

	"github.com/connexus-ai/docforge/internal/model"
)

// RescrapeSkipped is the RescrapeResult.Status reported when content is
// unchanged and the Orchestrator was never invoked.
const RescrapeSkipped = "skipped"

// RescrapeResult reports the outcome of RescrapeGuard.Rescrape.
type RescrapeResult struct {
	Status string // "skipped" or "ingested"
	Reason string // "content_unchanged" when Status == skipped
	IngestResult
}

// RescrapeGuard revisits an already-ingested resource and short-circuits
// the pipeline when the freshly fetched content hashes identically to what
// is already stored.
type RescrapeGuard struct {
	Orchestrator *Orchestrator
	Resources    ResourceStore
	Chunks       ChunkStore
	Extractor    Extractor
	Broadcast    Broadcaster
}

// Rescrape loads the stored resource resourceID, re-fetches its URL,
// compares the fresh content hash to the
// stored one, and either reports a skip or deletes the stale chunks and
// delegates to the Orchestrator (which re-extracts; the duplicate fetch is
// an accepted, intentional redundancy — see design notes).
func (g *RescrapeGuard) Rescrape(ctx context.Context, resourceID string, scope Scope) (RescrapeResult, error) {
	existing, err := g.Resources.GetResource(ctx, resourceID)
	if err != nil {
		return RescrapeResult{}, newErr(KindStoreError, "RescrapeGuard.Rescrape: getResource", err)
	}
	if existing == nil {
		return RescrapeResult{}, newErr(KindNotFound, "RescrapeGuard.Rescrape", nil)
	}

	g.Broadcast.Emit(ctx, scope, string(existing.Type), map[string]any{
		"status":     string(model.StatusPending),
		"message":    "Starting rescrape process",
		"resourceId": existing.ID,
		"title":      existing.Title,
	})

	text, _, err := g.Extractor.Extract(ctx, existing.URL)
	if err != nil {
		g.broadcastFailure(ctx, existing, scope, err)
		return RescrapeResult{}, newErr(kindFromExtract(err), "RescrapeGuard.Rescrape: extract", err)
	}

	newHash := ContentHash(text)
	if existing.ContentHash != nil && newHash == *existing.ContentHash {
		processed := model.StatusProcessed
		if err := g.Resources.UpdateResource(ctx, existing.ID, model.ResourcePatch{Status: &processed}); err != nil {
			slog.Error("rescrape: failed to reaffirm PROCESSED status", "resource_id", existing.ID, "error", err)
		}
		g.Broadcast.Emit(ctx, scope, string(existing.Type), map[string]any{
			"status":     "SKIPPED",
			"message":    "Content unchanged, skipping rescrape",
			"resourceId": existing.ID,
		})
		return RescrapeResult{Status: RescrapeSkipped, Reason: "content_unchanged"}, nil
	}

	if err := g.Chunks.DeleteChunks(ctx, existing.ID); err != nil {
		g.broadcastFailure(ctx, existing, scope, err)
		return RescrapeResult{}, newErr(KindStoreError, "RescrapeGuard.Rescrape: deleteChunks", err)
	}

	ingestResult, err := g.Orchestrator.Ingest(ctx, existing, scope)
	if err != nil {
		return RescrapeResult{}, err
	}

	return RescrapeResult{Status: "ingested", IngestResult: ingestResult}, nil
}

func (g *RescrapeGuard) broadcastFailure(ctx context.Context, resource *model.Resource, scope Scope, cause error) {
	g.Broadcast.Emit(ctx, scope, string(resource.Type), map[string]any{
		"status":     string(model.StatusFailed),
		"message":    cause.Error(),
		"resourceId": resource.ID,
	})
}
