package handler

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/connexus-ai/docforge/internal/model"
	"github.com/connexus-ai/docforge/internal/service"
)

// ResourceInput is one resource entry in a create-resource or rescrape
// request body.
type ResourceInput struct {
	ID       string `json:"id"`
	URL      string `json:"url"`
	Type     string `json:"type"`
	MimeType string `json:"mimeType,omitempty"`
	FileName string `json:"fileName,omitempty"`
	FileSize int64  `json:"fileSize,omitempty"`
	Title    string `json:"title,omitempty"`
}

// CreateResourceRequest is the body of POST /api/v1/create-resource.
type CreateResourceRequest struct {
	Resources   []ResourceInput `json:"resources"`
	WorkflowID  string          `json:"workflowId"`
	UserID      string          `json:"userId"`
	KnowledgeID string          `json:"knowledgeId,omitempty"`
	ContextID   string          `json:"contextId,omitempty"`
}

// RescrapeRequest is the body of POST /api/v1/rescrape: a CreateResourceRequest
// plus the shared secret the cron caller must present.
type RescrapeRequest struct {
	CreateResourceRequest
	RescrapeSecret string `json:"rescrapeSecret"`
}

type createResourceResponse struct {
	Success   bool            `json:"success"`
	Resources []ResourceInput `json:"resources"`
	Error     string          `json:"error,omitempty"`
}

// ResourceCreator persists a newly submitted Resource row as PENDING before
// the Orchestrator is handed it.
type ResourceCreator interface {
	CreateResource(ctx context.Context, r *model.Resource) error
}

// Ingester runs the full ingestion procedure for one resource.
type Ingester interface {
	Ingest(ctx context.Context, resource *model.Resource, scope service.Scope) (service.IngestResult, error)
}

// Rescraper revisits an already-ingested resource.
type Rescraper interface {
	Rescrape(ctx context.Context, resourceID string, scope service.Scope) (service.RescrapeResult, error)
}

// CreateResourceDeps bundles the collaborators the create-resource endpoint needs.
type CreateResourceDeps struct {
	Resources    ResourceCreator
	Orchestrator Ingester
}

// CreateResource handles POST /api/v1/create-resource. Each resource is
// persisted as PENDING, then ingestion is queued as an independent
// background task per resource — the handler does not wait for ingestion
// to finish before responding.
func CreateResource(deps CreateResourceDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateResourceRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondJSON(w, http.StatusBadRequest, createResourceResponse{Success: false, Error: "invalid request body"})
			return
		}

		scope, err := scopeFromRequest(req.KnowledgeID, req.ContextID)
		if err != nil {
			respondJSON(w, http.StatusUnprocessableEntity, createResourceResponse{Success: false, Error: err.Error()})
			return
		}
		if len(req.Resources) == 0 {
			respondJSON(w, http.StatusUnprocessableEntity, createResourceResponse{Success: false, Error: "resources must be non-empty"})
			return
		}

		for _, in := range req.Resources {
			resource := toResource(in, req.WorkflowID, req.KnowledgeID, req.ContextID)

			if err := deps.Resources.CreateResource(r.Context(), resource); err != nil {
				slog.Error("create-resource: failed to persist resource", "resource_id", resource.ID, "error", err)
				continue
			}

			go func(res *model.Resource) {
				ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
				defer cancel()
				if _, err := deps.Orchestrator.Ingest(ctx, res, scope); err != nil {
					slog.Error("create-resource: ingest failed", "resource_id", res.ID, "error", err)
				}
			}(resource)
		}

		respondJSON(w, http.StatusOK, createResourceResponse{Success: true, Resources: req.Resources})
	}
}

// RescrapeDeps bundles the collaborators the rescrape endpoint needs.
type RescrapeDeps struct {
	Rescraper Rescraper
	Secret    string
}

// Rescrape handles POST /api/v1/rescrape. Authorization is a shared secret
// compared in constant time; a mismatch is 401. Every
// resource in the request is rescraped concurrently and the handler awaits
// all of them before responding.
func Rescrape(deps RescrapeDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req RescrapeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondJSON(w, http.StatusBadRequest, createResourceResponse{Success: false, Error: "invalid request body"})
			return
		}

		if !secretsMatch(req.RescrapeSecret, deps.Secret) {
			respondJSON(w, http.StatusUnauthorized, createResourceResponse{Success: false, Error: "unauthorized"})
			return
		}

		scope, err := scopeFromRequest(req.KnowledgeID, req.ContextID)
		if err != nil {
			respondJSON(w, http.StatusUnprocessableEntity, createResourceResponse{Success: false, Error: err.Error()})
			return
		}

		type outcome struct {
			id  string
			err error
		}
		results := make(chan outcome, len(req.Resources))
		for _, in := range req.Resources {
			go func(id string) {
				_, err := deps.Rescraper.Rescrape(r.Context(), id, scope)
				results <- outcome{id: id, err: err}
			}(in.ID)
		}

		for range req.Resources {
			o := <-results
			if o.err != nil {
				slog.Error("rescrape: failed", "resource_id", o.id, "error", o.err)
			}
		}

		respondJSON(w, http.StatusOK, createResourceResponse{Success: true, Resources: req.Resources})
	}
}

func secretsMatch(provided, configured string) bool {
	if configured == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(provided), []byte(configured)) == 1
}

func scopeFromRequest(knowledgeID, contextID string) (service.Scope, error) {
	switch {
	case knowledgeID != "" && contextID != "":
		return service.Scope{}, errBothScopesSet
	case knowledgeID != "":
		return service.KnowledgeScope(knowledgeID), nil
	case contextID != "":
		return service.ContextScope(contextID), nil
	default:
		return service.Scope{}, errNoScopeSet
	}
}

var (
	errBothScopesSet = jsonError("exactly one of knowledgeId or contextId must be set, not both")
	errNoScopeSet    = jsonError("exactly one of knowledgeId or contextId must be set")
)

type jsonError string

func (e jsonError) Error() string { return string(e) }

func toResource(in ResourceInput, workflowID, knowledgeID, contextID string) *model.Resource {
	now := time.Now()
	id := in.ID
	if id == "" {
		id = uuid.NewString()
	}
	return &model.Resource{
		ID:              id,
		Type:            model.ResourceType(in.Type),
		URL:             in.URL,
		MimeType:        in.MimeType,
		Title:           in.Title,
		FileName:        in.FileName,
		FileSize:        in.FileSize,
		Status:          model.StatusPending,
		ScrapeFrequency: model.ScrapeNever,
		KnowledgeID:     knowledgeID,
		ContextID:       contextID,
		WorkflowID:      workflowID,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}
