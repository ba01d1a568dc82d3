package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/connexus-ai/docforge/internal/model"
	"github.com/connexus-ai/docforge/internal/service"
)

type fakeResourceCreator struct {
	mu      sync.Mutex
	created []*model.Resource
	err     error
}

func (f *fakeResourceCreator) CreateResource(ctx context.Context, r *model.Resource) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.created = append(f.created, r)
	return nil
}

type fakeIngester struct {
	mu       sync.Mutex
	ingested []string
	done     chan struct{}
}

func (f *fakeIngester) Ingest(ctx context.Context, resource *model.Resource, scope service.Scope) (service.IngestResult, error) {
	f.mu.Lock()
	f.ingested = append(f.ingested, resource.ID)
	f.mu.Unlock()
	if f.done != nil {
		f.done <- struct{}{}
	}
	return service.IngestResult{Batches: 1}, nil
}

type fakeRescraper struct {
	mu        sync.Mutex
	rescraped []string
	err       error
}

func (f *fakeRescraper) Rescrape(ctx context.Context, resourceID string, scope service.Scope) (service.RescrapeResult, error) {
	f.mu.Lock()
	f.rescraped = append(f.rescraped, resourceID)
	f.mu.Unlock()
	return service.RescrapeResult{Status: "ingested"}, f.err
}

func TestCreateResource_Success(t *testing.T) {
	creator := &fakeResourceCreator{}
	ingester := &fakeIngester{done: make(chan struct{}, 1)}
	handler := CreateResource(CreateResourceDeps{Resources: creator, Orchestrator: ingester})

	body, _ := json.Marshal(CreateResourceRequest{
		Resources:   []ResourceInput{{ID: "r1", URL: "https://example.com/a", Type: "LINK"}},
		WorkflowID:  "wf1",
		UserID:      "u1",
		KnowledgeID: "k1",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/create-resource", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body=%s", rec.Code, rec.Body.String())
	}

	select {
	case <-ingester.done:
	case <-time.After(2 * time.Second):
		t.Fatal("ingestion was not dispatched")
	}

	if len(creator.created) != 1 || creator.created[0].ID != "r1" {
		t.Errorf("created = %+v, want one resource r1", creator.created)
	}
}

func TestCreateResource_BothScopesRejected(t *testing.T) {
	handler := CreateResource(CreateResourceDeps{Resources: &fakeResourceCreator{}, Orchestrator: &fakeIngester{}})

	body, _ := json.Marshal(CreateResourceRequest{
		Resources:   []ResourceInput{{ID: "r1", URL: "https://example.com", Type: "LINK"}},
		KnowledgeID: "k1",
		ContextID:   "c1",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/create-resource", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want 422", rec.Code)
	}
}

func TestCreateResource_NoScopeRejected(t *testing.T) {
	handler := CreateResource(CreateResourceDeps{Resources: &fakeResourceCreator{}, Orchestrator: &fakeIngester{}})

	body, _ := json.Marshal(CreateResourceRequest{
		Resources: []ResourceInput{{ID: "r1", URL: "https://example.com", Type: "LINK"}},
	})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/create-resource", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want 422", rec.Code)
	}
}

func TestCreateResource_EmptyResources(t *testing.T) {
	handler := CreateResource(CreateResourceDeps{Resources: &fakeResourceCreator{}, Orchestrator: &fakeIngester{}})

	body, _ := json.Marshal(CreateResourceRequest{KnowledgeID: "k1"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/create-resource", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want 422", rec.Code)
	}
}

func TestRescrape_WrongSecret(t *testing.T) {
	handler := Rescrape(RescrapeDeps{Rescraper: &fakeRescraper{}, Secret: "correct-secret"})

	body, _ := json.Marshal(RescrapeRequest{
		CreateResourceRequest: CreateResourceRequest{
			Resources:   []ResourceInput{{ID: "r1"}},
			KnowledgeID: "k1",
		},
		RescrapeSecret: "wrong-secret",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/rescrape", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestRescrape_Success(t *testing.T) {
	rescraper := &fakeRescraper{}
	handler := Rescrape(RescrapeDeps{Rescraper: rescraper, Secret: "correct-secret"})

	body, _ := json.Marshal(RescrapeRequest{
		CreateResourceRequest: CreateResourceRequest{
			Resources:   []ResourceInput{{ID: "r1"}, {ID: "r2"}},
			KnowledgeID: "k1",
		},
		RescrapeSecret: "correct-secret",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/rescrape", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body=%s", rec.Code, rec.Body.String())
	}
	if len(rescraper.rescraped) != 2 {
		t.Errorf("rescraped = %v, want 2 entries", rescraper.rescraped)
	}
}

func TestRescrape_EmptyConfiguredSecretAlwaysRejects(t *testing.T) {
	handler := Rescrape(RescrapeDeps{Rescraper: &fakeRescraper{}, Secret: ""})

	body, _ := json.Marshal(RescrapeRequest{
		CreateResourceRequest: CreateResourceRequest{
			Resources:   []ResourceInput{{ID: "r1"}},
			KnowledgeID: "k1",
		},
		RescrapeSecret: "",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/rescrape", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}
