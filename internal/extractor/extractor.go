package extractor

import (
	"context"
	"net/http"
	"strings"
	"time"

	"log/slog"
)

// Extractor implements the two-stage extraction contract: Stage A converts
// the document through Vertex AI into markdown with inline image
// descriptions; if that fails for any reason, Stage B falls back to a
// Tika-shaped plain-text extraction service without surfacing Stage A's
// error.
type Extractor struct {
	Client *http.Client
	Stage1 *VertexConverter // optional; nil disables Stage A entirely
	Stage2 *TikaFallback
}

// New builds an Extractor whose shared HTTP client times out each call
// after 60s; document fetches are additionally bounded at 30s by fetch.
// gcs is optional; when nil, gs:// resource URLs fail with NotFound instead
// of being downloaded directly from Cloud Storage.
func New(stage1 *VertexConverter, gcs *GCSFetcher, tikaURL string) *Extractor {
	client := &http.Client{Timeout: 60 * time.Second}
	if stage1 != nil {
		stage1.GCS = gcs
	}
	return &Extractor{
		Client: client,
		Stage1: stage1,
		Stage2: &TikaFallback{Client: client, GCS: gcs, TikaURL: tikaURL},
	}
}

// Extract returns (text, byteSize) where byteSize is the UTF-8 byte length
// of the extracted text, not the downloaded artifact.
func (e *Extractor) Extract(ctx context.Context, url string) (string, int64, error) {
	if e.Stage1 != nil {
		text, err := e.Stage1.Convert(ctx, e.Client, url)
		if err == nil && strings.TrimSpace(text) != "" {
			return text, int64(len(text)), nil
		}
		if err != nil {
			slog.Warn("extractor: stage A failed, falling back to stage B", "url", url, "error", err)
		}
	}

	text, err := e.Stage2.Extract(ctx, url)
	if err != nil {
		return "", 0, err
	}
	return text, int64(len(text)), nil
}
