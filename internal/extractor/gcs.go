package extractor

import (
	"context"
	"fmt"
	"io"
	"strings"

	"cloud.google.com/go/storage"

	"github.com/connexus-ai/docforge/internal/service"
)

// GCSFetcher downloads objects addressed by a gs://bucket/object URL. Most
// resources are fetched over plain HTTP; this adapter exists for the subset
// of URLs that name a Cloud Storage object directly.
type GCSFetcher struct {
	client *storage.Client
}

// NewGCSFetcher builds a GCSFetcher. Passing a nil *GCSFetcher to New
// disables gs:// support entirely (fetch then fails with NotFound on such
// URLs).
func NewGCSFetcher(ctx context.Context) (*GCSFetcher, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("extractor.NewGCSFetcher: %w", err)
	}
	return &GCSFetcher{client: client}, nil
}

// Close releases the underlying client.
func (g *GCSFetcher) Close() error {
	if g == nil || g.client == nil {
		return nil
	}
	return g.client.Close()
}

// Fetch downloads a gs://bucket/object URL and returns its bytes plus the
// object's declared content type.
func (g *GCSFetcher) Fetch(ctx context.Context, gsURL string) ([]byte, string, error) {
	if g == nil || g.client == nil {
		return nil, "", service.NewError(service.KindNotFound, "extractor.GCSFetcher.Fetch", fmt.Errorf("gcs support not configured"))
	}

	bucket, object, err := parseGSURL(gsURL)
	if err != nil {
		return nil, "", service.NewError(service.KindNotFound, "extractor.GCSFetcher.Fetch", err)
	}

	obj := g.client.Bucket(bucket).Object(object)
	r, err := obj.NewReader(ctx)
	if err != nil {
		if err == storage.ErrObjectNotExist {
			return nil, "", service.NewError(service.KindNotFound, "extractor.GCSFetcher.Fetch", err)
		}
		return nil, "", service.NewError(service.KindUpstreamError, "extractor.GCSFetcher.Fetch: open reader", err)
	}
	defer r.Close()

	body, err := io.ReadAll(r)
	if err != nil {
		return nil, "", service.NewError(service.KindUpstreamError, "extractor.GCSFetcher.Fetch: read object", err)
	}

	return body, r.Attrs.ContentType, nil
}

func parseGSURL(gsURL string) (bucket, object string, err error) {
	const prefix = "gs://"
	if !strings.HasPrefix(gsURL, prefix) {
		return "", "", fmt.Errorf("extractor.parseGSURL: not a gs:// url: %s", gsURL)
	}
	rest := strings.TrimPrefix(gsURL, prefix)
	idx := strings.IndexByte(rest, '/')
	if idx <= 0 || idx == len(rest)-1 {
		return "", "", fmt.Errorf("extractor.parseGSURL: malformed url: %s", gsURL)
	}
	return rest[:idx], rest[idx+1:], nil
}

func isGSURL(url string) bool {
	return strings.HasPrefix(url, "gs://")
}
