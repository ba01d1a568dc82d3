package extractor

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/connexus-ai/docforge/internal/service"
)

const fetchTimeout = 30 * time.Second

// fetch downloads url with browser-like headers (so servers that block bare
// HTTP clients still serve the content) and returns the raw body bytes plus
// the response's declared content type. The whole fetch is bounded by
// fetchTimeout. gs:// URLs are always routed to gcs instead of the HTTP
// client; with no GCSFetcher configured they fail with NotFound.
func fetch(ctx context.Context, client *http.Client, gcs *GCSFetcher, url string) ([]byte, string, error) {
	ctx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()

	if isGSURL(url) {
		return gcs.Fetch(ctx, url)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", service.NewError(service.KindNetworkError, "extractor.fetch: new request", err)
	}

	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36")
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Upgrade-Insecure-Requests", "1")

	resp, err := client.Do(req)
	if err != nil {
		return nil, "", service.NewError(service.KindNetworkError, "extractor.fetch", err)
	}
	defer resp.Body.Close()

	if err := statusError(resp.StatusCode); err != nil {
		return nil, "", err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", service.NewError(service.KindNetworkError, "extractor.fetch: read body", err)
	}

	return body, resp.Header.Get("Content-Type"), nil
}

// statusError maps an HTTP status code to the taxonomy kind the fetch
// contract requires. Status 999 (some sites' bot-block sentinel) maps to
// AccessDenied alongside the ordinary 403.
func statusError(code int) error {
	switch {
	case code == http.StatusOK:
		return nil
	case code == 999 || code == http.StatusForbidden:
		return service.NewError(service.KindAccessDenied, "extractor.fetch", fmt.Errorf("status %d", code))
	case code == http.StatusNotFound:
		return service.NewError(service.KindNotFound, "extractor.fetch", fmt.Errorf("status %d", code))
	case code >= 400:
		return service.NewError(service.KindUpstreamError, "extractor.fetch", fmt.Errorf("status %d", code))
	default:
		return nil
	}
}
