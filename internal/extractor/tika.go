package extractor

import (
	"bytes"
	"context"
	"io"
	"net/http"

	"github.com/connexus-ai/docforge/internal/service"
)

// TikaFallback is Stage B of the Extractor: it fetches the raw bytes of a
// URL, then PUTs them to an Apache-Tika-shaped endpoint and returns the
// plain-text response body.
type TikaFallback struct {
	Client  *http.Client
	GCS     *GCSFetcher // optional; used for gs:// URLs instead of plain HTTP
	TikaURL string
}

// Extract downloads url and converts it to text via Tika.
func (t *TikaFallback) Extract(ctx context.Context, url string) (string, error) {
	body, _, err := fetch(ctx, t.Client, t.GCS, url)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, t.TikaURL, bytes.NewReader(body))
	if err != nil {
		return "", service.NewError(service.KindNetworkError, "TikaFallback.Extract: new request", err)
	}
	req.Header.Set("Accept", "text/plain")

	resp, err := t.Client.Do(req)
	if err != nil {
		return "", service.NewError(service.KindNetworkError, "TikaFallback.Extract: call tika", err)
	}
	defer resp.Body.Close()

	if err := statusError(resp.StatusCode); err != nil {
		return "", err
	}

	text, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", service.NewError(service.KindUpstreamError, "TikaFallback.Extract: read tika response", err)
	}

	return string(text), nil
}
