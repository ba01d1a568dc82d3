package extractor

import (
	"context"
	"fmt"
	"mime"
	"net/http"
	"strings"

	"cloud.google.com/go/vertexai/genai"

	"github.com/connexus-ai/docforge/internal/gcpclient"
)

// VertexConverter is Stage A of the Extractor: it runs a fetched document
// through Vertex AI Gemini multimodal generation, asking the model to
// convert it into markdown with inline descriptions of any images. Stage A
// never surfaces its own error to the caller — any failure here falls
// through to the Tika-based Stage B fallback.
type VertexConverter struct {
	Client *genai.Client
	GCS    *GCSFetcher // optional; used for gs:// URLs instead of plain HTTP
	Model  string
}

const conversionPrompt = "Convert the attached document to clean markdown. " +
	"Preserve headings and structure. Wherever an image appears, replace it " +
	"with a concise bracketed description of what it depicts."

// Convert fetches url and asks Gemini to produce markdown with inline image
// descriptions. Returns an error (never panics) if the model call fails;
// callers are expected to fall back to Stage B rather than surface it.
func (v *VertexConverter) Convert(ctx context.Context, client *http.Client, url string) (string, error) {
	if v == nil || v.Client == nil {
		return "", fmt.Errorf("extractor.VertexConverter: not configured")
	}

	body, contentType, err := fetch(ctx, client, v.GCS, url)
	if err != nil {
		return "", err
	}
	if contentType == "" {
		contentType = guessMIMEType(url)
	}

	model := v.Client.GenerativeModel(v.Model)
	resp, err := gcpclient.WithRetry(ctx, "extractor.VertexConverter.Convert", func() (*genai.GenerateContentResponse, error) {
		return model.GenerateContent(ctx,
			genai.Blob{MIMEType: contentType, Data: body},
			genai.Text(conversionPrompt),
		)
	})
	if err != nil {
		return "", fmt.Errorf("extractor.VertexConverter.Convert: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("extractor.VertexConverter.Convert: empty response")
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			sb.WriteString(string(t))
		}
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("extractor.VertexConverter.Convert: no text parts in response")
	}
	return sb.String(), nil
}

func guessMIMEType(url string) string {
	if idx := strings.LastIndex(url, "."); idx >= 0 {
		if t := mime.TypeByExtension(url[idx:]); t != "" {
			return t
		}
	}
	return "application/octet-stream"
}
