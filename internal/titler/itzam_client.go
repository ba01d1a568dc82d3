package titler

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const workflowSlug = "file-title-generator"

// ItzamClient produces display titles via a remote title-generation
// service, with a heuristic fallback when the service is unconfigured or
// fails. TitleFor never fails: it always returns a non-empty string.
type ItzamClient struct {
	Client  *http.Client
	BaseURL string
	APIKey  string
}

// New builds an ItzamClient. If apiKey is empty, TitleFor always uses the
// heuristic fallback.
func New(baseURL, apiKey string) *ItzamClient {
	return &ItzamClient{
		Client:  &http.Client{Timeout: 15 * time.Second},
		BaseURL: baseURL,
		APIKey:  apiKey,
	}
}

type generateTextRequest struct {
	Input        string `json:"input"`
	WorkflowSlug string `json:"workflowSlug"`
}

type generateTextResponse struct {
	Text string `json:"text"`
}

// TitleFor posts the first 1000 characters of text plus originalName to the
// title-generation service; on any failure it falls back to the heuristic.
func (c *ItzamClient) TitleFor(ctx context.Context, text, originalName string) string {
	if c.APIKey != "" {
		if title, ok := c.remoteTitle(ctx, text, originalName); ok {
			return title
		}
	}
	return heuristicTitle(text, originalName)
}

func (c *ItzamClient) remoteTitle(ctx context.Context, text, originalName string) (string, bool) {
	input := text
	if len(input) > 1000 {
		input = input[:1000]
	}
	input = input + "\n" + originalName

	body, err := json.Marshal(generateTextRequest{Input: input, WorkflowSlug: workflowSlug})
	if err != nil {
		slog.Warn("titler: marshal request failed", "error", err)
		return "", false
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/generate/text", bytes.NewReader(body))
	if err != nil {
		slog.Warn("titler: build request failed", "error", err)
		return "", false
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Api-Key", c.APIKey)

	resp, err := c.Client.Do(req)
	if err != nil {
		slog.Warn("titler: request failed", "error", err)
		return "", false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		slog.Warn("titler: non-200 response", "status", resp.StatusCode)
		return "", false
	}

	var out generateTextResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		slog.Warn("titler: decode response failed", "error", err)
		return "", false
	}
	if strings.TrimSpace(out.Text) == "" {
		return "", false
	}
	return out.Text, true
}

// heuristicTitle implements the four-step fallback: first non-empty short
// line, else a truncated-and-ellipsized prefix, else the trimmed text, else
// originalName.
func heuristicTitle(text, originalName string) string {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return originalName
	}

	lines := strings.Split(text, "\n")
	first := strings.TrimSpace(lines[0])

	if first != "" && len(first) <= 100 {
		return first
	}
	if len(text) > 100 {
		return strings.TrimSpace(text[:100]) + "..."
	}
	if trimmed != "" {
		return trimmed
	}
	return originalName
}
