package extractor

import (
	"context"
	"testing"

	"github.com/connexus-ai/docforge/internal/service"
)

func TestParseGSURL(t *testing.T) {
	bucket, object, err := parseGSURL("gs://my-bucket/path/to/object.pdf")
	if err != nil {
		t.Fatalf("parseGSURL: %v", err)
	}
	if bucket != "my-bucket" || object != "path/to/object.pdf" {
		t.Fatalf("got bucket=%q object=%q", bucket, object)
	}
}

func TestParseGSURL_Malformed(t *testing.T) {
	for _, u := range []string{"gs://", "gs://bucket-only", "gs://bucket-only/", "https://example.com/file"} {
		if _, _, err := parseGSURL(u); err == nil {
			t.Fatalf("expected error for %q", u)
		}
	}
}

func TestIsGSURL(t *testing.T) {
	if !isGSURL("gs://bucket/object") {
		t.Fatal("expected true")
	}
	if isGSURL("https://example.com/file") {
		t.Fatal("expected false")
	}
}

func TestExtract_GSURLWithoutGCSFetcher_FailsNotFound(t *testing.T) {
	e := New(nil, nil, "http://unused.invalid")
	_, _, err := e.Extract(context.Background(), "gs://some-bucket/some-object")
	if err == nil {
		t.Fatal("expected error")
	}
	if kind, ok := service.KindOf(err); !ok || kind != service.KindNotFound {
		t.Fatalf("got kind %v, want NotFound", kind)
	}
}
