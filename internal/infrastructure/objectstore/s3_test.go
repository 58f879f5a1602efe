package objectstore

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Norvan25/homenest-nous-sub002/internal/config"
)

func TestPutUploadsPathStyle(t *testing.T) {
	t.Parallel()

	var gotPath, gotType, gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut {
			t.Errorf("unexpected method %s", r.Method)
		}
		raw, _ := io.ReadAll(r.Body)
		gotPath, gotType, gotBody = r.URL.Path, r.Header.Get("Content-Type"), string(raw)
		w.Header().Set("ETag", `"abc"`)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	store, err := NewS3Store(config.StorageConfig{
		Endpoint:       srv.URL,
		Region:         "us-east-1",
		Bucket:         "homenest",
		PublicBaseURL:  "https://cdn.example.com/storage/v1/object/public/homenest",
		AccessKey:      "ak",
		SecretKey:      "sk",
		ForcePathStyle: true,
	})
	if err != nil {
		t.Fatalf("new store: %v", err)
	}

	url, err := store.Put(context.Background(), "documents/doc 1.md", []byte("# Offer"), "text/markdown")
	if err != nil {
		t.Fatalf("put: %v", err)
	}

	if gotPath != "/homenest/documents/doc 1.md" {
		t.Fatalf("unexpected path %q", gotPath)
	}
	if gotType != "text/markdown" || gotBody != "# Offer" {
		t.Fatalf("unexpected upload %q %q", gotType, gotBody)
	}
	if url != "https://cdn.example.com/storage/v1/object/public/homenest/documents/doc%201.md" {
		t.Fatalf("unexpected url %s", url)
	}
}

func TestNewS3StoreRequiresBucket(t *testing.T) {
	t.Parallel()

	if _, err := NewS3Store(config.StorageConfig{AccessKey: "a", SecretKey: "b"}); err == nil {
		t.Fatal("expected misconfiguration error")
	}
}
