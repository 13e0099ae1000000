package media

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

func noAria2c(string) (string, error) {
	return "", errors.New("not found")
}

func TestDownload_WritesFile(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("container-bytes"))
	}))
	defer ts.Close()

	a := NewAcquirer(4, nil)
	dest := filepath.Join(t.TempDir(), "rec.mp4")
	if err := a.download(context.Background(), ts.URL, dest); err != nil {
		t.Fatalf("download failed: %v", err)
	}

	data, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if string(data) != "container-bytes" {
		t.Fatalf("unexpected content %q", data)
	}
}

func TestDownload_ErrorOnBadStatus(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer ts.Close()

	a := NewAcquirer(4, nil)
	dest := filepath.Join(t.TempDir(), "rec.mp4")
	if err := a.download(context.Background(), ts.URL, dest); err == nil {
		t.Fatal("expected error on 403")
	}
	if _, err := os.Stat(dest); !os.IsNotExist(err) {
		t.Fatal("no file must be created on a failed download")
	}
}

func TestAcquire_CleansUpOnFetchFailure(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer ts.Close()

	a := NewAcquirer(4, nil)
	a.lookPath = noAria2c

	before := tempDirCount(t)
	_, _, err := a.Acquire(context.Background(), ts.URL, "rec-1")
	if err == nil {
		t.Fatal("expected acquisition error")
	}
	if after := tempDirCount(t); after != before {
		t.Fatalf("temp dirs leaked: before=%d after=%d", before, after)
	}
}

func tempDirCount(t *testing.T) int {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join(os.TempDir(), "meeting-ingest-*"))
	if err != nil {
		t.Fatalf("glob failed: %v", err)
	}
	return len(matches)
}
