package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/rorsim/gfxbridge/pkg/core"
)

func TestNew_TrimsTrailingSlash(t *testing.T) {
	c := New("http://localhost:5000/", "secret")
	if c.baseURL != "http://localhost:5000" {
		t.Errorf("expected trailing slash trimmed, got %s", c.baseURL)
	}
	if c.apiKey != "secret" {
		t.Errorf("expected apiKey=secret, got %s", c.apiKey)
	}
}

func TestHealthcheck(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		wantErr bool
	}{
		{"ok", http.StatusOK, false},
		{"server error", http.StatusInternalServerError, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/healthcheck" {
					t.Errorf("expected path /healthcheck, got %s", r.URL.Path)
				}
				w.WriteHeader(tt.status)
			}))
			defer server.Close()

			err := New(server.URL, "").Healthcheck(context.Background())
			if (err != nil) != tt.wantErr {
				t.Errorf("Healthcheck() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestHealthcheck_ServerDown(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	if err := New(url, "").Healthcheck(context.Background()); err == nil {
		t.Error("expected error for unreachable server")
	}
}

func TestUpload_Success(t *testing.T) {
	got := map[string]string{}
	var content []byte

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/recordings" {
			t.Errorf("expected path /api/v1/recordings, got %s", r.URL.Path)
		}
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if err := r.ParseMultipartForm(10 << 20); err != nil {
			t.Errorf("failed to parse multipart form: %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		for _, k := range []string{"secret", "filename", "sessionId", "sessionName", "duration", "actorCount", "tag"} {
			got[k] = r.FormValue(k)
		}
		file, _, err := r.FormFile("file")
		if err != nil {
			t.Errorf("failed to get file: %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		defer file.Close()
		content, _ = io.ReadAll(file)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	path := filepath.Join(t.TempDir(), "demo_20260101_000000.json.gz")
	if err := os.WriteFile(path, []byte("test content"), 0644); err != nil {
		t.Fatal(err)
	}

	meta := core.UploadMetadata{
		SessionID:   "abc",
		SessionName: "demo",
		Duration:    12.5,
		ActorCount:  3,
		Tag:         "nightly",
	}
	if err := New(server.URL, "mysecret").Upload(context.Background(), path, meta); err != nil {
		t.Fatalf("Upload failed: %v", err)
	}

	want := map[string]string{
		"secret":      "mysecret",
		"filename":    "demo_20260101_000000.json.gz",
		"sessionId":   "abc",
		"sessionName": "demo",
		"duration":    "12.500",
		"actorCount":  "3",
		"tag":         "nightly",
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("expected %s=%q, got %q", k, v, got[k])
		}
	}
	if string(content) != "test content" {
		t.Errorf("expected file content 'test content', got '%s'", content)
	}
}

func TestUpload_FileNotFound(t *testing.T) {
	c := New("http://localhost:5000", "secret")
	if err := c.Upload(context.Background(), "/nonexistent/file.json.gz", core.UploadMetadata{}); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestUpload_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	path := filepath.Join(t.TempDir(), "test.json.gz")
	if err := os.WriteFile(path, []byte("content"), 0644); err != nil {
		t.Fatal(err)
	}

	err := New(server.URL, "wrong-secret").Upload(context.Background(), path, core.UploadMetadata{})
	if !errors.Is(err, ErrUnauthorized) {
		t.Errorf("expected ErrUnauthorized for 403 response, got %v", err)
	}
}

func TestUpload_StatusErrorCarriesBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
		http.Error(w, "disk full", http.StatusInsufficientStorage)
	}))
	defer server.Close()

	path := filepath.Join(t.TempDir(), "test.json.gz")
	if err := os.WriteFile(path, []byte("content"), 0644); err != nil {
		t.Fatal(err)
	}

	err := New(server.URL, "s").Upload(context.Background(), path, core.UploadMetadata{})
	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("expected *StatusError, got %v", err)
	}
	if se.Code != http.StatusInsufficientStorage || se.Message != "disk full" {
		t.Errorf("unexpected status error %+v", se)
	}
	if errors.Is(err, ErrUnauthorized) {
		t.Error("507 must not match ErrUnauthorized")
	}
}

func TestUpload_ChecksumAndContentType(t *testing.T) {
	var sum, size, ctype string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(10 << 20); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		sum = r.FormValue("sha256")
		size = r.FormValue("size")
		if _, hdr, err := r.FormFile("file"); err == nil {
			ctype = hdr.Header.Get("Content-Type")
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	path := filepath.Join(t.TempDir(), "session.json.gz")
	if err := os.WriteFile(path, []byte("abc"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := New(server.URL, "s").Upload(context.Background(), path, core.UploadMetadata{}); err != nil {
		t.Fatalf("Upload failed: %v", err)
	}

	// sha256("abc")
	if want := "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"; sum != want {
		t.Errorf("expected sha256 %s, got %s", want, sum)
	}
	if size != "3" {
		t.Errorf("expected size 3, got %s", size)
	}
	if ctype != "application/gzip" {
		t.Errorf("expected application/gzip, got %s", ctype)
	}
}

func TestUpload_CanceledContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	path := filepath.Join(t.TempDir(), "test.json")
	if err := os.WriteFile(path, []byte("{}"), 0644); err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := New(server.URL, "s").Upload(ctx, path, core.UploadMetadata{}); err == nil {
		t.Error("expected error for canceled context")
	}
}

func TestContentType(t *testing.T) {
	tests := map[string]string{
		"a.json.gz": "application/gzip",
		"a.json":    "application/json",
		"a.bin":     "application/octet-stream",
	}
	for name, want := range tests {
		if got := contentType(name); got != want {
			t.Errorf("contentType(%q) = %q, want %q", name, got, want)
		}
	}
}
