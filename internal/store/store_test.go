package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
)

func TestFileStoreWritesAndSkipsUnchanged(t *testing.T) {
	dir := t.TempDir()
	fs, err := NewFileStore(dir, nil)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	if err := fs.Put(ctx, Manuscript, []byte("# Title\n")); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := fs.Put(ctx, Manuscript, []byte("# Title\n")); err != nil {
		t.Fatalf("put again: %v", err)
	}
	if fs.Writes() != 1 {
		t.Fatalf("expected 1 write for unchanged content, got %d", fs.Writes())
	}
	if err := fs.Put(ctx, Manuscript, []byte("# Title\n\nMore\n")); err != nil {
		t.Fatalf("put changed: %v", err)
	}
	if fs.Writes() != 2 {
		t.Fatalf("expected 2 writes, got %d", fs.Writes())
	}

	data, err := os.ReadFile(fs.Path(Manuscript))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "# Title\n\nMore\n" {
		t.Fatalf("unexpected content %q", data)
	}
	if _, err := os.Stat(fs.Path(Manuscript) + ".tmp"); !os.IsNotExist(err) {
		t.Fatalf("expected temp file removed, stat err=%v", err)
	}
}

func TestFileStoreGet(t *testing.T) {
	fs, err := NewFileStore(t.TempDir(), nil)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	if _, err := fs.Get(ctx, DiagramSuggestions); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	_ = fs.Put(ctx, DiagramSuggestions, []byte("x"))
	got, err := fs.Get(ctx, DiagramSuggestions)
	if err != nil || string(got) != "x" {
		t.Fatalf("expected x, got %q, %v", got, err)
	}
}

type kvServer struct {
	mu   sync.Mutex
	data map[string]NodeRequest
}

func (k *kvServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("Authorization") != "Bearer key" {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	key := strings.TrimPrefix(r.URL.Path, "/kv/")
	k.mu.Lock()
	defer k.mu.Unlock()
	switch r.Method {
	case http.MethodPut:
		var req NodeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		k.data[key] = req
		w.WriteHeader(http.StatusCreated)
	case http.MethodGet:
		req, ok := k.data[key]
		if !ok {
			http.NotFound(w, r)
			return
		}
		_ = json.NewEncoder(w).Encode(NodeResponse{Key: key, Value: req.Value, Encoding: req.Encoding})
	}
}

func TestRemoteStoreRoundTrip(t *testing.T) {
	kv := &kvServer{data: make(map[string]NodeRequest)}
	srv := httptest.NewServer(kv)
	defer srv.Close()

	rs := NewRemoteStore(srv.URL+"/", "key", "/runs/abc/")
	ctx := context.Background()
	if err := rs.Put(ctx, Manuscript, []byte("# Book\n")); err != nil {
		t.Fatalf("put: %v", err)
	}
	docx := []byte{0x50, 0x4b, 0x03, 0x04, 0xff}
	if err := rs.Put(ctx, ManuscriptDOCX, docx); err != nil {
		t.Fatalf("put docx: %v", err)
	}

	if _, ok := kv.data["runs/abc/manuscript_md"]; !ok {
		t.Fatalf("expected key runs/abc/manuscript_md, got %v", kv.data)
	}
	if kv.data["runs/abc/manuscript_docx"].Encoding != "base64" {
		t.Fatal("expected docx stored base64 encoded")
	}

	got, err := rs.Get(ctx, ManuscriptDOCX)
	if err != nil || !bytes.Equal(got, docx) {
		t.Fatalf("expected docx bytes back, got %v, %v", got, err)
	}
	if _, err := rs.Get(ctx, DiagramSuggestions); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	bad := NewRemoteStore(srv.URL, "wrong", "runs/abc")
	if err := bad.Put(ctx, Manuscript, []byte("x")); err == nil || !strings.Contains(err.Error(), "status 401") {
		t.Fatalf("expected 401 error, got %v", err)
	}
}

type failingStore struct{ err error }

func (f failingStore) Put(context.Context, Artifact, []byte) error { return f.err }

func TestMultiJoinsErrors(t *testing.T) {
	fs, err := NewFileStore(t.TempDir(), nil)
	if err != nil {
		t.Fatal(err)
	}
	boom := errors.New("boom")
	m := Multi{fs, failingStore{boom}}
	err = m.Put(context.Background(), Manuscript, []byte("x"))
	if !errors.Is(err, boom) {
		t.Fatalf("expected joined boom error, got %v", err)
	}
	if fs.Writes() != 1 {
		t.Fatal("expected file store still written")
	}
}

func TestArtifactValid(t *testing.T) {
	if !Manuscript.Valid() || Artifact("../etc/passwd").Valid() {
		t.Fatal("unexpected artifact validity")
	}
	if ManuscriptDOCX.Markdown() || !ManuscriptChapters.Markdown() {
		t.Fatal("unexpected markdown classification")
	}
}
