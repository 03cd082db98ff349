package storage

import (
    "context"
    "net/http"
    "net/http/httptest"
    "net/url"
    "os"
    "path/filepath"
    "strings"
    "testing"
    "time"
)

func TestNewKeyKeepsExtension(t *testing.T) {
    k := NewKey("services/7", "Photo.JPG")
    if !strings.HasPrefix(k, "services/7/") || !strings.HasSuffix(k, ".jpg") {
        t.Fatalf("unexpected key %q", k)
    }
    if NewKey("x", "a.png") == NewKey("x", "a.png") {
        t.Fatalf("keys must be unique")
    }
}

func TestLocalStoreRoundTrip(t *testing.T) {
    dir := t.TempDir()
    s, err := NewLocalStore(dir, "http://localhost/uploads/", "secret", time.Hour)
    if err != nil {
        t.Fatalf("new store: %v", err)
    }
    ctx := context.Background()
    if err := s.Put(ctx, "services/1/b.txt", strings.NewReader("hello"), 5, "text/plain"); err != nil {
        t.Fatalf("put: %v", err)
    }
    got, err := os.ReadFile(filepath.Join(dir, "services", "1", "b.txt"))
    if err != nil || string(got) != "hello" {
        t.Fatalf("read back %q, %v", got, err)
    }
    u, err := s.URL(ctx, "services/1/b.txt")
    if err != nil || u != "http://localhost/uploads/services/1/b.txt" {
        t.Fatalf("url %q, %v", u, err)
    }
    if err := s.Delete(ctx, "services/1/b.txt"); err != nil {
        t.Fatalf("delete: %v", err)
    }
    if err := s.Delete(ctx, "services/1/b.txt"); err != nil {
        t.Fatalf("second delete should be a no-op: %v", err)
    }
}

func TestLocalStoreRejectsEscape(t *testing.T) {
    dir := t.TempDir()
    s, _ := NewLocalStore(filepath.Join(dir, "root"), "/uploads", "secret", time.Hour)
    if err := s.Put(context.Background(), "../../evil", strings.NewReader("x"), 1, ""); err != nil {
        t.Fatalf("put: %v", err)
    }
    if _, err := os.Stat(filepath.Join(dir, "root", "evil")); err != nil {
        t.Fatalf("key should be confined below base path: %v", err)
    }
}

func TestIsImage(t *testing.T) {
    if !IsImage("image/png") || IsImage("application/pdf") {
        t.Fatalf("IsImage misclassified")
    }
}

func fetch(t *testing.T, h http.Handler, target string) int {
    t.Helper()
    rec := httptest.NewRecorder()
    h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
    return rec.Code
}

func TestHandlerGuardsPrivateKeys(t *testing.T) {
    s, err := NewLocalStore(t.TempDir(), "", "secret", time.Hour)
    if err != nil {
        t.Fatal(err)
    }
    ctx := context.Background()
    for _, key := range []string{"services/3/p.png", "documents/7/cni.pdf", "documents/8/cni.pdf"} {
        if err := s.Put(ctx, key, strings.NewReader("x"), 1, ""); err != nil {
            t.Fatal(err)
        }
    }
    h := s.Handler()

    if code := fetch(t, h, "/services/3/p.png"); code != http.StatusOK {
        t.Fatalf("public photo = %d", code)
    }
    if code := fetch(t, h, "/documents/7/cni.pdf"); code != http.StatusForbidden {
        t.Fatalf("unsigned document = %d", code)
    }
    signed, err := s.URL(ctx, "documents/7/cni.pdf")
    if err != nil || !strings.Contains(signed, "?token=") {
        t.Fatalf("signed url %q, %v", signed, err)
    }
    if code := fetch(t, h, signed); code != http.StatusOK {
        t.Fatalf("signed document = %d", code)
    }
    parsed, _ := url.Parse(signed)
    if code := fetch(t, h, "/documents/8/cni.pdf?"+parsed.RawQuery); code != http.StatusForbidden {
        t.Fatalf("token reused for another key = %d", code)
    }
    if code := fetch(t, h, "/services/3"); code != http.StatusNotFound {
        t.Fatalf("directory listing = %d", code)
    }
}

func TestHandlerRejectsExpiredSignature(t *testing.T) {
    s, _ := NewLocalStore(t.TempDir(), "", "secret", time.Hour)
    ctx := context.Background()
    if err := s.Put(ctx, "messages/a.pdf", strings.NewReader("x"), 1, ""); err != nil {
        t.Fatal(err)
    }
    token, err := s.sign("messages/a.pdf", time.Now().Add(-time.Minute))
    if err != nil {
        t.Fatal(err)
    }
    if code := fetch(t, s.Handler(), "/messages/a.pdf?token="+url.QueryEscape(token)); code != http.StatusForbidden {
        t.Fatalf("expired link = %d", code)
    }
}
