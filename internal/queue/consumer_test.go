package queue

import (
    "encoding/json"
    "os"
    "path/filepath"
    "strings"
    "testing"
)

func TestAppendEventWritesOneLine(t *testing.T) {
    dir := t.TempDir()
    ev := NewEvent("paiement.confirme", "paiement", 12, 3, "confirme")
    body, _ := json.Marshal(ev)

    if err := AppendEvent(dir, body); err != nil {
        t.Fatalf("append: %v", err)
    }
    if err := AppendEvent(dir, body); err != nil {
        t.Fatalf("append again: %v", err)
    }
    raw, err := os.ReadFile(filepath.Join(dir, "events.log"))
    if err != nil {
        t.Fatalf("read log: %v", err)
    }
    lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
    if len(lines) != 2 {
        t.Fatalf("expected 2 lines, got %d: %q", len(lines), raw)
    }
    if !strings.Contains(lines[0], "paiement.confirme | paiement_id=12 | actor_id=3 | statut=confirme") {
        t.Fatalf("unexpected line %q", lines[0])
    }
}

func TestAppendEventRejectsGarbage(t *testing.T) {
    dir := t.TempDir()
    if err := AppendEvent(dir, []byte("not json")); err == nil {
        t.Fatalf("expected unmarshal error")
    }
    if err := AppendEvent(dir, []byte(`{}`)); err == nil {
        t.Fatalf("expected error for event without kind")
    }
}

func TestPublisherWithoutURLFails(t *testing.T) {
    p := NewPublisher("")
    if err := p.Publish(t.Context(), NewEvent("x", "y", 1, 1, "")); err == nil {
        t.Fatalf("expected error without broker url")
    }
    _ = p.Close()
}
