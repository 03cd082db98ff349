package logger

import (
    "bytes"
    "encoding/json"
    "log/slog"
    "testing"
)

func TestParseLevel(t *testing.T) {
    cases := map[string]slog.Level{
        "debug":   slog.LevelDebug,
        "warning": slog.LevelWarn,
        "error":   slog.LevelError,
        "":        slog.LevelInfo,
        "verbose": slog.LevelInfo,
    }
    for in, want := range cases {
        if got := ParseLevel(in); got != want {
            t.Fatalf("ParseLevel(%q) = %v, want %v", in, got, want)
        }
    }
}

func TestInitWriterEmitsJSON(t *testing.T) {
    prev := slog.Default()
    defer slog.SetDefault(prev)

    var buf bytes.Buffer
    InitWriter(&buf, "info")
    slog.Debug("hidden")
    slog.Info("shown", "k", 1)

    var rec map[string]any
    if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &rec); err != nil {
        t.Fatalf("expected exactly one JSON record, got %q: %v", buf.String(), err)
    }
    if rec["msg"] != "shown" {
        t.Fatalf("unexpected record %v", rec)
    }
}
