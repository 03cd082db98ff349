// Package logger configures the process-wide slog logger and adapts it
// for gorm.
package logger

import (
    "fmt"
    "io"
    "log/slog"
    "os"
    "time"

    gormlogger "gorm.io/gorm/logger"
)

// ParseLevel maps debug, info, warn and error to slog levels.  Unknown
// input falls back to info.
func ParseLevel(level string) slog.Level {
    switch level {
    case "debug":
        return slog.LevelDebug
    case "warn", "warning":
        return slog.LevelWarn
    case "error":
        return slog.LevelError
    default:
        return slog.LevelInfo
    }
}

// Init configures the global slog logger with JSON output on stdout.
func Init(level string) *slog.Logger {
    return InitWriter(os.Stdout, level)
}

// InitWriter is Init with an explicit destination.
func InitWriter(w io.Writer, level string) *slog.Logger {
    handler := slog.NewJSONHandler(w, &slog.HandlerOptions{
        Level:     ParseLevel(level),
        AddSource: true,
    })
    l := slog.New(handler)
    slog.SetDefault(l)
    return l
}

// gormWriter forwards gorm's printf-style output to slog.
type gormWriter struct{ l *slog.Logger }

func (w gormWriter) Printf(format string, args ...any) {
    w.l.Info(fmt.Sprintf(format, args...), "component", "gorm")
}

// Gorm returns a gorm logger writing through l.  Queries slower than one
// second are reported as warnings; missing records are not errors.
func Gorm(l *slog.Logger, level string) gormlogger.Interface {
    lvl := gormlogger.Warn
    switch ParseLevel(level) {
    case slog.LevelDebug:
        lvl = gormlogger.Info
    case slog.LevelError:
        lvl = gormlogger.Error
    }
    return gormlogger.New(gormWriter{l: l}, gormlogger.Config{
        SlowThreshold:             time.Second,
        LogLevel:                  lvl,
        IgnoreRecordNotFoundError: true,
        Colorful:                  false,
    })
}
