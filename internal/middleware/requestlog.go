package middleware

import (
    "log/slog"
    "time"

    "github.com/labstack/echo/v4"
)

// RequestLog emits one http_request record per request.  It runs after
// the handler so the status reflects errors turned into responses by
// echo's error handler.
func RequestLog(l *slog.Logger) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            start := time.Now()
            err := next(c)
            if err != nil {
                c.Error(err)
            }
            req, res := c.Request(), c.Response()
            level := slog.LevelInfo
            if res.Status >= 500 {
                level = slog.LevelError
            }
            rid := res.Header().Get(echo.HeaderXRequestID)
            if rid == "" {
                rid = req.Header.Get(echo.HeaderXRequestID)
            }
            l.LogAttrs(req.Context(), level, "http_request",
                slog.String("method", req.Method),
                slog.String("path", req.URL.Path),
                slog.String("route", c.Path()),
                slog.Int("status", res.Status),
                slog.Int64("duration_ms", time.Since(start).Milliseconds()),
                slog.String("request_id", rid),
                slog.String("user_id", userID(c)),
            )
            return nil
        }
    }
}
