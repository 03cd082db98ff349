package handler

import (
    "context"
    "net/http"
    "time"

    "github.com/labstack/echo/v4"
    "gorm.io/gorm"
)

// HealthHandler reports liveness and database reachability.
type HealthHandler struct {
    DB *gorm.DB
}

func NewHealthHandler(db *gorm.DB) *HealthHandler { return &HealthHandler{DB: db} }

// Health answers 200 "ok", or 503 when the database does not answer a
// ping within two seconds.
func (h *HealthHandler) Health(c echo.Context) error {
    ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
    defer cancel()
    sqlDB, err := h.DB.DB()
    if err == nil {
        err = sqlDB.PingContext(ctx)
    }
    if err != nil {
        return c.JSON(http.StatusServiceUnavailable, echo.Map{"status": "degraded", "database": "unreachable"})
    }
    return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
}
