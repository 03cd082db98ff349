package handler

import (
    "context"
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/kmerpro-marketplace/internal/policy"
    "github.com/iliyamo/kmerpro-marketplace/internal/service"
)

// StatsHandler serves the admin dashboards.
type StatsHandler struct {
    Stats *service.StatsService
}

func NewStatsHandler(s *service.StatsService) *StatsHandler {
    return &StatsHandler{Stats: s}
}

// rollup adapts one StatsService method to a handler.
func rollup[T any](fn func(context.Context, policy.Caller) (T, error)) echo.HandlerFunc {
    return func(c echo.Context) error {
        out, err := fn(c.Request().Context(), caller(c))
        if err != nil {
            return respondError(c, err)
        }
        return c.JSON(http.StatusOK, out)
    }
}

func (h *StatsHandler) Global() echo.HandlerFunc       { return rollup(h.Stats.Global) }
func (h *StatsHandler) Performances() echo.HandlerFunc { return rollup(h.Stats.Performances) }
func (h *StatsHandler) Financial() echo.HandlerFunc    { return rollup(h.Stats.Financial) }
func (h *StatsHandler) Users() echo.HandlerFunc        { return rollup(h.Stats.Users) }
func (h *StatsHandler) Messages() echo.HandlerFunc     { return rollup(h.Stats.Messages) }
func (h *StatsHandler) Competences() echo.HandlerFunc  { return rollup(h.Stats.Competences) }
