package handler

import (
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/kmerpro-marketplace/internal/repository"
)

// ReferenceHandler serves the public lookup tables.
type ReferenceHandler struct {
    Refs *repository.ReferenceRepo
}

func NewReferenceHandler(refs *repository.ReferenceRepo) *ReferenceHandler {
    return &ReferenceHandler{Refs: refs}
}

func (h *ReferenceHandler) Categories(c echo.Context) error {
    out, err := h.Refs.Categories(c.Request().Context())
    if err != nil {
        return respondError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"data": out})
}

func (h *ReferenceHandler) Zones(c echo.Context) error {
    out, err := h.Refs.Zones(c.Request().Context())
    if err != nil {
        return respondError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"data": out})
}

func (h *ReferenceHandler) Competences(c echo.Context) error {
    out, err := h.Refs.Competences(c.Request().Context())
    if err != nil {
        return respondError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"data": out})
}
