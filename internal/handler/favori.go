package handler

import (
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/kmerpro-marketplace/internal/service"
)

type FavoriHandler struct {
    Favoris *service.FavoriService
}

func NewFavoriHandler(f *service.FavoriService) *FavoriHandler {
    return &FavoriHandler{Favoris: f}
}

func (h *FavoriHandler) Index(c echo.Context) error {
    out, err := h.Favoris.List(c.Request().Context(), caller(c), page(c, defaultPerPage))
    if err != nil {
        return respondError(c, err)
    }
    return c.JSON(http.StatusOK, out)
}

func (h *FavoriHandler) Store(c echo.Context) error {
    id, ok := idParam(c, "service")
    if !ok {
        return badRequest(c, "invalid service id")
    }
    f, err := h.Favoris.Add(c.Request().Context(), caller(c), id)
    if err != nil {
        return respondError(c, err)
    }
    return c.JSON(http.StatusCreated, echo.Map{"message": "Service ajouté aux favoris", "favori": f})
}

func (h *FavoriHandler) Delete(c echo.Context) error {
    id, ok := idParam(c, "service")
    if !ok {
        return badRequest(c, "invalid service id")
    }
    if err := h.Favoris.Remove(c.Request().Context(), caller(c), id); err != nil {
        return respondError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"message": "Service retiré des favoris"})
}
