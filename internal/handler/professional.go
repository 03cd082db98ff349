package handler

import (
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/kmerpro-marketplace/internal/service"
)

// ProfessionalHandler serves the /professionnel area and the admin
// document review.
type ProfessionalHandler struct {
    Professionals *service.ProfessionalService
    Stats         *service.StatsService
}

func NewProfessionalHandler(p *service.ProfessionalService, s *service.StatsService) *ProfessionalHandler {
    return &ProfessionalHandler{Professionals: p, Stats: s}
}

// SubmitDocument takes a multipart form (type, numero, document).
func (h *ProfessionalHandler) SubmitDocument(c echo.Context) error {
    if !isMultipart(c) {
        return badRequest(c, "multipart form required")
    }
    file, release, err := formFile(c, "document")
    if err != nil {
        return badRequest(c, "invalid document upload")
    }
    defer release()
    d, err := h.Professionals.SubmitDocument(c.Request().Context(), caller(c), service.DocumentInput{
        Type:   c.FormValue("type"),
        Numero: c.FormValue("numero"),
        File:   file,
    })
    if err != nil {
        return respondError(c, err)
    }
    return c.JSON(http.StatusCreated, echo.Map{"message": "Document soumis pour validation", "document": d})
}

func (h *ProfessionalHandler) Documents(c echo.Context) error {
    docs, err := h.Professionals.Documents(c.Request().Context(), caller(c))
    if err != nil {
        return respondError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"documents": docs})
}

func (h *ProfessionalHandler) Competences(c echo.Context) error {
    out, err := h.Professionals.Competences(c.Request().Context(), caller(c))
    if err != nil {
        return respondError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"competences": out})
}

// SetCompetences expects {"competences": [competence ids...]}.
func (h *ProfessionalHandler) SetCompetences(c echo.Context) error {
    var req struct {
        Competences []uint64 `json:"competences"`
    }
    if err := c.Bind(&req); err != nil {
        return badRequest(c, "invalid body")
    }
    out, err := h.Professionals.SetCompetences(c.Request().Context(), caller(c), req.Competences)
    if err != nil {
        return respondError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"message": "Compétences mises à jour", "competences": out})
}

func (h *ProfessionalHandler) Badges(c echo.Context) error {
    out, err := h.Professionals.Badges(c.Request().Context(), caller(c))
    if err != nil {
        return respondError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"badges": out})
}

func (h *ProfessionalHandler) Statistics(c echo.Context) error {
    out, err := h.Stats.Professional(c.Request().Context(), caller(c))
    if err != nil {
        return respondError(c, err)
    }
    return c.JSON(http.StatusOK, out)
}

// PendingDocuments lists documents awaiting review (admin).
func (h *ProfessionalHandler) PendingDocuments(c echo.Context) error {
    out, err := h.Professionals.PendingDocuments(c.Request().Context(), caller(c), page(c, defaultPerPage))
    if err != nil {
        return respondError(c, err)
    }
    return c.JSON(http.StatusOK, out)
}

// ReviewDocument expects {"statut": "valide"|"rejete", "commentaire": ...}.
func (h *ProfessionalHandler) ReviewDocument(c echo.Context) error {
    id, ok := idParam(c, "id")
    if !ok {
        return badRequest(c, "invalid id")
    }
    var req statusReq
    if err := c.Bind(&req); err != nil {
        return badRequest(c, "invalid body")
    }
    d, err := h.Professionals.ReviewDocument(c.Request().Context(), caller(c), id, req.Statut, req.Commentaire)
    if err != nil {
        return respondError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"message": "Document traité", "document": d})
}
