package handler

import (
    "net/http"
    "strings"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/kmerpro-marketplace/internal/model"
    "github.com/iliyamo/kmerpro-marketplace/internal/repository"
    "github.com/iliyamo/kmerpro-marketplace/internal/service"
)

// CatalogHandler serves service listings, their zones, skills and
// gallery.
type CatalogHandler struct {
    Catalog *service.CatalogService
}

func NewCatalogHandler(s *service.CatalogService) *CatalogHandler {
    return &CatalogHandler{Catalog: s}
}

type serviceReq struct {
    Titre        *string              `json:"titre"`
    Description  *string              `json:"description"`
    CategoryID   *uint64              `json:"categorie_id"`
    Prix         *float64             `json:"prix"`
    UniteTemps   *string              `json:"unite_temps"`
    DureeEstimee *int                 `json:"duree_estimee"`
    Disponible   *bool                `json:"disponible"`
    Zones        []string             `json:"zones"`
    Competences  []service.SkillInput `json:"competences"`
}

func deref[T any](p *T) T {
    var zero T
    if p == nil {
        return zero
    }
    return *p
}

// ----- public -----

func (h *CatalogHandler) Index(c echo.Context) error {
    out, err := h.Catalog.ListAvailable(c.Request().Context(), page(c, defaultPerPage))
    if err != nil {
        return respondError(c, err)
    }
    return c.JSON(http.StatusOK, out)
}

// Search reads q, categorie_id, zone_id, prix_min, prix_max,
// competences[], disponible, sort_by and sort_direction.
func (h *CatalogHandler) Search(c echo.Context) error {
    q := repository.ServiceSearchQuery{
        Text:          strings.TrimSpace(c.QueryParam("q")),
        CategoryID:    uintQuery(c, "categorie_id"),
        ZoneID:        uintQuery(c, "zone_id"),
        PrixMin:       floatQuery(c, "prix_min"),
        PrixMax:       floatQuery(c, "prix_max"),
        CompetenceIDs: uintList(c, "competences"),
        Disponible:    boolQuery(c, "disponible"),
        SortBy:        c.QueryParam("sort_by"),
        SortDirection: c.QueryParam("sort_direction"),
        Page:          page(c, defaultPerPage),
    }
    out, err := h.Catalog.Search(c.Request().Context(), q)
    if err != nil {
        return respondError(c, err)
    }
    return c.JSON(http.StatusOK, out)
}

func (h *CatalogHandler) Show(c echo.Context) error {
    id, ok := idParam(c, "id")
    if !ok {
        return badRequest(c, "invalid id")
    }
    svc, err := h.Catalog.Get(c.Request().Context(), id)
    if err != nil {
        return respondError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"service": svc})
}

// ByCategory accepts the category id or its name.
func (h *CatalogHandler) ByCategory(c echo.Context) error {
    out, err := h.Catalog.ListByCategory(c.Request().Context(), c.Param("categorie"), page(c, defaultPerPage))
    if err != nil {
        return respondError(c, err)
    }
    return c.JSON(http.StatusOK, out)
}

func (h *CatalogHandler) ByUser(c echo.Context) error {
    id, ok := idParam(c, "id")
    if !ok {
        return badRequest(c, "invalid id")
    }
    out, err := h.Catalog.ListByOwner(c.Request().Context(), id, page(c, defaultPerPage))
    if err != nil {
        return respondError(c, err)
    }
    return c.JSON(http.StatusOK, out)
}

func (h *CatalogHandler) Photos(c echo.Context) error {
    id, ok := idParam(c, "id")
    if !ok {
        return badRequest(c, "invalid id")
    }
    photos, err := h.Catalog.Photos(c.Request().Context(), id)
    if err != nil {
        return respondError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"photos": photos})
}

// ----- owner -----

func (h *CatalogHandler) Create(c echo.Context) error {
    var req serviceReq
    if err := c.Bind(&req); err != nil {
        return badRequest(c, "invalid body")
    }
    svc, err := h.Catalog.Create(c.Request().Context(), caller(c), service.ServiceInput{
        Titre:        deref(req.Titre),
        Description:  deref(req.Description),
        CategoryID:   deref(req.CategoryID),
        Prix:         deref(req.Prix),
        UniteTemps:   deref(req.UniteTemps),
        DureeEstimee: deref(req.DureeEstimee),
        Disponible:   req.Disponible,
        Zones:        req.Zones,
        Skills:       req.Competences,
    })
    if err != nil {
        return respondError(c, err)
    }
    return c.JSON(http.StatusCreated, echo.Map{"message": "Service créé avec succès", "service": svc})
}

func (h *CatalogHandler) Update(c echo.Context) error {
    id, ok := idParam(c, "id")
    if !ok {
        return badRequest(c, "invalid id")
    }
    var req serviceReq
    if err := c.Bind(&req); err != nil {
        return badRequest(c, "invalid body")
    }
    svc, err := h.Catalog.Update(c.Request().Context(), caller(c), id, service.ServiceUpdate{
        Titre:        req.Titre,
        Description:  req.Description,
        CategoryID:   req.CategoryID,
        Prix:         req.Prix,
        UniteTemps:   req.UniteTemps,
        DureeEstimee: req.DureeEstimee,
        Disponible:   req.Disponible,
        Zones:        req.Zones,
        Skills:       req.Competences,
    })
    if err != nil {
        return respondError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"message": "Service mis à jour avec succès", "service": svc})
}

func (h *CatalogHandler) Delete(c echo.Context) error {
    id, ok := idParam(c, "id")
    if !ok {
        return badRequest(c, "invalid id")
    }
    if err := h.Catalog.Delete(c.Request().Context(), caller(c), id); err != nil {
        return respondError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"message": "Service supprimé avec succès"})
}

func (h *CatalogHandler) ToggleAvailability(c echo.Context) error {
    id, ok := idParam(c, "id")
    if !ok {
        return badRequest(c, "invalid id")
    }
    svc, err := h.Catalog.ToggleAvailability(c.Request().Context(), caller(c), id)
    if err != nil {
        return respondError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"message": "Disponibilité mise à jour", "service": svc})
}

// Zones handles PUT (replace), POST (add) and DELETE (remove) on
// /services/:id/zones with a {"zones": [...]} body.
func (h *CatalogHandler) Zones(c echo.Context) error {
    id, ok := idParam(c, "id")
    if !ok {
        return badRequest(c, "invalid id")
    }
    var req struct {
        Zones []string `json:"zones"`
        Zone  string   `json:"zone"`
    }
    if err := c.Bind(&req); err != nil {
        return badRequest(c, "invalid body")
    }
    if req.Zone != "" {
        req.Zones = append(req.Zones, req.Zone)
    }
    op := map[string]string{http.MethodPut: "replace", http.MethodPost: "add", http.MethodDelete: "remove"}[c.Request().Method]
    svc, err := h.Catalog.EditZones(c.Request().Context(), caller(c), id, op, req.Zones)
    if err != nil {
        return respondError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"message": "Zones mises à jour", "service": svc})
}

// Skills handles PUT (replace), POST (add) and DELETE (remove by name) on
// /services/:id/competences.
func (h *CatalogHandler) Skills(c echo.Context) error {
    id, ok := idParam(c, "id")
    if !ok {
        return badRequest(c, "invalid id")
    }
    var req struct {
        Competences []service.SkillInput `json:"competences"`
        Noms        []string             `json:"noms"`
    }
    if err := c.Bind(&req); err != nil {
        return badRequest(c, "invalid body")
    }
    ctx := c.Request().Context()
    var (
        svc model.Service
        err error
    )
    switch c.Request().Method {
    case http.MethodDelete:
        names := req.Noms
        for _, sk := range req.Competences {
            names = append(names, sk.Nom)
        }
        svc, err = h.Catalog.RemoveSkills(ctx, caller(c), id, names)
    default:
        svc, err = h.Catalog.EditSkills(ctx, caller(c), id, c.Request().Method == http.MethodPut, req.Competences)
    }
    if err != nil {
        return respondError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"message": "Compétences mises à jour", "service": svc})
}

// UploadPhotos takes multipart "photos" (or "photo") files.
func (h *CatalogHandler) UploadPhotos(c echo.Context) error {
    id, ok := idParam(c, "id")
    if !ok {
        return badRequest(c, "invalid id")
    }
    if !isMultipart(c) {
        return badRequest(c, "multipart form required")
    }
    files, release, err := formFiles(c, "photos")
    if err != nil {
        return badRequest(c, "invalid upload")
    }
    defer release()
    if len(files) == 0 {
        more, releaseOne, err := formFiles(c, "photo")
        if err != nil {
            return badRequest(c, "invalid upload")
        }
        defer releaseOne()
        files = more
    }
    photos, err := h.Catalog.AddPhotos(c.Request().Context(), caller(c), id, files)
    if err != nil {
        return respondError(c, err)
    }
    return c.JSON(http.StatusCreated, echo.Map{"message": "Photos ajoutées", "photos": photos})
}

func (h *CatalogHandler) DeletePhoto(c echo.Context) error {
    id, ok := idParam(c, "id")
    photoID, okPhoto := idParam(c, "photo")
    if !ok || !okPhoto {
        return badRequest(c, "invalid id")
    }
    if err := h.Catalog.DeletePhoto(c.Request().Context(), caller(c), id, photoID); err != nil {
        return respondError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"message": "Photo supprimée"})
}

// ReorderPhotos expects {"ordre": [photo ids...]} listing every photo once.
func (h *CatalogHandler) ReorderPhotos(c echo.Context) error {
    id, ok := idParam(c, "id")
    if !ok {
        return badRequest(c, "invalid id")
    }
    var req struct {
        Ordre []uint64 `json:"ordre"`
    }
    if err := c.Bind(&req); err != nil {
        return badRequest(c, "invalid body")
    }
    photos, err := h.Catalog.ReorderPhotos(c.Request().Context(), caller(c), id, req.Ordre)
    if err != nil {
        return respondError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"message": "Ordre mis à jour", "photos": photos})
}
