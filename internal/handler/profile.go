package handler

import (
    "net/http"
    "strconv"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/kmerpro-marketplace/internal/service"
)

// ProfileHandler exposes the caller's own profile.
type ProfileHandler struct {
    Profiles *service.ProfileService
}

func NewProfileHandler(p *service.ProfileService) *ProfileHandler {
    return &ProfileHandler{Profiles: p}
}

type profileReq struct {
    Nom       *string `json:"nom"`
    Prenom    *string `json:"prenom"`
    Telephone *string `json:"telephone"`
    Adresse   *string `json:"adresse"`
    Ville     *string `json:"ville"`
    Bio       *string `json:"bio"`
}

// Me returns the caller with competences and diplomas.
func (h *ProfileHandler) Me(c echo.Context) error {
    u, err := h.Profiles.Me(c.Request().Context(), caller(c))
    if err != nil {
        return respondError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"user": u})
}

// Update accepts JSON, or a multipart form when a new photo is sent.
func (h *ProfileHandler) Update(c echo.Context) error {
    var req profileReq
    if isMultipart(c) {
        req = profileReq{
            Nom:       formPtr(c, "nom"),
            Prenom:    formPtr(c, "prenom"),
            Telephone: formPtr(c, "telephone"),
            Adresse:   formPtr(c, "adresse"),
            Ville:     formPtr(c, "ville"),
            Bio:       formPtr(c, "bio"),
        }
    } else if err := c.Bind(&req); err != nil {
        return badRequest(c, "invalid body")
    }
    in := service.ProfileUpdate{
        Nom:       req.Nom,
        Prenom:    req.Prenom,
        Telephone: req.Telephone,
        Adresse:   req.Adresse,
        Ville:     req.Ville,
        Bio:       req.Bio,
    }
    if isMultipart(c) {
        photo, release, err := formFile(c, "photo")
        if err != nil {
            return badRequest(c, "invalid photo upload")
        }
        defer release()
        in.Photo = photo
    }
    u, err := h.Profiles.Update(c.Request().Context(), caller(c), in)
    if err != nil {
        return respondError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"message": "Profil mis à jour", "user": u})
}

// ReplaceCompetences swaps the caller's typed skills list.
func (h *ProfileHandler) ReplaceCompetences(c echo.Context) error {
    var req struct {
        Competences []service.SkillInput `json:"competences"`
    }
    if err := c.Bind(&req); err != nil {
        return badRequest(c, "invalid body")
    }
    u, err := h.Profiles.ReplaceCompetences(c.Request().Context(), caller(c), req.Competences)
    if err != nil {
        return respondError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"message": "Compétences mises à jour", "user": u})
}

// AddDiploma takes a multipart form (titre, institution, annee, document).
func (h *ProfileHandler) AddDiploma(c echo.Context) error {
    in := service.DiplomaInput{
        Titre:       c.FormValue("titre"),
        Institution: c.FormValue("institution"),
    }
    if raw := c.FormValue("annee"); raw != "" {
        annee, err := strconv.Atoi(raw)
        if err != nil {
            return respondError(c, &service.ValidationError{Fields: map[string]string{"annee": "invalid"}})
        }
        in.Annee = annee
    }
    if isMultipart(c) {
        doc, release, err := formFile(c, "document")
        if err != nil {
            return badRequest(c, "invalid document upload")
        }
        defer release()
        in.File = doc
    }
    d, err := h.Profiles.AddDiploma(c.Request().Context(), caller(c), in)
    if err != nil {
        return respondError(c, err)
    }
    return c.JSON(http.StatusCreated, echo.Map{"message": "Diplôme ajouté", "diplome": d})
}
