package router

import (
    "github.com/labstack/echo/v4"

    "github.com/iliyamo/kmerpro-marketplace/internal/middleware"
    "github.com/iliyamo/kmerpro-marketplace/internal/model"
)

// registerProfessional mounts service ownership and the professional
// area.  Ownership of a given service is still checked per record.
func registerProfessional(g *echo.Group, h Handlers) {
    pro := g.Group("", middleware.RequireRole(model.RoleProfessionnel, model.RoleAdmin))

    // ---- Services ----
    s := h.Catalog
    pro.POST("/services", s.Create)
    pro.PUT("/services/:id", s.Update)
    pro.DELETE("/services/:id", s.Delete)
    pro.PUT("/services/:id/toggle-availability", s.ToggleAvailability)
    pro.PATCH("/services/:id/toggle-availability", s.ToggleAvailability)
    pro.PUT("/services/:id/zones", s.Zones)
    pro.POST("/services/:id/zones", s.Zones)
    pro.DELETE("/services/:id/zones", s.Zones)
    pro.PUT("/services/:id/competences", s.Skills)
    pro.POST("/services/:id/competences", s.Skills)
    pro.DELETE("/services/:id/competences", s.Skills)
    pro.POST("/services/:id/galerie", s.UploadPhotos)
    pro.PUT("/services/:id/galerie/reorder", s.ReorderPhotos)
    pro.DELETE("/services/:id/galerie/:photo", s.DeletePhoto)

    // ---- Professionnel ----
    p := h.Professionals
    pro.GET("/professionnel/documents", p.Documents)
    pro.POST("/professionnel/documents", p.SubmitDocument)
    pro.GET("/professionnel/competences", p.Competences)
    pro.PUT("/professionnel/competences", p.SetCompetences)
    pro.GET("/professionnel/badges", p.Badges)
    pro.GET("/professionnel/statistiques", p.Statistics)
    pro.GET("/statistics/professionnel", p.Statistics)
}
