package router

import (
    "github.com/labstack/echo/v4"

    "github.com/iliyamo/kmerpro-marketplace/internal/middleware"
    "github.com/iliyamo/kmerpro-marketplace/internal/model"
)

// registerAdmin mounts the dashboards and document review.
func registerAdmin(g *echo.Group, h Handlers) {
    admin := g.Group("", middleware.RequireRole(model.RoleAdmin))

    st := h.Stats
    admin.GET("/admin/statistiques", st.Global())
    admin.GET("/admin/statistiques/performances", st.Performances())
    admin.GET("/admin/statistiques/financieres", st.Financial())
    admin.GET("/admin/statistiques/utilisateurs", st.Users())
    admin.GET("/admin/statistiques/messages", st.Messages())
    admin.GET("/admin/statistiques/competences", st.Competences())
    admin.GET("/statistics/global", st.Global())
    admin.GET("/statistics/performance", st.Performances())
    admin.GET("/statistics/financial", st.Financial())

    admin.GET("/admin/documents", h.Professionals.PendingDocuments)
    admin.PUT("/admin/documents/:id/valider", h.Professionals.ReviewDocument)
}
