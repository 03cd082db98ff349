package router

import (
    "github.com/labstack/echo/v4"
)

// registerAccount mounts the routes every signed-in user shares.  Who may
// act on which record is decided by the policy gate inside the services.
func registerAccount(g *echo.Group, h Handlers) {
    g.POST("/logout", h.Auth.Logout)
    g.GET("/me", h.Profile.Me)
    g.GET("/user", h.Profile.Me)

    // ---- Profile ----
    g.GET("/profile", h.Profile.Me)
    g.PUT("/profile", h.Profile.Update)
    g.POST("/profile", h.Profile.Update)
    g.PUT("/profile/competences", h.Profile.ReplaceCompetences)
    g.POST("/profile/competences", h.Profile.ReplaceCompetences)
    g.POST("/profile/diplomes", h.Profile.AddDiploma)
    g.POST("/profile/documents", h.Profile.AddDiploma)

    // ---- Demandes ----
    d := h.Demandes
    g.GET("/demandes", d.Index)
    g.POST("/demandes", d.Store)
    g.GET("/demandes/:id", d.Show)
    g.PUT("/demandes/:id", d.Update)
    g.POST("/demandes/:id/annuler", d.Cancel)
    g.PUT("/demandes/:id/annuler", d.Cancel)
    g.POST("/demandes/:id/evaluation", d.Rate)
    g.POST("/demandes/:id/paiement", d.InitiatePayment)
    g.GET("/my-demandes", d.Mine)
    g.GET("/demandes-recues", d.Received)
    g.GET("/demandes-reçues", d.Received)

    // ---- Paiements ----
    p := h.Payments
    g.GET("/paiements", p.Index)
    g.POST("/paiements", p.Store)
    g.GET("/paiements/:id", p.Show)
    g.PUT("/paiements/:id/confirmer", p.Confirm)
    g.POST("/paiements/:id/confirmer", p.Confirm)
    g.PUT("/paiements/:id/annuler", p.Cancel)
    g.DELETE("/paiements/:id", p.Delete)

    // ---- Messages ----
    m := h.Messages
    g.GET("/messages", m.Index)
    g.POST("/messages", m.Store)
    g.GET("/messages/unread-count", m.UnreadCount)
    g.PUT("/messages/mark-all-read", m.MarkAllRead)
    g.GET("/messages/:id", m.Show)
    g.PUT("/messages/:id/lu", m.MarkRead)
    g.PUT("/messages/:id/read", m.MarkRead)
    g.DELETE("/messages/:id", m.Delete)
    g.GET("/conversations", m.Conversations)
    g.GET("/conversations/:user", m.Conversation)

    // ---- Notifications ----
    n := h.Notifications
    g.GET("/notifications", n.Index)
    g.POST("/notifications", n.Store)
    g.DELETE("/notifications", n.DeleteAll)
    g.GET("/notifications/non-lues", n.Unread)
    g.GET("/notifications/non-lues/count", n.UnreadCount)
    g.GET("/notifications/statistiques", n.Stats)
    for _, alias := range []string{"/lire-toutes", "/marquer-tout-lu", "/read-all"} {
        g.PUT("/notifications"+alias, n.MarkAllRead)
    }
    g.GET("/notifications/:id", n.Show)
    for _, alias := range []string{"/lire", "/lu", "/read"} {
        g.PUT("/notifications/:id"+alias, n.MarkRead)
    }
    g.DELETE("/notifications/:id", n.Delete)

    // ---- Favoris ----
    g.GET("/favoris", h.Favoris.Index)
    g.POST("/favoris/:service", h.Favoris.Store)
    g.DELETE("/favoris/:service", h.Favoris.Delete)
}
