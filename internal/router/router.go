package router // package router defines how HTTP routes are registered for the API

import (
    "github.com/labstack/echo/v4"

    "github.com/iliyamo/kmerpro-marketplace/internal/handler"
)

// Handlers bundles every handler the API exposes.
type Handlers struct {
    Health        *handler.HealthHandler
    Auth          *handler.AuthHandler
    Reference     *handler.ReferenceHandler
    Profile       *handler.ProfileHandler
    Catalog       *handler.CatalogHandler
    Demandes      *handler.DemandeHandler
    Payments      *handler.PaymentHandler
    Messages      *handler.MessageHandler
    Notifications *handler.NotificationHandler
    Favoris       *handler.FavoriHandler
    Professionals *handler.ProfessionalHandler
    Stats         *handler.StatsHandler
}

// Middlewares are the cross-cutting layers the route groups are built
// with.  Cache and RateLimit may be pass-through when Redis is absent.
type Middlewares struct {
    Auth      echo.MiddlewareFunc
    Cache     echo.MiddlewareFunc
    RateLimit echo.MiddlewareFunc
}

// Register mounts the whole API under /api.  The health check stays at
// the root so load balancers need no prefix.
func Register(e *echo.Echo, h Handlers, mw Middlewares) {
    mw.Cache = orPass(mw.Cache)
    mw.RateLimit = orPass(mw.RateLimit)
    e.GET("/healthz", h.Health.Health)

    api := e.Group("/api", mw.RateLimit)
    registerPublic(api, h, mw)

    auth := api.Group("", mw.Auth)
    registerAccount(auth, h)
    registerProfessional(auth, h)
    registerAdmin(auth, h)
}

// registerPublic mounts the routes reachable without a token.  Catalog
// reads go through the response cache; its key ignores the caller, so
// only caller-independent routes may use it.
func registerPublic(api *echo.Group, h Handlers, mw Middlewares) {
    api.POST("/register", h.Auth.Register)
    api.POST("/login", h.Auth.Login)
    api.POST("/refresh", h.Auth.Refresh)

    cached := api.Group("", mw.Cache)
    cached.GET("/categories", h.Reference.Categories)
    cached.GET("/zones", h.Reference.Zones)
    cached.GET("/competences", h.Reference.Competences)

    cached.GET("/services", h.Catalog.Index)
    cached.GET("/services/search", h.Catalog.Search)
    cached.GET("/services/category/:categorie", h.Catalog.ByCategory)
    cached.GET("/services/:id", h.Catalog.Show)
    cached.GET("/services/:id/galerie", h.Catalog.Photos)
    cached.GET("/users/:id/services", h.Catalog.ByUser)
}

func orPass(m echo.MiddlewareFunc) echo.MiddlewareFunc {
    if m != nil {
        return m
    }
    return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
}
