package main // Entry point package

import (
    "context"
    "errors"
    "log/slog"
    "net/http"
    "net/url"
    "os"
    "os/signal"
    "strings"
    "syscall"
    "time"

    "github.com/labstack/echo/v4"
    echomw "github.com/labstack/echo/v4/middleware"
    "golang.org/x/sync/errgroup"
    "gorm.io/gorm"

    "github.com/iliyamo/kmerpro-marketplace/internal/config"
    "github.com/iliyamo/kmerpro-marketplace/internal/database"
    "github.com/iliyamo/kmerpro-marketplace/internal/handler"
    "github.com/iliyamo/kmerpro-marketplace/internal/logger"
    "github.com/iliyamo/kmerpro-marketplace/internal/middleware"
    "github.com/iliyamo/kmerpro-marketplace/internal/policy"
    "github.com/iliyamo/kmerpro-marketplace/internal/queue"
    "github.com/iliyamo/kmerpro-marketplace/internal/repository"
    "github.com/iliyamo/kmerpro-marketplace/internal/router"
    "github.com/iliyamo/kmerpro-marketplace/internal/service"
    "github.com/iliyamo/kmerpro-marketplace/internal/session"
    "github.com/iliyamo/kmerpro-marketplace/internal/storage"
)

func main() {
    cfg := config.Load()
    log := logger.Init(cfg.LogLevel)

    if err := run(cfg, log); err != nil {
        log.Error("server stopped", "error", err)
        os.Exit(1)
    }
}

func run(cfg config.Config, log *slog.Logger) error {
    ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
    defer stop()

    db, err := database.Open(cfg, log)
    if err != nil {
        return err
    }
    if err := prepare(ctx, cfg, db, log); err != nil {
        return err
    }

    rdb := config.NewRedisClient()
    if rdb != nil {
        defer rdb.Close()
    }

    store, files, err := newStore(cfg.Storage, cfg.JWTSecret)
    if err != nil {
        return err
    }

    var events service.EventPublisher
    if cfg.RabbitURL != "" {
        pub := queue.NewPublisher(cfg.RabbitURL)
        defer pub.Close()
        events = pub
    } else {
        log.Info("RABBITMQ_URL not set; lifecycle events disabled")
    }

    gate := policy.NewGate()
    notifier := service.NewNotifier(repository.NewNotificationRepo(db))
    revoker := session.New(rdb)
    stats := service.NewStatsService(db, gate)
    pros := service.NewProfessionalService(db, store, gate, notifier, events)
    payments := service.NewPaymentService(db, gate, notifier, events)

    h := router.Handlers{
        Health:        handler.NewHealthHandler(db),
        Auth:          handler.NewAuthHandler(cfg, repository.NewUserRepo(db), repository.NewTokenRepo(db), revoker),
        Reference:     handler.NewReferenceHandler(repository.NewReferenceRepo(db)),
        Profile:       handler.NewProfileHandler(service.NewProfileService(db, store)),
        Catalog:       handler.NewCatalogHandler(service.NewCatalogService(db, store, gate)),
        Demandes:      handler.NewDemandeHandler(service.NewDemandeService(db, gate, notifier, events), payments),
        Payments:      handler.NewPaymentHandler(payments),
        Messages:      handler.NewMessageHandler(service.NewMessageService(db, store, gate, notifier, events)),
        Notifications: handler.NewNotificationHandler(service.NewNotificationService(db, gate)),
        Favoris:       handler.NewFavoriHandler(service.NewFavoriService(db, gate)),
        Professionals: handler.NewProfessionalHandler(pros, stats),
        Stats:         handler.NewStatsHandler(stats),
    }

    e := echo.New()
    e.HideBanner = true
    e.Use(echomw.Recover())
    e.Use(echomw.RequestID())
    e.Use(echomw.BodyLimit(cfg.BodyLimit))
    e.Use(echomw.CORSWithConfig(echomw.CORSConfig{AllowOrigins: cfg.CORSOrigins}))
    e.Use(middleware.RequestLog(log))
    if files != nil {
        prefix := mountPath(cfg.Storage.PublicURL)
        e.GET(prefix+"/*", echo.WrapHandler(http.StripPrefix(prefix, files)))
    }

    router.Register(e, h, router.Middlewares{
        Auth:      middleware.JWTAuth(cfg.JWTSecret, revoker),
        Cache:     middleware.NewRedisCache(config.LoadCacheConfig(), rdb),
        RateLimit: middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb),
    })

    g, gctx := errgroup.WithContext(ctx)
    g.Go(func() error {
        addr := ":" + cfg.Port
        log.Info("listening", "addr", addr, "env", cfg.Env)
        if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
            return err
        }
        return nil
    })
    g.Go(func() error {
        <-gctx.Done()
        shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
        defer cancel()
        return e.Shutdown(shutdownCtx)
    })
    if cfg.RabbitURL != "" {
        g.Go(func() error {
            err := queue.StartEventConsumer(gctx, cfg.RabbitURL, cfg.EventLogDir)
            if errors.Is(err, context.Canceled) {
                return nil
            }
            return err
        })
    }
    return g.Wait()
}

// prepare migrates the schema, seeds reference data and ensures the
// admin account exists.
func prepare(ctx context.Context, cfg config.Config, db *gorm.DB, log *slog.Logger) error {
    if err := database.Migrate(ctx, db); err != nil {
        return err
    }
    seed, err := database.LoadSeed(cfg.SeedFile)
    if err != nil {
        return err
    }
    if err := database.Seed(ctx, db, seed); err != nil {
        return err
    }
    created, err := database.EnsureAdmin(ctx, db, cfg.AdminEmail, cfg.AdminPassword, cfg.BcryptCost)
    if err != nil {
        return err
    }
    if created {
        log.Info("admin account created", "email", cfg.AdminEmail)
    }
    return nil
}

// newStore returns the configured blob store.  The local store also
// returns the handler serving its files; MinIO serves presigned URLs
// itself.
func newStore(sc config.StorageConfig, secret string) (storage.BlobStore, http.Handler, error) {
    if sc.Driver == "minio" {
        m, err := storage.NewMinioStore(sc.MinioEndpoint, sc.MinioAccessKey, sc.MinioSecretKey, sc.MinioBucket, sc.MinioUseSSL, sc.URLExpiry)
        if err != nil {
            return nil, nil, err
        }
        return m, nil, nil
    }
    local, err := storage.NewLocalStore(sc.Dir, sc.PublicURL, secret, sc.URLExpiry)
    if err != nil {
        return nil, nil, err
    }
    return local, local.Handler(), nil
}

// mountPath is the path part of the public storage URL.
func mountPath(publicURL string) string {
    p := publicURL
    if u, err := url.Parse(publicURL); err == nil {
        p = u.Path
    }
    p = "/" + strings.Trim(p, "/")
    if p == "/" {
        return "/storage"
    }
    return p
}
