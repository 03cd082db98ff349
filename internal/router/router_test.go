package router

import (
    "bytes"
    "context"
    "encoding/json"
    "fmt"
    "mime/multipart"
    "net/http"
    "net/http/httptest"
    "strings"
    "testing"
    "time"

    "github.com/labstack/echo/v4"
    "gorm.io/driver/sqlite"
    "gorm.io/gorm"
    gormlogger "gorm.io/gorm/logger"

    "github.com/iliyamo/kmerpro-marketplace/internal/config"
    "github.com/iliyamo/kmerpro-marketplace/internal/database"
    "github.com/iliyamo/kmerpro-marketplace/internal/handler"
    "github.com/iliyamo/kmerpro-marketplace/internal/middleware"
    "github.com/iliyamo/kmerpro-marketplace/internal/model"
    "github.com/iliyamo/kmerpro-marketplace/internal/policy"
    "github.com/iliyamo/kmerpro-marketplace/internal/repository"
    "github.com/iliyamo/kmerpro-marketplace/internal/service"
    "github.com/iliyamo/kmerpro-marketplace/internal/session"
    "github.com/iliyamo/kmerpro-marketplace/internal/storage"
)

type app struct {
    e  *echo.Echo
    db *gorm.DB
}

// newApp wires the full API over an in-memory database, local storage
// and in-memory revocation, without Redis or a broker.
func newApp(t *testing.T) *app {
    t.Helper()
    name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
    db, err := gorm.Open(sqlite.Open("file:"+name+"?mode=memory&cache=shared"), &gorm.Config{
        Logger: gormlogger.Discard,
    })
    if err != nil {
        t.Fatalf("open sqlite: %v", err)
    }
    sqlDB, err := db.DB()
    if err != nil {
        t.Fatal(err)
    }
    sqlDB.SetMaxOpenConns(1)
    t.Cleanup(func() { sqlDB.Close() })
    if err := database.Migrate(context.Background(), db); err != nil {
        t.Fatalf("migrate: %v", err)
    }
    store, err := storage.NewLocalStore(t.TempDir(), "/storage", "test-secret", time.Hour)
    if err != nil {
        t.Fatal(err)
    }

    cfg := config.Config{JWTSecret: "test-secret", AccessTTLMin: 60, RefreshTTLDays: 30, BcryptCost: 4}
    gate := policy.NewGate()
    notifier := service.NewNotifier(repository.NewNotificationRepo(db))
    revoker := session.NewMemoryRevoker()
    stats := service.NewStatsService(db, gate)
    payments := service.NewPaymentService(db, gate, notifier, nil)

    e := echo.New()
    Register(e, Handlers{
        Health:        handler.NewHealthHandler(db),
        Auth:          handler.NewAuthHandler(cfg, repository.NewUserRepo(db), repository.NewTokenRepo(db), revoker),
        Reference:     handler.NewReferenceHandler(repository.NewReferenceRepo(db)),
        Profile:       handler.NewProfileHandler(service.NewProfileService(db, store)),
        Catalog:       handler.NewCatalogHandler(service.NewCatalogService(db, store, gate)),
        Demandes:      handler.NewDemandeHandler(service.NewDemandeService(db, gate, notifier, nil), payments),
        Payments:      handler.NewPaymentHandler(payments),
        Messages:      handler.NewMessageHandler(service.NewMessageService(db, store, gate, notifier, nil)),
        Notifications: handler.NewNotificationHandler(service.NewNotificationService(db, gate)),
        Favoris:       handler.NewFavoriHandler(service.NewFavoriService(db, gate)),
        Professionals: handler.NewProfessionalHandler(service.NewProfessionalService(db, store, gate, notifier, nil), stats),
        Stats:         handler.NewStatsHandler(stats),
    }, Middlewares{Auth: middleware.JWTAuth(cfg.JWTSecret, revoker)})
    return &app{e: e, db: db}
}

func (a *app) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
    t.Helper()
    var buf bytes.Buffer
    if body != nil {
        if err := json.NewEncoder(&buf).Encode(body); err != nil {
            t.Fatal(err)
        }
    }
    req := httptest.NewRequest(method, path, &buf)
    req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
    if token != "" {
        req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
    }
    rec := httptest.NewRecorder()
    a.e.ServeHTTP(rec, req)
    return rec
}

type authSession struct {
    Token string `json:"token"`
    User  struct {
        ID uint64 `json:"id"`
    } `json:"user"`
}

func (a *app) register(t *testing.T, email, typ string) authSession {
    t.Helper()
    rec := a.do(t, http.MethodPost, "/api/register", "", map[string]string{
        "nom": "Test", "prenom": typ, "email": email,
        "password": "secret123", "password_confirmation": "secret123", "type": typ,
    })
    if rec.Code != http.StatusCreated {
        t.Fatalf("register %s: status %d body %s", email, rec.Code, rec.Body.String())
    }
    var s authSession
    if err := json.Unmarshal(rec.Body.Bytes(), &s); err != nil {
        t.Fatal(err)
    }
    if s.Token == "" || s.User.ID == 0 {
        t.Fatalf("register %s: empty session %s", email, rec.Body.String())
    }
    return s
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, into any) {
    t.Helper()
    if err := json.Unmarshal(rec.Body.Bytes(), into); err != nil {
        t.Fatalf("decode %q: %v", rec.Body.String(), err)
    }
}

func TestHealth(t *testing.T) {
    a := newApp(t)
    if rec := a.do(t, http.MethodGet, "/healthz", "", nil); rec.Code != http.StatusOK {
        t.Fatalf("healthz = %d", rec.Code)
    }
}

func TestAuthFlow(t *testing.T) {
    a := newApp(t)
    a.register(t, "awa@kmer.test", "client")

    rec := a.do(t, http.MethodPost, "/api/register", "", map[string]string{
        "nom": "Again", "email": "AWA@kmer.test", "password": "secret123",
        "password_confirmation": "secret123", "type": "client",
    })
    if rec.Code != http.StatusUnprocessableEntity {
        t.Fatalf("duplicate email = %d", rec.Code)
    }
    var verr struct {
        Error  string            `json:"error"`
        Errors map[string]string `json:"errors"`
    }
    decode(t, rec, &verr)
    if verr.Errors["email"] != "taken" {
        t.Fatalf("errors = %v", verr.Errors)
    }

    rec = a.do(t, http.MethodPost, "/api/login", "", map[string]string{"email": "awa@kmer.test", "password": "wrong-pass"})
    if rec.Code != http.StatusUnauthorized {
        t.Fatalf("bad password = %d", rec.Code)
    }
    rec = a.do(t, http.MethodPost, "/api/login", "", map[string]string{"email": "awa@kmer.test", "password": "secret123"})
    if rec.Code != http.StatusOK {
        t.Fatalf("login = %d %s", rec.Code, rec.Body.String())
    }
    var s authSession
    decode(t, rec, &s)

    if rec := a.do(t, http.MethodGet, "/api/me", s.Token, nil); rec.Code != http.StatusOK {
        t.Fatalf("me = %d", rec.Code)
    }
    if rec := a.do(t, http.MethodPost, "/api/logout", s.Token, nil); rec.Code != http.StatusOK {
        t.Fatalf("logout = %d", rec.Code)
    }
    if rec := a.do(t, http.MethodGet, "/api/me", s.Token, nil); rec.Code != http.StatusUnauthorized {
        t.Fatalf("me after logout = %d", rec.Code)
    }
}

func TestRegisterValidation(t *testing.T) {
    a := newApp(t)
    rec := a.do(t, http.MethodPost, "/api/register", "", map[string]string{
        "nom": "Test", "email": "not-an-email", "password": "short",
        "password_confirmation": "other", "type": "admin",
    })
    if rec.Code != http.StatusUnprocessableEntity {
        t.Fatalf("status = %d", rec.Code)
    }
    var verr struct {
        Error  string            `json:"error"`
        Errors map[string]string `json:"errors"`
    }
    decode(t, rec, &verr)
    if verr.Error != "validation failed" {
        t.Fatalf("error = %q", verr.Error)
    }
    for _, f := range []string{"email", "password", "type"} {
        if verr.Errors[f] == "" {
            t.Errorf("missing violation for %s in %v", f, verr.Errors)
        }
    }
}

func TestDemandeLifecycleOverHTTP(t *testing.T) {
    a := newApp(t)
    cat := model.Category{Nom: "Électricité"}
    if err := a.db.Create(&cat).Error; err != nil {
        t.Fatal(err)
    }
    pro := a.register(t, "pro@kmer.test", "professionnel")
    client := a.register(t, "client@kmer.test", "client")

    listing := map[string]any{
        "titre": "Installation prises", "description": "Pose et raccordement",
        "categorie_id": cat.ID, "prix": 12000, "unite_temps": "heure",
    }
    if rec := a.do(t, http.MethodPost, "/api/services", client.Token, listing); rec.Code != http.StatusForbidden {
        t.Fatalf("client creating a service = %d", rec.Code)
    }
    rec := a.do(t, http.MethodPost, "/api/services", pro.Token, listing)
    if rec.Code != http.StatusCreated {
        t.Fatalf("create service = %d %s", rec.Code, rec.Body.String())
    }
    var created struct {
        Service struct {
            ID uint64 `json:"id"`
        } `json:"service"`
    }
    decode(t, rec, &created)

    if rec := a.do(t, http.MethodGet, fmt.Sprintf("/api/services/%d", created.Service.ID), "", nil); rec.Code != http.StatusOK {
        t.Fatalf("public show = %d", rec.Code)
    }
    if rec := a.do(t, http.MethodGet, "/api/services/999999", "", nil); rec.Code != http.StatusNotFound {
        t.Fatalf("missing service = %d", rec.Code)
    }

    start := time.Now().UTC().Add(48 * time.Hour)
    ask := map[string]any{
        "service_id":           created.Service.ID,
        "description":          "Trois prises au salon",
        "date_debut_souhaitee": start.Format(time.RFC3339),
        "date_fin_souhaitee":   start.Add(4 * time.Hour).Format(time.RFC3339),
        "adresse_intervention": "Bonapriso, Douala",
        "budget_max":           30000,
    }
    if rec := a.do(t, http.MethodPost, "/api/demandes", pro.Token, ask); rec.Code != http.StatusForbidden {
        t.Fatalf("professional creating a demande = %d", rec.Code)
    }
    rec = a.do(t, http.MethodPost, "/api/demandes", client.Token, ask)
    if rec.Code != http.StatusCreated {
        t.Fatalf("create demande = %d %s", rec.Code, rec.Body.String())
    }
    var d struct {
        Demande struct {
            ID     uint64 `json:"id"`
            Statut string `json:"statut"`
        } `json:"demande"`
    }
    decode(t, rec, &d)
    if d.Demande.Statut != "en_attente" {
        t.Fatalf("statut = %q", d.Demande.Statut)
    }

    path := fmt.Sprintf("/api/demandes/%d", d.Demande.ID)
    if rec := a.do(t, http.MethodPut, path, client.Token, map[string]string{"statut": "acceptee"}); rec.Code != http.StatusForbidden {
        t.Fatalf("client accepting = %d", rec.Code)
    }
    if rec := a.do(t, http.MethodPut, path, pro.Token, map[string]string{"statut": "acceptee"}); rec.Code != http.StatusOK {
        t.Fatalf("accept = %d %s", rec.Code, rec.Body.String())
    }
    if rec := a.do(t, http.MethodPut, path, pro.Token, map[string]string{"statut": "acceptee"}); rec.Code != http.StatusUnprocessableEntity {
        t.Fatalf("accepting twice = %d", rec.Code)
    }

    rec = a.do(t, http.MethodGet, "/api/notifications/non-lues/count", client.Token, nil)
    var count struct {
        Count int64 `json:"count"`
    }
    decode(t, rec, &count)
    if count.Count != 1 {
        t.Fatalf("client unread = %d", count.Count)
    }
}

func TestRoleGatedGroups(t *testing.T) {
    a := newApp(t)
    client := a.register(t, "c@kmer.test", "client")

    cases := []struct {
        method, path, token string
        want                int
    }{
        {http.MethodGet, "/api/admin/statistiques", client.Token, http.StatusForbidden},
        {http.MethodGet, "/api/professionnel/badges", client.Token, http.StatusForbidden},
        {http.MethodGet, "/api/demandes", "", http.StatusUnauthorized},
        {http.MethodGet, "/api/favoris", client.Token, http.StatusOK},
        {http.MethodGet, "/api/categories", "", http.StatusOK},
    }
    for _, tc := range cases {
        if rec := a.do(t, tc.method, tc.path, tc.token, nil); rec.Code != tc.want {
            t.Errorf("%s %s = %d, want %d", tc.method, tc.path, rec.Code, tc.want)
        }
    }
}

type violations struct {
    Error  string            `json:"error"`
    Errors map[string]string `json:"errors"`
}

func TestDemandeRequiresBudget(t *testing.T) {
    a := newApp(t)
    client := a.register(t, "budget@kmer.test", "client")
    start := time.Now().UTC().Add(48 * time.Hour)
    rec := a.do(t, http.MethodPost, "/api/demandes", client.Token, map[string]any{
        "service_id":           1,
        "description":          "Sans budget",
        "date_debut_souhaitee": start.Format(time.RFC3339),
        "date_fin_souhaitee":   start.Add(time.Hour).Format(time.RFC3339),
        "adresse_intervention": "Akwa, Douala",
    })
    if rec.Code != http.StatusUnprocessableEntity {
        t.Fatalf("status = %d %s", rec.Code, rec.Body.String())
    }
    var v violations
    decode(t, rec, &v)
    if v.Errors["budget_max"] != "required" {
        t.Fatalf("errors = %v", v.Errors)
    }
}

func TestMultipartMessageRejectsBadDemandeID(t *testing.T) {
    a := newApp(t)
    sender := a.register(t, "from@kmer.test", "client")
    to := a.register(t, "to@kmer.test", "professionnel")

    var body bytes.Buffer
    mw := multipart.NewWriter(&body)
    mw.WriteField("destinataire_id", fmt.Sprint(to.User.ID))
    mw.WriteField("contenu", "Bonjour")
    mw.WriteField("demande_id", "douze")
    if err := mw.Close(); err != nil {
        t.Fatal(err)
    }
    req := httptest.NewRequest(http.MethodPost, "/api/messages", &body)
    req.Header.Set(echo.HeaderContentType, mw.FormDataContentType())
    req.Header.Set(echo.HeaderAuthorization, "Bearer "+sender.Token)
    rec := httptest.NewRecorder()
    a.e.ServeHTTP(rec, req)

    if rec.Code != http.StatusUnprocessableEntity {
        t.Fatalf("status = %d %s", rec.Code, rec.Body.String())
    }
    var v violations
    decode(t, rec, &v)
    if v.Errors["demande_id"] != "invalid" {
        t.Fatalf("errors = %v", v.Errors)
    }
    var n int64
    a.db.Model(&model.Message{}).Count(&n)
    if n != 0 {
        t.Fatalf("messages stored = %d", n)
    }
}
