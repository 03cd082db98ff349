package service

import (
    "bytes"
    "context"
    "fmt"
    "io"
    "strings"
    "sync"
    "testing"
    "time"

    "gorm.io/driver/sqlite"
    "gorm.io/gorm"
    gormlogger "gorm.io/gorm/logger"

    "github.com/iliyamo/kmerpro-marketplace/internal/database"
    "github.com/iliyamo/kmerpro-marketplace/internal/model"
    "github.com/iliyamo/kmerpro-marketplace/internal/policy"
    "github.com/iliyamo/kmerpro-marketplace/internal/queue"
    "github.com/iliyamo/kmerpro-marketplace/internal/repository"
    "github.com/iliyamo/kmerpro-marketplace/internal/storage"
)

// world is a migrated in-memory database with one account per role, a
// second professional and one available service owned by pro.
type world struct {
    db       *gorm.DB
    gate     *policy.Gate
    notifier *Notifier
    events   *recordedEvents
    store    *memStore

    client, pro, otherPro, admin policy.Caller
    category                     model.Category
    service                      model.Service
}

func newWorld(t *testing.T) *world {
    t.Helper()
    name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
    db, err := gorm.Open(sqlite.Open("file:"+name+"?mode=memory&cache=shared"), &gorm.Config{
        Logger:  gormlogger.Discard,
        NowFunc: func() time.Time { return time.Now().UTC() },
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

    w := &world{
        db:       db,
        gate:     policy.NewGate(),
        notifier: NewNotifier(repository.NewNotificationRepo(db)),
        events:   &recordedEvents{},
        store:    newMemStore(),
    }
    w.client = w.user(t, "client@kmer.test", model.RoleClient)
    w.pro = w.user(t, "pro@kmer.test", model.RoleProfessionnel)
    w.otherPro = w.user(t, "pro2@kmer.test", model.RoleProfessionnel)
    w.admin = w.user(t, "admin@kmer.test", model.RoleAdmin)

    w.category = model.Category{Nom: "Plomberie"}
    if err := db.Create(&w.category).Error; err != nil {
        t.Fatal(err)
    }
    w.service = model.Service{
        ProfessionnelID: w.pro.ID,
        CategoryID:      w.category.ID,
        Titre:           "Réparation fuite",
        Description:     "Intervention rapide",
        Prix:            15000,
        UniteTemps:      "jour",
        Disponible:      true,
    }
    if err := db.Omit("Zones", "Skills", "Photos").Create(&w.service).Error; err != nil {
        t.Fatal(err)
    }
    return w
}

func (w *world) user(t *testing.T, email string, role model.Role) policy.Caller {
    t.Helper()
    u := model.User{Nom: "Test", Prenom: string(role), Email: email, PasswordHash: "x", Role: role, IsActive: true, Ville: "Douala"}
    if err := w.db.Omit("Competences", "Diplomes").Create(&u).Error; err != nil {
        t.Fatalf("create user: %v", err)
    }
    return policy.Caller{ID: u.ID, Role: role}
}

func (w *world) demandes() *DemandeService {
    return NewDemandeService(w.db, w.gate, w.notifier, w.events)
}

func (w *world) payments() *PaymentService {
    return NewPaymentService(w.db, w.gate, w.notifier, w.events)
}

func (w *world) messages() *MessageService {
    return NewMessageService(w.db, w.store, w.gate, w.notifier, w.events)
}

func (w *world) catalog() *CatalogService {
    return NewCatalogService(w.db, w.store, w.gate)
}

// demandeIn returns a valid request for the world's service.
func (w *world) demandeIn() DemandeInput {
    tomorrow := time.Now().UTC().Add(24 * time.Hour)
    return DemandeInput{
        ServiceID:   w.service.ID,
        Description: "Fuite sous l'évier",
        DateDebut:   tomorrow,
        DateFin:     tomorrow.Add(48 * time.Hour),
        Adresse:     "Bonapriso, Douala",
        Budget:      20000,
    }
}

// acceptedDemande creates a demande and lets pro accept it.
func (w *world) acceptedDemande(t *testing.T) model.Demande {
    t.Helper()
    ctx := context.Background()
    d, err := w.demandes().Create(ctx, w.client, w.demandeIn())
    if err != nil {
        t.Fatalf("create demande: %v", err)
    }
    d, err = w.demandes().Transition(ctx, w.pro, d.ID, "acceptee", "")
    if err != nil {
        t.Fatalf("accept: %v", err)
    }
    return d
}

func (w *world) notificationTypes(t *testing.T, userID uint64) []string {
    t.Helper()
    var out []string
    if err := w.db.Model(&model.Notification{}).Where("user_id = ?", userID).Order("id").Pluck("type", &out).Error; err != nil {
        t.Fatal(err)
    }
    return out
}

func contains(list []string, s string) bool {
    for _, v := range list {
        if v == s {
            return true
        }
    }
    return false
}

// recordedEvents is an EventPublisher keeping events in memory.
type recordedEvents struct {
    mu     sync.Mutex
    events []queue.LifecycleEvent
}

func (r *recordedEvents) Publish(_ context.Context, ev queue.LifecycleEvent) error {
    r.mu.Lock()
    defer r.mu.Unlock()
    r.events = append(r.events, ev)
    return nil
}

func (r *recordedEvents) kinds() []string {
    r.mu.Lock()
    defer r.mu.Unlock()
    out := make([]string, 0, len(r.events))
    for _, ev := range r.events {
        out = append(out, ev.Kind)
    }
    return out
}

// memStore is a BlobStore keeping blobs in a map.
type memStore struct {
    mu    sync.Mutex
    blobs map[string][]byte
}

func newMemStore() *memStore { return &memStore{blobs: map[string][]byte{}} }

func (m *memStore) Put(_ context.Context, key string, r io.Reader, _ int64, _ string) error {
    b, err := io.ReadAll(r)
    if err != nil {
        return err
    }
    m.mu.Lock()
    defer m.mu.Unlock()
    m.blobs[key] = b
    return nil
}

func (m *memStore) URL(_ context.Context, key string) (string, error) {
    return "/storage/" + key, nil
}

func (m *memStore) Delete(_ context.Context, key string) error {
    m.mu.Lock()
    defer m.mu.Unlock()
    delete(m.blobs, key)
    return nil
}

func (m *memStore) len() int {
    m.mu.Lock()
    defer m.mu.Unlock()
    return len(m.blobs)
}

func image(name string) storage.File {
    body := []byte("\x89PNG fake " + name)
    return storage.File{Name: name, ContentType: "image/png", Size: int64(len(body)), Body: bytes.NewReader(body)}
}

func images(n int) []storage.File {
    out := make([]storage.File, n)
    for i := range out {
        out[i] = image(fmt.Sprintf("p%d.png", i))
    }
    return out
}
