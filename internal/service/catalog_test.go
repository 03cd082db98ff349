package service

import (
    "context"
    "errors"
    "sync"
    "testing"

    "github.com/iliyamo/kmerpro-marketplace/internal/model"
    "github.com/iliyamo/kmerpro-marketplace/internal/repository"
)

func (w *world) serviceIn() ServiceInput {
    return ServiceInput{
        Titre:        "Installation électrique",
        Description:  "Mise aux normes et dépannage",
        CategoryID:   w.category.ID,
        Prix:         25000,
        UniteTemps:   "jour",
        DureeEstimee: 2,
        Zones:        []string{"Douala", "Yaoundé", "douala"},
        Skills:       []SkillInput{{Nom: "Électricité", Niveau: "expert", AnneesExperience: 5}},
    }
}

func TestCreateServiceWithZonesAndSkills(t *testing.T) {
    w := newWorld(t)
    svc, err := w.catalog().Create(context.Background(), w.pro, w.serviceIn())
    if err != nil {
        t.Fatalf("create: %v", err)
    }
    if svc.ProfessionnelID != w.pro.ID || !svc.Disponible {
        t.Fatalf("service = %+v", svc)
    }
    if len(svc.Zones) != 2 {
        t.Fatalf("zones = %+v", svc.Zones)
    }
    if len(svc.Skills) != 1 || svc.Skills[0].Niveau != model.NiveauExpert {
        t.Fatalf("skills = %+v", svc.Skills)
    }
}

func TestCreateServiceRules(t *testing.T) {
    w := newWorld(t)
    ctx := context.Background()
    if _, err := w.catalog().Create(ctx, w.client, w.serviceIn()); !errors.Is(err, ErrForbidden) {
        t.Fatalf("client: err = %v", err)
    }
    in := w.serviceIn()
    in.CategoryID = 999
    in.UniteTemps = "siècle"
    _, err := w.catalog().Create(ctx, w.pro, in)
    var ve *ValidationError
    if !errors.As(err, &ve) || ve.Fields["categorie_id"] != "not_found" || ve.Fields["unite_temps"] == "" {
        t.Fatalf("err = %v", err)
    }
}

func TestUpdateOnlyByOwner(t *testing.T) {
    w := newWorld(t)
    ctx := context.Background()
    titre := "Nouveau titre"
    if _, err := w.catalog().Update(ctx, w.otherPro, w.service.ID, ServiceUpdate{Titre: &titre}); !errors.Is(err, ErrForbidden) {
        t.Fatalf("other pro: err = %v", err)
    }
    svc, err := w.catalog().Update(ctx, w.pro, w.service.ID, ServiceUpdate{Titre: &titre})
    if err != nil {
        t.Fatal(err)
    }
    if svc.Titre != titre || svc.Prix != w.service.Prix {
        t.Fatalf("service = %+v", svc)
    }
    svc, err = w.catalog().ToggleAvailability(ctx, w.pro, w.service.ID)
    if err != nil || svc.Disponible {
        t.Fatalf("toggle: %+v, %v", svc.Disponible, err)
    }
    page, _ := w.catalog().ListAvailable(ctx, repository.NewPage(1, 0, 10, 100))
    if page.Total != 0 {
        t.Fatalf("unavailable service listed")
    }
}

func TestEditZones(t *testing.T) {
    w := newWorld(t)
    ctx := context.Background()
    cs := w.catalog()
    svc, err := cs.EditZones(ctx, w.pro, w.service.ID, "replace", []string{"Douala", "Buea"})
    if err != nil || len(svc.Zones) != 2 {
        t.Fatalf("replace: %v, %v", svc.Zones, err)
    }
    if svc, err = cs.EditZones(ctx, w.pro, w.service.ID, "add", []string{"Kribi"}); err != nil || len(svc.Zones) != 3 {
        t.Fatalf("add: %v, %v", svc.Zones, err)
    }
    if svc, err = cs.EditZones(ctx, w.pro, w.service.ID, "remove", []string{"Douala"}); err != nil || len(svc.Zones) != 2 {
        t.Fatalf("remove: %v, %v", svc.Zones, err)
    }
    var ve *ValidationError
    if _, err := cs.EditZones(ctx, w.pro, w.service.ID, "add", nil); !errors.As(err, &ve) {
        t.Fatalf("empty add: err = %v", err)
    }
}

func TestGalleryLimit(t *testing.T) {
    w := newWorld(t)
    ctx := context.Background()
    cs := w.catalog()
    photos, err := cs.AddPhotos(ctx, w.pro, w.service.ID, images(model.MaxGalleryPhotos))
    if err != nil {
        t.Fatalf("fill gallery: %v", err)
    }
    if len(photos) != model.MaxGalleryPhotos || photos[0].URL == "" {
        t.Fatalf("photos = %d", len(photos))
    }

    _, err = cs.AddPhotos(ctx, w.pro, w.service.ID, images(1))
    var ve *ValidationError
    if !errors.As(err, &ve) || ve.Fields["images"] != "gallery_full" {
        t.Fatalf("11th photo: err = %v", err)
    }
    got, _ := cs.Photos(ctx, w.service.ID)
    if len(got) != model.MaxGalleryPhotos || w.store.len() != model.MaxGalleryPhotos {
        t.Fatalf("gallery = %d rows, %d blobs", len(got), w.store.len())
    }
}

func TestConcurrentUploadsStayWithinGallery(t *testing.T) {
    w := newWorld(t)
    ctx := context.Background()
    cs := w.catalog()
    if _, err := cs.AddPhotos(ctx, w.pro, w.service.ID, images(model.MaxGalleryPhotos-1)); err != nil {
        t.Fatalf("fill gallery: %v", err)
    }

    const uploads = 6
    var (
        wg       sync.WaitGroup
        mu       sync.Mutex
        ok, full int
    )
    for i := 0; i < uploads; i++ {
        wg.Add(1)
        go func() {
            defer wg.Done()
            _, err := cs.AddPhotos(ctx, w.pro, w.service.ID, images(1))
            var ve *ValidationError
            mu.Lock()
            defer mu.Unlock()
            switch {
            case err == nil:
                ok++
            case errors.As(err, &ve) && ve.Fields["images"] == "gallery_full":
                full++
            default:
                t.Errorf("upload: %v", err)
            }
        }()
    }
    wg.Wait()
    if ok != 1 || full != uploads-1 {
        t.Fatalf("ok = %d, full = %d", ok, full)
    }
    got, _ := cs.Photos(ctx, w.service.ID)
    if len(got) != model.MaxGalleryPhotos || w.store.len() != model.MaxGalleryPhotos {
        t.Fatalf("gallery = %d rows, %d blobs", len(got), w.store.len())
    }
}

func TestAppendPhotosLocksExistingService(t *testing.T) {
    w := newWorld(t)
    repo := repository.NewServiceRepo(w.db)
    if _, err := repo.AppendPhotos(context.Background(), 999999, []string{"services/x.png"}, model.MaxGalleryPhotos); !errors.Is(err, repository.ErrNotFound) {
        t.Fatalf("missing service: err = %v", err)
    }
}

func TestGalleryRejectsNonImages(t *testing.T) {
    w := newWorld(t)
    f := image("doc.pdf")
    f.ContentType = "application/pdf"
    _, err := w.catalog().AddPhotos(context.Background(), w.pro, w.service.ID, append(images(1), f))
    var ve *ValidationError
    if !errors.As(err, &ve) || ve.Fields["images"] != "not_an_image" {
        t.Fatalf("err = %v", err)
    }
    if w.store.len() != 0 {
        t.Fatal("blob stored for rejected upload")
    }
}

func TestReorderAndDeletePhotos(t *testing.T) {
    w := newWorld(t)
    ctx := context.Background()
    cs := w.catalog()
    photos, err := cs.AddPhotos(ctx, w.pro, w.service.ID, images(3))
    if err != nil {
        t.Fatal(err)
    }
    a, b, c := photos[0].ID, photos[1].ID, photos[2].ID

    var ve *ValidationError
    for _, ids := range [][]uint64{{a, b}, {a, b, b}, {a, b, c + 100}} {
        if _, err := cs.ReorderPhotos(ctx, w.pro, w.service.ID, ids); !errors.As(err, &ve) || ve.Fields["ordre"] != "not_a_permutation" {
            t.Fatalf("%v: err = %v", ids, err)
        }
    }
    got, err := cs.ReorderPhotos(ctx, w.pro, w.service.ID, []uint64{c, a, b})
    if err != nil {
        t.Fatal(err)
    }
    if got[0].ID != c || got[1].ID != a || got[2].ID != b {
        t.Fatalf("order = %d,%d,%d", got[0].ID, got[1].ID, got[2].ID)
    }

    if err := cs.DeletePhoto(ctx, w.otherPro, w.service.ID, a); !errors.Is(err, ErrForbidden) {
        t.Fatalf("other pro delete: err = %v", err)
    }
    if err := cs.DeletePhoto(ctx, w.pro, w.service.ID, a); err != nil {
        t.Fatal(err)
    }
    if got, _ := cs.Photos(ctx, w.service.ID); len(got) != 2 || w.store.len() != 2 {
        t.Fatalf("after delete: %d photos, %d blobs", len(got), w.store.len())
    }
}

func TestSearch(t *testing.T) {
    w := newWorld(t)
    ctx := context.Background()
    cs := w.catalog()
    if _, err := cs.Create(ctx, w.pro, w.serviceIn()); err != nil {
        t.Fatal(err)
    }
    page := repository.NewPage(1, 0, 10, 100)
    prixMin := 20000.0
    res, err := cs.Search(ctx, repository.ServiceSearchQuery{Text: "ÉLECTRIQUE", PrixMin: &prixMin, Page: page})
    if err != nil {
        t.Fatal(err)
    }
    if res.Total != 1 || res.Data[0].Titre != "Installation électrique" {
        t.Fatalf("search = %+v", res)
    }
    all, _ := cs.Search(ctx, repository.ServiceSearchQuery{SortBy: "prix", SortDirection: "asc", Page: page})
    if all.Total != 2 || all.Data[0].Prix > all.Data[1].Prix {
        t.Fatalf("sorted = %+v", all.Data)
    }
    var ve *ValidationError
    if _, err := cs.Search(ctx, repository.ServiceSearchQuery{SortBy: "note", Page: page}); !errors.As(err, &ve) {
        t.Fatalf("bad sort: err = %v", err)
    }
    byCat, err := cs.ListByCategory(ctx, "plomberie", page)
    if err != nil || byCat.Total != 2 {
        t.Fatalf("by category name: %d, %v", byCat.Total, err)
    }
}

func TestDeleteService(t *testing.T) {
    w := newWorld(t)
    ctx := context.Background()
    cs := w.catalog()
    cs.AddPhotos(ctx, w.pro, w.service.ID, images(2))
    if err := cs.Delete(ctx, w.client, w.service.ID); !errors.Is(err, ErrForbidden) {
        t.Fatalf("client delete: err = %v", err)
    }
    if err := cs.Delete(ctx, w.pro, w.service.ID); err != nil {
        t.Fatal(err)
    }
    if _, err := cs.Get(ctx, w.service.ID); !errors.Is(err, ErrNotFound) {
        t.Fatalf("get deleted: err = %v", err)
    }
    if w.store.len() != 0 {
        t.Fatalf("%d blobs left", w.store.len())
    }
}
