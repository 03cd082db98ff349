package service

import (
    "bytes"
    "context"
    "errors"
    "testing"
    "time"

    "github.com/iliyamo/kmerpro-marketplace/internal/model"
    "github.com/iliyamo/kmerpro-marketplace/internal/repository"
    "github.com/iliyamo/kmerpro-marketplace/internal/storage"
)

func pdf(name string) *storage.File {
    body := []byte("%PDF-1.4 " + name)
    return &storage.File{Name: name, ContentType: "application/pdf", Size: int64(len(body)), Body: bytes.NewReader(body)}
}

func TestFavoris(t *testing.T) {
    w := newWorld(t)
    ctx := context.Background()
    fs := NewFavoriService(w.db, w.gate)
    if _, err := fs.Add(ctx, w.client, w.service.ID); err != nil {
        t.Fatal(err)
    }
    if _, err := fs.Add(ctx, w.client, w.service.ID); !errors.Is(err, ErrInvalidState) {
        t.Fatalf("duplicate: err = %v", err)
    }
    if _, err := fs.Add(ctx, w.client, 999); !errors.Is(err, ErrNotFound) {
        t.Fatalf("unknown service: err = %v", err)
    }
    list, err := fs.List(ctx, w.client, repository.NewPage(1, 0, 10, 100))
    if err != nil || list.Total != 1 || list.Data[0].Service == nil {
        t.Fatalf("list = %+v, %v", list, err)
    }
    if err := fs.Remove(ctx, w.client, w.service.ID); err != nil {
        t.Fatal(err)
    }
    if err := fs.Remove(ctx, w.client, w.service.ID); !errors.Is(err, ErrNotFound) {
        t.Fatalf("remove twice: err = %v", err)
    }
}

func TestNotifications(t *testing.T) {
    w := newWorld(t)
    ctx := context.Background()
    ns := NewNotificationService(w.db, w.gate)
    if _, err := ns.Create(ctx, w.client, NotificationInput{UserID: w.pro.ID, Titre: "x", Message: "y"}); !errors.Is(err, ErrForbidden) {
        t.Fatalf("client create: err = %v", err)
    }
    n, err := ns.Create(ctx, w.admin, NotificationInput{UserID: w.client.ID, Titre: "Maintenance", Message: "Ce soir", Data: map[string]any{"k": 1}})
    if err != nil {
        t.Fatal(err)
    }
    if n.Type != model.NotifSysteme {
        t.Fatalf("type = %s", n.Type)
    }

    if _, err := ns.Get(ctx, w.pro, n.ID); !errors.Is(err, ErrForbidden) {
        t.Fatalf("foreign get: err = %v", err)
    }
    first := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)
    ns.now = func() time.Time { return first }
    if _, err := ns.MarkRead(ctx, w.client, n.ID); err != nil {
        t.Fatal(err)
    }
    ns.now = func() time.Time { return first.Add(time.Hour) }
    again, err := ns.MarkRead(ctx, w.client, n.ID)
    if err != nil {
        t.Fatal(err)
    }
    if !again.Lu || again.DateLecture == nil || !again.DateLecture.Equal(first) {
        t.Fatalf("date_lecture = %v", again.DateLecture)
    }

    ns.Create(ctx, w.admin, NotificationInput{UserID: w.client.ID, Type: "promo", Titre: "a", Message: "b"})
    stats, err := ns.Stats(ctx, w.client)
    if err != nil {
        t.Fatal(err)
    }
    if stats.Total != 2 || stats.NonLues != 1 || stats.ParType["promo"] != 1 {
        t.Fatalf("stats = %+v", stats)
    }
    lu := false
    unread, _ := ns.List(ctx, w.client, &lu, repository.NewPage(1, 0, 10, 100))
    if unread.Total != 1 {
        t.Fatalf("unread list = %d", unread.Total)
    }
    if changed, _ := ns.MarkAllRead(ctx, w.client); changed != 1 {
        t.Fatalf("mark all = %d", changed)
    }
    if deleted, _ := ns.DeleteAll(ctx, w.client); deleted != 2 {
        t.Fatalf("delete all = %d", deleted)
    }
    if err := ns.Delete(ctx, w.client, n.ID); !errors.Is(err, ErrNotFound) {
        t.Fatalf("delete gone: err = %v", err)
    }
}

func TestProfileUpdateReplacesPhoto(t *testing.T) {
    w := newWorld(t)
    ctx := context.Background()
    ps := NewProfileService(w.db, w.store)
    ville := "Yaoundé"
    photo := image("me.png")
    u, err := ps.Update(ctx, w.client, ProfileUpdate{Ville: &ville, Photo: &photo})
    if err != nil {
        t.Fatal(err)
    }
    if u.Ville != ville || u.Photo == "" || u.PhotoURL == "" {
        t.Fatalf("user = %+v", u)
    }
    second := image("me2.png")
    u2, err := ps.Update(ctx, w.client, ProfileUpdate{Photo: &second})
    if err != nil {
        t.Fatal(err)
    }
    if u2.Photo == u.Photo || w.store.len() != 1 {
        t.Fatalf("old photo kept: %d blobs", w.store.len())
    }
    empty := " "
    var ve *ValidationError
    if _, err := ps.Update(ctx, w.client, ProfileUpdate{Nom: &empty}); !errors.As(err, &ve) {
        t.Fatalf("blank nom: err = %v", err)
    }
}

func TestProfessionalCredentials(t *testing.T) {
    w := newWorld(t)
    ctx := context.Background()
    ps := NewProfessionalService(w.db, w.store, w.gate, w.notifier, w.events)

    if _, err := ps.SubmitDocument(ctx, w.client, DocumentInput{Type: "cni", File: pdf("cni.pdf")}); !errors.Is(err, ErrForbidden) {
        t.Fatalf("client submit: err = %v", err)
    }
    var ve *ValidationError
    if _, err := ps.SubmitDocument(ctx, w.pro, DocumentInput{Type: "passeport", File: pdf("p.pdf")}); !errors.As(err, &ve) {
        t.Fatalf("bad type: err = %v", err)
    }
    doc, err := ps.SubmitDocument(ctx, w.pro, DocumentInput{Type: "cni", Numero: "123456", File: pdf("cni.pdf")})
    if err != nil {
        t.Fatal(err)
    }
    if doc.Statut != model.DocumentPending || doc.URL == "" {
        t.Fatalf("document = %+v", doc)
    }

    pending, err := ps.PendingDocuments(ctx, w.admin, repository.NewPage(1, 0, 10, 100))
    if err != nil || pending.Total != 1 {
        t.Fatalf("pending = %d, %v", pending.Total, err)
    }
    if _, err := ps.ReviewDocument(ctx, w.pro, doc.ID, model.DocumentValid, ""); !errors.Is(err, ErrForbidden) {
        t.Fatalf("pro review: err = %v", err)
    }
    if _, err := ps.ReviewDocument(ctx, w.admin, doc.ID, model.DocumentRejected, ""); !errors.As(err, &ve) {
        t.Fatalf("reject without comment: err = %v", err)
    }
    doc, err = ps.ReviewDocument(ctx, w.admin, doc.ID, model.DocumentValid, "")
    if err != nil {
        t.Fatal(err)
    }
    if doc.Statut != model.DocumentValid || doc.DateValidation == nil {
        t.Fatalf("document = %+v", doc)
    }
    if !contains(w.notificationTypes(t, w.pro.ID), model.NotifDocumentValide) {
        t.Fatal("professional not notified")
    }

    var comps []model.Competence
    for _, nom := range []string{"Plomberie", "Soudure", "Carrelage"} {
        c := model.Competence{Nom: nom}
        w.db.Create(&c)
        comps = append(comps, c)
    }
    if _, err := ps.SetCompetences(ctx, w.pro, []uint64{comps[0].ID, 999}); !errors.As(err, &ve) {
        t.Fatalf("unknown competence: err = %v", err)
    }
    got, err := ps.SetCompetences(ctx, w.pro, []uint64{comps[0].ID, comps[1].ID, comps[2].ID, comps[0].ID})
    if err != nil {
        t.Fatal(err)
    }
    if len(got) != 3 || got[0].Niveau != model.NiveauIntermediaire {
        t.Fatalf("competences = %+v", got)
    }

    badges, err := ps.Badges(ctx, w.pro)
    if err != nil {
        t.Fatal(err)
    }
    want := map[string]bool{"identite_verifiee": true, "professionnel_certifie": false, "expert": true}
    for _, b := range badges {
        if want[b.Type] != b.Obtenu {
            t.Fatalf("badge %s = %v", b.Type, b.Obtenu)
        }
    }
}

func TestStats(t *testing.T) {
    w := newWorld(t)
    ctx := context.Background()
    d := w.acceptedDemande(t)
    p, _ := w.payments().Initiate(ctx, w.client, d.ID, PaymentInput{Montant: 50000, Methode: "mobile_money"})
    if _, err := w.payments().Confirm(ctx, w.pro, p.ID, ""); err != nil {
        t.Fatal(err)
    }
    w.demandes().Transition(ctx, w.pro, d.ID, "terminee", "")
    w.demandes().Rate(ctx, w.client, d.ID, 4, "")
    pending, _ := w.demandes().Create(ctx, w.client, w.demandeIn())
    w.messages().Send(ctx, w.client, MessageInput{DestinataireID: w.pro.ID, Contenu: "a"})
    w.messages().Send(ctx, w.pro, MessageInput{DestinataireID: w.client.ID, Contenu: "b"})

    ss := NewStatsService(w.db, w.gate)
    if _, err := ss.Global(ctx, w.pro); !errors.Is(err, ErrForbidden) {
        t.Fatalf("pro global: err = %v", err)
    }
    g, err := ss.Global(ctx, w.admin)
    if err != nil {
        t.Fatal(err)
    }
    if g.Utilisateurs != 4 || g.Demandes != 2 || g.ChiffreAffaire != 50000 || g.NoteMoyenne != 4 {
        t.Fatalf("global = %+v", g)
    }

    perf, err := ss.Performances(ctx, w.admin)
    if err != nil {
        t.Fatal(err)
    }
    if perf.TauxCompletion != 50 || perf.TauxAcceptation != 50 || len(perf.Populaires) != 1 {
        t.Fatalf("performances = %+v", perf)
    }

    fin, err := ss.Financial(ctx, w.admin)
    if err != nil {
        t.Fatal(err)
    }
    if len(fin.Evolution) != EvolutionMonths || fin.Evolution[EvolutionMonths-1].Total != 50000 {
        t.Fatalf("evolution = %+v", fin.Evolution)
    }

    msgs, err := ss.Messages(ctx, w.admin)
    if err != nil {
        t.Fatal(err)
    }
    if msgs.Total != 2 || msgs.NonLus != 2 || msgs.ConversationsActive != 1 {
        t.Fatalf("messages = %+v", msgs)
    }

    users, err := ss.Users(ctx, w.admin)
    if err != nil {
        t.Fatal(err)
    }
    if users.Professionnels != 2 || users.Clients != 1 || users.NouveauxMois != 4 {
        t.Fatalf("users = %+v", users)
    }

    mine, err := ss.Professional(ctx, w.pro)
    if err != nil {
        t.Fatal(err)
    }
    if mine.Services != 1 || mine.Demandes != 2 || mine.Revenus != 50000 || mine.ParStatut[string(pending.Statut)] != 1 {
        t.Fatalf("professional = %+v", mine)
    }
    if _, err := ss.Professional(ctx, w.client); !errors.Is(err, ErrForbidden) {
        t.Fatalf("client professional stats: err = %v", err)
    }
}

func TestMonthlyEvolutionBuckets(t *testing.T) {
    start := time.Date(2025, 11, 1, 0, 0, 0, 0, time.UTC)
    rows := []repository.DatedAmount{
        {DateConfirmation: time.Date(2025, 11, 3, 0, 0, 0, 0, time.UTC), Montant: 1000},
        {DateConfirmation: time.Date(2025, 11, 30, 0, 0, 0, 0, time.UTC), Montant: 500},
        {DateConfirmation: time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC), Montant: 2000},
        {DateConfirmation: time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC), Montant: 9999},
    }
    got := monthlyEvolution(start, rows)
    if got[0].Mois != "2025-11" || got[0].Total != 1500 {
        t.Fatalf("first bucket = %+v", got[0])
    }
    if got[3].Mois != "2026-02" || got[3].Total != 2000 {
        t.Fatalf("february = %+v", got[3])
    }
    if got[11].Mois != "2026-10" || got[11].Total != 0 {
        t.Fatalf("last bucket = %+v", got[11])
    }
}

func TestConversationsCountsUnorderedPairs(t *testing.T) {
    if n := conversations([][2]uint64{{1, 2}, {2, 1}, {1, 3}}); n != 2 {
        t.Fatalf("n = %d", n)
    }
}
