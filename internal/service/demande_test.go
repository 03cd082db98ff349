package service

import (
    "context"
    "errors"
    "testing"
    "time"

    "github.com/iliyamo/kmerpro-marketplace/internal/model"
    "github.com/iliyamo/kmerpro-marketplace/internal/policy"
    "github.com/iliyamo/kmerpro-marketplace/internal/repository"
)

func TestCreateDemandePending(t *testing.T) {
    w := newWorld(t)
    d, err := w.demandes().Create(context.Background(), w.client, w.demandeIn())
    if err != nil {
        t.Fatalf("create: %v", err)
    }
    if d.Statut != model.DemandePending || d.ProfessionnelID != w.pro.ID || d.ClientID != w.client.ID {
        t.Fatalf("demande = %+v", d)
    }
    if got := w.notificationTypes(t, w.pro.ID); !contains(got, model.NotifNouvelleDemande) {
        t.Fatalf("pro notifications = %v", got)
    }
    if !contains(w.events.kinds(), "demande.creee") {
        t.Fatalf("events = %v", w.events.kinds())
    }
}

func TestCreateDemandeByNonClientForbidden(t *testing.T) {
    w := newWorld(t)
    for name, c := range map[string]policy.Caller{"pro": w.pro, "admin": w.admin} {
        if _, err := w.demandes().Create(context.Background(), c, w.demandeIn()); !errors.Is(err, ErrForbidden) {
            t.Fatalf("%s: err = %v, want forbidden", name, err)
        }
    }
    var n int64
    w.db.Model(&model.Demande{}).Count(&n)
    if n != 0 {
        t.Fatalf("%d demandes persisted", n)
    }
}

func TestCreateDemandeValidation(t *testing.T) {
    w := newWorld(t)
    in := w.demandeIn()
    in.DateDebut = time.Now().UTC().Add(-time.Hour)
    in.DateFin = in.DateDebut.Add(-time.Hour)
    in.Description = ""
    _, err := w.demandes().Create(context.Background(), w.client, in)
    var ve *ValidationError
    if !errors.As(err, &ve) {
        t.Fatalf("err = %v, want validation", err)
    }
    want := map[string]string{
        "date_debut_souhaitee": "must_be_future",
        "date_fin_souhaitee":   "must_be_after_start",
        "description":          "required",
    }
    for field, code := range want {
        if ve.Fields[field] != code {
            t.Fatalf("%s = %q, want %q (all: %v)", field, ve.Fields[field], code, ve.Fields)
        }
    }
}

func TestCreateDemandeUnavailableService(t *testing.T) {
    w := newWorld(t)
    w.db.Model(&model.Service{}).Where("id = ?", w.service.ID).Update("disponible", false)
    _, err := w.demandes().Create(context.Background(), w.client, w.demandeIn())
    var ve *ValidationError
    if !errors.As(err, &ve) || ve.Fields["service_id"] != "unavailable" {
        t.Fatalf("err = %v", err)
    }
}

func TestTransitionByThirdPartyForbidden(t *testing.T) {
    w := newWorld(t)
    ctx := context.Background()
    d, err := w.demandes().Create(ctx, w.client, w.demandeIn())
    if err != nil {
        t.Fatal(err)
    }
    if _, err := w.demandes().Transition(ctx, w.otherPro, d.ID, "acceptee", ""); !errors.Is(err, ErrForbidden) {
        t.Fatalf("other pro: err = %v", err)
    }
    if _, err := w.demandes().Transition(ctx, w.client, d.ID, "acceptee", ""); !errors.Is(err, ErrForbidden) {
        t.Fatalf("client: err = %v", err)
    }
    got, _ := w.demandes().Get(ctx, w.client, d.ID)
    if got.Statut != model.DemandePending {
        t.Fatalf("statut = %s", got.Statut)
    }
}

func TestTransitionTable(t *testing.T) {
    w := newWorld(t)
    ctx := context.Background()
    svc := w.demandes()
    d, _ := svc.Create(ctx, w.client, w.demandeIn())

    if _, err := svc.Transition(ctx, w.pro, d.ID, "terminee", ""); !errors.Is(err, ErrInvalidState) {
        t.Fatalf("pending -> terminee: err = %v", err)
    }
    d, err := svc.Transition(ctx, w.pro, d.ID, "acceptee", "ok")
    if err != nil {
        t.Fatal(err)
    }
    if d.DateAcceptation == nil {
        t.Fatal("date_acceptation not stamped")
    }
    if d, err = svc.Transition(ctx, w.pro, d.ID, "en_cours", ""); err != nil {
        t.Fatal(err)
    }
    d, err = svc.Transition(ctx, w.pro, d.ID, "complete", "")
    if err != nil {
        t.Fatalf("complete alias: %v", err)
    }
    if d.Statut != model.DemandeDone || d.DateFinReelle == nil {
        t.Fatalf("demande = %+v", d)
    }
    if _, err := svc.Transition(ctx, w.pro, d.ID, "refusee", ""); !errors.Is(err, ErrInvalidState) {
        t.Fatalf("terminal: err = %v", err)
    }
    if _, err := svc.Transition(ctx, w.pro, d.ID, "annulee", ""); err == nil {
        t.Fatal("pro may not cancel through transition")
    }
    got := w.notificationTypes(t, w.client.ID)
    for _, typ := range []string{model.NotifDemandeAcceptee, model.NotifDemandeEnCours, model.NotifDemandeTerminee} {
        if !contains(got, typ) {
            t.Fatalf("client notifications %v missing %s", got, typ)
        }
    }
}

func TestCancelRules(t *testing.T) {
    w := newWorld(t)
    ctx := context.Background()
    d := w.acceptedDemande(t)
    p, err := w.payments().Initiate(ctx, w.client, d.ID, PaymentInput{Montant: 5000, Methode: "mobile_money"})
    if err != nil {
        t.Fatal(err)
    }

    if _, err := w.demandes().Cancel(ctx, w.pro, d.ID, ""); !errors.Is(err, ErrForbidden) {
        t.Fatalf("pro cancel: err = %v", err)
    }
    d, err = w.demandes().Cancel(ctx, w.client, d.ID, "plus besoin")
    if err != nil {
        t.Fatal(err)
    }
    if d.Statut != model.DemandeCancelled || d.Commentaire != "plus besoin" {
        t.Fatalf("demande = %+v", d)
    }
    p, _ = w.payments().Get(ctx, w.client, p.ID)
    if p.Statut != model.PaymentCancelled || p.DateAnnulation == nil {
        t.Fatalf("pending payment not cancelled: %+v", p)
    }
    if _, err := w.demandes().Cancel(ctx, w.client, d.ID, ""); !errors.Is(err, ErrInvalidState) {
        t.Fatalf("second cancel: err = %v", err)
    }
    if !contains(w.notificationTypes(t, w.pro.ID), model.NotifDemandeAnnulee) {
        t.Fatal("professional not told about cancellation")
    }
}

func TestRate(t *testing.T) {
    w := newWorld(t)
    ctx := context.Background()
    svc := w.demandes()
    d := w.acceptedDemande(t)
    if _, err := svc.Rate(ctx, w.client, d.ID, 5, ""); !errors.Is(err, ErrInvalidState) {
        t.Fatalf("rate accepted: err = %v", err)
    }
    svc.Transition(ctx, w.pro, d.ID, "en_cours", "")
    svc.Transition(ctx, w.pro, d.ID, "terminee", "")

    var ve *ValidationError
    if _, err := svc.Rate(ctx, w.client, d.ID, 6, ""); !errors.As(err, &ve) {
        t.Fatalf("note 6: err = %v", err)
    }
    d, err := svc.Rate(ctx, w.client, d.ID, 4, "Très bien")
    if err != nil {
        t.Fatal(err)
    }
    if d.Note == nil || *d.Note != 4 || d.Evaluation != "Très bien" {
        t.Fatalf("demande = %+v", d)
    }
    if _, err := svc.Rate(ctx, w.client, d.ID, 2, ""); !errors.Is(err, ErrInvalidState) {
        t.Fatalf("re-rate: err = %v", err)
    }
}

func TestListsByRole(t *testing.T) {
    w := newWorld(t)
    ctx := context.Background()
    svc := w.demandes()
    w.acceptedDemande(t)
    svc.Create(ctx, w.client, w.demandeIn())
    page := repository.NewPage(1, 0, 10, 100)

    sent, err := svc.ListSent(ctx, w.client, "", page)
    if err != nil || sent.Total != 2 {
        t.Fatalf("sent = %d, %v", sent.Total, err)
    }
    recv, err := svc.ListReceived(ctx, w.pro, "acceptee", page)
    if err != nil || recv.Total != 1 {
        t.Fatalf("received acceptee = %d, %v", recv.Total, err)
    }
    if _, err := svc.ListReceived(ctx, w.client, "", page); !errors.Is(err, ErrForbidden) {
        t.Fatalf("client received: err = %v", err)
    }
    other, _ := svc.List(ctx, w.otherPro, "", page)
    if other.Total != 0 {
        t.Fatalf("other pro sees %d", other.Total)
    }
    all, _ := svc.List(ctx, w.admin, "", page)
    if all.Total != 2 {
        t.Fatalf("admin sees %d", all.Total)
    }
}

func TestGetByStrangerForbidden(t *testing.T) {
    w := newWorld(t)
    ctx := context.Background()
    d := w.acceptedDemande(t)
    if _, err := w.demandes().Get(ctx, w.otherPro, d.ID); !errors.Is(err, ErrForbidden) {
        t.Fatalf("err = %v", err)
    }
    if _, err := w.demandes().Get(ctx, w.admin, d.ID); err != nil {
        t.Fatalf("admin: %v", err)
    }
    if _, err := w.demandes().Get(ctx, w.client, d.ID+100); !errors.Is(err, ErrNotFound) {
        t.Fatalf("missing: err = %v", err)
    }
}
