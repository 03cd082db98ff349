package service

import (
    "context"
    "errors"
    "fmt"
    "strings"
    "time"

    "gorm.io/gorm"

    "github.com/iliyamo/kmerpro-marketplace/internal/model"
    "github.com/iliyamo/kmerpro-marketplace/internal/policy"
    "github.com/iliyamo/kmerpro-marketplace/internal/queue"
    "github.com/iliyamo/kmerpro-marketplace/internal/repository"
    "github.com/iliyamo/kmerpro-marketplace/internal/validation"
)

// DemandeInput is the payload of a new booking request.
type DemandeInput struct {
    ServiceID   uint64
    Description string
    DateDebut   time.Time
    DateFin     time.Time
    Adresse     string
    Budget      float64
}

// DemandeService runs the booking request lifecycle.
type DemandeService struct {
    db       *gorm.DB
    demandes *repository.DemandeRepo
    services *repository.ServiceRepo
    payments *repository.PaymentRepo
    gate     *policy.Gate
    notifier *Notifier
    events   EventPublisher
    now      Clock
}

func NewDemandeService(db *gorm.DB, gate *policy.Gate, notifier *Notifier, events EventPublisher) *DemandeService {
    return &DemandeService{
        db:       db,
        demandes: repository.NewDemandeRepo(db),
        services: repository.NewServiceRepo(db),
        payments: repository.NewPaymentRepo(db),
        gate:     gate,
        notifier: notifier,
        events:   events,
        now:      utcNow,
    }
}

// Create records a pending demande for a service.  Only clients may
// create demandes; the professional is copied from the service.
func (s *DemandeService) Create(ctx context.Context, caller policy.Caller, in DemandeInput) (model.Demande, error) {
    if err := s.gate.Authorize(ctx, caller, policy.DemandeCreate, nil); err != nil {
        return model.Demande{}, err
    }
    v := validation.Violations{}
    validation.PositiveID("service_id", in.ServiceID, v)
    validation.Required("description", in.Description, v)
    validation.MaxLen("description", in.Description, 5000, v)
    validation.Required("adresse_intervention", in.Adresse, v)
    validation.MaxLen("adresse_intervention", in.Adresse, 255, v)
    validation.MinFloat("budget_max", in.Budget, 0, v)
    if in.DateDebut.IsZero() {
        v.Add("date_debut_souhaitee", "required")
    } else {
        validation.After("date_debut_souhaitee", in.DateDebut, s.now(), "must_be_future", v)
    }
    if in.DateFin.IsZero() {
        v.Add("date_fin_souhaitee", "required")
    } else if !in.DateDebut.IsZero() {
        validation.After("date_fin_souhaitee", in.DateFin, in.DateDebut, "must_be_after_start", v)
    }

    var svc model.Service
    if _, bad := v["service_id"]; !bad {
        var err error
        svc, err = s.services.GetBare(ctx, in.ServiceID)
        switch {
        case errors.Is(err, repository.ErrNotFound):
            v.Add("service_id", "not_found")
        case err != nil:
            return model.Demande{}, err
        case !svc.Disponible:
            v.Add("service_id", "unavailable")
        }
    }
    if err := invalid(v); err != nil {
        return model.Demande{}, err
    }

    d := model.Demande{
        ServiceID:       svc.ID,
        ClientID:        caller.ID,
        ProfessionnelID: svc.ProfessionnelID,
        Description:     strings.TrimSpace(in.Description),
        DateDebut:       in.DateDebut.UTC(),
        DateFin:         in.DateFin.UTC(),
        Adresse:         strings.TrimSpace(in.Adresse),
        Budget:          in.Budget,
        Statut:          model.DemandePending,
    }
    if err := s.demandes.Create(ctx, &d); err != nil {
        return model.Demande{}, err
    }
    s.notifier.DemandeCreated(ctx, d, svc.Titre)
    publish(ctx, s.events, queue.NewEvent("demande.creee", "demande", d.ID, caller.ID, string(d.Statut)))
    return s.demandes.GetByID(ctx, d.ID)
}

// Get returns a demande visible to caller.
func (s *DemandeService) Get(ctx context.Context, caller policy.Caller, id uint64) (model.Demande, error) {
    d, err := s.demandes.GetByID(ctx, id)
    if err != nil {
        return model.Demande{}, lookup(err, "demande")
    }
    if err := s.gate.Authorize(ctx, caller, policy.DemandeView, d); err != nil {
        return model.Demande{}, err
    }
    return d, nil
}

// Transition moves a demande along the professional's allowed moves.
func (s *DemandeService) Transition(ctx context.Context, caller policy.Caller, id uint64, target, comment string) (model.Demande, error) {
    d, err := s.demandes.GetByID(ctx, id)
    if err != nil {
        return model.Demande{}, lookup(err, "demande")
    }
    if err := s.gate.Authorize(ctx, caller, policy.DemandeTransition, d); err != nil {
        return model.Demande{}, err
    }
    to := normalizeStatus(strings.TrimSpace(target))
    v := validation.Violations{}
    validation.Required("statut", target, v)
    validation.OneOf("statut", string(to), transitionTargets, v)
    validation.MaxLen("commentaire", comment, 2000, v)
    if err := invalid(v); err != nil {
        return model.Demande{}, err
    }
    if !CanTransition(d.Statut, to) {
        return model.Demande{}, InvalidState(fmt.Sprintf("transition de %s vers %s non autorisée", d.Statut, to))
    }

    now := s.now()
    extra := map[string]any{}
    switch to {
    case model.DemandeAccepted:
        extra["date_acceptation"] = now
    case model.DemandeDone:
        extra["date_fin_reelle"] = now
    }
    if c := strings.TrimSpace(comment); c != "" {
        extra["commentaire"] = c
    }
    if err := s.demandes.UpdateStatus(ctx, d.ID, []model.DemandeStatus{d.Statut}, to, extra); err != nil {
        if errors.Is(err, repository.ErrStale) {
            return model.Demande{}, InvalidState("la demande a changé de statut entre-temps")
        }
        return model.Demande{}, err
    }
    s.notifier.DemandeTransitioned(ctx, d, to)
    publish(ctx, s.events, queue.NewEvent("demande."+string(to), "demande", d.ID, caller.ID, string(to)))
    return s.demandes.GetByID(ctx, d.ID)
}

// Cancel lets the client withdraw a non-terminal demande.  Pending
// payments of the demande are cancelled in the same transaction.
func (s *DemandeService) Cancel(ctx context.Context, caller policy.Caller, id uint64, reason string) (model.Demande, error) {
    d, err := s.demandes.GetByID(ctx, id)
    if err != nil {
        return model.Demande{}, lookup(err, "demande")
    }
    if err := s.gate.Authorize(ctx, caller, policy.DemandeCancel, d); err != nil {
        return model.Demande{}, err
    }
    if err := invalid(maxLen("raison", reason, 2000)); err != nil {
        return model.Demande{}, err
    }
    if !CanCancel(d.Statut) {
        return model.Demande{}, InvalidState(fmt.Sprintf("une demande %s ne peut plus être annulée", d.Statut))
    }
    reason = strings.TrimSpace(reason)
    now := s.now()
    err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
        extra := map[string]any{}
        if reason != "" {
            extra["commentaire"] = reason
        }
        if err := s.demandes.WithTx(tx).UpdateStatus(ctx, d.ID, []model.DemandeStatus{d.Statut}, model.DemandeCancelled, extra); err != nil {
            return err
        }
        return s.payments.WithTx(tx).CancelPendingForDemande(ctx, d.ID, now, "demande annulée")
    })
    if errors.Is(err, repository.ErrStale) {
        return model.Demande{}, InvalidState("la demande a changé de statut entre-temps")
    }
    if err != nil {
        return model.Demande{}, err
    }
    s.notifier.DemandeCancelled(ctx, d, reason)
    publish(ctx, s.events, queue.NewEvent("demande.annulee", "demande", d.ID, caller.ID, string(model.DemandeCancelled)))
    return s.demandes.GetByID(ctx, d.ID)
}

// Rate stores the client's note once the demande is terminee.
func (s *DemandeService) Rate(ctx context.Context, caller policy.Caller, id uint64, note int, evaluation string) (model.Demande, error) {
    d, err := s.demandes.GetByID(ctx, id)
    if err != nil {
        return model.Demande{}, lookup(err, "demande")
    }
    if err := s.gate.Authorize(ctx, caller, policy.DemandeRate, d); err != nil {
        return model.Demande{}, err
    }
    v := validation.Violations{}
    validation.RangeInt("note", note, 1, 5, v)
    validation.MaxLen("commentaire", evaluation, 2000, v)
    if err := invalid(v); err != nil {
        return model.Demande{}, err
    }
    if d.Statut != model.DemandeDone {
        return model.Demande{}, InvalidState("seule une demande terminée peut être évaluée")
    }
    if d.Note != nil {
        return model.Demande{}, InvalidState("cette demande a déjà été évaluée")
    }
    if err := s.demandes.Rate(ctx, d.ID, note, strings.TrimSpace(evaluation)); err != nil {
        if errors.Is(err, repository.ErrStale) {
            return model.Demande{}, InvalidState("cette demande a déjà été évaluée")
        }
        return model.Demande{}, err
    }
    publish(ctx, s.events, queue.NewEvent("demande.evaluee", "demande", d.ID, caller.ID, string(d.Statut)))
    return s.demandes.GetByID(ctx, d.ID)
}

// List returns the demandes the caller takes part in: sent ones for a
// client, received ones for a professional, all of them for an admin.
func (s *DemandeService) List(ctx context.Context, caller policy.Caller, statut string, p repository.Page) (repository.Paged[model.Demande], error) {
    if caller.IsZero() {
        return repository.Paged[model.Demande]{}, ErrUnauthenticated
    }
    f := repository.DemandeFilter{Statut: normalizeStatus(statut)}
    switch caller.Role {
    case model.RoleClient:
        f.ClientID = caller.ID
    case model.RoleProfessionnel:
        f.ProfessionnelID = caller.ID
    }
    return s.demandes.List(ctx, f, p)
}

// ListSent returns the caller's own requests.
func (s *DemandeService) ListSent(ctx context.Context, caller policy.Caller, statut string, p repository.Page) (repository.Paged[model.Demande], error) {
    if err := s.gate.Authorize(ctx, caller, policy.DemandeListSent, nil); err != nil {
        return repository.Paged[model.Demande]{}, err
    }
    return s.demandes.List(ctx, repository.DemandeFilter{ClientID: caller.ID, Statut: normalizeStatus(statut)}, p)
}

// ListReceived returns requests addressed to the calling professional.
func (s *DemandeService) ListReceived(ctx context.Context, caller policy.Caller, statut string, p repository.Page) (repository.Paged[model.Demande], error) {
    if err := s.gate.Authorize(ctx, caller, policy.DemandeListReceived, nil); err != nil {
        return repository.Paged[model.Demande]{}, err
    }
    return s.demandes.List(ctx, repository.DemandeFilter{ProfessionnelID: caller.ID, Statut: normalizeStatus(statut)}, p)
}

func maxLen(field, value string, n int) validation.Violations {
    v := validation.Violations{}
    validation.MaxLen(field, value, n, v)
    return v
}
