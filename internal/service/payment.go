package service

import (
    "context"
    "errors"
    "strings"

    "github.com/google/uuid"
    "gorm.io/gorm"

    "github.com/iliyamo/kmerpro-marketplace/internal/model"
    "github.com/iliyamo/kmerpro-marketplace/internal/policy"
    "github.com/iliyamo/kmerpro-marketplace/internal/queue"
    "github.com/iliyamo/kmerpro-marketplace/internal/repository"
    "github.com/iliyamo/kmerpro-marketplace/internal/validation"
)

// PaymentInput is the payload of a payment initiation.
type PaymentInput struct {
    Montant float64
    Methode string
    Devise  string
    Details map[string]any
}

// methodAliases folds legacy method names onto the stored ones.
var methodAliases = map[string]string{
    "credit_card":   "carte",
    "bank_transfer": "virement",
}

// payableStatuses are the demande statuses a payment may target.
var payableStatuses = []model.DemandeStatus{model.DemandeAccepted, model.DemandeInProgress}

var (
    // errDemandeMoved aborts a write whose demande left the payable
    // statuses.
    errDemandeMoved = errors.New("demande no longer payable")
    // errPaymentActive aborts an initiation racing an earlier one.
    errPaymentActive = errors.New("payment already active")
)

const msgNotPayable = "cette demande n'est pas dans un état permettant un paiement"

// PaymentService runs the payment lifecycle.  Confirmation is a manual
// flag set by the professional; no gateway is involved.
type PaymentService struct {
    db       *gorm.DB
    payments *repository.PaymentRepo
    demandes *repository.DemandeRepo
    gate     *policy.Gate
    notifier *Notifier
    events   EventPublisher
    now      Clock
}

func NewPaymentService(db *gorm.DB, gate *policy.Gate, notifier *Notifier, events EventPublisher) *PaymentService {
    return &PaymentService{
        db:       db,
        payments: repository.NewPaymentRepo(db),
        demandes: repository.NewDemandeRepo(db),
        gate:     gate,
        notifier: notifier,
        events:   events,
        now:      utcNow,
    }
}

// NewReference returns "PAY-" followed by ten upper-case alphanumerics.
func NewReference() string {
    raw := strings.ReplaceAll(uuid.NewString(), "-", "")
    return "PAY-" + strings.ToUpper(raw[:10])
}

// Initiate opens a pending payment on an accepted or running demande.
func (s *PaymentService) Initiate(ctx context.Context, caller policy.Caller, demandeID uint64, in PaymentInput) (model.Payment, error) {
    d, err := s.demandes.GetByID(ctx, demandeID)
    if err != nil {
        return model.Payment{}, lookup(err, "demande")
    }
    if err := s.gate.Authorize(ctx, caller, policy.PaymentInitiate, d); err != nil {
        return model.Payment{}, err
    }

    methode := strings.ToLower(strings.TrimSpace(in.Methode))
    if alias, ok := methodAliases[methode]; ok {
        methode = alias
    }
    devise := strings.ToUpper(strings.TrimSpace(in.Devise))
    if devise == "" {
        devise = "XAF"
    }
    v := validation.Violations{}
    validation.MinFloat("montant", in.Montant, model.MinPaymentAmount, v)
    validation.Required("methode_paiement", methode, v)
    validation.OneOf("methode_paiement", methode, model.PaymentMethods, v)
    validation.OneOf("devise", devise, model.PaymentCurrencies, v)
    if err := invalid(v); err != nil {
        return model.Payment{}, err
    }
    if !payable(d.Statut) {
        return model.Payment{}, InvalidState(msgNotPayable)
    }

    p := model.Payment{
        DemandeID:       d.ID,
        ClientID:        d.ClientID,
        ProfessionnelID: d.ProfessionnelID,
        Montant:         in.Montant,
        Devise:          devise,
        Methode:         methode,
        Statut:          model.PaymentPending,
        Details:         in.Details,
    }
    for attempt := 0; ; attempt++ {
        p.ID = 0
        p.Reference = NewReference()
        err = s.open(ctx, &p)
        if err == nil {
            break
        }
        switch {
        case errors.Is(err, repository.ErrNotFound):
            return model.Payment{}, lookup(err, "demande")
        case errors.Is(err, errDemandeMoved):
            return model.Payment{}, InvalidState(msgNotPayable)
        case errors.Is(err, errPaymentActive):
            return model.Payment{}, InvalidState("un paiement est déjà en cours pour cette demande")
        }
        taken, lookupErr := s.payments.ReferenceExists(ctx, p.Reference)
        if lookupErr != nil || !taken || attempt >= 4 {
            return model.Payment{}, err
        }
    }
    s.notifier.PaymentReceived(ctx, p)
    publish(ctx, s.events, queue.NewEvent("paiement.initie", "paiement", p.ID, caller.ID, string(p.Statut)))
    return s.payments.GetByID(ctx, p.ID)
}

// open inserts p once the demande row is locked, so the payable check
// and the one-active-payment check hold until commit.
func (s *PaymentService) open(ctx context.Context, p *model.Payment) error {
    return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
        statut, err := s.demandes.WithTx(tx).Lock(ctx, p.DemandeID)
        if err != nil {
            return err
        }
        if !payable(statut) {
            return errDemandeMoved
        }
        payments := s.payments.WithTx(tx)
        active, err := payments.HasActive(ctx, p.DemandeID)
        if err != nil {
            return err
        }
        if active {
            return errPaymentActive
        }
        return payments.Create(ctx, p)
    })
}

// Confirm marks a pending payment confirme and moves its demande to
// en_cours in one transaction.  A second confirmation fails with
// InvalidState and leaves the first timestamp untouched.
func (s *PaymentService) Confirm(ctx context.Context, caller policy.Caller, id uint64, comment string) (model.Payment, error) {
    p, err := s.payments.GetByID(ctx, id)
    if err != nil {
        return model.Payment{}, lookup(err, "paiement")
    }
    if err := s.gate.Authorize(ctx, caller, policy.PaymentConfirm, p); err != nil {
        return model.Payment{}, err
    }
    if err := invalid(maxLen("commentaire", comment, 2000)); err != nil {
        return model.Payment{}, err
    }
    if p.Statut != model.PaymentPending {
        return model.Payment{}, InvalidState("ce paiement n'est plus en attente")
    }
    now := s.now()
    err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
        if err := s.payments.WithTx(tx).Confirm(ctx, p.ID, now, strings.TrimSpace(comment)); err != nil {
            return err
        }
        err := s.demandes.WithTx(tx).UpdateStatus(ctx, p.DemandeID, payableStatuses, model.DemandeInProgress, nil)
        if errors.Is(err, repository.ErrStale) {
            return errDemandeMoved
        }
        return err
    })
    switch {
    case errors.Is(err, repository.ErrStale):
        return model.Payment{}, InvalidState("ce paiement n'est plus en attente")
    case errors.Is(err, errDemandeMoved):
        return model.Payment{}, InvalidState("la demande liée n'est plus dans un état permettant un paiement")
    case err != nil:
        return model.Payment{}, err
    }
    s.notifier.PaymentConfirmed(ctx, p)
    publish(ctx, s.events, queue.NewEvent("paiement.confirme", "paiement", p.ID, caller.ID, string(model.PaymentConfirmed)))
    publish(ctx, s.events, queue.NewEvent("demande.en_cours", "demande", p.DemandeID, caller.ID, string(model.DemandeInProgress)))
    return s.payments.GetByID(ctx, p.ID)
}

// Cancel lets the client abandon a payment while it is still pending.
func (s *PaymentService) Cancel(ctx context.Context, caller policy.Caller, id uint64, reason string) (model.Payment, error) {
    p, err := s.payments.GetByID(ctx, id)
    if err != nil {
        return model.Payment{}, lookup(err, "paiement")
    }
    if err := s.gate.Authorize(ctx, caller, policy.PaymentCancel, p); err != nil {
        return model.Payment{}, err
    }
    if err := invalid(maxLen("raison", reason, 2000)); err != nil {
        return model.Payment{}, err
    }
    if p.Statut != model.PaymentPending {
        return model.Payment{}, InvalidState("ce paiement ne peut plus être annulé")
    }
    if err := s.payments.Cancel(ctx, p.ID, s.now(), strings.TrimSpace(reason)); err != nil {
        if errors.Is(err, repository.ErrStale) {
            return model.Payment{}, InvalidState("ce paiement ne peut plus être annulé")
        }
        return model.Payment{}, err
    }
    s.notifier.PaymentCancelled(ctx, p)
    publish(ctx, s.events, queue.NewEvent("paiement.annule", "paiement", p.ID, caller.ID, string(model.PaymentCancelled)))
    return s.payments.GetByID(ctx, p.ID)
}

// Delete removes a cancelled payment of the caller.
func (s *PaymentService) Delete(ctx context.Context, caller policy.Caller, id uint64) error {
    p, err := s.payments.GetByID(ctx, id)
    if err != nil {
        return lookup(err, "paiement")
    }
    if err := s.gate.Authorize(ctx, caller, policy.PaymentDelete, p); err != nil {
        return err
    }
    if p.Statut != model.PaymentCancelled {
        return InvalidState("seul un paiement annulé peut être supprimé")
    }
    if err := s.payments.Delete(ctx, p.ID); err != nil {
        if errors.Is(err, repository.ErrStale) {
            return InvalidState("seul un paiement annulé peut être supprimé")
        }
        return err
    }
    return nil
}

// Get returns a payment visible to caller.
func (s *PaymentService) Get(ctx context.Context, caller policy.Caller, id uint64) (model.Payment, error) {
    p, err := s.payments.GetByID(ctx, id)
    if err != nil {
        return model.Payment{}, lookup(err, "paiement")
    }
    if err := s.gate.Authorize(ctx, caller, policy.PaymentView, p); err != nil {
        return model.Payment{}, err
    }
    return p, nil
}

// List returns the payments where caller is a party; admins see all.
func (s *PaymentService) List(ctx context.Context, caller policy.Caller, statut string, p repository.Page) (repository.Paged[model.Payment], error) {
    if caller.IsZero() {
        return repository.Paged[model.Payment]{}, ErrUnauthenticated
    }
    f := repository.PaymentFilter{Statut: model.PaymentStatus(statut)}
    if caller.Role != model.RoleAdmin {
        f.PartyID = caller.ID
    }
    return s.payments.List(ctx, f, p)
}

func payable(st model.DemandeStatus) bool {
    for _, p := range payableStatuses {
        if p == st {
            return true
        }
    }
    return false
}
