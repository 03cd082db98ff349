package service

import (
    "context"
    "encoding/json"
    "fmt"
    "log/slog"

    "gorm.io/datatypes"

    "github.com/iliyamo/kmerpro-marketplace/internal/model"
    "github.com/iliyamo/kmerpro-marketplace/internal/repository"
)

// Notifier turns lifecycle events into notification rows, one per
// affected recipient.  It is best-effort: a failed insert is logged and
// never reported to the operation that triggered it.
type Notifier struct {
    repo *repository.NotificationRepo
}

func NewNotifier(repo *repository.NotificationRepo) *Notifier {
    return &Notifier{repo: repo}
}

// Notify writes a single notification.
func (n *Notifier) Notify(ctx context.Context, userID uint64, typ, titre, message, lien string, data map[string]any) {
    if n == nil || n.repo == nil || userID == 0 {
        return
    }
    row := &model.Notification{
        UserID:  userID,
        Type:    typ,
        Titre:   titre,
        Message: message,
        Lien:    lien,
    }
    if len(data) > 0 {
        raw, err := json.Marshal(data)
        if err == nil {
            row.Data = datatypes.JSON(raw)
        }
    }
    if err := n.repo.Create(ctx, row); err != nil {
        slog.Error("notification not created", "user_id", userID, "type", typ, "error", err)
    }
}

// DemandeCreated tells the professional a client asked for their service.
func (n *Notifier) DemandeCreated(ctx context.Context, d model.Demande, serviceTitle string) {
    n.Notify(ctx, d.ProfessionnelID, model.NotifNouvelleDemande,
        "Nouvelle demande",
        fmt.Sprintf("Vous avez reçu une nouvelle demande pour « %s ».", serviceTitle),
        demandeLink(d.ID),
        map[string]any{"demande_id": d.ID, "service_id": d.ServiceID})
}

// demandeNotices maps a target status to the notification sent to the
// client.
var demandeNotices = map[model.DemandeStatus]struct{ typ, titre, msg string }{
    model.DemandeAccepted:   {model.NotifDemandeAcceptee, "Demande acceptée", "Votre demande a été acceptée par le professionnel."},
    model.DemandeRefused:    {model.NotifDemandeRejetee, "Demande refusée", "Votre demande a été refusée par le professionnel."},
    model.DemandeInProgress: {model.NotifDemandeEnCours, "Demande en cours", "La prestation liée à votre demande a commencé."},
    model.DemandeDone:       {model.NotifDemandeTerminee, "Demande terminée", "Votre demande est terminée. Vous pouvez maintenant l'évaluer."},
}

// DemandeTransitioned notifies the client of a professional's decision.
func (n *Notifier) DemandeTransitioned(ctx context.Context, d model.Demande, to model.DemandeStatus) {
    notice, ok := demandeNotices[to]
    if !ok {
        return
    }
    n.Notify(ctx, d.ClientID, notice.typ, notice.titre, notice.msg, demandeLink(d.ID),
        map[string]any{"demande_id": d.ID, "statut": string(to)})
}

// DemandeCancelled tells the professional the client withdrew.
func (n *Notifier) DemandeCancelled(ctx context.Context, d model.Demande, reason string) {
    n.Notify(ctx, d.ProfessionnelID, model.NotifDemandeAnnulee,
        "Demande annulée",
        "Le client a annulé sa demande.",
        demandeLink(d.ID),
        map[string]any{"demande_id": d.ID, "raison": reason})
}

// PaymentReceived tells the professional a payment awaits confirmation.
func (n *Notifier) PaymentReceived(ctx context.Context, p model.Payment) {
    n.Notify(ctx, p.ProfessionnelID, model.NotifPaiementRecu,
        "Paiement reçu",
        fmt.Sprintf("Un paiement de %.0f %s est en attente de confirmation.", p.Montant, p.Devise),
        paymentLink(p.ID),
        map[string]any{"paiement_id": p.ID, "reference": p.Reference})
}

// PaymentConfirmed notifies both parties.
func (n *Notifier) PaymentConfirmed(ctx context.Context, p model.Payment) {
    data := map[string]any{"paiement_id": p.ID, "reference": p.Reference, "demande_id": p.DemandeID}
    n.Notify(ctx, p.ClientID, model.NotifPaiementConfirme,
        "Paiement confirmé",
        fmt.Sprintf("Votre paiement %s a été confirmé. La prestation peut commencer.", p.Reference),
        paymentLink(p.ID), data)
    n.Notify(ctx, p.ProfessionnelID, model.NotifPaiementConfirme,
        "Paiement confirmé",
        fmt.Sprintf("Vous avez confirmé le paiement %s.", p.Reference),
        paymentLink(p.ID), data)
}

// PaymentCancelled tells the professional the client cancelled.
func (n *Notifier) PaymentCancelled(ctx context.Context, p model.Payment) {
    n.Notify(ctx, p.ProfessionnelID, model.NotifPaiementAnnule,
        "Paiement annulé",
        fmt.Sprintf("Le paiement %s a été annulé par le client.", p.Reference),
        paymentLink(p.ID),
        map[string]any{"paiement_id": p.ID, "reference": p.Reference})
}

// MessageReceived tells the recipient about a new message.
func (n *Notifier) MessageReceived(ctx context.Context, m model.Message) {
    n.Notify(ctx, m.DestinataireID, model.NotifNouveauMessage,
        "Nouveau message",
        "Vous avez reçu un nouveau message.",
        fmt.Sprintf("/conversations/%d", m.ExpediteurID),
        map[string]any{"message_id": m.ID, "expediteur_id": m.ExpediteurID})
}

// DocumentReviewed tells the professional the outcome of a review.
func (n *Notifier) DocumentReviewed(ctx context.Context, d model.Document) {
    typ, titre, msg := model.NotifDocumentValide, "Document validé", "Votre document a été validé."
    if d.Statut == model.DocumentRejected {
        typ, titre, msg = model.NotifDocumentRejete, "Document rejeté", "Votre document a été rejeté."
        if d.Commentaire != "" {
            msg += " Motif : " + d.Commentaire
        }
    }
    n.Notify(ctx, d.ProfessionnelID, typ, titre, msg, "/professionnel/documents",
        map[string]any{"document_id": d.ID, "type": d.Type})
}

func demandeLink(id uint64) string { return fmt.Sprintf("/demandes/%d", id) }
func paymentLink(id uint64) string { return fmt.Sprintf("/paiements/%d", id) }
