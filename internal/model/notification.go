package model

import (
    "time"

    "gorm.io/datatypes"
)

// Notification types produced by lifecycle transitions.
const (
    NotifNouvelleDemande  = "nouvelle_demande"
    NotifDemandeAcceptee  = "demande_acceptee"
    NotifDemandeRejetee   = "demande_rejetee"
    NotifDemandeEnCours   = "demande_en_cours"
    NotifDemandeTerminee  = "demande_terminee"
    NotifDemandeAnnulee   = "demande_annulee"
    NotifPaiementRecu     = "paiement_recu"
    NotifPaiementConfirme = "paiement_confirme"
    NotifPaiementAnnule   = "paiement_annule"
    NotifNouveauMessage   = "nouveau_message"
    NotifDocumentValide   = "document_valide"
    NotifDocumentRejete   = "document_rejete"
    NotifSysteme          = "systeme"
)

// Notification is a message for one user derived from an event elsewhere.
type Notification struct {
    ID          uint64         `gorm:"primaryKey" json:"id"`
    UserID      uint64         `gorm:"index;not null" json:"user_id"`
    Type        string         `gorm:"size:50;index;not null" json:"type"`
    Titre       string         `gorm:"size:255;not null" json:"titre"`
    Message     string         `gorm:"type:text;not null" json:"message"`
    Lien        string         `gorm:"size:255" json:"lien,omitempty"`
    Data        datatypes.JSON `json:"data,omitempty"`
    Lu          bool           `gorm:"index;not null" json:"lu"`
    DateLecture *time.Time     `json:"date_lecture,omitempty"`
    CreatedAt   time.Time      `gorm:"index" json:"created_at"`
    UpdatedAt   time.Time      `json:"updated_at"`
}

func (n Notification) OwnerID() uint64 { return n.UserID }
