package model

import "time"

// DemandeStatus is the lifecycle state of a booking request.
type DemandeStatus string

const (
    DemandePending    DemandeStatus = "en_attente"
    DemandeAccepted   DemandeStatus = "acceptee"
    DemandeRefused    DemandeStatus = "refusee"
    DemandeInProgress DemandeStatus = "en_cours"
    DemandeDone       DemandeStatus = "terminee"
    DemandeCancelled  DemandeStatus = "annulee"
    // DemandeComplete is accepted on input as a synonym of DemandeDone.
    DemandeComplete DemandeStatus = "complete"
)

// Terminal reports whether no further transition may leave s.
func (s DemandeStatus) Terminal() bool {
    switch s {
    case DemandeRefused, DemandeDone, DemandeCancelled, DemandeComplete:
        return true
    }
    return false
}

// Demande is a client's request against a service.  ProfessionnelID is
// copied from the service when the request is created.
//
// Fields:
//  DateDebut/DateFin – desired intervention window.
//  DateAcceptation   – stamped when the professional accepts.
//  DateFinReelle     – stamped when the request is marked terminee.
//  Note/Evaluation   – client rating, only once terminee.
type Demande struct {
    ID              uint64        `gorm:"primaryKey" json:"id"`
    ServiceID       uint64        `gorm:"index;not null" json:"service_id"`
    Service         *Service      `json:"service,omitempty"`
    ClientID        uint64        `gorm:"index;not null" json:"client_id"`
    Client          *User         `gorm:"foreignKey:ClientID" json:"client,omitempty"`
    ProfessionnelID uint64        `gorm:"index;not null" json:"professionnel_id"`
    Professionnel   *User         `gorm:"foreignKey:ProfessionnelID" json:"professionnel,omitempty"`
    Description     string        `gorm:"type:text;not null" json:"description"`
    DateDebut       time.Time     `gorm:"not null" json:"date_debut_souhaitee"`
    DateFin         time.Time     `gorm:"not null" json:"date_fin_souhaitee"`
    Adresse         string        `gorm:"size:255;not null" json:"adresse_intervention"`
    Budget          float64       `gorm:"type:decimal(10,2);not null" json:"budget_max"`
    Statut          DemandeStatus `gorm:"size:20;index;not null" json:"statut"`
    DateAcceptation *time.Time    `json:"date_acceptation,omitempty"`
    DateFinReelle   *time.Time    `json:"date_fin_reelle,omitempty"`
    Note            *int          `json:"note,omitempty"`
    Evaluation      string        `gorm:"type:text" json:"evaluation,omitempty"`
    Commentaire     string        `gorm:"type:text" json:"commentaire,omitempty"`
    CreatedAt       time.Time     `gorm:"index" json:"created_at"`
    UpdatedAt       time.Time     `json:"updated_at"`
}

// ClientParty returns the requesting client.
func (d Demande) ClientParty() uint64 { return d.ClientID }

// ProfessionalParty returns the professional who owns the service.
func (d Demande) ProfessionalParty() uint64 { return d.ProfessionnelID }
